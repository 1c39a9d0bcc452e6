package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Market data model — one point-in-time read of a tradeable pair
// ---------------------------------------------------------------------------

// PairSnapshot is an immutable view of one tradeable pair at one instant.
// It is produced once per poll by the ingestion client and never mutated.
// Missing upstream numeric fields decode to zero.
type PairSnapshot struct {
	TokenAddress string `json:"token_address"`
	PairAddress  string `json:"pair_address"`
	ChainID      string `json:"chain_id"`
	BaseSymbol   string `json:"base_symbol"`

	// PriceUSD keeps the upstream decimal string exact; score math that
	// needs a float converts explicitly.
	PriceUSD decimal.Decimal `json:"price_usd"`

	LiquidityUSD float64 `json:"liquidity_usd"`
	FDV          float64 `json:"fdv"`

	VolumeH1  float64 `json:"volume_h1"`
	VolumeH24 float64 `json:"volume_h24"`

	BuysH1   int `json:"buys_h1"`
	SellsH1  int `json:"sells_h1"`
	BuysH24  int `json:"buys_h24"`
	SellsH24 int `json:"sells_h24"`

	PriceChangeH1 float64 `json:"price_change_h1"`

	// CreatedAt is zero when the upstream omits pairCreatedAt.
	CreatedAt time.Time `json:"created_at"`

	HasSocials bool `json:"has_socials"`
}

// TxnsH1 returns the total 1h transaction count.
func (s PairSnapshot) TxnsH1() int {
	return s.BuysH1 + s.SellsH1
}

// TxnsH24 returns the total 24h transaction count.
func (s PairSnapshot) TxnsH24() int {
	return s.BuysH24 + s.SellsH24
}

// Age returns the pair age at the given instant, or (0, false) when the
// creation timestamp is unknown.
func (s PairSnapshot) Age(now time.Time) (time.Duration, bool) {
	if s.CreatedAt.IsZero() {
		return 0, false
	}
	return now.Sub(s.CreatedAt), true
}
