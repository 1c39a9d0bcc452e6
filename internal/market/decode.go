package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// DexScreener wire format
// ---------------------------------------------------------------------------

// PairsResponse is the envelope returned by the pairs/search endpoints.
type PairsResponse struct {
	SchemaVersion string    `json:"schemaVersion"`
	Pairs         []PairDTO `json:"pairs"`
}

// PairDTO mirrors one pair object on the wire. All numeric fields are
// optional upstream; absent values decode to zero.
type PairDTO struct {
	ChainID     string `json:"chainId"`
	DexID       string `json:"dexId"`
	PairAddress string `json:"pairAddress"`
	BaseToken   struct {
		Address string `json:"address"`
		Name    string `json:"name"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	PriceUSD string `json:"priceUsd"`
	Txns     struct {
		H1  BuysSellsDTO `json:"h1"`
		H24 BuysSellsDTO `json:"h24"`
	} `json:"txns"`
	Volume struct {
		H1  float64 `json:"h1"`
		H24 float64 `json:"h24"`
	} `json:"volume"`
	PriceChange struct {
		H1 float64 `json:"h1"`
	} `json:"priceChange"`
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	FDV           float64 `json:"fdv"`
	PairCreatedAt int64   `json:"pairCreatedAt"` // unix millis, 0 when unknown
	Info          *struct {
		Websites []struct {
			URL string `json:"url"`
		} `json:"websites"`
		Socials []struct {
			Type string `json:"type"`
			URL  string `json:"url"`
		} `json:"socials"`
	} `json:"info"`
}

type BuysSellsDTO struct {
	Buys  int `json:"buys"`
	Sells int `json:"sells"`
}

// Snapshot converts a wire pair into the domain snapshot. Unparseable
// prices become zero rather than an error: filtering and scoring are total
// over missing fields.
func (d PairDTO) Snapshot() PairSnapshot {
	price, err := decimal.NewFromString(d.PriceUSD)
	if err != nil {
		price = decimal.Zero
	}

	var createdAt time.Time
	if d.PairCreatedAt > 0 {
		createdAt = time.UnixMilli(d.PairCreatedAt)
	}

	hasSocials := false
	if d.Info != nil {
		hasSocials = len(d.Info.Socials) > 0 || len(d.Info.Websites) > 0
	}

	return PairSnapshot{
		TokenAddress:  d.BaseToken.Address,
		PairAddress:   d.PairAddress,
		ChainID:       d.ChainID,
		BaseSymbol:    d.BaseToken.Symbol,
		PriceUSD:      price,
		LiquidityUSD:  d.Liquidity.USD,
		FDV:           d.FDV,
		VolumeH1:      d.Volume.H1,
		VolumeH24:     d.Volume.H24,
		BuysH1:        d.Txns.H1.Buys,
		SellsH1:       d.Txns.H1.Sells,
		BuysH24:       d.Txns.H24.Buys,
		SellsH24:      d.Txns.H24.Sells,
		PriceChangeH1: d.PriceChange.H1,
		CreatedAt:     createdAt,
		HasSocials:    hasSocials,
	}
}
