package market

import "context"

// Ingestor fetches pair snapshots from the upstream market data source.
type Ingestor interface {
	// FetchSnapshots returns the newest pairs for a chain, at most limit.
	FetchSnapshots(ctx context.Context, chain string, limit int) ([]PairSnapshot, error)

	// FetchSnapshot returns the best pair for a single token address, or
	// (nil, nil) when the upstream knows nothing about it.
	FetchSnapshot(ctx context.Context, address string) (*PairSnapshot, error)
}

// Action is an inline action attached to a dispatched message.
type Action struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// Dispatcher delivers alert messages to a recipient.
type Dispatcher interface {
	Dispatch(ctx context.Context, recipient, message string, actions []Action) error
}
