package console

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dexsentry/dexsentry/internal/market"
)

// Dispatcher writes alerts to the process log. Used in development when no
// bot token is configured.
type Dispatcher struct{}

func New() *Dispatcher { return &Dispatcher{} }

func (d *Dispatcher) Dispatch(_ context.Context, recipient, message string, actions []market.Action) error {
	evt := log.Info().Str("recipient", recipient)
	if len(actions) > 0 {
		labels := make([]string, 0, len(actions))
		for _, a := range actions {
			labels = append(labels, a.Label)
		}
		evt = evt.Strs("actions", labels)
	}
	evt.Msg("ALERT\n" + message)
	return nil
}
