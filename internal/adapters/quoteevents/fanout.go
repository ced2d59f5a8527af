package quoteevents

import (
	"context"
	"errors"

	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/app/ports"
)

// Fanout delivers each event to every sink in order. A failing sink does not
// stop the rest; all failures are joined.
type Fanout []ports.QuoteEventPublisher

// Combine drops nil sinks and returns nil when none remain.
func Combine(sinks ...ports.QuoteEventPublisher) ports.QuoteEventPublisher {
	var out Fanout
	for _, sink := range sinks {
		if sink != nil {
			out = append(out, sink)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	default:
		return out
	}
}

func (f Fanout) PublishQuoteComputed(ctx context.Context, event ports.QuoteComputedEvent) error {
	var errs []error
	for _, sink := range f {
		if err := sink.PublishQuoteComputed(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
