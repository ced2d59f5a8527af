// Package quoteevents adapts the CloudEvents publisher to the quote service port.
package quoteevents

import (
	"context"
	"log/slog"

	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/app/ports"
	"github.com/MercadinhoDaBisa/pajucara-middleware/pkg/eventpublisher"
)

type eventClient interface {
	Publish(ctx context.Context, payload eventpublisher.QuoteComputed) (string, error)
}

// Publisher implements ports.QuoteEventPublisher.
type Publisher struct {
	client eventClient
	log    *slog.Logger
}

func NewPublisher(log *slog.Logger, client eventpublisher.Client) *Publisher {
	return newPublisher(log, client)
}

func newPublisher(log *slog.Logger, client eventClient) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{client: client, log: log}
}

func (p *Publisher) PublishQuoteComputed(ctx context.Context, event ports.QuoteComputedEvent) error {
	id, err := p.client.Publish(ctx, Payload(event))
	if err != nil {
		return err
	}
	p.log.DebugContext(ctx, "Quote event published", "event_id", id, "quotes", len(event.Quotes))
	return nil
}

// Payload maps a computed quote set to event data with fixed precision.
func Payload(event ports.QuoteComputedEvent) eventpublisher.QuoteComputed {
	totals := event.Shipment.Totals
	quotes := make([]eventpublisher.Quote, 0, len(event.Quotes))
	for _, quote := range event.Quotes {
		quotes = append(quotes, eventpublisher.Quote{
			Name:    quote.Name,
			Service: quote.Service,
			Price:   quote.Price.StringFixed(2),
			Days:    quote.Days,
			QuoteID: quote.QuoteID,
		})
	}
	return eventpublisher.QuoteComputed{
		RequestID:   event.RequestID,
		Destination: event.Shipment.DestinationZipcode,
		Count:       totals.Count,
		Weight:      totals.Weight.StringFixed(3),
		Volume:      totals.Volume.StringFixed(6),
		Quotes:      quotes,
	}
}

var _ ports.QuoteEventPublisher = (*Publisher)(nil)
