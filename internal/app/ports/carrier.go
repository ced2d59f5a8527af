package ports

import (
	"context"

	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/app/domain"
)

// Carrier quotes one shipment against a single freight provider.
// Implementations own their timeouts only through ctx and must not panic
// across this boundary on malformed upstream data.
type Carrier interface {
	Name() string
	Quote(ctx context.Context, shipment domain.Shipment) ([]domain.Quote, error)
}

// DestinationOptional is implemented by carriers that can quote a shipment
// without a destination zipcode.
type DestinationOptional interface {
	QuotesWithoutDestination() bool
}

// QuoteEventPublisher announces computed quotes to an external sink.
type QuoteEventPublisher interface {
	PublishQuoteComputed(ctx context.Context, event QuoteComputedEvent) error
}

// QuoteComputedEvent is the payload handed to QuoteEventPublisher.
type QuoteComputedEvent struct {
	RequestID string
	Shipment  domain.Shipment
	Quotes    []domain.Quote
}
