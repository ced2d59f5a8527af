// Package fixed serves static quotes without calling any remote carrier.
// It backs the QUOTE_MODE=fixed test mode.
package fixed

import (
	"context"

	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/app/domain"
	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/app/ports"
	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/carriers"
	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/config"
)

const Name = "fixed"

type Carrier struct {
	quotes []domain.Quote
}

func New(entries []config.FixedQuote) *Carrier {
	quotes := make([]domain.Quote, 0, len(entries))
	for _, entry := range entries {
		quotes = append(quotes, domain.Quote{
			Name:    entry.Name,
			Service: entry.Service,
			Price:   carriers.Money(entry.Price),
			Days:    entry.Days,
			QuoteID: entry.QuoteID,
		})
	}
	return &Carrier{quotes: quotes}
}

func (c *Carrier) Name() string {
	return Name
}

// Quote returns a copy of the configured quotes regardless of the shipment.
func (c *Carrier) Quote(ctx context.Context, _ domain.Shipment) ([]domain.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]domain.Quote, len(c.quotes))
	copy(out, c.quotes)
	return out, nil
}

// QuotesWithoutDestination reports true: the fixed quotes ignore the shipment.
func (c *Carrier) QuotesWithoutDestination() bool {
	return true
}

var _ ports.DestinationOptional = (*Carrier)(nil)
