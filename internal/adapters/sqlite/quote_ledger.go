// Package sqlite records computed quotes in the SQLite ledger.
package sqlite

import (
	"context"

	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/app/ports"
	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/db"
)

type ledgerDatabase interface {
	InsertQuoteRequest(ctx context.Context, params db.InsertQuoteRequestParams) (int64, error)
}

// QuoteLedger stores every computed quote set. It plugs into the quote
// service as a ports.QuoteEventPublisher.
type QuoteLedger struct {
	db ledgerDatabase
}

// NewQuoteLedger creates a ledger over an open database handle. The caller
// keeps ownership of the handle.
func NewQuoteLedger(database *db.Database) *QuoteLedger {
	return &QuoteLedger{db: database}
}

func (l *QuoteLedger) PublishQuoteComputed(ctx context.Context, event ports.QuoteComputedEvent) error {
	_, err := l.db.InsertQuoteRequest(ctx, recordParams(event))
	return err
}

func recordParams(event ports.QuoteComputedEvent) db.InsertQuoteRequestParams {
	shipment := event.Shipment
	offers := make([]db.QuoteOffer, 0, len(event.Quotes))
	for _, quote := range event.Quotes {
		offers = append(offers, db.QuoteOffer{
			Name:    quote.Name,
			Service: quote.Service,
			Price:   quote.Price.StringFixed(2),
			Days:    int64(quote.Days),
			QuoteID: quote.QuoteID,
		})
	}
	return db.InsertQuoteRequestParams{
		RequestID:          event.RequestID,
		DestinationZipcode: shipment.DestinationZipcode,
		DeclaredValue:      shipment.DeclaredValue.StringFixed(2),
		Weight:             shipment.Totals.Weight.StringFixed(3),
		Volume:             shipment.Totals.Volume.StringFixed(6),
		ItemCount:          int64(shipment.Totals.Count),
		Offers:             offers,
	}
}

var _ ports.QuoteEventPublisher = (*QuoteLedger)(nil)
