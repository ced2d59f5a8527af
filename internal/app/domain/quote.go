package domain

import "github.com/shopspring/decimal"

// Quote is one normalized carrier offer.
type Quote struct {
	Name    string
	Service string
	Price   decimal.Decimal
	Days    int
	QuoteID string
}

// Usable reports whether the quote can be shown at checkout.
func (q Quote) Usable() bool {
	return q.Price.IsPositive()
}

// QuoteResponse is the aggregated result of one quote request.
type QuoteResponse struct {
	Quotes []Quote
}
