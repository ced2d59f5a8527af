package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultRecipientDocument is used when the cart carries no usable tax id.
const DefaultRecipientDocument = "00000000000"

var cubicCentimetresPerCubicMetre = decimal.NewFromInt(1_000_000)

// Dimensions are per-shipment measures in centimetres.
type Dimensions struct {
	Length decimal.Decimal
	Width  decimal.Decimal
	Height decimal.Decimal
}

// ShipmentTotals aggregates the cart lines. Weight is kg, Volume is m³.
type ShipmentTotals struct {
	Weight    decimal.Decimal
	Volume    decimal.Decimal
	Count     int
	FirstItem Dimensions
}

// Shipment is the carrier-agnostic quote input.
type Shipment struct {
	DestinationZipcode string
	RecipientDocument  string
	DeclaredValue      decimal.Decimal
	Totals             ShipmentTotals
}

// Normalize derives routing fields and totals from an inbound order.
// An empty placeholder falls back to DefaultRecipientDocument.
func Normalize(order InboundOrder, placeholderDocument string) Shipment {
	placeholder := DigitsOnly(placeholderDocument)
	if placeholder == "" {
		placeholder = DefaultRecipientDocument
	}
	document := DigitsOnly(order.Cart.Customer.Document.String())
	if document == "" {
		document = placeholder
	}

	return Shipment{
		DestinationZipcode: DigitsOnly(order.Zipcode.String()),
		RecipientDocument:  document,
		DeclaredValue:      nonNegative(order.Amount.Decimal),
		Totals:             Totals(order.Skus),
	}
}

// Totals sums weight, cubic volume and volume count over the items.
func Totals(items []LineItem) ShipmentTotals {
	totals := ShipmentTotals{
		Weight: decimal.Zero,
		Volume: decimal.Zero,
	}
	for i, item := range items {
		quantity := item.quantity()
		qty := decimal.NewFromInt(int64(quantity))
		length := nonNegative(item.Length.Decimal)
		width := nonNegative(item.Width.Decimal)
		height := nonNegative(item.Height.Decimal)

		totals.Weight = totals.Weight.Add(nonNegative(item.Weight.Decimal).Mul(qty))
		cubic := length.Mul(width).Mul(height).Div(cubicCentimetresPerCubicMetre)
		totals.Volume = totals.Volume.Add(cubic.Mul(qty))
		totals.Count += quantity

		if i == 0 {
			totals.FirstItem = Dimensions{Length: length, Width: width, Height: height}
		}
	}
	return totals
}

// MaxLineQuantity caps a single line's quantity.
const MaxLineQuantity = 1_000_000

var maxLineQuantity = decimal.NewFromInt(MaxLineQuantity)

func (item LineItem) quantity() int {
	if item.Quantity == nil {
		return 1
	}
	if item.Quantity.GreaterThan(maxLineQuantity) {
		return MaxLineQuantity
	}
	q := item.Quantity.IntPart()
	if q < 1 {
		return 1
	}
	return int(q)
}

// DigitsOnly strips every non-digit rune.
func DigitsOnly(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func nonNegative(value decimal.Decimal) decimal.Decimal {
	if value.IsNegative() {
		return decimal.Zero
	}
	return value
}
