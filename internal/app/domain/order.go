package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrMalformedOrder indicates the inbound body is not a processable cart object.
var ErrMalformedOrder = errors.New("malformed order payload")

// InboundOrder is the checkout cart payload as sent by the webhook sender.
type InboundOrder struct {
	Zipcode Text       `json:"zipcode"`
	Amount  Number     `json:"amount"`
	Cart    Cart      `json:"cart"`
	Skus    LineItems `json:"skus"`
}

// Cart carries the customer block of the payload.
type Cart struct {
	Customer Customer `json:"customer"`
}

// Customer holds the recipient tax identifier.
type Customer struct {
	Document Text `json:"document"`
}

// LineItem is one SKU line. Dimensions are centimetres, weight is kilograms.
type LineItem struct {
	Weight   Number  `json:"weight"`
	Quantity *Number `json:"quantity"`
	Length   Number  `json:"length"`
	Width    Number  `json:"width"`
	Height   Number  `json:"height"`
}

// Optional blocks that arrive with the wrong shape (a PHP sender encodes an
// empty object as []) decode as their zero value.

func (c *Cart) UnmarshalJSON(data []byte) error {
	type plain Cart
	*c = Cart{}
	decodeObject(data, (*plain)(c))
	return nil
}

func (c *Customer) UnmarshalJSON(data []byte) error {
	type plain Customer
	*c = Customer{}
	decodeObject(data, (*plain)(c))
	return nil
}

func (item *LineItem) UnmarshalJSON(data []byte) error {
	type plain LineItem
	*item = LineItem{}
	decodeObject(data, (*plain)(item))
	return nil
}

// LineItems is the skus list. Anything other than an array decodes as empty.
type LineItems []LineItem

func (items *LineItems) UnmarshalJSON(data []byte) error {
	*items = nil
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil
	}
	var decoded []LineItem
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return nil
	}
	*items = decoded
	return nil
}

func decodeObject(data []byte, dst any) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return
	}
	_ = json.Unmarshal(trimmed, dst)
}

// ParseOrder decodes a raw webhook body. The input slice is never modified.
func ParseOrder(body []byte) (InboundOrder, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return InboundOrder{}, ErrMalformedOrder
	}
	var order InboundOrder
	if err := json.Unmarshal(trimmed, &order); err != nil {
		return InboundOrder{}, errors.Join(ErrMalformedOrder, err)
	}
	return order, nil
}

// Number is a lenient JSON numeric value. It accepts numbers, numeric strings
// (including comma decimals) and null. Anything unparsable decodes as zero.
type Number struct {
	decimal.Decimal
}

// NewNumber wraps a float value.
func NewNumber(v float64) Number {
	return Number{Decimal: decimal.NewFromFloat(v)}
}

func (n *Number) UnmarshalJSON(data []byte) error {
	n.Decimal = parseLenientDecimal(data)
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	return []byte(n.Decimal.String()), nil
}

func parseLenientDecimal(data []byte) decimal.Decimal {
	raw := strings.TrimSpace(string(data))
	if raw == "" || raw == "null" {
		return decimal.Zero
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return decimal.Zero
		}
		raw = strings.TrimSpace(s)
		if strings.Contains(raw, ",") && !strings.Contains(raw, ".") {
			raw = strings.ReplaceAll(raw, ",", ".")
		}
	}
	if raw == "" {
		return decimal.Zero
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return value
}

// Text is a lenient JSON string that also accepts bare numbers and null.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	switch {
	case raw == "" || raw == "null":
		*t = ""
	case strings.HasPrefix(raw, `"`):
		var s string
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			*t = ""
			return nil
		}
		*t = Text(s)
	case raw[0] == '{' || raw[0] == '[':
		*t = ""
	default:
		*t = Text(raw)
	}
	return nil
}

func (t Text) String() string {
	return string(t)
}
