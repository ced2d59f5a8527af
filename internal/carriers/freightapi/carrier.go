// Package freightapi quotes freight through a JSON-over-HTTPS rating API
// authenticated with a bearer token.
package freightapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/app/domain"
	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/carriers"
	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/config"
)

// Name identifies the carrier in logs and metrics.
const Name = "freightapi"

// QuoteRequest is the body sent to the rating endpoint.
type QuoteRequest struct {
	Account            string        `json:"account"`
	OriginZipcode      string        `json:"origin_zipcode"`
	DestinationZipcode string        `json:"destination_zipcode"`
	RecipientDocument  string        `json:"recipient_document"`
	DeclaredValue      json.Number   `json:"declared_value"`
	Requests           []ModeRequest `json:"requests"`
}

// ModeRequest asks for one transport mode.
type ModeRequest struct {
	Mode        string      `json:"mode"`
	Merchandise string      `json:"merchandise,omitempty"`
	Weight      json.Number `json:"weight"`
	Volume      json.Number `json:"volume"`
	Volumes     int         `json:"volumes"`
	Length      json.Number `json:"length"`
	Width       json.Number `json:"width"`
	Height      json.Number `json:"height"`
}

// QuoteResponse is the rating endpoint reply.
type QuoteResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Results []ModeResult `json:"results"`
}

// ModeResult is one priced mode. ErrorCode 0 means success.
type ModeResult struct {
	Mode         string          `json:"mode"`
	Service      string          `json:"service"`
	Name         string          `json:"name"`
	Price        json.RawMessage `json:"price"`
	Days         int             `json:"days"`
	QuoteID      string          `json:"quote_id"`
	ErrorCode    int             `json:"error_code"`
	ErrorMessage string          `json:"error_message"`
}

// Codec encodes shipments for the rating API.
type Codec struct {
	cfg    config.FreightAPIConfig
	origin string
}

func NewCodec(cfg config.FreightAPIConfig, origin string) *Codec {
	return &Codec{cfg: cfg, origin: origin}
}

// New returns the carrier for cfg.
func New(cfg config.FreightAPIConfig, origin string, opts carriers.Options) *carriers.HTTPCarrier {
	if opts.Limiter == nil {
		opts.Limiter = carriers.NewLimiter(cfg.RatePerSecond, 1)
	}
	return carriers.NewHTTPCarrier(Name, NewCodec(cfg, origin), opts)
}

// Request maps a shipment to the request body.
func (c *Codec) Request(shipment domain.Shipment) QuoteRequest {
	totals := shipment.Totals
	volumes := totals.Count
	if volumes < 1 {
		volumes = 1
	}
	modes := make([]ModeRequest, 0, len(c.cfg.Modes))
	for _, mode := range c.cfg.Modes {
		modes = append(modes, ModeRequest{
			Mode:        mode.Code,
			Merchandise: mode.Merchandise,
			Weight:      fixed(totals.Weight, 3),
			Volume:      fixed(totals.Volume, 6),
			Volumes:     volumes,
			Length:      fixed(totals.FirstItem.Length, 2),
			Width:       fixed(totals.FirstItem.Width, 2),
			Height:      fixed(totals.FirstItem.Height, 2),
		})
	}
	return QuoteRequest{
		Account:            c.cfg.Account,
		OriginZipcode:      c.origin,
		DestinationZipcode: shipment.DestinationZipcode,
		RecipientDocument:  shipment.RecipientDocument,
		DeclaredValue:      fixed(shipment.DeclaredValue, 2),
		Requests:           modes,
	}
}

func (c *Codec) BuildRequest(ctx context.Context, shipment domain.Shipment) (*http.Request, error) {
	body, err := json.Marshal(c.Request(shipment))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	return req, nil
}

func (c *Codec) ParseResponse(_ int, body []byte) ([]domain.Quote, error) {
	var resp QuoteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", carriers.ErrMalformedResponse, err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: %s", carriers.ErrRejected, strings.TrimSpace(resp.Message))
	}

	quotes := make([]domain.Quote, 0, len(resp.Results))
	for _, result := range resp.Results {
		if result.ErrorCode != 0 {
			continue
		}
		price, err := parsePrice(result.Price)
		if err != nil || !price.IsPositive() {
			continue
		}
		quotes = append(quotes, c.quote(result, price))
	}
	return quotes, nil
}

func (c *Codec) quote(result ModeResult, price decimal.Decimal) domain.Quote {
	service := strings.TrimSpace(result.Service)
	if service == "" {
		service = strings.TrimSpace(result.Mode)
	}
	name := strings.TrimSpace(result.Name)
	if name == "" {
		name = c.modeName(result.Mode)
	}
	quoteID := strings.TrimSpace(result.QuoteID)
	if quoteID == "" {
		quoteID = Name + "_" + strings.ToLower(service)
	}
	days := result.Days
	if days < 0 {
		days = 0
	}
	return domain.Quote{
		Name:    name,
		Service: service,
		Price:   carriers.Money(price),
		Days:    days,
		QuoteID: quoteID,
	}
}

func (c *Codec) modeName(code string) string {
	for _, mode := range c.cfg.Modes {
		if strings.EqualFold(mode.Code, code) {
			return mode.Name
		}
	}
	return code
}

func fixed(value decimal.Decimal, places int32) json.Number {
	return json.Number(value.StringFixed(places))
}

// parsePrice accepts a JSON number or a formatted string.
func parsePrice(raw json.RawMessage) (decimal.Decimal, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return carriers.ParsePrice(text)
	}
	var number decimal.Decimal
	if err := json.Unmarshal(raw, &number); err != nil {
		return decimal.Zero, err
	}
	return number, nil
}
