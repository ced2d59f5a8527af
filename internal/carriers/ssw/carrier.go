// Package ssw quotes freight through the SSW "cotar" SOAP web service.
package ssw

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/app/domain"
	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/app/ports"
	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/carriers"
	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/config"
)

var centimetresPerMetre = decimal.NewFromInt(100)

// Codec builds and parses cotar calls for one service mode.
type Codec struct {
	cfg    config.SSWConfig
	mode   config.ServiceMode
	origin string
}

// NewCodec returns the codec for mode, quoting from the origin postal code.
func NewCodec(cfg config.SSWConfig, mode config.ServiceMode, origin string) *Codec {
	return &Codec{cfg: cfg, mode: mode, origin: origin}
}

// New returns one carrier per configured service mode. Modes share a rate limiter.
func New(cfg config.SSWConfig, origin string, opts carriers.Options) []ports.Carrier {
	if opts.Limiter == nil {
		opts.Limiter = carriers.NewLimiter(cfg.RatePerSecond, 1)
	}
	out := make([]ports.Carrier, 0, len(cfg.Services))
	for _, mode := range cfg.Services {
		name := "ssw/" + strings.ToLower(mode.Code)
		out = append(out, carriers.NewHTTPCarrier(name, NewCodec(cfg, mode, origin), opts))
	}
	return out
}

// Request maps a shipment to cotar parameters.
func (c *Codec) Request(shipment domain.Shipment) CotarRequest {
	merchandise := c.cfg.Merchandise
	if c.mode.Merchandise != "" {
		merchandise = c.mode.Merchandise
	}
	sender := c.cfg.SenderCNPJ
	if sender == "" {
		sender = c.cfg.PayerCNPJ
	}
	quantity := shipment.Totals.Count
	if quantity < 1 {
		quantity = 1
	}
	first := shipment.Totals.FirstItem

	return CotarRequest{
		Dominio:            c.cfg.Domain,
		Login:              c.cfg.Login,
		Senha:              c.cfg.Password,
		CNPJPagador:        c.cfg.PayerCNPJ,
		SenhaPagador:       c.cfg.PayerPassword,
		CEPOrigem:          c.origin,
		CEPDestino:         shipment.DestinationZipcode,
		ValorNF:            shipment.DeclaredValue,
		Quantidade:         quantity,
		Peso:               shipment.Totals.Weight,
		Volume:             shipment.Totals.Volume,
		Mercadoria:         merchandise,
		CIFFOB:             c.cfg.PaymentTerm,
		CNPJRemetente:      sender,
		CNPJDestinatario:   shipment.RecipientDocument,
		Altura:             first.Height.Div(centimetresPerMetre),
		Largura:            first.Width.Div(centimetresPerMetre),
		Comprimento:        first.Length.Div(centimetresPerMetre),
		FatorMultiplicador: 1,
	}
}

func (c *Codec) BuildRequest(ctx context.Context, shipment domain.Shipment) (*http.Request, error) {
	body, err := c.Request(shipment).Envelope(c.cfg.Namespace)
	if err != nil {
		return nil, fmt.Errorf("render envelope: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", c.cfg.Namespace+"#cotar")
	return req, nil
}

func (c *Codec) ParseResponse(_ int, body []byte) ([]domain.Quote, error) {
	result, err := ParseEnvelope(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", carriers.ErrMalformedResponse, err)
	}

	code := strings.TrimSpace(result.Erro)
	if code != "" && code != "0" {
		if n, convErr := strconv.Atoi(code); convErr != nil || n != 0 {
			return nil, fmt.Errorf("%w: erro=%s mensagem=%q", carriers.ErrRejected, code, strings.TrimSpace(result.Mensagem))
		}
	}

	price, err := carriers.ParsePrice(result.Frete)
	if err != nil {
		return nil, fmt.Errorf("%w: frete %q: %v", carriers.ErrMalformedResponse, result.Frete, err)
	}
	if !price.IsPositive() {
		return nil, nil
	}

	quoteID := strings.TrimSpace(result.Reference)
	if quoteID == "" {
		quoteID = "ssw_" + strings.ToLower(c.mode.Code)
	}
	return []domain.Quote{{
		Name:    c.mode.Name,
		Service: c.mode.Code,
		Price:   carriers.Money(price),
		Days:    parseDays(result.Prazo),
		QuoteID: quoteID,
	}}, nil
}

// parseDays reads the leading integer of prazo ("5", "5 dias").
func parseDays(raw string) int {
	raw = strings.TrimSpace(raw)
	end := 0
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	days, err := strconv.Atoi(raw[:end])
	if err != nil {
		return 0
	}
	return days
}
