package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/app/domain"
	appservices "github.com/MercadinhoDaBisa/pajucara-middleware/internal/app/services"
	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/webhooks/yampi"
)

const (
	maxPayloadBytes = 1 << 20

	// DefaultBanner is served on GET /.
	DefaultBanner = "Middleware da Pajuçara rodando"

	msgUnauthorized   = "Acesso não autorizado."
	msgInvalidPayload = "Erro interno na validação de segurança ou processamento do payload Yampi."
	msgInternal       = "Erro interno no servidor de cotação."
)

// QuoteService is the application contract behind POST /cotacao.
type QuoteService interface {
	Quote(ctx context.Context, cmd appservices.QuoteCommand) (domain.QuoteResponse, error)
}

// QuoteRoutes registers the checkout freight endpoints.
type QuoteRoutes struct {
	log    *slog.Logger
	quotes QuoteService
	banner string
}

// NewQuoteRoutes constructs quote routes. An empty banner uses DefaultBanner.
func NewQuoteRoutes(log *slog.Logger, quotes QuoteService, banner string) *QuoteRoutes {
	if log == nil {
		log = slog.Default()
	}
	if banner == "" {
		banner = DefaultBanner
	}
	return &QuoteRoutes{log: log, quotes: quotes, banner: banner}
}

// RegisterRoutes registers quote endpoints.
func (q *QuoteRoutes) RegisterRoutes(s *echo.Echo) {
	s.GET("/", q.handleBanner)
	s.GET("/healthz", q.handleHealth)
	s.POST("/cotacao", q.handleQuote)
}

type quoteJSON struct {
	Name    string      `json:"name"`
	Service string      `json:"service"`
	Price   json.Number `json:"price"`
	Days    int         `json:"days"`
	QuoteID string      `json:"quote_id"`
}

type quotesJSON struct {
	Quotes []quoteJSON `json:"quotes"`
}

func (q *QuoteRoutes) handleBanner(c echo.Context) error {
	return c.String(http.StatusOK, q.banner)
}

func (q *QuoteRoutes) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (q *QuoteRoutes) handleQuote(c echo.Context) (err error) {
	ctx := c.Request().Context()
	defer func() {
		if r := recover(); r != nil {
			q.log.ErrorContext(ctx, "Quote handler panicked", "panic", fmt.Sprint(r))
			err = c.JSON(http.StatusInternalServerError, map[string]string{"erro": msgInternal})
		}
	}()

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxPayloadBytes))
	if err != nil {
		q.log.WarnContext(ctx, "Failed to read quote request body", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": msgInvalidPayload})
	}

	resp, err := q.quotes.Quote(ctx, appservices.QuoteCommand{
		Signature: c.Request().Header.Get(yampi.SignatureHeader),
		Body:      body,
		RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
	})
	if err != nil {
		kind := appservices.ClassifyQuoteError(err)
		switch kind {
		case appservices.QuoteErrorMissingSecret:
			q.log.ErrorContext(ctx, "Webhook secret is not configured")
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": msgUnauthorized})
		case appservices.QuoteErrorMissingSignature, appservices.QuoteErrorInvalidSignature:
			q.log.WarnContext(ctx, "Rejected quote request", "reason", string(kind))
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": msgUnauthorized})
		case appservices.QuoteErrorInvalidPayload:
			q.log.WarnContext(ctx, "Unprocessable quote payload", "error", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": msgInvalidPayload})
		default:
			q.log.ErrorContext(ctx, "Quote aggregation failed", "error", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"erro": msgInternal})
		}
	}

	out := quotesJSON{Quotes: make([]quoteJSON, 0, len(resp.Quotes))}
	for _, quote := range resp.Quotes {
		out.Quotes = append(out.Quotes, quoteJSON{
			Name:    quote.Name,
			Service: quote.Service,
			Price:   json.Number(quote.Price.StringFixed(2)),
			Days:    quote.Days,
			QuoteID: quote.QuoteID,
		})
	}
	q.log.InfoContext(ctx, "Quote request served", "quotes", len(out.Quotes))
	return c.JSON(http.StatusOK, out)
}
