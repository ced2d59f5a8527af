// Package carriers holds the shared send step for HTTP freight carriers.
// Each carrier package supplies a Codec that builds the wire request and
// parses the reply; HTTPCarrier issues exactly one POST per quote, no retries.
package carriers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/app/domain"
)

const defaultMaxResponseBytes = 1 << 20

var (
	// ErrUpstreamStatus indicates the carrier answered with a non-2xx status.
	ErrUpstreamStatus = errors.New("carrier returned non-success status")
	// ErrMalformedResponse indicates the carrier reply could not be parsed.
	ErrMalformedResponse = errors.New("malformed carrier response")
	// ErrRejected indicates the carrier reported an error code for the quote.
	ErrRejected = errors.New("carrier rejected quote")
)

// Codec translates shipments to one carrier's wire format and back.
type Codec interface {
	BuildRequest(ctx context.Context, shipment domain.Shipment) (*http.Request, error)
	ParseResponse(status int, body []byte) ([]domain.Quote, error)
}

// Options configures the send step.
type Options struct {
	HTTPClient       *http.Client
	Timeout          time.Duration
	Limiter          *rate.Limiter
	MaxResponseBytes int64
	Logger           *slog.Logger
}

// HTTPCarrier is a ports.Carrier backed by a Codec and an HTTP client.
type HTTPCarrier struct {
	name    string
	codec   Codec
	client  *http.Client
	limiter *rate.Limiter
	maxBody int64
	log     *slog.Logger
}

// NewHTTPCarrier constructs a carrier. A nil limiter means unthrottled.
func NewHTTPCarrier(name string, codec Codec, opts Options) *HTTPCarrier {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	maxBody := opts.MaxResponseBytes
	if maxBody <= 0 {
		maxBody = defaultMaxResponseBytes
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &HTTPCarrier{
		name:    name,
		codec:   codec,
		client:  client,
		limiter: opts.Limiter,
		maxBody: maxBody,
		log:     log.With("carrier", name),
	}
}

// NewLimiter returns a limiter for perSecond requests, or nil when perSecond <= 0.
func NewLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

func (c *HTTPCarrier) Name() string {
	return c.name
}

// Quote sends one request and parses the reply.
func (c *HTTPCarrier) Quote(ctx context.Context, shipment domain.Shipment) ([]domain.Quote, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("wait for carrier rate limit: %w", err)
		}
	}

	req, err := c.codec.BuildRequest(ctx, shipment)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	c.log.DebugContext(ctx, "carrier replied", "status", resp.StatusCode, "bytes", len(body), "duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: status=%s", ErrUpstreamStatus, resp.Status)
	}

	quotes, err := c.codec.ParseResponse(resp.StatusCode, body)
	if err != nil {
		return nil, err
	}
	return quotes, nil
}
