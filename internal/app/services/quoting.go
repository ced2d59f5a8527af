package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/app/domain"
	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/app/ports"
	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/observability"
	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/webhooks/yampi"
)

const (
	defaultCarrierTimeout = 8 * time.Second
	defaultPublishTimeout = 5 * time.Second
)

var (
	// ErrCarrierPanic indicates a carrier panicked while quoting.
	ErrCarrierPanic = errors.New("carrier panicked")
	// ErrCarrierTimeout indicates a carrier did not answer within its budget.
	ErrCarrierTimeout = errors.New("carrier timed out")
)

// QuoteErrorKind classifies quote failures for transport-specific mapping.
type QuoteErrorKind string

const (
	// QuoteErrorUnknown is used when error is nil or not classified.
	QuoteErrorUnknown QuoteErrorKind = "unknown"
	// QuoteErrorMissingSecret indicates no webhook secret is configured.
	QuoteErrorMissingSecret QuoteErrorKind = "missing_secret"
	// QuoteErrorMissingSignature indicates the signature header was absent.
	QuoteErrorMissingSignature QuoteErrorKind = "missing_signature"
	// QuoteErrorInvalidSignature indicates signature mismatch.
	QuoteErrorInvalidSignature QuoteErrorKind = "invalid_signature"
	// QuoteErrorInvalidPayload indicates the body is not a processable JSON object.
	QuoteErrorInvalidPayload QuoteErrorKind = "invalid_payload"
)

// QuoteCommand is transport-agnostic quote input.
type QuoteCommand struct {
	Signature string
	Body      []byte
	RequestID string
}

// QuoteServiceConfig tunes the aggregator.
type QuoteServiceConfig struct {
	CarrierTimeout      time.Duration
	PlaceholderDocument string
	Publisher           ports.QuoteEventPublisher
	PublishTimeout      time.Duration
}

// QuoteService verifies a checkout webhook and fans the shipment out to carriers.
type QuoteService struct {
	log      *slog.Logger
	verifier *yampi.Verifier
	carriers []ports.Carrier
	cfg      QuoteServiceConfig
	inflight singleflight.Group
}

// NewQuoteService constructs the service. Carriers are queried and reported
// in the order given.
func NewQuoteService(log *slog.Logger, verifier *yampi.Verifier, carriers []ports.Carrier, cfg QuoteServiceConfig) *QuoteService {
	if log == nil {
		log = slog.Default()
	}
	if cfg.CarrierTimeout <= 0 {
		cfg.CarrierTimeout = defaultCarrierTimeout
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaultPublishTimeout
	}
	registered := make([]ports.Carrier, 0, len(carriers))
	for _, carrier := range carriers {
		if carrier != nil {
			registered = append(registered, carrier)
		}
	}
	return &QuoteService{
		log:      log,
		verifier: verifier,
		carriers: registered,
		cfg:      cfg,
	}
}

// ClassifyQuoteError classifies a returned quote error.
func ClassifyQuoteError(err error) QuoteErrorKind {
	switch {
	case err == nil:
		return QuoteErrorUnknown
	case errors.Is(err, yampi.ErrMissingSecret):
		return QuoteErrorMissingSecret
	case errors.Is(err, yampi.ErrMissingSignature):
		return QuoteErrorMissingSignature
	case errors.Is(err, yampi.ErrInvalidSignature):
		return QuoteErrorInvalidSignature
	case errors.Is(err, yampi.ErrInvalidPayload), errors.Is(err, domain.ErrMalformedOrder):
		return QuoteErrorInvalidPayload
	default:
		return QuoteErrorUnknown
	}
}

// Quote verifies, normalizes and aggregates. Carrier failures never surface
// as errors; they only reduce the quote list.
func (s *QuoteService) Quote(ctx context.Context, cmd QuoteCommand) (domain.QuoteResponse, error) {
	if err := s.verifier.Verify(cmd.Body, cmd.Signature); err != nil {
		return domain.QuoteResponse{}, err
	}

	order, err := domain.ParseOrder(cmd.Body)
	if err != nil {
		return domain.QuoteResponse{}, err
	}
	shipment := domain.Normalize(order, s.cfg.PlaceholderDocument)

	selected := s.carriers
	if shipment.DestinationZipcode == "" {
		selected = destinationOptional(s.carriers)
		s.log.WarnContext(ctx, "Quote request without destination zipcode", "carriers", len(selected))
		if len(selected) == 0 {
			return domain.QuoteResponse{Quotes: []domain.Quote{}}, nil
		}
	}

	shared := context.WithoutCancel(ctx)
	value, err, _ := s.inflight.Do(deliveryKey(cmd), func() (any, error) {
		quotes := s.collect(shared, selected, shipment)
		s.publish(shared, cmd.RequestID, shipment, quotes)
		return quotes, nil
	})
	if err != nil {
		return domain.QuoteResponse{}, fmt.Errorf("aggregate quotes: %w", err)
	}

	quotes, _ := value.([]domain.Quote)
	out := make([]domain.Quote, len(quotes))
	copy(out, quotes)
	return domain.QuoteResponse{Quotes: out}, nil
}

// Identical deliveries (same signature over the same body) share one fan-out
// while the first is still running.
func deliveryKey(cmd QuoteCommand) string {
	sum := sha256.Sum256(cmd.Body)
	return cmd.Signature + ":" + hex.EncodeToString(sum[:])
}

// destinationOptional keeps the carriers that quote without a destination.
func destinationOptional(registered []ports.Carrier) []ports.Carrier {
	var out []ports.Carrier
	for _, carrier := range registered {
		if optional, ok := carrier.(ports.DestinationOptional); ok && optional.QuotesWithoutDestination() {
			out = append(out, carrier)
		}
	}
	return out
}

func (s *QuoteService) collect(ctx context.Context, selected []ports.Carrier, shipment domain.Shipment) []domain.Quote {
	slots := make([][]domain.Quote, len(selected))

	var group errgroup.Group
	for i, carrier := range selected {
		group.Go(func() error {
			slots[i] = s.quoteCarrier(ctx, carrier, shipment)
			return nil
		})
	}
	_ = group.Wait()

	quotes := make([]domain.Quote, 0, len(selected))
	for _, slot := range slots {
		quotes = append(quotes, slot...)
	}
	return quotes
}

type carrierResult struct {
	quotes []domain.Quote
	err    error
}

func (s *QuoteService) quoteCarrier(ctx context.Context, carrier ports.Carrier, shipment domain.Shipment) []domain.Quote {
	name := carrierName(carrier)
	ctx = observability.WithCarrier(ctx, name)
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CarrierTimeout)
	defer cancel()
	ctx, span := observability.StartCarrierSpan(ctx, name, shipment.DestinationZipcode)
	defer span.End()

	start := time.Now()
	done := make(chan carrierResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- carrierResult{err: fmt.Errorf("%w: %v", ErrCarrierPanic, r)}
			}
		}()
		quotes, err := carrier.Quote(ctx, shipment)
		done <- carrierResult{quotes: quotes, err: err}
	}()

	var result carrierResult
	select {
	case result = <-done:
	case <-ctx.Done():
		result = carrierResult{err: fmt.Errorf("%w after %s: %w", ErrCarrierTimeout, s.cfg.CarrierTimeout, ctx.Err())}
	}
	if result.err == nil && ctx.Err() != nil {
		result.err = fmt.Errorf("%w after %s: %w", ErrCarrierTimeout, s.cfg.CarrierTimeout, ctx.Err())
	}

	elapsed := time.Since(start)
	if result.err != nil {
		outcome := observability.OutcomeError
		switch {
		case errors.Is(result.err, ErrCarrierPanic):
			outcome = observability.OutcomePanic
		case errors.Is(result.err, ErrCarrierTimeout), errors.Is(result.err, context.DeadlineExceeded):
			outcome = observability.OutcomeTimeout
		}
		span.RecordError(result.err)
		observability.RecordCarrierCall(ctx, name, outcome, elapsed, 0)
		s.log.WarnContext(ctx, "Carrier quote failed", "outcome", outcome, "duration_ms", elapsed.Milliseconds(), "error", result.err)
		return nil
	}

	usable := make([]domain.Quote, 0, len(result.quotes))
	for _, quote := range result.quotes {
		if quote.Usable() {
			usable = append(usable, quote)
		}
	}
	outcome := observability.OutcomeQuoted
	if len(usable) == 0 {
		outcome = observability.OutcomeEmpty
	}
	span.SetQuoteCount(len(usable))
	observability.RecordCarrierCall(ctx, name, outcome, elapsed, len(usable))
	s.log.DebugContext(ctx, "Carrier quoted", "quotes", len(usable), "discarded", len(result.quotes)-len(usable), "duration_ms", elapsed.Milliseconds())
	return usable
}

func carrierName(carrier ports.Carrier) (name string) {
	defer func() {
		if recover() != nil {
			name = "unknown"
		}
	}()
	return carrier.Name()
}

func (s *QuoteService) publish(ctx context.Context, requestID string, shipment domain.Shipment, quotes []domain.Quote) {
	if s.cfg.Publisher == nil {
		return
	}
	event := ports.QuoteComputedEvent{
		RequestID: requestID,
		Shipment:  shipment,
		Quotes:    append([]domain.Quote(nil), quotes...),
	}
	go func() {
		publishCtx, cancel := context.WithTimeout(ctx, s.cfg.PublishTimeout)
		defer cancel()
		if err := s.cfg.Publisher.PublishQuoteComputed(publishCtx, event); err != nil {
			s.log.WarnContext(publishCtx, "Failed to publish quote event", "error", err)
		}
	}()
}
