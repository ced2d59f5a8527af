package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/app/domain"
	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/app/ports"
	portmocks "github.com/MercadinhoDaBisa/pajucara-middleware/internal/app/ports/mocks"
	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/carriers/fixed"
	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/config"
	"github.com/MercadinhoDaBisa/pajucara-middleware/internal/webhooks/yampi"
)

const testSecret = "yampi-test-secret"

func signedCommand(t *testing.T, body string) QuoteCommand {
	t.Helper()
	signature, err := yampi.Sign([]byte(body), testSecret)
	require.NoError(t, err)
	return QuoteCommand{Signature: signature, Body: []byte(body), RequestID: "req-1"}
}

func namedCarrier(t *testing.T, name string) *portmocks.MockCarrier {
	carrier := portmocks.NewMockCarrier(t)
	carrier.EXPECT().Name().Return(name).Maybe()
	return carrier
}

func quote(name string, price string) domain.Quote {
	return domain.Quote{Name: name, Service: name, Price: decimal.RequireFromString(price), Days: 3, QuoteID: name + "-id"}
}

func newTestService(carriers []ports.Carrier, cfg QuoteServiceConfig) *QuoteService {
	return NewQuoteService(nil, yampi.NewVerifier(testSecret), carriers, cfg)
}

const validOrder = `{"zipcode":"01310-100","amount":120.5,"skus":[{"weight":1,"quantity":2,"length":10,"width":10,"height":10}]}`

func TestClassifyQuoteError(t *testing.T) {
	cases := []struct {
		err  error
		want QuoteErrorKind
	}{
		{nil, QuoteErrorUnknown},
		{yampi.ErrMissingSecret, QuoteErrorMissingSecret},
		{yampi.ErrMissingSignature, QuoteErrorMissingSignature},
		{yampi.ErrInvalidSignature, QuoteErrorInvalidSignature},
		{fmt.Errorf("%w: bad", yampi.ErrInvalidPayload), QuoteErrorInvalidPayload},
		{errors.Join(domain.ErrMalformedOrder, errors.New("eof")), QuoteErrorInvalidPayload},
		{errors.New("boom"), QuoteErrorUnknown},
	}
	for _, tc := range cases {
		if got := ClassifyQuoteError(tc.err); got != tc.want {
			t.Fatalf("ClassifyQuoteError(%v): got=%s want=%s", tc.err, got, tc.want)
		}
	}
}

func TestQuoteRejectsBeforeCallingCarriers(t *testing.T) {
	carrier := namedCarrier(t, "a")
	svc := newTestService([]ports.Carrier{carrier}, QuoteServiceConfig{})

	_, err := svc.Quote(context.Background(), QuoteCommand{Body: []byte(validOrder)})
	assert.Equal(t, QuoteErrorMissingSignature, ClassifyQuoteError(err))

	_, err = svc.Quote(context.Background(), QuoteCommand{Signature: "bogus", Body: []byte(validOrder)})
	assert.Equal(t, QuoteErrorInvalidSignature, ClassifyQuoteError(err))

	unconfigured := NewQuoteService(nil, yampi.NewVerifier(""), []ports.Carrier{carrier}, QuoteServiceConfig{})
	_, err = unconfigured.Quote(context.Background(), signedCommand(t, validOrder))
	assert.Equal(t, QuoteErrorMissingSecret, ClassifyQuoteError(err))

	carrier.AssertNotCalled(t, "Quote", mock.Anything, mock.Anything)
}

func TestQuoteRejectsNonObjectPayload(t *testing.T) {
	svc := newTestService(nil, QuoteServiceConfig{})

	_, err := svc.Quote(context.Background(), signedCommand(t, `[1,2,3]`))
	assert.Equal(t, QuoteErrorInvalidPayload, ClassifyQuoteError(err))

	_, err = svc.Quote(context.Background(), QuoteCommand{Signature: "x", Body: []byte(`{"zipcode":`)})
	assert.Equal(t, QuoteErrorInvalidPayload, ClassifyQuoteError(err))
}

func TestQuoteEmptyItemsNoUsablePrice(t *testing.T) {
	zero := namedCarrier(t, "zero")
	zero.EXPECT().Quote(mock.Anything, mock.Anything).RunAndReturn(func(_ context.Context, shipment domain.Shipment) ([]domain.Quote, error) {
		assert.True(t, shipment.Totals.Weight.IsZero())
		assert.Equal(t, 0, shipment.Totals.Count)
		return []domain.Quote{quote("zero", "0")}, nil
	})
	empty := namedCarrier(t, "empty")
	empty.EXPECT().Quote(mock.Anything, mock.Anything).Return(nil, nil)

	svc := newTestService([]ports.Carrier{zero, empty}, QuoteServiceConfig{})
	resp, err := svc.Quote(context.Background(), signedCommand(t, `{"zipcode":"57020050","skus":[]}`))
	require.NoError(t, err)
	require.NotNil(t, resp.Quotes)
	assert.Empty(t, resp.Quotes)
}

func TestQuoteIsolatesFailingCarriers(t *testing.T) {
	slow := namedCarrier(t, "slow")
	slow.EXPECT().Quote(mock.Anything, mock.Anything).RunAndReturn(func(ctx context.Context, _ domain.Shipment) ([]domain.Quote, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	broken := namedCarrier(t, "broken")
	broken.EXPECT().Quote(mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))
	panicky := namedCarrier(t, "panicky")
	panicky.EXPECT().Quote(mock.Anything, mock.Anything).RunAndReturn(func(context.Context, domain.Shipment) ([]domain.Quote, error) {
		panic("nil map")
	})
	good := namedCarrier(t, "good")
	good.EXPECT().Quote(mock.Anything, mock.Anything).Return([]domain.Quote{quote("good", "25.00")}, nil)

	svc := newTestService([]ports.Carrier{slow, broken, panicky, good}, QuoteServiceConfig{CarrierTimeout: 50 * time.Millisecond})
	resp, err := svc.Quote(context.Background(), signedCommand(t, validOrder))
	require.NoError(t, err)
	require.Len(t, resp.Quotes, 1)
	assert.Equal(t, "good", resp.Quotes[0].Name)
}

func TestQuoteBoundsCarrierIgnoringContext(t *testing.T) {
	release := make(chan struct{})
	stuck := namedCarrier(t, "stuck")
	stuck.EXPECT().Quote(mock.Anything, mock.Anything).RunAndReturn(func(context.Context, domain.Shipment) ([]domain.Quote, error) {
		<-release
		return []domain.Quote{quote("late", "10")}, nil
	})
	t.Cleanup(func() { close(release) })

	svc := newTestService([]ports.Carrier{stuck}, QuoteServiceConfig{CarrierTimeout: 30 * time.Millisecond})
	start := time.Now()
	resp, err := svc.Quote(context.Background(), signedCommand(t, validOrder))
	require.NoError(t, err)
	assert.Empty(t, resp.Quotes)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestQuoteKeepsRegistrationOrder(t *testing.T) {
	first := namedCarrier(t, "first")
	first.EXPECT().Quote(mock.Anything, mock.Anything).RunAndReturn(func(context.Context, domain.Shipment) ([]domain.Quote, error) {
		time.Sleep(30 * time.Millisecond)
		return []domain.Quote{quote("first-a", "10"), quote("first-b", "-1"), quote("first-c", "11")}, nil
	})
	second := namedCarrier(t, "second")
	second.EXPECT().Quote(mock.Anything, mock.Anything).Return([]domain.Quote{quote("second", "5")}, nil)

	svc := newTestService([]ports.Carrier{first, second}, QuoteServiceConfig{})
	resp, err := svc.Quote(context.Background(), signedCommand(t, validOrder))
	require.NoError(t, err)

	names := make([]string, 0, len(resp.Quotes))
	for _, q := range resp.Quotes {
		names = append(names, q.Name)
	}
	assert.Equal(t, []string{"first-a", "first-c", "second"}, names)
}

func TestQuoteSkipsCarriersWithoutDestination(t *testing.T) {
	carrier := namedCarrier(t, "a")
	svc := newTestService([]ports.Carrier{carrier}, QuoteServiceConfig{})

	resp, err := svc.Quote(context.Background(), signedCommand(t, `{"zipcode":"","amount":10}`))
	require.NoError(t, err)
	assert.Empty(t, resp.Quotes)
	carrier.AssertNotCalled(t, "Quote", mock.Anything, mock.Anything)
}

func TestQuoteWithoutDestinationStillServesFixedQuotes(t *testing.T) {
	remote := namedCarrier(t, "remote")
	static := fixed.New(config.DefaultFixedQuotes())
	svc := newTestService([]ports.Carrier{remote, static}, QuoteServiceConfig{})

	for _, body := range []string{`{}`, `{"zipcode":"","skus":[]}`} {
		resp, err := svc.Quote(context.Background(), signedCommand(t, body))
		require.NoError(t, err)
		require.Len(t, resp.Quotes, 2)
		assert.Equal(t, "pajucara_teste_rodoviario_fixo", resp.Quotes[0].QuoteID)
		assert.Equal(t, "pajucara_teste_aereo_fixo", resp.Quotes[1].QuoteID)
	}
	remote.AssertNotCalled(t, "Quote", mock.Anything, mock.Anything)
}

func TestQuoteNormalizesShipment(t *testing.T) {
	carrier := namedCarrier(t, "a")
	carrier.EXPECT().Quote(mock.Anything, mock.Anything).RunAndReturn(func(_ context.Context, shipment domain.Shipment) ([]domain.Quote, error) {
		assert.Equal(t, "01310100", shipment.DestinationZipcode)
		assert.Equal(t, "99999999999", shipment.RecipientDocument)
		assert.True(t, shipment.DeclaredValue.Equal(decimal.RequireFromString("120.5")))
		assert.True(t, shipment.Totals.Weight.Equal(decimal.NewFromInt(2)))
		assert.True(t, shipment.Totals.Volume.Equal(decimal.RequireFromString("0.002")))
		return nil, nil
	})

	svc := newTestService([]ports.Carrier{carrier}, QuoteServiceConfig{PlaceholderDocument: "999.999.999-99"})
	_, err := svc.Quote(context.Background(), signedCommand(t, validOrder))
	require.NoError(t, err)
}

func TestQuoteIsIdempotent(t *testing.T) {
	carrier := namedCarrier(t, "a")
	carrier.EXPECT().Quote(mock.Anything, mock.Anything).Return([]domain.Quote{quote("a", "19.9")}, nil).Times(2)

	svc := newTestService([]ports.Carrier{carrier}, QuoteServiceConfig{})
	cmd := signedCommand(t, validOrder)

	first, err := svc.Quote(context.Background(), cmd)
	require.NoError(t, err)
	second, err := svc.Quote(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	first.Quotes[0].Name = "mutated"
	assert.Equal(t, "a", second.Quotes[0].Name)
}

func TestQuoteCoalescesConcurrentDuplicates(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32

	carrier := namedCarrier(t, "a")
	carrier.EXPECT().Quote(mock.Anything, mock.Anything).RunAndReturn(func(context.Context, domain.Shipment) ([]domain.Quote, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return []domain.Quote{quote("a", "10")}, nil
	})

	svc := newTestService([]ports.Carrier{carrier}, QuoteServiceConfig{})
	cmd := signedCommand(t, validOrder)

	var wg sync.WaitGroup
	responses := make([]domain.QuoteResponse, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		responses[0], _ = svc.Quote(context.Background(), cmd)
	}()
	<-started
	wg.Add(1)
	go func() {
		defer wg.Done()
		responses[1], _ = svc.Quote(context.Background(), cmd)
	}()
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Len(t, responses[0].Quotes, 1)
	assert.Equal(t, responses[0], responses[1])
}

type recordingPublisher struct {
	events chan ports.QuoteComputedEvent
}

func (p *recordingPublisher) PublishQuoteComputed(_ context.Context, event ports.QuoteComputedEvent) error {
	p.events <- event
	return errors.New("sink unavailable")
}

func TestQuotePublishesComputedEvent(t *testing.T) {
	carrier := namedCarrier(t, "a")
	carrier.EXPECT().Quote(mock.Anything, mock.Anything).Return([]domain.Quote{quote("a", "10")}, nil)
	publisher := &recordingPublisher{events: make(chan ports.QuoteComputedEvent, 1)}

	svc := newTestService([]ports.Carrier{carrier}, QuoteServiceConfig{Publisher: publisher})
	resp, err := svc.Quote(context.Background(), signedCommand(t, validOrder))
	require.NoError(t, err)
	require.Len(t, resp.Quotes, 1)

	select {
	case event := <-publisher.events:
		assert.Equal(t, "req-1", event.RequestID)
		assert.Equal(t, "01310100", event.Shipment.DestinationZipcode)
		assert.Len(t, event.Quotes, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("expected quote event to be published")
	}
}
