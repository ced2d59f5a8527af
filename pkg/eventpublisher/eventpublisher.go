// Package eventpublisher announces computed freight quotes as CloudEvents
// delivered over HTTP in binary content mode.
package eventpublisher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	cebinding "github.com/cloudevents/sdk-go/v2/binding"
	ceevent "github.com/cloudevents/sdk-go/v2/event"
	cehttp "github.com/cloudevents/sdk-go/v2/protocol/http"
	"github.com/google/uuid"
)

const (
	// QuoteComputedType is the CloudEvents type of a finished quote request.
	QuoteComputedType = "br.com.pajucara.quote.computed"
	// DefaultSource is used when Client.Source is empty.
	DefaultSource = "pajucara-middleware/cotacao"

	requestIDExtension = "requestid"
)

// ErrMissingEndpoint indicates the client has nowhere to deliver events.
var ErrMissingEndpoint = errors.New("event endpoint is required")

type Client struct {
	Endpoint   string
	Token      string
	Source     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// QuoteComputed is the event data.
type QuoteComputed struct {
	RequestID   string  `json:"-"`
	Destination string  `json:"destination"`
	Count       int     `json:"count"`
	Weight      string  `json:"weight"`
	Volume      string  `json:"volume"`
	Quotes      []Quote `json:"quotes"`
}

type Quote struct {
	Name    string `json:"name"`
	Service string `json:"service"`
	Price   string `json:"price"`
	Days    int    `json:"days"`
	QuoteID string `json:"quote_id"`
}

// Publish delivers one quote.computed event and returns its id.
func (c Client) Publish(ctx context.Context, payload QuoteComputed) (string, error) {
	event, err := BuildEvent(payload, c.Source)
	if err != nil {
		return "", err
	}
	if err := c.send(ctx, &event); err != nil {
		return "", err
	}
	return event.ID(), nil
}

// BuildEvent wraps payload in a CloudEvent.
func BuildEvent(payload QuoteComputed, source string) (ceevent.Event, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		source = DefaultSource
	}
	if payload.Quotes == nil {
		payload.Quotes = []Quote{}
	}

	event := ceevent.New()
	event.SetID(uuid.NewString())
	event.SetType(QuoteComputedType)
	event.SetSource(source)
	event.SetTime(time.Now().UTC())
	if destination := strings.TrimSpace(payload.Destination); destination != "" {
		event.SetSubject(destination)
	}
	if requestID := strings.TrimSpace(payload.RequestID); requestID != "" {
		event.SetExtension(requestIDExtension, requestID)
	}
	if err := event.SetData(ceevent.ApplicationJSON, payload); err != nil {
		return ceevent.Event{}, fmt.Errorf("encode event data: %w", err)
	}
	if err := event.Validate(); err != nil {
		return ceevent.Event{}, fmt.Errorf("invalid event: %w", err)
	}
	return event, nil
}

func (c Client) send(ctx context.Context, event *ceevent.Event) error {
	endpoint := strings.TrimSpace(c.Endpoint)
	if endpoint == "" {
		return ErrMissingEndpoint
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		timeout := c.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if err := cehttp.WriteRequest(ctx, cebinding.ToMessage(event), req); err != nil {
		return fmt.Errorf("encode cloudevent: %w", err)
	}
	if token := strings.TrimSpace(c.Token); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("event sink rejected: status=%s body=%s", resp.Status, strings.TrimSpace(string(payload)))
	}
	return nil
}
