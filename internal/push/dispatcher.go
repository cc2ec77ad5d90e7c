// Package push delivers out-of-band device notifications when the receiver
// has no active connection. Dispatch is fire-and-forget: the message is
// already durably stored by the time this runs, and the delivery engine
// never learns about push failures.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"messenger-service/internal/models"
	"messenger-service/internal/observability"
)

const (
	// DefaultEndpoint is the Expo push gateway.
	DefaultEndpoint = "https://exp.host/--/api/v2/push/send"

	// maxBatchSize is the provider's recommended batch limit per request.
	maxBatchSize = 100

	// maxBodyLength truncates notification bodies; longer texts are cut to
	// 77 runes plus an ellipsis.
	maxBodyLength = 80
)

// Notification is one entry of the provider's batch payload.
type Notification struct {
	To    string            `json:"to"`
	Sound string            `json:"sound"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Dispatcher posts notification batches to the push provider.
type Dispatcher struct {
	endpoint string
	client   *http.Client
}

// NewDispatcher builds a Dispatcher for the given provider endpoint.
func NewDispatcher(endpoint string) *Dispatcher {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Dispatcher{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify fans the notification out to the receiver's registered tokens in
// batches. Dispatch is gated on the receiver's notification preferences. A
// failed batch is logged and the remaining batches are still attempted.
func (d *Dispatcher) Notify(ctx context.Context, receiver models.User, title, body string, data map[string]string) {
	if !receiver.PushNotifications || !receiver.MessageNotifications {
		return
	}
	if len(receiver.PushTokens) == 0 {
		return
	}

	body = truncateBody(body)

	tokens := receiver.PushTokens
	for start := 0; start < len(tokens); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(tokens) {
			end = len(tokens)
		}

		batch := make([]Notification, 0, end-start)
		for _, token := range tokens[start:end] {
			batch = append(batch, Notification{
				To:    token,
				Sound: "default",
				Title: title,
				Body:  body,
				Data:  data,
			})
		}

		if err := d.send(ctx, batch); err != nil {
			observability.IncPushBatch("error")
			log.Printf("push: batch of %d tokens for user %s failed: %v", len(batch), receiver.ID, err)
			continue
		}
		observability.IncPushBatch("ok")
	}
}

func (d *Dispatcher) send(ctx context.Context, batch []Notification) error {
	payload, err := json.Marshal(batch)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{code: resp.StatusCode, body: string(text)}
	}
	return nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return "push provider returned " + http.StatusText(e.code) + ": " + e.body
}

func truncateBody(body string) string {
	runes := []rune(body)
	if len(runes) <= maxBodyLength {
		return body
	}
	return string(runes[:maxBodyLength-3]) + "..."
}
