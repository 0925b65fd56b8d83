package chat

import (
	"context"
	"fmt"
	"time"

	drepo "SignalDesk/internal/domain/repository"
	xhttp "SignalDesk/pkg/http"
)

// Client implements NotificationChannel against a chat-bot HTTP API. It is
// constructed once and injected; nothing in the engine reaches for a shared
// bot handle.
type Client struct {
	baseURL string
	http    *xhttp.Client
}

// New creates a chat channel client.
func New(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http: xhttp.NewClient(
			xhttp.WithTimeout(timeout),
			xhttp.WithHeader("Authorization", "Bearer "+token),
		),
	}
}

type message struct {
	Recipient string   `json:"recipient"`
	Ref       string   `json:"ref,omitempty"` // signal id doubles as the message reference
	Text      string   `json:"text"`
	Buttons   []string `json:"buttons,omitempty"`
}

// Deliver sends a rendered signal with its action buttons.
func (c *Client) Deliver(ctx context.Context, recipient string, msg drepo.SignalMessage) error {
	return c.post(ctx, "/bot/send", buildMessage(recipient, msg))
}

// Update edits the outstanding delivery for the signal, replacing its
// buttons. Used to disable actions while an order placement is in flight.
func (c *Client) Update(ctx context.Context, recipient string, msg drepo.SignalMessage) error {
	return c.post(ctx, "/bot/edit", buildMessage(recipient, msg))
}

// Notify sends a plain text message with no buttons.
func (c *Client) Notify(ctx context.Context, recipient, text string) error {
	return c.post(ctx, "/bot/send", message{Recipient: recipient, Text: text})
}

func (c *Client) post(ctx context.Context, path string, body message) error {
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.baseURL + path,
		Body:   body,
	}, nil)
	if err != nil {
		return fmt.Errorf("chat %s: %w", path, err)
	}
	return nil
}

func buildMessage(recipient string, msg drepo.SignalMessage) message {
	m := message{Recipient: recipient, Text: msg.Text}
	if msg.Signal != nil {
		m.Ref = msg.Signal.ID
	}
	for _, a := range msg.Actions {
		m.Buttons = append(m.Buttons, string(a))
	}
	return m
}
