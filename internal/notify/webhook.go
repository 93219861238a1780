// Package notify delivers the approval webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/hugh/go-referral/internal/database/models"
	"github.com/hugh/go-referral/internal/metrics"
)

// Payload is the JSON body posted when an account is approved.
type Payload struct {
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	PhoneNumber        string `json:"phone_number"`
	UserID             string `json:"user_id"`
	UserLogin          string `json:"user_login"`
	InviteCode         string `json:"invite_code"`
	InviterPhoneNumber string `json:"inviter_phone_number"`
	InviterUserID      string `json:"inviter_user_id"`
	InviterUserLogin   string `json:"inviter_user_login,omitempty"`
	ApprovedRole       string `json:"approved_role"`
}

// NewPayload builds the body for an approved account. inviter may be nil.
func NewPayload(account *models.Account, inviter *models.Account) Payload {
	p := Payload{
		FirstName:    account.FirstName,
		LastName:     account.LastName,
		PhoneNumber:  account.Phone,
		UserID:       account.ID.String(),
		UserLogin:    account.Login,
		InviteCode:   account.InvitedBy,
		ApprovedRole: string(account.Role),
	}
	if inviter != nil {
		p.InviterPhoneNumber = inviter.Phone
		p.InviterUserID = inviter.ID.String()
		p.InviterUserLogin = inviter.Login
	}
	return p
}

// Dispatcher hands a payload off for delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, p Payload) error
}

type Client struct {
	url      string
	http     *http.Client
	attempts uint
	delay    time.Duration
}

type ClientConfig struct {
	URL      string
	Timeout  time.Duration
	Attempts int
	// Delay is the initial backoff between attempts.
	Delay time.Duration
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.Delay <= 0 {
		cfg.Delay = 500 * time.Millisecond
	}
	return &Client{
		url:      cfg.URL,
		http:     &http.Client{Timeout: cfg.Timeout},
		attempts: uint(cfg.Attempts),
		delay:    cfg.Delay,
	}
}

// Send posts p, retrying transport errors and 5xx responses. A 4xx response
// is final.
func (c *Client) Send(ctx context.Context, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	err = retry.Do(
		func() error {
			return c.post(ctx, body)
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		metrics.WebhookDeliveries.WithLabelValues("failed").Inc()
		return err
	}
	metrics.WebhookDeliveries.WithLabelValues("delivered").Inc()
	return nil
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return retry.Unrecoverable(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return retry.Unrecoverable(fmt.Errorf("webhook responded %d", resp.StatusCode))
	}
	return nil
}

// Inline delivers in a background goroutine. Used when no job queue is
// configured.
type Inline struct {
	client *Client
	logger *slog.Logger
}

func NewInline(client *Client, logger *slog.Logger) *Inline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inline{client: client, logger: logger}
}

func (d *Inline) Dispatch(_ context.Context, p Payload) error {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := d.client.Send(ctx, p); err != nil {
			d.logger.Warn("approval webhook failed", "user_id", p.UserID, "error", err)
		}
	}()
	return nil
}

// Discard drops payloads. Used when no webhook URL is configured.
type Discard struct{}

func (Discard) Dispatch(context.Context, Payload) error { return nil }
