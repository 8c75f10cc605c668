// Package notify sends operator notifications about process lifecycle events.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

var (
	ErrRateLimited = errors.New("notification rate limited")
	ErrRejected    = errors.New("notification rejected")
)

type Notifier interface {
	Notify(ctx context.Context, subject, message string) error
}

// Log writes notifications to the logger. Used when no webhook is configured.
type Log struct {
	Logger *slog.Logger
}

func (l Log) Notify(ctx context.Context, subject, message string) error {
	l.Logger.WarnContext(ctx, "operator notification", "subject", subject, "message", message)
	return nil
}

type WebhookOptions struct {
	// RetryMax is the number of retries after the first attempt.
	RetryMax int
	// RetryWait is the fixed wait between attempts.
	RetryWait time.Duration
	// Rate and Burst bound how many notifications leave the process.
	Rate  rate.Limit
	Burst int
}

func (o WebhookOptions) withDefaults() WebhookOptions {
	if o.RetryWait <= 0 {
		o.RetryWait = 500 * time.Millisecond
	}
	if o.Rate == 0 {
		o.Rate = rate.Every(time.Second)
	}
	if o.Burst <= 0 {
		o.Burst = 5
	}
	return o
}

// Webhook posts notifications as JSON to a URL.
type Webhook struct {
	url     string
	client  *retryablehttp.Client
	limiter *rate.Limiter
}

type payload struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func NewWebhook(url string, logger *slog.Logger, opts WebhookOptions) *Webhook {
	opts = opts.withDefaults()

	client := retryablehttp.NewClient()
	client.RetryMax = opts.RetryMax
	client.Backoff = func(min, max time.Duration, attemptNum int, resp *http.Response) time.Duration {
		return opts.RetryWait
	}
	client.Logger = logger

	return &Webhook{
		url:     url,
		client:  client,
		limiter: rate.NewLimiter(opts.Rate, opts.Burst),
	}
}

func (w *Webhook) Notify(ctx context.Context, subject, message string) error {
	if !w.limiter.Allow() {
		return ErrRateLimited
	}

	body, err := json.Marshal(payload{Subject: subject, Message: message})
	if err != nil {
		return errors.Wrap(err, "encoding notification")
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "building notification request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Close = true

	resp, err := w.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "posting notification")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return errors.Wrapf(ErrRejected, "webhook answered %s", resp.Status)
	}
	return nil
}
