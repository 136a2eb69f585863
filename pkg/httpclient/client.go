package httpclient

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Config controls timeouts and retry behaviour for the client.
type Config struct {
	Timeout         time.Duration
	RetryMaxElapsed time.Duration
	MaxIdleConns    int
	IdleConnTimeout time.Duration
}

// Client wraps net/http with exponential-backoff retries for transient failures.
type Client struct {
	http *http.Client
	cfg  Config
}

// New builds a retrying HTTP client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RetryMaxElapsed <= 0 {
		cfg.RetryMaxElapsed = 30 * time.Second
	}

	tr := &http.Transport{
		DialContext:     (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		MaxIdleConns:    cfg.MaxIdleConns,
		IdleConnTimeout: cfg.IdleConnTimeout,
	}

	return &Client{
		http: &http.Client{Transport: tr, Timeout: cfg.Timeout},
		cfg:  cfg,
	}
}

// Do executes the request, retrying transport errors and 5xx responses with
// exponential backoff until the configured elapsed budget runs out.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	var resp *http.Response

	operation := func() error {
		r, err := c.http.Do(req.WithContext(ctx))
		if err != nil {
			return err
		}

		if r.StatusCode >= http.StatusInternalServerError {
			// Drain and close so the connection can be reused for the retry.
			_, _ = io.Copy(io.Discard, r.Body)
			_ = r.Body.Close()
			return fmt.Errorf("upstream returned status %d", r.StatusCode)
		}

		resp = r
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = c.cfg.RetryMaxElapsed

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return resp, nil
}
