// Package converter talks to the external service that turns raw motion
// recordings into glTF scenes.
package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/carelink-api/pkg/circuitbreaker"
)

type Config struct {
	URL     string
	Path    string
	Timeout time.Duration
	// MaxFailures consecutive transport or 5xx failures stop calls for
	// BreakerTimeout.
	MaxFailures    int
	BreakerTimeout time.Duration
}

// StatusError is returned when the converter answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("converter returned status %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	httpClient *resty.Client
	path       string
	breaker    *circuitbreaker.CircuitBreaker
}

func NewClient(cfg Config) *Client {
	client := resty.New().
		SetBaseURL(cfg.URL).
		SetHeader("Accept", "application/octet-stream")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	path := cfg.Path
	if path == "" {
		path = "/convert"
	}

	return &Client{
		httpClient: client,
		path:       path,
		breaker: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "converter",
			MaxFailures: cfg.MaxFailures,
			Timeout:     cfg.BreakerTimeout,
		}),
	}
}

// Convert uploads the raw recording as multipart field "file" and returns
// the converted bytes. There is no retry. A 4xx answer rejects the file and
// does not count against the breaker.
func (c *Client) Convert(ctx context.Context, filename string, data []byte) ([]byte, error) {
	var resp *resty.Response
	var rejected *StatusError

	err := c.breaker.Execute(func() error {
		var err error
		resp, err = c.httpClient.R().
			SetContext(ctx).
			SetFileReader("file", filename, bytes.NewReader(data)).
			Post(c.path)
		if err != nil {
			return fmt.Errorf("failed to call converter: %w", err)
		}
		if !resp.IsError() {
			return nil
		}

		body := resp.String()
		if len(body) > 512 {
			body = body[:512]
		}
		log.Warn().
			Int("status_code", resp.StatusCode()).
			Str("file", filename).
			Msg("Converter rejected file")

		statusErr := &StatusError{StatusCode: resp.StatusCode(), Body: body}
		if resp.StatusCode() < 500 {
			rejected = statusErr
			return nil
		}
		return statusErr
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrOpen) {
			log.Warn().Str("file", filename).Msg("Converter circuit open")
		}
		return nil, err
	}
	if rejected != nil {
		return nil, rejected
	}

	log.Debug().
		Str("file", filename).
		Int("in_bytes", len(data)).
		Int("out_bytes", len(resp.Body())).
		Dur("duration", resp.Time()).
		Msg("Converted file")

	return resp.Body(), nil
}
