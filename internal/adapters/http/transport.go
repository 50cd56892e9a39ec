// Package http implements ports.Transport over net/http.
package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bft-labs/platoon/internal/domain"
	"github.com/bft-labs/platoon/internal/ports"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 1 << 20

// TransportConfig holds the static request settings.
type TransportConfig struct {
	BaseURL     string
	AccessToken string
	UserAgent   string
}

// Transport implements ports.Transport using an HTTPClient.
type Transport struct {
	client ports.HTTPClient
	config TransportConfig
	logger ports.Logger
}

// NewTransport creates a transport posting to cfg.BaseURL.
// A trailing slash on the base URL is ignored.
func NewTransport(client ports.HTTPClient, cfg TransportConfig, logger ports.Logger) *Transport {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Transport{
		client: client,
		config: cfg,
		logger: logger,
	}
}

// Post sends body to path and blocks until the response has been read.
func (t *Transport) Post(ctx context.Context, path string, body []byte) domain.Outcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return domain.TransportFailure(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("X-API-KEY", t.config.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	if t.config.UserAgent != "" {
		req.Header.Set("User-Agent", t.config.UserAgent)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return domain.TransportFailure(fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return domain.TransportFailure(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode/100 != 2 {
		return domain.ProtocolFailure(resp.StatusCode, respBody)
	}

	t.logger.Debug("request completed",
		ports.String("path", path),
		ports.Int("status", resp.StatusCode),
		ports.Int("bytes", len(body)),
	)
	return domain.Success(resp.StatusCode, respBody)
}

// PostAsync runs Post on a new goroutine and hands the outcome to done.
func (t *Transport) PostAsync(ctx context.Context, path string, body []byte, done func(domain.Outcome)) {
	go func() {
		done(t.Post(ctx, path, body))
	}()
}

var _ ports.Transport = (*Transport)(nil)
