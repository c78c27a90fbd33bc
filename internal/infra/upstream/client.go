package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"rentdetail/internal/domain/listings"
	"rentdetail/internal/infra/feed"
)

var ErrStatus = errors.New("upstream: unexpected status")

// Client fetches the listing collection from a remote catalog endpoint.
type Client struct {
	HTTP     *http.Client
	Endpoint string
	Logger   *slog.Logger

	decoder *feed.Decoder
}

func NewClient(endpoint string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		HTTP:     &http.Client{Timeout: timeout},
		Endpoint: strings.TrimSpace(endpoint),
		Logger:   logger,
		decoder:  feed.NewDecoder(logger),
	}
}

func (c *Client) All(ctx context.Context) ([]listings.Listing, error) {
	if c == nil || c.HTTP == nil {
		return nil, errors.New("upstream: http client not configured")
	}
	if c.Endpoint == "" {
		return nil, errors.New("upstream: endpoint not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		c.logError("upstream listings request failed", err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("%w %d: %s", ErrStatus, resp.StatusCode, strings.TrimSpace(string(snippet)))
		c.logError("upstream listings returned error", err)
		return nil, err
	}

	decoder := c.decoder
	if decoder == nil {
		decoder = feed.NewDecoder(c.Logger)
	}
	items, err := decoder.Decode(resp.Body)
	if err != nil {
		c.logError("upstream listings decode failed", err)
		return nil, err
	}
	return items, nil
}

func (c *Client) logError(msg string, err error) {
	if c.Logger == nil {
		return
	}
	c.Logger.Error(msg, "endpoint", c.Endpoint, "error", err)
}

var _ listings.Source = (*Client)(nil)
