// Package upstox provides a thin client for the Upstox v2 REST API,
// covering the option-chain and market-quote endpoints the tracker needs.
package upstox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"upstox-chainwatch/internal/errors"
	"upstox-chainwatch/internal/models"
	"upstox-chainwatch/pkg/utils"
)

// DefaultBaseURL is the production Upstox API root.
const DefaultBaseURL = "https://api.upstox.com/v2"

// VIXKey is the instrument key of the India VIX index quote.
const VIXKey models.InstrumentKey = "NSE_INDEX|India VIX"

// Config holds client configuration.
type Config struct {
	AccessToken string
	BaseURL     string
	Timeout     time.Duration
	Retry       utils.RetryConfig
}

// Client talks to the Upstox REST API. All calls carry a fixed timeout;
// failures surface as FetchError (transport) or UpstreamError (bad status
// or payload) and are expected to be absorbed by the calling refresh loop.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
	retry   utils.RetryConfig
	logger  zerolog.Logger
}

// NewClient creates a new API client.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = utils.RetryConfig{MaxAttempts: 1}
	}
	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		token:   cfg.AccessToken,
		retry:   cfg.Retry,
		logger:  logger.With().Str("component", "upstox").Logger(),
	}
}

// Authenticated reports whether the client holds an access token.
func (c *Client) Authenticated() bool {
	return c.token != ""
}

// GetOptionChain fetches the full option chain for an underlying and
// expiry. An empty slice with a nil error means upstream had no rows; the
// caller decides whether that is a no-data condition.
func (c *Client) GetOptionChain(ctx context.Context, key models.InstrumentKey, expiry string) ([]ChainRow, error) {
	q := url.Values{}
	q.Set("instrument_key", string(key))
	q.Set("expiry_date", expiry)

	var resp chainResponse
	if err := c.getJSON(ctx, "/option/chain", q, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "success" {
		return nil, errors.NewUpstreamError("/option/chain", resp.Status, string(key))
	}
	return resp.Data, nil
}

// GetQuotes fetches full quotes for a batch of instruments in one call.
// The returned map is keyed by the request keys as echoed by upstream;
// consumers should index cache entries by Quote.InstrumentToken.
func (c *Client) GetQuotes(ctx context.Context, keys []models.InstrumentKey) (map[string]Quote, error) {
	joined := make([]string, len(keys))
	for i, k := range keys {
		joined[i] = string(k)
	}
	q := url.Values{}
	q.Set("instrument_key", strings.Join(joined, ","))

	var resp quoteResponse
	if err := c.getJSON(ctx, "/market-quote/quotes", q, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "success" {
		return nil, errors.NewUpstreamError("/market-quote/quotes", resp.Status, "")
	}
	return resp.Data, nil
}

// GetQuote fetches a single instrument's quote.
func (c *Client) GetQuote(ctx context.Context, key models.InstrumentKey) (Quote, error) {
	data, err := c.GetQuotes(ctx, []models.InstrumentKey{key})
	if err != nil {
		return Quote{}, err
	}
	for _, q := range data {
		if q.InstrumentToken == string(key) {
			return q, nil
		}
	}
	// Upstream keys the response by a normalized form of the request key;
	// with a single instrument any entry is ours.
	for _, q := range data {
		return q, nil
	}
	return Quote{}, errors.ErrNoData
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	if !c.Authenticated() {
		return errors.ErrNotAuthenticated
	}
	endpoint := c.baseURL + path + "?" + query.Encode()

	start := time.Now()
	_, err := utils.RetryWithResult(ctx, c.retry, func() (struct{}, error) {
		return struct{}{}, c.doOnce(ctx, path, endpoint, out)
	})
	c.logger.Debug().
		Str("path", path).
		Dur("duration", time.Since(start)).
		Err(err).
		Msg("API call")
	return err
}

func (c *Client) doOnce(ctx context.Context, path, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.NewFetchError(path, "", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return errors.NewFetchError(path, "", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return errors.NewFetchError(path, "", err)
	}
	if res.StatusCode != http.StatusOK {
		return errors.NewUpstreamError(path, fmt.Sprintf("http %d", res.StatusCode), truncate(body, 200))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.NewUpstreamError(path, "malformed", err.Error())
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
