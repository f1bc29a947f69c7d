package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gojek/heimdall/v7"
	"github.com/gojek/heimdall/v7/httpclient"

	"tournament/internal/pkg/caching"
)

const (
	DefaultURL = "https://tonapi.io/v2/rates?tokens=ton&currencies=usd"
	CacheTTL   = time.Minute
)

type Config struct {
	URL        string
	Token      string
	Currency   string
	Timeout    time.Duration
	RetryCount int
}

// Client fetches the TON price in the display currency.
type Client struct {
	http     *httpclient.Client
	cache    caching.Cache
	url      string
	token    string
	currency string
}

func NewClient(cfg Config, cache caching.Cache) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	backoff := heimdall.NewConstantBackoff(200*time.Millisecond, 100*time.Millisecond)
	client := httpclient.NewClient(
		httpclient.WithHTTPTimeout(cfg.Timeout),
		httpclient.WithRetryCount(cfg.RetryCount),
		httpclient.WithRetrier(heimdall.NewRetrier(backoff)),
	)

	return &Client{
		http:     client,
		cache:    cache,
		url:      cfg.URL,
		token:    cfg.Token,
		currency: strings.ToUpper(cfg.Currency),
	}
}

func cacheKey(currency string) string {
	return fmt.Sprintf("quote:ton:%s", strings.ToLower(currency))
}

// CurrentQuote serves the cached price unless fresh is set. A fresh request
// falls back to the cached price when the upstream fails.
func (c *Client) CurrentQuote(ctx context.Context, fresh bool) (float64, error) {
	callback := func() (float64, error) {
		return c.fetch(ctx)
	}

	if fresh {
		return caching.UseFreshCache(ctx, c.cache, cacheKey(c.currency), CacheTTL, callback)
	}
	return caching.UseCache(ctx, c.cache, cacheKey(c.currency), CacheTTL, callback)
}

type ratesResponse struct {
	Rates map[string]struct {
		Prices map[string]float64 `json:"prices"`
	} `json:"rates"`
}

func (c *Client) fetch(ctx context.Context) (float64, error) {
	headers := http.Header{}
	headers.Set("Accept", "application/json")
	if c.token != "" {
		headers.Set("Authorization", "Bearer "+c.token)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return 0, err
	}
	req.Header = headers

	res, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return 0, fmt.Errorf("quote: unexpected status %d: %s", res.StatusCode, body)
	}

	var payload ratesResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return 0, err
	}

	for token, rate := range payload.Rates {
		if !strings.EqualFold(token, "ton") {
			continue
		}
		if price, ok := rate.Prices[c.currency]; ok && price > 0 {
			return price, nil
		}
	}

	return 0, fmt.Errorf("quote: no TON/%s price in response", c.currency)
}
