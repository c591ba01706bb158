// Package market fetches cryptocurrency and precious metal prices from
// public quote APIs and caches them briefly.
package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
	"github.com/shopspring/decimal"
)

// GramsPerTroyOunce converts troy-ounce quotes to per-gram prices.
var GramsPerTroyOunce = decimal.RequireFromString("31.1034768")

// ErrUpstream wraps failures of the remote quote API.
var ErrUpstream = errors.New("market data provider error")

// Quote is a price and its 24 hour change in percent.
type Quote struct {
	Price     decimal.Decimal `json:"price"`
	Change24h decimal.Decimal `json:"change_24h"`
}

// Config configures the providers.
type Config struct {
	CoinGeckoBaseURL string
	MetalsURL        string
	// MetalsPaths maps a metal name to the JSONPath of its per-ounce price.
	MetalsPaths map[string]string
	CacheTTL    time.Duration
}

// Client queries the quote providers.
type Client struct {
	http   *http.Client
	cfg    Config
	crypto *Cache[map[string]Quote]
	metals *Cache[map[domain.Metal]decimal.Decimal]
}

// NewClient creates a client. A nil httpClient uses a 10 second timeout client.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		http:   httpClient,
		cfg:    cfg,
		crypto: NewCache[map[string]Quote](cfg.CacheTTL),
		metals: NewCache[map[domain.Metal]decimal.Decimal](cfg.CacheTTL),
	}
}

func (c *Client) getJSON(ctx context.Context, rawURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decoding response: %w", ErrUpstream, err)
	}
	return nil
}

// NormalizeIDs lower-cases, trims, de-duplicates and sorts coin ids.
func NormalizeIDs(ids []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// CryptoPrices returns quotes for CoinGecko coin ids in the vs currency.
// Coins unknown to the provider are absent from the result.
func (c *Client) CryptoPrices(ctx context.Context, ids []string, vs string) (map[string]Quote, error) {
	ids = NormalizeIDs(ids)
	vs = strings.ToLower(strings.TrimSpace(vs))
	if vs == "" {
		vs = "usd"
	}
	if len(ids) == 0 {
		return map[string]Quote{}, nil
	}

	key := strings.Join(ids, ",") + "|" + vs
	if cached, ok := c.crypto.Get(key); ok {
		return cached, nil
	}

	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", vs)
	q.Set("include_24hr_change", "true")

	var body map[string]map[string]decimal.Decimal
	if err := c.getJSON(ctx, strings.TrimRight(c.cfg.CoinGeckoBaseURL, "/")+"/simple/price?"+q.Encode(), &body); err != nil {
		return nil, fmt.Errorf("CryptoPrices: %w", err)
	}

	out := make(map[string]Quote, len(body))
	for id, fields := range body {
		price, ok := fields[vs]
		if !ok {
			continue
		}
		out[id] = Quote{Price: price, Change24h: fields[vs+"_24h_change"].Round(4)}
	}
	c.crypto.Set(key, out)
	return out, nil
}

// MetalPrices returns per-gram prices for every configured metal.
func (c *Client) MetalPrices(ctx context.Context) (map[domain.Metal]decimal.Decimal, error) {
	if cached, ok := c.metals.Get("metals"); ok {
		return cached, nil
	}
	if c.cfg.MetalsURL == "" {
		return nil, fmt.Errorf("MetalPrices: %w: no metals quote URL configured", ErrUpstream)
	}

	var doc any
	if err := c.getJSON(ctx, c.cfg.MetalsURL, &doc); err != nil {
		return nil, fmt.Errorf("MetalPrices: %w", err)
	}

	out := make(map[domain.Metal]decimal.Decimal, len(c.cfg.MetalsPaths))
	for name, path := range c.cfg.MetalsPaths {
		metal := domain.Metal(strings.ToLower(name))
		if !metal.Valid() {
			continue
		}
		perOunce, err := extractNumber(doc, path)
		if err != nil {
			return nil, fmt.Errorf("MetalPrices: %s: %w", metal, err)
		}
		out[metal] = perOunce.Div(GramsPerTroyOunce).Round(4)
	}
	c.metals.Set("metals", out)
	return out, nil
}

// extractNumber evaluates a JSONPath against doc and returns the first number.
func extractNumber(doc any, path string) (decimal.Decimal, error) {
	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return decimal.Zero, fmt.Errorf("evaluating %q: %w", path, err)
	}
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return decimal.Zero, fmt.Errorf("%q matched nothing", path)
		}
		v = list[0]
	}
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), nil
	case string:
		d, err := decimal.NewFromString(n)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%q is not a number: %w", path, err)
		}
		return d, nil
	}
	return decimal.Zero, fmt.Errorf("%q is not a number: %v", path, v)
}
