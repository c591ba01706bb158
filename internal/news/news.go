// Package news proxies a NewsAPI-compatible top-headlines endpoint.
package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	MaxArticles     = 20
	DefaultCategory = "business"
	removedTitle    = "[Removed]"
)

// ErrUpstream wraps failures of the news provider.
var ErrUpstream = errors.New("news provider error")

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("news provider not configured")

// Article is the reshaped article returned to clients.
type Article struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	ImageURL    string    `json:"image_url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

type apiResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		URL         string    `json:"url"`
		URLToImage  string    `json:"urlToImage"`
		PublishedAt time.Time `json:"publishedAt"`
	} `json:"articles"`
}

// Client calls the provider.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

// NewClient creates a client. A nil httpClient uses a 10 second timeout client.
func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{http: httpClient, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey}
}

// Headlines returns at most MaxArticles headlines for category, optionally
// filtered by the query q. Removed articles are dropped.
func (c *Client) Headlines(ctx context.Context, category, q string) ([]Article, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}
	if category == "" {
		category = DefaultCategory
	}

	params := url.Values{}
	params.Set("category", category)
	params.Set("language", "en")
	params.Set("pageSize", fmt.Sprint(MaxArticles))
	if q != "" {
		params.Set("q", q)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/top-headlines?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("Headlines: building request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Headlines: %w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	var body apiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&body); err != nil {
		return nil, fmt.Errorf("Headlines: %w: decoding: %w", ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK || body.Status == "error" {
		return nil, fmt.Errorf("Headlines: %w: status %d: %s", ErrUpstream, resp.StatusCode, body.Message)
	}

	out := make([]Article, 0, MaxArticles)
	for _, a := range body.Articles {
		if a.Title == "" || a.Title == removedTitle || a.URL == "" {
			continue
		}
		out = append(out, Article{
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			Source:      a.Source.Name,
			ImageURL:    a.URLToImage,
			PublishedAt: a.PublishedAt,
		})
		if len(out) == MaxArticles {
			break
		}
	}
	return out, nil
}
