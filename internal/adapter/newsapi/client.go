// Package newsapi searches news articles through NewsAPI.
package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/catchment-service/internal/domain"
	"github.com/couchcryptid/catchment-service/internal/observability"
)

const service = "newsapi"

// Client implements domain.NewsSearcher against the /everything endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a NewsAPI client. baseURL is typically https://newsapi.org/v2.
func NewClient(apiKey, baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		metrics:    metrics,
		logger:     logger,
	}
}

// Search returns articles matching query.
func (c *Client) Search(ctx context.Context, query string) ([]domain.Article, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}

	start := time.Now()
	articles, err := c.search(ctx, query)
	outcome := observability.Outcome(err)
	if err == nil && len(articles) == 0 {
		outcome = "empty"
	}
	c.metrics.ObserveUpstream(service, outcome, start)
	if err != nil {
		c.logger.Error("news search failed", "query", query, "error", err)
	}
	return articles, err
}

func (c *Client) search(ctx context.Context, query string) ([]domain.Article, error) {
	params := url.Values{
		"q":      {query},
		"apiKey": {c.apiKey},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/everything?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read news response: %w", err)
	}

	var r response
	decodeErr := json.Unmarshal(body, &r)
	if resp.StatusCode != http.StatusOK || r.Status == "error" {
		msg := r.Message
		if decodeErr != nil || msg == "" {
			msg = string(body)
		}
		return nil, &domain.UpstreamError{Service: service, StatusCode: resp.StatusCode, Body: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode news response: %w", decodeErr)
	}

	out := make([]domain.Article, 0, len(r.Articles))
	for _, a := range r.Articles {
		out = append(out, domain.Article{
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			Source:      a.Source.Name,
			PublishedAt: a.PublishedAt,
		})
	}
	return out, nil
}

// NewsAPI response types.

type response struct {
	Status       string    `json:"status"`
	Code         string    `json:"code"`
	Message      string    `json:"message"`
	TotalResults int       `json:"totalResults"`
	Articles     []article `json:"articles"`
}

type article struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
}
