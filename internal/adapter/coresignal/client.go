// Package coresignal searches professional profiles through the Coresignal
// member search API.
package coresignal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/catchment-service/internal/domain"
	"github.com/couchcryptid/catchment-service/internal/observability"
)

const (
	service    = "coresignal"
	searchPath = "/linkedin/member/search/filter"
)

// Client implements domain.PeopleSearcher.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Coresignal client. baseURL is typically
// https://api.coresignal.com/cdapi/v1.
func NewClient(apiKey, baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		metrics:    metrics,
		logger:     logger,
	}
}

// Search returns people with an active role at q.CompanyURL, optionally
// filtered by job title and country.
func (c *Client) Search(ctx context.Context, q domain.PeopleQuery) ([]domain.Person, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	people, err := c.search(ctx, q)
	outcome := observability.Outcome(err)
	if err == nil && len(people) == 0 {
		outcome = "empty"
	}
	c.metrics.ObserveUpstream(service, outcome, start)
	if err != nil {
		c.logger.Error("people search failed", "company", q.CompanyURL, "error", err)
		return nil, err
	}
	c.logger.Debug("people search complete", "company", q.CompanyURL, "results", len(people))
	return people, nil
}

type filter struct {
	CompanyURL string `json:"experience_company_linkedin_url"`
	ActiveRole bool   `json:"active_experience"`
	Skill      string `json:"skill"`
	Country    string `json:"country"`
}

func (c *Client) search(ctx context.Context, q domain.PeopleQuery) ([]domain.Person, error) {
	// Coresignal matches countries as a parenthesised phrase.
	f := filter{
		CompanyURL: q.CompanyURL,
		ActiveRole: true,
		Skill:      q.JobTitle,
		Country:    "(" + q.Country + ")",
	}
	payload, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("marshal filter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+searchPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coresignal request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read coresignal response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.UpstreamError{Service: service, StatusCode: resp.StatusCode, Body: string(body)}
	}
	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt != "application/json" {
		return nil, &domain.UpstreamError{
			Service:    service,
			StatusCode: resp.StatusCode,
			Body:       fmt.Sprintf("unexpected content type %q", resp.Header.Get("Content-Type")),
		}
	}

	return decodePeople(body)
}

// decodePeople accepts either full member records or the bare member IDs the
// filter endpoint returns on lower plans.
func decodePeople(body []byte) ([]domain.Person, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode coresignal response: %w", err)
	}

	people := make([]domain.Person, 0, len(raw))
	for _, item := range raw {
		var id int64
		if err := json.Unmarshal(item, &id); err == nil {
			people = append(people, domain.Person{ID: id})
			continue
		}
		var m member
		if err := json.Unmarshal(item, &m); err != nil {
			return nil, fmt.Errorf("decode coresignal member: %w", err)
		}
		people = append(people, m.person())
	}
	return people, nil
}

type member struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Title   string `json:"title"`
	Company string `json:"company"`
}

func (m member) person() domain.Person {
	return domain.Person{ID: m.ID, Name: m.Name, Title: m.Title, Company: m.Company}
}
