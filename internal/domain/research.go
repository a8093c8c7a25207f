package domain

import (
	"context"
	"strings"
	"time"
)

// Article is one news search result.
type Article struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
}

// NewsSearcher finds recent articles mentioning a company or topic.
type NewsSearcher interface {
	Search(ctx context.Context, query string) ([]Article, error)
}

// PeopleQuery filters a professional-profile search.
type PeopleQuery struct {
	CompanyURL string `json:"company_url"`
	Country    string `json:"country"`
	JobTitle   string `json:"job_title"`
}

// Validate requires a company URL and trims every field.
func (q *PeopleQuery) Validate() error {
	q.CompanyURL = strings.TrimSpace(q.CompanyURL)
	q.Country = strings.TrimSpace(q.Country)
	q.JobTitle = strings.TrimSpace(q.JobTitle)
	if q.CompanyURL == "" {
		return invalidf("company_url is required")
	}
	return nil
}

// Person is one people search result. Searches that return only member IDs
// leave the descriptive fields empty.
type Person struct {
	ID      int64  `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
	Title   string `json:"title,omitempty"`
	Company string `json:"company,omitempty"`
}

// PeopleSearcher finds people currently working at a company.
type PeopleSearcher interface {
	Search(ctx context.Context, q PeopleQuery) ([]Person, error)
}
