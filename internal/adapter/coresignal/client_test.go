package coresignal

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/catchment-service/internal/domain"
	"github.com/couchcryptid/catchment-service/internal/observability"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(baseURL string) *Client {
	return NewClient("cs-key", baseURL, 5*time.Second, observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func jsonServer(t *testing.T, status int, contentType, body string, got *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/cdapi/v1"+searchPath, r.URL.Path)
		assert.Equal(t, "Bearer cs-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		if got != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
}

func TestClient_Search_Members(t *testing.T) {
	var filter map[string]any
	srv := jsonServer(t, http.StatusOK, "application/json; charset=utf-8",
		`[{"id":11,"name":"Ana Silva","title":"Data Engineer","company":"Acme"},{"id":12,"name":"Tom Reed","title":"Analyst","company":"Acme"}]`,
		&filter)
	defer srv.Close()

	c := testClient(srv.URL + "/cdapi/v1")
	people, err := c.Search(context.Background(), domain.PeopleQuery{
		CompanyURL: " https://www.linkedin.com/company/acme ",
		Country:    "United Kingdom",
		JobTitle:   "Data Engineer",
	})
	require.NoError(t, err)

	want := []domain.Person{
		{ID: 11, Name: "Ana Silva", Title: "Data Engineer", Company: "Acme"},
		{ID: 12, Name: "Tom Reed", Title: "Analyst", Company: "Acme"},
	}
	if diff := cmp.Diff(want, people); diff != "" {
		t.Errorf("people mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, map[string]any{
		"experience_company_linkedin_url": "https://www.linkedin.com/company/acme",
		"active_experience":               true,
		"skill":                           "Data Engineer",
		"country":                         "(United Kingdom)",
	}, filter)
	assert.InDelta(t, 1.0, testutil.ToFloat64(c.metrics.UpstreamRequests.WithLabelValues(service, "success")), 1e-9)
}

func TestClient_Search_AlwaysSendsSkillAndCountry(t *testing.T) {
	var filter map[string]any
	srv := jsonServer(t, http.StatusOK, "application/json", `[]`, &filter)
	defer srv.Close()

	c := testClient(srv.URL + "/cdapi/v1")
	people, err := c.Search(context.Background(), domain.PeopleQuery{CompanyURL: "https://www.linkedin.com/company/acme"})
	require.NoError(t, err)
	assert.Empty(t, people)

	assert.Equal(t, map[string]any{
		"experience_company_linkedin_url": "https://www.linkedin.com/company/acme",
		"active_experience":               true,
		"skill":                           "",
		"country":                         "()",
	}, filter)
	assert.InDelta(t, 1.0, testutil.ToFloat64(c.metrics.UpstreamRequests.WithLabelValues(service, "empty")), 1e-9)
}

func TestClient_Search_MemberIDs(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, "application/json", `[101, 202]`, nil)
	defer srv.Close()

	people, err := testClient(srv.URL+"/cdapi/v1").Search(context.Background(),
		domain.PeopleQuery{CompanyURL: "https://www.linkedin.com/company/acme"})
	require.NoError(t, err)
	assert.Equal(t, []domain.Person{{ID: 101}, {ID: 202}}, people)
}

func TestClient_Search_Errors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		wantStatus  int
	}{
		{"unauthorized", http.StatusUnauthorized, "application/json", `{"detail":"Invalid token"}`, http.StatusUnauthorized},
		{"rate limited", http.StatusTooManyRequests, "text/plain", "slow down", http.StatusTooManyRequests},
		{"html body", http.StatusOK, "text/html", "<html>maintenance</html>", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := jsonServer(t, tt.status, tt.contentType, tt.body, nil)
			defer srv.Close()

			_, err := testClient(srv.URL+"/cdapi/v1").Search(context.Background(),
				domain.PeopleQuery{CompanyURL: "https://www.linkedin.com/company/acme"})

			var upstream *domain.UpstreamError
			require.ErrorAs(t, err, &upstream)
			assert.Equal(t, service, upstream.Service)
			assert.Equal(t, tt.wantStatus, upstream.StatusCode)
		})
	}
}

func TestClient_Search_MalformedBody(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, "application/json", `{"not":"an array"}`, nil)
	defer srv.Close()

	_, err := testClient(srv.URL+"/cdapi/v1").Search(context.Background(),
		domain.PeopleQuery{CompanyURL: "https://www.linkedin.com/company/acme"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode coresignal response")
}

func TestClient_Search_RequiresCompany(t *testing.T) {
	_, err := testClient("http://127.0.0.1:0").Search(context.Background(), domain.PeopleQuery{JobTitle: "Analyst"})
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
}
