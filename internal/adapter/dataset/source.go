// Package dataset loads the output-area centroid and census CSV files that
// back catchment analysis.
package dataset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/couchcryptid/catchment-service/internal/domain"
)

// Open returns a reader for src, which is either a local path or an http(s) URL.
// The caller must close the returned reader.
func Open(ctx context.Context, client *http.Client, src string) (io.ReadCloser, error) {
	if !isRemote(src) {
		f, err := os.Open(src)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", src, err)
		}
		return f, nil
	}

	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("create request for %s: %w", src, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", src, err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		return nil, &domain.UpstreamError{Service: "dataset", StatusCode: resp.StatusCode, Body: string(body)}
	}
	return resp.Body, nil
}

func isRemote(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}
