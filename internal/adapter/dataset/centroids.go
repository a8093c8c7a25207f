package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/couchcryptid/catchment-service/internal/domain"
)

// Centroid CSV columns, in their conventional order.
var centroidColumns = []string{"FID", "OA21CD", "GlobalID", "x", "y"}

const (
	colFID = iota
	colCode
	colGlobalID
	colX
	colY
)

// ParseCentroids reads output-area centroids in British National Grid
// coordinates and reprojects them to WGS84. Rows whose x or y is not a number
// are logged and skipped; the number skipped is returned alongside the rows.
func ParseCentroids(r io.Reader, logger *slog.Logger) ([]domain.Centroid, int, error) {
	reader := newCSVReader(r)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read centroid header: %w", err)
	}
	cols := centroidIndexes(header)

	var (
		out     []domain.Centroid
		skipped int
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("read centroid row: %w", err)
		}

		fid := field(record, cols[colFID])
		code := field(record, cols[colCode])
		x, xOK := parseCoord(field(record, cols[colX]))
		y, yOK := parseCoord(field(record, cols[colY]))
		if !xOK || !yOK {
			logger.Warn("invalid centroid coordinates, skipping row", "fid", fid, "code", code)
			skipped++
			continue
		}

		out = append(out, domain.Centroid{
			FID:      fid,
			Code:     code,
			GlobalID: field(record, cols[colGlobalID]),
			Point:    domain.OSGBToWGS84(x, y),
		})
	}
	return out, skipped, nil
}

// centroidIndexes locates each known column by name, falling back to its
// conventional position when the header does not name it.
func centroidIndexes(header []string) []int {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		byName[strings.ToLower(cleanHeader(h))] = i
	}
	idx := make([]int, len(centroidColumns))
	for i, name := range centroidColumns {
		if j, ok := byName[strings.ToLower(name)]; ok {
			idx[i] = j
		} else {
			idx[i] = i
		}
	}
	return idx
}

func parseCoord(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func newCSVReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(&lineEndingReader{r: r})
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	return reader
}

// cleanHeader strips whitespace and a leading UTF-8 byte order mark.
func cleanHeader(h string) string {
	return strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
}

// lineEndingReader rewrites every carriage return as a newline. A CRLF pair
// becomes an empty line, which csv.Reader skips.
type lineEndingReader struct {
	r io.Reader
}

func (l *lineEndingReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	for i := range p[:n] {
		if p[i] == '\r' {
			p[i] = '\n'
		}
	}
	return n, err
}
