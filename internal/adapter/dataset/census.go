package dataset

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/couchcryptid/catchment-service/internal/domain"
)

// ErrMissingGeography is returned when the census header has no geography column.
var ErrMissingGeography = errors.New("census header has no geography column")

// censusPart is one file of a census table split across several files.
// Every part starts with a header line; only the first part's header is used.
type censusPart struct {
	header []string
	rows   [][]string
}

// ParseCensus reads a census table from one or more parts that share the
// first part's header. Each later part's first line is discarded.
func ParseCensus(parts ...io.Reader) ([]domain.CensusRecord, error) {
	parsed := make([]censusPart, len(parts))
	for i, r := range parts {
		p, err := readCensusPart(r)
		if err != nil {
			return nil, fmt.Errorf("census part %d: %w", i+1, err)
		}
		parsed[i] = p
	}
	return buildCensus(parsed)
}

func readCensusPart(r io.Reader) (censusPart, error) {
	reader := newCSVReader(r)
	var p censusPart
	first := true
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return p, nil
		}
		if err != nil {
			return censusPart{}, fmt.Errorf("read row: %w", err)
		}
		if first {
			first = false
			p.header = record
			continue
		}
		p.rows = append(p.rows, record)
	}
}

func buildCensus(parts []censusPart) ([]domain.CensusRecord, error) {
	if len(parts) == 0 || len(parts[0].header) == 0 {
		return nil, nil
	}

	header := make([]string, len(parts[0].header))
	geoCol := -1
	for i, h := range parts[0].header {
		header[i] = cleanHeader(h)
		if header[i] == domain.FieldGeography {
			geoCol = i
		}
	}
	if geoCol < 0 {
		return nil, ErrMissingGeography
	}

	total := 0
	for _, p := range parts {
		total += len(p.rows)
	}
	out := make([]domain.CensusRecord, 0, total)
	for _, p := range parts {
		for _, row := range p.rows {
			fields := make(map[string]string, len(header))
			for i, name := range header {
				if i < len(row) {
					fields[name] = row[i]
				} else {
					fields[name] = ""
				}
			}
			geography := cleanGeography(fields[domain.FieldGeography])
			fields[domain.FieldGeography] = geography
			out = append(out, domain.CensusRecord{Geography: geography, Fields: fields})
		}
	}
	return out, nil
}

// cleanGeography removes escaped quotes left behind by the census export.
func cleanGeography(v string) string {
	v = strings.ReplaceAll(v, `\"`, "")
	return strings.Trim(strings.TrimSpace(v), `"`)
}
