package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Report is the complete result of one catchment analysis.
type Report struct {
	ID           string        `json:"id"`
	GeneratedAt  time.Time     `json:"generated_at"`
	Origin       Origin        `json:"origin"`
	Mode         IsochroneMode `json:"mode"`
	Value        float64       `json:"value"`
	Isochrone    *Isochrone    `json:"isochrone"`
	MatchedCodes []string      `json:"matched_codes"`
	Summary      Summary       `json:"summary"`
	SummaryHTML  string        `json:"summary_html"`
	Legend       []LegendEntry `json:"legend"`
	Overlay      Overlay       `json:"overlay"`
	Treemap      *TreemapNode  `json:"treemap"`
}

// BuildReport joins the matched centroids against the census and assembles
// every derived artefact.
func BuildReport(origin Origin, iso *Isochrone, matched []Centroid, index CensusIndex) (Report, error) {
	codes := make([]string, len(matched))
	for i, c := range matched {
		codes[i] = c.Code
	}

	summary := Aggregate(codes, index)
	html, err := RenderHTML(summary)
	if err != nil {
		return Report{}, err
	}
	classes := Classify(codes, index)

	return Report{
		ID:           uuid.NewString(),
		GeneratedAt:  clock.Now().UTC(),
		Origin:       origin,
		Mode:         iso.Mode,
		Value:        iso.Value,
		Isochrone:    iso,
		MatchedCodes: codes,
		Summary:      summary,
		SummaryHTML:  html,
		Legend:       BuildLegend(classes),
		Overlay:      BuildOverlay(iso, codes, classes),
		Treemap:      BuildTreemap(classes),
	}, nil
}

// ReportSummary is a listing row without the full report payload.
type ReportSummary struct {
	ID          string        `json:"id"`
	GeneratedAt time.Time     `json:"generated_at"`
	Mode        IsochroneMode `json:"mode"`
	Value       float64       `json:"value"`
	PlaceName   string        `json:"place_name"`
	Matched     int           `json:"matched"`
}

// ReportMessage is the serialized form destined for report sinks.
type ReportMessage struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// SerializeReport converts a Report into a ReportMessage keyed by report ID.
func SerializeReport(r Report) (ReportMessage, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return ReportMessage{}, fmt.Errorf("serialize report: %w", err)
	}
	return ReportMessage{
		Key:   []byte(r.ID),
		Value: data,
		Headers: map[string]string{
			"mode":         string(r.Mode),
			"generated_at": r.GeneratedAt.Format(time.RFC3339),
		},
	}, nil
}
