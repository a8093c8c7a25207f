package domain

import "fmt"

// Approximate WGS84 envelope of Great Britain including outlying islands.
const (
	gbMinLng = -8.7
	gbMaxLng = 1.8
	gbMinLat = 49.8
	gbMaxLat = 60.9
)

// maxPhaseErrors caps the detail kept per phase; the count stays exact.
const maxPhaseErrors = 50

// ValidationPhase tracks pass/fail for one integrity check.
type ValidationPhase struct {
	Name   string   `json:"name"`
	Count  int      `json:"failures"`
	Errors []string `json:"errors,omitempty"`
}

func (p *ValidationPhase) errorf(format string, args ...any) {
	p.Count++
	if len(p.Errors) < maxPhaseErrors {
		p.Errors = append(p.Errors, fmt.Sprintf(format, args...))
	}
}

// Passed reports whether the phase found no problems.
func (p *ValidationPhase) Passed() bool { return p.Count == 0 }

// ValidateDatasets runs the dataset integrity phases in order.
func ValidateDatasets(d *Datasets) []*ValidationPhase {
	return []*ValidationPhase{
		validateUniqueCentroids(d.Centroids),
		validateUniqueCensus(d.Census),
		validateCentroidEnvelope(d.Centroids),
		validateCentroidCoverage(d.Centroids, d.Index),
		validateCensusCoverage(d.Census, d.Centroids),
	}
}

func validateUniqueCentroids(centroids []Centroid) *ValidationPhase {
	p := &ValidationPhase{Name: "Centroid codes are unique"}
	seen := make(map[string]bool, len(centroids))
	for _, c := range centroids {
		if c.Code == "" {
			p.errorf("centroid fid=%s has no code", c.FID)
			continue
		}
		if seen[c.Code] {
			p.errorf("duplicate centroid code %s", c.Code)
		}
		seen[c.Code] = true
	}
	return p
}

func validateUniqueCensus(records []CensusRecord) *ValidationPhase {
	p := &ValidationPhase{Name: "Census geographies are unique"}
	seen := make(map[string]bool, len(records))
	for i, r := range records {
		if r.Geography == "" {
			p.errorf("census row %d has no geography", i+1)
			continue
		}
		if seen[r.Geography] {
			p.errorf("duplicate census geography %s", r.Geography)
		}
		seen[r.Geography] = true
	}
	return p
}

func validateCentroidEnvelope(centroids []Centroid) *ValidationPhase {
	p := &ValidationPhase{Name: "Centroids fall within Great Britain"}
	for _, c := range centroids {
		pt := c.Point
		if pt.Lng < gbMinLng || pt.Lng > gbMaxLng || pt.Lat < gbMinLat || pt.Lat > gbMaxLat {
			p.errorf("centroid %s at %.5f,%.5f is outside Great Britain", c.Code, pt.Lng, pt.Lat)
		}
	}
	return p
}

func validateCentroidCoverage(centroids []Centroid, index CensusIndex) *ValidationPhase {
	p := &ValidationPhase{Name: "Every centroid has a census row"}
	for _, c := range centroids {
		if !index.Has(c.Code) {
			p.errorf("centroid %s has no census row", c.Code)
		}
	}
	return p
}

func validateCensusCoverage(records []CensusRecord, centroids []Centroid) *ValidationPhase {
	p := &ValidationPhase{Name: "Every census row has a centroid"}
	codes := make(map[string]bool, len(centroids))
	for _, c := range centroids {
		codes[c.Code] = true
	}
	for _, r := range records {
		if !codes[r.Geography] {
			p.errorf("census geography %s has no centroid", r.Geography)
		}
	}
	return p
}
