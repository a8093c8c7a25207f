package domain

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Census column names.
const (
	FieldGeography  = "geography"
	FieldSupergroup = "Supergroup Name"
	FieldGroup      = "Group Name"
	FieldSubgroup   = "Subgroup Name"

	FieldAverageAge         = "Weighted_Average_Age"
	FieldAverageDeprivation = "Weighted_Average_Deprivation"
	FieldAverageCars        = "Weighted_Average_Cars"

	FieldQualificationTotal = "Highest.level.of.qualification|Total|All.usual.residents.aged.16.years.and.over"
)

// CensusRecord is one output area's row from the census table.
type CensusRecord struct {
	Geography string
	Fields    map[string]string
}

// Float returns a numeric field, treating missing, empty, unparseable and
// non-finite values as zero.
func (r CensusRecord) Float(name string) float64 {
	v, ok := r.Fields[name]
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func (r CensusRecord) label(name string) string {
	return strings.TrimSpace(r.Fields[name])
}

// Supergroup returns the top-level area classification.
func (r CensusRecord) Supergroup() string { return r.label(FieldSupergroup) }

// Group returns the mid-level area classification.
func (r CensusRecord) Group() string { return r.label(FieldGroup) }

// Subgroup returns the finest area classification.
func (r CensusRecord) Subgroup() string { return r.label(FieldSubgroup) }

// CensusIndex finds census rows by output-area code. Rows keep their table
// position, and a code that appears on several rows maps to all of them.
type CensusIndex struct {
	rows   []CensusRecord
	byCode map[string][]int
}

// NewCensusIndex indexes records by geography.
func NewCensusIndex(records []CensusRecord) CensusIndex {
	idx := CensusIndex{rows: records, byCode: make(map[string][]int, len(records))}
	for i, r := range records {
		idx.byCode[r.Geography] = append(idx.byCode[r.Geography], i)
	}
	return idx
}

// Has reports whether code has at least one census row.
func (idx CensusIndex) Has(code string) bool {
	return len(idx.byCode[code]) > 0
}

// Duplicates counts rows whose geography already appeared on an earlier row.
func (idx CensusIndex) Duplicates() int {
	return len(idx.rows) - len(idx.byCode)
}

// Lookup returns every row whose geography is in codes, in table order.
// Codes with no row are skipped.
func (idx CensusIndex) Lookup(codes []string) []CensusRecord {
	var pos []int
	seen := make(map[string]bool, len(codes))
	for _, code := range codes {
		if seen[code] {
			continue
		}
		seen[code] = true
		pos = append(pos, idx.byCode[code]...)
	}
	sort.Ints(pos)

	out := make([]CensusRecord, 0, len(pos))
	for _, i := range pos {
		out = append(out, idx.rows[i])
	}
	return out
}

// Datasets is an immutable snapshot of loaded reference data.
type Datasets struct {
	Centroids []Centroid
	Census    []CensusRecord
	Index     CensusIndex
}

// NewDatasets builds a snapshot and its census index.
func NewDatasets(centroids []Centroid, census []CensusRecord) *Datasets {
	return &Datasets{
		Centroids: centroids,
		Census:    census,
		Index:     NewCensusIndex(census),
	}
}
