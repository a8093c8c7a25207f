package domain

import "math"

// CategoryField is one labelled census column within a category.
type CategoryField struct {
	Label string
	Field string
}

// CategorySpec groups fields that share a denominator column.
type CategorySpec struct {
	Name       string
	TotalField string
	Fields     []CategoryField
}

// SummaryCategories are the census breakdowns reported for every catchment.
var SummaryCategories = []CategorySpec{
	{
		Name:       "Ethnicity",
		TotalField: "Ethnic.group|Total|All.usual.residents",
		Fields: []CategoryField{
			{"White", "Ethnic.group|White"},
			{"Asian", "Ethnic.group|Asian|Asian.British.or.Asian.Welsh"},
			{"Black", "Ethnic.group|Black|Black.British|Black.Welsh|Caribbean.or.African"},
		},
	},
	{
		Name:       "Housing Type",
		TotalField: "Accommodation.type|Total|All.households",
		Fields: []CategoryField{
			{"Detached", "Accommodation.type|Detached"},
			{"Semi-detached", "Accommodation.type|Semi.detached"},
			{"Terraced", "Accommodation.type|Terraced"},
		},
	},
	{
		Name:       "Tenure",
		TotalField: "Tenure.of.household|Total|All.households",
		Fields: []CategoryField{
			{"Owned", "Tenure.of.household|Owned"},
			{"Social Rented", "Tenure.of.household|Social.rented"},
			{"Private Rented", "Tenure.of.household|Private.rented"},
			{"Lives Rent Free", "Tenure.of.household|Lives.rent.free"},
		},
	},
	{
		Name:       "Travel to Work",
		TotalField: "Method.of.travel.to.workplace|Total|All.usual.residents.aged.16.years.and.over.in.employment.the.week.before.the.census",
		Fields: []CategoryField{
			{"Driving", "Method.of.travel.to.workplace|Driving.a.car.or.van"},
			{"Work from Home", "Method.of.travel.to.workplace|Work.mainly.at.or.from.home"},
		},
	},
	{
		Name:       "Qualifications",
		TotalField: FieldQualificationTotal,
		Fields: []CategoryField{
			{"No Qualifications", "Highest.level.of.qualification|No.qualifications"},
			{"Level 4 Qualifications and Above", "Highest.level.of.qualification|Level.4.qualifications.and.above"},
		},
	},
}

// CategoryRow is an aggregated field with its share of the category total.
type CategoryRow struct {
	Label      string  `json:"label"`
	Field      string  `json:"field"`
	Sum        float64 `json:"sum"`
	Percentage float64 `json:"percentage"`
	// NoDenominator is set when the category total was zero and Percentage is meaningless.
	NoDenominator bool `json:"no_denominator,omitempty"`
}

// CategorySummary is one aggregated category.
type CategorySummary struct {
	Name  string        `json:"name"`
	Total float64       `json:"total"`
	Rows  []CategoryRow `json:"rows"`
}

// Summary is the census aggregate over a catchment's matched output areas.
type Summary struct {
	TotalOutputAreas        int               `json:"total_output_areas"`
	IntersectingOutputAreas int               `json:"intersecting_output_areas"`
	TotalPopulation         float64           `json:"total_population"`
	AverageAge              float64           `json:"average_age"`
	AverageDeprivation      float64           `json:"average_deprivation"`
	AverageCars             float64           `json:"average_cars"`
	Categories              []CategorySummary `json:"categories,omitempty"`
	Empty                   bool              `json:"empty"`
}

// Aggregate sums and averages census fields over the output areas in codes.
// Codes without a census row count towards TotalOutputAreas only.
func Aggregate(codes []string, index CensusIndex) Summary {
	rows := index.Lookup(codes)
	s := Summary{
		TotalOutputAreas:        len(codes),
		IntersectingOutputAreas: len(rows),
	}
	if len(rows) == 0 {
		s.Empty = true
		return s
	}

	n := float64(len(rows))
	s.TotalPopulation = sumField(rows, FieldQualificationTotal)
	s.AverageAge = sumField(rows, FieldAverageAge) / n
	s.AverageDeprivation = sumField(rows, FieldAverageDeprivation) / n
	s.AverageCars = sumField(rows, FieldAverageCars) / n

	for _, spec := range SummaryCategories {
		cat := CategorySummary{Name: spec.Name, Total: sumField(rows, spec.TotalField)}
		for _, f := range spec.Fields {
			row := CategoryRow{Label: f.Label, Field: f.Field, Sum: sumField(rows, f.Field)}
			if cat.Total == 0 {
				row.NoDenominator = true
			} else {
				row.Percentage = round2(row.Sum / cat.Total * 100)
			}
			cat.Rows = append(cat.Rows, row)
		}
		s.Categories = append(s.Categories, cat)
	}
	return s
}

func sumField(rows []CensusRecord, field string) float64 {
	var total float64
	for _, r := range rows {
		total += r.Float(field)
	}
	return total
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func dedupe(codes []string) []string {
	seen := make(map[string]bool, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
