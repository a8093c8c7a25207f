package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDatasets_Clean(t *testing.T) {
	d := NewDatasets(
		[]Centroid{{FID: "1", Code: "E1", Point: LngLat{Lng: -0.1, Lat: 51.5}}},
		[]CensusRecord{censusRow("E1", nil)},
	)

	for _, p := range ValidateDatasets(d) {
		assert.True(t, p.Passed(), p.Name)
	}
}

func TestValidateDatasets_Failures(t *testing.T) {
	d := NewDatasets(
		[]Centroid{
			{FID: "1", Code: "E1", Point: LngLat{Lng: -0.1, Lat: 51.5}},
			{FID: "2", Code: "E1", Point: LngLat{Lng: -0.1, Lat: 51.5}},
			{FID: "3", Code: "E2", Point: LngLat{Lng: 2.35, Lat: 48.85}},
			{FID: "4", Code: "", Point: LngLat{Lng: -1, Lat: 52}},
		},
		[]CensusRecord{censusRow("E1", nil), censusRow("E9", nil), censusRow("E9", nil)},
	)

	phases := ValidateDatasets(d)
	require.Len(t, phases, 5)

	byName := make(map[string]*ValidationPhase)
	for _, p := range phases {
		byName[p.Name] = p
	}

	assert.Equal(t, 2, byName["Centroid codes are unique"].Count)
	assert.Equal(t, 1, byName["Census geographies are unique"].Count)
	assert.Equal(t, 1, byName["Centroids fall within Great Britain"].Count)
	assert.Contains(t, byName["Centroids fall within Great Britain"].Errors[0], "E2")
	assert.Equal(t, 2, byName["Every centroid has a census row"].Count)
	assert.Equal(t, 2, byName["Every census row has a centroid"].Count)
}

func TestValidationPhase_CapsDetail(t *testing.T) {
	p := &ValidationPhase{Name: "cap"}
	for i := range maxPhaseErrors + 10 {
		p.errorf("problem %d", i)
	}
	assert.Equal(t, maxPhaseErrors+10, p.Count)
	assert.Len(t, p.Errors, maxPhaseErrors)
	assert.Equal(t, fmt.Sprintf("problem %d", maxPhaseErrors-1), p.Errors[maxPhaseErrors-1])
	assert.False(t, p.Passed())
}
