package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/catchment-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "reports.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func report(id string, at time.Time, place string, codes ...string) domain.Report {
	origin := domain.LngLat{Lng: -1.5491, Lat: 53.8008}
	return domain.Report{
		ID:           id,
		GeneratedAt:  at,
		Origin:       domain.Origin{Point: origin, PlaceName: place, Source: "forward"},
		Mode:         domain.ModeDistance,
		Value:        3,
		Isochrone:    domain.DistanceIsochrone(origin, 3),
		MatchedCodes: codes,
		Summary:      domain.Summary{TotalOutputAreas: len(codes)},
	}
}

func TestStore_PublishAndGet(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, st.Publish(ctx, report("r-1", at, "Leeds", "E1", "E2")))

	got, err := st.Get(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, "r-1", got.ID)
	assert.True(t, at.Equal(got.GeneratedAt))
	assert.Equal(t, "Leeds", got.Origin.PlaceName)
	assert.Equal(t, []string{"E1", "E2"}, got.MatchedCodes)
	require.NotNil(t, got.Isochrone)
	assert.Equal(t, domain.ModeDistance, got.Isochrone.Mode)
}

func TestStore_GetMissing(t *testing.T) {
	st := newTestStore(t)

	_, err := st.Get(context.Background(), "nope")
	require.ErrorIs(t, err, domain.ErrNoResults)
}

func TestStore_PublishReplaces(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, st.Publish(ctx, report("r-1", at, "Leeds")))
	require.NoError(t, st.Publish(ctx, report("r-1", at, "Leeds city centre", "E9")))

	got, err := st.Get(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, "Leeds city centre", got.Origin.PlaceName)

	list, err := st.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestStore_ListNewestFirst(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, st.Publish(ctx, report("old", base, "York", "E1")))
	require.NoError(t, st.Publish(ctx, report("new", base.Add(90*time.Minute), "Hull", "E1", "E2", "E3")))
	require.NoError(t, st.Publish(ctx, report("mid", base.Add(1500*time.Millisecond), "Bradford")))

	list, err := st.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"new", "mid", "old"}, []string{list[0].ID, list[1].ID, list[2].ID})
	assert.Equal(t, 3, list[0].Matched)
	assert.Equal(t, "Hull", list[0].PlaceName)
	assert.Equal(t, domain.ModeDistance, list[0].Mode)
	assert.True(t, base.Add(90*time.Minute).Equal(list[0].GeneratedAt))

	limited, err := st.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestStore_CheckReadiness(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.CheckReadiness(context.Background()))
}
