package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/playaura/pkg/creator"
	"github.com/elonfeng/playaura/pkg/source"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func snap(date string, subs, views, videos int64) Snapshot {
	return Snapshot{
		CreatorID:   "UC1",
		Date:        date,
		Subscribers: creator.Int(subs),
		TotalViews:  creator.Int(views),
		TotalVideos: creator.Int(videos),
	}
}

func TestDeriveStats(t *testing.T) {
	snaps := []Snapshot{
		snap("2026-03-10", 1500, 90_000, 56),
		snap("2026-02-01", 100, 10_000, 10),
		snap("2026-03-04", 1000, 60_000, 50),
		snap("2026-02-20", 800, 50_000, 40),
	}

	s := DeriveStats(snaps, now)
	assert.Equal(t, int64(1500), *s.Subscribers)
	assert.Equal(t, int64(90_000), *s.TotalViews)
	assert.Equal(t, int64(56), *s.TotalVideos)
	assert.Equal(t, int64(500), *s.SubsDelta7d)
	assert.Equal(t, int64(30_000), *s.ViewsDelta7d)
	assert.Equal(t, int64(6), *s.Uploads7d)
	assert.InDelta(t, 2500, *s.AvgViewsPerVideo28d, 1e-9)

	assert.Equal(t, "2026-03-10", snaps[0].Date, "input order untouched")
}

func TestDeriveStats_SingleSnapshot(t *testing.T) {
	s := DeriveStats([]Snapshot{snap("2026-03-10", 1500, 90_000, 60)}, now)
	assert.Nil(t, s.SubsDelta7d)
	assert.Nil(t, s.ViewsDelta7d)
	assert.Nil(t, s.Uploads7d)
	assert.InDelta(t, 1500, *s.AvgViewsPerVideo28d, 1e-9)
}

func TestDeriveStats_StaleBaselineIsIgnored(t *testing.T) {
	s := DeriveStats([]Snapshot{
		snap("2026-02-25", 900, 80_000, 50),
		snap("2026-03-10", 1500, 90_000, 50),
	}, now)
	assert.Nil(t, s.SubsDelta7d)
	// no videos published in the window, so the lifetime average applies
	assert.InDelta(t, 1800, *s.AvgViewsPerVideo28d, 1e-9)
}

func TestDeriveStats_FeedCountWins(t *testing.T) {
	latest := snap("2026-03-10", 10, 10, 20)
	latest.Uploads7d = creator.Int(3)
	s := DeriveStats([]Snapshot{snap("2026-03-05", 5, 5, 10), latest}, now)
	assert.Equal(t, int64(3), *s.Uploads7d)
}

func TestDeriveStats_UnknownCounters(t *testing.T) {
	assert.Equal(t, creator.ChannelStats{}, DeriveStats(nil, now))

	s := DeriveStats([]Snapshot{
		{Date: "2026-03-08", TotalViews: creator.Int(10)},
		{Date: "2026-03-10", Subscribers: creator.Int(50), TotalViews: creator.Int(30)},
	}, now)
	assert.Nil(t, s.SubsDelta7d)
	assert.Equal(t, int64(20), *s.ViewsDelta7d)
	assert.Nil(t, s.Uploads7d)
	assert.Nil(t, s.AvgViewsPerVideo28d)
}

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "playaura.db"), WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func channel(id, region string, at time.Time, subs, views, videos int64) source.Channel {
	return source.Channel{
		Creator: creator.Creator{
			ID: id, CategoryID: "gaming", Region: region, Format: creator.FormatShorts,
			Name: "Channel " + id, Description: "clips", LastUpdatedAt: at,
		},
		Observation: source.Observation{
			Subscribers: creator.Int(subs),
			TotalViews:  creator.Int(views),
			TotalVideos: creator.Int(videos),
		},
		ObservedAt: at,
	}
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.SaveChannels(ctx, []source.Channel{
		channel("UC1", "KR", now.AddDate(0, 0, -5), 1000, 50_000, 40),
		channel("UC2", "US", now.AddDate(0, 0, -5), 10, 100, 1),
	}))
	require.NoError(t, s.SaveChannels(ctx, []source.Channel{
		channel("UC1", "KR", now, 1400, 80_000, 45),
	}))

	creators, err := s.ListCreators(ctx)
	require.NoError(t, err)
	require.Len(t, creators, 2)

	c := creators[0]
	assert.Equal(t, "UC1", c.ID)
	assert.Equal(t, creator.FormatShorts, c.Format)
	assert.Equal(t, 1.0, c.AdminBoost)
	assert.True(t, now.Equal(c.LastUpdatedAt))
	assert.Equal(t, int64(1400), *c.Stats.Subscribers)
	assert.Equal(t, int64(400), *c.Stats.SubsDelta7d)
	assert.Equal(t, int64(30_000), *c.Stats.ViewsDelta7d)
	assert.Equal(t, int64(5), *c.Stats.Uploads7d)
	assert.InDelta(t, 6000, *c.Stats.AvgViewsPerVideo28d, 1e-9)

	assert.Nil(t, creators[1].Stats.SubsDelta7d)

	got, err := s.GetCreator(ctx, "UC1")
	require.NoError(t, err)
	assert.Equal(t, c.Stats, got.Stats)

	_, err = s.GetCreator(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLiteStore_SnapshotUpsertKeepsFeedCount(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ch := channel("UC1", "KR", now, 1, 1, 1)
	ch.Observation.Uploads7d = creator.Int(4)
	require.NoError(t, s.SaveChannels(ctx, []source.Channel{ch}))

	// same day, feed unavailable this time
	again := ch
	again.ObservedAt = now.Add(time.Hour)
	again.Observation = source.Observation{Subscribers: creator.Int(2)}
	require.NoError(t, s.SaveChannels(ctx, []source.Channel{again}))

	snaps, err := s.GetSnapshots(ctx, "UC1", time.Time{})
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, int64(2), *snaps[0].Subscribers)
	assert.Nil(t, snaps[0].TotalViews)
	assert.Equal(t, int64(4), *snaps[0].Uploads7d)
}

func TestSQLiteStore_AdminBoost(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.SaveChannels(ctx, []source.Channel{channel("UC1", "KR", now, 1, 1, 1)}))

	require.NoError(t, s.SetAdminBoost(ctx, "UC1", 1.5))
	// a later sync must not reset the boost
	require.NoError(t, s.SaveChannels(ctx, []source.Channel{channel("UC1", "KR", now, 2, 2, 2)}))

	c, err := s.GetCreator(ctx, "UC1")
	require.NoError(t, err)
	assert.Equal(t, 1.5, c.AdminBoost)

	assert.Error(t, s.SetAdminBoost(ctx, "UC1", 0))
	assert.True(t, errors.Is(s.SetAdminBoost(ctx, "nope", 2), ErrNotFound))
}

func TestSQLiteStore_CountByRegion(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.SaveChannels(ctx, []source.Channel{
		channel("UC1", "KR", now, 1, 1, 1),
		channel("UC2", "KR", now, 1, 1, 1),
		channel("UC3", "JP", now, 1, 1, 1),
	}))

	counts, err := s.CountCreatorsByRegion(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"KR": 2, "JP": 1}, counts)
}

func TestSQLiteStore_SyncRuns(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.StartSyncRun(ctx, "KR", "gaming")
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.NoError(t, s.FinishSyncRun(ctx, id, source.ReportEntry{Status: source.StatusSuccess, Count: 12}))

	runs, err := s.ListSyncRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].ID)
	assert.Equal(t, source.StatusSuccess, runs[0].Status)
	assert.Equal(t, 12, runs[0].Channels)
	assert.True(t, runs[0].FinishedAt.Valid)
}

func TestSQLiteStore_Alerts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.SaveChannels(ctx, []source.Channel{channel("UC1", "KR", now, 1, 1, 1)}))

	alerted, err := s.Alerted(ctx, "UC1", now)
	require.NoError(t, err)
	assert.False(t, alerted)

	require.NoError(t, s.MarkAlerted(ctx, "UC1", now, 91))
	require.NoError(t, s.MarkAlerted(ctx, "UC1", now.Add(time.Hour), 93))

	alerted, err = s.Alerted(ctx, "UC1", now)
	require.NoError(t, err)
	assert.True(t, alerted)

	alerted, err = s.Alerted(ctx, "UC1", now.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.False(t, alerted)
}
