package store

import (
	"sort"
	"time"

	"github.com/elonfeng/playaura/pkg/creator"
)

const (
	deltaWindowDays   = 7
	averageWindowDays = 28
)

// DeriveStats turns daily snapshots into the channel telemetry the scorer
// reads.
//
// Lifetime counters come from the latest snapshot. Weekly deltas compare it
// with the oldest snapshot inside the trailing 7 days and stay unknown when
// there is no such baseline. The 28-day average is views gained per video
// published over the window, falling back to lifetime views per video.
// Uploads7d prefers the latest feed count over the video-count delta.
func DeriveStats(snaps []Snapshot, now time.Time) creator.ChannelStats {
	if len(snaps) == 0 {
		return creator.ChannelStats{}
	}
	sorted := make([]Snapshot, len(snaps))
	copy(sorted, snaps)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })

	last := len(sorted) - 1
	latest := sorted[last]
	stats := creator.ChannelStats{
		Subscribers: clone(latest.Subscribers),
		TotalViews:  clone(latest.TotalViews),
		TotalVideos: clone(latest.TotalVideos),
	}

	week, hasWeek := baseline(sorted[:last], now, deltaWindowDays)
	if hasWeek {
		stats.SubsDelta7d = diff(latest.Subscribers, week.Subscribers)
		stats.ViewsDelta7d = diff(latest.TotalViews, week.TotalViews)
	}

	switch {
	case latest.Uploads7d != nil:
		stats.Uploads7d = clone(latest.Uploads7d)
	case hasWeek:
		if d := diff(latest.TotalVideos, week.TotalVideos); d != nil {
			stats.Uploads7d = creator.Int(max(*d, 0))
		}
	}

	if month, ok := baseline(sorted[:last], now, averageWindowDays); ok {
		dViews := diff(latest.TotalViews, month.TotalViews)
		dVideos := diff(latest.TotalVideos, month.TotalVideos)
		if dViews != nil && dVideos != nil && *dVideos > 0 {
			stats.AvgViewsPerVideo28d = creator.Float(float64(max(*dViews, 0)) / float64(*dVideos))
		}
	}
	if stats.AvgViewsPerVideo28d == nil {
		videos, views := creator.Value(latest.TotalVideos), latest.TotalViews
		if videos > 0 && views != nil {
			stats.AvgViewsPerVideo28d = creator.Float(float64(*views) / float64(videos))
		}
	}
	return stats
}

// baseline returns the oldest snapshot dated within the trailing window.
// snaps must be sorted oldest first.
func baseline(snaps []Snapshot, now time.Time, days int) (Snapshot, bool) {
	cutoff := now.UTC().AddDate(0, 0, -days).Format(dateLayout)
	for _, s := range snaps {
		if s.Date >= cutoff {
			return s, true
		}
	}
	return Snapshot{}, false
}

func diff(a, b *int64) *int64 {
	if a == nil || b == nil {
		return nil
	}
	return creator.Int(*a - *b)
}

func clone(p *int64) *int64 {
	if p == nil {
		return nil
	}
	return creator.Int(*p)
}
