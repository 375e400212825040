package creator

import "time"

// Format is the dominant video format a channel was discovered with.
type Format string

const (
	FormatLong   Format = "long"
	FormatShorts Format = "shorts"
)

// ChannelStats is a per-channel telemetry snapshot. A nil field means the
// value is unknown, which is not the same as zero.
type ChannelStats struct {
	Subscribers         *int64   `json:"subscribers,omitempty"`
	TotalViews          *int64   `json:"total_views,omitempty"`
	TotalVideos         *int64   `json:"total_videos,omitempty"`
	SubsDelta7d         *int64   `json:"subs_delta_7d,omitempty"`
	ViewsDelta7d        *int64   `json:"views_delta_7d,omitempty"`
	AvgViewsPerVideo28d *float64 `json:"avg_views_per_video_28d,omitempty"`
	Uploads7d           *int64   `json:"uploads_7d,omitempty"`
}

// Breakdown holds the component sub-scores behind a hot score.
type Breakdown struct {
	Subs       int     `json:"a_subs"`
	Views      int     `json:"b_views"`
	Growth     int     `json:"c_growth"`
	Uploads    int     `json:"d_upload"`
	GrowthRate float64 `json:"growth_rate"`
	Decay      float64 `json:"decay_multiplier"`
}

// Creator is a channel with its identity, telemetry and computed ranking.
type Creator struct {
	ID            string       `json:"id"`
	CategoryID    string       `json:"category_id"`
	Region        string       `json:"region_code"`
	Format        Format       `json:"format_type,omitempty"`
	Name          string       `json:"name"`
	Handle        string       `json:"handle,omitempty"`
	Description   string       `json:"description"`
	ChannelURL    string       `json:"channel_url,omitempty"`
	ThumbnailURL  string       `json:"thumbnail_url,omitempty"`
	AdminBoost    float64      `json:"admin_boost,omitempty"`
	LastUpdatedAt time.Time    `json:"last_updated_at"`
	Stats         ChannelStats `json:"stats"`
	HotScore      int          `json:"hot_score"`
	Breakdown     Breakdown    `json:"breakdown"`
	RelatedIDs    []string     `json:"related_ids,omitempty"`
}

// Int returns a pointer to v, for building ChannelStats literals.
func Int(v int64) *int64 { return &v }

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Value returns *p, or 0 when the value is unknown.
func Value(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

// FloatValue returns *p, or 0 when the value is unknown.
func FloatValue(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// EngagementRatio is avgViewsPerVideo28d / subscribers, or 0 when either is
// unknown or subscribers is not positive.
func (s ChannelStats) EngagementRatio() float64 {
	subs := Value(s.Subscribers)
	if subs <= 0 {
		return 0
	}
	return FloatValue(s.AvgViewsPerVideo28d) / float64(subs)
}
