package source

import (
	"context"
	"time"

	"github.com/elonfeng/playaura/pkg/creator"
)

// Observation is the raw channel telemetry captured by one sync. A nil field
// was not reported.
type Observation struct {
	Subscribers *int64
	TotalViews  *int64
	TotalVideos *int64
	Uploads7d   *int64
}

// Channel is a discovered creator with what was observed about it.
type Channel struct {
	Creator     creator.Creator
	Observation Observation
	ObservedAt  time.Time
}

// Category pairs our category id with the YouTube video category id.
type Category struct {
	ID        string `json:"id" yaml:"id"`
	YouTubeID string `json:"youtube_id" yaml:"youtube_id"`
}

// Categories are the discovery categories in sync order.
var Categories = []Category{
	{ID: "entertainment", YouTubeID: "24"},
	{ID: "gaming", YouTubeID: "20"},
	{ID: "education", YouTubeID: "27"},
	{ID: "tech", YouTubeID: "28"},
	{ID: "music", YouTubeID: "10"},
	{ID: "lifestyle", YouTubeID: "22"},
	{ID: "economy", YouTubeID: "25"},
}

// Regions are the YouTube region codes synced by default.
var Regions = []string{"US", "KR", "JP", "IN", "BR", "ID", "MX"}

// LookupCategory finds a category by our id.
func LookupCategory(id string) (Category, bool) {
	for _, c := range Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

var languages = map[string]string{
	"KR": "ko",
	"JP": "ja",
	"IN": "hi",
	"BR": "pt",
	"ID": "id",
	"MX": "es",
}

// Language returns the relevanceLanguage used for a region, "en" if unknown.
func Language(region string) string {
	if l, ok := languages[region]; ok {
		return l
	}
	return "en"
}

var queries = map[string]map[string]string{
	"KR": {
		"entertainment": "예능 인기 급상승", "gaming": "게임 하이라이트 트랜드", "education": "자기계발 지식",
		"tech": "언박싱 IT 리뷰", "music": "뮤직비디오 인기", "lifestyle": "브이로그 추천", "economy": "주식 경제 전망",
	},
	"JP": {
		"entertainment": "バラエティ 人気", "gaming": "ゲーム実況 トレンド", "education": "教養 知識",
		"tech": "ガジェット レビュー", "music": "ミュージックビデオ", "lifestyle": "日常 VLOG", "economy": "経済 ニュース 投資",
	},
	"IN": {
		"entertainment": "trending entertainment india", "gaming": "gaming highlights india", "education": "upsc science knowledge",
		"tech": "gadget review hindi", "music": "new hindi songs", "lifestyle": "family vlogs india", "economy": "indian stock market",
	},
	"BR": {
		"entertainment": "entretenimento brasil trending", "gaming": "lives de games brasil", "education": "ciência e curiosidades",
		"tech": "tech review brasil", "music": "musica brasileira", "lifestyle": "vlogs brasileiros", "economy": "economia brasil",
	},
	"ID": {
		"entertainment": "hiburan populer indonesia", "gaming": "game seru indonesia", "education": "belajar teknologi",
		"tech": "review gadget indonesia", "music": "lagu hits indonesia", "lifestyle": "vlog harian", "economy": "ekonomi bisnis indonesia",
	},
	"MX": {
		"entertainment": "entretenimiento popular", "gaming": "partidas de juegos", "education": "educación y ciencia",
		"tech": "reseña de tecnología", "music": "musica mexicana", "lifestyle": "vlogs de vida", "economy": "economía méxico",
	},
	"US": {
		"entertainment": "entertainment trending", "gaming": "gaming highlights", "education": "documentary deep dive",
		"tech": "tech gadgets review", "music": "trending music videos", "lifestyle": "lifestyle vlogs", "economy": "global economy market",
	},
}

// SearchQuery returns the localized search phrase for a category in a
// region, falling back to the US phrase.
func SearchQuery(category, region string) string {
	if q, ok := queries[region][category]; ok {
		return q
	}
	return queries["US"][category]
}

// Source discovers channels for one region and category.
type Source interface {
	Name() string
	Collect(ctx context.Context, region string, cat Category) ([]Channel, error)
}
