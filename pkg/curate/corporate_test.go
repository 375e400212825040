package curate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/playaura/pkg/creator"
)

func TestIsCorporateChannel(t *testing.T) {
	tests := []struct {
		name    string
		creator creator.Creator
		want    bool
	}{
		{
			name: "broadcaster news channel",
			creator: creator.Creator{
				Name:        "SBS 뉴스",
				Description: "SBS 뉴스 공식 유튜브 채널입니다. 무단전재 및 재배포 금지",
				CategoryID:  "news",
			},
			want: true,
		},
		{
			name:    "whitelisted creator bare",
			creator: creator.Creator{Name: "침착맨"},
			want:    false,
		},
		{
			name: "whitelisted creator with broadcast wording",
			creator: creator.Creator{
				Name:        "침착맨",
				Description: "침착맨의 방송 다시보기 채널",
				CategoryID:  "entertainment",
			},
			want: false,
		},
		{
			name: "volume penalty alone stays below threshold",
			creator: creator.Creator{
				Name:  "Mellow Pebble",
				Stats: creator.ChannelStats{TotalVideos: creator.Int(8001)},
			},
			want: false,
		},
		{
			name: "volume penalty plus news category",
			creator: creator.Creator{
				Name:       "Mellow Pebble",
				CategoryID: "news",
				Stats:      creator.ChannelStats{TotalVideos: creator.Int(8001)},
			},
			want: true,
		},
		{
			name: "youtube numeric news category",
			creator: creator.Creator{
				Name:       "Mellow Pebble",
				CategoryID: "25",
				Stats:      creator.ChannelStats{TotalVideos: creator.Int(50_000)},
			},
			want: true,
		},
		{
			name: "gaming vlogger with socials",
			creator: creator.Creator{
				Name:        "Pixel Pals",
				Description: "gameplay and reaction videos! instagram.com/pixelpals",
				CategoryID:  "gaming",
				Stats: creator.ChannelStats{
					Subscribers:         creator.Int(300_000),
					AvgViewsPerVideo28d: creator.Float(120_000),
				},
			},
			want: false,
		},
		{
			name: "scoped institutional name with zombie audience",
			creator: creator.Creator{
				Name:        "Korea Daily",
				Description: "The official channel.",
				Stats: creator.ChannelStats{
					Subscribers:         creator.Int(2_000_000),
					AvgViewsPerVideo28d: creator.Float(3_000),
					TotalVideos:         creator.Int(4_000),
				},
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCorporateChannel(tt.creator))
		})
	}
}

func TestEvaluate_VolumeBoundary(t *testing.T) {
	c := NewClassifier(DefaultRules())
	for videos, want := range map[int64]int{
		3000:   0,
		3001:   20,
		8000:   20,
		8001:   40,
		50_000: 40,
	} {
		v := c.Evaluate(creator.Creator{Name: "Mellow Pebble", Stats: creator.ChannelStats{TotalVideos: creator.Int(videos)}})
		assert.Equal(t, want, v.Score, "videos %d", videos)
	}
}

func TestEvaluate_SignalsSumToScore(t *testing.T) {
	c := NewClassifier(DefaultRules())
	v := c.Evaluate(creator.Creator{
		Name:        "Korea Daily",
		Description: "The official channel. follow us on twitch.tv/kd",
		CategoryID:  "education",
		Stats: creator.ChannelStats{
			Subscribers:         creator.Int(2_000_000),
			AvgViewsPerVideo28d: creator.Float(3_000),
			TotalVideos:         creator.Int(9_000),
		},
	})

	total := 0
	rules := map[string]int{}
	for _, s := range v.Signals {
		total += s.Points
		rules[s.Rule] = s.Points
	}
	assert.Equal(t, v.Score, total)
	assert.Equal(t, map[string]int{
		"critical_name":        30,
		"critical_description": 15,
		"contextual":           10,
		"scope_prefix":         15,
		"high_volume":          40,
		"dead_engagement":      20,
		"category_prior":       10,
		"personal_platform":    -20,
	}, rules)
	assert.True(t, v.Corporate)
}

func TestEvaluate_CreditsRescueLexicalPenalty(t *testing.T) {
	c := NewClassifier(DefaultRules())
	base := creator.Creator{Name: "Daily Dose", CategoryID: "entertainment"}

	penalised := c.Evaluate(base)
	require.Equal(t, 20, penalised.Score)

	base.Description = "daily vlog + asmr, discord.gg/dose"
	base.Stats = creator.ChannelStats{Subscribers: creator.Int(50_000), AvgViewsPerVideo28d: creator.Float(20_000)}
	rescued := c.Evaluate(base)

	// +30 name, +15 description, -10 category, -20 shield, -20 platform, -20 engagement
	assert.Equal(t, -25, rescued.Score)
	assert.False(t, rescued.Corporate)
}

func TestEvaluate_UnknownStatsContributeNothing(t *testing.T) {
	v := NewClassifier(DefaultRules()).Evaluate(creator.Creator{Name: "Mellow Pebble"})
	assert.Equal(t, Verdict{}, v)
}

func TestRules_Extend(t *testing.T) {
	rules := DefaultRules().Extend([]string{"Mellow"}, nil, nil, []string{"pebble"})
	c := NewClassifier(rules)

	v := c.Evaluate(creator.Creator{Name: "Mellow Pebble"})
	// +30 critical name, -20 whitelist
	assert.Equal(t, 10, v.Score)
	assert.NotContains(t, DefaultRules().Critical, "custom")
}

func TestClassifier_Threshold(t *testing.T) {
	rules := DefaultRules()
	rules.Threshold = 40
	c := NewClassifier(rules)
	assert.Equal(t, 40, c.Threshold())

	cr := creator.Creator{Name: "Mellow Pebble", Stats: creator.ChannelStats{TotalVideos: creator.Int(8001)}}
	assert.True(t, c.IsCorporate(cr))
	assert.False(t, IsCorporateChannel(cr))
}

func TestClassifier_Exclude(t *testing.T) {
	c := NewClassifier(DefaultRules())
	in := []creator.Creator{
		{ID: "a", Name: "Pixel Pals"},
		{ID: "b", Name: "SBS 뉴스", Description: "SBS 뉴스 공식 채널", CategoryID: "news"},
		{ID: "c", Name: "침착맨"},
	}

	out := c.Exclude(in)

	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, "c", out[1].ID)
	assert.Len(t, in, 3)
}

func TestEvaluate_LinksAndWordFragments(t *testing.T) {
	c := NewClassifier(DefaultRules())
	signals := func(cr creator.Creator) map[string]int {
		out := map[string]int{}
		for _, s := range c.Evaluate(cr).Signals {
			out[s.Rule] = s.Points
		}
		return out
	}

	streamer := signals(creator.Creator{Name: "Mellow Pebble", Description: "live most nights on twitch.tv/mellow"})
	assert.NotContains(t, streamer, "contextual", "a domain is not the word tv")
	assert.Equal(t, -20, streamer["personal_platform"])

	explorer := signals(creator.Creator{Name: "Mellow Pebble", Description: "discover hidden trails with us"})
	assert.NotContains(t, explorer, "creator_shield", "discover is not cover")

	assert.NotContains(t, signals(creator.Creator{Name: "Lawson Eats"}), "contextual")
	assert.NotContains(t, signals(creator.Creator{Name: "Mellow Pebble", Description: "links: https://example.com/vlog"}), "creator_shield")

	assert.Equal(t, 10, signals(creator.Creator{Name: "Mellow Pebble", Description: "retro tv repairs"})["contextual"])
	assert.Equal(t, 10, signals(creator.Creator{Name: "MBC TV"})["contextual"])
	assert.Equal(t, 10, signals(creator.Creator{Name: "부동산채널"})["contextual"], "hangul matches inside words")
	assert.Equal(t, -20, signals(creator.Creator{Name: "Mellow Pebble", Description: "piano covers and vlogs"})["creator_shield"])
}

func TestContainsWord(t *testing.T) {
	kw := []string{"tv", "cover"}
	assert.True(t, containsWord("tv", kw))
	assert.True(t, containsWord("kbs tv조선", kw))
	assert.True(t, containsWord("covers weekly", kw))
	assert.False(t, containsWord("tvs", []string{"tv"}))
	assert.False(t, containsWord("discover", kw))
	assert.False(t, containsWord("", kw))
}
