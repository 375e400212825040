package curate

import "regexp"

// KeywordSet is a keyword list grouped by locale. Matching is
// case-insensitive substring containment, regardless of locale.
type KeywordSet map[string][]string

// Rules is the declarative table the classifier is compiled from. New
// locales and keywords are data: add them here or through configuration.
type Rules struct {
	Critical   KeywordSet
	Contextual KeywordSet
	Shield     KeywordSet
	Platforms  []string
	Whitelist  []string

	// ScopePrefix matches names that open with a region or scope token.
	ScopePrefix *regexp.Regexp

	// CategoryPriors maps a category id (ours or YouTube's numeric id) to an
	// additive offset.
	CategoryPriors map[string]int

	Points    Points
	Threshold int
}

// Points are the per-signal weights of the additive score.
type Points struct {
	CriticalName        int
	CriticalDescription int
	Contextual          int
	ScopePrefix         int
	HighVolume          int
	MidVolume           int
	DeadEngagement      int
	Shield              int
	Platform            int
	HighEngagement      int
}

// Volume and engagement cut-offs.
const (
	highVolumeVideos = 8000
	midVolumeVideos  = 3000

	deadChannelSubs  = 100_000
	deadChannelRatio = 0.005

	engagedSubs  = 10_000
	engagedRatio = 0.2
)

// DefaultThreshold is the score at or above which a channel is institutional.
const DefaultThreshold = 60

// DefaultPoints returns the stock weights.
func DefaultPoints() Points {
	return Points{
		CriticalName:        30,
		CriticalDescription: 15,
		Contextual:          10,
		ScopePrefix:         15,
		HighVolume:          40,
		MidVolume:           20,
		DeadEngagement:      20,
		Shield:              -20,
		Platform:            -20,
		HighEngagement:      -20,
	}
}

// DefaultRules returns the stock Korean + global rule tables.
func DefaultRules() Rules {
	return Rules{
		Critical: KeywordSet{
			"kr": {
				"뉴스", "방송", "일보", "경제", "데일리", "미디어", "협회",
				"공식", "오피셜", "재배포", "무단전재", "기자", "앵커",
				"신문", "저널", "타임즈", "헤럴드", "트리뷴", "포스트", "통신", "브리핑",
				"증권", "은행", "보험", "카드",
				"ytn", "kbs", "mbc", "sbs", "jtbc", "arirang",
			},
			"global": {
				"news", "daily", "tribune", "times", "media", "broadcast", "network",
				"official", "corp", "inc.", "ltd", "press", "gazette", "chronicle",
				"journal", "report", "wire", "nbc", "abc", "cbs", "bbc", "cnn", "fox",
				"entertainment tonight", "watchmojo",
				"bank", "insurance", "securities", "invest",
				"assembly", "ministry", "police", "government", "archive",
			},
		},
		Contextual: KeywordSet{
			"kr": {
				"tv", "채널", "연구소", "포럼", "부동산", "주식", "투자",
				"법률", "세무", "병원", "의원", "클리닉", "센터", "재단",
			},
			"global": {
				"channel", "institute", "foundation", "global", "finance",
				"law", "clinic", "center", "digest",
			},
		},
		Shield: KeywordSet{
			"kr": {"브이로그", "일상", "부부", "커플", "여행", "먹방"},
			"global": {
				"vlog", "mukbang", "reaction", "review", "gameplay", "let's play",
				"sketch", "comedy", "prank", "challenge", "asmr", "drawing",
				"cover", "dance", "study with me", "grwm", "ootd", "what i eat",
				"haul", "unboxing",
			},
		},
		Platforms: []string{
			"instagram.com", "tiktok.com", "twitch.tv", "patreon.com",
			"discord.gg", "discord.com", "smartstore.naver.com",
		},
		Whitelist: []string{"침착맨", "슈카", "워크맨", "피식대학", "빠니보틀"},
		ScopePrefix: regexp.MustCompile(
			`(?i)^\s*(korea|korean|global|seoul|world|international|asia|한국|대한민국|서울|글로벌)`),
		CategoryPriors: map[string]int{
			"news":     25,
			"politics": 25,
			"economy":  25,
			"25":       25, // News & Politics

			"education": 10,
			"nonprofit": 10,
			"27":        10, // Education
			"29":        10, // Nonprofits & Activism

			"gaming":        -10,
			"entertainment": -10,
			"people":        -10,
			"lifestyle":     -10,
			"20":            -10, // Gaming
			"24":            -10, // Entertainment
			"22":            -10, // People & Blogs
		},
		Points:    DefaultPoints(),
		Threshold: DefaultThreshold,
	}
}

// Extend appends extra keywords to the given tiers under the "custom" locale.
func (r Rules) Extend(critical, contextual, shield, whitelist []string) Rules {
	r.Critical = withLocale(r.Critical, "custom", critical)
	r.Contextual = withLocale(r.Contextual, "custom", contextual)
	r.Shield = withLocale(r.Shield, "custom", shield)
	if len(whitelist) > 0 {
		r.Whitelist = append(append([]string(nil), r.Whitelist...), whitelist...)
	}
	return r
}

func withLocale(set KeywordSet, locale string, words []string) KeywordSet {
	if len(words) == 0 {
		return set
	}
	out := make(KeywordSet, len(set)+1)
	for k, v := range set {
		out[k] = v
	}
	out[locale] = append(append([]string(nil), out[locale]...), words...)
	return out
}
