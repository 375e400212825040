// Package curate separates individual creators from institutional, news and
// corporate channels.
//
// The classifier is an additive scorer: every rule contributes points to one
// accumulator and no rule can short-circuit another, so creator credits can
// rescue a channel that tripped a lexical penalty.
package curate

import (
	"regexp"
	"strings"

	"github.com/elonfeng/playaura/pkg/creator"
)

// Signal is one rule that fired, with the points it contributed.
type Signal struct {
	Rule   string `json:"rule"`
	Points int    `json:"points"`
}

// Verdict is the outcome of classifying one channel.
type Verdict struct {
	Score     int      `json:"score"`
	Corporate bool     `json:"corporate"`
	Signals   []Signal `json:"signals,omitempty"`
}

// features is the normalized view of a creator that rules read.
type features struct {
	name        string
	description string
	// prose is description with links removed, so domains such as
	// twitch.tv do not read as words.
	prose       string
	category    string
	videos      int64
	subscribers int64
	engagement  float64
}

// rule contributes points for a feature set; zero means it did not fire.
type rule struct {
	name string
	eval func(f *features) int
}

// Classifier evaluates compiled rules against creators. It is safe for
// concurrent use.
type Classifier struct {
	rules     []rule
	threshold int
}

// NewClassifier compiles r into an evaluator.
func NewClassifier(r Rules) *Classifier {
	if r.Threshold == 0 {
		r.Threshold = DefaultThreshold
	}
	if r.Points == (Points{}) {
		r.Points = DefaultPoints()
	}
	critical := flatten(r.Critical)
	contextual := flatten(r.Contextual)
	shield := append(flatten(r.Shield), lower(r.Whitelist)...)
	platforms := lower(r.Platforms)
	p := r.Points

	rules := []rule{
		{"critical_name", when(func(f *features) bool { return containsAny(f.name, critical) }, p.CriticalName)},
		{"critical_description", when(func(f *features) bool { return containsAny(f.description, critical) }, p.CriticalDescription)},
		{"contextual", when(func(f *features) bool {
			return containsWord(f.name, contextual) || containsWord(f.prose, contextual)
		}, p.Contextual)},
		{"high_volume", when(func(f *features) bool { return f.videos > highVolumeVideos }, p.HighVolume)},
		{"mid_volume", when(func(f *features) bool {
			return f.videos > midVolumeVideos && f.videos <= highVolumeVideos
		}, p.MidVolume)},
		{"dead_engagement", when(func(f *features) bool {
			return f.subscribers > deadChannelSubs && f.engagement < deadChannelRatio
		}, p.DeadEngagement)},
		{"category_prior", func(f *features) int { return r.CategoryPriors[f.category] }},
		{"creator_shield", when(func(f *features) bool {
			return containsWord(f.name, shield) || containsWord(f.prose, shield)
		}, p.Shield)},
		{"personal_platform", when(func(f *features) bool { return containsAny(f.description, platforms) }, p.Platform)},
		{"high_engagement", when(func(f *features) bool {
			return f.subscribers > engagedSubs && f.engagement > engagedRatio
		}, p.HighEngagement)},
	}
	if r.ScopePrefix != nil {
		re := r.ScopePrefix
		rules = append(rules, rule{"scope_prefix", when(func(f *features) bool { return re.MatchString(f.name) }, p.ScopePrefix)})
	}

	return &Classifier{rules: rules, threshold: r.Threshold}
}

// Threshold returns the corporate cut-off score.
func (c *Classifier) Threshold() int { return c.threshold }

// Evaluate scores c against every rule.
func (c *Classifier) Evaluate(cr creator.Creator) Verdict {
	desc := strings.ToLower(cr.Description)
	f := &features{
		name:        strings.ToLower(cr.Name),
		description: desc,
		prose:       linkPattern.ReplaceAllString(desc, " "),
		category:    strings.ToLower(cr.CategoryID),
		videos:      creator.Value(cr.Stats.TotalVideos),
		subscribers: creator.Value(cr.Stats.Subscribers),
		engagement:  cr.Stats.EngagementRatio(),
	}

	var v Verdict
	for _, r := range c.rules {
		if pts := r.eval(f); pts != 0 {
			v.Score += pts
			v.Signals = append(v.Signals, Signal{Rule: r.name, Points: pts})
		}
	}
	v.Corporate = v.Score >= c.threshold
	return v
}

// IsCorporate reports whether cr scores at or above the threshold.
func (c *Classifier) IsCorporate(cr creator.Creator) bool {
	return c.Evaluate(cr).Corporate
}

// Exclude returns the creators that are not corporate, preserving order.
func (c *Classifier) Exclude(creators []creator.Creator) []creator.Creator {
	out := make([]creator.Creator, 0, len(creators))
	for _, cr := range creators {
		if !c.IsCorporate(cr) {
			out = append(out, cr)
		}
	}
	return out
}

var defaultClassifier = NewClassifier(DefaultRules())

// IsCorporateChannel classifies cr with the default rules.
func IsCorporateChannel(cr creator.Creator) bool {
	return defaultClassifier.IsCorporate(cr)
}

func when(pred func(f *features) bool, points int) func(f *features) int {
	return func(f *features) int {
		if pred(f) {
			return points
		}
		return 0
	}
}

func containsAny(text string, keywords []string) bool {
	if text == "" {
		return false
	}
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

var linkPattern = regexp.MustCompile(
	`(?:https?://|www\.)\S+|[a-z0-9-]+(?:\.[a-z0-9-]+)*\.(?:com|net|org|tv|gg|io|me|kr|ly|co)\b\S*`)

// shortKeyword is the length at or below which a latin keyword must also end
// on a word boundary.
const shortKeyword = 3

// containsWord is containsAny for prose. Latin keywords must start on a word
// boundary, and short ones must end on one too; other scripts match anywhere
// since Korean attaches particles directly to nouns.
func containsWord(text string, keywords []string) bool {
	if text == "" {
		return false
	}
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if !isLatin(kw) {
			if strings.Contains(text, kw) {
				return true
			}
			continue
		}
		for from := 0; from < len(text); {
			i := strings.Index(text[from:], kw)
			if i < 0 {
				break
			}
			start, end := from+i, from+i+len(kw)
			if (start == 0 || !isWordByte(text[start-1])) &&
				(len(kw) > shortKeyword || end == len(text) || !isWordByte(text[end])) {
				return true
			}
			from = start + 1
		}
	}
	return false
}

func isLatin(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

func flatten(set KeywordSet) []string {
	var out []string
	for _, words := range set {
		out = append(out, lower(words)...)
	}
	return out
}

func lower(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = strings.ToLower(strings.TrimSpace(w))
	}
	return out
}
