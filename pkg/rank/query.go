package rank

import (
	"sort"
	"strings"

	"github.com/elonfeng/playaura/pkg/creator"
)

// SortKey orders a ranked list.
type SortKey string

const (
	SortHot    SortKey = "hot"
	SortSubs   SortKey = "subs"
	SortGrowth SortKey = "growth"
)

// ParseSort maps a user-supplied key to a SortKey, defaulting to SortHot.
func ParseSort(s string) SortKey {
	switch SortKey(strings.ToLower(strings.TrimSpace(s))) {
	case SortSubs:
		return SortSubs
	case SortGrowth:
		return SortGrowth
	default:
		return SortHot
	}
}

// Query selects and orders creators from a ranked set.
type Query struct {
	Region           string
	Category         string
	Format           creator.Format
	Search           string
	Sort             SortKey
	Limit            int
	IncludeCorporate bool
}

// Match reports whether c passes every filter of q.
func (q Query) Match(c creator.Creator) bool {
	if q.Region != "" && !strings.EqualFold(q.Region, c.Region) {
		return false
	}
	if q.Category != "" && !strings.EqualFold(q.Category, c.CategoryID) {
		return false
	}
	if q.Format != "" && q.Format != c.Format {
		return false
	}
	if s := strings.ToLower(strings.TrimSpace(q.Search)); s != "" {
		hay := strings.ToLower(c.Name + "\n" + c.Handle + "\n" + c.Description)
		if !strings.Contains(hay, s) {
			return false
		}
	}
	return true
}

// Apply filters, sorts and limits creators. The input is not modified.
func (q Query) Apply(creators []creator.Creator) []creator.Creator {
	out := make([]creator.Creator, 0, len(creators))
	for _, c := range creators {
		if q.Match(c) {
			out = append(out, c)
		}
	}

	less := byKey(q.Sort)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// byKey returns a descending comparator. Ties fall back to hot score.
func byKey(k SortKey) func(a, b creator.Creator) bool {
	switch k {
	case SortSubs:
		return func(a, b creator.Creator) bool {
			sa, sb := creator.Value(a.Stats.Subscribers), creator.Value(b.Stats.Subscribers)
			if sa != sb {
				return sa > sb
			}
			return a.HotScore > b.HotScore
		}
	case SortGrowth:
		return func(a, b creator.Creator) bool {
			if a.Breakdown.GrowthRate != b.Breakdown.GrowthRate {
				return a.Breakdown.GrowthRate > b.Breakdown.GrowthRate
			}
			return a.HotScore > b.HotScore
		}
	default:
		return func(a, b creator.Creator) bool { return a.HotScore > b.HotScore }
	}
}
