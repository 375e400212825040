package rank

import (
	"math/rand/v2"
	"time"

	"github.com/elonfeng/playaura/pkg/creator"
)

// Demo refresh ranges, inclusive.
const (
	jitterSubsMin    = -20_000
	jitterSubsMax    = 30_000
	jitterViewsMin   = -20_000_000
	jitterViewsMax   = 35_000_000
	jitterUploadsMin = -1
	jitterUploadsMax = 1
)

// Jitter returns copies of creators with their weekly deltas randomly nudged,
// as a stand-in for a live refresh. Values are floored at zero and
// LastUpdatedAt is set to now. The result must be re-scored.
func Jitter(creators []creator.Creator, rng *rand.Rand, now time.Time) []creator.Creator {
	out := make([]creator.Creator, len(creators))
	for i, c := range creators {
		s := c.Stats
		s.SubsDelta7d = creator.Int(nudge(rng, creator.Value(s.SubsDelta7d), jitterSubsMin, jitterSubsMax))
		s.ViewsDelta7d = creator.Int(nudge(rng, creator.Value(s.ViewsDelta7d), jitterViewsMin, jitterViewsMax))
		s.Uploads7d = creator.Int(nudge(rng, creator.Value(s.Uploads7d), jitterUploadsMin, jitterUploadsMax))
		c.Stats = s
		c.LastUpdatedAt = now
		out[i] = c
	}
	return out
}

func nudge(rng *rand.Rand, v, lo, hi int64) int64 {
	v += lo + rng.Int64N(hi-lo+1)
	return max(v, 0)
}
