// Package hot computes the 0-100 momentum score of a creator channel from its
// trailing 7-day telemetry.
package hot

import (
	"math"
	"time"

	"github.com/elonfeng/playaura/pkg/creator"
)

// Params are the empirically tuned constants of the decay stage.
type Params struct {
	// Gravity is the exponent of the freshness decay 1/(hours+2)^Gravity.
	Gravity float64 `yaml:"gravity"`
	// Recenter scales decayed scores back into a usable 0-100 band.
	Recenter float64 `yaml:"recenter"`
	// Shorts replaces the caller's weights for shorts-format channels.
	Shorts Weights `yaml:"shorts_weights"`
}

// DefaultParams returns gravity 1.8, recenter 4 and the shorts profile.
func DefaultParams() Params {
	return Params{Gravity: 1.8, Recenter: 4, Shorts: ShortsWeights}
}

// Options are the cross-cutting multipliers for a single computation.
type Options struct {
	LastUpdatedAt  time.Time
	AdminBoost     float64
	CategoryWeight float64
	Format         creator.Format
}

// Result is the outcome of scoring one channel.
type Result struct {
	HotScore  int
	Breakdown creator.Breakdown
}

// Scorer scores channels against an injected clock.
type Scorer struct {
	params Params
	now    func() time.Time
}

// NewScorer creates a scorer. A nil clock defaults to time.Now.
func NewScorer(p Params, now func() time.Time) *Scorer {
	if now == nil {
		now = time.Now
	}
	if p.Gravity <= 0 || math.IsNaN(p.Gravity) {
		p.Gravity = 1.8
	}
	if p.Recenter <= 0 || math.IsNaN(p.Recenter) {
		p.Recenter = 4
	}
	if p.Shorts.Sum() == 0 {
		p.Shorts = ShortsWeights
	}
	return &Scorer{params: p, now: now}
}

// Compute scores stats at the scorer's current time.
func (s *Scorer) Compute(stats creator.ChannelStats, w Weights, opts Options) Result {
	return computeAt(s.now(), s.params, stats, w, opts)
}

// Score applies Compute to c and returns the scored copy.
func (s *Scorer) Score(c creator.Creator, w Weights, categoryWeight float64) creator.Creator {
	r := s.Compute(c.Stats, w, Options{
		LastUpdatedAt:  c.LastUpdatedAt,
		AdminBoost:     c.AdminBoost,
		CategoryWeight: categoryWeight,
		Format:         c.Format,
	})
	c.HotScore = r.HotScore
	c.Breakdown = r.Breakdown
	return c
}

// Compute is the pure form of Scorer.Compute with default params.
func Compute(now time.Time, stats creator.ChannelStats, w Weights, opts Options) Result {
	return computeAt(now, DefaultParams(), stats, w, opts)
}

func computeAt(now time.Time, p Params, stats creator.ChannelStats, w Weights, opts Options) Result {
	if opts.Format == creator.FormatShorts {
		w = p.Shorts
	}
	nw := w.Normalize()

	subs := subsScore(creator.Value(stats.SubsDelta7d))
	views := viewsScore(creator.Value(stats.ViewsDelta7d))
	rate := GrowthRate(stats)
	growth := growthScore(rate)
	uploads := uploadScore(creator.Value(stats.Uploads7d))

	raw := nw.A*subs + nw.B*views + nw.C*growth + nw.D*uploads

	decay := Decay(now, opts.LastUpdatedAt, p.Gravity)
	raw *= decay * p.Recenter

	final := raw * multiplier(opts.AdminBoost) * multiplier(opts.CategoryWeight)
	if math.IsNaN(final) {
		final = 0
	}

	return Result{
		HotScore: int(clamp(math.Round(final), 0, 100)),
		Breakdown: creator.Breakdown{
			Subs:       int(math.Round(subs)),
			Views:      int(math.Round(views)),
			Growth:     int(math.Round(growth)),
			Uploads:    int(math.Round(uploads)),
			GrowthRate: rate,
			Decay:      decay,
		},
	}
}

// GrowthRate is how many multiples of the channel's normal weekly audience
// were earned this week.
func GrowthRate(stats creator.ChannelStats) float64 {
	views := float64(creator.Value(stats.ViewsDelta7d))
	avg := finite(creator.FloatValue(stats.AvgViewsPerVideo28d))
	uploads := math.Max(1, float64(creator.Value(stats.Uploads7d)))
	baseline := math.Max(1, avg*uploads)
	return views / baseline
}

// Decay is 1/(hours+2)^gravity with hours since lastUpdated floored at zero.
// A zero lastUpdated is treated as fresh.
func Decay(now, lastUpdated time.Time, gravity float64) float64 {
	hours := 0.0
	if !lastUpdated.IsZero() {
		hours = math.Max(0, now.Sub(lastUpdated).Hours())
	}
	return 1 / math.Pow(hours+2, gravity)
}

func subsScore(delta int64) float64 {
	if delta <= 0 {
		return 0
	}
	return clamp(math.Log10(math.Max(10, float64(delta)))*18, 0, 100)
}

func viewsScore(delta int64) float64 {
	if delta <= 0 {
		return 0
	}
	return clamp(math.Log10(math.Max(1000, float64(delta)))*16, 0, 100)
}

func growthScore(rate float64) float64 {
	if math.IsNaN(rate) {
		rate = 0
	}
	return clamp(50+math.Log2(math.Max(0.25, rate))*25, 0, 100)
}

func uploadScore(uploads int64) float64 {
	u := math.Max(0, float64(uploads))
	return clamp(u/7*100, 0, 100)
}

// multiplier coerces unset, non-positive and non-finite boosts to 1.
func multiplier(v float64) float64 {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 1
	}
	return v
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clamp(n, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, n))
}
