package hot

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/playaura/pkg/creator"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func viralStats() creator.ChannelStats {
	return creator.ChannelStats{
		SubsDelta7d:         creator.Int(1_000_000),
		ViewsDelta7d:        creator.Int(650_000_000),
		AvgViewsPerVideo28d: creator.Float(55_000_000),
		Uploads7d:           creator.Int(1),
	}
}

func TestCompute_ViralWeekScoresHigh(t *testing.T) {
	s := NewScorer(DefaultParams(), fixedClock(t0))

	r := s.Compute(viralStats(), DefaultWeights, Options{LastUpdatedAt: t0})

	assert.GreaterOrEqual(t, r.HotScore, 90)
	assert.Equal(t, 100, r.Breakdown.Subs)
	assert.Equal(t, 100, r.Breakdown.Views)
	assert.Equal(t, 100, r.Breakdown.Growth)
	assert.Equal(t, 14, r.Breakdown.Uploads)
	assert.InDelta(t, 650.0/55.0, r.Breakdown.GrowthRate, 1e-9)
	assert.InDelta(t, 1/math.Pow(2, 1.8), r.Breakdown.Decay, 1e-12)
}

func TestCompute_ZeroStats(t *testing.T) {
	zero := creator.ChannelStats{
		SubsDelta7d:         creator.Int(0),
		ViewsDelta7d:        creator.Int(0),
		AvgViewsPerVideo28d: creator.Float(0),
		Uploads7d:           creator.Int(0),
	}
	for name, stats := range map[string]creator.ChannelStats{
		"explicit zeros": zero,
		"all unknown":    {},
	} {
		t.Run(name, func(t *testing.T) {
			r := Compute(t0, stats, DefaultWeights, Options{LastUpdatedAt: t0})
			assert.Equal(t, 0, r.HotScore)
			assert.Equal(t, creator.Breakdown{Decay: r.Breakdown.Decay}, r.Breakdown)
		})
	}
}

func TestCompute_NonPositiveDeltasScoreZero(t *testing.T) {
	for _, d := range []int64{0, -1, -5000, math.MinInt64} {
		r := Compute(t0, creator.ChannelStats{SubsDelta7d: creator.Int(d), ViewsDelta7d: creator.Int(d)}, DefaultWeights, Options{})
		assert.Equal(t, 0, r.Breakdown.Subs, "subs delta %d", d)
		assert.Equal(t, 0, r.Breakdown.Views, "views delta %d", d)
		assert.GreaterOrEqual(t, r.HotScore, 0)
	}
}

func TestCompute_LogFloors(t *testing.T) {
	r := Compute(t0, creator.ChannelStats{SubsDelta7d: creator.Int(1), ViewsDelta7d: creator.Int(1)}, DefaultWeights, Options{})
	// log10(10)*18 and log10(1000)*16
	assert.Equal(t, 18, r.Breakdown.Subs)
	assert.Equal(t, 48, r.Breakdown.Views)
}

func TestCompute_GrowthScoreShape(t *testing.T) {
	tests := []struct {
		name  string
		views int64
		avg   float64
		want  int
	}{
		{"baseline week", 1000, 1000, 50},
		{"doubled", 2000, 1000, 75},
		{"quartered floors at zero", 250, 1000, 0},
		{"collapse floors at zero", 1, 1000, 0},
		{"zero baseline uses floor of one", 4, 0, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Compute(t0, creator.ChannelStats{
				ViewsDelta7d:        creator.Int(tt.views),
				AvgViewsPerVideo28d: creator.Float(tt.avg),
			}, DefaultWeights, Options{})
			assert.Equal(t, tt.want, r.Breakdown.Growth)
		})
	}
}

func TestCompute_UploadCadenceSaturates(t *testing.T) {
	for uploads, want := range map[int64]int{0: 0, 7: 100, 30: 100, -3: 0, 3: 43} {
		r := Compute(t0, creator.ChannelStats{Uploads7d: creator.Int(uploads)}, DefaultWeights, Options{})
		assert.Equal(t, want, r.Breakdown.Uploads, "uploads %d", uploads)
	}
}

func TestCompute_BoundsHoldForPathologicalInputs(t *testing.T) {
	inputs := []creator.ChannelStats{
		{AvgViewsPerVideo28d: creator.Float(math.NaN())},
		{AvgViewsPerVideo28d: creator.Float(math.Inf(1)), ViewsDelta7d: creator.Int(math.MaxInt64)},
		{AvgViewsPerVideo28d: creator.Float(-10), ViewsDelta7d: creator.Int(10)},
		{SubsDelta7d: creator.Int(math.MaxInt64), Uploads7d: creator.Int(math.MaxInt64)},
		viralStats(),
	}
	weights := []Weights{DefaultWeights, {}, {A: -1, B: math.NaN()}, {D: math.Inf(1)}}
	opts := []Options{
		{},
		{LastUpdatedAt: t0.Add(time.Hour)},
		{AdminBoost: 1000, CategoryWeight: 1000},
		{AdminBoost: math.NaN(), CategoryWeight: -2},
		{Format: creator.FormatShorts},
	}

	for _, st := range inputs {
		for _, w := range weights {
			for _, o := range opts {
				r := Compute(t0, st, w, o)
				require.GreaterOrEqual(t, r.HotScore, 0)
				require.LessOrEqual(t, r.HotScore, 100)
				for _, sub := range []int{r.Breakdown.Subs, r.Breakdown.Views, r.Breakdown.Growth, r.Breakdown.Uploads} {
					require.GreaterOrEqual(t, sub, 0)
					require.LessOrEqual(t, sub, 100)
				}
				require.False(t, math.IsNaN(r.Breakdown.Decay))
			}
		}
	}
}

func TestNormalize(t *testing.T) {
	for _, w := range []Weights{
		DefaultWeights,
		ShortsWeights,
		{A: 1, B: 1, C: 1, D: 1},
		{A: 5},
		{A: 0.001, B: 300, C: 7, D: 0.5},
		{A: 2, B: -4, C: 2},
	} {
		n := w.Normalize()
		assert.InDelta(t, 1.0, n.A+n.B+n.C+n.D, 1e-6, "%+v", w)
	}

	zero := Weights{}.Normalize()
	assert.Equal(t, Weights{}, zero)
}

func TestCompute_DegenerateWeights(t *testing.T) {
	r := Compute(t0, viralStats(), Weights{}, Options{})
	assert.Equal(t, 0, r.HotScore)
}

func TestCompute_DecayIsMonotonic(t *testing.T) {
	stats := creator.ChannelStats{
		SubsDelta7d:         creator.Int(20_000),
		ViewsDelta7d:        creator.Int(3_000_000),
		AvgViewsPerVideo28d: creator.Float(400_000),
		Uploads7d:           creator.Int(3),
	}
	s := NewScorer(DefaultParams(), fixedClock(t0))

	prev := 101
	for h := 0; h <= 72; h++ {
		r := s.Compute(stats, DefaultWeights, Options{LastUpdatedAt: t0.Add(-time.Duration(h) * time.Hour)})
		assert.LessOrEqual(t, r.HotScore, prev, "hour %d", h)
		prev = r.HotScore
	}
	assert.Less(t, prev, 10)
}

func TestCompute_FutureTimestampCountsAsFresh(t *testing.T) {
	fresh := Compute(t0, viralStats(), DefaultWeights, Options{LastUpdatedAt: t0})
	future := Compute(t0, viralStats(), DefaultWeights, Options{LastUpdatedAt: t0.Add(48 * time.Hour)})
	assert.Equal(t, fresh, future)
}

func TestCompute_ShortsUsesAlternateProfile(t *testing.T) {
	stats := creator.ChannelStats{
		SubsDelta7d: creator.Int(100),
		Uploads7d:   creator.Int(7),
	}
	onlyCadence := Weights{D: 1}

	long := Compute(t0, stats, onlyCadence, Options{Format: creator.FormatLong})
	shorts := Compute(t0, stats, onlyCadence, Options{Format: creator.FormatShorts})

	assert.NotEqual(t, long.HotScore, shorts.HotScore)
	// shorts profile ignores the caller's cadence-only vector
	expected := ShortsWeights.Normalize()
	raw := expected.A*36 + expected.C*0 + expected.D*100
	assert.Equal(t, int(math.Round(raw*shorts.Breakdown.Decay*4)), shorts.HotScore)
}

func TestCompute_StrategicMultipliers(t *testing.T) {
	stats := creator.ChannelStats{SubsDelta7d: creator.Int(1000), ViewsDelta7d: creator.Int(50_000)}
	base := Compute(t0, stats, DefaultWeights, Options{})
	boosted := Compute(t0, stats, DefaultWeights, Options{AdminBoost: 1.5, CategoryWeight: 1.2})
	unset := Compute(t0, stats, DefaultWeights, Options{AdminBoost: 0, CategoryWeight: 0})

	assert.Greater(t, boosted.HotScore, base.HotScore)
	assert.Equal(t, base, unset)
}

func TestScorer_Score(t *testing.T) {
	s := NewScorer(Params{}, fixedClock(t0))
	c := creator.Creator{ID: "UC1", Stats: viralStats(), LastUpdatedAt: t0}

	scored := s.Score(c, DefaultWeights, 1)

	assert.Equal(t, "UC1", scored.ID)
	assert.GreaterOrEqual(t, scored.HotScore, 90)
	assert.Equal(t, 0, c.HotScore, "input is not mutated")
}
