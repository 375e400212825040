// Package rank runs the creator pipeline: score, filter corporate channels,
// correlate, then select and lay out the result.
package rank

import (
	"context"
	"math/rand/v2"
	"runtime"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/elonfeng/playaura/internal/metrics"
	"github.com/elonfeng/playaura/pkg/correlate"
	"github.com/elonfeng/playaura/pkg/creator"
	"github.com/elonfeng/playaura/pkg/curate"
	"github.com/elonfeng/playaura/pkg/graph"
	"github.com/elonfeng/playaura/pkg/hot"
)

// DefaultCategoryWeights are the strategic multipliers per category.
var DefaultCategoryWeights = map[string]float64{
	"entertainment": 1.0,
	"gaming":        0.9,
	"education":     1.1,
	"tech":          1.2,
	"music":         1.0,
	"lifestyle":     1.0,
	"economy":       1.3,
}

// Lister loads the current creator snapshot.
type Lister interface {
	ListCreators(ctx context.Context) ([]creator.Creator, error)
}

// Config assembles the pipeline stages.
type Config struct {
	Weights         hot.Weights
	Hot             hot.Params
	CategoryWeights map[string]float64
	// Workers bounds scoring and classification concurrency.
	Workers     int
	Classifier  *curate.Classifier
	Correlation correlate.Config
	Graph       graph.Params
	Now         func() time.Time
	Metrics     *metrics.Metrics
}

// Engine ranks creators read from a Lister.
type Engine struct {
	lister          Lister
	scorer          *hot.Scorer
	weights         hot.Weights
	categoryWeights map[string]float64
	workers         int
	classifier      *curate.Classifier
	correlator      *correlate.Correlator
	graphParams     graph.Params
	metrics         *metrics.Metrics
	log             *zap.SugaredLogger
}

// NewEngine creates a pipeline over l.
func NewEngine(l Lister, cfg Config, log *zap.SugaredLogger) *Engine {
	if cfg.Weights.Sum() == 0 {
		cfg.Weights = hot.DefaultWeights
	}
	if cfg.CategoryWeights == nil {
		cfg.CategoryWeights = DefaultCategoryWeights
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.Classifier == nil {
		cfg.Classifier = curate.NewClassifier(curate.DefaultRules())
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New(nil)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	cw := make(map[string]float64, len(cfg.CategoryWeights))
	for k, v := range cfg.CategoryWeights {
		cw[strings.ToLower(k)] = v
	}

	return &Engine{
		lister:          l,
		scorer:          hot.NewScorer(cfg.Hot, cfg.Now),
		weights:         cfg.Weights,
		categoryWeights: cw,
		workers:         cfg.Workers,
		classifier:      cfg.Classifier,
		correlator:      correlate.New(cfg.Correlation),
		graphParams:     cfg.Graph,
		metrics:         cfg.Metrics,
		log:             log,
	}
}

// Weights returns the configured long-form weights.
func (e *Engine) Weights() hot.Weights { return e.weights }

// CategoryWeight returns the multiplier for a category, or 1 when unknown.
func (e *Engine) CategoryWeight(category string) float64 {
	if w, ok := e.categoryWeights[strings.ToLower(category)]; ok {
		return w
	}
	return 1
}

// CategoryWeights returns a copy of the category multipliers.
func (e *Engine) CategoryWeights() map[string]float64 {
	out := make(map[string]float64, len(e.categoryWeights))
	for k, v := range e.categoryWeights {
		out[k] = v
	}
	return out
}

// Classifier exposes the corporate filter in use.
func (e *Engine) Classifier() *curate.Classifier { return e.classifier }

// Score returns scored copies of creators, fanned out over the worker pool.
func (e *Engine) Score(ctx context.Context, creators []creator.Creator) ([]creator.Creator, error) {
	out, _, err := e.scoreAndClassify(ctx, creators, false)
	return out, err
}

// scoreAndClassify scores every creator and, when classify is set, marks
// which ones the corporate filter rejects.
func (e *Engine) scoreAndClassify(ctx context.Context, creators []creator.Creator, classify bool) ([]creator.Creator, []bool, error) {
	out := make([]creator.Creator, len(creators))
	corporate := make([]bool, len(creators))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range creators {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c := creators[i]
			out[i] = e.scorer.Score(c, e.weights, e.CategoryWeight(c.CategoryID))
			if classify {
				corporate[i] = e.classifier.IsCorporate(c)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, errors.Wrap(err, "score creators")
	}
	return out, corporate, nil
}

// Process scores, filters and correlates a creator set without a store.
func (e *Engine) Process(ctx context.Context, creators []creator.Creator, includeCorporate bool) ([]creator.Creator, error) {
	scored, corporate, err := e.scoreAndClassify(ctx, creators, !includeCorporate)
	if err != nil {
		return nil, err
	}

	kept := scored
	if !includeCorporate {
		kept = make([]creator.Creator, 0, len(scored))
		for i, c := range scored {
			if !corporate[i] {
				kept = append(kept, c)
			}
		}
		if dropped := len(scored) - len(kept); dropped > 0 {
			e.metrics.CorporateExcluded.Add(float64(dropped))
			e.log.Debugw("excluded corporate channels", "count", dropped)
		}
	}

	if e.correlator.Skips(len(kept)) {
		e.metrics.CorrelationSkipped.Inc()
		e.log.Warnw("correlation skipped, creator set too large", "count", len(kept))
	}
	return e.correlator.Correlate(kept), nil
}

// Rank loads the snapshot, runs the pipeline and applies q.
func (e *Engine) Rank(ctx context.Context, q Query) ([]creator.Creator, error) {
	start := time.Now()
	defer metrics.ObserveSince(e.metrics.RankDuration, start)

	creators, err := e.lister.ListCreators(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list creators")
	}

	processed, err := e.Process(ctx, creators, q.IncludeCorporate)
	if err != nil {
		return nil, err
	}
	e.metrics.CreatorsRanked.Set(float64(len(processed)))

	out := q.Apply(processed)
	e.log.Debugw("ranked creators", "total", len(creators), "kept", len(processed), "returned", len(out))
	return out, nil
}

// Related returns the ranked creators linked to id, in correlation order.
func (e *Engine) Related(ctx context.Context, id string) ([]creator.Creator, error) {
	all, err := e.Rank(ctx, Query{})
	if err != nil {
		return nil, err
	}

	byID := make(map[string]creator.Creator, len(all))
	for _, c := range all {
		byID[c.ID] = c
	}
	subject, ok := byID[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "creator %s", id)
	}

	out := make([]creator.Creator, 0, len(subject.RelatedIDs))
	for _, rid := range subject.RelatedIDs {
		if c, ok := byID[rid]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// ErrNotFound is returned when a creator id is not in the ranked set.
var ErrNotFound = errors.New("not found")

// GraphResult is one layout frame.
type GraphResult struct {
	Nodes []graph.Node `json:"nodes"`
	Links []graph.Link `json:"links"`
	Ticks int          `json:"ticks"`
}

// Graph lays out the creators selected by q after ticks relaxation steps.
// rng seeds the initial jitter and may be nil.
func (e *Engine) Graph(ctx context.Context, q Query, ticks int, rng *rand.Rand) (GraphResult, error) {
	creators, err := e.Rank(ctx, q)
	if err != nil {
		return GraphResult{}, err
	}
	return e.Layout(ctx, creators, ticks, rng)
}

// NewLayout seeds a live simulation over already ranked creators.
func (e *Engine) NewLayout(creators []creator.Creator, rng *rand.Rand) *graph.Layout {
	return graph.New(creators, e.graphParams, rng)
}

// Layout relaxes a graph over already ranked creators.
func (e *Engine) Layout(ctx context.Context, creators []creator.Creator, ticks int, rng *rand.Rand) (GraphResult, error) {
	l := e.NewLayout(creators, rng)
	for i := 0; i < ticks; i++ {
		if i%100 == 0 {
			if err := ctx.Err(); err != nil {
				return GraphResult{}, errors.Wrap(err, "layout")
			}
		}
		l.Tick()
	}
	return GraphResult{Nodes: l.Nodes(), Links: l.Links(), Ticks: l.Ticks()}, nil
}
