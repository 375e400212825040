package server

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/elonfeng/playaura/internal/metrics"
	"github.com/elonfeng/playaura/internal/store"
	"github.com/elonfeng/playaura/pkg/creator"
	"github.com/elonfeng/playaura/pkg/rank"
	"github.com/elonfeng/playaura/pkg/source"
)

// Store is the persistence the API reads and edits directly.
type Store interface {
	CountCreatorsByRegion(ctx context.Context) (map[string]int, error)
	GetCreator(ctx context.Context, id string) (*creator.Creator, error)
	SetAdminBoost(ctx context.Context, id string, boost float64) error
	ListSyncRuns(ctx context.Context, limit int) ([]store.SyncRun, error)
}

// Collector triggers a telemetry sync.
type Collector interface {
	Sync(ctx context.Context) (source.SyncReport, error)
}

// Options configures a Server.
type Options struct {
	Port int
	// GraphTicks is used when a graph request names no tick count.
	GraphTicks int
	Metrics    *metrics.Metrics
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
}

// Server provides the HTTP API.
type Server struct {
	engine    *rank.Engine
	store     Store
	collector Collector
	opts      Options
	log       *zap.SugaredLogger
}

const maxGraphTicks = 2000

// New creates a new HTTP server. collector may be nil, in which case
// POST /api/v1/collect answers 503.
func New(engine *rank.Engine, st Store, collector Collector, opts Options, log *zap.SugaredLogger) *Server {
	if opts.Port == 0 {
		opts.Port = 8080
	}
	if opts.GraphTicks <= 0 {
		opts.GraphTicks = 300
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(nil)
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Server{
		engine:    engine,
		store:     st,
		collector: collector,
		opts:      opts,
		log:       log,
	}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/api/v1/creators", s.instrument("creators", http.MethodGet, s.handleCreators))
	mux.HandleFunc("/api/v1/creators/related", s.instrument("related", http.MethodGet, s.handleRelated))
	mux.HandleFunc("/api/v1/creators/boost", s.instrument("boost", http.MethodPost, s.handleBoost))
	mux.HandleFunc("/api/v1/graph", s.instrument("graph", http.MethodGet, s.handleGraph))
	mux.HandleFunc("/api/v1/regions", s.instrument("regions", http.MethodGet, s.handleRegions))
	mux.HandleFunc("/api/v1/weights", s.instrument("weights", http.MethodGet, s.handleWeights))
	mux.HandleFunc("/api/v1/collect", s.instrument("collect", http.MethodPost, s.handleCollect))
	mux.HandleFunc("/api/v1/sync-runs", s.instrument("sync_runs", http.MethodGet, s.handleSyncRuns))
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.opts.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Infow("playaura server listening", "addr", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument enforces method and records request duration.
func (s *Server) instrument(endpoint, method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		if r.Method != method {
			writeError(rec, http.StatusMethodNotAllowed, "method not allowed")
		} else {
			h(rec, r)
		}

		s.opts.Metrics.RequestDuration.
			WithLabelValues(endpoint, r.Method, strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreators(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	creators, err := s.engine.Rank(r.Context(), q)
	if err != nil {
		s.fail(w, "rank", err)
		return
	}
	writeList(w, creators)
}

func (s *Server) handleRelated(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	related, err := s.engine.Related(r.Context(), id)
	if errors.Is(err, rank.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.fail(w, "related", err)
		return
	}
	writeList(w, related)
}

type boostRequest struct {
	ID    string  `json:"id"`
	Boost float64 `json:"boost"`
}

func (s *Server) handleBoost(w http.ResponseWriter, r *http.Request) {
	var req boostRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	if !(req.Boost > 0) || math.IsInf(req.Boost, 0) {
		writeError(w, http.StatusBadRequest, "boost must be a positive number")
		return
	}

	err := s.store.SetAdminBoost(r.Context(), req.ID, req.Boost)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.fail(w, "set boost", err)
		return
	}

	c, err := s.store.GetCreator(r.Context(), req.ID)
	if err != nil {
		s.fail(w, "get creator", err)
		return
	}
	s.log.Infow("admin boost set", "creator", req.ID, "boost", req.Boost)
	writeJSON(w, http.StatusOK, map[string]any{"data": c})
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ticks := s.opts.GraphTicks
	if v := r.URL.Query().Get("ticks"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > maxGraphTicks {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("ticks must be within 0-%d", maxGraphTicks))
			return
		}
		ticks = n
	}

	var rng *rand.Rand
	if v := r.URL.Query().Get("seed"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "seed must be an unsigned integer")
			return
		}
		rng = rand.New(rand.NewPCG(seed, seed))
	}

	result, err := s.engine.Graph(r.Context(), q, ticks, rng)
	if err != nil {
		s.fail(w, "graph", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  result,
		"count": len(result.Nodes),
	})
}

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.CountCreatorsByRegion(r.Context())
	if err != nil {
		s.fail(w, "count regions", err)
		return
	}

	type regionInfo struct {
		Code     string `json:"code"`
		Creators int    `json:"creators"`
	}
	infos := make([]regionInfo, 0, len(source.Regions))
	for _, code := range source.Regions {
		infos = append(infos, regionInfo{Code: code, Creators: counts[code]})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  infos,
		"count": len(infos),
	})
}

func (s *Server) handleWeights(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"long":       s.engine.Weights(),
			"categories": s.engine.CategoryWeights(),
		},
	})
}

func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	if s.collector == nil {
		writeError(w, http.StatusServiceUnavailable, "no collector configured")
		return
	}

	report, err := s.collector.Sync(r.Context())
	if err != nil {
		s.fail(w, "collect", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  report,
		"count": report.Total,
	})
}

func (s *Server) handleSyncRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", v))
			return
		}
		limit = n
	}

	runs, err := s.store.ListSyncRuns(r.Context(), limit)
	if err != nil {
		s.fail(w, "list sync runs", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  runs,
		"count": len(runs),
	})
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	s.log.Errorw("request failed", "op", op, "error", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

func parseQuery(r *http.Request) (rank.Query, error) {
	v := r.URL.Query()
	q := rank.Query{
		Region:   v.Get("region"),
		Category: v.Get("category"),
		Search:   v.Get("q"),
		Sort:     rank.ParseSort(v.Get("sort")),
	}

	switch f := creator.Format(v.Get("format")); f {
	case "", creator.FormatLong, creator.FormatShorts:
		q.Format = f
	default:
		return q, errors.Newf("unknown format %q", f)
	}

	if l := v.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			return q, errors.Newf("invalid limit %q", l)
		}
		q.Limit = n
	}

	if c := v.Get("include_corporate"); c != "" {
		b, err := strconv.ParseBool(c)
		if err != nil {
			return q, errors.Newf("invalid include_corporate %q", c)
		}
		q.IncludeCorporate = b
	}
	return q, nil
}

func writeList(w http.ResponseWriter, creators []creator.Creator) {
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  creators,
		"count": len(creators),
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
