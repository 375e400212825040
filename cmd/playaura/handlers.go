package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/elonfeng/playaura/internal/config"
	"github.com/elonfeng/playaura/internal/metrics"
	"github.com/elonfeng/playaura/internal/scheduler"
	"github.com/elonfeng/playaura/internal/store"
	"github.com/elonfeng/playaura/pkg/alert"
	"github.com/elonfeng/playaura/pkg/creator"
	"github.com/elonfeng/playaura/pkg/curate"
	"github.com/elonfeng/playaura/pkg/graph"
	"github.com/elonfeng/playaura/pkg/rank"
	"github.com/elonfeng/playaura/pkg/server"
	"github.com/elonfeng/playaura/pkg/source"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

// newLogger builds a console or JSON logger at the configured level.
func newLogger(lc config.LogConfig) (*zap.SugaredLogger, error) {
	level, err := zapcore.ParseLevel(lc.Level)
	if err != nil {
		return nil, errors.Wrapf(err, "log level %q", lc.Level)
	}

	zc := zap.NewDevelopmentConfig()
	if lc.JSON {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.DisableStacktrace = true

	l, err := zc.Build()
	if err != nil {
		return nil, errors.Wrap(err, "build logger")
	}
	return l.Sugar(), nil
}

// app holds what every command needs.
type app struct {
	cfg     *config.Config
	log     *zap.SugaredLogger
	db      *store.SQLiteStore
	reg     *prometheus.Registry
	metrics *metrics.Metrics
	engine  *rank.Engine
}

func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	log, err := newLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return nil, errors.Wrap(err, "open store")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	return &app{
		cfg:     cfg,
		log:     log,
		db:      db,
		reg:     reg,
		metrics: m,
		engine:  buildEngine(cfg, db, m, log),
	}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.log.Warnw("close store", "error", err)
	}
	_ = a.log.Sync()
}

func buildEngine(cfg *config.Config, l rank.Lister, m *metrics.Metrics, log *zap.SugaredLogger) *rank.Engine {
	return rank.NewEngine(l, rank.Config{
		Weights:         cfg.Scoring.Weights,
		Hot:             cfg.Scoring.Hot,
		CategoryWeights: cfg.Scoring.CategoryWeights,
		Workers:         cfg.Scoring.Workers,
		Classifier:      curate.NewClassifier(cfg.Filter.Rules()),
		Correlation:     cfg.Correlation,
		Graph:           cfg.Graph.Params,
		Metrics:         m,
	}, log.Named("rank"))
}

// buildSyncer returns nil when the YouTube collector is not configured.
func buildSyncer(cfg *config.Config, sink source.Sink, m *metrics.Metrics, log *zap.SugaredLogger) (*source.Syncer, error) {
	yc := cfg.YouTube
	if !yc.Enabled || yc.APIKey == "" {
		return nil, nil
	}

	categories := make([]source.Category, 0, len(yc.Categories))
	for _, id := range yc.Categories {
		cat, ok := source.LookupCategory(id)
		if !ok {
			return nil, errors.Newf("unknown category %q", id)
		}
		categories = append(categories, cat)
	}

	opts := source.YouTubeOptions{
		APIKey:            yc.APIKey,
		BaseURL:           yc.BaseURL,
		RequestsPerSecond: yc.RequestsPerSecond,
		MaxResults:        yc.MaxResults,
	}
	if yc.CountUploads {
		opts.Feed = source.NewUploadFeed(nil, yc.FeedURL)
	}

	yt := source.NewYouTube(opts, log)
	return source.NewSyncer(yt, sink, yc.Regions, categories, m, log.Named("sync")), nil
}

func buildAlertManager(cfg *config.Config) *alert.Manager {
	var notifiers []alert.Notifier

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewSlack(cfg.Alerts.Slack.WebhookURL))
	}
	if cfg.Alerts.Discord.Enabled && cfg.Alerts.Discord.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewDiscord(cfg.Alerts.Discord.WebhookURL))
	}
	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alert.NewWebhook(cfg.Alerts.Webhook.URL, cfg.Alerts.Webhook.Secret))
	}

	return alert.NewManager(notifiers)
}

func runCollect(ctx context.Context, regions, categories []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if len(regions) > 0 {
		a.cfg.YouTube.Regions = upper(regions)
	}
	if len(categories) > 0 {
		a.cfg.YouTube.Categories = categories
	}

	syncer, err := buildSyncer(a.cfg, a.db, a.metrics, a.log)
	if err != nil {
		return err
	}
	if syncer == nil {
		return errors.New("youtube collector is not configured (set YOUTUBE_API_KEY)")
	}

	report, err := syncer.Sync(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "REGION\tCATEGORY\tSTATUS\tCHANNELS\tMESSAGE")
	for _, e := range report.Entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", e.Region, e.Category, e.Status, e.Count, e.Message)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "\ntotal: %s channels, %d failed passes\n", humanize.Comma(int64(report.Total)), report.Failed())
	return nil
}

// rankOptions are the query flags shared by rank and graph.
type rankOptions struct {
	region           string
	category         string
	format           string
	search           string
	sort             string
	limit            int
	includeCorporate bool
}

func (o *rankOptions) bind(cmd *cobra.Command, defaultLimit int) {
	cmd.Flags().StringVar(&o.region, "region", "", "region code filter")
	cmd.Flags().StringVar(&o.category, "category", "", "category filter")
	cmd.Flags().StringVar(&o.format, "format", "", "format filter (long or shorts)")
	cmd.Flags().StringVarP(&o.search, "search", "q", "", "search name, handle and description")
	cmd.Flags().StringVar(&o.sort, "sort", "hot", "sort key (hot, subs, growth)")
	cmd.Flags().IntVar(&o.limit, "limit", defaultLimit, "max creators to show (0 for all)")
	cmd.Flags().BoolVar(&o.includeCorporate, "include-corporate", false, "keep channels flagged as corporate")
}

func (o rankOptions) query() (rank.Query, error) {
	f := creator.Format(strings.ToLower(o.format))
	if f != "" && f != creator.FormatLong && f != creator.FormatShorts {
		return rank.Query{}, errors.Newf("unknown format %q", o.format)
	}
	return rank.Query{
		Region:           o.region,
		Category:         o.category,
		Format:           f,
		Search:           o.search,
		Sort:             rank.ParseSort(o.sort),
		Limit:            o.limit,
		IncludeCorporate: o.includeCorporate,
	}, nil
}

func runRank(ctx context.Context, opts rankOptions, jsonOutput bool) error {
	q, err := opts.query()
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	creators, err := a.engine.Rank(ctx, q)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(os.Stdout, creators)
	}
	if len(creators) == 0 {
		fmt.Println("no creators found (try collecting data first: playaura collect)")
		return nil
	}
	return printCreators(os.Stdout, creators)
}

func runGraph(ctx context.Context, opts rankOptions, ticks int, seed uint64, seedSet bool) error {
	q, err := opts.query()
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if ticks <= 0 {
		ticks = a.cfg.Graph.Ticks
	}
	if !seedSet {
		seed = a.cfg.Graph.Seed
	}

	var rng *rand.Rand
	if seedSet || seed != 0 {
		rng = rand.New(rand.NewPCG(seed, seed))
	}

	result, err := a.engine.Graph(ctx, q, ticks, rng)
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, result)
}

func runGraphWatch(ctx context.Context, opts rankOptions, interval time.Duration, seed uint64, seedSet bool) error {
	q, err := opts.query()
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if !seedSet {
		seed = a.cfg.Graph.Seed
	}
	var rng *rand.Rand
	if seedSet || seed != 0 {
		rng = rand.New(rand.NewPCG(seed, seed))
	}

	creators, err := a.engine.Rank(ctx, q)
	if err != nil {
		return err
	}
	l := a.engine.NewLayout(creators, rng)
	a.log.Infow("streaming layout", "nodes", len(l.Nodes()), "links", len(l.Links()), "interval", interval)
	return streamLayout(ctx, os.Stdout, l, interval)
}

type layoutFrame struct {
	Tick  int          `json:"tick"`
	Nodes []graph.Node `json:"nodes"`
}

// streamLayout writes one NDJSON frame per tick until ctx is cancelled.
// Cancellation is a clean stop; a write error ends the stream with that error.
func streamLayout(ctx context.Context, w io.Writer, l *graph.Layout, interval time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	enc := json.NewEncoder(w)
	var werr error
	err := l.Run(ctx, interval, func(nodes []graph.Node) {
		if werr != nil {
			return
		}
		if werr = enc.Encode(layoutFrame{Tick: l.Ticks(), Nodes: nodes}); werr != nil {
			cancel()
		}
	})
	if werr != nil {
		return errors.Wrap(werr, "write frame")
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func parseBoost(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !(v > 0) || math.IsInf(v, 0) {
		return 0, errors.Newf("boost must be a positive number, got %q", s)
	}
	return v, nil
}

func runBoost(ctx context.Context, id string, factor float64) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.db.SetAdminBoost(ctx, id, factor); err != nil {
		return err
	}
	c, err := a.db.GetCreator(ctx, id)
	if err != nil {
		return err
	}
	scored, err := a.engine.Score(ctx, []creator.Creator{*c})
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s): admin boost %g, hot score now %d\n", scored[0].Name, scored[0].ID, scored[0].AdminBoost, scored[0].HotScore)
	return nil
}

func runSyncHistory(ctx context.Context, limit int) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	runs, err := a.db.ListSyncRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no sync runs recorded yet")
		return nil
	}
	return printSyncRuns(os.Stdout, runs)
}

func runClassify(ctx context.Context, all bool) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	creators, err := a.db.ListCreators(ctx)
	if err != nil {
		return err
	}
	return printVerdicts(os.Stdout, a.engine.Classifier(), creators, all)
}

func runDemo(ctx context.Context, seed uint64, rounds, limit int) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	now := time.Now().UTC()
	creators, err := a.db.ListCreators(ctx)
	if err != nil {
		return err
	}
	if len(creators) == 0 {
		a.log.Info("store is empty, using sample creators")
		creators = sampleCreators(now)
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	for round := 1; round <= rounds; round++ {
		creators = rank.Jitter(creators, rng, now)
		ranked, err := a.engine.Process(ctx, creators, false)
		if err != nil {
			return err
		}

		fmt.Printf("round %d/%d\n", round, rounds)
		if err := printCreators(os.Stdout, rank.Query{Limit: limit}.Apply(ranked)); err != nil {
			return err
		}
		fmt.Println()
	}
	return nil
}

func runServe(ctx context.Context, port int) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	srv, _, err := buildServer(a, port)
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx)
}

func runDaemon(ctx context.Context, port int) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	srv, collector, err := buildServer(a, port)
	if err != nil {
		return err
	}

	alerts := buildAlertManager(a.cfg)
	if !alerts.HasNotifiers() {
		a.log.Info("no alert destinations configured")
	}

	sched := scheduler.New(collector, a.engine, alerts, a.db, scheduler.Options{
		CollectInterval: a.cfg.Schedule.ParseCollectInterval(),
		RankInterval:    a.cfg.Schedule.ParseRankInterval(),
		MinScore:        a.cfg.Alerts.MinScore,
		Metrics:         a.metrics,
	}, a.log.Named("scheduler"))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return srv.ListenAndServe(ctx)
	})

	err = g.Wait()
	a.log.Info("shut down")
	return err
}

// buildServer wires the HTTP API. The returned collector is nil when YouTube
// is not configured.
func buildServer(a *app, port int) (*server.Server, scheduler.Collector, error) {
	if port == 0 {
		port = a.cfg.Server.Port
	}

	syncer, err := buildSyncer(a.cfg, a.db, a.metrics, a.log)
	if err != nil {
		return nil, nil, err
	}
	var collector interface {
		server.Collector
		scheduler.Collector
	}
	if syncer != nil {
		collector = syncer
	} else {
		a.log.Warn("youtube collector is not configured, collection disabled")
	}

	srv := server.New(a.engine, a.db, collector, server.Options{
		Port:       port,
		GraphTicks: a.cfg.Graph.Ticks,
		Metrics:    a.metrics,
		Gatherer:   a.reg,
	}, a.log.Named("http"))
	return srv, collector, nil
}

func printCreators(out io.Writer, creators []creator.Creator) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tHOT\tNAME\tREGION\tCATEGORY\tFORMAT\tSUBS\t+SUBS 7D\t+VIEWS 7D\tUPDATED")
	for i, c := range creators {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			i+1, c.HotScore, c.Name, c.Region, c.CategoryID, formatOrDash(c.Format),
			count(c.Stats.Subscribers), count(c.Stats.SubsDelta7d), count(c.Stats.ViewsDelta7d),
			humanize.Time(c.LastUpdatedAt))
	}
	return w.Flush()
}

func printVerdicts(out io.Writer, cl *curate.Classifier, creators []creator.Creator, all bool) error {
	type row struct {
		c creator.Creator
		v curate.Verdict
	}
	rows := make([]row, 0, len(creators))
	for _, c := range creators {
		v := cl.Evaluate(c)
		if v.Corporate || all {
			rows = append(rows, row{c, v})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].v.Score > rows[j].v.Score })

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SCORE\tCORPORATE\tNAME\tSIGNALS (threshold %d)\n", cl.Threshold())
	for _, r := range rows {
		signals := make([]string, len(r.v.Signals))
		for i, s := range r.v.Signals {
			signals[i] = fmt.Sprintf("%s%+d", s.Rule, s.Points)
		}
		fmt.Fprintf(w, "%d\t%t\t%s\t%s\n", r.v.Score, r.v.Corporate, r.c.Name, strings.Join(signals, " "))
	}
	return w.Flush()
}

func printSyncRuns(out io.Writer, runs []store.SyncRun) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tREGION\tCATEGORY\tSTATUS\tCHANNELS\tTOOK\tMESSAGE")
	for _, r := range runs {
		took := "-"
		if r.FinishedAt.Valid {
			took = r.FinishedAt.Time.Sub(r.StartedAt).Round(time.Millisecond).String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			r.StartedAt.UTC().Format(time.RFC3339), r.Region, r.Category, r.Status, r.Channels, took, r.Message)
	}
	return w.Flush()
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func count(p *int64) string {
	if p == nil {
		return "-"
	}
	return humanize.Comma(*p)
}

func formatOrDash(f creator.Format) string {
	if f == "" {
		return "-"
	}
	return string(f)
}

func upper(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	return out
}
