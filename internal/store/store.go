package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/elonfeng/playaura/pkg/creator"
	"github.com/elonfeng/playaura/pkg/source"
)

// dateLayout is the snapshot_date and alerted_on format.
const dateLayout = "2006-01-02"

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// Snapshot is one day of observed channel counters.
type Snapshot struct {
	CreatorID   string    `db:"creator_id" json:"creator_id"`
	Date        string    `db:"snapshot_date" json:"snapshot_date"`
	Subscribers *int64    `db:"subscribers" json:"subscribers"`
	TotalViews  *int64    `db:"total_views" json:"total_views"`
	TotalVideos *int64    `db:"total_videos" json:"total_videos"`
	Uploads7d   *int64    `db:"uploads_7d" json:"uploads_7d"`
	CapturedAt  time.Time `db:"captured_at" json:"captured_at"`
}

// SyncRun records one region/category collection pass.
type SyncRun struct {
	ID         string       `db:"id" json:"id"`
	Region     string       `db:"region_code" json:"region"`
	Category   string       `db:"category_id" json:"category"`
	Status     string       `db:"status" json:"status"`
	Message    string       `db:"message" json:"message,omitempty"`
	Channels   int          `db:"channels" json:"channels"`
	StartedAt  time.Time    `db:"started_at" json:"started_at"`
	FinishedAt sql.NullTime `db:"finished_at" json:"-"`
}

// Store is the persistence interface.
type Store interface {
	GetCreator(ctx context.Context, id string) (*creator.Creator, error)
	ListCreators(ctx context.Context) ([]creator.Creator, error)
	SetAdminBoost(ctx context.Context, id string, boost float64) error
	CountCreatorsByRegion(ctx context.Context) (map[string]int, error)

	GetSnapshots(ctx context.Context, creatorID string, since time.Time) ([]Snapshot, error)
	SaveChannels(ctx context.Context, channels []source.Channel) error

	StartSyncRun(ctx context.Context, region, category string) (string, error)
	FinishSyncRun(ctx context.Context, id string, entry source.ReportEntry) error
	ListSyncRuns(ctx context.Context, limit int) ([]SyncRun, error)

	Alerted(ctx context.Context, creatorID string, day time.Time) (bool, error)
	MarkAlerted(ctx context.Context, creatorID string, day time.Time, hotScore int) error

	Close() error
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithClock replaces time.Now for derived stats and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStore) { s.now = now }
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// New opens a SQLite database and runs migrations.
func New(path string, opts ...Option) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite %s", path)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "run migrations")
	}

	s := &SQLiteStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type creatorRow struct {
	ID            string    `db:"id"`
	CategoryID    string    `db:"category_id"`
	Region        string    `db:"region_code"`
	Format        string    `db:"format_type"`
	Name          string    `db:"name"`
	Handle        string    `db:"handle"`
	Description   string    `db:"description"`
	ChannelURL    string    `db:"channel_url"`
	ThumbnailURL  string    `db:"thumbnail_url"`
	AdminBoost    float64   `db:"admin_boost"`
	CreatedAt     time.Time `db:"created_at"`
	LastUpdatedAt time.Time `db:"last_updated_at"`
}

func (r creatorRow) creator() creator.Creator {
	return creator.Creator{
		ID:            r.ID,
		CategoryID:    r.CategoryID,
		Region:        r.Region,
		Format:        creator.Format(r.Format),
		Name:          r.Name,
		Handle:        r.Handle,
		Description:   r.Description,
		ChannelURL:    r.ChannelURL,
		ThumbnailURL:  r.ThumbnailURL,
		AdminBoost:    r.AdminBoost,
		LastUpdatedAt: r.LastUpdatedAt.UTC(),
	}
}

// upsertCreator inserts or refreshes a channel's identity. The admin boost
// is only set on insert; SetAdminBoost owns it afterwards.
func upsertCreator(ctx context.Context, db sqlx.ExecerContext, c *creator.Creator, now time.Time) error {
	format := c.Format
	if format == "" {
		format = creator.FormatLong
	}
	boost := c.AdminBoost
	if boost <= 0 {
		boost = 1
	}
	updated := c.LastUpdatedAt
	if updated.IsZero() {
		updated = now
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO creators (id, category_id, region_code, format_type, name, handle, description,
			channel_url, thumbnail_url, admin_boost, created_at, last_updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			category_id = excluded.category_id,
			region_code = excluded.region_code,
			format_type = excluded.format_type,
			name = excluded.name,
			handle = excluded.handle,
			description = excluded.description,
			channel_url = excluded.channel_url,
			thumbnail_url = excluded.thumbnail_url,
			last_updated_at = excluded.last_updated_at
	`, c.ID, c.CategoryID, c.Region, string(format), c.Name, c.Handle, c.Description,
		c.ChannelURL, c.ThumbnailURL, boost, now, updated.UTC())
	if err != nil {
		return errors.Wrapf(err, "upsert creator %s", c.ID)
	}
	return nil
}

func (s *SQLiteStore) GetCreator(ctx context.Context, id string) (*creator.Creator, error) {
	var row creatorRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM creators WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "creator %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get creator %s", id)
	}

	snaps, err := s.GetSnapshots(ctx, id, time.Time{})
	if err != nil {
		return nil, err
	}
	c := row.creator()
	c.Stats = DeriveStats(snaps, s.now())
	return &c, nil
}

// ListCreators returns every creator with stats derived from its snapshots.
func (s *SQLiteStore) ListCreators(ctx context.Context) ([]creator.Creator, error) {
	var rows []creatorRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT * FROM creators ORDER BY id"); err != nil {
		return nil, errors.Wrap(err, "list creators")
	}

	now := s.now()
	cutoff := now.UTC().AddDate(0, 0, -averageWindowDays).Format(dateLayout)

	// the trailing window plus each creator's latest snapshot, however old
	var snaps []Snapshot
	err := s.db.SelectContext(ctx, &snaps, `
		SELECT s.* FROM stats_snapshots s
		WHERE s.snapshot_date >= ?
		   OR s.snapshot_date = (SELECT MAX(snapshot_date) FROM stats_snapshots WHERE creator_id = s.creator_id)
		ORDER BY s.creator_id, s.snapshot_date
	`, cutoff)
	if err != nil {
		return nil, errors.Wrap(err, "list snapshots")
	}

	byCreator := make(map[string][]Snapshot, len(rows))
	for _, snap := range snaps {
		byCreator[snap.CreatorID] = append(byCreator[snap.CreatorID], snap)
	}

	out := make([]creator.Creator, len(rows))
	for i, row := range rows {
		out[i] = row.creator()
		out[i].Stats = DeriveStats(byCreator[row.ID], now)
	}
	return out, nil
}

func (s *SQLiteStore) SetAdminBoost(ctx context.Context, id string, boost float64) error {
	if boost <= 0 {
		return errors.Newf("admin boost must be positive, got %v", boost)
	}
	res, err := s.db.ExecContext(ctx, "UPDATE creators SET admin_boost = ? WHERE id = ?", boost, id)
	if err != nil {
		return errors.Wrapf(err, "set admin boost %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(ErrNotFound, "creator %s", id)
	}
	return nil
}

func (s *SQLiteStore) CountCreatorsByRegion(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT region_code, COUNT(*) AS cnt FROM creators GROUP BY region_code")
	if err != nil {
		return nil, errors.Wrap(err, "count creators by region")
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var region string
		var cnt int
		if err := rows.Scan(&region, &cnt); err != nil {
			return nil, errors.Wrap(err, "scan region count")
		}
		counts[region] = cnt
	}
	return counts, rows.Err()
}

// recordSnapshot upserts the snapshot for at's UTC day.
func recordSnapshot(ctx context.Context, db sqlx.ExecerContext, creatorID string, at time.Time, obs source.Observation) error {
	at = at.UTC()
	_, err := db.ExecContext(ctx, `
		INSERT INTO stats_snapshots (creator_id, snapshot_date, subscribers, total_views, total_videos, uploads_7d, captured_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(creator_id, snapshot_date) DO UPDATE SET
			subscribers = excluded.subscribers,
			total_views = excluded.total_views,
			total_videos = excluded.total_videos,
			uploads_7d = COALESCE(excluded.uploads_7d, stats_snapshots.uploads_7d),
			captured_at = excluded.captured_at
	`, creatorID, at.Format(dateLayout), nullable(obs.Subscribers), nullable(obs.TotalViews),
		nullable(obs.TotalVideos), nullable(obs.Uploads7d), at)
	if err != nil {
		return errors.Wrapf(err, "record snapshot %s", creatorID)
	}
	return nil
}

// GetSnapshots returns a creator's snapshots from since's day onward, oldest
// first. A zero since returns all of them.
func (s *SQLiteStore) GetSnapshots(ctx context.Context, creatorID string, since time.Time) ([]Snapshot, error) {
	from := ""
	if !since.IsZero() {
		from = since.UTC().Format(dateLayout)
	}
	var snaps []Snapshot
	err := s.db.SelectContext(ctx, &snaps,
		"SELECT * FROM stats_snapshots WHERE creator_id = ? AND snapshot_date >= ? ORDER BY snapshot_date",
		creatorID, from)
	if err != nil {
		return nil, errors.Wrapf(err, "get snapshots %s", creatorID)
	}
	return snaps, nil
}

// SaveChannels persists a batch of collected channels in one transaction.
func (s *SQLiteStore) SaveChannels(ctx context.Context, channels []source.Channel) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin save channels")
	}
	defer tx.Rollback()

	now := s.now().UTC()
	for i := range channels {
		ch := &channels[i]
		at := ch.ObservedAt
		if at.IsZero() {
			at = now
		}
		if err := upsertCreator(ctx, tx, &ch.Creator, now); err != nil {
			return err
		}
		if err := recordSnapshot(ctx, tx, ch.Creator.ID, at, ch.Observation); err != nil {
			return err
		}
	}
	return errors.Wrap(tx.Commit(), "commit save channels")
}

func (s *SQLiteStore) StartSyncRun(ctx context.Context, region, category string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_runs (id, region_code, category_id, status, started_at)
		VALUES (?, ?, ?, 'running', ?)
	`, id, region, category, s.now().UTC())
	if err != nil {
		return "", errors.Wrapf(err, "start sync run %s/%s", region, category)
	}
	return id, nil
}

func (s *SQLiteStore) FinishSyncRun(ctx context.Context, id string, entry source.ReportEntry) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sync_runs SET status = ?, message = ?, channels = ?, finished_at = ? WHERE id = ?
	`, entry.Status, entry.Message, entry.Count, s.now().UTC(), id)
	if err != nil {
		return errors.Wrapf(err, "finish sync run %s", id)
	}
	return nil
}

func (s *SQLiteStore) ListSyncRuns(ctx context.Context, limit int) ([]SyncRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []SyncRun
	err := s.db.SelectContext(ctx, &runs, "SELECT * FROM sync_runs ORDER BY started_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, errors.Wrap(err, "list sync runs")
	}
	return runs, nil
}

// Alerted reports whether creatorID was already alerted on day (UTC).
func (s *SQLiteStore) Alerted(ctx context.Context, creatorID string, day time.Time) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM alerts WHERE creator_id = ? AND alerted_on = ?",
		creatorID, day.UTC().Format(dateLayout))
	if err != nil {
		return false, errors.Wrapf(err, "check alerted %s", creatorID)
	}
	return n > 0, nil
}

func (s *SQLiteStore) MarkAlerted(ctx context.Context, creatorID string, day time.Time, hotScore int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO alerts (creator_id, alerted_on, hot_score, created_at) VALUES (?, ?, ?, ?)
	`, creatorID, day.UTC().Format(dateLayout), hotScore, s.now().UTC())
	if err != nil {
		return errors.Wrapf(err, "mark alerted %s", creatorID)
	}
	return nil
}

func nullable(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}
