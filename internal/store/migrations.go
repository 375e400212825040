package store

const schema = `
CREATE TABLE IF NOT EXISTS creators (
    id              TEXT PRIMARY KEY,
    category_id     TEXT NOT NULL DEFAULT '',
    region_code     TEXT NOT NULL DEFAULT '',
    format_type     TEXT NOT NULL DEFAULT 'long',
    name            TEXT NOT NULL,
    handle          TEXT NOT NULL DEFAULT '',
    description     TEXT NOT NULL DEFAULT '',
    channel_url     TEXT NOT NULL DEFAULT '',
    thumbnail_url   TEXT NOT NULL DEFAULT '',
    admin_boost     REAL NOT NULL DEFAULT 1,
    created_at      DATETIME NOT NULL,
    last_updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_creators_region ON creators(region_code);
CREATE INDEX IF NOT EXISTS idx_creators_category ON creators(category_id);

CREATE TABLE IF NOT EXISTS stats_snapshots (
    creator_id    TEXT NOT NULL REFERENCES creators(id),
    snapshot_date TEXT NOT NULL,
    subscribers   INTEGER,
    total_views   INTEGER,
    total_videos  INTEGER,
    uploads_7d    INTEGER,
    captured_at   DATETIME NOT NULL,
    PRIMARY KEY (creator_id, snapshot_date)
);

CREATE INDEX IF NOT EXISTS idx_snapshots_date ON stats_snapshots(snapshot_date);

CREATE TABLE IF NOT EXISTS sync_runs (
    id          TEXT PRIMARY KEY,
    region_code TEXT NOT NULL,
    category_id TEXT NOT NULL,
    status      TEXT NOT NULL,
    message     TEXT NOT NULL DEFAULT '',
    channels    INTEGER NOT NULL DEFAULT 0,
    started_at  DATETIME NOT NULL,
    finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_sync_runs_started ON sync_runs(started_at);

CREATE TABLE IF NOT EXISTS alerts (
    creator_id TEXT NOT NULL REFERENCES creators(id),
    alerted_on TEXT NOT NULL,
    hot_score  INTEGER NOT NULL,
    created_at DATETIME NOT NULL,
    PRIMARY KEY (creator_id, alerted_on)
);
`
