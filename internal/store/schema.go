package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS rate_snapshots (
    endpoint             TEXT PRIMARY KEY,
    fetched_at           TEXT NOT NULL,
    record_count         INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS rate_records (
    endpoint             TEXT NOT NULL REFERENCES rate_snapshots(endpoint) ON DELETE CASCADE,
    start_date           TEXT NOT NULL,
    end_date             TEXT NOT NULL,
    open_ended           INTEGER NOT NULL DEFAULT 0,
    rate_percent         REAL NOT NULL,
    PRIMARY KEY (endpoint, start_date)
);

CREATE INDEX IF NOT EXISTS idx_rate_records_end ON rate_records(endpoint, end_date);
`
