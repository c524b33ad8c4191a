// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package diagnostics

const schemaVersion = 1

// Table and column names are read directly by external dashboards.
const schema = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS build_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT NOT NULL,
	project_path TEXT NOT NULL,
	build_status TEXT NOT NULL,
	duration_seconds REAL,
	warnings_count INTEGER NOT NULL DEFAULT 0,
	errors_count INTEGER NOT NULL DEFAULT 0,
	scheme TEXT,
	target TEXT
);

CREATE TABLE IF NOT EXISTS diagnostics (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	build_event_id INTEGER NOT NULL REFERENCES build_events(id),
	severity TEXT NOT NULL,
	file_path TEXT NOT NULL,
	line_number INTEGER,
	message TEXT NOT NULL,
	message_hash TEXT NOT NULL,
	category TEXT
);

CREATE TABLE IF NOT EXISTS solutions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	message_hash TEXT NOT NULL,
	solution_text TEXT NOT NULL,
	fix_pattern TEXT,
	success_count INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_build_events_timestamp ON build_events(timestamp);
CREATE INDEX IF NOT EXISTS idx_diagnostics_hash ON diagnostics(message_hash);
CREATE INDEX IF NOT EXISTS idx_diagnostics_event ON diagnostics(build_event_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_solutions_hash_text ON solutions(message_hash, solution_text);
`
