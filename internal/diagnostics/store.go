// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package diagnostics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// timeLayout sorts lexically in time order when always written in UTC.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

const (
	defaultWindowDays  = 7
	defaultIssueLimit  = 10
	problematicFileCap = 5
	defaultRecentLimit = 200
	sqlitePragmas      = "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
)

// Config configures a Store.
type Config struct {
	Path        string // SQLite database file
	ProjectPath string // Stamped on every recorded build event
}

// Store is the SQLite-backed diagnostics database. Every operation is a
// short transaction; the store holds no locks of its own.
type Store struct {
	db          *sql.DB
	projectPath string
	now         func() time.Time
}

func nullStr(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func toNullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	// Rows written by other tools may omit the zone.
	t, _ := time.Parse("2006-01-02T15:04:05.999999", s)
	return t
}

// Open opens or creates the database at cfg.Path and applies the schema.
// The parent directory is created if needed.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, invalidf("database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, storageErr("create store dir", err)
	}

	db, err := sql.Open("sqlite", "file:"+cfg.Path+sqlitePragmas)
	if err != nil {
		return nil, storageErr("open sqlite", err)
	}
	// One connection serializes writers.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, storageErr("ping sqlite", err)
	}

	s := &Store{db: db, projectPath: cfg.ProjectPath, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(schema); err != nil {
		return storageErr("create schema", err)
	}

	var v int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", schemaVersion); err != nil {
			return storageErr("set schema version", err)
		}
		return nil
	}
	if err != nil {
		return storageErr("read schema version", err)
	}
	if v != schemaVersion {
		return storageErr("check schema version", fmt.Errorf("unknown schema version %d", v))
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordBuildEvent inserts a build event and returns its id.
func (s *Store) RecordBuildEvent(ctx context.Context, in BuildEventInput) (int64, error) {
	if !in.Status.Valid() {
		return 0, invalidf("unknown build status %q", in.Status)
	}

	var duration sql.NullFloat64
	if in.Duration != nil {
		duration = sql.NullFloat64{Float64: *in.Duration, Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO build_events(timestamp, project_path, build_status, duration_seconds,
		                          warnings_count, errors_count, scheme, target)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		formatTime(s.now()), s.projectPath, string(in.Status), duration,
		in.WarningCount, in.ErrorCount, toNullStr(in.Scheme), toNullStr(in.Target),
	)
	if err != nil {
		return 0, storageErr("insert build event", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("last insert id", err)
	}
	return id, nil
}

// RecordDiagnostic inserts a diagnostic for an existing build event. The
// fingerprint is always computed here; an empty category is derived with
// Categorize.
func (s *Store) RecordDiagnostic(ctx context.Context, eventID int64, in DiagnosticInput) (int64, error) {
	if !in.Severity.Valid() {
		return 0, invalidf("unknown severity %q", in.Severity)
	}
	category := in.Category
	if category == "" {
		category = Categorize(in.Message)
	}

	var line sql.NullInt64
	if in.Line != nil {
		line = sql.NullInt64{Int64: int64(*in.Line), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr("begin", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM build_events WHERE id = ?", eventID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, &ReferentialError{BuildEventID: eventID}
	}
	if err != nil {
		return 0, storageErr("resolve build event", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO diagnostics(build_event_id, severity, file_path, line_number, message, message_hash, category)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		eventID, string(in.Severity), in.FilePath, line, in.Message, Fingerprint(in.Message), string(category),
	)
	if err != nil {
		return 0, storageErr("insert diagnostic", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("last insert id", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, storageErr("commit diagnostic", err)
	}
	return id, nil
}

// AddOrUpdateSolution records that solutionText fixed diagnostics with the
// given fingerprint. Re-recording the same pair increments its
// success_count. The id of the affected row is returned.
func (s *Store) AddOrUpdateSolution(ctx context.Context, fingerprint, solutionText, fixPattern string) (int64, error) {
	if fingerprint == "" {
		return 0, invalidf("fingerprint is required")
	}
	if solutionText == "" {
		return 0, invalidf("solution text is required")
	}

	now := formatTime(s.now())
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO solutions(message_hash, solution_text, fix_pattern, success_count, created_at, updated_at)
		 VALUES(?, ?, ?, 1, ?, ?)
		 ON CONFLICT(message_hash, solution_text) DO UPDATE SET
		     success_count = solutions.success_count + 1,
		     updated_at = excluded.updated_at,
		     fix_pattern = COALESCE(excluded.fix_pattern, solutions.fix_pattern)
		 RETURNING id`,
		fingerprint, solutionText, toNullStr(fixPattern), now, now,
	).Scan(&id)
	if err != nil {
		return 0, storageErr("upsert solution", err)
	}
	return id, nil
}

// RecordFix fingerprints message and records the solution against it.
func (s *Store) RecordFix(ctx context.Context, message, solutionText, fixPattern string) (int64, error) {
	return s.AddOrUpdateSolution(ctx, Fingerprint(message), solutionText, fixPattern)
}

// BestSolutionFor returns the highest-ranked solution for message, or nil.
func (s *Store) BestSolutionFor(ctx context.Context, message string) (*Solution, error) {
	return s.BestSolutionForFingerprint(ctx, Fingerprint(message))
}

// BestSolutionForFingerprint ranks by success_count, then most recent update.
func (s *Store) BestSolutionForFingerprint(ctx context.Context, fingerprint string) (*Solution, error) {
	var sol Solution
	var fixPattern sql.NullString
	var createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, message_hash, solution_text, fix_pattern, success_count, created_at, updated_at
		 FROM solutions WHERE message_hash = ?
		 ORDER BY success_count DESC, updated_at DESC, id DESC
		 LIMIT 1`,
		fingerprint,
	).Scan(&sol.ID, &sol.Fingerprint, &sol.Text, &fixPattern, &sol.SuccessCount, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("best solution", err)
	}
	sol.FixPattern = nullStr(fixPattern)
	sol.CreatedAt = parseTime(createdAt)
	sol.UpdatedAt = parseTime(updatedAt)
	return &sol, nil
}

// FrequentIssues groups error diagnostics in the trailing window by
// fingerprint, most frequent first. Each group reports its most recent
// message, category and file.
func (s *Store) FrequentIssues(ctx context.Context, limit, windowDays int) ([]FrequentIssue, error) {
	if limit <= 0 {
		limit = defaultIssueLimit
	}
	cutoff := s.cutoff(windowDays)

	rows, err := s.db.QueryContext(ctx,
		`WITH grouped AS (
		     SELECT d.message_hash AS hash, COUNT(*) AS frequency, MAX(d.id) AS last_id
		     FROM diagnostics d
		     JOIN build_events b ON b.id = d.build_event_id
		     WHERE b.timestamp > ? AND d.severity = 'error'
		     GROUP BY d.message_hash
		 )
		 SELECT g.hash, g.frequency, d.message, d.category, d.file_path
		 FROM grouped g
		 JOIN diagnostics d ON d.id = g.last_id
		 ORDER BY g.frequency DESC, g.last_id DESC
		 LIMIT ?`,
		cutoff, limit,
	)
	if err != nil {
		return nil, storageErr("frequent issues", err)
	}

	var issues []FrequentIssue
	for rows.Next() {
		var fi FrequentIssue
		var category sql.NullString
		if err := rows.Scan(&fi.Fingerprint, &fi.Frequency, &fi.Message, &category, &fi.FilePath); err != nil {
			rows.Close()
			return nil, storageErr("scan frequent issue", err)
		}
		fi.Category = Category(nullStr(category))
		issues = append(issues, fi)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, storageErr("frequent issues", err)
	}
	rows.Close()

	for i := range issues {
		sol, err := s.BestSolutionForFingerprint(ctx, issues[i].Fingerprint)
		if err != nil {
			return nil, err
		}
		issues[i].BestSolution = sol
	}
	return issues, nil
}

// BuildTrends summarizes builds in the trailing window. With no builds the
// success rate is 0.
func (s *Store) BuildTrends(ctx context.Context, windowDays int) (*BuildTrends, error) {
	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}
	cutoff := s.cutoff(windowDays)

	trends := &BuildTrends{WindowDays: windowDays, ProblematicFiles: []FileIssueCount{}}
	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN build_status = 'success' THEN 1 ELSE 0 END), 0),
		        AVG(duration_seconds)
		 FROM build_events WHERE timestamp > ?`,
		cutoff,
	).Scan(&trends.TotalBuilds, &trends.SuccessfulBuilds, &avg)
	if err != nil {
		return nil, storageErr("build counts", err)
	}
	if trends.TotalBuilds > 0 {
		trends.SuccessRate = float64(trends.SuccessfulBuilds) / float64(trends.TotalBuilds)
	}
	if avg.Valid {
		v := avg.Float64
		trends.AvgDuration = &v
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT d.file_path, COUNT(*) AS issues
		 FROM diagnostics d
		 JOIN build_events b ON b.id = d.build_event_id
		 WHERE b.timestamp > ? AND d.severity IN ('error', 'warning') AND d.file_path != ''
		 GROUP BY d.file_path
		 ORDER BY issues DESC, d.file_path ASC
		 LIMIT ?`,
		cutoff, problematicFileCap,
	)
	if err != nil {
		return nil, storageErr("problematic files", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f FileIssueCount
		if err := rows.Scan(&f.FilePath, &f.Issues); err != nil {
			return nil, storageErr("scan problematic file", err)
		}
		trends.ProblematicFiles = append(trends.ProblematicFiles, f)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("problematic files", err)
	}
	return trends, nil
}

// RecentDiagnostics returns diagnostics from builds in the last hours,
// newest first.
func (s *Store) RecentDiagnostics(ctx context.Context, hours, limit int) ([]RecentDiagnostic, error) {
	if hours <= 0 {
		hours = 24
	}
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	cutoff := formatTime(s.now().Add(-time.Duration(hours) * time.Hour))

	rows, err := s.db.QueryContext(ctx,
		`SELECT d.id, d.build_event_id, d.severity, d.file_path, d.line_number, d.message,
		        d.message_hash, d.category, b.timestamp, b.build_status
		 FROM diagnostics d
		 JOIN build_events b ON b.id = d.build_event_id
		 WHERE b.timestamp > ?
		 ORDER BY b.timestamp DESC, d.id DESC
		 LIMIT ?`,
		cutoff, limit,
	)
	if err != nil {
		return nil, storageErr("recent diagnostics", err)
	}
	defer rows.Close()

	var out []RecentDiagnostic
	for rows.Next() {
		var rd RecentDiagnostic
		var line sql.NullInt64
		var category sql.NullString
		var ts string
		if err := rows.Scan(&rd.ID, &rd.BuildEventID, &rd.Severity, &rd.FilePath, &line, &rd.Message,
			&rd.Fingerprint, &category, &ts, &rd.BuildStatus); err != nil {
			return nil, storageErr("scan recent diagnostic", err)
		}
		if line.Valid {
			n := int(line.Int64)
			rd.Line = &n
		}
		rd.Category = Category(nullStr(category))
		rd.Timestamp = parseTime(ts)
		out = append(out, rd)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("recent diagnostics", err)
	}
	return out, nil
}

// LatestBuild returns the most recently recorded build event, or nil.
func (s *Store) LatestBuild(ctx context.Context) (*BuildEvent, error) {
	var ev BuildEvent
	var ts string
	var duration sql.NullFloat64
	var scheme, target sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, timestamp, project_path, build_status, duration_seconds,
		        warnings_count, errors_count, scheme, target
		 FROM build_events ORDER BY timestamp DESC, id DESC LIMIT 1`,
	).Scan(&ev.ID, &ts, &ev.ProjectPath, &ev.Status, &duration, &ev.WarningCount, &ev.ErrorCount, &scheme, &target)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("latest build", err)
	}
	ev.Timestamp = parseTime(ts)
	if duration.Valid {
		d := duration.Float64
		ev.Duration = &d
	}
	ev.Scheme = nullStr(scheme)
	ev.Target = nullStr(target)
	return &ev, nil
}

func (s *Store) cutoff(windowDays int) string {
	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}
	return formatTime(s.now().AddDate(0, 0, -windowDays))
}
