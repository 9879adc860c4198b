// Uplift - Adaptive Wellness Activity Recommendations
// Copyright 2026 Uplift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/upliftlabs/uplift

// Package eventlog persists feedback events to a DuckDB table for
// offline analysis. The log is append-only and sits off the hot path:
// events arrive through the event bus, and a write failure never
// affects the recommendation or feedback request that produced it.
package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // duckdb database/sql driver
	"github.com/rs/zerolog"

	"github.com/upliftlabs/uplift/internal/metrics"
)

const schema = `
CREATE TABLE IF NOT EXISTS user_feedback (
	id                  VARCHAR NOT NULL,
	user_id             VARCHAR NOT NULL,
	recommendation_id   VARCHAR,
	category            VARCHAR,
	mood_delta          DOUBLE,
	engagement_score    DOUBLE,
	satisfaction_rating DOUBLE,
	created_at          TIMESTAMP NOT NULL
);
`

// Entry is one logged feedback event. Optional targets are nil when
// the event did not carry them.
type Entry struct {
	ID                 string
	UserID             string
	RecommendationID   string
	Category           string
	MoodDelta          *float64
	EngagementScore    *float64
	SatisfactionRating *float64
	CreatedAt          time.Time
}

// Stats aggregates the logged feedback.
type Stats struct {
	TotalEvents     int64            `json:"total_events"`
	Users           int64            `json:"users"`
	AvgSatisfaction *float64         `json:"avg_satisfaction,omitempty"`
	ByCategory      map[string]int64 `json:"by_category"`
}

// Log is a DuckDB-backed feedback log.
type Log struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open opens (or creates) the log database. An empty path opens an
// in-memory database, used in tests and ephemeral deployments.
func Open(path string, logger zerolog.Logger) (*Log, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:?autoinstall_known_extensions=false&autoload_known_extensions=false"
	}
	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create event log schema: %w", err)
	}
	return &Log{
		db:     db,
		logger: logger.With().Str("component", "eventlog").Logger(),
	}, nil
}

// Insert appends one feedback event.
func (l *Log) Insert(ctx context.Context, e Entry) error {
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO user_feedback
		 (id, user_id, recommendation_id, category, mood_delta, engagement_score, satisfaction_rating, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, nullStr(e.RecommendationID), nullStr(e.Category),
		nullFloat(e.MoodDelta), nullFloat(e.EngagementScore), nullFloat(e.SatisfactionRating),
		created,
	)
	if err != nil {
		return fmt.Errorf("insert feedback event: %w", err)
	}
	metrics.EventLogInserts.Inc()
	return nil
}

// Stats aggregates the log for the stats endpoint.
func (l *Log) Stats(ctx context.Context) (Stats, error) {
	out := Stats{ByCategory: make(map[string]int64)}

	row := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT user_id), AVG(satisfaction_rating) FROM user_feedback`)
	var avg sql.NullFloat64
	if err := row.Scan(&out.TotalEvents, &out.Users, &avg); err != nil {
		return Stats{}, fmt.Errorf("aggregate feedback: %w", err)
	}
	if avg.Valid {
		out.AvgSatisfaction = &avg.Float64
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT category, COUNT(*) FROM user_feedback WHERE category IS NOT NULL GROUP BY category`)
	if err != nil {
		return Stats{}, fmt.Errorf("aggregate categories: %w", err)
	}
	defer func() { _ = rows.Close() }() //nolint:errcheck // close after read is not actionable
	for rows.Next() {
		var cat string
		var n int64
		if err := rows.Scan(&cat, &n); err != nil {
			return Stats{}, fmt.Errorf("scan category row: %w", err)
		}
		out.ByCategory[cat] = n
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterate category rows: %w", err)
	}
	return out, nil
}

// Close closes the database.
func (l *Log) Close() error {
	return l.db.Close()
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}
