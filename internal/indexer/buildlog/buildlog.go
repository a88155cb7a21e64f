// Package buildlog keeps a history of index builds in PostgreSQL.
package buildlog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/postgres"
)

const (
	StatusPublished = "published"
	StatusFailed    = "failed"
)

// Schema creates the history table.
const Schema = `CREATE TABLE IF NOT EXISTS index_builds (
	id          BIGSERIAL PRIMARY KEY,
	generation  TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	pages       INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0,
	domains     INTEGER NOT NULL DEFAULT 0,
	size_bytes  BIGINT NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT ''
)`

// columns lists the stored fields in the order of Build.values and Build.dest.
var columns = []string{
	"generation", "status", "started_at", "finished_at",
	"pages", "skipped", "domains", "size_bytes", "error",
}

var (
	insertSQL = fmt.Sprintf("INSERT INTO index_builds (%s) VALUES (%s)",
		strings.Join(columns, ", "), placeholders(len(columns)))
	recentSQL = fmt.Sprintf("SELECT %s FROM index_builds ORDER BY finished_at DESC LIMIT $1",
		strings.Join(columns, ", "))
)

func placeholders(n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(ph, ", ")
}

type Build struct {
	Generation string    `json:"generation"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Pages      int       `json:"pages"`
	Skipped    int       `json:"skipped"`
	Domains    int       `json:"domains"`
	SizeBytes  int64     `json:"size_bytes"`
	Error      string    `json:"error,omitempty"`
}

func (b *Build) values() []any {
	return []any{b.Generation, b.Status, b.StartedAt, b.FinishedAt,
		b.Pages, b.Skipped, b.Domains, b.SizeBytes, b.Error}
}

func (b *Build) dest() []any {
	return []any{&b.Generation, &b.Status, &b.StartedAt, &b.FinishedAt,
		&b.Pages, &b.Skipped, &b.Domains, &b.SizeBytes, &b.Error}
}

// Recorder stores finished builds.
type Recorder interface {
	Record(ctx context.Context, b Build) error
}

type Store struct {
	db *postgres.Client
}

// NewStore ensures the schema exists and returns a Store.
func NewStore(ctx context.Context, db *postgres.Client) (*Store, error) {
	if err := db.EnsureSchema(ctx, Schema); err != nil {
		return nil, fmt.Errorf("creating index_builds table: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Record(ctx context.Context, b Build) error {
	_, err := s.db.DB.ExecContext(ctx, insertSQL, b.values()...)
	if err != nil {
		return fmt.Errorf("inserting build record: %w", err)
	}
	return nil
}

// Recent returns up to limit builds, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Build, error) {
	rows, err := s.db.DB.QueryContext(ctx, recentSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("querying builds: %w", err)
	}
	defer rows.Close()
	return scanBuilds(rows)
}

func scanBuilds(rows *sql.Rows) ([]Build, error) {
	var out []Build
	for rows.Next() {
		var b Build
		if err := rows.Scan(b.dest()...); err != nil {
			return nil, fmt.Errorf("scanning build row: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
