// Package aggregator persists periodic snapshots of the aggregated search
// analytics to PostgreSQL and serves their history.
package aggregator

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/postgres"
)

// Schema keeps the full stats document plus the headline counters as
// columns so history queries do not have to unpack JSONB.
const Schema = `CREATE TABLE IF NOT EXISTS analytics_snapshots (
	id              BIGSERIAL PRIMARY KEY,
	data            JSONB NOT NULL,
	total_searches  BIGINT NOT NULL DEFAULT 0,
	zero_results    BIGINT NOT NULL DEFAULT 0,
	p95_latency_ms  DOUBLE PRECISION NOT NULL DEFAULT 0,
	last_generation TEXT NOT NULL DEFAULT '',
	captured_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const indexSchema = `CREATE INDEX IF NOT EXISTS analytics_snapshots_captured_at
	ON analytics_snapshots (captured_at DESC)`

// Point is one row of snapshot history.
type Point struct {
	CapturedAt     time.Time `json:"captured_at"`
	TotalSearches  int64     `json:"total_searches"`
	ZeroResults    int64     `json:"zero_results"`
	P95LatencyMs   float64   `json:"p95_latency_ms"`
	LastGeneration string    `json:"last_generation,omitempty"`
}

type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

// NewStore creates the snapshot table if needed.
func NewStore(ctx context.Context, db *postgres.Client) (*Store, error) {
	if err := db.EnsureSchema(ctx, Schema, indexSchema); err != nil {
		return nil, err
	}
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "analytics-store"),
	}, nil
}

func (s *Store) SaveSnapshot(ctx context.Context, stats analytics.AggregatedStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}
	_, err = s.db.DB.ExecContext(ctx,
		`INSERT INTO analytics_snapshots
			(data, total_searches, zero_results, p95_latency_ms, last_generation, captured_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		data, stats.TotalSearches, stats.ZeroResultCount, stats.P95LatencyMs,
		stats.LastGeneration, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving analytics snapshot: %w", err)
	}
	s.logger.Debug("analytics snapshot saved",
		"total_searches", stats.TotalSearches,
		"generation", stats.LastGeneration,
	)
	return nil
}

// LatestSnapshot returns nil, nil when nothing was saved yet.
func (s *Store) LatestSnapshot(ctx context.Context) (*analytics.AggregatedStats, error) {
	var data []byte
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT data FROM analytics_snapshots ORDER BY captured_at DESC LIMIT 1`,
	).Scan(&data)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("querying latest snapshot: %w", err)
	}

	var stats analytics.AggregatedStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return &stats, nil
}

// History returns up to limit points, newest first.
func (s *Store) History(ctx context.Context, limit int) ([]Point, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT captured_at, total_searches, zero_results, p95_latency_ms, last_generation
		 FROM analytics_snapshots ORDER BY captured_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying snapshot history: %w", err)
	}
	defer rows.Close()

	var points []Point
	for rows.Next() {
		var p Point
		if err := rows.Scan(&p.CapturedAt, &p.TotalSearches, &p.ZeroResults, &p.P95LatencyMs, &p.LastGeneration); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Prune deletes snapshots older than retention.
func (s *Store) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	res, err := s.db.DB.ExecContext(ctx,
		`DELETE FROM analytics_snapshots WHERE captured_at < $1`,
		time.Now().UTC().Add(-retention),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning snapshots: %w", err)
	}
	return res.RowsAffected()
}

// HistoryHandler serves GET ?limit=N (default 60, at most 1000).
func (s *Store) HistoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 60
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
				return
			}
			limit = min(n, 1000)
		}
		points, err := s.History(r.Context(), limit)
		if err != nil {
			s.logger.Error("history query failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "history unavailable"})
			return
		}
		if points == nil {
			points = []Point{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"points": points})
	}
}

// StartPeriodicSave snapshots agg every interval and once more on shutdown.
// A positive retention prunes older rows after each save.
func (s *Store) StartPeriodicSave(ctx context.Context, agg *analytics.Aggregator, interval, retention time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := s.SaveSnapshot(ctx, agg.Stats()); err != nil {
					s.logger.Error("periodic snapshot failed", "error", err)
					continue
				}
				if retention > 0 {
					if n, err := s.Prune(ctx, retention); err != nil {
						s.logger.Warn("snapshot pruning failed", "error", err)
					} else if n > 0 {
						s.logger.Info("old snapshots pruned", "rows", n, "retention", retention)
					}
				}
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				err := s.SaveSnapshot(shutdownCtx, agg.Stats())
				cancel()
				if err != nil {
					s.logger.Error("final snapshot failed", "error", err)
				}
				return
			}
		}
	}()
	s.logger.Info("periodic snapshot started", "interval", interval, "retention", retention)
	return done
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
