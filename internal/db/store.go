package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecojourney/backend/internal/models"
)

// TotalCategory is the reserved row holding the overall daily average.
const TotalCategory = "_total"

const defaultRecentLimit = 20

var schema = []string{
	`CREATE TABLE IF NOT EXISTS emission_averages (
		category   TEXT PRIMARY KEY,
		average_kg DOUBLE PRECISION NOT NULL CHECK (average_kg >= 0),
		position   INT NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS feedback_log (
		id          UUID PRIMARY KEY,
		source      TEXT NOT NULL,
		model       TEXT NOT NULL DEFAULT '',
		focus_area  TEXT NOT NULL DEFAULT '',
		report_json TEXT NOT NULL,
		latency_ms  BIGINT NOT NULL DEFAULT 0,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS feedback_log_created_at_idx ON feedback_log (created_at DESC)`,
}

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Migrate creates the tables if they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}
		return nil
	})
}

// ListAverages returns the stored reference. An empty table yields zero
// Averages and no error.
func (s *Store) ListAverages(ctx context.Context) (models.Averages, error) {
	rows, err := s.Pool.Query(ctx, `SELECT category, average_kg FROM emission_averages ORDER BY position ASC, category ASC`)
	if err != nil {
		return models.Averages{}, err
	}
	defer rows.Close()

	var out models.Averages
	for rows.Next() {
		var c models.CategoryAmount
		if err := rows.Scan(&c.Category, &c.KgCO2e); err != nil {
			return models.Averages{}, err
		}
		if c.Category == TotalCategory {
			out.TotalKg = c.KgCO2e
			continue
		}
		out.Categories = append(out.Categories, c)
	}
	return out, rows.Err()
}

// ReplaceAverages swaps the whole reference table in one transaction.
func (s *Store) ReplaceAverages(ctx context.Context, avg models.Averages) (int64, error) {
	now := time.Now().UTC()
	rows := make([][]any, 0, len(avg.Categories)+1)
	rows = append(rows, []any{TotalCategory, avg.TotalKg, 0, now})
	for i, c := range avg.Categories {
		rows = append(rows, []any{c.Category, c.KgCO2e, i + 1, now})
	}

	var copyCount int64
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM emission_averages`); err != nil {
			return err
		}
		n, err := tx.CopyFrom(ctx, pgx.Identifier{"emission_averages"}, []string{"category", "average_kg", "position", "updated_at"}, pgx.CopyFromRows(rows))
		copyCount = n
		return err
	})
	return copyCount, err
}

func (s *Store) RecordFeedback(ctx context.Context, rec models.FeedbackRecord) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO feedback_log (id, source, model, focus_area, report_json, latency_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.ID, rec.Source, rec.Model, rec.FocusArea, rec.ReportJSON, rec.LatencyMs, rec.CreatedAt)
	return err
}

func (s *Store) ListRecentFeedback(ctx context.Context, source string, limit int) ([]models.FeedbackRecord, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	query := `SELECT id::text, source, model, focus_area, report_json, latency_ms, created_at FROM feedback_log`
	args := []any{}
	if source != "" {
		args = append(args, source)
		query += fmt.Sprintf(" WHERE source = $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.FeedbackRecord{}
	for rows.Next() {
		var r models.FeedbackRecord
		if err := rows.Scan(&r.ID, &r.Source, &r.Model, &r.FocusArea, &r.ReportJSON, &r.LatencyMs, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
