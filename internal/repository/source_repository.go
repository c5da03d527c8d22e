package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-room-schedule/internal/models"
	"github.com/noah-isme/sma-room-schedule/internal/schedule"
)

// SourceRepository stores uploaded timetable CSVs in PostgreSQL.
type SourceRepository struct {
	db *sqlx.DB
}

// NewSourceRepository creates a new source repository.
func NewSourceRepository(db *sqlx.DB) *SourceRepository {
	return &SourceRepository{db: db}
}

// Kind names the provider in logs.
func (r *SourceRepository) Kind() string { return "postgres" }

// Fetch returns the content of the newest upload with the given name.
func (r *SourceRepository) Fetch(ctx context.Context, name string) (string, error) {
	const query = `SELECT content FROM schedule_sources WHERE name = $1 ORDER BY created_at DESC LIMIT 1`
	var content string
	if err := r.db.GetContext(ctx, &content, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("no upload named %s: %w", name, schedule.ErrSourceUnavailable)
		}
		return "", fmt.Errorf("fetch schedule source: %w", err)
	}
	return content, nil
}

// Create inserts a new upload, assigning id and timestamp.
func (r *SourceRepository) Create(ctx context.Context, src *models.ScheduleSource) error {
	if src.ID == "" {
		src.ID = uuid.NewString()
	}
	src.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO schedule_sources (id, name, content, uploaded_by, created_at) VALUES (:id, :name, :content, :uploaded_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, src); err != nil {
		return fmt.Errorf("create schedule source: %w", err)
	}
	return nil
}

// ListByName returns upload metadata, newest first, without content.
func (r *SourceRepository) ListByName(ctx context.Context, name string, limit int) ([]models.ScheduleSource, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	const query = `SELECT id, name, uploaded_by, created_at FROM schedule_sources WHERE name = $1 ORDER BY created_at DESC LIMIT $2`
	var sources []models.ScheduleSource
	if err := r.db.SelectContext(ctx, &sources, query, name, limit); err != nil {
		return nil, fmt.Errorf("list schedule sources: %w", err)
	}
	return sources, nil
}
