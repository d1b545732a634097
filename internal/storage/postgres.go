package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terra-clan/survey-admin/internal/models"
)

var _ Journal = (*PostgresJournal)(nil)

// PostgresJournal implements Journal using PostgreSQL
type PostgresJournal struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresJournal connects to PostgreSQL, migrates the schema and returns a journal
func NewPostgresJournal(ctx context.Context, cfg PostgresConfig) (*PostgresJournal, error) {
	if err := MigrateFromDSN(ctx, cfg.DSN); err != nil {
		return nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 10
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 2
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresJournal{pool: pool}, nil
}

// Ping checks database connectivity
func (j *PostgresJournal) Ping(ctx context.Context) error {
	return j.pool.Ping(ctx)
}

// Close closes the database connection pool
func (j *PostgresJournal) Close() error {
	j.pool.Close()
	return nil
}

// BeginPublication inserts a new publication record
func (j *PostgresJournal) BeginPublication(ctx context.Context, p *models.Publication) error {
	query := `
		INSERT INTO publications (id, session_id, template_id, template_name, target_status, question_count, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := j.pool.Exec(ctx, query,
		p.ID,
		nullString(p.SessionID),
		p.TemplateID,
		p.TemplateName,
		string(p.TargetStatus),
		p.QuestionCount,
		string(p.State),
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create publication: %w", err)
	}

	return nil
}

// FinishPublication stores the final state of a publication
func (j *PostgresJournal) FinishPublication(ctx context.Context, p *models.Publication) error {
	query := `
		UPDATE publications
		SET template_id = $2, state = $3, failed_stage = $4, error = $5, updated_at = $6
		WHERE id = $1
	`

	result, err := j.pool.Exec(ctx, query,
		p.ID,
		p.TemplateID,
		string(p.State),
		nullString(p.FailedStage),
		nullString(p.Error),
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update publication: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrPublicationNotFound, p.ID)
	}

	return nil
}

const publicationColumns = `id, session_id, template_id, template_name, target_status, question_count, state, failed_stage, error, created_at, updated_at`

func scanPublication(row pgx.Row) (*models.Publication, error) {
	var p models.Publication
	var targetStatus, state string
	var sessionID, failedStage, errMsg sql.NullString

	err := row.Scan(
		&p.ID,
		&sessionID,
		&p.TemplateID,
		&p.TemplateName,
		&targetStatus,
		&p.QuestionCount,
		&state,
		&failedStage,
		&errMsg,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.SessionID = sessionID.String
	p.TargetStatus = models.TemplateStatus(targetStatus)
	p.State = models.PublicationState(state)
	p.FailedStage = failedStage.String
	p.Error = errMsg.String

	return &p, nil
}

// GetPublication retrieves a publication by ID
func (j *PostgresJournal) GetPublication(ctx context.Context, id string) (*models.Publication, error) {
	query := `SELECT ` + publicationColumns + ` FROM publications WHERE id = $1`

	p, err := scanPublication(j.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get publication: %w", err)
	}

	return p, nil
}

// ListPublications returns publications matching filters, newest first
func (j *PostgresJournal) ListPublications(ctx context.Context, filters models.PublicationFilters) ([]*models.Publication, error) {
	query := `SELECT ` + publicationColumns + ` FROM publications WHERE 1=1`
	args := make([]interface{}, 0)
	argNum := 1

	if filters.State != "" {
		query += fmt.Sprintf(" AND state = $%d", argNum)
		args = append(args, string(filters.State))
		argNum++
	}

	query += " ORDER BY created_at DESC"

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filters.Limit)
		argNum++
	}

	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, filters.Offset)
	}

	rows, err := j.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list publications: %w", err)
	}
	defer rows.Close()

	var publications []*models.Publication
	for rows.Next() {
		p, err := scanPublication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan publication: %w", err)
		}
		publications = append(publications, p)
	}

	return publications, rows.Err()
}

// RecordOrphans inserts orphan records in a single batch
func (j *PostgresJournal) RecordOrphans(ctx context.Context, orphans []models.Orphan) error {
	if len(orphans) == 0 {
		return nil
	}

	query := `
		INSERT INTO orphans (publication_id, kind, remote_id, attempts, last_error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	batch := &pgx.Batch{}
	for _, o := range orphans {
		batch.Queue(query,
			o.PublicationID,
			string(o.Kind),
			o.RemoteID,
			o.Attempts,
			nullString(o.LastError),
			o.CreatedAt,
		)
	}

	if err := j.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to record orphans: %w", err)
	}

	return nil
}

// ListPendingOrphans returns unresolved orphans, oldest first
func (j *PostgresJournal) ListPendingOrphans(ctx context.Context, limit int) ([]*models.Orphan, error) {
	query := `
		SELECT id, publication_id, kind, remote_id, attempts, last_error, created_at, resolved_at
		FROM orphans
		WHERE resolved_at IS NULL
		ORDER BY created_at ASC, id ASC
	`
	args := make([]interface{}, 0)
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := j.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orphans: %w", err)
	}
	defer rows.Close()

	var orphans []*models.Orphan
	for rows.Next() {
		var o models.Orphan
		var kind string
		var lastError sql.NullString
		var resolvedAt sql.NullTime

		if err := rows.Scan(
			&o.ID,
			&o.PublicationID,
			&kind,
			&o.RemoteID,
			&o.Attempts,
			&lastError,
			&o.CreatedAt,
			&resolvedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan orphan: %w", err)
		}

		o.Kind = models.OrphanKind(kind)
		o.LastError = lastError.String
		if resolvedAt.Valid {
			o.ResolvedAt = &resolvedAt.Time
		}
		orphans = append(orphans, &o)
	}

	return orphans, rows.Err()
}

// MarkOrphanAttempt records a failed cleanup attempt
func (j *PostgresJournal) MarkOrphanAttempt(ctx context.Context, id int64, lastError string) error {
	query := `UPDATE orphans SET attempts = attempts + 1, last_error = $2 WHERE id = $1`

	result, err := j.pool.Exec(ctx, query, id, nullString(lastError))
	if err != nil {
		return fmt.Errorf("failed to update orphan: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", ErrOrphanNotFound, id)
	}

	return nil
}

// ResolveOrphan marks an orphan deleted and settles its publication once
// nothing else is pending for it
func (j *PostgresJournal) ResolveOrphan(ctx context.Context, id int64) error {
	tx, err := j.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var publicationID string
	err = tx.QueryRow(ctx, `
		UPDATE orphans SET attempts = attempts + 1, resolved_at = NOW()
		WHERE id = $1 AND resolved_at IS NULL
		RETURNING publication_id
	`, id).Scan(&publicationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %d", ErrOrphanNotFound, id)
		}
		return fmt.Errorf("failed to resolve orphan: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE publications SET state = $2, updated_at = NOW()
		WHERE id = $1 AND state = $3
		AND NOT EXISTS (SELECT 1 FROM orphans WHERE publication_id = $1 AND resolved_at IS NULL)
	`, publicationID, string(models.PublicationRolledBack), string(models.PublicationCompensationPending))
	if err != nil {
		return fmt.Errorf("failed to settle publication: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	return nil
}

// Helper functions for nullable values

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
