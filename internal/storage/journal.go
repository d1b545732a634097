package storage

import (
	"context"
	"errors"

	"github.com/terra-clan/survey-admin/internal/models"
)

// Common errors
var (
	ErrPublicationNotFound = errors.New("publication not found")
	ErrOrphanNotFound      = errors.New("orphan not found")
)

// Journal defines the interface for publication bookkeeping
type Journal interface {
	// Publications
	BeginPublication(ctx context.Context, p *models.Publication) error
	FinishPublication(ctx context.Context, p *models.Publication) error
	GetPublication(ctx context.Context, id string) (*models.Publication, error)
	ListPublications(ctx context.Context, filters models.PublicationFilters) ([]*models.Publication, error)

	// Orphans
	RecordOrphans(ctx context.Context, orphans []models.Orphan) error
	ListPendingOrphans(ctx context.Context, limit int) ([]*models.Orphan, error)
	MarkOrphanAttempt(ctx context.Context, id int64, lastError string) error
	ResolveOrphan(ctx context.Context, id int64) error

	// Health
	Ping(ctx context.Context) error
	Close() error
}
