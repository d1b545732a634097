package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/terra-clan/survey-admin/internal/models"
)

var _ Journal = (*MemoryJournal)(nil)

// MemoryJournal implements Journal in process memory.
// Used when no database is configured; contents are lost on restart.
type MemoryJournal struct {
	mu           sync.RWMutex
	publications map[string]*models.Publication
	orphans      []*models.Orphan
	nextOrphanID int64
	now          func() time.Time
}

// NewMemoryJournal creates an empty in-memory journal
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{
		publications: make(map[string]*models.Publication),
		now:          time.Now,
	}
}

func (j *MemoryJournal) Ping(ctx context.Context) error {
	return nil
}

func (j *MemoryJournal) Close() error {
	return nil
}

func (j *MemoryJournal) BeginPublication(ctx context.Context, p *models.Publication) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, exists := j.publications[p.ID]; exists {
		return fmt.Errorf("publication already exists: %s", p.ID)
	}
	cp := *p
	j.publications[p.ID] = &cp
	return nil
}

func (j *MemoryJournal) FinishPublication(ctx context.Context, p *models.Publication) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, exists := j.publications[p.ID]; !exists {
		return fmt.Errorf("%w: %s", ErrPublicationNotFound, p.ID)
	}
	cp := *p
	j.publications[p.ID] = &cp
	return nil
}

func (j *MemoryJournal) GetPublication(ctx context.Context, id string) (*models.Publication, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	p, ok := j.publications[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (j *MemoryJournal) ListPublications(ctx context.Context, filters models.PublicationFilters) ([]*models.Publication, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var result []*models.Publication
	for _, p := range j.publications {
		if filters.State != "" && p.State != filters.State {
			continue
		}
		cp := *p
		result = append(result, &cp)
	}

	sort.Slice(result, func(a, b int) bool {
		if result[a].CreatedAt.Equal(result[b].CreatedAt) {
			return result[a].ID > result[b].ID
		}
		return result[a].CreatedAt.After(result[b].CreatedAt)
	})

	if filters.Offset > 0 {
		if filters.Offset >= len(result) {
			return nil, nil
		}
		result = result[filters.Offset:]
	}
	if filters.Limit > 0 && filters.Limit < len(result) {
		result = result[:filters.Limit]
	}
	return result, nil
}

func (j *MemoryJournal) RecordOrphans(ctx context.Context, orphans []models.Orphan) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, o := range orphans {
		if _, ok := j.publications[o.PublicationID]; !ok {
			return fmt.Errorf("%w: %s", ErrPublicationNotFound, o.PublicationID)
		}
		j.nextOrphanID++
		cp := o
		cp.ID = j.nextOrphanID
		j.orphans = append(j.orphans, &cp)
	}
	return nil
}

func (j *MemoryJournal) ListPendingOrphans(ctx context.Context, limit int) ([]*models.Orphan, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var result []*models.Orphan
	for _, o := range j.orphans {
		if o.IsResolved() {
			continue
		}
		cp := *o
		result = append(result, &cp)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (j *MemoryJournal) MarkOrphanAttempt(ctx context.Context, id int64, lastError string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	o := j.findOrphan(id)
	if o == nil {
		return fmt.Errorf("%w: %d", ErrOrphanNotFound, id)
	}
	o.Attempts++
	o.LastError = lastError
	return nil
}

func (j *MemoryJournal) ResolveOrphan(ctx context.Context, id int64) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	o := j.findOrphan(id)
	if o == nil || o.IsResolved() {
		return fmt.Errorf("%w: %d", ErrOrphanNotFound, id)
	}

	now := j.now().UTC()
	o.Attempts++
	o.ResolvedAt = &now

	for _, other := range j.orphans {
		if other.PublicationID == o.PublicationID && !other.IsResolved() {
			return nil
		}
	}

	if p, ok := j.publications[o.PublicationID]; ok && p.State == models.PublicationCompensationPending {
		p.State = models.PublicationRolledBack
		p.UpdatedAt = now
	}
	return nil
}

func (j *MemoryJournal) findOrphan(id int64) *models.Orphan {
	for _, o := range j.orphans {
		if o.ID == id {
			return o
		}
	}
	return nil
}
