package records

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/liberandum/internal/common"
	"github.com/dmitrijs2005/liberandum/internal/server/models"
)

type MemoryRepository struct {
	mu    sync.RWMutex
	table string
	items map[string]models.Record
	now   func() time.Time
}

func NewMemoryRepository(table string) *MemoryRepository {
	return &MemoryRepository{table: table, items: map[string]models.Record{}, now: time.Now}
}

func (r *MemoryRepository) Table() string {
	return r.table
}

func (r *MemoryRepository) Create(_ context.Context, rec models.Record) (models.Record, error) {
	rec = prepareNew(rec, r.now())
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[rec.ID()]; ok {
		return nil, common.ErrorConflict
	}
	r.items[rec.ID()] = rec
	return rec.Clone(), nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (models.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.items[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return rec.Clone(), nil
}

func (r *MemoryRepository) Update(_ context.Context, id string, fields models.Record) (models.Record, error) {
	fields, err := prepareUpdate(fields, r.now())
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.items[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	rec = rec.Clone()
	for k, v := range fields {
		rec[k] = v
	}
	r.items[id] = rec
	return rec.Clone(), nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *MemoryRepository) List(_ context.Context, limit int) ([]models.Record, error) {
	return r.filter(limit, func(models.Record) bool { return true }), nil
}

func (r *MemoryRepository) FindByField(_ context.Context, field, value string) ([]models.Record, error) {
	return r.filter(0, func(rec models.Record) bool { return rec.String(field) == value }), nil
}

func (r *MemoryRepository) Search(_ context.Context, field, value string) ([]models.Record, error) {
	return r.filter(0, func(rec models.Record) bool { return rec.Contains(field, value) }), nil
}

func (r *MemoryRepository) Count(context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items), nil
}

func (r *MemoryRepository) DistinctValues(_ context.Context, field string) ([]string, error) {
	return distinct(r.filter(0, func(models.Record) bool { return true }), field), nil
}

func (r *MemoryRepository) BatchCreate(_ context.Context, recs []models.Record) (int, error) {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range recs {
		rec = prepareNew(rec, now)
		r.items[rec.ID()] = rec
	}
	return len(recs), nil
}

func (r *MemoryRepository) BatchDelete(_ context.Context, ids []string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, id := range ids {
		if _, ok := r.items[id]; ok {
			delete(r.items, id)
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	c := common.FormatTime(cutoff)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, rec := range r.items {
		if createdBefore(rec, c) {
			delete(r.items, id)
			n++
		}
	}
	return n, nil
}

// filter returns clones ordered by created_at then id.
func (r *MemoryRepository) filter(limit int, keep func(models.Record) bool) []models.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Record, 0, len(r.items))
	for _, rec := range r.items {
		if keep(rec) {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ci, cj := out[i].String(models.FieldCreatedAt), out[j].String(models.FieldCreatedAt)
		if ci != cj {
			return ci < cj
		}
		return out[i].ID() < out[j].ID()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
