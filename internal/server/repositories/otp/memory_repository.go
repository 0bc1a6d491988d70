package otp

import (
	"context"
	"sort"
	"sync"

	"github.com/dmitrijs2005/liberandum/internal/common"
	"github.com/dmitrijs2005/liberandum/internal/server/models"
)

type MemoryRepository struct {
	mu    sync.Mutex
	codes map[string]models.OTP
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{codes: map[string]models.OTP{}}
}

func (r *MemoryRepository) Create(_ context.Context, code *models.OTP) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.codes[code.ID]; ok {
		return common.ErrorConflict
	}
	r.codes[code.ID] = *code
	return nil
}

func (r *MemoryRepository) DeleteByEmailAndType(_ context.Context, email string, typ models.OTPType) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, c := range r.codes {
		if c.Email == email && c.Type == typ {
			delete(r.codes, id)
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) FindActive(_ context.Context, email, code string, typ models.OTPType, now string) (*models.OTP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.codes {
		if c.Email == email && c.Code == code && c.Type == typ && c.ActiveAt(now) {
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *MemoryRepository) MarkUsed(_ context.Context, id, now string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[id]
	if !ok || !c.ActiveAt(now) {
		return common.ErrorNotFound
	}
	c.Used = true
	c.UsedAt = now
	r.codes[id] = c
	return nil
}

func (r *MemoryRepository) DeleteExpired(_ context.Context, now string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, c := range r.codes {
		if c.ExpiresAt <= now {
			delete(r.codes, id)
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) ListByEmail(_ context.Context, email string) ([]*models.OTP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.OTP
	for _, c := range r.codes {
		if c.Email == email {
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}
