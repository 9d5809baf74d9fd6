package repo

import (
	"sort"
	"sync"

	"github.com/Gnanaprakash-Dev/flipbook-studio/internal/domain"
)

// MemoryMagazineRepo is the in-process store used for development and tests.
type MemoryMagazineRepo struct {
	mu sync.RWMutex
	m  map[string]*domain.Magazine
}

func NewMemoryMagazineRepo() *MemoryMagazineRepo {
	return &MemoryMagazineRepo{m: make(map[string]*domain.Magazine)}
}

func (r *MemoryMagazineRepo) Put(m *domain.Magazine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.m {
		if existing.ID != m.ID && existing.ShareToken == m.ShareToken {
			return domain.ErrDuplicate
		}
	}
	cp := *m
	r.m[m.ID] = &cp
	return nil
}

func (r *MemoryMagazineRepo) Get(id string) (*domain.Magazine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.m[id]
	if !ok {
		return nil, false
	}
	cp := *m
	return &cp, true
}

func (r *MemoryMagazineRepo) GetByShareToken(token string) (*domain.Magazine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.m {
		if m.ShareToken == token {
			cp := *m
			return &cp, true
		}
	}
	return nil, false
}

func (r *MemoryMagazineRepo) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[id]; !ok {
		return false
	}
	delete(r.m, id)
	return true
}

func (r *MemoryMagazineRepo) List(status domain.Status, page, limit int) ([]domain.Magazine, int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]domain.Magazine, 0, len(r.m))
	for _, m := range r.m {
		if m.Status == status {
			all = append(all, *m)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	total := len(all)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return all[start:end], total
}
