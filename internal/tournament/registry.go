package tournament

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Registry holds live tournaments keyed by id.
type Registry struct {
	mu          sync.RWMutex
	tournaments map[string]*Tournament
	now         func() time.Time
}

func NewRegistry(now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{tournaments: make(map[string]*Tournament), now: now}
}

func (r *Registry) Create(adminID string, settings Settings) (*Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for range 10 {
		t, err := New(adminID, settings, r.now)
		if err != nil {
			return nil, err
		}
		if _, taken := r.tournaments[t.ID()]; taken {
			continue
		}
		r.tournaments[t.ID()] = t
		return t, nil
	}
	return nil, fmt.Errorf("could not allocate a tournament id")
}

func (r *Registry) Get(id string) (*Tournament, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tournaments[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t, nil
}

// List returns every tournament, oldest first.
func (r *Registry) List() []Summary {
	r.mu.RLock()
	out := make([]Summary, 0, len(r.tournaments))
	for _, t := range r.tournaments {
		out = append(out, t.Summary())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
