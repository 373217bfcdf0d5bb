package memory

import (
	"context"
	"sync"

	"giveaway-miniapp/internal/features/catalog/models"
	"giveaway-miniapp/internal/features/catalog/repository"
)

type Repository struct {
	mu        sync.RWMutex
	giveaways map[string]models.Giveaway
}

var _ repository.CatalogRepository = (*Repository)(nil)

func NewRepository() *Repository {
	return &Repository{giveaways: make(map[string]models.Giveaway)}
}

func (r *Repository) Get(_ context.Context, id string) (*models.Giveaway, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.giveaways[id]
	if !ok {
		return nil, repository.ErrGiveawayNotFound
	}
	return &g, nil
}

func (r *Repository) Save(_ context.Context, g *models.Giveaway) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.giveaways[g.ID] = *g
	return nil
}

func (r *Repository) Exists(_ context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.giveaways[id]
	return ok, nil
}

func (r *Repository) All(_ context.Context) ([]*models.Giveaway, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Giveaway, 0, len(r.giveaways))
	for _, g := range r.giveaways {
		g := g
		out = append(out, &g)
	}
	return out, nil
}
