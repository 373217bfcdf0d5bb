package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"giveaway-miniapp/internal/common/validation"
	"giveaway-miniapp/internal/features/catalog/models"
	"giveaway-miniapp/internal/features/catalog/repository"
)

type CatalogService interface {
	List(ctx context.Context, phase models.Phase, query string) ([]*models.Giveaway, error)
	Get(ctx context.Context, id string) (*models.Giveaway, error)
	Exists(ctx context.Context, id string) (bool, error)
	Save(ctx context.Context, g *models.Giveaway) error
}

type catalogService struct {
	repo repository.CatalogRepository
	now  func() time.Time
}

func NewCatalogService(repo repository.CatalogRepository) CatalogService {
	return &catalogService{repo: repo, now: time.Now}
}

// NewCatalogServiceWithClock is used by tests.
func NewCatalogServiceWithClock(repo repository.CatalogRepository, now func() time.Time) CatalogService {
	return &catalogService{repo: repo, now: now}
}

func (s *catalogService) List(ctx context.Context, phase models.Phase, query string) ([]*models.Giveaway, error) {
	all, err := s.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list giveaways: %w", err)
	}

	now := s.now()
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]*models.Giveaway, 0, len(all))
	for _, g := range all {
		if g.PhaseAt(now) != phase {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(g.Title), query) {
			continue
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *catalogService) Get(ctx context.Context, id string) (*models.Giveaway, error) {
	return s.repo.Get(ctx, id)
}

func (s *catalogService) Exists(ctx context.Context, id string) (bool, error) {
	if validation.ValidateGiveawayID(id) != nil {
		return false, nil
	}
	return s.repo.Exists(ctx, id)
}

func (s *catalogService) Save(ctx context.Context, g *models.Giveaway) error {
	if err := validation.ValidateGiveawayID(g.ID); err != nil {
		return err
	}
	g.Title = strings.TrimSpace(g.Title)
	if err := validation.ValidateTitle(g.Title); err != nil {
		return err
	}
	if err := g.Validate(); err != nil {
		return err
	}
	return s.repo.Save(ctx, g)
}
