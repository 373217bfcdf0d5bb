package repository

import (
	"context"
	"errors"

	"giveaway-miniapp/internal/features/catalog/models"
)

var (
	ErrGiveawayNotFound = errors.New("giveaway not found")
)

type CatalogRepository interface {
	Get(ctx context.Context, id string) (*models.Giveaway, error)
	Save(ctx context.Context, g *models.Giveaway) error
	Exists(ctx context.Context, id string) (bool, error)
	// All returns every descriptor, unordered.
	All(ctx context.Context) ([]*models.Giveaway, error)
}
