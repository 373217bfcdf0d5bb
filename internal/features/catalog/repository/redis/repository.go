package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"giveaway-miniapp/internal/features/catalog/models"
	"giveaway-miniapp/internal/features/catalog/repository"
)

const (
	keyPrefixGiveaway = "catalog:giveaway:"
	keyAllGiveaways   = "catalog:giveaways"
)

type redisRepository struct {
	client redis.UniversalClient
}

func NewRedisCatalogRepository(client redis.UniversalClient) repository.CatalogRepository {
	return &redisRepository{client: client}
}

func makeGiveawayKey(id string) string {
	return keyPrefixGiveaway + id
}

func (r *redisRepository) Get(ctx context.Context, id string) (*models.Giveaway, error) {
	data, err := r.client.Get(ctx, makeGiveawayKey(id)).Bytes()
	if err == redis.Nil {
		return nil, repository.ErrGiveawayNotFound
	}
	if err != nil {
		return nil, err
	}

	var g models.Giveaway
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to unmarshal giveaway %s: %w", id, err)
	}
	return &g, nil
}

func (r *redisRepository) Save(ctx context.Context, g *models.Giveaway) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to marshal giveaway: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, makeGiveawayKey(g.ID), data, 0)
	pipe.SAdd(ctx, keyAllGiveaways, g.ID)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *redisRepository) Exists(ctx context.Context, id string) (bool, error) {
	return r.client.SIsMember(ctx, keyAllGiveaways, id).Result()
}

func (r *redisRepository) All(ctx context.Context) ([]*models.Giveaway, error) {
	ids, err := r.client.SMembers(ctx, keyAllGiveaways).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = makeGiveawayKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]*models.Giveaway, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var g models.Giveaway
		if err := json.Unmarshal([]byte(s), &g); err != nil {
			return nil, fmt.Errorf("failed to unmarshal giveaway %s: %w", ids[i], err)
		}
		out = append(out, &g)
	}
	return out, nil
}
