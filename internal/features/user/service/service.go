package service

import (
	"context"
	"fmt"

	"giveaway-miniapp/internal/common/logger"
	"giveaway-miniapp/internal/features/identity"
	"giveaway-miniapp/internal/features/ledger/models"
	"giveaway-miniapp/internal/features/ledger/repository"
)

type ProfileService interface {
	// LoadOrCreate читает профиль из леджера, создавая дефолтный при первом входе.
	// Если леджер недоступен, возвращается дефолтный профиль с persisted=false и ошибкой.
	LoadOrCreate(ctx context.Context, id identity.Identity) (profile *models.UserProfile, persisted bool, err error)
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
}

type profileService struct {
	ledger repository.Ledger
}

func NewProfileService(ledger repository.Ledger) ProfileService {
	return &profileService{ledger: ledger}
}

func (s *profileService) LoadOrCreate(ctx context.Context, id identity.Identity) (*models.UserProfile, bool, error) {
	profile, err := s.ledger.GetProfile(ctx, id.ID)
	if err != nil {
		logger.Warn().Err(err).Str("user_id", id.ID).Msg("Ledger unreachable, using default profile")
		return models.NewProfile(id.ID, id.DisplayName, id.AvatarRef), false, err
	}
	if profile != nil {
		return profile, true, nil
	}

	initial := models.NewProfile(id.ID, id.DisplayName, id.AvatarRef)
	created, err := s.ledger.CreateProfile(ctx, initial)
	if err != nil {
		logger.Warn().Err(err).Str("user_id", id.ID).Msg("Failed to create profile")
		return initial, false, err
	}
	if !created {
		// создан параллельным запросом, перечитываем
		profile, err = s.ledger.GetProfile(ctx, id.ID)
		if err != nil {
			return initial, false, err
		}
		if profile != nil {
			return profile, true, nil
		}
	}

	logger.Info().Str("user_id", id.ID).Msg("Profile created")
	return initial, true, nil
}

func (s *profileService) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	profile, err := s.ledger.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: %s", repository.ErrProfileNotFound, userID)
	}
	return profile, nil
}
