package services

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"market-ledger/internal/models"
	"market-ledger/internal/repositories"
)

// profileService implements the ProfileService interface
type profileService struct {
	repos   repositories.Repositories
	mirrors *Mirrors
	logger  *logrus.Logger
}

// NewProfileService creates a new profile service instance
func NewProfileService(repos repositories.Repositories, mirrors *Mirrors, logger *logrus.Logger) ProfileService {
	if logger == nil {
		logger = logrus.New()
	}
	return &profileService{repos: repos, mirrors: mirrors, logger: logger}
}

// FindProfiles returns profiles with age > minAge and balance < maxBalance in
// store order
func (s *profileService) FindProfiles(ctx context.Context, minAge int, maxBalance decimal.Decimal) ([]*models.Profile, error) {
	if minAge < 0 {
		return nil, fmt.Errorf("%w: min age cannot be negative", ErrValidation)
	}

	profiles, err := s.repos.Profiles().FindProfiles(ctx, repositories.ProfileQuery{
		MinAge:     minAge,
		MaxBalance: maxBalance,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find profiles: %w", translate(err))
	}
	return profiles, nil
}

// UpdatePassword replaces a profile's credential in the store, then in the mirror
func (s *profileService) UpdatePassword(ctx context.Context, profileID int64, newPassword string) error {
	if err := ValidateRequest(&PasswordUpdateRequest{Password: newPassword}); err != nil {
		return err
	}

	err := s.mirrors.Track(func() error {
		if err := s.repos.Profiles().UpdatePassword(ctx, profileID, newPassword); err != nil {
			return err
		}
		s.mirrors.Profiles.Update(profileID, func(p *models.Profile) {
			p.Password = newPassword
			p.UpdateTimestamp()
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update password: %w", translate(err))
	}

	s.logger.WithField("profile_id", profileID).Info("Password updated")
	return nil
}

// GetProfile retrieves a profile from the store
func (s *profileService) GetProfile(ctx context.Context, id int64) (*models.Profile, error) {
	profile, err := s.repos.Profiles().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", translate(err))
	}
	return profile, nil
}

// ListProfiles returns the mirrored profiles in load order
func (s *profileService) ListProfiles(ctx context.Context) []*models.Profile {
	return s.mirrors.Profiles.List()
}

// Authenticate checks a trader's nickname and password
func (s *profileService) Authenticate(ctx context.Context, nick, password string) (*models.Profile, error) {
	profile, err := s.repos.Profiles().GetByNick(ctx, nick)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to authenticate: %w", translate(err))
	}
	if subtle.ConstantTimeCompare([]byte(profile.Password), []byte(password)) != 1 {
		return nil, ErrUnauthorized
	}
	return profile, nil
}
