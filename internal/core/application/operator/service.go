// Package operator exposes the administrative surface of the daemon:
// platform settings management, deployment info and webhook registration.
package operator

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"

	"github.com/escrow-network/escrowd/internal/core/application/pubsub"
	"github.com/escrow-network/escrowd/internal/core/domain"
	"github.com/escrow-network/escrowd/internal/core/ports"
)

type Service struct {
	repoManager ports.RepoManager
	pubsub      *pubsub.Service

	feeCeiling uint32
	version    string
}

func NewService(
	repoManager ports.RepoManager, pubsubSvc *pubsub.Service,
	feeCeiling uint32, version string,
) (*Service, error) {
	if repoManager == nil {
		return nil, fmt.Errorf("missing repo manager")
	}
	if pubsubSvc == nil {
		return nil, fmt.Errorf("missing pubsub service")
	}
	if feeCeiling == 0 || feeCeiling > domain.MaxFeeBasisPoints {
		feeCeiling = domain.MaxFeeBasisPoints
	}

	return &Service{repoManager, pubsubSvc, feeCeiling, version}, nil
}

// InitSettings seeds the settings singleton on first run. Calling it against
// an already initialized store is a no-op, the persisted settings win over
// the daemon configuration.
func (s *Service) InitSettings(
	ctx context.Context, admin, vault common.Address, feeBps uint32,
) error {
	if feeBps > s.feeCeiling {
		return domain.ErrFeeAboveCeiling
	}
	settings, err := domain.NewSettings(admin, vault, feeBps, time.Now().Unix())
	if err != nil {
		return err
	}
	return s.repoManager.SettingsRepository().InitSettings(ctx, *settings)
}

// GetInfo returns the current platform settings along with the static
// deployment details.
func (s *Service) GetInfo(ctx context.Context) (*Info, error) {
	settings, err := s.repoManager.SettingsRepository().GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	return &Info{
		Admin:          settings.Admin,
		FeeVault:       settings.FeeVault,
		FeeBasisPoints: settings.FeeBasisPoints,
		FeeCeiling:     s.feeCeiling,
		Version:        s.version,
	}, nil
}

// UpdatePlatformFee changes the fee rate applied to the price component at
// settlement. Trades already settled keep the rate they were charged.
func (s *Service) UpdatePlatformFee(
	ctx context.Context, caller common.Address, newBps uint32,
) error {
	now := time.Now().Unix()
	if err := s.repoManager.SettingsRepository().UpdateSettings(
		ctx, func(settings *domain.Settings) (*domain.Settings, error) {
			if !settings.IsAdmin(caller) {
				return nil, domain.ErrNotAdmin
			}
			if err := settings.UpdateFee(newBps, s.feeCeiling, now); err != nil {
				return nil, err
			}
			return settings, nil
		},
	); err != nil {
		return err
	}

	if err := s.pubsub.PublishFeeUpdated(newBps); err != nil {
		log.WithError(err).Warnf(
			"failed to publish event for fee update to %d bps", newBps,
		)
	}
	return nil
}

// UpdateFeeVault changes the address collecting platform fees.
func (s *Service) UpdateFeeVault(
	ctx context.Context, caller, newVault common.Address,
) error {
	now := time.Now().Unix()
	if err := s.repoManager.SettingsRepository().UpdateSettings(
		ctx, func(settings *domain.Settings) (*domain.Settings, error) {
			if !settings.IsAdmin(caller) {
				return nil, domain.ErrNotAdmin
			}
			if err := settings.UpdateVault(newVault, now); err != nil {
				return nil, err
			}
			return settings, nil
		},
	); err != nil {
		return err
	}

	if err := s.pubsub.PublishVaultUpdated(newVault); err != nil {
		log.WithError(err).Warnf(
			"failed to publish event for vault update to %s", newVault,
		)
	}
	return nil
}
