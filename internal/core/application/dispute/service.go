// Package dispute implements the arbitration path of escrowed trades: a
// party freezes a funded trade, then either withdraws the dispute or an
// administrator resolves it, clears it, or drains the escrow as a last
// resort.
package dispute

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"

	"github.com/escrow-network/escrowd/internal/core/application/guard"
	"github.com/escrow-network/escrowd/internal/core/application/pubsub"
	"github.com/escrow-network/escrowd/internal/core/domain"
	"github.com/escrow-network/escrowd/internal/core/ports"
	"github.com/escrow-network/escrowd/pkg/mathutil"
)

type Service struct {
	repoManager ports.RepoManager
	ledger      ports.AssetLedger
	pubsub      *pubsub.Service
	guard       *guard.Guard
}

func NewService(
	repoManager ports.RepoManager,
	assetLedger ports.AssetLedger,
	pubsubSvc *pubsub.Service,
	opGuard *guard.Guard,
) (*Service, error) {
	if repoManager == nil {
		return nil, fmt.Errorf("missing repo manager")
	}
	if assetLedger == nil {
		return nil, fmt.Errorf("missing asset ledger")
	}
	if pubsubSvc == nil {
		return nil, fmt.Errorf("missing pubsub service")
	}
	if opGuard == nil {
		return nil, fmt.Errorf("missing operation guard")
	}

	return &Service{repoManager, assetLedger, pubsubSvc, opGuard}, nil
}

// RaiseDispute freezes a funded trade. Either party can raise it, the
// counterparty cannot undo it.
func (s *Service) RaiseDispute(
	ctx context.Context, tradeId uint64, caller common.Address,
) error {
	var updatedTrade domain.Trade
	if err := s.repoManager.TradeRepository().UpdateTrade(
		ctx, tradeId, func(t *domain.Trade) (*domain.Trade, error) {
			if err := t.OpenDispute(caller); err != nil {
				return nil, err
			}
			updatedTrade = *t
			return t, nil
		},
	); err != nil {
		return err
	}

	if err := s.pubsub.PublishTradeDisputed(updatedTrade, caller); err != nil {
		log.WithError(err).Warnf(
			"failed to publish event for disputed trade %d", tradeId,
		)
	}
	return nil
}

// CancelDispute returns a disputed trade to the normal path. Only the party
// that raised the dispute may withdraw it.
func (s *Service) CancelDispute(
	ctx context.Context, tradeId uint64, caller common.Address,
) error {
	var updatedTrade domain.Trade
	if err := s.repoManager.TradeRepository().UpdateTrade(
		ctx, tradeId, func(t *domain.Trade) (*domain.Trade, error) {
			if err := t.CancelDispute(caller); err != nil {
				return nil, err
			}
			updatedTrade = *t
			return t, nil
		},
	); err != nil {
		return err
	}

	if err := s.pubsub.PublishDisputeCancelled(
		updatedTrade, caller,
	); err != nil {
		log.WithError(err).Warnf(
			"failed to publish event for trade %d dispute withdrawal", tradeId,
		)
	}
	return nil
}

// ResolveDispute closes a disputed trade in favor of the given winner. The
// platform keeps its fee, the winner receives the whole remaining escrow.
func (s *Service) ResolveDispute(
	ctx context.Context, tradeId uint64, caller, winner common.Address,
	reason string,
) error {
	if err := s.guard.Lock(); err != nil {
		return err
	}
	defer s.guard.Unlock()

	settings, err := s.adminSettings(ctx, caller)
	if err != nil {
		return err
	}

	var loser common.Address
	var feeAmount uint64
	var updatedTrade domain.Trade
	if err := s.repoManager.TradeRepository().UpdateTrade(
		ctx, tradeId, func(t *domain.Trade) (*domain.Trade, error) {
			opponent, err := t.CounterpartyOf(winner)
			if err != nil {
				return nil, domain.ErrWinnerNotParty
			}
			if err := t.Resolve(winner, time.Now().Unix()); err != nil {
				return nil, err
			}

			if err := s.assertCustodyCovers(ctx, t); err != nil {
				return nil, err
			}

			_, fee := mathutil.LessFee(
				t.Price, uint64(settings.FeeBasisPoints),
			)
			if fee > 0 {
				if err := s.ledger.TransferOut(
					ctx, t.Asset, settings.FeeVault, fee,
				); err != nil {
					return nil, err
				}
			}
			if err := s.ledger.TransferOut(
				ctx, t.Asset, winner, t.TotalEscrow()-fee,
			); err != nil {
				return nil, err
			}

			loser, feeAmount = opponent, fee
			updatedTrade = *t
			return t, nil
		},
	); err != nil {
		return err
	}

	if err := s.pubsub.PublishDisputeResolved(
		updatedTrade, winner, loser, feeAmount, reason,
	); err != nil {
		log.WithError(err).Warnf(
			"failed to publish event for resolved trade %d", tradeId,
		)
	}
	return nil
}

// ClearDispute drops a dispute without moving funds, returning the trade to
// the confirm/settle path. The custody balance is checked as a sanity
// assertion only.
func (s *Service) ClearDispute(
	ctx context.Context, tradeId uint64, caller common.Address, reason string,
) error {
	if err := s.guard.Lock(); err != nil {
		return err
	}
	defer s.guard.Unlock()

	if _, err := s.adminSettings(ctx, caller); err != nil {
		return err
	}

	var updatedTrade domain.Trade
	if err := s.repoManager.TradeRepository().UpdateTrade(
		ctx, tradeId, func(t *domain.Trade) (*domain.Trade, error) {
			if !t.IsDisputed() {
				return nil, domain.ErrTradeNotDisputed
			}
			if err := s.assertCustodyCovers(ctx, t); err != nil {
				return nil, err
			}
			if err := t.ClearDispute(); err != nil {
				return nil, err
			}
			updatedTrade = *t
			return t, nil
		},
	); err != nil {
		return err
	}

	if err := s.pubsub.PublishDisputeCleared(
		updatedTrade, caller, reason,
	); err != nil {
		log.WithError(err).Warnf(
			"failed to publish event for cleared trade %d", tradeId,
		)
	}
	return nil
}

// WithdrawEscrow drains the whole escrow of a disputed trade to the
// administrator. It is the fail-safe escape hatch for trades that cannot be
// resolved in favor of either party. It returns the amount withdrawn.
func (s *Service) WithdrawEscrow(
	ctx context.Context, tradeId uint64, caller common.Address,
) (uint64, error) {
	if err := s.guard.Lock(); err != nil {
		return 0, err
	}
	defer s.guard.Unlock()

	settings, err := s.adminSettings(ctx, caller)
	if err != nil {
		return 0, err
	}

	var amount uint64
	var updatedTrade domain.Trade
	if err := s.repoManager.TradeRepository().UpdateTrade(
		ctx, tradeId, func(t *domain.Trade) (*domain.Trade, error) {
			if err := t.CloseByAdmin(time.Now().Unix()); err != nil {
				return nil, err
			}
			if err := s.assertCustodyCovers(ctx, t); err != nil {
				return nil, err
			}
			if err := s.ledger.TransferOut(
				ctx, t.Asset, settings.Admin, t.TotalEscrow(),
			); err != nil {
				return nil, err
			}
			amount = t.TotalEscrow()
			updatedTrade = *t
			return t, nil
		},
	); err != nil {
		return 0, err
	}

	if err := s.pubsub.PublishAdminWithdrawal(
		updatedTrade, settings.Admin, amount,
	); err != nil {
		log.WithError(err).Warnf(
			"failed to publish event for withdrawn trade %d", tradeId,
		)
	}
	return amount, nil
}

func (s *Service) adminSettings(
	ctx context.Context, caller common.Address,
) (*domain.Settings, error) {
	settings, err := s.repoManager.SettingsRepository().GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.IsAdmin(caller) {
		return nil, domain.ErrNotAdmin
	}
	return settings, nil
}

func (s *Service) assertCustodyCovers(
	ctx context.Context, t *domain.Trade,
) error {
	balance, err := s.ledger.BalanceOf(ctx, t.Asset)
	if err != nil {
		return err
	}
	if balance < t.TotalEscrow() {
		return fmt.Errorf(
			"%w: custody balance below total escrow of trade %d",
			domain.ErrInsufficientEscrow, t.Id,
		)
	}
	return nil
}
