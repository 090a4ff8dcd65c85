package trade

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

// ErrAllowanceTooLow is returned by the create-and-fund path when the
// caller's pre-authorization cannot cover the required funding amount.
var ErrAllowanceTooLow = fmt.Errorf(
	"%w: allowance below required funding amount", domain.ErrInvalidArgs,
)

// Service coordinates the lifecycle of escrowed trades: creation, funding,
// confirmation with automatic settlement, cancellation and refunds.
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

// CreateTrade registers a new Open trade and returns its identifier. No
// funds move until the parties fund their legs.
func (s *Service) CreateTrade(
	ctx context.Context, args CreateTradeArgs,
) (uint64, error) {
	trade, err := domain.NewTrade(
		args.Maker, args.Taker, args.Asset, args.Price, args.Deposit,
		args.FundingWindow, args.Direction, args.AgreementHash,
		time.Now().Unix(),
	)
	if err != nil {
		return 0, err
	}

	tradeId, err := s.repoManager.TradeRepository().AddTrade(ctx, trade)
	if err != nil {
		return 0, err
	}

	if err := s.pubsub.PublishTradeCreated(*trade); err != nil {
		log.WithError(err).Warnf(
			"failed to publish event for new trade %d", tradeId,
		)
	}
	return tradeId, nil
}

// CreateTradeWithFunding registers a new trade and funds the caller's leg in
// the same call. Only the taker, the creator of a direct trade, may use it,
// so the maker side is never funded here. The allowance is checked upfront
// so that nothing is persisted when the pull into custody is bound to fail.
func (s *Service) CreateTradeWithFunding(
	ctx context.Context, args CreateTradeArgs, caller common.Address,
) (uint64, error) {
	if err := s.guard.Lock(); err != nil {
		return 0, err
	}
	defer s.guard.Unlock()

	now := time.Now().Unix()
	trade, err := domain.NewTrade(
		args.Maker, args.Taker, args.Asset, args.Price, args.Deposit,
		args.FundingWindow, args.Direction, args.AgreementHash, now,
	)
	if err != nil {
		return 0, err
	}
	if caller != trade.Taker {
		return 0, domain.ErrNotTradeCreator
	}

	amount, err := trade.Fund(caller, now)
	if err != nil {
		return 0, err
	}

	allowance, err := s.ledger.AllowanceOf(ctx, args.Asset, caller)
	if err != nil {
		return 0, err
	}
	if allowance < amount {
		return 0, ErrAllowanceTooLow
	}

	if err := s.ledger.TransferIn(ctx, args.Asset, caller, amount); err != nil {
		return 0, err
	}

	tradeId, err := s.repoManager.TradeRepository().AddTrade(ctx, trade)
	if err != nil {
		// the trade was not persisted, give the pulled funds back
		if txErr := s.ledger.TransferOut(
			ctx, args.Asset, caller, amount,
		); txErr != nil {
			log.WithError(txErr).Errorf(
				"failed to refund %s after aborted trade creation", caller,
			)
		}
		return 0, err
	}

	if err := s.pubsub.PublishTradeCreated(*trade); err != nil {
		log.WithError(err).Warnf(
			"failed to publish event for new trade %d", tradeId,
		)
	}
	if err := s.pubsub.PublishTradeFunded(*trade, caller, amount); err != nil {
		log.WithError(err).Warnf(
			"failed to publish event for funded trade %d", tradeId,
		)
	}
	return tradeId, nil
}

// FundTrade pulls the caller's required amount into custody and records the
// funding. It returns the amount moved.
func (s *Service) FundTrade(
	ctx context.Context, tradeId uint64, caller common.Address,
) (uint64, error) {
	if err := s.guard.Lock(); err != nil {
		return 0, err
	}
	defer s.guard.Unlock()

	var amount uint64
	var updatedTrade domain.Trade
	if err := s.repoManager.TradeRepository().UpdateTrade(
		ctx, tradeId, func(t *domain.Trade) (*domain.Trade, error) {
			movedAmount, err := t.Fund(caller, time.Now().Unix())
			if err != nil {
				return nil, err
			}
			// The pull into custody runs inside the update so that a failed
			// transfer rolls the state change back.
			if err := s.ledger.TransferIn(
				ctx, t.Asset, caller, movedAmount,
			); err != nil {
				return nil, err
			}
			amount = movedAmount
			updatedTrade = *t
			return t, nil
		},
	); err != nil {
		return 0, err
	}

	if err := s.pubsub.PublishTradeFunded(
		updatedTrade, caller, amount,
	); err != nil {
		log.WithError(err).Warnf(
			"failed to publish event for funded trade %d", tradeId,
		)
	}
	return amount, nil
}

// ConfirmTrade records the caller's completion confirmation. Once both
// parties confirmed, the trade settles in the same call: fee to the vault,
// price plus deposit less fee to the price recipient, deposit back to the
// other side.
func (s *Service) ConfirmTrade(
	ctx context.Context, tradeId uint64, caller common.Address,
) error {
	if err := s.guard.Lock(); err != nil {
		return err
	}
	defer s.guard.Unlock()

	settings, err := s.repoManager.SettingsRepository().GetSettings(ctx)
	if err != nil {
		return err
	}

	var settled bool
	var feeAmount uint64
	var updatedTrade domain.Trade
	if err := s.repoManager.TradeRepository().UpdateTrade(
		ctx, tradeId, func(t *domain.Trade) (*domain.Trade, error) {
			bothConfirmed, err := t.Confirm(caller)
			if err != nil {
				return nil, err
			}
			if bothConfirmed {
				fee, err := s.settle(ctx, t, settings)
				if err != nil {
					return nil, err
				}
				settled, feeAmount = true, fee
			}
			updatedTrade = *t
			return t, nil
		},
	); err != nil {
		return err
	}

	if err := s.pubsub.PublishTradeConfirmed(updatedTrade, caller); err != nil {
		log.WithError(err).Warnf(
			"failed to publish event for confirmed trade %d", tradeId,
		)
	}
	if settled {
		if err := s.pubsub.PublishTradeSettled(
			updatedTrade, feeAmount,
		); err != nil {
			log.WithError(err).Warnf(
				"failed to publish event for settled trade %d", tradeId,
			)
		}
	}
	return nil
}

// CancelTrade voids an Open trade stuck past its funding deadline. Anyone
// may trigger it, the outcome does not depend on the caller.
func (s *Service) CancelTrade(ctx context.Context, tradeId uint64) error {
	var updatedTrade domain.Trade
	if err := s.repoManager.TradeRepository().UpdateTrade(
		ctx, tradeId, func(t *domain.Trade) (*domain.Trade, error) {
			if err := t.Cancel(time.Now().Unix()); err != nil {
				return nil, err
			}
			updatedTrade = *t
			return t, nil
		},
	); err != nil {
		return err
	}

	if err := s.pubsub.PublishTradeCancelled(updatedTrade); err != nil {
		log.WithError(err).Warnf(
			"failed to publish event for cancelled trade %d", tradeId,
		)
	}
	return nil
}

// ClaimRefund gives a party of a cancelled trade its funded amount back. It
// returns the amount refunded.
func (s *Service) ClaimRefund(
	ctx context.Context, tradeId uint64, caller common.Address,
) (uint64, error) {
	if err := s.guard.Lock(); err != nil {
		return 0, err
	}
	defer s.guard.Unlock()

	var amount uint64
	var updatedTrade domain.Trade
	if err := s.repoManager.TradeRepository().UpdateTrade(
		ctx, tradeId, func(t *domain.Trade) (*domain.Trade, error) {
			refund, err := t.ClaimRefund(caller)
			if err != nil {
				return nil, err
			}
			if err := s.ledger.TransferOut(
				ctx, t.Asset, caller, refund,
			); err != nil {
				return nil, err
			}
			amount = refund
			updatedTrade = *t
			return t, nil
		},
	); err != nil {
		return 0, err
	}

	if err := s.pubsub.PublishRefundClaimed(
		updatedTrade, caller, amount,
	); err != nil {
		log.WithError(err).Warnf(
			"failed to publish event for refunded trade %d", tradeId,
		)
	}
	return amount, nil
}

func (s *Service) GetTrade(
	ctx context.Context, tradeId uint64,
) (*domain.Trade, error) {
	return s.repoManager.TradeRepository().GetTrade(ctx, tradeId)
}

func (s *Service) ListTrades(ctx context.Context) ([]domain.Trade, error) {
	return s.repoManager.TradeRepository().GetAllTrades(ctx)
}

func (s *Service) ListTradesForParty(
	ctx context.Context, party common.Address,
) ([]domain.Trade, error) {
	return s.repoManager.TradeRepository().GetTradesForParty(ctx, party)
}

// settle pays a trade out once both parties confirmed. The status moves to
// Settled before any transfer, a failing transfer rolls the whole update
// back. The custody pool must cover the full escrow of the trade, a
// shortfall means the bookkeeping is broken and nothing is paid.
func (s *Service) settle(
	ctx context.Context, t *domain.Trade, settings *domain.Settings,
) (uint64, error) {
	if err := t.Settle(time.Now().Unix()); err != nil {
		return 0, err
	}

	balance, err := s.ledger.BalanceOf(ctx, t.Asset)
	if err != nil {
		return 0, err
	}
	if balance < t.TotalEscrow() {
		return 0, fmt.Errorf(
			"%w: custody balance below total escrow of trade %d",
			domain.ErrInsufficientEscrow, t.Id,
		)
	}

	priceLessFee, fee := mathutil.LessFee(
		t.Price, uint64(settings.FeeBasisPoints),
	)
	if fee > 0 {
		if err := s.ledger.TransferOut(
			ctx, t.Asset, settings.FeeVault, fee,
		); err != nil {
			return 0, err
		}
	}
	if err := s.ledger.TransferOut(
		ctx, t.Asset, t.PriceRecipient(), priceLessFee+t.Deposit,
	); err != nil {
		return 0, err
	}
	if err := s.ledger.TransferOut(
		ctx, t.Asset, t.DepositRecipient(), t.Deposit,
	); err != nil {
		return 0, err
	}
	return fee, nil
}
