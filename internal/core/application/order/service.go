// Package order implements the signed-order matcher: makers authorize
// reusable sell orders off-system, takers fill them in one or more chunks,
// and every accepted fill materializes as a fully funded trade.
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"

	"github.com/escrow-network/escrowd/internal/core/application/guard"
	"github.com/escrow-network/escrowd/internal/core/application/pubsub"
	"github.com/escrow-network/escrowd/internal/core/domain"
	"github.com/escrow-network/escrowd/internal/core/ports"
)

type Service struct {
	repoManager ports.RepoManager
	ledger      ports.AssetLedger
	verifier    ports.OrderVerifier
	pubsub      *pubsub.Service
	guard       *guard.Guard
}

func NewService(
	repoManager ports.RepoManager,
	assetLedger ports.AssetLedger,
	verifier ports.OrderVerifier,
	pubsubSvc *pubsub.Service,
	opGuard *guard.Guard,
) (*Service, error) {
	if repoManager == nil {
		return nil, fmt.Errorf("missing repo manager")
	}
	if assetLedger == nil {
		return nil, fmt.Errorf("missing asset ledger")
	}
	if verifier == nil {
		return nil, fmt.Errorf("missing order verifier")
	}
	if pubsubSvc == nil {
		return nil, fmt.Errorf("missing pubsub service")
	}
	if opGuard == nil {
		return nil, fmt.Errorf("missing operation guard")
	}

	return &Service{repoManager, assetLedger, verifier, pubsubSvc, opGuard}, nil
}

// FillOrder fills the given amount of a maker-signed order on behalf of the
// calling taker and returns the id of the trade born from the fill. Both
// funding legs are pulled into custody in the same call, the produced trade
// starts directly in Funded status awaiting the two confirmations.
func (s *Service) FillOrder(
	ctx context.Context, order domain.SellOrder, fillAmount uint64,
	signature, preAuth []byte, caller common.Address,
) (uint64, error) {
	if err := s.guard.Lock(); err != nil {
		return 0, err
	}
	defer s.guard.Unlock()

	now := time.Now().Unix()
	if err := order.Validate(); err != nil {
		return 0, err
	}
	if order.IsExpired(now) {
		return 0, domain.ErrOrderExpired
	}
	if !order.AllowsTaker(caller) {
		return 0, domain.ErrTakerNotAllowed
	}
	consumed, err := s.repoManager.OrderRepository().IsNonceConsumed(
		ctx, order.Maker, order.Nonce,
	)
	if err != nil {
		return 0, err
	}
	if consumed {
		return 0, domain.ErrNonceConsumed
	}

	digest, err := s.verifiedDigest(order, signature)
	if err != nil {
		return 0, err
	}

	if len(preAuth) > 0 {
		// Best effort: the maker may have authorized the value movement
		// through another channel already.
		if err := s.ledger.ApplyPermit(ctx, order.Asset, preAuth); err != nil {
			log.WithError(err).Debugf(
				"ignored failing pre-authorization for order %s", digest,
			)
		}
	}

	totalPrice, totalDeposit, err := order.FillTotals(fillAmount)
	if err != nil {
		return 0, err
	}
	trade, err := domain.NewFundedTrade(
		order.Maker, caller, order.Asset, totalPrice, totalDeposit,
		order.Direction, order.AgreementHash, now,
	)
	if err != nil {
		return 0, err
	}
	makerAmount, err := trade.RequiredAmount(order.Maker)
	if err != nil {
		return 0, err
	}
	takerAmount, err := trade.RequiredAmount(caller)
	if err != nil {
		return 0, err
	}

	var remaining uint64
	if err := s.repoManager.OrderRepository().UpdateFill(
		ctx, digest, func(f *domain.FillRecord) (*domain.FillRecord, error) {
			f.Maker, f.Nonce = order.Maker, order.Nonce
			rem, err := f.RecordFill(&order, fillAmount, now)
			if err != nil {
				return nil, err
			}

			// both legs land in custody or neither does
			if err := s.ledger.TransferIn(
				ctx, order.Asset, order.Maker, makerAmount,
			); err != nil {
				return nil, err
			}
			if err := s.ledger.TransferIn(
				ctx, order.Asset, caller, takerAmount,
			); err != nil {
				if txErr := s.ledger.TransferOut(
					ctx, order.Asset, order.Maker, makerAmount,
				); txErr != nil {
					log.WithError(txErr).Errorf(
						"failed to refund maker after aborted fill of order %s",
						digest,
					)
				}
				return nil, err
			}
			remaining = rem
			return f, nil
		},
	); err != nil {
		return 0, err
	}

	if remaining == 0 {
		if err := s.repoManager.OrderRepository().ConsumeNonce(
			ctx, order.Maker, order.Nonce,
		); err != nil && !errors.Is(err, domain.ErrNonceConsumed) {
			s.compensateFill(
				ctx, digest, &order, caller,
				fillAmount, makerAmount, takerAmount,
			)
			return 0, err
		}
	}

	tradeId, err := s.repoManager.TradeRepository().AddTrade(ctx, trade)
	if err != nil {
		s.compensateFill(
			ctx, digest, &order, caller, fillAmount, makerAmount, takerAmount,
		)
		return 0, err
	}

	s.publishFillEvents(
		digest, *trade, caller, fillAmount, remaining, makerAmount, takerAmount,
	)
	return tradeId, nil
}

// CancelOrder preemptively consumes the caller's nonce so that no order
// signed with it can ever be filled.
func (s *Service) CancelOrder(
	ctx context.Context, caller common.Address, nonce uint64,
) error {
	if caller == (common.Address{}) {
		return domain.ErrMissingParty
	}
	return s.repoManager.OrderRepository().ConsumeNonce(ctx, caller, nonce)
}

// RemainingQuantity returns how much of the order is still fillable. The
// signature is verified so that fill state cannot be probed with forged
// orders.
func (s *Service) RemainingQuantity(
	ctx context.Context, order domain.SellOrder, signature []byte,
) (uint64, error) {
	if err := order.Validate(); err != nil {
		return 0, err
	}
	digest, err := s.verifiedDigest(order, signature)
	if err != nil {
		return 0, err
	}

	fill, err := s.repoManager.OrderRepository().GetFill(ctx, digest)
	if err != nil {
		return 0, err
	}
	return fill.RemainingOf(&order), nil
}

func (s *Service) verifiedDigest(
	order domain.SellOrder, signature []byte,
) (common.Hash, error) {
	digest := s.verifier.Digest(order)
	signer, err := s.verifier.RecoverSigner(digest, signature)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %s", domain.ErrBadSignature, err)
	}
	if signer != order.Maker {
		return common.Hash{}, domain.ErrSignerNotMaker
	}
	return digest, nil
}

// compensateFill undoes the custody pulls and the fill-state bump of a fill
// whose trade could not be persisted. Failures here can only be logged,
// there is nobody left to return them to.
func (s *Service) compensateFill(
	ctx context.Context, digest common.Hash, order *domain.SellOrder,
	taker common.Address, fillAmount, makerAmount, takerAmount uint64,
) {
	if err := s.ledger.TransferOut(
		ctx, order.Asset, order.Maker, makerAmount,
	); err != nil {
		log.WithError(err).Errorf(
			"failed to refund maker after aborted fill of order %s", digest,
		)
	}
	if err := s.ledger.TransferOut(
		ctx, order.Asset, taker, takerAmount,
	); err != nil {
		log.WithError(err).Errorf(
			"failed to refund taker after aborted fill of order %s", digest,
		)
	}
	if err := s.repoManager.OrderRepository().UpdateFill(
		ctx, digest, func(f *domain.FillRecord) (*domain.FillRecord, error) {
			f.Filled -= fillAmount
			return f, nil
		},
	); err != nil {
		log.WithError(err).Errorf(
			"failed to revert fill state of order %s", digest,
		)
	}
}

func (s *Service) publishFillEvents(
	digest common.Hash, trade domain.Trade, taker common.Address,
	fillAmount, remaining, makerAmount, takerAmount uint64,
) {
	if remaining == 0 {
		if err := s.pubsub.PublishOrderFullyFilled(digest, taker); err != nil {
			log.WithError(err).Warnf(
				"failed to publish event for fully filled order %s", digest,
			)
		}
	} else {
		if err := s.pubsub.PublishOrderPartiallyFilled(
			digest, taker, fillAmount, remaining,
		); err != nil {
			log.WithError(err).Warnf(
				"failed to publish event for partially filled order %s", digest,
			)
		}
	}

	if err := s.pubsub.PublishTradeCreated(trade); err != nil {
		log.WithError(err).Warnf(
			"failed to publish event for new trade %d", trade.Id,
		)
	}
	if err := s.pubsub.PublishTradeFunded(
		trade, trade.Maker, makerAmount,
	); err != nil {
		log.WithError(err).Warnf(
			"failed to publish event for funded trade %d", trade.Id,
		)
	}
	if err := s.pubsub.PublishTradeFunded(trade, taker, takerAmount); err != nil {
		log.WithError(err).Warnf(
			"failed to publish event for funded trade %d", trade.Id,
		)
	}
}
