package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/ethereum/go-ethereum/common"

	"github.com/escrow-network/escrowd/internal/core/domain"
	"github.com/escrow-network/escrowd/internal/core/ports"
)

// Topics of the events published by the daemon. Clients subscribe to a
// single topic or to all of them at once with ports.AnyTopic.
const (
	EventTradeCreated         = "TRADE_CREATED"
	EventTradeFunded          = "TRADE_FUNDED"
	EventTradeConfirmed       = "TRADE_CONFIRMED"
	EventTradeSettled         = "TRADE_SETTLED"
	EventTradeCancelled       = "TRADE_CANCELLED"
	EventTradeDisputed        = "TRADE_DISPUTED"
	EventDisputeCancelled     = "DISPUTE_CANCELLED"
	EventRefundClaimed        = "REFUND_CLAIMED"
	EventAdminWithdrawal      = "ADMIN_WITHDRAWAL"
	EventDisputeResolved      = "DISPUTE_RESOLVED"
	EventDisputeCleared       = "DISPUTE_CLEARED"
	EventFeeUpdated           = "FEE_UPDATED"
	EventVaultUpdated         = "VAULT_UPDATED"
	EventOrderPartiallyFilled = "ORDER_PARTIALLY_FILLED"
	EventOrderFullyFilled     = "ORDER_FULLY_FILLED"
)

var allTopics = []string{
	EventTradeCreated, EventTradeFunded, EventTradeConfirmed,
	EventTradeSettled, EventTradeCancelled, EventTradeDisputed,
	EventDisputeCancelled, EventRefundClaimed, EventAdminWithdrawal,
	EventDisputeResolved, EventDisputeCleared, EventFeeUpdated,
	EventVaultUpdated, EventOrderPartiallyFilled, EventOrderFullyFilled,
}

// Broadcaster pushes raw event messages to locally connected clients,
// alongside the webhook notifications going out to remote subscribers.
type Broadcaster interface {
	BroadcastMessage(msg []byte)
}

// Service publishes the observable facts of the escrow as JSON messages and
// manages the webhook subscriptions receiving them.
type Service struct {
	pubsub      ports.SecurePubSub
	broadcaster Broadcaster
}

// NewService returns a publishing service on top of the given pubsub. The
// broadcaster is optional, a nil one disables local fan-out.
func NewService(pubsub ports.SecurePubSub, broadcaster Broadcaster) (*Service, error) {
	if pubsub == nil {
		return nil, fmt.Errorf("missing pubsub service")
	}
	return &Service{pubsub, broadcaster}, nil
}

func (s *Service) SecurePubSub() ports.SecurePubSub {
	return s.pubsub
}

// Topics returns every topic a client can subscribe to.
func (s *Service) Topics() []string {
	topics := make([]string, len(allTopics))
	copy(topics, allTopics)
	return topics
}

func (s *Service) AddWebhook(
	_ context.Context, topic, endpoint, secret string,
) (string, error) {
	if !s.isKnownTopic(topic) {
		return "", fmt.Errorf(
			"%w: unknown event topic %s", domain.ErrInvalidArgs, topic,
		)
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return "", fmt.Errorf(
			"%w: endpoint must be a valid URI", domain.ErrInvalidArgs,
		)
	}
	return s.pubsub.Subscribe(topic, endpoint, secret)
}

func (s *Service) RemoveWebhook(_ context.Context, id string) error {
	return s.pubsub.Unsubscribe(ports.UnspecifiedTopic, id)
}

func (s *Service) ListWebhooks(
	_ context.Context, topic string,
) []ports.Subscription {
	return s.pubsub.ListSubscriptionsForTopic(topic)
}

func (s *Service) PublishTradeCreated(trade domain.Trade) error {
	return s.publish(EventTradeCreated, map[string]interface{}{
		"trade_id":       trade.Id,
		"maker":          trade.Maker.Hex(),
		"taker":          trade.Taker.Hex(),
		"agreement_hash": trade.AgreementHash,
		"price":          trade.Price,
	})
}

func (s *Service) PublishTradeFunded(
	trade domain.Trade, funder common.Address, amount uint64,
) error {
	return s.publish(EventTradeFunded, map[string]interface{}{
		"trade_id": trade.Id,
		"funder":   funder.Hex(),
		"amount":   amount,
	})
}

func (s *Service) PublishTradeConfirmed(
	trade domain.Trade, confirmer common.Address,
) error {
	return s.publish(EventTradeConfirmed, map[string]interface{}{
		"trade_id":  trade.Id,
		"confirmer": confirmer.Hex(),
	})
}

func (s *Service) PublishTradeSettled(trade domain.Trade, fee uint64) error {
	return s.publish(EventTradeSettled, map[string]interface{}{
		"trade_id":   trade.Id,
		"fee_amount": fee,
	})
}

func (s *Service) PublishTradeCancelled(trade domain.Trade) error {
	return s.publish(EventTradeCancelled, map[string]interface{}{
		"trade_id": trade.Id,
	})
}

func (s *Service) PublishTradeDisputed(
	trade domain.Trade, disputer common.Address,
) error {
	return s.publish(EventTradeDisputed, map[string]interface{}{
		"trade_id": trade.Id,
		"disputer": disputer.Hex(),
	})
}

func (s *Service) PublishDisputeCancelled(
	trade domain.Trade, resolver common.Address,
) error {
	return s.publish(EventDisputeCancelled, map[string]interface{}{
		"trade_id": trade.Id,
		"resolver": resolver.Hex(),
	})
}

func (s *Service) PublishRefundClaimed(
	trade domain.Trade, claimer common.Address, amount uint64,
) error {
	return s.publish(EventRefundClaimed, map[string]interface{}{
		"trade_id": trade.Id,
		"claimer":  claimer.Hex(),
		"amount":   amount,
	})
}

func (s *Service) PublishAdminWithdrawal(
	trade domain.Trade, admin common.Address, amount uint64,
) error {
	return s.publish(EventAdminWithdrawal, map[string]interface{}{
		"trade_id": trade.Id,
		"admin":    admin.Hex(),
		"amount":   amount,
	})
}

func (s *Service) PublishDisputeResolved(
	trade domain.Trade, winner, loser common.Address, fee uint64, reason string,
) error {
	return s.publish(EventDisputeResolved, map[string]interface{}{
		"trade_id":   trade.Id,
		"winner":     winner.Hex(),
		"loser":      loser.Hex(),
		"fee_amount": fee,
		"reason":     reason,
	})
}

func (s *Service) PublishDisputeCleared(
	trade domain.Trade, admin common.Address, reason string,
) error {
	return s.publish(EventDisputeCleared, map[string]interface{}{
		"trade_id": trade.Id,
		"admin":    admin.Hex(),
		"reason":   reason,
	})
}

func (s *Service) PublishFeeUpdated(newBps uint32) error {
	return s.publish(EventFeeUpdated, map[string]interface{}{
		"new_basis_points": newBps,
	})
}

func (s *Service) PublishVaultUpdated(newVault common.Address) error {
	return s.publish(EventVaultUpdated, map[string]interface{}{
		"new_vault": newVault.Hex(),
	})
}

func (s *Service) PublishOrderPartiallyFilled(
	digest common.Hash, taker common.Address, fillAmount, remaining uint64,
) error {
	return s.publish(EventOrderPartiallyFilled, map[string]interface{}{
		"order_digest": digest.Hex(),
		"taker":        taker.Hex(),
		"fill_amount":  fillAmount,
		"remaining":    remaining,
	})
}

func (s *Service) PublishOrderFullyFilled(
	digest common.Hash, lastTaker common.Address,
) error {
	return s.publish(EventOrderFullyFilled, map[string]interface{}{
		"order_digest": digest.Hex(),
		"last_taker":   lastTaker.Hex(),
	})
}

func (s *Service) Close() {
	//nolint
	s.pubsub.Store().Close()
}

func (s *Service) publish(event string, payload map[string]interface{}) error {
	payload["event"] = event
	message, _ := json.Marshal(payload)

	if s.broadcaster != nil {
		s.broadcaster.BroadcastMessage(message)
	}
	return s.pubsub.Publish(event, string(message))
}

func (s *Service) isKnownTopic(topic string) bool {
	if topic == ports.AnyTopic {
		return true
	}
	for _, t := range allTopics {
		if t == topic {
			return true
		}
	}
	return false
}
