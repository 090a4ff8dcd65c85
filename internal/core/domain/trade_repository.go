package domain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// TradeRepository is the abstraction for any kind of database intended to
// persist Trades. Identifiers are assigned by the repository, monotonically
// increasing from 1 with no gaps or reuse.
type TradeRepository interface {
	// AddTrade persists a new trade, assigns the next identifier and returns
	// it.
	AddTrade(ctx context.Context, trade *Trade) (uint64, error)
	// GetTrade returns the trade with the given id, or ErrTradeNotFound.
	GetTrade(ctx context.Context, id uint64) (*Trade, error)
	// GetAllTrades returns all the trades stored in the repository.
	GetAllTrades(ctx context.Context) ([]Trade, error)
	// GetTradesForParty returns all the trades where the given address is
	// either maker or taker.
	GetTradesForParty(ctx context.Context, party common.Address) ([]Trade, error)
	// UpdateTrade allows to commit multiple changes to the same trade in a
	// transactional way. If updateFn returns an error no change is persisted.
	UpdateTrade(
		ctx context.Context,
		id uint64,
		updateFn func(t *Trade) (*Trade, error),
	) error
}
