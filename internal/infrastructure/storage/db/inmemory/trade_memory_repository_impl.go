package inmemory

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/escrow-network/escrowd/internal/core/domain"
)

type tradeInmemoryStore struct {
	trades map[uint64]domain.Trade
	lastId uint64
	locker *sync.Mutex
}

type tradeRepositoryImpl struct {
	store *tradeInmemoryStore
}

// NewTradeRepositoryImpl returns a new inmemory TradeRepository
// implementation.
func NewTradeRepositoryImpl() domain.TradeRepository {
	return &tradeRepositoryImpl{
		store: &tradeInmemoryStore{
			trades: map[uint64]domain.Trade{},
			locker: &sync.Mutex{},
		},
	}
}

func (r *tradeRepositoryImpl) AddTrade(
	_ context.Context, trade *domain.Trade,
) (uint64, error) {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	r.store.lastId++
	trade.Id = r.store.lastId
	r.store.trades[trade.Id] = *trade
	return trade.Id, nil
}

func (r *tradeRepositoryImpl) GetTrade(
	_ context.Context, id uint64,
) (*domain.Trade, error) {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	return r.getTrade(id)
}

func (r *tradeRepositoryImpl) GetAllTrades(
	_ context.Context,
) ([]domain.Trade, error) {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	trades := make([]domain.Trade, 0, len(r.store.trades))
	for id := uint64(1); id <= r.store.lastId; id++ {
		if trade, ok := r.store.trades[id]; ok {
			trades = append(trades, trade)
		}
	}
	return trades, nil
}

func (r *tradeRepositoryImpl) GetTradesForParty(
	_ context.Context, party common.Address,
) ([]domain.Trade, error) {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	trades := make([]domain.Trade, 0)
	for id := uint64(1); id <= r.store.lastId; id++ {
		trade, ok := r.store.trades[id]
		if !ok {
			continue
		}
		if trade.IsParty(party) {
			trades = append(trades, trade)
		}
	}
	return trades, nil
}

func (r *tradeRepositoryImpl) UpdateTrade(
	_ context.Context,
	id uint64,
	updateFn func(t *domain.Trade) (*domain.Trade, error),
) error {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	currentTrade, err := r.getTrade(id)
	if err != nil {
		return err
	}

	updatedTrade, err := updateFn(currentTrade)
	if err != nil {
		return err
	}

	r.store.trades[id] = *updatedTrade
	return nil
}

func (r *tradeRepositoryImpl) getTrade(id uint64) (*domain.Trade, error) {
	trade, ok := r.store.trades[id]
	if !ok {
		return nil, domain.ErrTradeNotFound
	}
	return &trade, nil
}
