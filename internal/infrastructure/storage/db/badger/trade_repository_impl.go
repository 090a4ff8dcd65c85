package dbbadger

import (
	"context"
	"sort"

	"github.com/dgraph-io/badger/v3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/timshannon/badgerhold/v4"

	"github.com/escrow-network/escrowd/internal/core/domain"
)

const tradeCounterKey = "last_trade_id"

// tradeCounter tracks the last assigned trade id. It lives in the same store
// as the trades so that bumping it and inserting the new trade commit in the
// same badger transaction, keeping ids gapless across restarts.
type tradeCounter struct {
	Last uint64
}

type tradeRepositoryImpl struct {
	store *badgerhold.Store
}

func NewTradeRepositoryImpl(store *badgerhold.Store) domain.TradeRepository {
	return &tradeRepositoryImpl{store}
}

func (t *tradeRepositoryImpl) AddTrade(
	ctx context.Context, trade *domain.Trade,
) (uint64, error) {
	var nextId uint64
	if err := t.store.Badger().Update(func(tx *badger.Txn) error {
		var counter tradeCounter
		if err := t.store.TxGet(tx, tradeCounterKey, &counter); err != nil {
			if err != badgerhold.ErrNotFound {
				return err
			}
		}
		counter.Last++
		nextId = counter.Last
		trade.Id = nextId

		if err := t.store.TxInsert(tx, trade.Id, *trade); err != nil {
			return err
		}
		return t.store.TxUpsert(tx, tradeCounterKey, counter)
	}); err != nil {
		return 0, err
	}

	return nextId, nil
}

func (t *tradeRepositoryImpl) GetTrade(
	ctx context.Context, id uint64,
) (*domain.Trade, error) {
	var trade domain.Trade
	if err := t.store.Get(id, &trade); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrTradeNotFound
		}
		return nil, err
	}

	return &trade, nil
}

func (t *tradeRepositoryImpl) GetAllTrades(
	ctx context.Context,
) ([]domain.Trade, error) {
	var trades []domain.Trade
	if err := t.store.Find(&trades, nil); err != nil {
		return nil, err
	}

	sortTradesById(trades)
	return trades, nil
}

func (t *tradeRepositoryImpl) GetTradesForParty(
	ctx context.Context, party common.Address,
) ([]domain.Trade, error) {
	// Addresses are fixed size byte arrays, not a kind badgerhold knows how
	// to compare with Eq, so the matching happens through a MatchFunc.
	query := badgerhold.Where("Id").MatchFunc(
		func(ra *badgerhold.RecordAccess) (bool, error) {
			trade, ok := ra.Record().(*domain.Trade)
			if !ok {
				return false, nil
			}
			return trade.IsParty(party), nil
		},
	)

	var trades []domain.Trade
	if err := t.store.Find(&trades, query); err != nil {
		return nil, err
	}

	sortTradesById(trades)
	return trades, nil
}

func (t *tradeRepositoryImpl) UpdateTrade(
	ctx context.Context,
	id uint64,
	updateFn func(trade *domain.Trade) (*domain.Trade, error),
) error {
	return t.store.Badger().Update(func(tx *badger.Txn) error {
		var trade domain.Trade
		if err := t.store.TxGet(tx, id, &trade); err != nil {
			if err == badgerhold.ErrNotFound {
				return domain.ErrTradeNotFound
			}
			return err
		}

		updatedTrade, err := updateFn(&trade)
		if err != nil {
			return err
		}

		return t.store.TxUpdate(tx, id, *updatedTrade)
	})
}

// badgerhold does not guarantee any ordering when scanning, lists are always
// returned sorted by ascending id.
func sortTradesById(trades []domain.Trade) {
	sort.Slice(trades, func(i, j int) bool {
		return trades[i].Id < trades[j].Id
	})
}
