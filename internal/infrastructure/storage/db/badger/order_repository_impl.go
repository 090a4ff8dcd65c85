package dbbadger

import (
	"context"

	"github.com/dgraph-io/badger/v3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/timshannon/badgerhold/v4"

	"github.com/escrow-network/escrowd/internal/core/domain"
)

// nonceMark is the persisted witness that a (maker, nonce) pair has been
// consumed. Marks are never deleted.
type nonceMark struct {
	Key string
}

type orderRepositoryImpl struct {
	store *badgerhold.Store
}

func NewOrderRepositoryImpl(store *badgerhold.Store) domain.OrderRepository {
	return &orderRepositoryImpl{store}
}

func (o *orderRepositoryImpl) GetFill(
	ctx context.Context, digest common.Hash,
) (*domain.FillRecord, error) {
	var fill domain.FillRecord
	if err := o.store.Get(digest, &fill); err != nil {
		if err == badgerhold.ErrNotFound {
			return &domain.FillRecord{Digest: digest}, nil
		}
		return nil, err
	}

	return &fill, nil
}

func (o *orderRepositoryImpl) UpdateFill(
	ctx context.Context,
	digest common.Hash,
	updateFn func(f *domain.FillRecord) (*domain.FillRecord, error),
) error {
	return o.store.Badger().Update(func(tx *badger.Txn) error {
		fill := domain.FillRecord{Digest: digest}
		if err := o.store.TxGet(tx, digest, &fill); err != nil &&
			err != badgerhold.ErrNotFound {
			return err
		}

		updatedFill, err := updateFn(&fill)
		if err != nil {
			return err
		}

		return o.store.TxUpsert(tx, digest, *updatedFill)
	})
}

func (o *orderRepositoryImpl) IsNonceConsumed(
	ctx context.Context, maker common.Address, nonce uint64,
) (bool, error) {
	var mark nonceMark
	if err := o.store.Get(domain.NonceKey(maker, nonce), &mark); err != nil {
		if err == badgerhold.ErrNotFound {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func (o *orderRepositoryImpl) ConsumeNonce(
	ctx context.Context, maker common.Address, nonce uint64,
) error {
	key := domain.NonceKey(maker, nonce)
	if err := o.store.Insert(key, nonceMark{Key: key}); err != nil {
		if err == badgerhold.ErrKeyExists {
			return domain.ErrNonceConsumed
		}
		return err
	}

	return nil
}
