package inmemory

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/escrow-network/escrowd/internal/core/domain"
)

type orderInmemoryStore struct {
	fills          map[common.Hash]domain.FillRecord
	consumedNonces map[string]bool
	locker         *sync.Mutex
}

type orderRepositoryImpl struct {
	store *orderInmemoryStore
}

// NewOrderRepositoryImpl returns a new inmemory OrderRepository
// implementation.
func NewOrderRepositoryImpl() domain.OrderRepository {
	return &orderRepositoryImpl{
		store: &orderInmemoryStore{
			fills:          map[common.Hash]domain.FillRecord{},
			consumedNonces: map[string]bool{},
			locker:         &sync.Mutex{},
		},
	}
}

func (r *orderRepositoryImpl) GetFill(
	_ context.Context, digest common.Hash,
) (*domain.FillRecord, error) {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	fill := r.getOrCreateFill(digest)
	return &fill, nil
}

func (r *orderRepositoryImpl) UpdateFill(
	_ context.Context,
	digest common.Hash,
	updateFn func(f *domain.FillRecord) (*domain.FillRecord, error),
) error {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	currentFill := r.getOrCreateFill(digest)

	updatedFill, err := updateFn(&currentFill)
	if err != nil {
		return err
	}

	r.store.fills[digest] = *updatedFill
	return nil
}

func (r *orderRepositoryImpl) IsNonceConsumed(
	_ context.Context, maker common.Address, nonce uint64,
) (bool, error) {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	return r.store.consumedNonces[domain.NonceKey(maker, nonce)], nil
}

func (r *orderRepositoryImpl) ConsumeNonce(
	_ context.Context, maker common.Address, nonce uint64,
) error {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	key := domain.NonceKey(maker, nonce)
	if r.store.consumedNonces[key] {
		return domain.ErrNonceConsumed
	}
	r.store.consumedNonces[key] = true
	return nil
}

func (r *orderRepositoryImpl) getOrCreateFill(
	digest common.Hash,
) domain.FillRecord {
	if fill, ok := r.store.fills[digest]; ok {
		return fill
	}
	return domain.FillRecord{Digest: digest}
}
