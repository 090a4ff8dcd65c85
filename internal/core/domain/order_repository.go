package domain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// OrderRepository persists the fill state of signed orders: the cumulative
// filled quantity per order digest and the consumed (maker, nonce) pairs.
// Neither table is ever pruned.
type OrderRepository interface {
	// GetFill returns the fill record for the given digest. A digest that was
	// never filled yields a zero record, not an error.
	GetFill(ctx context.Context, digest common.Hash) (*FillRecord, error)
	// UpdateFill commits changes to the fill record of the given digest in a
	// transactional way, creating the record on first use. If updateFn
	// returns an error no change is persisted.
	UpdateFill(
		ctx context.Context,
		digest common.Hash,
		updateFn func(f *FillRecord) (*FillRecord, error),
	) error
	// IsNonceConsumed returns whether the (maker, nonce) pair was consumed,
	// either by a complete fill or by an explicit cancellation.
	IsNonceConsumed(ctx context.Context, maker common.Address, nonce uint64) (bool, error)
	// ConsumeNonce marks the (maker, nonce) pair as consumed, failing with
	// ErrNonceConsumed if it already is.
	ConsumeNonce(ctx context.Context, maker common.Address, nonce uint64) error
}
