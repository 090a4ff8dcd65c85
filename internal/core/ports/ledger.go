package ports

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// AssetLedger is the external custody capability that actually moves value.
// The escrow core treats it as opaque: every transfer either fully succeeds
// or returns an error that aborts the caller's whole operation.
//
// Custody is a single commingled pool per asset. The ledger is free to
// invoke arbitrary callback code while executing a transfer, which is why
// every fund-moving operation of the core runs under the reentrancy guard.
type AssetLedger interface {
	// TransferIn moves the given amount from the owner's account into the
	// custody pool of the asset.
	TransferIn(ctx context.Context, asset string, from common.Address, amount uint64) error
	// TransferOut moves the given amount out of the custody pool of the
	// asset to the given recipient.
	TransferOut(ctx context.Context, asset string, to common.Address, amount uint64) error
	// BalanceOf returns the current custody pool balance for the asset.
	BalanceOf(ctx context.Context, asset string) (uint64, error)
	// AllowanceOf returns how much the owner has pre-authorized the custody
	// to pull from their account.
	AllowanceOf(ctx context.Context, asset string, owner common.Address) (uint64, error)
	// ApplyPermit applies an off-system pre-authorization payload on behalf
	// of its owner. Callers on the best-effort path must tolerate a failure
	// here and rely on the subsequent TransferIn for enforcement.
	ApplyPermit(ctx context.Context, asset string, payload []byte) error
}
