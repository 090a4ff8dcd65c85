// Package ledger provides an in-process implementation of the asset custody
// port. It keeps per-asset account balances, pull pre-authorizations and a
// single commingled custody pool per asset, mimicking the behavior of an
// external token ledger without leaving the process.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/escrow-network/escrowd/internal/core/domain"
	"github.com/escrow-network/escrowd/internal/core/ports"
)

var (
	// ErrInsufficientBalance is returned when a pull exceeds the owner's
	// account balance.
	ErrInsufficientBalance = errors.New("insufficient account balance")
	// ErrInsufficientAllowance is returned when a pull exceeds what the
	// owner pre-authorized.
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	// ErrInsufficientCustody is returned when a payout exceeds the custody
	// pool of the asset.
	ErrInsufficientCustody = fmt.Errorf(
		"%w: custody pool cannot cover transfer", domain.ErrInsufficientEscrow,
	)
	// ErrMalformedPermit is returned when a pre-authorization payload cannot
	// be decoded.
	ErrMalformedPermit = errors.New("malformed permit payload")
)

// TransferHook is invoked after value moved, before the transfer returns.
// It emulates asset ledgers that hand control back to arbitrary code in the
// middle of an operation, which is what the reentrancy guard defends against.
type TransferHook func(asset string, account common.Address, amount uint64)

type InProcessLedger struct {
	balances   map[string]map[common.Address]uint64
	allowances map[string]map[common.Address]uint64
	custody    map[string]uint64
	locker     *sync.Mutex

	hook TransferHook
}

type permit struct {
	Owner  common.Address `json:"owner"`
	Amount uint64         `json:"amount"`
}

// NewInProcessLedger returns an empty ledger. Accounts spring into existence
// the first time they are credited.
func NewInProcessLedger() *InProcessLedger {
	return &InProcessLedger{
		balances:   map[string]map[common.Address]uint64{},
		allowances: map[string]map[common.Address]uint64{},
		custody:    map[string]uint64{},
		locker:     &sync.Mutex{},
	}
}

// NewLedgerFromGenesisFile returns a ledger seeded with the balances listed
// in the given JSON file, shaped as {asset: {address: balance}}.
func NewLedgerFromGenesisFile(path string) (*InProcessLedger, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading genesis file: %w", err)
	}

	genesis := map[string]map[common.Address]uint64{}
	if err := json.Unmarshal(buf, &genesis); err != nil {
		return nil, fmt.Errorf("parsing genesis file: %w", err)
	}

	l := NewInProcessLedger()
	for asset, accounts := range genesis {
		for owner, balance := range accounts {
			l.Credit(asset, owner, balance)
		}
	}
	return l, nil
}

func (l *InProcessLedger) TransferIn(
	ctx context.Context, asset string, from common.Address, amount uint64,
) error {
	l.locker.Lock()

	if l.balances[asset][from] < amount {
		l.locker.Unlock()
		return ErrInsufficientBalance
	}
	if l.allowances[asset][from] < amount {
		l.locker.Unlock()
		return ErrInsufficientAllowance
	}

	l.balances[asset][from] -= amount
	l.allowances[asset][from] -= amount
	l.custody[asset] += amount
	hook := l.hook
	l.locker.Unlock()

	if hook != nil {
		hook(asset, from, amount)
	}
	return nil
}

func (l *InProcessLedger) TransferOut(
	ctx context.Context, asset string, to common.Address, amount uint64,
) error {
	l.locker.Lock()

	if l.custody[asset] < amount {
		l.locker.Unlock()
		return ErrInsufficientCustody
	}

	l.custody[asset] -= amount
	l.creditLocked(asset, to, amount)
	hook := l.hook
	l.locker.Unlock()

	if hook != nil {
		hook(asset, to, amount)
	}
	return nil
}

func (l *InProcessLedger) BalanceOf(
	ctx context.Context, asset string,
) (uint64, error) {
	l.locker.Lock()
	defer l.locker.Unlock()

	return l.custody[asset], nil
}

func (l *InProcessLedger) AllowanceOf(
	ctx context.Context, asset string, owner common.Address,
) (uint64, error) {
	l.locker.Lock()
	defer l.locker.Unlock()

	return l.allowances[asset][owner], nil
}

func (l *InProcessLedger) ApplyPermit(
	ctx context.Context, asset string, payload []byte,
) error {
	var p permit
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("%w: %s", ErrMalformedPermit, err)
	}
	if p.Owner == (common.Address{}) {
		return fmt.Errorf("%w: missing owner", ErrMalformedPermit)
	}

	l.locker.Lock()
	defer l.locker.Unlock()

	if l.allowances[asset] == nil {
		l.allowances[asset] = map[common.Address]uint64{}
	}
	l.allowances[asset][p.Owner] = p.Amount
	return nil
}

// Credit mints the given amount on the owner's account. It is meant for
// seeding balances at startup and in tests.
func (l *InProcessLedger) Credit(asset string, owner common.Address, amount uint64) {
	l.locker.Lock()
	defer l.locker.Unlock()

	l.creditLocked(asset, owner, amount)
}

// Approve pre-authorizes the custody to pull up to amount from the owner's
// account, replacing any previous authorization for the pair.
func (l *InProcessLedger) Approve(asset string, owner common.Address, amount uint64) {
	l.locker.Lock()
	defer l.locker.Unlock()

	if l.allowances[asset] == nil {
		l.allowances[asset] = map[common.Address]uint64{}
	}
	l.allowances[asset][owner] = amount
}

// AccountBalanceOf returns the free (non-custodied) balance of the owner.
func (l *InProcessLedger) AccountBalanceOf(asset string, owner common.Address) uint64 {
	l.locker.Lock()
	defer l.locker.Unlock()

	return l.balances[asset][owner]
}

// SetTransferHook installs a callback invoked after every transfer. A nil
// hook disables the callback.
func (l *InProcessLedger) SetTransferHook(hook TransferHook) {
	l.locker.Lock()
	defer l.locker.Unlock()

	l.hook = hook
}

func (l *InProcessLedger) creditLocked(asset string, owner common.Address, amount uint64) {
	if l.balances[asset] == nil {
		l.balances[asset] = map[common.Address]uint64{}
	}
	l.balances[asset][owner] += amount
}

var _ ports.AssetLedger = (*InProcessLedger)(nil)
