package domain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// SellOrder is a maker-signed, reusable offer to trade up to TotalQuantity
// units. Orders live off-system, only their canonical digest and cumulative
// fill state are persisted.
type SellOrder struct {
	Maker         common.Address
	Asset         string
	UnitPrice     uint64
	UnitDeposit   uint64
	TotalQuantity uint64
	MinFillAmount uint64
	Expiry        int64
	Nonce         uint64
	AllowedTaker  common.Address
	Direction     TradeDirection
	AgreementHash string
}

// Validate checks the static well-formedness of the order, regardless of its
// fill state. The unit price may be zero, the unit deposit may not.
func (o *SellOrder) Validate() error {
	if o.Maker == (common.Address{}) {
		return ErrMissingParty
	}
	if len(o.Asset) <= 0 {
		return ErrMissingAsset
	}
	if len(o.AgreementHash) <= 0 {
		return ErrMissingAgreementHash
	}
	if !o.Direction.valid() {
		return ErrInvalidDirection
	}
	if o.TotalQuantity <= 0 || o.UnitDeposit <= 0 {
		return ErrNonPositiveAmounts
	}
	if o.MinFillAmount > o.TotalQuantity {
		return fmt.Errorf(
			"%w: min fill amount exceeds total quantity", ErrInvalidArgs,
		)
	}
	return nil
}

// IsExpired returns whether the order can no longer be filled because of its
// expiry timestamp. A zero expiry means the order never expires.
func (o *SellOrder) IsExpired(now int64) bool {
	return o.Expiry != 0 && now >= o.Expiry
}

// AllowsTaker returns whether the given taker may fill this order. A zero
// allowed taker leaves the order fillable by anyone.
func (o *SellOrder) AllowsTaker(taker common.Address) bool {
	return o.AllowedTaker == (common.Address{}) || o.AllowedTaker == taker
}

// FillTotals scales the order's unit amounts by the fill amount, guarding
// against overflow of the 64 bit amount space.
func (o *SellOrder) FillTotals(fillAmount uint64) (price, deposit uint64, err error) {
	price = o.UnitPrice * fillAmount
	if o.UnitPrice != 0 && price/o.UnitPrice != fillAmount {
		return 0, 0, ErrInvalidFillAmount
	}
	deposit = o.UnitDeposit * fillAmount
	if deposit/o.UnitDeposit != fillAmount {
		return 0, 0, ErrInvalidFillAmount
	}
	return price, deposit, nil
}

// NonceKey returns the storage key of the (maker, nonce) consumption record.
func NonceKey(maker common.Address, nonce uint64) string {
	return fmt.Sprintf("%s:%d", maker.Hex(), nonce)
}

// FillRecord tracks the cumulative filled quantity of one signed order,
// keyed by its canonical digest. Records are created on first fill and never
// deleted.
type FillRecord struct {
	Digest    common.Hash
	Maker     common.Address
	Nonce     uint64
	Filled    uint64
	UpdatedAt int64
}

// RemainingOf returns how much of the order's total quantity is still
// fillable.
func (f *FillRecord) RemainingOf(order *SellOrder) uint64 {
	if f.Filled >= order.TotalQuantity {
		return 0
	}
	return order.TotalQuantity - f.Filled
}

// RecordFill validates the fill amount against the order limits and the
// remaining quantity, then accumulates it. It returns the quantity remaining
// after the fill.
func (f *FillRecord) RecordFill(
	order *SellOrder, fillAmount uint64, now int64,
) (uint64, error) {
	remaining := f.RemainingOf(order)
	if remaining <= 0 {
		return 0, ErrOrderFullyFilled
	}
	if fillAmount <= 0 {
		return 0, ErrInvalidFillAmount
	}
	if fillAmount < order.MinFillAmount {
		return 0, ErrFillBelowMinimum
	}
	if fillAmount > remaining {
		return 0, ErrFillAboveRemaining
	}

	f.Filled += fillAmount
	f.UpdatedAt = now
	return remaining - fillAmount, nil
}
