// Package mathutil implements basis-point fee arithmetic on decimals, so fee
// splits stay exact over the full uint64 amount range.
package mathutil

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// BasisPoints is the denominator of every fee expressed in basis points,
// 10000 bps make 100%.
const BasisPoints = uint64(10000)

// LessFee splits an amount into the remainder and the fee cut given a fee in
// basis points. The fee is truncated towards zero, any fractional unit stays
// with the remainder.
func LessFee(amount, feeAsBasisPoints uint64) (lessFee, calculatedFee uint64) {
	fee := feeOf(amount, feeAsBasisPoints)
	rest := decimalFromUint(amount).Sub(fee)
	return rest.BigInt().Uint64(), fee.BigInt().Uint64()
}

// PlusFee returns an amount with the fee cut added on top, the dual of
// LessFee for quoting what a payer must provide for a target payout.
func PlusFee(amount, feeAsBasisPoints uint64) (plusFee, calculatedFee uint64) {
	fee := feeOf(amount, feeAsBasisPoints)
	total := decimalFromUint(amount).Add(fee)
	return total.BigInt().Uint64(), fee.BigInt().Uint64()
}

func feeOf(amount, feeAsBasisPoints uint64) decimal.Decimal {
	return decimalFromUint(amount).
		Mul(decimalFromUint(feeAsBasisPoints)).
		Div(decimalFromUint(BasisPoints)).
		Truncate(0)
}

func decimalFromUint(n uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(n), 0)
}
