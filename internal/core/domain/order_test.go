package domain_test

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/escrow-network/escrowd/internal/core/domain"
)

func TestSellOrderValidate(t *testing.T) {
	order := newSellOrder()
	require.NoError(t, order.Validate())

	// a free giveaway order is fine as long as collateral is posted.
	freeOrder := newSellOrder()
	freeOrder.UnitPrice = 0
	require.NoError(t, freeOrder.Validate())
}

func TestFailingSellOrderValidate(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(o *domain.SellOrder)
		expectedError error
	}{
		{
			"missing maker",
			func(o *domain.SellOrder) { o.Maker = common.Address{} },
			domain.ErrMissingParty,
		},
		{
			"missing asset",
			func(o *domain.SellOrder) { o.Asset = "" },
			domain.ErrMissingAsset,
		},
		{
			"missing agreement hash",
			func(o *domain.SellOrder) { o.AgreementHash = "" },
			domain.ErrMissingAgreementHash,
		},
		{
			"bad direction",
			func(o *domain.SellOrder) { o.Direction = domain.TradeDirection(42) },
			domain.ErrInvalidDirection,
		},
		{
			"zero quantity",
			func(o *domain.SellOrder) { o.TotalQuantity = 0 },
			domain.ErrNonPositiveAmounts,
		},
		{
			"zero unit deposit",
			func(o *domain.SellOrder) { o.UnitDeposit = 0 },
			domain.ErrNonPositiveAmounts,
		},
		{
			"min fill above quantity",
			func(o *domain.SellOrder) { o.MinFillAmount = o.TotalQuantity + 1 },
			domain.ErrInvalidArgs,
		},
	}

	for i := range tests {
		tt := tests[i]

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			order := newSellOrder()
			tt.mutate(&order)
			require.ErrorIs(t, order.Validate(), tt.expectedError)
		})
	}
}

func TestSellOrderExpiry(t *testing.T) {
	now := time.Now().Unix()

	order := newSellOrder()
	require.False(t, order.IsExpired(now))

	order.Expiry = now + 60
	require.False(t, order.IsExpired(now))
	require.True(t, order.IsExpired(now+60))
	require.True(t, order.IsExpired(now+61))
}

func TestSellOrderAllowsTaker(t *testing.T) {
	order := newSellOrder()
	require.True(t, order.AllowsTaker(taker))
	require.True(t, order.AllowsTaker(randomAddress()))

	order.AllowedTaker = taker
	require.True(t, order.AllowsTaker(taker))
	require.False(t, order.AllowsTaker(randomAddress()))
}

func TestFillTotals(t *testing.T) {
	order := newSellOrder()

	price, deposit, err := order.FillTotals(60)
	require.NoError(t, err)
	require.Equal(t, uint64(6000), price)
	require.Equal(t, uint64(3000), deposit)

	order.UnitPrice = 0
	price, deposit, err = order.FillTotals(60)
	require.NoError(t, err)
	require.Zero(t, price)
	require.Equal(t, uint64(3000), deposit)
}

func TestFailingFillTotals(t *testing.T) {
	order := newSellOrder()
	order.UnitPrice = math.MaxUint64 / 2

	_, _, err := order.FillTotals(3)
	require.ErrorIs(t, err, domain.ErrInvalidFillAmount)

	order = newSellOrder()
	order.UnitDeposit = math.MaxUint64 / 2
	_, _, err = order.FillTotals(3)
	require.ErrorIs(t, err, domain.ErrInvalidFillAmount)
}

func TestRecordFill(t *testing.T) {
	now := time.Now().Unix()
	order := newSellOrder()
	fill := &domain.FillRecord{}

	require.Equal(t, order.TotalQuantity, fill.RemainingOf(&order))

	remaining, err := fill.RecordFill(&order, 60, now)
	require.NoError(t, err)
	require.Equal(t, uint64(40), remaining)
	require.Equal(t, uint64(60), fill.Filled)
	require.Equal(t, now, fill.UpdatedAt)

	remaining, err = fill.RecordFill(&order, 40, now)
	require.NoError(t, err)
	require.Zero(t, remaining)
	require.Zero(t, fill.RemainingOf(&order))
}

func TestFailingRecordFill(t *testing.T) {
	now := time.Now().Unix()

	tests := []struct {
		name          string
		filled        uint64
		fillAmount    uint64
		expectedError error
	}{
		{"zero amount", 0, 0, domain.ErrInvalidFillAmount},
		{"below minimum", 0, 5, domain.ErrFillBelowMinimum},
		{"above remaining", 60, 50, domain.ErrFillAboveRemaining},
		{"fully filled", 100, 10, domain.ErrOrderFullyFilled},
	}

	for i := range tests {
		tt := tests[i]

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			order := newSellOrder()
			fill := &domain.FillRecord{Filled: tt.filled}
			_, err := fill.RecordFill(&order, tt.fillAmount, now)
			require.ErrorIs(t, err, tt.expectedError)
			require.Equal(t, tt.filled, fill.Filled)
		})
	}
}

func TestNonceKey(t *testing.T) {
	key := domain.NonceKey(maker, 7)
	require.Equal(t, fmt.Sprintf("%s:7", maker.Hex()), key)
	require.NotEqual(t, key, domain.NonceKey(maker, 8))
	require.NotEqual(t, key, domain.NonceKey(taker, 7))
}

func newSellOrder() domain.SellOrder {
	return domain.SellOrder{
		Maker:         maker,
		Asset:         testAsset,
		UnitPrice:     100,
		UnitDeposit:   50,
		TotalQuantity: 100,
		MinFillAmount: 10,
		Nonce:         1,
		Direction:     domain.MakerSells,
		AgreementHash: randomHex(32),
	}
}
