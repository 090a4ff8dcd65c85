package trade

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/escrow-network/escrowd/internal/core/domain"
)

// CreateTradeArgs bundles the user-provided parameters of a new trade.
type CreateTradeArgs struct {
	Maker         common.Address
	Taker         common.Address
	Asset         string
	Price         uint64
	Deposit       uint64
	FundingWindow uint64
	Direction     domain.TradeDirection
	AgreementHash string
}
