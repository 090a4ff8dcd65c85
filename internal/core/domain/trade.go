package domain

import (
	"github.com/ethereum/go-ethereum/common"
)

// TradeStatus represents the different statuses that a trade can assume.
type TradeStatus int

const (
	TradeStatusUndefined TradeStatus = iota
	TradeStatusOpen
	TradeStatusFunded
	TradeStatusSettled
	TradeStatusCancelled
	TradeStatusDisputed
	TradeStatusAdminClosed
)

func (s TradeStatus) String() string {
	switch s {
	case TradeStatusOpen:
		return "open"
	case TradeStatusFunded:
		return "funded"
	case TradeStatusSettled:
		return "settled"
	case TradeStatusCancelled:
		return "cancelled"
	case TradeStatusDisputed:
		return "disputed"
	case TradeStatusAdminClosed:
		return "admin_closed"
	default:
		return "undefined"
	}
}

// TradeDirection fixes which party owes the price on top of the collateral.
type TradeDirection int

const (
	// MakerSells means the maker delivers the priced asset, so the taker pays
	// price plus collateral and the maker posts collateral only.
	MakerSells TradeDirection = iota
	// MakerBuys reverses the roles of MakerSells.
	MakerBuys
)

func (d TradeDirection) String() string {
	switch d {
	case MakerSells:
		return "maker_sells"
	case MakerBuys:
		return "maker_buys"
	default:
		return "unknown"
	}
}

func (d TradeDirection) valid() bool {
	return d == MakerSells || d == MakerBuys
}

// validTransitions is the single authority on status changes. Statuses move
// strictly forward except for the Disputed -> Funded edge used to resume a
// trade after a dispute is withdrawn or cleared.
var validTransitions = map[TradeStatus][]TradeStatus{
	TradeStatusOpen:     {TradeStatusFunded, TradeStatusCancelled},
	TradeStatusFunded:   {TradeStatusSettled, TradeStatusDisputed},
	TradeStatusDisputed: {TradeStatusFunded, TradeStatusAdminClosed},
}

// Trade is the data structure representing an escrowed trade entity.
type Trade struct {
	Id              uint64
	Maker           common.Address
	Taker           common.Address
	Asset           string
	Price           uint64
	Deposit         uint64
	FundingDeadline int64
	Direction       TradeDirection
	AgreementHash   string
	Status          TradeStatus
	Disputer        common.Address
	MakerFunded     bool
	TakerFunded     bool
	MakerConfirmed  bool
	TakerConfirmed  bool
	CreatedAt       int64
	SettledAt       int64
}

// NewTrade returns an Open trade after validating the given arguments. The
// identifier is assigned by the repository when the trade is persisted.
func NewTrade(
	maker, taker common.Address, asset string,
	price, deposit, fundingWindow uint64,
	direction TradeDirection, agreementHash string, now int64,
) (*Trade, error) {
	if err := validateTradeArgs(
		maker, taker, asset, agreementHash, direction,
	); err != nil {
		return nil, err
	}
	if price <= 0 || deposit <= 0 {
		return nil, ErrNonPositiveAmounts
	}
	if fundingWindow <= 0 {
		return nil, ErrInvalidFundingWindow
	}

	return &Trade{
		Maker:           maker,
		Taker:           taker,
		Asset:           asset,
		Price:           price,
		Deposit:         deposit,
		FundingDeadline: now + int64(fundingWindow),
		Direction:       direction,
		AgreementHash:   agreementHash,
		Status:          TradeStatusOpen,
		CreatedAt:       now,
	}, nil
}

// NewFundedTrade returns a trade born directly in Funded status with both
// funded flags set. It is produced by filling a signed order, where the
// amounts are computed totals, therefore a zero price is tolerated while the
// deposit must still be positive.
func NewFundedTrade(
	maker, taker common.Address, asset string,
	price, deposit uint64,
	direction TradeDirection, agreementHash string, now int64,
) (*Trade, error) {
	if err := validateTradeArgs(
		maker, taker, asset, agreementHash, direction,
	); err != nil {
		return nil, err
	}
	if deposit <= 0 {
		return nil, ErrNonPositiveAmounts
	}

	return &Trade{
		Maker:           maker,
		Taker:           taker,
		Asset:           asset,
		Price:           price,
		Deposit:         deposit,
		FundingDeadline: now,
		Direction:       direction,
		AgreementHash:   agreementHash,
		Status:          TradeStatusFunded,
		MakerFunded:     true,
		TakerFunded:     true,
		CreatedAt:       now,
	}, nil
}

func validateTradeArgs(
	maker, taker common.Address, asset, agreementHash string,
	direction TradeDirection,
) error {
	if maker == (common.Address{}) || taker == (common.Address{}) {
		return ErrMissingParty
	}
	if maker == taker {
		return ErrSameParty
	}
	if len(asset) <= 0 {
		return ErrMissingAsset
	}
	if len(agreementHash) <= 0 {
		return ErrMissingAgreementHash
	}
	if !direction.valid() {
		return ErrInvalidDirection
	}
	return nil
}

// Fund records the collateral (plus price, for the price-paying side) deposit
// of the given party and promotes the trade to Funded once both parties have
// funded. It returns the amount the party owes, to be pulled into custody by
// the caller after the state change.
func (t *Trade) Fund(from common.Address, now int64) (uint64, error) {
	if t.Status != TradeStatusOpen {
		return 0, ErrTradeNotOpen
	}
	if now > t.FundingDeadline {
		return 0, ErrFundingDeadlinePassed
	}
	amount, err := t.RequiredAmount(from)
	if err != nil {
		return 0, err
	}
	if t.hasFunded(from) {
		return 0, ErrAlreadyFunded
	}

	t.setFunded(from)
	if t.MakerFunded && t.TakerFunded {
		if err := t.changeStatus(TradeStatusFunded); err != nil {
			return 0, err
		}
	}
	return amount, nil
}

// Confirm records the completion confirmation of the given party. It returns
// whether both parties have confirmed, in which case the trade must be
// settled.
func (t *Trade) Confirm(from common.Address) (bool, error) {
	if t.Status != TradeStatusFunded {
		return false, ErrTradeNotFunded
	}
	if !t.IsParty(from) {
		return false, ErrNotTradeParty
	}
	if t.hasConfirmed(from) {
		return false, ErrAlreadyConfirmed
	}

	t.setConfirmed(from)
	return t.MakerConfirmed && t.TakerConfirmed, nil
}

// Settle brings the trade from Funded to Settled and records the settlement
// time. It is reachable only once both parties have confirmed.
func (t *Trade) Settle(now int64) error {
	if err := t.changeStatus(TradeStatusSettled); err != nil {
		return err
	}
	t.SettledAt = now
	return nil
}

// Cancel brings an Open trade past its funding deadline to Cancelled. A fully
// funded trade can never be cancelled, it must proceed through settlement or
// dispute.
func (t *Trade) Cancel(now int64) error {
	if t.Status != TradeStatusOpen {
		return ErrTradeNotOpen
	}
	if now <= t.FundingDeadline {
		return ErrDeadlineNotReached
	}
	if t.MakerFunded && t.TakerFunded {
		return ErrTradeFullyFunded
	}
	return t.changeStatus(TradeStatusCancelled)
}

// ClaimRefund clears the funded flag of the given party on a cancelled trade
// and returns the amount to give back, which equals what the party deposited.
func (t *Trade) ClaimRefund(from common.Address) (uint64, error) {
	if t.Status != TradeStatusCancelled {
		return 0, ErrTradeNotCancelled
	}
	amount, err := t.RequiredAmount(from)
	if err != nil {
		return 0, err
	}
	if !t.hasFunded(from) {
		return 0, ErrNoRefundDue
	}

	t.clearFunded(from)
	return amount, nil
}

// OpenDispute brings a Funded trade to Disputed and records the disputer.
func (t *Trade) OpenDispute(from common.Address) error {
	if t.Status != TradeStatusFunded {
		return ErrTradeNotFunded
	}
	if !t.IsParty(from) {
		return ErrNotTradeParty
	}
	if err := t.changeStatus(TradeStatusDisputed); err != nil {
		return err
	}
	t.Disputer = from
	return nil
}

// CancelDispute returns a Disputed trade to Funded. Only the party that
// raised the dispute may withdraw it.
func (t *Trade) CancelDispute(from common.Address) error {
	if t.Status != TradeStatusDisputed {
		return ErrTradeNotDisputed
	}
	if from != t.Disputer {
		return ErrNotDisputer
	}
	if err := t.changeStatus(TradeStatusFunded); err != nil {
		return err
	}
	t.Disputer = common.Address{}
	return nil
}

// Resolve closes a Disputed trade in favor of the given winner, which must be
// one of the two parties.
func (t *Trade) Resolve(winner common.Address, now int64) error {
	if t.Status != TradeStatusDisputed {
		return ErrTradeNotDisputed
	}
	if !t.IsParty(winner) {
		return ErrWinnerNotParty
	}
	if err := t.changeStatus(TradeStatusAdminClosed); err != nil {
		return err
	}
	t.Disputer = common.Address{}
	t.SettledAt = now
	return nil
}

// ClearDispute returns a Disputed trade to the normal confirm/settle path
// without moving funds.
func (t *Trade) ClearDispute() error {
	if t.Status != TradeStatusDisputed {
		return ErrTradeNotDisputed
	}
	if err := t.changeStatus(TradeStatusFunded); err != nil {
		return err
	}
	t.Disputer = common.Address{}
	return nil
}

// CloseByAdmin closes a Disputed trade after an administrative withdrawal of
// the whole escrow. The disputer is kept for auditability.
func (t *Trade) CloseByAdmin(now int64) error {
	if t.Status != TradeStatusDisputed {
		return ErrTradeNotDisputed
	}
	if err := t.changeStatus(TradeStatusAdminClosed); err != nil {
		return err
	}
	t.SettledAt = now
	return nil
}

// PricePayer returns the party that owes price plus deposit.
func (t *Trade) PricePayer() common.Address {
	if t.Direction == MakerBuys {
		return t.Maker
	}
	return t.Taker
}

// DepositOnlyPayer returns the party that owes the deposit only.
func (t *Trade) DepositOnlyPayer() common.Address {
	if t.Direction == MakerBuys {
		return t.Taker
	}
	return t.Maker
}

// PriceRecipient returns the party entitled to the price at settlement. The
// recipient roles are the inverse of the payer roles.
func (t *Trade) PriceRecipient() common.Address {
	return t.DepositOnlyPayer()
}

// DepositRecipient returns the party entitled to its deposit back at
// settlement.
func (t *Trade) DepositRecipient() common.Address {
	return t.PricePayer()
}

// RequiredAmount returns the funding amount owed by the given party, price
// plus deposit for the price payer and the bare deposit for the other side.
func (t *Trade) RequiredAmount(party common.Address) (uint64, error) {
	switch party {
	case t.PricePayer():
		return t.Price + t.Deposit, nil
	case t.DepositOnlyPayer():
		return t.Deposit, nil
	default:
		return 0, ErrNotTradeParty
	}
}

// TotalEscrow returns the full amount held in custody for this trade once
// both parties have funded.
func (t *Trade) TotalEscrow() uint64 {
	return t.Price + 2*t.Deposit
}

// IsParty returns whether the given address is the maker or the taker.
func (t *Trade) IsParty(addr common.Address) bool {
	return addr == t.Maker || addr == t.Taker
}

// CounterpartyOf returns the other party of the trade.
func (t *Trade) CounterpartyOf(addr common.Address) (common.Address, error) {
	switch addr {
	case t.Maker:
		return t.Taker, nil
	case t.Taker:
		return t.Maker, nil
	default:
		return common.Address{}, ErrNotTradeParty
	}
}

// IsOpen returns whether the trade is in Open status.
func (t *Trade) IsOpen() bool {
	return t.Status == TradeStatusOpen
}

// IsFunded returns whether the trade is in Funded status.
func (t *Trade) IsFunded() bool {
	return t.Status == TradeStatusFunded
}

// IsSettled returns whether the trade is in Settled status.
func (t *Trade) IsSettled() bool {
	return t.Status == TradeStatusSettled
}

// IsCancelled returns whether the trade is in Cancelled status.
func (t *Trade) IsCancelled() bool {
	return t.Status == TradeStatusCancelled
}

// IsDisputed returns whether the trade is in Disputed status.
func (t *Trade) IsDisputed() bool {
	return t.Status == TradeStatusDisputed
}

// IsAdminClosed returns whether the trade was closed by an administrative
// resolution or withdrawal.
func (t *Trade) IsAdminClosed() bool {
	return t.Status == TradeStatusAdminClosed
}

func (t *Trade) hasFunded(party common.Address) bool {
	if party == t.Maker {
		return t.MakerFunded
	}
	return t.TakerFunded
}

func (t *Trade) setFunded(party common.Address) {
	if party == t.Maker {
		t.MakerFunded = true
		return
	}
	t.TakerFunded = true
}

func (t *Trade) clearFunded(party common.Address) {
	if party == t.Maker {
		t.MakerFunded = false
		return
	}
	t.TakerFunded = false
}

func (t *Trade) hasConfirmed(party common.Address) bool {
	if party == t.Maker {
		return t.MakerConfirmed
	}
	return t.TakerConfirmed
}

func (t *Trade) setConfirmed(party common.Address) {
	if party == t.Maker {
		t.MakerConfirmed = true
		return
	}
	t.TakerConfirmed = true
}

func (t *Trade) changeStatus(next TradeStatus) error {
	for _, allowed := range validTransitions[t.Status] {
		if next == allowed {
			t.Status = next
			return nil
		}
	}
	return ErrInvalidTransition
}
