package httpinterface

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"

	"github.com/escrow-network/escrowd/internal/core/application/trade"
	"github.com/escrow-network/escrowd/internal/core/domain"
)

type tradeRequest struct {
	Maker         string `json:"maker"`
	Taker         string `json:"taker"`
	Asset         string `json:"asset"`
	Price         uint64 `json:"price"`
	Deposit       uint64 `json:"deposit"`
	FundingWindow uint64 `json:"funding_window"`
	Direction     string `json:"direction"`
	AgreementHash string `json:"agreement_hash"`
	// Caller is only read by the create-and-fund variant.
	Caller string `json:"caller,omitempty"`
}

func (r tradeRequest) toArgs() (trade.CreateTradeArgs, error) {
	maker, err := parseAddress(r.Maker)
	if err != nil {
		return trade.CreateTradeArgs{}, err
	}
	taker, err := parseAddress(r.Taker)
	if err != nil {
		return trade.CreateTradeArgs{}, err
	}
	direction, err := parseDirection(r.Direction)
	if err != nil {
		return trade.CreateTradeArgs{}, err
	}
	return trade.CreateTradeArgs{
		Maker:         maker,
		Taker:         taker,
		Asset:         r.Asset,
		Price:         r.Price,
		Deposit:       r.Deposit,
		FundingWindow: r.FundingWindow,
		Direction:     direction,
		AgreementHash: r.AgreementHash,
	}, nil
}

type callerRequest struct {
	Caller string `json:"caller"`
}

type orderPayload struct {
	Maker         string `json:"maker"`
	Asset         string `json:"asset"`
	UnitPrice     uint64 `json:"unit_price"`
	UnitDeposit   uint64 `json:"unit_deposit"`
	TotalQuantity uint64 `json:"total_quantity"`
	MinFillAmount uint64 `json:"min_fill_amount,omitempty"`
	Expiry        int64  `json:"expiry,omitempty"`
	Nonce         uint64 `json:"nonce"`
	AllowedTaker  string `json:"allowed_taker,omitempty"`
	Direction     string `json:"direction"`
	AgreementHash string `json:"agreement_hash"`
}

func (p orderPayload) toDomain() (domain.SellOrder, error) {
	maker, err := parseAddress(p.Maker)
	if err != nil {
		return domain.SellOrder{}, err
	}
	direction, err := parseDirection(p.Direction)
	if err != nil {
		return domain.SellOrder{}, err
	}

	// an absent allowed taker leaves the order open to anyone.
	var allowedTaker common.Address
	if len(p.AllowedTaker) > 0 {
		allowedTaker, err = parseAddress(p.AllowedTaker)
		if err != nil {
			return domain.SellOrder{}, err
		}
	}

	return domain.SellOrder{
		Maker:         maker,
		Asset:         p.Asset,
		UnitPrice:     p.UnitPrice,
		UnitDeposit:   p.UnitDeposit,
		TotalQuantity: p.TotalQuantity,
		MinFillAmount: p.MinFillAmount,
		Expiry:        p.Expiry,
		Nonce:         p.Nonce,
		AllowedTaker:  allowedTaker,
		Direction:     direction,
		AgreementHash: p.AgreementHash,
	}, nil
}

type fillOrderRequest struct {
	Order      orderPayload    `json:"order"`
	FillAmount uint64          `json:"fill_amount"`
	Signature  string          `json:"signature"`
	PreAuth    json.RawMessage `json:"pre_auth,omitempty"`
	Caller     string          `json:"caller"`
}

type cancelOrderRequest struct {
	Caller string `json:"caller"`
	Nonce  uint64 `json:"nonce"`
}

type remainingQuantityRequest struct {
	Order     orderPayload `json:"order"`
	Signature string       `json:"signature"`
}

type updateFeeRequest struct {
	Caller         string `json:"caller"`
	NewBasisPoints uint32 `json:"new_basis_points"`
}

type updateVaultRequest struct {
	Caller string `json:"caller"`
	Vault  string `json:"vault"`
}

type resolveDisputeRequest struct {
	Caller string `json:"caller"`
	Winner string `json:"winner"`
	Reason string `json:"reason,omitempty"`
}

type clearDisputeRequest struct {
	Caller string `json:"caller"`
	Reason string `json:"reason,omitempty"`
}

type webhookRequest struct {
	Topic    string `json:"topic"`
	Endpoint string `json:"endpoint"`
	Secret   string `json:"secret,omitempty"`
}

type idResponse struct {
	Id uint64 `json:"id"`
}

type amountResponse struct {
	Amount uint64 `json:"amount"`
}

type tradeIdResponse struct {
	TradeId uint64 `json:"trade_id"`
}

type remainingResponse struct {
	Remaining uint64 `json:"remaining"`
}

type webhookIdResponse struct {
	Id string `json:"id"`
}

type webhookView struct {
	Id      string `json:"id"`
	Topic   string `json:"topic"`
	Secured bool   `json:"secured"`
}

type topicsResponse struct {
	Topics []string `json:"topics"`
}

type infoView struct {
	Admin          string `json:"admin"`
	FeeVault       string `json:"fee_vault"`
	FeeBasisPoints uint32 `json:"fee_basis_points"`
	FeeCeiling     uint32 `json:"fee_ceiling"`
	Version        string `json:"version"`
}

type tradeView struct {
	Id              uint64 `json:"id"`
	Maker           string `json:"maker"`
	Taker           string `json:"taker"`
	Asset           string `json:"asset"`
	Price           uint64 `json:"price"`
	Deposit         uint64 `json:"deposit"`
	TotalEscrow     uint64 `json:"total_escrow"`
	Direction       string `json:"direction"`
	AgreementHash   string `json:"agreement_hash"`
	Status          string `json:"status"`
	Disputer        string `json:"disputer,omitempty"`
	MakerFunded     bool   `json:"maker_funded"`
	TakerFunded     bool   `json:"taker_funded"`
	MakerConfirmed  bool   `json:"maker_confirmed"`
	TakerConfirmed  bool   `json:"taker_confirmed"`
	FundingDeadline int64  `json:"funding_deadline"`
	CreatedAt       int64  `json:"created_at"`
	SettledAt       int64  `json:"settled_at,omitempty"`
}

func newTradeView(t domain.Trade) tradeView {
	view := tradeView{
		Id:              t.Id,
		Maker:           t.Maker.Hex(),
		Taker:           t.Taker.Hex(),
		Asset:           t.Asset,
		Price:           t.Price,
		Deposit:         t.Deposit,
		TotalEscrow:     t.TotalEscrow(),
		Direction:       t.Direction.String(),
		AgreementHash:   t.AgreementHash,
		Status:          t.Status.String(),
		MakerFunded:     t.MakerFunded,
		TakerFunded:     t.TakerFunded,
		MakerConfirmed:  t.MakerConfirmed,
		TakerConfirmed:  t.TakerConfirmed,
		FundingDeadline: t.FundingDeadline,
		CreatedAt:       t.CreatedAt,
		SettledAt:       t.SettledAt,
	}
	if t.Disputer != (common.Address{}) {
		view.Disputer = t.Disputer.Hex()
	}
	return view
}

func newTradeViews(trades []domain.Trade) []tradeView {
	views := make([]tradeView, 0, len(trades))
	for _, t := range trades {
		views = append(views, newTradeView(t))
	}
	return views
}
