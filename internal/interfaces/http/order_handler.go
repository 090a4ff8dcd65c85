package httpinterface

import (
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/escrow-network/escrowd/internal/core/application/order"
	"github.com/escrow-network/escrowd/internal/core/domain"
)

type orderHandler struct {
	orderSvc *order.Service
}

func newOrderHandler(orderSvc *order.Service) *orderHandler {
	return &orderHandler{orderSvc}
}

func (h *orderHandler) fillOrder(w http.ResponseWriter, r *http.Request) {
	var req fillOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sellOrder, err := req.Order.toDomain()
	if err != nil {
		writeError(w, err)
		return
	}
	signature, err := parseSignature(req.Signature)
	if err != nil {
		writeError(w, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, err)
		return
	}

	tradeId, err := h.orderSvc.FillOrder(
		r.Context(), sellOrder, req.FillAmount, signature, req.PreAuth, caller,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tradeIdResponse{TradeId: tradeId})
}

func (h *orderHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	var req cancelOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.orderSvc.CancelOrder(r.Context(), caller, req.Nonce); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *orderHandler) remainingQuantity(w http.ResponseWriter, r *http.Request) {
	var req remainingQuantityRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sellOrder, err := req.Order.toDomain()
	if err != nil {
		writeError(w, err)
		return
	}
	signature, err := parseSignature(req.Signature)
	if err != nil {
		writeError(w, err)
		return
	}

	remaining, err := h.orderSvc.RemainingQuantity(
		r.Context(), sellOrder, signature,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, remainingResponse{Remaining: remaining})
}

func parseSignature(s string) ([]byte, error) {
	signature, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf(
			"%w: signature must be 0x-prefixed hex", domain.ErrInvalidArgs,
		)
	}
	return signature, nil
}
