package httpinterface

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/escrow-network/escrowd/internal/core/application/dispute"
	"github.com/escrow-network/escrowd/internal/core/application/trade"
	"github.com/escrow-network/escrowd/internal/core/domain"
)

type tradeHandler struct {
	tradeSvc   *trade.Service
	disputeSvc *dispute.Service
}

func newTradeHandler(
	tradeSvc *trade.Service, disputeSvc *dispute.Service,
) *tradeHandler {
	return &tradeHandler{tradeSvc, disputeSvc}
}

func (h *tradeHandler) createTrade(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	args, err := req.toArgs()
	if err != nil {
		writeError(w, err)
		return
	}

	tradeId, err := h.tradeSvc.CreateTrade(r.Context(), args)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{Id: tradeId})
}

func (h *tradeHandler) createTradeWithFunding(
	w http.ResponseWriter, r *http.Request,
) {
	var req tradeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	args, err := req.toArgs()
	if err != nil {
		writeError(w, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, err)
		return
	}

	tradeId, err := h.tradeSvc.CreateTradeWithFunding(r.Context(), args, caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{Id: tradeId})
}

func (h *tradeHandler) listTrades(w http.ResponseWriter, r *http.Request) {
	if party := r.URL.Query().Get("party"); party != "" {
		addr, err := parseAddress(party)
		if err != nil {
			writeError(w, err)
			return
		}
		trades, err := h.tradeSvc.ListTradesForParty(r.Context(), addr)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newTradeViews(trades))
		return
	}

	trades, err := h.tradeSvc.ListTrades(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTradeViews(trades))
}

func (h *tradeHandler) getTrade(w http.ResponseWriter, r *http.Request) {
	tradeId, err := tradeIdOf(r)
	if err != nil {
		writeError(w, err)
		return
	}

	foundTrade, err := h.tradeSvc.GetTrade(r.Context(), tradeId)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTradeView(*foundTrade))
}

func (h *tradeHandler) fundTrade(w http.ResponseWriter, r *http.Request) {
	tradeId, caller, ok := h.tradeAction(w, r)
	if !ok {
		return
	}

	amount, err := h.tradeSvc.FundTrade(r.Context(), tradeId, caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, amountResponse{Amount: amount})
}

func (h *tradeHandler) confirmTrade(w http.ResponseWriter, r *http.Request) {
	tradeId, caller, ok := h.tradeAction(w, r)
	if !ok {
		return
	}

	if err := h.tradeSvc.ConfirmTrade(r.Context(), tradeId, caller); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *tradeHandler) cancelTrade(w http.ResponseWriter, r *http.Request) {
	tradeId, err := tradeIdOf(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.tradeSvc.CancelTrade(r.Context(), tradeId); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *tradeHandler) claimRefund(w http.ResponseWriter, r *http.Request) {
	tradeId, caller, ok := h.tradeAction(w, r)
	if !ok {
		return
	}

	amount, err := h.tradeSvc.ClaimRefund(r.Context(), tradeId, caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, amountResponse{Amount: amount})
}

func (h *tradeHandler) raiseDispute(w http.ResponseWriter, r *http.Request) {
	tradeId, caller, ok := h.tradeAction(w, r)
	if !ok {
		return
	}

	if err := h.disputeSvc.RaiseDispute(r.Context(), tradeId, caller); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *tradeHandler) cancelDispute(w http.ResponseWriter, r *http.Request) {
	tradeId, caller, ok := h.tradeAction(w, r)
	if !ok {
		return
	}

	if err := h.disputeSvc.CancelDispute(r.Context(), tradeId, caller); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// tradeAction parses the pieces shared by every party-scoped trade action:
// the trade id from the path and the caller from the body.
func (h *tradeHandler) tradeAction(
	w http.ResponseWriter, r *http.Request,
) (uint64, common.Address, bool) {
	tradeId, err := tradeIdOf(r)
	if err != nil {
		writeError(w, err)
		return 0, common.Address{}, false
	}

	var req callerRequest
	if !decodeJSON(w, r, &req) {
		return 0, common.Address{}, false
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, err)
		return 0, common.Address{}, false
	}
	return tradeId, caller, true
}

func tradeIdOf(r *http.Request) (uint64, error) {
	tradeId, err := strconv.ParseUint(chi.URLParam(r, "tradeId"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid trade id", domain.ErrInvalidArgs)
	}
	return tradeId, nil
}
