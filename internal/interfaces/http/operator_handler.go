package httpinterface

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/escrow-network/escrowd/internal/core/application/dispute"
	"github.com/escrow-network/escrowd/internal/core/application/operator"
)

type operatorHandler struct {
	operatorSvc *operator.Service
	disputeSvc  *dispute.Service
}

func newOperatorHandler(
	operatorSvc *operator.Service, disputeSvc *dispute.Service,
) *operatorHandler {
	return &operatorHandler{operatorSvc, disputeSvc}
}

func (h *operatorHandler) getInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.operatorSvc.GetInfo(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, infoView{
		Admin:          info.Admin.Hex(),
		FeeVault:       info.FeeVault.Hex(),
		FeeBasisPoints: info.FeeBasisPoints,
		FeeCeiling:     info.FeeCeiling,
		Version:        info.Version,
	})
}

func (h *operatorHandler) listEventTopics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, topicsResponse{
		Topics: h.operatorSvc.ListEventTopics(r.Context()),
	})
}

func (h *operatorHandler) updateFee(w http.ResponseWriter, r *http.Request) {
	var req updateFeeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.operatorSvc.UpdatePlatformFee(
		r.Context(), caller, req.NewBasisPoints,
	); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *operatorHandler) updateVault(w http.ResponseWriter, r *http.Request) {
	var req updateVaultRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, err)
		return
	}
	vault, err := parseAddress(req.Vault)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.operatorSvc.UpdateFeeVault(r.Context(), caller, vault); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *operatorHandler) resolveDispute(w http.ResponseWriter, r *http.Request) {
	tradeId, err := tradeIdOf(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req resolveDisputeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, err)
		return
	}
	winner, err := parseAddress(req.Winner)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.disputeSvc.ResolveDispute(
		r.Context(), tradeId, caller, winner, req.Reason,
	); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *operatorHandler) clearDispute(w http.ResponseWriter, r *http.Request) {
	tradeId, err := tradeIdOf(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req clearDisputeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.disputeSvc.ClearDispute(
		r.Context(), tradeId, caller, req.Reason,
	); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *operatorHandler) withdrawEscrow(w http.ResponseWriter, r *http.Request) {
	tradeId, err := tradeIdOf(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req callerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, err)
		return
	}

	amount, err := h.disputeSvc.WithdrawEscrow(r.Context(), tradeId, caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, amountResponse{Amount: amount})
}

func (h *operatorHandler) addWebhook(w http.ResponseWriter, r *http.Request) {
	var req webhookRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id, err := h.operatorSvc.AddWebhook(
		r.Context(), req.Topic, req.Endpoint, req.Secret,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, webhookIdResponse{Id: id})
}

func (h *operatorHandler) removeWebhook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "webhookId")
	if err := h.operatorSvc.RemoveWebhook(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *operatorHandler) listWebhooks(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")

	subs := h.operatorSvc.ListWebhooks(r.Context(), topic)
	views := make([]webhookView, 0, len(subs))
	for _, sub := range subs {
		views = append(views, webhookView{
			Id:      sub.Id(),
			Topic:   sub.Topic(),
			Secured: sub.IsSecured(),
		})
	}
	writeJSON(w, http.StatusOK, views)
}
