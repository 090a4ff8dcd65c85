package httpinterface

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"

	"github.com/escrow-network/escrowd/internal/core/domain"
	"github.com/escrow-network/escrowd/internal/core/ports"
)

type errorBody struct {
	Error string `json:"error"`
}

// statusOf maps domain error categories to HTTP status codes. Specific
// sentinels wrap exactly one category, so matching the categories is enough.
// The not-found and reentrancy cases are checked first because they are not
// part of the wrapped taxonomy.
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrTradeNotFound),
		errors.Is(err, domain.ErrSettingsNotFound),
		errors.Is(err, ports.ErrSubscriptionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrReentrantCall):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrInsufficientEscrow):
		return http.StatusInternalServerError
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrDoubleAction),
		errors.Is(err, domain.ErrReplay):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidArgs),
		errors.Is(err, domain.ErrBadSignature):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("failed to write http response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusOf(err), errorBody{Error: err.Error()})
}

// decodeJSON parses the request body into v, answering 400 itself when the
// body is not valid JSON. It reports whether the handler should proceed.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, fmt.Errorf(
			"%w: invalid request body: %s", domain.ErrInvalidArgs, err,
		))
		return false
	}
	return true
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf(
			"%w: invalid address %q", domain.ErrInvalidArgs, s,
		)
	}
	return common.HexToAddress(s), nil
}

func parseDirection(s string) (domain.TradeDirection, error) {
	switch s {
	case domain.MakerSells.String():
		return domain.MakerSells, nil
	case domain.MakerBuys.String():
		return domain.MakerBuys, nil
	default:
		return 0, fmt.Errorf("%w %q", domain.ErrInvalidDirection, s)
	}
}
