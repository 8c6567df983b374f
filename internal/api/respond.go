package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MikeSquared-Agency/TariffIndex/internal/index"
	"github.com/MikeSquared-Agency/TariffIndex/internal/pricing"
	"github.com/MikeSquared-Agency/TariffIndex/internal/report"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is the body of every non-2xx response. Kind, Entity and
// Factor are set for engine failures.
type ErrorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Entity string `json:"entity,omitempty"`
	Factor string `json:"factor,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error()}
	status := http.StatusInternalServerError

	var ie *index.Error
	switch {
	case errors.Is(err, pricing.ErrUnknownCategory),
		errors.Is(err, pricing.ErrUnknownVariant),
		errors.Is(err, pricing.ErrUnknownHSCode):
		status = http.StatusNotFound
	case errors.Is(err, pricing.ErrSourceUnavailable):
		status = http.StatusBadGateway
	case errors.Is(err, report.ErrUnknownFormat):
		status = http.StatusBadRequest
	case errors.As(err, &ie):
		status = http.StatusUnprocessableEntity
		resp.Kind = index.KindName(err)
		resp.Entity = string(ie.Entity)
		resp.Factor = string(ie.Factor)
	case index.KindName(err) != "unknown":
		status = http.StatusUnprocessableEntity
		resp.Kind = index.KindName(err)
	}
	writeJSON(w, status, resp)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg})
}
