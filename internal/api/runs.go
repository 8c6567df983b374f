package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/TariffIndex/internal/store"
)

// Refresher runs one refresh pass on demand.
type Refresher interface {
	RunOnce(ctx context.Context, trigger string) (*store.RefreshRecord, error)
}

type RunsHandler struct {
	store     store.Store
	refresher Refresher
}

// NewRunsHandler creates a RunsHandler. refresher may be nil, in which case
// manual refresh answers 503.
func NewRunsHandler(s store.Store, refresher Refresher) *RunsHandler {
	return &RunsHandler{store: s, refresher: refresher}
}

func queryInt(r *http.Request, name string, def int) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RunFilter{
		Kind:     q.Get("kind"),
		Category: q.Get("category"),
	}
	if s := q.Get("status"); s != "" {
		status := store.RunStatus(s)
		if status != store.RunSucceeded && status != store.RunFailed {
			badRequest(w, "invalid status filter")
			return
		}
		filter.Status = &status
	}
	var ok bool
	if filter.Limit, ok = queryInt(r, "limit", 50); !ok {
		badRequest(w, "invalid limit")
		return
	}
	if filter.Offset, ok = queryInt(r, "offset", 0); !ok {
		badRequest(w, "invalid offset")
		return
	}

	list, err := h.store.ListRuns(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []*store.Run{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid run id")
		return
	}
	run, err := h.store.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if run == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "run not found"})
		return
	}
	writeJSON(w, http.StatusOK, run)
}

type StatusResponse struct {
	LastRefresh *store.RefreshRecord   `json:"last_refresh"`
	History     []*store.RefreshRecord `json:"history"`
}

func (h *RunsHandler) Status(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit", 20)
	if !ok {
		badRequest(w, "invalid limit")
		return
	}
	hist, err := h.store.ListRefreshes(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := StatusResponse{History: hist}
	if resp.History == nil {
		resp.History = []*store.RefreshRecord{}
	}
	if len(hist) > 0 {
		resp.LastRefresh = hist[0]
	}
	writeJSON(w, http.StatusOK, resp)
}

// Refresh runs a refresh pass synchronously and returns its record. A
// failed pass still answers 200 with status "error" in the record.
func (h *RunsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if h.refresher == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "refresh not configured"})
		return
	}
	rec, err := h.refresher.RunOnce(r.Context(), "api")
	if rec == nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
