package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/TariffIndex/internal/index"
	"github.com/MikeSquared-Agency/TariffIndex/internal/pricing"
	"github.com/MikeSquared-Agency/TariffIndex/internal/report"
	"github.com/MikeSquared-Agency/TariffIndex/internal/runs"
	"github.com/MikeSquared-Agency/TariffIndex/internal/store"
)

// IndexHandler serves composite computations. Every computation through
// it is recorded as a run with trigger "api".
type IndexHandler struct {
	calc     *pricing.Calculator
	recorder *runs.Recorder
	store    store.Store
	market   string
}

func NewIndexHandler(calc *pricing.Calculator, rec *runs.Recorder, s store.Store, market string) *IndexHandler {
	return &IndexHandler{calc: calc, recorder: rec, store: s, market: market}
}

func (h *IndexHandler) record(ctx context.Context, run *store.Run, res *index.Result, err error) {
	if h.recorder == nil {
		return
	}
	run.Trigger = "api"
	h.recorder.Record(ctx, run, res, err)
}

func (h *IndexHandler) Entities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reference": h.calc.Reference(),
		"entities":  h.calc.Registry().All(),
	})
}

type CompositesResponse struct {
	Reference       index.Entity               `json:"reference"`
	DefaultCategory string                     `json:"default_category"`
	DefaultVariant  string                     `json:"default_variant"`
	Categories      map[string]index.Weights   `json:"categories"`
	Variants        map[string]pricing.Variant `json:"variants"`
	HSCodes         []pricing.HSCode           `json:"hs_codes"`
}

func (h *IndexHandler) Composites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CompositesResponse{
		Reference:       h.calc.Reference(),
		DefaultCategory: h.calc.DefaultCategory(),
		DefaultVariant:  h.calc.DefaultVariant(),
		Categories:      h.calc.Categories(),
		Variants:        h.calc.Variants(),
		HSCodes:         h.calc.HSCodes(),
	})
}

func (h *IndexHandler) Manufacturing(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	res, err := h.calc.Manufacturing(r.Context(), category)
	h.record(r.Context(), &store.Run{Kind: pricing.KindManufacturing, Category: orDefault(category, h.calc.DefaultCategory())}, res, err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func exportRequest(r *http.Request) pricing.ExportRequest {
	q := r.URL.Query()
	return pricing.ExportRequest{
		Category: q.Get("category"),
		Variant:  q.Get("variant"),
		HSCode:   q.Get("hs_code"),
	}
}

func (h *IndexHandler) exportPrice(ctx context.Context, req pricing.ExportRequest) (*pricing.ExportResult, error) {
	res, err := h.calc.ExportPrice(ctx, req)
	run := &store.Run{Kind: pricing.KindExportPrice, Category: req.Category, Variant: req.Variant, HSCode: req.HSCode}
	var composite *index.Result
	if res != nil {
		run.Category, run.Variant = res.Category, res.Variant
		composite = res.Composite
	}
	h.record(ctx, run, composite, err)
	return res, err
}

func (h *IndexHandler) ExportPrice(w http.ResponseWriter, r *http.Request) {
	res, err := h.exportPrice(r.Context(), exportRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *IndexHandler) Compute(w http.ResponseWriter, r *http.Request) {
	var req pricing.AdhocRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if len(req.Factors) == 0 || len(req.Weights) == 0 {
		badRequest(w, "factors and weights required")
		return
	}
	res, err := h.calc.Adhoc(req)
	h.record(r.Context(), &store.Run{Kind: pricing.KindAdhoc}, res, err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Report renders a manufacturing or export price composite in the format
// named by the format query parameter.
func (h *IndexHandler) Report(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, err := report.ParseFormat(q.Get("format"))
	if err != nil {
		writeError(w, err)
		return
	}

	rep := &report.Report{
		Market:      h.market,
		GeneratedAt: time.Now().UTC(),
		Registry:    h.calc.Registry(),
	}
	switch kind := orDefault(q.Get("kind"), pricing.KindManufacturing); kind {
	case pricing.KindManufacturing:
		category := orDefault(q.Get("category"), h.calc.DefaultCategory())
		res, err := h.calc.Manufacturing(r.Context(), category)
		h.record(r.Context(), &store.Run{Kind: kind, Category: category}, res, err)
		if err != nil {
			writeError(w, err)
			return
		}
		rep.Title = fmt.Sprintf("Manufacturing cost index (%s)", category)
		rep.Result = res
	case pricing.KindExportPrice:
		res, err := h.exportPrice(r.Context(), exportRequest(r))
		if err != nil {
			writeError(w, err)
			return
		}
		rep.Title = exportTitle(res)
		rep.Result = res.Composite
	default:
		badRequest(w, "kind must be manufacturing or export_price")
		return
	}
	rep.CollectionDate = h.collectionDate(r.Context())

	var buf bytes.Buffer
	if err := report.Write(&buf, rep, format); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	if format == report.FormatXLSX || format == report.FormatCSV {
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s%s"`, strings.ReplaceAll(rep.Result.Name, "/", "_"), format.Extension()))
	}
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func exportTitle(res *pricing.ExportResult) string {
	if res.HSCode != "" {
		return fmt.Sprintf("Export price index (HS %s, %s)", res.HSCode, res.Category)
	}
	return fmt.Sprintf("Export price index (%s, %s)", res.Variant, res.Category)
}

// collectionDate reports the date of the most recent refresh that
// collected data, if any.
func (h *IndexHandler) collectionDate(ctx context.Context) string {
	if h.store == nil {
		return ""
	}
	recs, err := h.store.ListRefreshes(ctx, 0)
	if err != nil {
		return ""
	}
	for _, rec := range recs {
		if rec.CollectionDate != "" {
			return rec.CollectionDate
		}
	}
	return ""
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
