// Package pricing builds the two product-facing composites on top of the
// index engine: the manufacturing cost index per product category, and the
// export price index that folds manufacturing cost together with freight
// and tariff burden.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/MikeSquared-Agency/TariffIndex/internal/entity"
	"github.com/MikeSquared-Agency/TariffIndex/internal/factors"
	"github.com/MikeSquared-Agency/TariffIndex/internal/index"
	"github.com/MikeSquared-Agency/TariffIndex/internal/metrics"
	"github.com/MikeSquared-Agency/TariffIndex/internal/source"
)

var (
	ErrUnknownCategory   = errors.New("unknown category")
	ErrUnknownVariant    = errors.New("unknown variant")
	ErrUnknownHSCode     = errors.New("unknown hs code")
	ErrSourceUnavailable = errors.New("factor source unavailable")
)

// Composite families, used as metric labels and run kinds.
const (
	KindManufacturing = "manufacturing"
	KindExportPrice   = "export_price"
	KindAdhoc         = "adhoc"
)

// Variant is one export price weighting scheme.
type Variant struct {
	Weights index.Weights `json:"weights"`
	Rebase  bool          `json:"rebase"`
}

// HSCode maps a harmonized system code to its manufacturing category.
type HSCode struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// Settings configures a Calculator.
type Settings struct {
	Reference       index.Entity
	DefaultCategory string
	DefaultVariant  string
	Categories      map[string]index.Weights
	Variants        map[string]Variant
	HSCodes         []HSCode
}

// Calculator fetches raw factors from a source and computes composites.
// It is safe for concurrent use.
type Calculator struct {
	engine   *index.Engine
	source   source.Source
	registry *entity.Registry
	settings Settings
	hsCodes  map[string]HSCode
	logger   *slog.Logger
}

func NewCalculator(engine *index.Engine, src source.Source, registry *entity.Registry, settings Settings, logger *slog.Logger) *Calculator {
	hs := make(map[string]HSCode, len(settings.HSCodes))
	for _, h := range settings.HSCodes {
		hs[h.Code] = h
	}
	return &Calculator{
		engine:   engine,
		source:   src,
		registry: registry,
		settings: settings,
		hsCodes:  hs,
		logger:   logger,
	}
}

func (c *Calculator) Reference() index.Entity    { return c.settings.Reference }
func (c *Calculator) Registry() *entity.Registry { return c.registry }
func (c *Calculator) DefaultCategory() string    { return c.settings.DefaultCategory }
func (c *Calculator) DefaultVariant() string     { return c.settings.DefaultVariant }

// Categories returns the manufacturing categories with their weights.
func (c *Calculator) Categories() map[string]index.Weights { return c.settings.Categories }

// Variants returns the export price variants.
func (c *Calculator) Variants() map[string]Variant { return c.settings.Variants }

// HSCodes returns the known HS codes sorted by code.
func (c *Calculator) HSCodes() []HSCode {
	out := make([]HSCode, 0, len(c.hsCodes))
	for _, h := range c.hsCodes {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Manufacturing computes the manufacturing cost index for category. An
// empty category selects the default.
func (c *Calculator) Manufacturing(ctx context.Context, category string) (res *index.Result, err error) {
	start := time.Now()
	defer func() { observe(KindManufacturing, start, err) }()
	return c.manufacturing(ctx, category)
}

func (c *Calculator) manufacturing(ctx context.Context, category string) (*index.Result, error) {
	if category == "" {
		category = c.settings.DefaultCategory
	}
	weights, ok := c.settings.Categories[category]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}
	raw, err := c.fetch(ctx, factors.Manufacturing()...)
	if err != nil {
		return nil, err
	}
	res, err := c.engine.Compute(index.Composite{
		Name:      KindManufacturing + "/" + category,
		Reference: c.settings.Reference,
		Weights:   weights,
	}, raw)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("manufacturing index computed", "category", category, "entities", len(res.Index))
	return res, nil
}

// ExportRequest selects an export price composite. Empty fields fall back
// to defaults; a set HSCode selects its category and tariff schedule.
type ExportRequest struct {
	Category string
	Variant  string
	HSCode   string
}

// ExportResult carries the export price index with its intermediate tables.
type ExportResult struct {
	Category         string        `json:"category"`
	Variant          string        `json:"variant"`
	HSCode           string        `json:"hs_code,omitempty"`
	Manufacturing    *index.Result `json:"manufacturing"`
	Freight          index.Table   `json:"freight"`
	BaseTariff       index.Table   `json:"base_tariff"`
	TradeBenefit     index.Table   `json:"trade_benefit"`
	EffectiveTariff  index.Table   `json:"effective_tariff"`
	TariffMultiplier index.Table   `json:"tariff_multiplier"`
	Composite        *index.Result `json:"composite"`
}

// ExportPrice computes the export price index.
func (c *Calculator) ExportPrice(ctx context.Context, req ExportRequest) (res *ExportResult, err error) {
	start := time.Now()
	defer func() { observe(KindExportPrice, start, err) }()

	tariffFactor := factors.TariffRate
	if req.HSCode != "" {
		hs, ok := c.hsCodes[req.HSCode]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownHSCode, req.HSCode)
		}
		if req.Category == "" {
			req.Category = hs.Category
		}
		if _, ok := c.settings.Variants["hs_code"]; ok && req.Variant == "" {
			req.Variant = "hs_code"
		}
		tariffFactor = factors.HSTariff(req.HSCode)
	}
	if req.Category == "" {
		req.Category = c.settings.DefaultCategory
	}
	if req.Variant == "" {
		req.Variant = c.settings.DefaultVariant
	}
	variant, ok := c.settings.Variants[req.Variant]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVariant, req.Variant)
	}

	mfg, err := c.manufacturing(ctx, req.Category)
	if err != nil {
		return nil, err
	}
	raw, err := c.fetch(ctx, factors.FreightCost, tariffFactor, factors.TradeBenefit)
	if err != nil {
		return nil, err
	}
	effective, err := index.ApplyTradeBenefit(raw[tariffFactor], raw[factors.TradeBenefit])
	if err != nil {
		return nil, err
	}
	multiplier := index.TariffMultiplier(effective)

	composite, err := c.engine.Compute(index.Composite{
		Name:      KindExportPrice + "/" + req.Variant,
		Reference: c.settings.Reference,
		Weights:   variant.Weights,
		Rebase:    variant.Rebase,
	}, index.FactorTables{
		factors.ExportManufacturing: mfg.Index,
		factors.ExportFreight:       raw[factors.FreightCost],
		factors.ExportTariff:        multiplier,
	})
	if err != nil {
		return nil, err
	}

	return &ExportResult{
		Category:         req.Category,
		Variant:          req.Variant,
		HSCode:           req.HSCode,
		Manufacturing:    mfg,
		Freight:          composite.Normalized[factors.ExportFreight],
		BaseTariff:       raw[tariffFactor],
		TradeBenefit:     raw[factors.TradeBenefit],
		EffectiveTariff:  effective,
		TariffMultiplier: multiplier,
		Composite:        composite,
	}, nil
}

// AdhocRequest is a caller-supplied composite over caller-supplied tables.
type AdhocRequest struct {
	Factors   index.FactorTables `json:"factors"`
	Weights   index.Weights      `json:"weights"`
	Reference index.Entity       `json:"reference"`
	Rebase    bool               `json:"rebase"`
}

// Adhoc runs the engine directly on the request's tables. An empty
// reference selects the configured one.
func (c *Calculator) Adhoc(req AdhocRequest) (res *index.Result, err error) {
	start := time.Now()
	defer func() { observe(KindAdhoc, start, err) }()

	ref := req.Reference
	if ref == "" {
		ref = c.settings.Reference
	}
	return c.engine.Compute(index.Composite{
		Name:      KindAdhoc,
		Reference: ref,
		Weights:   req.Weights,
		Rebase:    req.Rebase,
	}, req.Factors)
}

// fetch loads the named factors and checks each against the registry.
func (c *Calculator) fetch(ctx context.Context, names ...index.Factor) (index.FactorTables, error) {
	raw, err := source.FetchAll(ctx, c.source, names)
	if err != nil {
		var ie *index.Error
		if errors.As(err, &ie) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	for _, f := range names {
		if err := c.registry.Check(f, raw[f]); err != nil {
			return nil, err
		}
	}
	return raw, nil
}

func observe(kind string, start time.Time, err error) {
	reason := ""
	switch {
	case err == nil:
	case errors.Is(err, ErrSourceUnavailable):
		reason = "source_unavailable"
	default:
		reason = index.KindName(err)
	}
	metrics.ObserveComputation(kind, reason, time.Since(start))
}
