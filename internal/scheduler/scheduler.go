// Package scheduler refreshes factor data and recomputes every configured
// composite, either on a fixed interval or on demand.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/MikeSquared-Agency/TariffIndex/internal/hermes"
	"github.com/MikeSquared-Agency/TariffIndex/internal/index"
	"github.com/MikeSquared-Agency/TariffIndex/internal/metrics"
	"github.com/MikeSquared-Agency/TariffIndex/internal/pricing"
	"github.com/MikeSquared-Agency/TariffIndex/internal/runs"
	"github.com/MikeSquared-Agency/TariffIndex/internal/source"
	"github.com/MikeSquared-Agency/TariffIndex/internal/store"
)

// Collector pulls fresh observations from an upstream source and persists
// them where the serving source reads from.
type Collector struct {
	Upstream source.Source
	Sink     source.Sink
	Factors  []index.Factor
	// Invalidate, when set, drops cached tables after a successful write.
	Invalidate func(ctx context.Context, factors []index.Factor) error
}

type Refresher struct {
	calc      *pricing.Calculator
	recorder  *runs.Recorder
	store     store.Store
	hermes    hermes.Client
	collector *Collector
	interval  time.Duration
	now       func() time.Time
	logger    *slog.Logger

	runMu sync.Mutex

	// stopMu orders wg.Add for requested passes against Stop.
	stopMu   sync.Mutex
	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New creates a Refresher. collector and h may be nil.
func New(calc *pricing.Calculator, rec *runs.Recorder, s store.Store, h hermes.Client, collector *Collector, interval time.Duration, logger *slog.Logger) *Refresher {
	return &Refresher{
		calc:      calc,
		recorder:  rec,
		store:     s,
		hermes:    h,
		collector: collector,
		interval:  interval,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger,
		stopCh:    make(chan struct{}),
	}
}

func (r *Refresher) Start(ctx context.Context) {
	r.wg.Add(1)
	go r.loop(ctx)
}

// Stop ends the interval loop and waits for every pass it or a refresh
// request started. Requests arriving after Stop are ignored.
func (r *Refresher) Stop() {
	r.stopMu.Lock()
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.stopMu.Unlock()
	r.wg.Wait()
}

func (r *Refresher) loop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx, "scheduler"); err != nil {
				r.logger.Warn("scheduled refresh failed", "error", err)
			}
		}
	}
}

// SetupSubscriptions lets other services trigger a refresh over NATS.
func (r *Refresher) SetupSubscriptions(ctx context.Context) error {
	if r.hermes == nil {
		return nil
	}
	return r.hermes.Subscribe(hermes.SubjectRefreshRequest, func(_ string, _ []byte) {
		r.stopMu.Lock()
		defer r.stopMu.Unlock()
		select {
		case <-r.stopCh:
			r.logger.Info("refresh request ignored after stop")
			return
		default:
		}
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if _, err := r.RunOnce(ctx, "event"); err != nil {
				r.logger.Warn("requested refresh failed", "error", err)
			}
		}()
	})
}

// RunOnce collects fresh data when a collector is configured, recomputes
// every category, variant and HS code, and appends a refresh record.
// Concurrent calls are serialized. The returned error summarizes every
// failure of the pass; the record is returned either way.
func (r *Refresher) RunOnce(ctx context.Context, trigger string) (*store.RefreshRecord, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	rec := &store.RefreshRecord{Trigger: trigger, StartedAt: r.now()}
	r.logger.Info("refresh started", "trigger", trigger)

	var errs []error
	if r.collector != nil {
		date, err := r.collect(ctx)
		if err != nil {
			errs = append(errs, err)
		}
		rec.CollectionDate = date
	}

	for _, run := range r.recompute(ctx, trigger, rec.CollectionDate) {
		rec.Runs++
		if run.Status == store.RunFailed {
			errs = append(errs, fmt.Errorf("%s %s%s: %s", run.Kind, run.Category, variantSuffix(run), run.Error))
		}
	}

	rec.FinishedAt = r.now()
	err := errors.Join(errs...)
	if err != nil {
		rec.Status = store.RefreshError
		rec.Error = err.Error()
	} else {
		rec.Status = store.RefreshSuccess
	}
	metrics.ObserveRefresh(string(rec.Status))

	if serr := r.store.RecordRefresh(ctx, rec); serr != nil {
		r.logger.Error("failed to record refresh", "error", serr)
	}
	r.publish(rec)
	r.logger.Info("refresh finished", "trigger", trigger, "status", rec.Status, "runs", rec.Runs,
		"duration", rec.FinishedAt.Sub(rec.StartedAt))
	return rec, err
}

func variantSuffix(run *store.Run) string {
	switch {
	case run.HSCode != "":
		return " hs " + run.HSCode
	case run.Variant != "":
		return "/" + run.Variant
	default:
		return ""
	}
}

func (r *Refresher) collect(ctx context.Context) (string, error) {
	date := r.now().Format(time.DateOnly)
	tables, err := source.FetchAll(ctx, r.collector.Upstream, r.collector.Factors)
	if err != nil {
		return "", fmt.Errorf("collect: %w", err)
	}
	if err := r.collector.Sink.Record(ctx, source.Snapshot{CollectionDate: date, Data: tables}); err != nil {
		return "", fmt.Errorf("store snapshot: %w", err)
	}
	if r.collector.Invalidate != nil {
		if err := r.collector.Invalidate(ctx, r.collector.Factors); err != nil {
			r.logger.Warn("cache invalidation failed", "error", err)
		}
	}
	r.logger.Info("factor snapshot collected", "collection_date", date, "factors", len(tables))
	return date, nil
}

func (r *Refresher) recompute(ctx context.Context, trigger, date string) []*store.Run {
	var out []*store.Run
	for _, category := range sortedKeys(r.calc.Categories()) {
		res, err := r.calc.Manufacturing(ctx, category)
		out = append(out, r.recorder.Record(ctx, &store.Run{
			Kind: pricing.KindManufacturing, Category: category, Trigger: trigger, CollectionDate: date,
		}, res, err))
	}
	for _, variant := range sortedKeys(r.calc.Variants()) {
		res, err := r.calc.ExportPrice(ctx, pricing.ExportRequest{Variant: variant})
		out = append(out, r.recordExport(ctx, trigger, date, pricing.ExportRequest{Variant: variant}, res, err))
	}
	for _, hs := range r.calc.HSCodes() {
		req := pricing.ExportRequest{HSCode: hs.Code}
		res, err := r.calc.ExportPrice(ctx, req)
		out = append(out, r.recordExport(ctx, trigger, date, req, res, err))
	}
	return out
}

func (r *Refresher) recordExport(ctx context.Context, trigger, date string, req pricing.ExportRequest, res *pricing.ExportResult, err error) *store.Run {
	run := &store.Run{
		Kind:           pricing.KindExportPrice,
		Category:       req.Category,
		Variant:        req.Variant,
		HSCode:         req.HSCode,
		Trigger:        trigger,
		CollectionDate: date,
	}
	var composite *index.Result
	if res != nil {
		run.Category, run.Variant = res.Category, res.Variant
		composite = res.Composite
	}
	return r.recorder.Record(ctx, run, composite, err)
}

func (r *Refresher) publish(rec *store.RefreshRecord) {
	if r.hermes == nil {
		return
	}
	subject := hermes.SubjectRefreshCompleted
	if rec.Status == store.RefreshError {
		subject = hermes.SubjectRefreshFailed
	}
	err := r.hermes.Publish(subject, hermes.RefreshEvent{
		RefreshID:      rec.ID.String(),
		Trigger:        rec.Trigger,
		Status:         string(rec.Status),
		Error:          rec.Error,
		CollectionDate: rec.CollectionDate,
		Runs:           rec.Runs,
		DurationMs:     rec.FinishedAt.Sub(rec.StartedAt).Milliseconds(),
		Timestamp:      rec.FinishedAt,
	})
	if err != nil {
		r.logger.Warn("failed to publish refresh event", "error", err)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
