// Package runs persists composite computations and announces them on the
// event bus.
package runs

import (
	"context"
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/TariffIndex/internal/hermes"
	"github.com/MikeSquared-Agency/TariffIndex/internal/index"
	"github.com/MikeSquared-Agency/TariffIndex/internal/store"
)

// Recorder turns computation outcomes into stored runs and events. The
// hermes client may be nil.
type Recorder struct {
	store  store.Store
	hermes hermes.Client
	logger *slog.Logger
}

func NewRecorder(s store.Store, h hermes.Client, logger *slog.Logger) *Recorder {
	return &Recorder{store: s, hermes: h, logger: logger}
}

// Record completes run from the computation outcome, stores it and
// publishes the matching event. The caller fills the selector fields
// (Kind, Category, Variant, HSCode, Trigger). Storage and publish failures
// are logged, never returned, so they cannot mask the computation result.
func (r *Recorder) Record(ctx context.Context, run *store.Run, res *index.Result, err error) *store.Run {
	if err != nil {
		run.Status = store.RunFailed
		run.Error = err.Error()
		run.ErrorKind = index.KindName(err)
	} else {
		run.Status = store.RunSucceeded
		run.Reference = string(res.Reference)
		run.Weights = res.Weights
		run.Index = res.Index
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	if serr := r.store.CreateRun(ctx, run); serr != nil {
		r.logger.Error("failed to store run", "kind", run.Kind, "error", serr)
	}

	if r.hermes == nil {
		return run
	}
	var perr error
	if err != nil {
		perr = r.hermes.Publish(hermes.SubjectIndexFailed(run.Kind), hermes.IndexFailedEvent{
			RunID:     run.ID.String(),
			Kind:      run.Kind,
			Category:  run.Category,
			Variant:   run.Variant,
			Error:     run.Error,
			ErrorKind: run.ErrorKind,
			Timestamp: run.CreatedAt,
		})
	} else {
		values := make(map[string]float64, len(run.Index))
		for e, v := range run.Index {
			values[string(e)] = v
		}
		perr = r.hermes.Publish(hermes.SubjectIndexComputed(run.Kind), hermes.IndexComputedEvent{
			RunID:          run.ID.String(),
			Kind:           run.Kind,
			Category:       run.Category,
			Variant:        run.Variant,
			HSCode:         run.HSCode,
			Reference:      run.Reference,
			Index:          values,
			CollectionDate: run.CollectionDate,
			Timestamp:      run.CreatedAt,
		})
	}
	if perr != nil {
		r.logger.Warn("failed to publish run event", "kind", run.Kind, "error", perr)
	}
	return run
}
