package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MikeSquared-Agency/TariffIndex/internal/factors"
	"github.com/MikeSquared-Agency/TariffIndex/internal/index"
	"github.com/MikeSquared-Agency/TariffIndex/internal/metrics"
)

// Deriving computes derived factors from their primitive inputs when the
// wrapped source does not carry them directly.
type Deriving struct {
	next        Source
	derivations map[index.Factor]factors.Derivation
}

// WithDerivations wraps next with the standard factor derivations.
func WithDerivations(next Source) *Deriving {
	return &Deriving{next: next, derivations: factors.Derivations()}
}

func (d *Deriving) Name() string { return d.next.Name() }

func (d *Deriving) Fetch(ctx context.Context, factor index.Factor) (index.Table, error) {
	t, err := d.next.Fetch(ctx, factor)
	if err == nil || !errors.Is(err, ErrUnknownFactor) {
		return t, err
	}
	der, ok := d.derivations[factor]
	if !ok {
		return nil, err
	}
	inputs := make([]index.Table, 0, len(der.Inputs))
	for _, in := range der.Inputs {
		t, err := d.next.Fetch(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("derive %s: %w", factor, err)
		}
		inputs = append(inputs, t)
	}
	return der.Compute(inputs)
}

// Fallback serves from primary and switches to secondary when primary is
// unreachable or lacks the factor. Data-quality errors (*index.Error) and
// context cancellation are returned unchanged.
type Fallback struct {
	primary   Source
	secondary Source
	logger    *slog.Logger
}

func NewFallback(primary, secondary Source, logger *slog.Logger) *Fallback {
	return &Fallback{primary: primary, secondary: secondary, logger: logger}
}

func (f *Fallback) Name() string { return f.primary.Name() + "+" + f.secondary.Name() }

func (f *Fallback) Fetch(ctx context.Context, factor index.Factor) (index.Table, error) {
	t, err := f.primary.Fetch(ctx, factor)
	if err == nil {
		return t, nil
	}
	var ie *index.Error
	if ctx.Err() != nil || errors.As(err, &ie) {
		return nil, err
	}
	f.logger.Warn("primary source failed, using fallback",
		"factor", factor, "primary", f.primary.Name(), "fallback", f.secondary.Name(), "error", err)
	return f.secondary.Fetch(ctx, factor)
}

// Instrumented counts fetch outcomes per source.
type Instrumented struct {
	next Source
}

func Instrument(next Source) *Instrumented { return &Instrumented{next: next} }

func (i *Instrumented) Name() string { return i.next.Name() }

func (i *Instrumented) Fetch(ctx context.Context, factor index.Factor) (index.Table, error) {
	t, err := i.next.Fetch(ctx, factor)
	switch {
	case err == nil:
		metrics.ObserveFetch(i.next.Name(), "ok")
	case errors.Is(err, ErrUnknownFactor):
		metrics.ObserveFetch(i.next.Name(), "unknown")
	default:
		metrics.ObserveFetch(i.next.Name(), "error")
	}
	return t, err
}
