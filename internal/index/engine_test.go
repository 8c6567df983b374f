package index

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strictEngine() *Engine {
	return NewEngine(Options{StrictWeightSum: true}, discardLogger())
}

func TestNormalizeReferenceIsBase(t *testing.T) {
	raw := Table{"KR": 25.0, "JP": 30.62, "CN": 25.0, "IN": 25.17, "MX": 30.0}

	got, err := Normalize(raw, "KR")
	require.NoError(t, err)
	assert.Equal(t, 100.0, got["KR"])
	assert.InDelta(t, 122.48, got["JP"], 1e-9)
	assert.InDelta(t, 100.0, got["CN"], 1e-9)
	assert.Len(t, got, len(raw))
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	raw := Table{"KR": 4500, "MX": 3200}
	_, err := Normalize(raw, "KR")
	require.NoError(t, err)
	assert.Equal(t, Table{"KR": 4500, "MX": 3200}, raw)
}

func TestNormalizeScaleInvariant(t *testing.T) {
	raw := Table{"KR": 12.0, "JP": 18.0, "CN": 8.5, "IN": 4.0, "VN": 4.5}
	base, err := Normalize(raw, "KR")
	require.NoError(t, err)

	for _, k := range []float64{0.001, 0.5, 3, 1e6} {
		scaled := make(Table, len(raw))
		for e, v := range raw {
			scaled[e] = v * k
		}
		got, err := Normalize(scaled, "KR")
		require.NoError(t, err)
		for e := range raw {
			assert.InDelta(t, base[e], got[e], 1e-9, "k=%v entity=%s", k, e)
		}
	}
}

func TestNormalizeFailures(t *testing.T) {
	tests := []struct {
		name string
		raw  Table
		ref  Entity
		kind error
	}{
		{"missing reference", Table{"JP": 1, "CN": 2}, "KR", ErrMissingReference},
		{"zero reference", Table{"KR": 0, "CN": 2}, "KR", ErrDivisionByZero},
		{"nan value", Table{"KR": 1, "CN": math.NaN()}, "KR", ErrNonFiniteValue},
		{"inf value", Table{"KR": math.Inf(1)}, "KR", ErrNonFiniteValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.raw, tt.ref)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestNormalizeZeroReferenceNamesEntity(t *testing.T) {
	_, err := Normalize(Table{"KR": 0, "JP": 0.1}, "KR")
	var ie *Error
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, Entity("KR"), ie.Entity)
	assert.Equal(t, "normalize", ie.Op)
}

func TestCombineSingleFactorPassthrough(t *testing.T) {
	labor, err := Normalize(Table{"KR": 100, "CN": 50}, "KR")
	require.NoError(t, err)
	assert.Equal(t, Table{"KR": 100, "CN": 50}, labor)

	got, err := strictEngine().Combine(FactorTables{"labor": labor}, Weights{"labor": 1.0})
	require.NoError(t, err)
	assert.Equal(t, Table{"KR": 100, "CN": 50}, got)
}

func TestCombineTwoFactors(t *testing.T) {
	a, err := Normalize(Table{"KR": 100, "CN": 200}, "KR")
	require.NoError(t, err)
	b, err := Normalize(Table{"KR": 100, "CN": 50}, "KR")
	require.NoError(t, err)

	got, err := strictEngine().Combine(FactorTables{"a": a, "b": b}, Weights{"a": 0.5, "b": 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 100.0, got["KR"], 1e-12)
	assert.InDelta(t, 125.0, got["CN"], 1e-12)
}

func TestCombineLinearInWeights(t *testing.T) {
	e := NewEngine(Options{StrictWeightSum: false}, discardLogger())
	factors := FactorTables{
		"a": {"KR": 100, "CN": 200, "JP": 80},
		"b": {"KR": 100, "CN": 50, "JP": 140},
		"c": {"KR": 100, "CN": 75, "JP": 110},
	}
	w := Weights{"a": 0.2, "b": 0.3, "c": 0.5}

	base, err := e.Combine(factors, w)
	require.NoError(t, err)

	for _, c := range []float64{0, 0.25, 2, 10} {
		got, err := e.Combine(factors, w.Scale(c))
		require.NoError(t, err)
		for ent := range base {
			assert.InDelta(t, base[ent]*c, got[ent], 1e-9, "c=%v entity=%s", c, ent)
		}
	}
}

func TestCombineReferenceStaysAtBaseWhenWeightsSumToOne(t *testing.T) {
	raw := FactorTables{
		"corporate_tax": {"KR": 25.0, "JP": 30.62, "CN": 25.0},
		"labor_cost":    {"KR": 31.25, "JP": 36.4, "CN": 11.9},
		"land_cost":     {"KR": 12.0, "JP": 18.0, "CN": 8.5},
	}
	normalized := FactorTables{}
	for f, t0 := range raw {
		n, err := Normalize(t0, "KR")
		require.NoError(t, err)
		normalized[f] = n
	}
	got, err := strictEngine().Combine(normalized, Weights{"corporate_tax": 0.1, "labor_cost": 0.7, "land_cost": 0.2})
	require.NoError(t, err)
	assert.InDelta(t, 100.0, got["KR"], 1e-9)
}

func TestCombineKeyMismatch(t *testing.T) {
	e := strictEngine()
	factors := FactorTables{"a": {"KR": 100}, "b": {"KR": 100}}

	t.Run("factor without weight", func(t *testing.T) {
		_, err := e.Combine(factors, Weights{"a": 1.0})
		assert.ErrorIs(t, err, ErrWeightKeyMismatch)
		var ie *Error
		require.True(t, errors.As(err, &ie))
		assert.Equal(t, Factor("b"), ie.Factor)
	})

	t.Run("weight without factor", func(t *testing.T) {
		_, err := e.Combine(factors, Weights{"a": 0.4, "b": 0.4, "c": 0.2})
		assert.ErrorIs(t, err, ErrWeightKeyMismatch)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := e.Combine(FactorTables{}, Weights{})
		assert.ErrorIs(t, err, ErrWeightKeyMismatch)
	})
}

func TestCombineIncompleteCoverage(t *testing.T) {
	factors := FactorTables{
		"a": {"KR": 100, "CN": 80, "MX": 90},
		"b": {"KR": 100, "CN": 70},
	}
	_, err := strictEngine().Combine(factors, Weights{"a": 0.5, "b": 0.5})
	require.ErrorIs(t, err, ErrIncompleteFactorCoverage)

	var ie *Error
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, Entity("MX"), ie.Entity)
	assert.Equal(t, Factor("b"), ie.Factor)
}

func TestCombineWeightSum(t *testing.T) {
	factors := FactorTables{"a": {"KR": 100, "CN": 50}, "b": {"KR": 100, "CN": 150}}
	w := Weights{"a": 0.6, "b": 0.6}

	t.Run("strict", func(t *testing.T) {
		_, err := strictEngine().Combine(factors, w)
		assert.ErrorIs(t, err, ErrWeightSumInvariant)
	})

	t.Run("tolerated logs warning", func(t *testing.T) {
		var buf bytes.Buffer
		e := NewEngine(Options{}, slog.New(slog.NewTextHandler(&buf, nil)))
		got, err := e.Combine(factors, w)
		require.NoError(t, err)
		assert.InDelta(t, 120.0, got["KR"], 1e-9)
		assert.Contains(t, buf.String(), "weight sum outside tolerance")
	})

	t.Run("within tolerance", func(t *testing.T) {
		e := NewEngine(Options{Tolerance: 1e-3, StrictWeightSum: true}, discardLogger())
		_, err := e.Combine(factors, Weights{"a": 0.5, "b": 0.5004})
		assert.NoError(t, err)
	})
}

func TestCombineNegativeWeight(t *testing.T) {
	e := NewEngine(Options{}, discardLogger())
	_, err := e.Combine(FactorTables{"a": {"KR": 100}, "b": {"KR": 100}}, Weights{"a": 1.5, "b": -0.5})
	assert.ErrorIs(t, err, ErrNegativeWeight)
}

func TestRebase(t *testing.T) {
	combined := Table{"KR": 104.0, "CN": 130.0, "MX": 91.0}
	got, err := Rebase(combined, "KR")
	require.NoError(t, err)
	assert.Equal(t, 100.0, got["KR"])
	assert.InDelta(t, 125.0, got["CN"], 1e-9)
	assert.InDelta(t, 87.5, got["MX"], 1e-9)

	_, err = Rebase(Table{"CN": 1}, "KR")
	assert.ErrorIs(t, err, ErrMissingReference)
	_, err = Rebase(Table{"KR": 0, "CN": 1}, "KR")
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestRebaseAfterCombineAlwaysBase(t *testing.T) {
	e := NewEngine(Options{}, discardLogger())
	factors := FactorTables{
		"a": {"KR": 100, "CN": 120, "JP": 90},
		"b": {"KR": 100, "CN": 60, "JP": 130},
	}
	for _, w := range []Weights{
		{"a": 0.5, "b": 0.5},
		{"a": 0.8, "b": 0.1},
		{"a": 2, "b": 3},
	} {
		combined, err := e.Combine(factors, w)
		require.NoError(t, err)
		got, err := Rebase(combined, "KR")
		require.NoError(t, err)
		assert.Equal(t, 100.0, got["KR"])
	}
}

func TestKindName(t *testing.T) {
	_, err := Normalize(Table{"KR": 0}, "KR")
	assert.Equal(t, "division_by_zero", KindName(err))
	assert.Equal(t, "unknown", KindName(errors.New("boom")))
	assert.Equal(t, "incomplete_factor_coverage", KindName(&Error{Op: "x", Kind: ErrIncompleteFactorCoverage}))
}
