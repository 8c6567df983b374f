package index

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectiveRate(t *testing.T) {
	tests := []struct {
		name    string
		base    float64
		benefit float64
		want    float64
	}{
		{"full exemption", 27.5, 100, 0},
		{"no agreement", 27.5, 0, 27.5},
		{"half discount", 10, 50, 5},
		{"punitive surcharge", 20, -25, 25},
		{"retaliation", 52.5, -54, 80.85},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, EffectiveRate(tt.base, tt.benefit), 1e-9)
		})
	}
}

func TestApplyTradeBenefit(t *testing.T) {
	base := Table{"KR": 0, "JP": 27.5, "CN": 52.5, "MX": 0}
	benefit := Table{"KR": 100, "CN": -25, "MX": 100}

	got, err := ApplyTradeBenefit(base, benefit)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got["KR"])
	assert.Equal(t, 27.5, got["JP"], "missing benefit means no adjustment")
	assert.InDelta(t, 52.5*1.25, got["CN"], 1e-9)
	assert.Len(t, got, 4)
}

func TestTariffMultiplier(t *testing.T) {
	got := TariffMultiplier(Table{"KR": 0, "CN": 65.625})
	assert.Equal(t, 1.0, got["KR"])
	assert.InDelta(t, 1.65625, got["CN"], 1e-12)
}

func TestComputeWithRebase(t *testing.T) {
	e := NewEngine(Options{}, discardLogger())
	c := Composite{
		Name:      "export",
		Reference: "KR",
		Weights:   Weights{"a": 0.8, "b": 0.1},
		Rebase:    true,
	}
	res, err := e.Compute(c, FactorTables{
		"a": {"KR": 10, "CN": 5},
		"b": {"KR": 4, "CN": 8},
	})
	require.NoError(t, err)
	assert.InDelta(t, 90.0, res.Combined["KR"], 1e-9)
	assert.InDelta(t, 60.0, res.Combined["CN"], 1e-9)
	assert.Equal(t, 100.0, res.Index["KR"])
	assert.InDelta(t, 66.6667, res.Index["CN"], 1e-4)
	assert.True(t, res.Rebased)
}

func TestComputeTagsFactorOnNormalizeFailure(t *testing.T) {
	e := NewEngine(Options{StrictWeightSum: true}, discardLogger())
	c := Composite{Name: "mfg", Reference: "KR", Weights: Weights{"interest_rate": 1}}

	_, err := e.Compute(c, FactorTables{"interest_rate": {"KR": 0, "JP": 0.1}})
	require.ErrorIs(t, err, ErrDivisionByZero)
	var ie *Error
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, Factor("interest_rate"), ie.Factor)
	assert.Contains(t, err.Error(), "composite mfg")
}

func TestResultBreakdownAndRanking(t *testing.T) {
	e := NewEngine(Options{StrictWeightSum: true}, discardLogger())
	res, err := e.Compute(Composite{
		Name:      "two",
		Reference: "KR",
		Weights:   Weights{"a": 0.5, "b": 0.5},
	}, FactorTables{
		"a": {"KR": 100, "CN": 200, "VN": 40},
		"b": {"KR": 100, "CN": 50, "VN": 60},
	})
	require.NoError(t, err)

	parts, err := res.Breakdown("CN")
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Equal(t, Factor("a"), parts[0].Name)
	assert.InDelta(t, 100.0, parts[0].Weighted, 1e-9)
	assert.InDelta(t, 25.0, parts[1].Weighted, 1e-9)

	_, err = res.Breakdown("XX")
	assert.ErrorIs(t, err, ErrUnknownEntity)

	assert.Equal(t, []Entity{"VN", "KR", "CN"}, res.Ranked())
}

func TestWeightsValidate(t *testing.T) {
	assert.NoError(t, Weights{"a": 0.25, "b": 0.75}.Validate(0))
	assert.ErrorIs(t, Weights{"a": 0.25, "b": 0.7}.Validate(0), ErrWeightSumInvariant)
	assert.ErrorIs(t, Weights{"a": 1.25, "b": -0.25}.Validate(0), ErrNegativeWeight)
	assert.NoError(t, Weights{"a": 0.25, "b": 0.7}.Validate(0.1))
}
