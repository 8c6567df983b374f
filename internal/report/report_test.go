package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/MikeSquared-Agency/TariffIndex/internal/entity"
	"github.com/MikeSquared-Agency/TariffIndex/internal/index"
)

func testReport() *Report {
	return &Report{
		Title:          "Manufacturing cost index (general)",
		Market:         "US market",
		CollectionDate: "2025-06-30",
		GeneratedAt:    time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		Registry:       entity.MustDefault(),
		Result: &index.Result{
			Name:      "manufacturing/general",
			Reference: "KR",
			Weights:   index.Weights{"labor": 0.5, "land": 0.5},
			Normalized: index.FactorTables{
				"labor": {"KR": 100, "CN": 60, "JP": 120},
				"land":  {"KR": 100, "CN": 100, "JP": 124},
			},
			Combined: index.Table{"KR": 50, "CN": 40, "JP": 61},
			Index:    index.Table{"KR": 50, "CN": 40, "JP": 61},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"", FormatText},
		{"text", FormatText},
		{"MD", FormatMarkdown},
		{"markdown", FormatMarkdown},
		{"csv", FormatCSV},
		{"xlsx", FormatXLSX},
		{" json ", FormatJSON},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseFormat("png")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestRowsRebaseInRegistryOrder(t *testing.T) {
	rows, err := testReport().Rows()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, index.Entity("KR"), rows[0].Entity)
	assert.Equal(t, index.Entity("JP"), rows[1].Entity)
	assert.Equal(t, index.Entity("CN"), rows[2].Entity)
	assert.InDelta(t, 100.0, rows[0].Value, 1e-9)
	assert.InDelta(t, 122.0, rows[1].Value, 1e-9)
	assert.InDelta(t, 80.0, rows[2].Value, 1e-9)
	assert.Equal(t, "China", rows[2].Name)
	assert.Equal(t, 60.0, rows[2].Normalized["labor"])
}

func TestRowsUnknownEntitiesFollow(t *testing.T) {
	rep := testReport()
	rep.Result.Index["ZZ"] = 55
	rows, err := rep.Rows()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, index.Entity("ZZ"), rows[3].Entity)
	assert.Equal(t, "ZZ", rows[3].Name)
}

func TestRowsZeroReference(t *testing.T) {
	rep := testReport()
	rep.Result.Index["KR"] = 0
	_, err := rep.Rows()
	assert.ErrorIs(t, err, index.ErrDivisionByZero)
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, testReport()))
	assert.Equal(t,
		"South Korea → US market: 100\nJapan → US market: 122\nChina → US market: 80\n",
		buf.String())
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, testReport()))
	out := buf.String()
	assert.Contains(t, out, "# Manufacturing cost index (general)")
	assert.Contains(t, out, "- Reference: South Korea (KR) = 100")
	assert.Contains(t, out, "- Collection date: 2025-06-30")
	assert.Contains(t, out, "| Japan | JP | 122.0 |")
	assert.Contains(t, out, "| labor | 0.50 |")
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, testReport()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"entity", "name", "labor", "land", "index"}, records[0])
	assert.Equal(t, []string{"CN", "China", "60.0000", "100.0000", "80.0000"}, records[3])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, testReport()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(indexSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"entity", "name", "labor", "land", "index"}, rows[0])
	assert.Equal(t, "KR", rows[1][0])
	assert.Equal(t, "South Korea", rows[1][1])

	weights, err := f.GetRows(weightsSheet)
	require.NoError(t, err)
	require.Len(t, weights, 3)
	assert.Equal(t, "labor", weights[1][0])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, testReport(), FormatJSON))

	var got struct {
		Name      string `json:"name"`
		Reference string `json:"reference"`
		Rows      []Row  `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "KR", got.Reference)
	require.Len(t, got.Rows, 3)
	assert.InDelta(t, 122.0, got.Rows[1].Value, 1e-9)
}

func TestWriteUnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, testReport(), Format("png"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
