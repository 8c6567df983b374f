package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/MikeSquared-Agency/TariffIndex/internal/index"
)

func formatValue(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }

func (r *Report) title() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Result.Name
}

func (r *Report) referenceName() string {
	ref := r.Result.Reference
	if r.Registry != nil {
		return fmt.Sprintf("%s (%s)", r.Registry.Name(ref), ref)
	}
	return string(ref)
}

func WriteMarkdown(w io.Writer, rep *Report) error {
	rows, err := rep.Rows()
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", rep.title())
	fmt.Fprintf(&b, "- Reference: %s = 100\n", rep.referenceName())
	fmt.Fprintf(&b, "- Market: %s\n", rep.market())
	if rep.CollectionDate != "" {
		fmt.Fprintf(&b, "- Collection date: %s\n", rep.CollectionDate)
	}
	if !rep.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "- Generated: %s\n", rep.GeneratedAt.UTC().Format(time.RFC3339))
	}

	b.WriteString("\n| Entity | Code | Index |\n|---|---|---:|\n")
	for _, row := range rows {
		fmt.Fprintf(&b, "| %s | %s | %.1f |\n", row.Name, row.Entity, row.Value)
	}

	b.WriteString("\n## Weights\n\n| Factor | Weight |\n|---|---:|\n")
	for _, f := range rep.Result.Weights.Factors() {
		fmt.Fprintf(&b, "| %s | %.2f |\n", f, rep.Result.Weights[f])
	}

	_, err = io.WriteString(w, b.String())
	return err
}

func header(rep *Report) ([]string, []index.Factor) {
	factors := rep.Result.Weights.Factors()
	cols := []string{"entity", "name"}
	for _, f := range factors {
		cols = append(cols, string(f))
	}
	return append(cols, "index"), factors
}

// WriteCSV writes the entity code, name, each normalized factor and the
// composite value.
func WriteCSV(w io.Writer, rep *Report) error {
	rows, err := rep.Rows()
	if err != nil {
		return err
	}
	cols, factors := header(rep)

	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return err
	}
	for _, row := range rows {
		rec := []string{string(row.Entity), row.Name}
		for _, f := range factors {
			rec = append(rec, formatValue(row.Normalized[f]))
		}
		rec = append(rec, formatValue(row.Value))
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

const (
	indexSheet   = "Index"
	weightsSheet = "Weights"
)

// WriteXLSX writes a workbook with the CSV table on one sheet and the
// weights on another.
func WriteXLSX(w io.Writer, rep *Report) error {
	rows, err := rep.Rows()
	if err != nil {
		return err
	}
	cols, factors := header(rep)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", indexSheet); err != nil {
		return err
	}
	for i, c := range cols {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(indexSheet, cell, c); err != nil {
			return err
		}
	}
	for r, row := range rows {
		values := []interface{}{string(row.Entity), row.Name}
		for _, fc := range factors {
			values = append(values, row.Normalized[fc])
		}
		values = append(values, row.Value)
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(indexSheet, cell, &values); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(weightsSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(weightsSheet, "A1", &[]interface{}{"factor", "weight"}); err != nil {
		return err
	}
	for i, fc := range factors {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(weightsSheet, cell, &[]interface{}{string(fc), rep.Result.Weights[fc]}); err != nil {
			return err
		}
	}

	_, err = f.WriteTo(w)
	return err
}

type jsonReport struct {
	Name           string        `json:"name"`
	Reference      index.Entity  `json:"reference"`
	Market         string        `json:"market"`
	CollectionDate string        `json:"collection_date,omitempty"`
	GeneratedAt    time.Time     `json:"generated_at"`
	Weights        index.Weights `json:"weights"`
	Rows           []Row         `json:"rows"`
}

func WriteJSON(w io.Writer, rep *Report) error {
	rows, err := rep.Rows()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonReport{
		Name:           rep.title(),
		Reference:      rep.Result.Reference,
		Market:         rep.market(),
		CollectionDate: rep.CollectionDate,
		GeneratedAt:    rep.GeneratedAt.UTC(),
		Weights:        rep.Result.Weights,
		Rows:           rows,
	})
}
