// Package report renders composite results for people and spreadsheets:
// plain text lines, markdown, CSV, XLSX and JSON.
package report

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/TariffIndex/internal/entity"
	"github.com/MikeSquared-Agency/TariffIndex/internal/index"
)

type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatXLSX     Format = "xlsx"
	FormatJSON     Format = "json"
)

var ErrUnknownFormat = errors.New("unknown report format")

// ParseFormat accepts a format name; the empty string means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case "md":
		return FormatMarkdown, nil
	case FormatText, FormatMarkdown, FormatCSV, FormatXLSX, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatJSON:
		return "application/json"
	default:
		return "text/plain; charset=utf-8"
	}
}

func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatText:
		return ".txt"
	default:
		return "." + string(f)
	}
}

// Report is one composite result plus the context needed to present it.
type Report struct {
	Title          string
	Market         string
	CollectionDate string
	GeneratedAt    time.Time
	Result         *index.Result
	Registry       *entity.Registry
}

// Row is one entity's line in a report.
type Row struct {
	Entity     index.Entity             `json:"entity"`
	Name       string                   `json:"name"`
	Value      float64                  `json:"value"`
	Normalized map[index.Factor]float64 `json:"normalized,omitempty"`
}

// Rows returns the index rebased to the reference, one row per entity in
// registry order. Entities unknown to the registry follow in code order.
func (r *Report) Rows() ([]Row, error) {
	if r.Result == nil {
		return nil, errors.New("report has no result")
	}
	values, err := index.Rebase(r.Result.Index, r.Result.Reference)
	if err != nil {
		return nil, fmt.Errorf("rebase %s: %w", r.Result.Name, err)
	}

	factors := r.Result.Weights.Factors()
	rows := make([]Row, 0, len(values))
	for _, e := range r.order(values) {
		row := Row{Entity: e, Name: string(e), Value: values[e]}
		if r.Registry != nil {
			row.Name = r.Registry.Name(e)
		}
		if len(factors) > 0 {
			row.Normalized = make(map[index.Factor]float64, len(factors))
			for _, f := range factors {
				row.Normalized[f] = r.Result.Normalized[f][e]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (r *Report) order(values index.Table) []index.Entity {
	out := make([]index.Entity, 0, len(values))
	seen := make(map[index.Entity]bool, len(values))
	if r.Registry != nil {
		for _, e := range r.Registry.Codes() {
			if _, ok := values[e]; ok {
				out = append(out, e)
				seen[e] = true
			}
		}
	}
	var rest []index.Entity
	for e := range values {
		if !seen[e] {
			rest = append(rest, e)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	return append(out, rest...)
}

func (r *Report) market() string {
	if r.Market == "" {
		return "US market"
	}
	return r.Market
}

// Write renders rep in format f.
func Write(w io.Writer, rep *Report, f Format) error {
	switch f {
	case FormatText, "":
		return WriteText(w, rep)
	case FormatMarkdown:
		return WriteMarkdown(w, rep)
	case FormatCSV:
		return WriteCSV(w, rep)
	case FormatXLSX:
		return WriteXLSX(w, rep)
	case FormatJSON:
		return WriteJSON(w, rep)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

// WriteText writes one "{name} → {market}: {value}" line per entity, with
// values rounded to whole points.
func WriteText(w io.Writer, rep *Report) error {
	rows, err := rep.Rows()
	if err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(w, "%s → %s: %.0f\n", row.Name, rep.market(), row.Value); err != nil {
			return err
		}
	}
	return nil
}
