package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/TariffIndex/internal/pricing"
	"github.com/MikeSquared-Agency/TariffIndex/internal/report"
	"github.com/MikeSquared-Agency/TariffIndex/internal/store"
)

var (
	computeCategory string
	computeVariant  string
	computeHSCode   string
	computeFormat   string
	computeOut      string
	computeSave     bool
)

var computeCmd = &cobra.Command{
	Use:   "compute manufacturing|export-price",
	Short: "Compute one composite and print a report",
	Long: `Compute a manufacturing cost index or an export price index from the
configured factor source and render it as a report.

Examples:
  tariffindex compute manufacturing --category eps_motor
  tariffindex compute export-price --hs-code 8501.31 --format markdown
  tariffindex compute export-price --format xlsx --save`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"manufacturing", "export-price"},
	RunE:      runCompute,
}

func init() {
	rootCmd.AddCommand(computeCmd)

	computeCmd.Flags().StringVar(&computeCategory, "category", "", "manufacturing category (default from config)")
	computeCmd.Flags().StringVar(&computeVariant, "variant", "", "export price variant (default from config)")
	computeCmd.Flags().StringVar(&computeHSCode, "hs-code", "", "HS code for export price")
	computeCmd.Flags().StringVar(&computeFormat, "format", "text", "output format (text|markdown|csv|xlsx|json)")
	computeCmd.Flags().StringVar(&computeOut, "out", "", "output file (default: stdout)")
	computeCmd.Flags().BoolVar(&computeSave, "save", false, "write the report into report.output_dir")
}

func runCompute(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(computeFormat)
	if err != nil {
		return err
	}
	ctx := context.Background()
	a, err := loadApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	rep := &report.Report{
		Market:      a.cfg.Report.MarketLabel,
		GeneratedAt: time.Now().UTC(),
		Registry:    a.calc.Registry(),
	}
	run := &store.Run{Trigger: "cli"}

	switch args[0] {
	case "manufacturing":
		category := computeCategory
		if category == "" {
			category = a.calc.DefaultCategory()
		}
		run.Kind, run.Category = pricing.KindManufacturing, category
		res, err := a.calc.Manufacturing(ctx, category)
		a.recorder.Record(ctx, run, res, err)
		if err != nil {
			return err
		}
		rep.Title = fmt.Sprintf("Manufacturing cost index (%s)", category)
		rep.Result = res
	case "export-price":
		req := pricing.ExportRequest{Category: computeCategory, Variant: computeVariant, HSCode: computeHSCode}
		run.Kind, run.Category, run.Variant, run.HSCode = pricing.KindExportPrice, req.Category, req.Variant, req.HSCode
		res, err := a.calc.ExportPrice(ctx, req)
		if err != nil {
			a.recorder.Record(ctx, run, nil, err)
			return err
		}
		run.Category, run.Variant = res.Category, res.Variant
		a.recorder.Record(ctx, run, res.Composite, nil)
		rep.Title = fmt.Sprintf("Export price index (%s, %s)", res.Variant, res.Category)
		if res.HSCode != "" {
			rep.Title = fmt.Sprintf("Export price index (HS %s, %s)", res.HSCode, res.Category)
		}
		rep.Result = res.Composite
	default:
		return fmt.Errorf("unknown composite %q: want manufacturing or export-price", args[0])
	}

	out := computeOut
	if out == "" && computeSave {
		name := strings.ReplaceAll(rep.Result.Name, "/", "_")
		out = filepath.Join(a.cfg.Report.OutputDir, name+format.Extension())
	}
	return writeReport(cmd.OutOrStdout(), out, rep, format)
}

func writeReport(stdout io.Writer, path string, rep *report.Report, format report.Format) error {
	if path == "" {
		return report.Write(stdout, rep, format)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := report.Write(f, rep, format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "report written to %s\n", path)
	return nil
}
