package main

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/place-enrich/internal/cost"
	"github.com/sells-group/place-enrich/internal/enrich"
	"github.com/sells-group/place-enrich/internal/monitoring"
	"github.com/sells-group/place-enrich/internal/table"
)

var (
	enrichIn          string
	enrichOut         string
	enrichFormat      string
	enrichLimit       int
	enrichOffline     bool
	enrichReport      string
	enrichMetricsFile string
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Append Google place details to every record in a complaint table",
	Long: `Reads a CSV or XLSX table, resolves each distinct address to a Google place,
and writes the table back out with google_* columns appended. Addresses are
processed one at a time with a fixed delay between remote calls. Every
geocode and place-details response is cached, so re-running is free.

Examples:
  # Defaults: complaints.csv -> complaints_augmented.csv
  place-enrich enrich

  # Cache-only run, no API key needed
  place-enrich enrich --offline --in complaints.csv --out cached.csv

  # Spreadsheet output with a run report
  place-enrich enrich --out complaints.xlsx --report run.yaml`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		fsys := afero.NewOsFs()

		format := enrichFormat
		if format == "" {
			format = formatFromPath(enrichOut)
		}

		in, err := table.ReadFile(fsys, enrichIn, cfg.Enrich.InputEncoding)
		if err != nil {
			return eris.Wrap(err, "enrich: read input")
		}
		in.Limit(enrichLimit)
		zap.L().Info("read input", zap.String("path", enrichIn), zap.Int("rows", len(in.Records)))

		env, err := initEnv(ctx, enrichOffline)
		if err != nil {
			return eris.Wrap(err, "enrich: init")
		}
		defer env.Close()

		p := enrich.New(env.Geocoder, env.Places,
			enrich.Options{
				AddressColumn:   cfg.Enrich.AddressColumn,
				ContinueOnError: cfg.Enrich.ContinueOnError,
			},
			enrich.WithCacheStats(env.Cache),
			enrich.WithCost(cost.NewCalculator(cost.Rates(cfg.Pricing))),
			enrich.WithMetrics(env.Metrics),
		)

		rows, sum, runErr := p.Run(ctx, in)
		sum.Log()
		if err := writeRunArtifacts(fsys, env, sum); err != nil {
			zap.L().Error("enrich: write run artifacts", zap.Error(err))
		}
		alerter := monitoring.NewAlerter(cfg.Monitoring)
		alerts := alerter.Evaluate(sum, runErr)
		for _, a := range alerts {
			zap.L().Warn("run alert",
				zap.String("type", string(a.Type)),
				zap.String("severity", a.Severity),
				zap.String("message", a.Message),
			)
		}
		alerter.SendAlerts(context.WithoutCancel(ctx), alerts)
		if runErr != nil {
			return eris.Wrap(runErr, "enrich: run")
		}

		if err := table.WriteFile(fsys, enrichOut, format, enrich.Augment(in.Header, rows)); err != nil {
			return eris.Wrap(err, "enrich: write output")
		}
		zap.L().Info("wrote output", zap.String("path", enrichOut), zap.String("format", format))
		return nil
	},
}

func init() {
	enrichCmd.Flags().StringVar(&enrichIn, "in", "complaints.csv", "input table (.csv or .xlsx)")
	enrichCmd.Flags().StringVar(&enrichOut, "out", "complaints_augmented.csv", "output table path")
	enrichCmd.Flags().StringVar(&enrichFormat, "format", "", "output format: csv or xlsx (default: from --out extension)")
	enrichCmd.Flags().IntVar(&enrichLimit, "limit", 0, "max records to process (0 = all)")
	enrichCmd.Flags().BoolVar(&enrichOffline, "offline", false, "use cached responses only (no API key needed)")
	enrichCmd.Flags().StringVar(&enrichReport, "report", "", "write a YAML run summary to this path")
	enrichCmd.Flags().StringVar(&enrichMetricsFile, "metrics-file", "", "write Prometheus textfile metrics to this path")
	rootCmd.AddCommand(enrichCmd)
}

// writeRunArtifacts writes the optional report and metrics files. Both are
// written even when the run fails.
func writeRunArtifacts(fsys afero.Fs, env *enrichEnv, sum *enrich.Summary) error {
	if enrichReport != "" {
		if err := sum.WriteYAML(fsys, enrichReport); err != nil {
			return err
		}
	}
	if enrichMetricsFile != "" {
		if err := env.Metrics.WriteTextfile(enrichMetricsFile); err != nil {
			return err
		}
	}
	return nil
}

func formatFromPath(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return table.FormatXLSX
	}
	return table.FormatCSV
}
