package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/blogbuilder/internal/builder"
	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
	"git.home.luguber.info/inful/blogbuilder/internal/metrics"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Folder      string `arg:"" optional:"" default:"." type:"existingdir" help:"Project folder containing config.yml"`
	Clean       bool   `help:"Remove the output folder before building"`
	MetricsFile string `name:"metrics-file" type:"path" help:"Write build metrics in Prometheus text format to this file"`
}

// Run builds the project once.
func (b *BuildCmd) Run(g *Global, _ *CLI) error {
	logger := g.logger()
	opts := []builder.Option{builder.WithClean(b.Clean)}
	var reg *prom.Registry
	if b.MetricsFile != "" {
		reg = prom.NewRegistry()
		opts = append(opts, builder.WithRecorder(metrics.NewPrometheusRecorder(reg)))
	}

	bld, err := builder.Load(b.Folder, opts...)
	if err != nil {
		return err
	}
	report, runErr := bld.Run(context.Background())

	if reg != nil {
		if err := metrics.WriteTextfile(reg, b.MetricsFile); err != nil {
			logger.Warn("Failed to write metrics file", logfields.Path(b.MetricsFile), logfields.Error(err))
		}
	}
	if runErr != nil {
		return runErr
	}

	counts := report.ProgramCounts()
	attrs := []any{logfields.Files(len(report.Files)), logfields.DurationMS(float64(report.Duration.Milliseconds()))}
	for _, p := range report.Programs() {
		attrs = append(attrs, slog.Int(p, counts[p]))
	}
	logger.Info("Build complete", attrs...)
	if _, err := fmt.Fprintf(os.Stdout, "Built %d files into %s\n", len(report.Files), bld.OutputFolder()); err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to write summary").Build()
	}
	return nil
}
