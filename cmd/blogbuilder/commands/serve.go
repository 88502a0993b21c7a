package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/blogbuilder/internal/builder"
	"git.home.luguber.info/inful/blogbuilder/internal/metrics"
	"git.home.luguber.info/inful/blogbuilder/internal/preview"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Folder   string        `arg:"" optional:"" default:"." type:"existingdir" help:"Project folder containing config.yml"`
	Addr     string        `default:"127.0.0.1:5000" help:"Listen address"`
	Debounce time.Duration `default:"300ms" help:"Quiet period after a change before rebuilding"`
}

// Run serves the project until interrupted.
func (s *ServeCmd) Run(g *Global, _ *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prom.NewRegistry()
	srv, err := preview.New(preview.Options{
		ProjectFolder:  s.Folder,
		Addr:           s.Addr,
		Debounce:       s.Debounce,
		Registry:       reg,
		BuilderOptions: []builder.Option{builder.WithRecorder(metrics.NewPrometheusRecorder(reg))},
		Logger:         g.logger(),
	})
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
