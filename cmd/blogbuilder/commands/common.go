// Package commands holds the blogbuilder command line.
package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/blogbuilder/internal/foundation/normalization"
)

// Global carries state shared by every command.
type Global struct {
	Logger *slog.Logger
}

func (g *Global) logger() *slog.Logger {
	if g == nil || g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}

// CLI is the root command.
type CLI struct {
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	LogFormat string           `name:"log-format" default:"text" help:"Log format (text or json)"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build BuildCmd `cmd:"" help:"Build a project into its output folder"`
	Serve ServeCmd `cmd:"" help:"Build, serve and rebuild a project on change"`

	// logOutput is where AfterApply sends logs. Nil means stderr.
	logOutput io.Writer
}

// AfterApply runs after flag parsing and installs the default logger.
func (c *CLI) AfterApply() error {
	format, err := normalization.ParseLogFormat(c.LogFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(NewLogger(c.logWriter(), format, c.Verbose))
	return nil
}

func (c *CLI) logWriter() io.Writer {
	if c.logOutput != nil {
		return c.logOutput
	}
	return os.Stderr
}

// NewLogger creates the process logger.
func NewLogger(w io.Writer, format normalization.LogFormat, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if format == normalization.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
