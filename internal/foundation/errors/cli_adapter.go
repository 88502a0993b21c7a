package errors

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// CLIErrorAdapter handles error presentation and exit code determination for CLI applications.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
	out     io.Writer
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{
		verbose: verbose,
		logger:  logger,
		out:     os.Stderr,
	}
}

// ExitCodeFor determines the appropriate exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}

	if classified, ok := AsClassified(err); ok {
		return a.exitCodeFromClassified(classified)
	}

	return 1
}

// exitCodeFromClassified maps ClassifiedError to exit codes.
func (a *CLIErrorAdapter) exitCodeFromClassified(err *ClassifiedError) int {
	switch err.Category() {
	case CategoryValidation:
		return 2 // Invalid usage
	case CategoryConfig, CategoryCommandTemplate:
		return 7 // Configuration error
	case CategoryProcess:
		return 8 // External tool error
	case CategoryBuild, CategoryTemplate, CategoryMarkup, CategoryFileSystem:
		return 11 // Build error
	case CategoryInternal:
		return 10 // Internal error
	default:
		return 1
	}
}

// FormatError formats an error for user-friendly display.
//
// The first line names the failure; the offending source file and any
// captured tool output follow on their own lines.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}

	classified, ok := AsClassified(err)
	if !ok {
		return fmt.Sprintf("Error: %v", err)
	}

	var b strings.Builder
	if a.verbose {
		fmt.Fprintf(&b, "Error: %v", err)
	} else {
		fmt.Fprintf(&b, "Error: %s", classified.Message())
		if cause := classified.Cause(); cause != nil {
			fmt.Fprintf(&b, ": %v", cause)
		}
	}
	if src := SourceOf(err); src != "" {
		fmt.Fprintf(&b, "\n  source: %s", src)
	}
	for _, key := range []string{ContextStderr, ContextStdout} {
		if stream, ok := findString(err, key); ok && strings.TrimSpace(stream) != "" {
			fmt.Fprintf(&b, "\n[%s]\n%s", key, strings.TrimRight(stream, "\n"))
		}
	}
	return b.String()
}

// HandleError processes an error and exits the program with appropriate code.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}

	exitCode := a.ExitCodeFor(err)
	a.logError(err)
	fmt.Fprintf(a.out, "%s\n", a.FormatError(err))
	os.Exit(exitCode)
}

// logError logs an error with appropriate level and context.
func (a *CLIErrorAdapter) logError(err error) {
	if classified, ok := AsClassified(err); ok {
		attrs := []slog.Attr{
			slog.String("category", string(classified.Category())),
		}
		if src := SourceOf(err); src != "" {
			attrs = append(attrs, slog.String(ContextSource, src))
		}
		a.logger.LogAttrs(context.Background(), a.slogLevelFromSeverity(classified.Severity()), classified.Message(), attrs...)
		return
	}

	a.logger.Error("Unclassified error", "error", err)
}

// slogLevelFromSeverity converts ClassifiedError severity to slog level.
func (a *CLIErrorAdapter) slogLevelFromSeverity(severity ErrorSeverity) slog.Level {
	switch severity {
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

func findString(err error, key string) (string, bool) {
	for err != nil {
		classified, ok := AsClassified(err)
		if !ok {
			return "", false
		}
		if v, ok := classified.Context().GetString(key); ok {
			return v, true
		}
		err = classified.Cause()
	}
	return "", false
}
