package normalization

import "log/slog"

// LogFormat selects the slog handler.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

var logFormats = NewNormalizer("log format", map[string]LogFormat{
	"text":    LogFormatText,
	"logfmt":  LogFormatText,
	"json":    LogFormatJSON,
	"ndjson":  LogFormatJSON,
	"console": LogFormatText,
}, LogFormatText)

var logLevels = NewNormalizer("log level", map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}, slog.LevelInfo)

// ParseLogFormat normalizes a --log-format value.
func ParseLogFormat(raw string) (LogFormat, error) {
	return logFormats.NormalizeWithError(raw)
}

// ParseLogLevel normalizes a --log-level value.
func ParseLogLevel(raw string) (slog.Level, error) {
	return logLevels.NormalizeWithError(raw)
}

// LogFormats lists the accepted --log-format values.
func LogFormats() []string {
	return logFormats.ValidKeys()
}
