package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID     = "build_id"
	KeySource      = "source"
	KeyDestination = "destination"
	KeyProgram     = "program"
	KeyTemplate    = "template"
	KeyFingerprint = "fingerprint"
	KeyModule      = "module"
	KeyPath        = "path"
	KeyFiles       = "files"
	KeyDurationMS  = "duration_ms"
	KeyAddr        = "addr"
	KeyError       = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr        { return slog.String(KeyBuildID, id) }
func Source(p string) slog.Attr          { return slog.String(KeySource, p) }
func Destination(p string) slog.Attr     { return slog.String(KeyDestination, p) }
func Program(name string) slog.Attr      { return slog.String(KeyProgram, name) }
func Template(name string) slog.Attr     { return slog.String(KeyTemplate, name) }
func Fingerprint(fp string) slog.Attr    { return slog.String(KeyFingerprint, fp) }
func Module(name string) slog.Attr       { return slog.String(KeyModule, name) }
func Path(p string) slog.Attr            { return slog.String(KeyPath, p) }
func Files(n int) slog.Attr              { return slog.Int(KeyFiles, n) }
func DurationMS(ms float64) slog.Attr    { return slog.Float64(KeyDurationMS, ms) }
func Addr(a string) slog.Attr            { return slog.String(KeyAddr, a) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
