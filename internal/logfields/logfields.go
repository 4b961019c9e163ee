package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyJobname    = "jobname"
	KeyTemplate   = "template"
	KeyPath       = "path"
	KeyBinary     = "binary"
	KeyPasses     = "passes"
	KeyPass       = "pass"
	KeyDurationMS = "duration_ms"
	KeyWorkers    = "workers"
	KeyAddr       = "addr"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Jobname(name string) slog.Attr   { return slog.String(KeyJobname, name) }
func Template(name string) slog.Attr  { return slog.String(KeyTemplate, name) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Binary(b string) slog.Attr       { return slog.String(KeyBinary, b) }
func Passes(n int) slog.Attr          { return slog.Int(KeyPasses, n) }
func Pass(n int) slog.Attr            { return slog.Int(KeyPass, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Workers(n int) slog.Attr         { return slog.Int(KeyWorkers, n) }
func Addr(a string) slog.Attr         { return slog.String(KeyAddr, a) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
