package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyModule     = "module"
	KeyPage       = "page"
	KeyRevision   = "revision"
	KeyStage      = "stage"
	KeyCommand    = "command"
	KeyDurationMS = "duration_ms"
	KeyOutput     = "output"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr      { return slog.String(KeyBuildID, id) }
func Module(name string) slog.Attr     { return slog.String(KeyModule, name) }
func Page(path string) slog.Attr       { return slog.String(KeyPage, path) }
func Revision(rev string) slog.Attr    { return slog.String(KeyRevision, rev) }
func Stage(name string) slog.Attr      { return slog.String(KeyStage, name) }
func Command(cmd string) slog.Attr     { return slog.String(KeyCommand, cmd) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Output(out []byte) slog.Attr      { return slog.String(KeyOutput, string(out)) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
