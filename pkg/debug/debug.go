// Package debug gates verbose logging by category and configures the
// process-wide slog handler.
//
// Categories select which subsystems emit debug output (ANTWORT_DEBUG or
// logging.debug). The level selects how much detail reaches the handler
// (ANTWORT_LOG_LEVEL or logging.level). Environment values win over config.
//
//	debug.Log(debug.Agents, "chat completion request", "agent", name)
//	if debug.Enabled(debug.Streaming) { ... }
package debug

import (
	"context"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync/atomic"
)

// Category names a subsystem whose debug output can be switched on.
type Category string

const (
	Agents    Category = "agents"
	Engine    Category = "engine"
	Streaming Category = "streaming"
	Transport Category = "transport"
	Config    Category = "config"
	All       Category = "all"
)

// LevelTrace sits below slog.LevelDebug. At this level every stream
// event written to a client is logged.
const LevelTrace = slog.LevelDebug - 4

// Options configures Init.
type Options struct {
	Categories string    // comma-separated, e.g. "agents,streaming"
	Level      string    // TRACE, DEBUG, INFO, WARN, ERROR
	Format     string    // "text" (default) or "json"
	Output     io.Writer // defaults to os.Stderr
}

var enabled atomic.Pointer[map[Category]bool]

func init() {
	set := parseCategories(os.Getenv("ANTWORT_DEBUG"))
	enabled.Store(&set)
}

// Init installs the default slog logger and the enabled category set.
func Init(opts Options) {
	cats := os.Getenv("ANTWORT_DEBUG")
	if cats == "" {
		cats = opts.Categories
	}
	set := parseCategories(cats)
	enabled.Store(&set)

	level := os.Getenv("ANTWORT_LOG_LEVEL")
	if level == "" {
		level = opts.Level
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	hopts := &slog.HandlerOptions{Level: ParseLevel(level), ReplaceAttr: levelNames}

	var h slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		h = slog.NewJSONHandler(out, hopts)
	} else {
		h = slog.NewTextHandler(out, hopts)
	}
	slog.SetDefault(slog.New(h))
}

// levelNames prints LevelTrace as TRACE instead of DEBUG-4.
func levelNames(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if l, ok := a.Value.Any().(slog.Level); ok && l == LevelTrace {
			a.Value = slog.StringValue("TRACE")
		}
	}
	return a
}

// Enabled reports whether debug output is on for c.
func Enabled(c Category) bool {
	set := *enabled.Load()
	return set[All] || set[c]
}

// Log emits a debug record tagged with c. No-op when c is disabled.
func Log(c Category, msg string, args ...any) {
	if !Enabled(c) {
		return
	}
	slog.Debug(msg, append([]any{"debug", string(c)}, args...)...)
}

// Trace emits a trace-level record tagged with c.
func Trace(c Category, msg string, args ...any) {
	if !TraceEnabled(c) {
		return
	}
	slog.Log(context.Background(), LevelTrace, msg, append([]any{"debug", string(c)}, args...)...)
}

// TraceEnabled reports whether c is enabled and the logger accepts TRACE.
func TraceEnabled(c Category) bool {
	return Enabled(c) && slog.Default().Enabled(context.Background(), LevelTrace)
}

// ParseLevel maps a level name to a slog.Level. Unknown names mean INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Categories returns the enabled category names, sorted.
func Categories() []string {
	set := *enabled.Load()
	names := make([]string, 0, len(set))
	for c := range set {
		names = append(names, string(c))
	}
	slices.Sort(names)
	return names
}

// Truncate shortens s to at most n bytes followed by "...".
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func parseCategories(s string) map[Category]bool {
	set := make(map[Category]bool)
	for _, part := range strings.Split(s, ",") {
		if name := strings.ToLower(strings.TrimSpace(part)); name != "" {
			set[Category(name)] = true
		}
	}
	return set
}
