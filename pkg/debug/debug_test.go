package debug

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"slices"
	"strings"
	"testing"
)

// setCategories replaces the enabled set and returns a restore func.
func setCategories(s string) func() {
	prev := enabled.Load()
	set := parseCategories(s)
	enabled.Store(&set)
	return func() { enabled.Store(prev) }
}

// keepLogger restores the default logger and category set after the test.
func keepLogger(t *testing.T) {
	t.Helper()
	prevLogger, prevSet := slog.Default(), enabled.Load()
	t.Cleanup(func() {
		slog.SetDefault(prevLogger)
		enabled.Store(prevSet)
	})
}

func TestParseCategories(t *testing.T) {
	tests := []struct {
		input string
		want  []Category
	}{
		{"", nil},
		{"agents", []Category{Agents}},
		{" Agents , STREAMING ", []Category{Agents, Streaming}},
		{"engine,,config,", []Category{Engine, Config}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseCategories(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("parseCategories(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for _, c := range tt.want {
				if !got[c] {
					t.Errorf("%q missing from %v", c, got)
				}
			}
		})
	}
}

func TestEnabled(t *testing.T) {
	tests := []struct {
		set  string
		cat  Category
		want bool
	}{
		{"agents,engine", Agents, true},
		{"agents,engine", Transport, false},
		{"agents,engine", All, false},
		{"all", Streaming, true},
		{"all", Category("custom"), true},
		{"", Agents, false},
	}

	for _, tt := range tests {
		t.Run(tt.set+"/"+string(tt.cat), func(t *testing.T) {
			defer setCategories(tt.set)()
			if got := Enabled(tt.cat); got != tt.want {
				t.Errorf("Enabled(%q) = %v, want %v", tt.cat, got, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"trace":   LevelTrace,
		"DEBUG":   slog.LevelDebug,
		"":        slog.LevelInfo,
		" info ":  slog.LevelInfo,
		"Warning": slog.LevelWarn,
		"ERROR":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("lorem", 10); got != "lorem" {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("lorem ipsum dolor", 5); got != "lorem..." {
		t.Errorf("Truncate = %q, want lorem...", got)
	}
}

func TestCategoriesSorted(t *testing.T) {
	defer setCategories("streaming,agents,engine")()

	want := []string{"agents", "engine", "streaming"}
	if got := Categories(); !slices.Equal(got, want) {
		t.Errorf("Categories() = %v, want %v", got, want)
	}
}

func TestInit_EnvOverridesConfig(t *testing.T) {
	keepLogger(t)
	t.Setenv("ANTWORT_DEBUG", "streaming")
	t.Setenv("ANTWORT_LOG_LEVEL", "")

	var buf bytes.Buffer
	Init(Options{Categories: "engine", Level: "TRACE", Output: &buf})

	if !Enabled(Streaming) || Enabled(Engine) {
		t.Errorf("categories = %v, want env value to win", Categories())
	}
	if !TraceEnabled(Streaming) {
		t.Error("TRACE level from config should be active")
	}
}

func TestLogAndTrace(t *testing.T) {
	keepLogger(t)
	t.Setenv("ANTWORT_DEBUG", "")
	t.Setenv("ANTWORT_LOG_LEVEL", "")

	var buf bytes.Buffer
	Init(Options{Categories: "agents", Level: "TRACE", Format: "json", Output: &buf})

	Log(Agents, "chat completion request", "agent", "lorem")
	Trace(Agents, "chunk", "n", 1)
	Log(Engine, "dropped")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d records, want 2:\n%s", len(lines), buf.String())
	}

	var first, second map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatal(err)
	}
	if first["debug"] != "agents" || first["agent"] != "lorem" || first["level"] != "DEBUG" {
		t.Errorf("first record = %v", first)
	}
	if second["level"] != "TRACE" {
		t.Errorf("trace level = %v, want TRACE", second["level"])
	}
}

func TestTraceSuppressedAboveTraceLevel(t *testing.T) {
	keepLogger(t)
	t.Setenv("ANTWORT_DEBUG", "")
	t.Setenv("ANTWORT_LOG_LEVEL", "")

	var buf bytes.Buffer
	Init(Options{Categories: "all", Level: "DEBUG", Output: &buf})

	Trace(Streaming, "event")
	if buf.Len() != 0 {
		t.Errorf("unexpected output %q", buf.String())
	}
	if TraceEnabled(Streaming) {
		t.Error("TraceEnabled should be false at DEBUG")
	}
}
