package log

import (
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestWithReturnsChild(t *testing.T) {
	l := Discard().With("component", "scheduler")
	if l == nil {
		t.Fatal("With returned nil")
	}
	l.Info("no-op")
}

func TestConfigureSetsDefault(t *testing.T) {
	old := Default()
	defer SetDefault(old)

	Configure(Config{Level: "debug", Format: "json"})
	if Default() == old {
		t.Error("Configure did not replace the default logger")
	}
}
