package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/user/rewind/pkg/ports"
)

func TestConsoleLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level      ports.LogLevel
		wantStdout int
		wantStderr int
	}{
		{ports.LevelDebug, 2, 2},
		{ports.LevelInfo, 1, 2},
		{ports.LevelWarn, 0, 2},
		{ports.LevelError, 0, 1},
		{ports.LevelQuiet, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			l := NewConsoleTo(tt.level, &stdout, &stderr)

			l.Debug("debug %d", 1)
			l.Info("info %d", 2)
			l.Warn("warn %d", 3)
			l.Error("error %d", 4)

			if got := lines(stdout.String()); got != tt.wantStdout {
				t.Errorf("stdout lines = %d, want %d (%q)", got, tt.wantStdout, stdout.String())
			}
			if got := lines(stderr.String()); got != tt.wantStderr {
				t.Errorf("stderr lines = %d, want %d (%q)", got, tt.wantStderr, stderr.String())
			}
		})
	}
}

func TestConsoleLogger_WithComponent(t *testing.T) {
	var stdout, stderr bytes.Buffer
	l := NewConsoleTo(ports.LevelInfo, &stdout, &stderr)

	l.WithComponent("engine").Info("Seeked to %.3f", 4.5)

	if got := stdout.String(); got != "[engine] Seeked to 4.500\n" {
		t.Errorf("output = %q", got)
	}
}

func TestNoopLogger(t *testing.T) {
	l := NewNoop()
	l.Error("ignored %s", "x")

	if l.WithComponent("engine") != ports.Logger(l) {
		t.Error("WithComponent should return the same logger")
	}
}

func lines(s string) int {
	return strings.Count(s, "\n")
}
