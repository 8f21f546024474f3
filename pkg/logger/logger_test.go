package logger

import (
	"bytes"
	"strings"
	"testing"
)

func newTestLogger(buf *bytes.Buffer, level LogLevel) *Logger {
	cfg := DefaultConfig()
	cfg.Output = buf
	cfg.Colorize = false
	cfg.ShowTime = false
	cfg.Level = level
	return New(cfg)
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := newTestLogger(&buf, WARN)

	log.Infof("hidden %d", 1)
	log.Warnf("shown %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("INFO message leaked through WARN level: %q", out)
	}
	if !strings.Contains(out, "shown 2") {
		t.Errorf("expected WARN message in output, got %q", out)
	}
	if !strings.Contains(out, "WARN") {
		t.Errorf("expected level tag in output, got %q", out)
	}
}

func TestSetLevelAtRuntime(t *testing.T) {
	var buf bytes.Buffer
	log := newTestLogger(&buf, INFO)

	log.Debugf("before")
	log.SetLevel(DEBUG)
	log.Debugf("after")

	out := buf.String()
	if strings.Contains(out, "before") {
		t.Errorf("debug message logged before level change: %q", out)
	}
	if !strings.Contains(out, "after") {
		t.Errorf("debug message missing after level change: %q", out)
	}
}

func TestSetOutput(t *testing.T) {
	var first, second bytes.Buffer
	log := newTestLogger(&first, INFO)

	log.Infof("one")
	log.SetOutput(&second)
	log.Infof("two")

	if !strings.Contains(first.String(), "one") || strings.Contains(first.String(), "two") {
		t.Errorf("unexpected first output: %q", first.String())
	}
	if !strings.Contains(second.String(), "two") {
		t.Errorf("unexpected second output: %q", second.String())
	}
}

func TestPrefix(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Output = &buf
	cfg.Colorize = false
	cfg.Prefix = "server"
	New(cfg).Infof("listening")

	if !strings.Contains(buf.String(), "server") {
		t.Errorf("expected prefix in output, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"warning", WARN},
		{"Error", ERROR},
		{"fatal", FATAL},
		{"nonsense", INFO},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
