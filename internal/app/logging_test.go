package app

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func fixedLogger(buf *bytes.Buffer, level LogLevel) *Logger {
	l := NewLogger(LoggerConfig{Level: level, Output: buf, Prefix: "test"})
	l.now = func() time.Time { return time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC) }
	return l
}

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LogLevelDebug, "DEBUG"},
		{LogLevelInfo, "INFO"},
		{LogLevelWarn, "WARN"},
		{LogLevelError, "ERROR"},
		{LogLevel(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.expected {
			t.Errorf("LogLevel(%d).String() = %q, want %q", tt.level, got, tt.expected)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    LogLevel
		wantErr bool
	}{
		{"debug", LogLevelDebug, false},
		{"DEBUG", LogLevelDebug, false},
		{"Info", LogLevelInfo, false},
		{"", LogLevelInfo, false},
		{"warn", LogLevelWarn, false},
		{"WARNING", LogLevelWarn, false},
		{" error ", LogLevelError, false},
		{"verbose", LogLevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLogLevel(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, ErrInvalidLogLevel) {
			t.Errorf("ParseLogLevel(%q) error = %v, want ErrInvalidLogLevel", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	l := fixedLogger(&buf, LogLevelDebug)

	l.Info("resolved %s", "/srv/app.js")

	want := "2024-03-01T12:30:00.000 [INFO] test: resolved /srv/app.js\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	l := fixedLogger(&buf, LogLevelWarn)

	l.Debug("debug")
	l.Info("info")
	if buf.Len() != 0 {
		t.Fatalf("messages below level written: %q", buf.String())
	}

	l.Warn("warn")
	l.Error("error")
	if got := strings.Count(buf.String(), "\n"); got != 2 {
		t.Errorf("expected 2 lines, got %d: %q", got, buf.String())
	}

	if l.Enabled(LogLevelInfo) {
		t.Error("Enabled(Info) should be false at warn level")
	}
	l.SetLevel(LogLevelDebug)
	if !l.Enabled(LogLevelDebug) {
		t.Error("Enabled(Debug) should be true after SetLevel")
	}
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	base := fixedLogger(&buf, LogLevelDebug)
	l := base.WithComponent("endpoint").WithFields(map[string]any{"port": 9229, "attempt": 1})

	l.Debug("allocated")

	if !strings.HasSuffix(buf.String(), "allocated {attempt=1, component=endpoint, port=9229}\n") {
		t.Errorf("fields not sorted or missing: %q", buf.String())
	}

	buf.Reset()
	base.Debug("plain")
	if strings.Contains(buf.String(), "{") {
		t.Errorf("parent logger gained fields: %q", buf.String())
	}
}

func TestLogger_Disable(t *testing.T) {
	var buf bytes.Buffer
	l := fixedLogger(&buf, LogLevelDebug)
	l.Disable()
	l.Error("dropped")
	if buf.Len() != 0 {
		t.Errorf("disabled logger wrote %q", buf.String())
	}

	NullLogger.Error("dropped")
	NullLogger.WithComponent("x").Info("dropped")
}
