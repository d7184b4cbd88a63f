package logger

import (
	"bytes"
	"strings"
	"testing"
)

func newTestLogger(buf *bytes.Buffer, level LogLevel) *Logger {
	cfg := DefaultConfig()
	cfg.Output = buf
	cfg.Level = level
	cfg.Colorize = false
	cfg.ShowTime = false
	return New(cfg)
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := newTestLogger(&buf, WARN)

	log.Infof("hidden %d", 1)
	log.Warnf("shown %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("INFO message should be filtered at WARN level: %q", out)
	}
	if !strings.Contains(out, "shown 2") {
		t.Errorf("Expected WARN message in output, got %q", out)
	}

	buf.Reset()
	log.SetLevel(DEBUG)
	log.Debugf("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Errorf("Expected DEBUG message after SetLevel, got %q", buf.String())
	}
	if log.Level() != DEBUG {
		t.Errorf("Expected level DEBUG, got %s", log.Level())
	}
}

func TestWithAddsFields(t *testing.T) {
	var buf bytes.Buffer
	log := newTestLogger(&buf, INFO).With("component", "index")

	log.Infof("built")
	out := buf.String()
	if !strings.Contains(out, "component=index") {
		t.Errorf("Expected key/value field in output, got %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   DEBUG,
		"INFO":    INFO,
		"warning": WARN,
		" error ": ERROR,
		"fatal":   FATAL,
		"bogus":   INFO,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
