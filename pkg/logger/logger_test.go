package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewHonorsLevel(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		logFunc  func(string, ...any)
		logMsg   string
		expected bool
	}{
		{"debug visible at debug level", "debug", Debug, "debug message", true},
		{"debug hidden at info level", "info", Debug, "debug message", false},
		{"info visible at info level", "info", Info, "info message", true},
		{"info hidden at warn level", "warn", Info, "info message", false},
		{"warn visible at info level", "info", Warn, "warn message", true},
		{"error always visible", "error", Error, "error message", true},
		{"unknown level falls back to info", "loud", Debug, "debug message", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			SetDefault(New(tt.level, &buf))

			tt.logFunc(tt.logMsg)
			output := buf.String()

			if tt.expected && !strings.Contains(output, tt.logMsg) {
				t.Errorf("expected output to contain %q, got: %s", tt.logMsg, output)
			}
			if !tt.expected && strings.Contains(output, tt.logMsg) {
				t.Errorf("expected output NOT to contain %q, but it did: %s", tt.logMsg, output)
			}
		})
	}
}

func TestNewEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(New("info", &buf))

	Info("solve finished", "penalty", 420.5, "towers", 12)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log output: %v", err)
	}
	if entry["msg"] != "solve finished" {
		t.Errorf("expected msg 'solve finished', got %v", entry["msg"])
	}
	if entry["penalty"] != 420.5 {
		t.Errorf("expected penalty 420.5, got %v", entry["penalty"])
	}
	if entry["towers"] != float64(12) {
		t.Errorf("expected towers 12, got %v", entry["towers"])
	}
}

func TestNewTextIsHumanReadable(t *testing.T) {
	var buf bytes.Buffer
	logger := NewText("info", &buf)

	logger.Info("solving instance", "instance", "small/007")
	output := buf.String()

	if !strings.Contains(output, "solving instance") {
		t.Errorf("expected output to contain the message, got: %s", output)
	}
	if strings.HasPrefix(strings.TrimSpace(output), "{") {
		t.Errorf("text handler should not emit JSON: %s", output)
	}
}

func TestWithCarriesAttributes(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(New("info", &buf))

	With("worker_id", "worker-3-ab12cd34").Info("new best placement")

	output := buf.String()
	for _, want := range []string{"worker_id", "worker-3-ab12cd34", "new best placement"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q, got: %s", want, output)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"debug", "DEBUG"},
		{"INFO", "INFO"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"", "INFO"},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in).String(); got != tt.want {
			t.Errorf("parseLevel(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
