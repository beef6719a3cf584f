package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{" warn ", WARN},
		{"warning", WARN},
		{"error", ERROR},
		{"fatal", FATAL},
		{"", INFO},
		{"verbose", INFO},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "ParseLevel(%q)", tt.in)
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: WARN, Output: &buf})

	log.Infof("hidden %d", 1)
	assert.Empty(t, buf.String())

	log.Warnf("visible %d", 2)
	assert.Contains(t, buf.String(), "visible 2")
	assert.Contains(t, buf.String(), "level=warning")
}

func TestLoggerWithComponent(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: DEBUG, Component: "server", Output: &buf})

	log.With("request_id", "abc").Debugf("handled")

	out := buf.String()
	assert.Contains(t, out, "component=server")
	assert.Contains(t, out, "request_id=abc")
	assert.Contains(t, out, "handled")
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: INFO, JSON: true, Output: &buf})

	log.Infof("model loaded")
	assert.Contains(t, buf.String(), `"msg":"model loaded"`)
}

func TestShowCaller(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: INFO, Output: &buf})

	log.Infof("without caller")
	assert.NotContains(t, buf.String(), "func=")

	buf.Reset()
	log.SetShowCaller(true)
	log.Infof("with caller")
	assert.Contains(t, buf.String(), "func=")
	assert.Contains(t, buf.String(), "file=")
}
