package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cyber-shield/internal/threat/types"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("WARN"))
	assert.Equal(t, ERROR, ParseLevel("error"))
	assert.Equal(t, INFO, ParseLevel("verbose"))
}

func TestLogger_Levels(t *testing.T) {
	var out bytes.Buffer
	logger := NewWriterLogger(WARN, &out, nil)

	logger.Debug("debug %d", 1)
	logger.Info("info %d", 2)
	logger.Warn("warn %d", 3)
	logger.Error("error %d", 4)

	lines := out.String()
	assert.NotContains(t, lines, "debug 1")
	assert.NotContains(t, lines, "info 2")
	assert.Contains(t, lines, "[WARN]  ")
	assert.Contains(t, lines, "warn 3")
	assert.Contains(t, lines, "[ERROR] ")

	out.Reset()
	logger.SetLevel(DEBUG)
	logger.Debug("now visible")
	assert.Contains(t, out.String(), "now visible")
}

func TestLogger_AuditDisabled(t *testing.T) {
	var out bytes.Buffer
	logger := NewWriterLogger(INFO, &out, nil)
	logger.LogSecurityEvent("login_failed", "10.0.0.1", nil, "blocked", "bad password")
	assert.Empty(t, out.String())
}

func TestLogger_LogThreatDetection(t *testing.T) {
	var out, audit bytes.Buffer
	logger := NewWriterLogger(INFO, &out, &audit)

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	logger.LogThreatDetection(&types.Threat{
		ID:          "threat_1",
		Type:        types.ThreatPhishing,
		Source:      "email_gateway",
		Severity:    types.SeverityHigh,
		Confidence:  65,
		Timestamp:   ts,
		Description: "Phishing attempt detected via email_gateway",
		Indicators:  []string{types.IndicatorSuspiciousSender},
		RiskScore:   70,
	}, "stored")

	var entry AuditLogEntry
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(audit.String())), &entry))
	assert.Equal(t, "THREAT", entry.Level)
	assert.Equal(t, "threat_detection", entry.EventType)
	assert.Equal(t, "threat_1", entry.Resource)
	assert.Equal(t, "stored", entry.Result)
	assert.True(t, ts.Equal(entry.Timestamp))
	assert.Equal(t, "phishing", entry.Details["type"])
	assert.EqualValues(t, 65, entry.Details["confidence"])

	assert.Contains(t, out.String(), "Threat detected: phishing (high) from email_gateway")

	audit.Reset()
	logger.LogThreatDetection(nil, "ignored")
	assert.Empty(t, audit.String())
}

func TestLogger_LogAdminAction(t *testing.T) {
	var out, audit bytes.Buffer
	logger := NewWriterLogger(INFO, &out, &audit)

	logger.LogAdminAction("admin", "127.0.0.1", "login", "auth", map[string]interface{}{"ok": true}, "success", "user logged in")

	var entry AuditLogEntry
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(audit.String())), &entry))
	assert.Equal(t, "admin", entry.User)
	assert.Equal(t, "login", entry.Action)
	assert.False(t, entry.Timestamp.IsZero())
}
