package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("GET", "/health", "200", 0.01)
		m.RecordIngest("file", "completed", 1.5, 3, 1)
		m.RecordChat(true, 0.2, true)
		m.RecordCircuitBreakerState("gemini", "open")
	})
}

func TestInitMetricsWithGlobalProvider(t *testing.T) {
	m, err := InitMetrics()
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.NotPanics(t, func() {
		m.RecordRequest("POST", "/api/documents", "202", 0.05)
		m.RecordIngest("url", "failed", 0.3, 0, 0)
		m.RecordChat(false, 0.01, true)
	})
}
