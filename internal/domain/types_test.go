package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseConfidence(t *testing.T) {
	tests := []struct {
		raw      string
		expected Confidence
	}{
		{raw: "High", expected: ConfidenceHigh},
		{raw: "HIGH", expected: ConfidenceHigh},
		{raw: "  high  ", expected: ConfidenceHigh},
		{raw: "medium", expected: ConfidenceMedium},
		{raw: "Low", expected: ConfidenceLow},
		{raw: "unknown", expected: ConfidenceUnknown},
		{raw: "very high", expected: ConfidenceUnknown},
		{raw: "", expected: ConfidenceUnknown},
	}

	for _, tt := range tests {
		t.Run("parse "+tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseConfidence(tt.raw))
		})
	}
}

func TestConfidenceIsValid(t *testing.T) {
	assert.True(t, ConfidenceHigh.IsValid())
	assert.True(t, ConfidenceUnknown.IsValid())
	assert.False(t, Confidence("Certain").IsValid())
}

func TestBackendHealthStatusIsValid(t *testing.T) {
	assert.True(t, StatusChecking.IsValid())
	assert.True(t, StatusConnected.IsValid())
	assert.True(t, StatusDegraded.IsValid())
	assert.True(t, StatusDisconnected.IsValid())
	assert.False(t, BackendHealthStatus("online").IsValid())
}

func TestBackendHealthStatusLogFields(t *testing.T) {
	fields := StatusConnected.LogFields()
	assert.Equal(t, "connected", fields["backend_status"])
	assert.Equal(t, true, fields["reachable"])

	fields = StatusDisconnected.LogFields()
	assert.Equal(t, false, fields["reachable"])
}

func TestGatewayError(t *testing.T) {
	err := NewGatewayError("submit_analysis", 503, nil)
	assert.Contains(t, err.Error(), "503")

	wrapped := NewGatewayError("probe_health", 0, assert.AnError)
	assert.Contains(t, wrapped.Error(), "probe_health")
	assert.ErrorIs(t, wrapped, assert.AnError)
}
