// Package domain contains the core entities of the symptom triage console:
// the canonical analysis result produced by the inference backend, the
// backend health indicator, and the single-session state snapshot.
package domain

import "strings"

// Confidence represents the confidence level attached to a differential
// diagnosis by the inference backend.
type Confidence string

const (
	ConfidenceHigh    Confidence = "High"
	ConfidenceMedium  Confidence = "Medium"
	ConfidenceLow     Confidence = "Low"
	ConfidenceUnknown Confidence = "Unknown"
)

// ParseConfidence maps a backend-supplied confidence string to one of the
// known levels. Matching is case-insensitive; anything unrecognized (including
// an empty string) collapses to ConfidenceUnknown.
func ParseConfidence(raw string) Confidence {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high":
		return ConfidenceHigh
	case "medium":
		return ConfidenceMedium
	case "low":
		return ConfidenceLow
	default:
		return ConfidenceUnknown
	}
}

// IsValid reports whether the confidence is one of the known levels.
func (c Confidence) IsValid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow, ConfidenceUnknown:
		return true
	default:
		return false
	}
}

// String returns the string representation of the confidence level.
func (c Confidence) String() string {
	return string(c)
}

// BackendHealthStatus classifies the reachability of the inference backend
// as observed by the most recent completed health probe. It never changes as
// a side effect of an analyze call.
type BackendHealthStatus string

const (
	// StatusChecking is the initial value before the first probe resolves.
	StatusChecking     BackendHealthStatus = "checking"
	StatusConnected    BackendHealthStatus = "connected"
	StatusDegraded     BackendHealthStatus = "degraded"
	StatusDisconnected BackendHealthStatus = "disconnected"
)

// IsValid reports whether the status is one of the known values.
func (s BackendHealthStatus) IsValid() bool {
	switch s {
	case StatusChecking, StatusConnected, StatusDegraded, StatusDisconnected:
		return true
	default:
		return false
	}
}

// String returns the string representation of the health status.
func (s BackendHealthStatus) String() string {
	return string(s)
}

// LogFields returns structured logging fields for the health indicator.
func (s BackendHealthStatus) LogFields() map[string]any {
	return map[string]any{
		"backend_status": string(s),
		"reachable":      s == StatusConnected || s == StatusDegraded,
	}
}
