package dto

// TelemetryResult is the envelope returned by the telemetry endpoints.
// Success false is a per-widget failure, not a transport error.
type TelemetryResult struct {
	Success bool               `json:"success"`
	Data    []map[string]any   `json:"data"`
	Summary map[string]float64 `json:"summary,omitempty"`
	Error   string             `json:"error,omitempty"`
}
