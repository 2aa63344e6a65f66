package domain

import "time"

// RecorderStats carries counters describing one recording window.
type RecorderStats struct {
	EventsRecorded int64             `json:"events_recorded"`
	ErrorCount     int64             `json:"error_count"`
	LastEventTime  time.Time         `json:"last_event_time"`
	Uptime         time.Duration     `json:"uptime"`
	CustomMetrics  map[string]string `json:"custom_metrics,omitempty"`
}
