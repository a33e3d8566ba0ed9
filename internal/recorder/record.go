package recorder

import (
	"time"
)

// TrafficRecord is one request as seen by admission control.
type TrafficRecord struct {
	Timestamp time.Time         `json:"timestamp"`
	Key       string            `json:"key"`   // admission identifier, e.g. "quote:203.0.113.7"
	Route     string            `json:"route"` // route name used to pick the limit
	Method    string            `json:"method,omitempty"`
	Path      string            `json:"path,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}
