package models

import (
	"time"

	"github.com/google/uuid"
)

// CaptureTask is the message published to NATS for worker processing.
// The descriptor is already extracted by the client-side model.
type CaptureTask struct {
	CaptureID  uuid.UUID `json:"capture_id"`
	Descriptor []float32 `json:"descriptor"`
	Day        string    `json:"day"`
	Timestamp  time.Time `json:"timestamp"`
	// Source labels where the capture came from (kiosk ID, "webcam", ...).
	Source string `json:"source,omitempty"`
	// SnapshotKey is the MinIO object key of the capture image, if uploaded.
	SnapshotKey string `json:"snapshot_key,omitempty"`
}

// RecognitionResult is the outcome of processing one capture, published to
// the attendance event stream for live delivery.
type RecognitionResult struct {
	CaptureID  uuid.UUID  `json:"capture_id"`
	Recognized bool       `json:"recognized"`
	IdentityID *uuid.UUID `json:"identity_id,omitempty"`
	Name       string     `json:"name,omitempty"`
	Distance   float64    `json:"distance,omitempty"`
	Day        string     `json:"day"`
	Timestamp  time.Time  `json:"timestamp"`
	// Marked is false when the identity already had a record for the day.
	Marked      bool       `json:"marked"`
	RecordID    *uuid.UUID `json:"record_id,omitempty"`
	SnapshotKey string     `json:"snapshot_key,omitempty"`
	Source      string     `json:"source,omitempty"`
}
