// Package queue defines message payloads exchanged over the message broker.
package queue

import "github.com/iliyamo/patient-records/internal/model"

// Event types published after a successful mutation.
const (
    EventPatientCreated = "patient.created"
    EventPatientUpdated = "patient.updated"
    EventPatientDeleted = "patient.deleted"
)

// PatientEvent is published whenever a patient record is created, updated
// or deleted.  It carries the stored record (nil for deletions) so consumers
// can audit or replicate without reading the store file.
type PatientEvent struct {
    Type       string        `json:"type"`
    PatientID  string        `json:"patient_id"`
    Patient    *model.Record `json:"patient,omitempty"`
    RequestID  string        `json:"request_id,omitempty"`
    OccurredAt string        `json:"occurred_at"`
}
