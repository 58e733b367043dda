package model

import "time"

// Device is a physical sensor unit, optionally assigned to one patient.
type Device struct {
	ID        int64     `json:"id" db:"id"`
	PatientID *int64    `json:"patient_id" db:"patient_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func (d Device) Assigned() bool {
	return d.PatientID != nil
}
