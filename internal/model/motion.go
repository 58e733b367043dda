package model

import "time"

// MotionFile is a converted, viewable artifact derived from a raw recording.
type MotionFile struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	URL       string    `json:"url" db:"url"`
	Type      string    `json:"type" db:"type"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	PatientID int64     `json:"patient_id" db:"patient_id"`
}

// MotionReading is the min/max range in degrees of one channel of a file.
type MotionReading struct {
	ID           int64   `json:"id" db:"id"`
	Name         string  `json:"name" db:"name"`
	MotionFileID int64   `json:"motion_file_id" db:"motion_file_id"`
	Min          float64 `json:"min" db:"min"`
	Max          float64 `json:"max" db:"max"`
}
