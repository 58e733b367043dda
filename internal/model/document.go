package model

import (
	"strings"
	"time"
)

type DocumentType string

const (
	DocumentMedicalHistory DocumentType = "medical_history"
	DocumentExerciseRecord DocumentType = "exercise_record"
	DocumentLabResult      DocumentType = "lab_result"
)

var DocumentTypes = []DocumentType{DocumentMedicalHistory, DocumentExerciseRecord, DocumentLabResult}

func (t DocumentType) Valid() bool {
	for _, dt := range DocumentTypes {
		if t == dt {
			return true
		}
	}
	return false
}

// DocumentTypeNames is the comma separated vocabulary used in error messages.
func DocumentTypeNames() string {
	names := make([]string, len(DocumentTypes))
	for i, dt := range DocumentTypes {
		names[i] = string(dt)
	}
	return strings.Join(names, ", ")
}

type PatientDocument struct {
	ID        int64        `json:"id" db:"id"`
	Name      string       `json:"name" db:"name"`
	URL       string       `json:"url" db:"url"`
	Type      DocumentType `json:"type" db:"type"`
	CreatedAt time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time    `json:"updatedAt" db:"updated_at"`
	PatientID int64        `json:"patient_id" db:"patient_id"`
}

// DocumentPatch lists the document columns an update may touch.
type DocumentPatch struct {
	Name *string       `json:"name" binding:"omitempty,min=1"`
	URL  *string       `json:"url" binding:"omitempty,min=1"`
	Type *DocumentType `json:"type" binding:"omitempty,doctype"`
}

func (p DocumentPatch) Empty() bool {
	return p.Name == nil && p.URL == nil && p.Type == nil
}

func (p DocumentPatch) Apply(d *PatientDocument) {
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.URL != nil {
		d.URL = *p.URL
	}
	if p.Type != nil {
		d.Type = *p.Type
	}
}
