package model

import "time"

type Medication struct {
	ID           int64      `json:"id" db:"id"`
	PatientID    int64      `json:"patient_id" db:"patient_id"`
	Name         string     `json:"name" db:"name"`
	Dosage       string     `json:"dosage" db:"dosage"`
	Instructions string     `json:"instructions" db:"instructions"`
	LastTaken    *time.Time `json:"last_taken" db:"last_taken"`
}

// MedicationPatch lists the medication columns an update may touch.
// LastTaken is only changed through the log action.
type MedicationPatch struct {
	Name         *string `json:"name" binding:"omitempty,min=1,max=100"`
	Dosage       *string `json:"dosage" binding:"omitempty,min=1,max=50"`
	Instructions *string `json:"instructions" binding:"omitempty,max=200"`
}

func (p MedicationPatch) Empty() bool {
	return p.Name == nil && p.Dosage == nil && p.Instructions == nil
}

func (p MedicationPatch) Apply(m *Medication) {
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.Dosage != nil {
		m.Dosage = *p.Dosage
	}
	if p.Instructions != nil {
		m.Instructions = *p.Instructions
	}
}
