package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/carelink-api/internal/model"
	"github.com/jwalitptl/carelink-api/internal/repository"
)

const medicationColumns = `id, patient_id, name, dosage, instructions, last_taken`

type medicationRepository struct {
	BaseRepository
}

func NewMedicationRepository(base BaseRepository) repository.MedicationRepository {
	return &medicationRepository{base}
}

func (r *medicationRepository) Create(ctx context.Context, med *model.Medication) error {
	query := `
		INSERT INTO medications (patient_id, name, dosage, instructions)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := r.db.QueryRowxContext(ctx, query,
		med.PatientID,
		med.Name,
		med.Dosage,
		med.Instructions,
	).Scan(&med.ID)
	return mapError(err)
}

func (r *medicationRepository) Get(ctx context.Context, id int64) (*model.Medication, error) {
	var med model.Medication
	if err := r.db.GetContext(ctx, &med, `SELECT `+medicationColumns+` FROM medications WHERE id = $1`, id); err != nil {
		return nil, mapError(err)
	}
	return &med, nil
}

func (r *medicationRepository) ListByPatient(ctx context.Context, patientID int64) ([]*model.Medication, error) {
	meds := []*model.Medication{}
	query := `SELECT ` + medicationColumns + ` FROM medications WHERE patient_id = $1 ORDER BY id`
	if err := r.db.SelectContext(ctx, &meds, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list medications of patient %d: %w", patientID, err)
	}
	return meds, nil
}

func (r *medicationRepository) Update(ctx context.Context, med *model.Medication) error {
	query := `
		UPDATE medications SET
			name = $1,
			dosage = $2,
			instructions = $3
		WHERE id = $4
	`
	res, err := r.db.ExecContext(ctx, query, med.Name, med.Dosage, med.Instructions, med.ID)
	if err != nil {
		return mapError(err)
	}
	return expectRows(res)
}

func (r *medicationRepository) LogTaken(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE medications SET last_taken = $1 WHERE id = $2`, at, id)
	if err != nil {
		return err
	}
	return expectRows(res)
}

func (r *medicationRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM medications WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectRows(res)
}
