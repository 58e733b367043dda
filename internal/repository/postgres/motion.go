package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/carelink-api/internal/model"
	"github.com/jwalitptl/carelink-api/internal/repository"
)

const motionFileColumns = `id, name, url, type, created_at, patient_id`

type motionFileRepository struct {
	BaseRepository
}

func NewMotionFileRepository(base BaseRepository) repository.MotionFileRepository {
	return &motionFileRepository{base}
}

func insertMotionFile(ctx context.Context, q sqlx.QueryerContext, file *model.MotionFile) error {
	query := `
		INSERT INTO motion_files (name, url, type, patient_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	return q.QueryRowxContext(ctx, query,
		file.Name,
		file.URL,
		file.Type,
		file.PatientID,
	).Scan(&file.ID, &file.CreatedAt)
}

func (r *motionFileRepository) Create(ctx context.Context, file *model.MotionFile) error {
	return mapError(insertMotionFile(ctx, r.db, file))
}

func (r *motionFileRepository) CreateWithReadings(ctx context.Context, file *model.MotionFile, readings []*model.MotionReading) error {
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := insertMotionFile(ctx, tx, file); err != nil {
			return fmt.Errorf("insert motion file: %w", err)
		}

		for _, rd := range readings {
			rd.MotionFileID = file.ID
			err := tx.QueryRowxContext(ctx,
				`INSERT INTO motion_readings (name, motion_file_id, min, max) VALUES ($1, $2, $3, $4) RETURNING id`,
				rd.Name, rd.MotionFileID, rd.Min, rd.Max,
			).Scan(&rd.ID)
			if err != nil {
				return fmt.Errorf("insert motion reading %s: %w", rd.Name, err)
			}
		}
		return nil
	})
	return mapError(err)
}

func (r *motionFileRepository) Get(ctx context.Context, id int64) (*model.MotionFile, error) {
	var file model.MotionFile
	if err := r.db.GetContext(ctx, &file, `SELECT `+motionFileColumns+` FROM motion_files WHERE id = $1`, id); err != nil {
		return nil, mapError(err)
	}
	return &file, nil
}

func (r *motionFileRepository) List(ctx context.Context) ([]*model.MotionFile, error) {
	files := []*model.MotionFile{}
	if err := r.db.SelectContext(ctx, &files, `SELECT `+motionFileColumns+` FROM motion_files ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list motion files: %w", err)
	}
	return files, nil
}

func (r *motionFileRepository) ListByPatient(ctx context.Context, patientID int64) ([]*model.MotionFile, error) {
	files := []*model.MotionFile{}
	query := `SELECT ` + motionFileColumns + ` FROM motion_files WHERE patient_id = $1 ORDER BY created_at DESC, id DESC`
	if err := r.db.SelectContext(ctx, &files, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list motion files of patient %d: %w", patientID, err)
	}
	return files, nil
}

func (r *motionFileRepository) ListByPatientAfter(ctx context.Context, patientID int64, after time.Time) ([]*model.MotionFile, error) {
	files := []*model.MotionFile{}
	query := `
		SELECT ` + motionFileColumns + `
		FROM motion_files
		WHERE patient_id = $1 AND created_at >= $2
		ORDER BY created_at DESC, id DESC
	`
	if err := r.db.SelectContext(ctx, &files, query, patientID, after); err != nil {
		return nil, fmt.Errorf("failed to list motion files of patient %d: %w", patientID, err)
	}
	return files, nil
}

func (r *motionFileRepository) Assign(ctx context.Context, id, patientID int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE motion_files SET patient_id = $1 WHERE id = $2`, patientID, id)
	if err != nil {
		return mapError(err)
	}
	return expectRows(res)
}

// Delete removes the file; its readings go with it through the cascade.
func (r *motionFileRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM motion_files WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectRows(res)
}

func (r *motionFileRepository) ListReadings(ctx context.Context, fileID int64) ([]*model.MotionReading, error) {
	readings := []*model.MotionReading{}
	query := `SELECT id, name, motion_file_id, min, max FROM motion_readings WHERE motion_file_id = $1 ORDER BY id`
	if err := r.db.SelectContext(ctx, &readings, query, fileID); err != nil {
		return nil, fmt.Errorf("failed to list readings of motion file %d: %w", fileID, err)
	}
	return readings, nil
}
