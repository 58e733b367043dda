package postgres

import (
	"context"
	"fmt"

	"github.com/jwalitptl/carelink-api/internal/model"
	"github.com/jwalitptl/carelink-api/internal/repository"
)

type deviceRepository struct {
	BaseRepository
}

func NewDeviceRepository(base BaseRepository) repository.DeviceRepository {
	return &deviceRepository{base}
}

func (r *deviceRepository) Create(ctx context.Context, device *model.Device) error {
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO devices (patient_id) VALUES ($1) RETURNING id, created_at`,
		device.PatientID,
	).Scan(&device.ID, &device.CreatedAt)
	return mapError(err)
}

func (r *deviceRepository) Get(ctx context.Context, id int64) (*model.Device, error) {
	var device model.Device
	if err := r.db.GetContext(ctx, &device, `SELECT id, patient_id, created_at FROM devices WHERE id = $1`, id); err != nil {
		return nil, mapError(err)
	}
	return &device, nil
}

func (r *deviceRepository) List(ctx context.Context) ([]*model.Device, error) {
	devices := []*model.Device{}
	if err := r.db.SelectContext(ctx, &devices, `SELECT id, patient_id, created_at FROM devices ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return devices, nil
}

func (r *deviceRepository) ListUnassigned(ctx context.Context) ([]*model.Device, error) {
	devices := []*model.Device{}
	query := `SELECT id, patient_id, created_at FROM devices WHERE patient_id IS NULL ORDER BY id`
	if err := r.db.SelectContext(ctx, &devices, query); err != nil {
		return nil, fmt.Errorf("failed to list unassigned devices: %w", err)
	}
	return devices, nil
}

func (r *deviceRepository) GetByPatient(ctx context.Context, patientID int64) (*model.Device, error) {
	var device model.Device
	query := `SELECT id, patient_id, created_at FROM devices WHERE patient_id = $1`
	if err := r.db.GetContext(ctx, &device, query, patientID); err != nil {
		return nil, mapError(err)
	}
	return &device, nil
}

func (r *deviceRepository) Assign(ctx context.Context, id int64, patientID *int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE devices SET patient_id = $1 WHERE id = $2`, patientID, id)
	if err != nil {
		return mapError(err)
	}
	return expectRows(res)
}

func (r *deviceRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectRows(res)
}
