package device

import (
	"context"
	goerrors "errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/carelink-api/internal/model"
	"github.com/jwalitptl/carelink-api/internal/repository"
	"github.com/jwalitptl/carelink-api/internal/service/user"
	"github.com/jwalitptl/carelink-api/pkg/errors"
)

// AssignRequest binds or, with a null patient_id, unbinds a device.
type AssignRequest struct {
	PatientID *int64 `json:"patient_id"`
}

type DeviceServicer interface {
	Create(ctx context.Context) (*model.Device, error)
	Get(ctx context.Context, id int64) (*model.Device, error)
	List(ctx context.Context) ([]*model.Device, error)
	ListUnassigned(ctx context.Context) ([]*model.Device, error)
	GetByPatient(ctx context.Context, patientID int64) (*model.Device, error)
	Assign(ctx context.Context, id int64, patientID *int64) (*model.Device, error)
	Delete(ctx context.Context, id int64) error
}

type Service struct {
	devices repository.DeviceRepository
	users   repository.UserRepository
}

func NewService(devices repository.DeviceRepository, users repository.UserRepository) *Service {
	return &Service{devices: devices, users: users}
}

// Create registers a new, unassigned device.
func (s *Service) Create(ctx context.Context) (*model.Device, error) {
	device := &model.Device{}
	if err := s.devices.Create(ctx, device); err != nil {
		return nil, fmt.Errorf("failed to create device: %w", err)
	}
	log.Info().Int64("device_id", device.ID).Msg("Device created")
	return device, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*model.Device, error) {
	device, err := s.devices.Get(ctx, id)
	if err != nil {
		if goerrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("Device")
		}
		return nil, fmt.Errorf("failed to get device %d: %w", id, err)
	}
	return device, nil
}

func (s *Service) List(ctx context.Context) ([]*model.Device, error) {
	return s.devices.List(ctx)
}

func (s *Service) ListUnassigned(ctx context.Context) ([]*model.Device, error) {
	return s.devices.ListUnassigned(ctx)
}

func (s *Service) GetByPatient(ctx context.Context, patientID int64) (*model.Device, error) {
	device, err := s.devices.GetByPatient(ctx, patientID)
	if err != nil {
		if goerrors.Is(err, repository.ErrNotFound) {
			return nil, errors.Missing("No device assigned to this patient")
		}
		return nil, fmt.Errorf("failed to get device of patient %d: %w", patientID, err)
	}
	return device, nil
}

// Assign binds a free device to a patient that has no device yet. A nil
// patientID unassigns the device.
func (s *Service) Assign(ctx context.Context, id int64, patientID *int64) (*model.Device, error) {
	device, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patientID != nil {
		if _, err := user.Require(ctx, s.users, *patientID, model.RolePatient); err != nil {
			return nil, err
		}
		// A bound device must be unassigned before it can move.
		if device.Assigned() && *device.PatientID != *patientID {
			return nil, errors.Conflict("Patient already has a device assigned")
		}

		current, err := s.devices.GetByPatient(ctx, *patientID)
		switch {
		case err == nil && current.ID != device.ID:
			return nil, errors.Conflict("Patient already has a device assigned")
		case err == nil:
			return device, nil
		case !goerrors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("failed to check device of patient %d: %w", *patientID, err)
		}
	}

	if err := s.devices.Assign(ctx, id, patientID); err != nil {
		if goerrors.Is(err, repository.ErrDuplicate) {
			return nil, errors.Conflict("Patient already has a device assigned")
		}
		if goerrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("Device")
		}
		return nil, fmt.Errorf("failed to assign device %d: %w", id, err)
	}

	device.PatientID = patientID
	log.Info().Int64("device_id", id).Interface("patient_id", patientID).Msg("Device assignment changed")
	return device, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.devices.Delete(ctx, id); err != nil {
		if goerrors.Is(err, repository.ErrNotFound) {
			return errors.NotFound("Device")
		}
		return fmt.Errorf("failed to delete device %d: %w", id, err)
	}
	return nil
}
