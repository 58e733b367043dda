package medication

import (
	"context"
	goerrors "errors"
	"fmt"
	"time"

	"github.com/jwalitptl/carelink-api/internal/model"
	"github.com/jwalitptl/carelink-api/internal/repository"
	"github.com/jwalitptl/carelink-api/internal/service/user"
	"github.com/jwalitptl/carelink-api/pkg/errors"
)

type CreateRequest struct {
	PatientID    int64  `json:"patient_id" binding:"required,gt=0"`
	Name         string `json:"name" binding:"required,notblank,max=100"`
	Dosage       string `json:"dosage" binding:"required,notblank,max=50"`
	Instructions string `json:"instructions" binding:"required,notblank,max=200"`
}

type MedicationServicer interface {
	Create(ctx context.Context, req CreateRequest) (*model.Medication, error)
	Get(ctx context.Context, id int64) (*model.Medication, error)
	ListByPatient(ctx context.Context, patientID int64) ([]*model.Medication, error)
	Update(ctx context.Context, id int64, patch model.MedicationPatch) (*model.Medication, error)
	LogTaken(ctx context.Context, id int64) (*model.Medication, error)
	Delete(ctx context.Context, id int64) error
}

type Service struct {
	meds  repository.MedicationRepository
	users repository.UserRepository
	now   func() time.Time
}

func NewService(meds repository.MedicationRepository, users repository.UserRepository) *Service {
	return &Service{meds: meds, users: users, now: time.Now}
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*model.Medication, error) {
	if _, err := user.Require(ctx, s.users, req.PatientID, model.RolePatient); err != nil {
		return nil, err
	}

	med := &model.Medication{
		PatientID:    req.PatientID,
		Name:         req.Name,
		Dosage:       req.Dosage,
		Instructions: req.Instructions,
	}
	if err := s.meds.Create(ctx, med); err != nil {
		return nil, fmt.Errorf("failed to create medication: %w", err)
	}
	return med, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*model.Medication, error) {
	med, err := s.meds.Get(ctx, id)
	if err != nil {
		if goerrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("Medication")
		}
		return nil, fmt.Errorf("failed to get medication %d: %w", id, err)
	}
	return med, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID int64) ([]*model.Medication, error) {
	if _, err := user.Require(ctx, s.users, patientID, model.RolePatient); err != nil {
		return nil, err
	}
	return s.meds.ListByPatient(ctx, patientID)
}

func (s *Service) Update(ctx context.Context, id int64, patch model.MedicationPatch) (*model.Medication, error) {
	med, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, errors.Validation("No update data provided")
	}

	patch.Apply(med)
	if err := s.meds.Update(ctx, med); err != nil {
		return nil, fmt.Errorf("failed to update medication %d: %w", id, err)
	}
	return med, nil
}

// LogTaken records an intake at the current time.
func (s *Service) LogTaken(ctx context.Context, id int64) (*model.Medication, error) {
	med, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	at := s.now().UTC()
	if err := s.meds.LogTaken(ctx, id, at); err != nil {
		return nil, fmt.Errorf("failed to log medication %d: %w", id, err)
	}
	med.LastTaken = &at
	return med, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.meds.Delete(ctx, id); err != nil {
		if goerrors.Is(err, repository.ErrNotFound) {
			return errors.NotFound("Medication")
		}
		return fmt.Errorf("failed to delete medication %d: %w", id, err)
	}
	return nil
}
