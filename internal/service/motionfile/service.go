package motionfile

import (
	"context"
	goerrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/carelink-api/internal/model"
	"github.com/jwalitptl/carelink-api/internal/repository"
	"github.com/jwalitptl/carelink-api/internal/service/user"
	"github.com/jwalitptl/carelink-api/pkg/errors"
)

const (
	MissingFieldsMessage  = "Missing required fields: url, file_name, type, and/or email"
	MissingPatientMessage = "Missing required fields: patient_id"
	noFilesForPatient     = "No motion_file assigned to this patient"
	entity                = "Motion_File"
)

// BlobDeleter removes the stored artifact of a file.
type BlobDeleter interface {
	Delete(ctx context.Context, name string) error
}

// CreateRequest registers an already stored artifact for the patient
// with the given email.
type CreateRequest struct {
	URL   string `json:"url" binding:"required,notblank"`
	Name  string `json:"name" binding:"required,notblank"`
	Type  string `json:"type" binding:"required,notblank"`
	Email string `json:"email" binding:"required"`
}

type AssignRequest struct {
	PatientID *int64 `json:"patient_id" binding:"required"`
}

type MotionFileServicer interface {
	List(ctx context.Context) ([]*model.MotionFile, error)
	Get(ctx context.Context, id int64) (*model.MotionFile, error)
	Create(ctx context.Context, req CreateRequest) (*model.MotionFile, error)
	Assign(ctx context.Context, id, patientID int64) (*model.MotionFile, error)
	Delete(ctx context.Context, id int64) error
	ListByPatient(ctx context.Context, patientID int64) ([]*model.MotionFile, error)
	ListByPatientAfter(ctx context.Context, patientID int64, after time.Time) ([]*model.MotionFile, error)
	Readings(ctx context.Context, fileID int64) ([]*model.MotionReading, error)
}

type Service struct {
	files repository.MotionFileRepository
	users repository.UserRepository
	blobs BlobDeleter
}

func NewService(files repository.MotionFileRepository, users repository.UserRepository, blobs BlobDeleter) *Service {
	return &Service{files: files, users: users, blobs: blobs}
}

func (s *Service) List(ctx context.Context) ([]*model.MotionFile, error) {
	return s.files.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (*model.MotionFile, error) {
	file, err := s.files.Get(ctx, id)
	if err != nil {
		if goerrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound(entity)
		}
		return nil, fmt.Errorf("failed to get motion file %d: %w", id, err)
	}
	return file, nil
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*model.MotionFile, error) {
	email := strings.TrimSpace(req.Email)
	patient, err := s.users.GetByEmail(ctx, email)
	if err != nil && !goerrors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up patient by email: %w", err)
	}
	if patient == nil || !patient.Roles.Has(model.RolePatient) {
		return nil, errors.Missing(fmt.Sprintf("No patient found with email: %s", email))
	}

	file := &model.MotionFile{
		Name:      req.Name,
		URL:       req.URL,
		Type:      req.Type,
		PatientID: patient.ID,
	}
	if err := s.files.Create(ctx, file); err != nil {
		return nil, fmt.Errorf("failed to create motion file: %w", err)
	}
	return file, nil
}

// Assign moves a file to another patient.
func (s *Service) Assign(ctx context.Context, id, patientID int64) (*model.MotionFile, error) {
	file, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := user.Require(ctx, s.users, patientID, model.RolePatient); err != nil {
		return nil, err
	}

	if err := s.files.Assign(ctx, id, patientID); err != nil {
		if goerrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound(entity)
		}
		return nil, fmt.Errorf("failed to assign motion file %d: %w", id, err)
	}
	file.PatientID = patientID
	return file, nil
}

// Delete removes the stored artifact, then the file and its readings.
func (s *Service) Delete(ctx context.Context, id int64) error {
	file, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.blobs.Delete(ctx, file.Name); err != nil {
		return errors.Storage("delete", err)
	}
	if err := s.files.Delete(ctx, id); err != nil {
		if goerrors.Is(err, repository.ErrNotFound) {
			return errors.NotFound(entity)
		}
		return fmt.Errorf("failed to delete motion file %d: %w", id, err)
	}

	log.Info().Int64("motion_file_id", id).Str("blob", file.Name).Msg("Motion file deleted")
	return nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID int64) ([]*model.MotionFile, error) {
	files, err := s.files.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.Missing(noFilesForPatient)
	}
	return files, nil
}

// ListByPatientAfter returns the files created on or after the given day.
func (s *Service) ListByPatientAfter(ctx context.Context, patientID int64, after time.Time) ([]*model.MotionFile, error) {
	files, err := s.files.ListByPatientAfter(ctx, patientID, after)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.Missing(fmt.Sprintf("No motion_files found for patient %d after %s",
			patientID, after.Format("2006-01-02")))
	}
	return files, nil
}

func (s *Service) Readings(ctx context.Context, fileID int64) ([]*model.MotionReading, error) {
	return s.files.ListReadings(ctx, fileID)
}
