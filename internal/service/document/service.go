package document

import (
	"context"
	goerrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/jwalitptl/carelink-api/internal/model"
	"github.com/jwalitptl/carelink-api/internal/repository"
	"github.com/jwalitptl/carelink-api/pkg/errors"
)

const (
	MissingFieldsMessage = "Missing required fields: url, name, type, and/or patient_id"
	notFoundMessage      = "Patient document does not exist"
)

type CreateRequest struct {
	URL       string `json:"url" binding:"required,notblank"`
	Name      string `json:"name" binding:"required,notblank"`
	Type      string `json:"type" binding:"required,doctype"`
	PatientID int64  `json:"patient_id" binding:"required,gt=0"`
}

type DocumentServicer interface {
	Create(ctx context.Context, req CreateRequest) (*model.PatientDocument, error)
	Get(ctx context.Context, id int64) (*model.PatientDocument, error)
	List(ctx context.Context) ([]*model.PatientDocument, error)
	ListByPatient(ctx context.Context, patientID int64) ([]*model.PatientDocument, error)
	ListByType(ctx context.Context, patientID int64, rawType string) ([]*model.PatientDocument, error)
	ListByPatientAfter(ctx context.Context, patientID int64, after time.Time) ([]*model.PatientDocument, error)
	Update(ctx context.Context, id int64, patch model.DocumentPatch) (*model.PatientDocument, error)
	Delete(ctx context.Context, id int64) error
}

type Service struct {
	docs  repository.DocumentRepository
	users repository.UserRepository
}

func NewService(docs repository.DocumentRepository, users repository.UserRepository) *Service {
	return &Service{docs: docs, users: users}
}

// ParseType accepts a document type in any letter case.
func ParseType(raw string) (model.DocumentType, error) {
	t := model.DocumentType(strings.ToLower(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", errors.Validation(fmt.Sprintf("Invalid document type: %s. Must be one of: %s",
			raw, model.DocumentTypeNames()))
	}
	return t, nil
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*model.PatientDocument, error) {
	docType, err := ParseType(req.Type)
	if err != nil {
		return nil, err
	}

	patient, err := s.users.Get(ctx, req.PatientID)
	if err != nil && !goerrors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to get patient %d: %w", req.PatientID, err)
	}
	if patient == nil || !patient.Roles.Has(model.RolePatient) {
		return nil, errors.Missing(fmt.Sprintf("No patient found with id: %d", req.PatientID))
	}

	doc := &model.PatientDocument{
		Name:      req.Name,
		URL:       req.URL,
		Type:      docType,
		PatientID: patient.ID,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create patient document: %w", err)
	}
	return doc, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*model.PatientDocument, error) {
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		if goerrors.Is(err, repository.ErrNotFound) {
			return nil, errors.Missing(notFoundMessage)
		}
		return nil, fmt.Errorf("failed to get patient document %d: %w", id, err)
	}
	return doc, nil
}

func (s *Service) List(ctx context.Context) ([]*model.PatientDocument, error) {
	return s.docs.List(ctx)
}

// ListByPatient returns an empty list for patients without documents.
func (s *Service) ListByPatient(ctx context.Context, patientID int64) ([]*model.PatientDocument, error) {
	return s.docs.ListByPatient(ctx, patientID)
}

func (s *Service) ListByType(ctx context.Context, patientID int64, rawType string) ([]*model.PatientDocument, error) {
	docType, err := ParseType(rawType)
	if err != nil {
		return nil, err
	}
	return s.docs.ListByPatientAndType(ctx, patientID, docType)
}

func (s *Service) ListByPatientAfter(ctx context.Context, patientID int64, after time.Time) ([]*model.PatientDocument, error) {
	return s.docs.ListByPatientAfter(ctx, patientID, after)
}

func (s *Service) Update(ctx context.Context, id int64, patch model.DocumentPatch) (*model.PatientDocument, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, errors.Validation("No update data provided")
	}
	if patch.Type != nil {
		docType, err := ParseType(string(*patch.Type))
		if err != nil {
			return nil, err
		}
		patch.Type = &docType
	}

	patch.Apply(doc)
	if err := s.docs.Update(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to update patient document %d: %w", id, err)
	}
	return doc, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.docs.Delete(ctx, id); err != nil {
		if goerrors.Is(err, repository.ErrNotFound) {
			return errors.Missing(notFoundMessage)
		}
		return fmt.Errorf("failed to delete patient document %d: %w", id, err)
	}
	return nil
}
