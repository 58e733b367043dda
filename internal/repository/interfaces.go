package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jwalitptl/carelink-api/internal/model"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
)

// All repository interfaces in one file
type (
	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		// Provision inserts the user in one transaction. An empty last name
		// is replaced by the generated id.
		Provision(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id int64) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		ListByRole(ctx context.Context, role model.Role) ([]*model.User, error)
		Update(ctx context.Context, user *model.User) error
		SetRoles(ctx context.Context, id int64, roles model.RoleSet, pending bool) error
		Delete(ctx context.Context, id int64) error

		// CreatePatient inserts the patient, its physician association and
		// the patient's chat in one transaction.
		CreatePatient(ctx context.Context, patient *model.User, physicianID int64) (*model.Chat, error)
		// ReassignPhysician moves the association and the chat to another physician.
		ReassignPhysician(ctx context.Context, patientID, physicianID int64) error
		GetPhysicianOf(ctx context.Context, patientID int64) (*model.User, error)
		ListPatientsOf(ctx context.Context, physicianID int64) ([]*model.User, error)
	}

	DeviceRepository interface {
		Create(ctx context.Context, device *model.Device) error
		Get(ctx context.Context, id int64) (*model.Device, error)
		List(ctx context.Context) ([]*model.Device, error)
		ListUnassigned(ctx context.Context) ([]*model.Device, error)
		GetByPatient(ctx context.Context, patientID int64) (*model.Device, error)
		// Assign binds the device to patientID, or unbinds it when nil.
		Assign(ctx context.Context, id int64, patientID *int64) error
		Delete(ctx context.Context, id int64) error
	}

	ChatRepository interface {
		Create(ctx context.Context, chat *model.Chat) error
		Get(ctx context.Context, id int64) (*model.Chat, error)
		GetByPatient(ctx context.Context, patientID int64) (*model.Chat, error)
		GetByParticipants(ctx context.Context, patientID, physicianID int64) (*model.Chat, error)
		AddMessage(ctx context.Context, msg *model.ChatMessage) error
		ListMessages(ctx context.Context, chatID int64) ([]*model.ChatMessage, error)
	}

	MedicationRepository interface {
		Create(ctx context.Context, med *model.Medication) error
		Get(ctx context.Context, id int64) (*model.Medication, error)
		ListByPatient(ctx context.Context, patientID int64) ([]*model.Medication, error)
		Update(ctx context.Context, med *model.Medication) error
		LogTaken(ctx context.Context, id int64, at time.Time) error
		Delete(ctx context.Context, id int64) error
	}

	MotionFileRepository interface {
		Create(ctx context.Context, file *model.MotionFile) error
		// CreateWithReadings persists a file and its readings atomically and
		// fills in the generated ids.
		CreateWithReadings(ctx context.Context, file *model.MotionFile, readings []*model.MotionReading) error
		Get(ctx context.Context, id int64) (*model.MotionFile, error)
		List(ctx context.Context) ([]*model.MotionFile, error)
		ListByPatient(ctx context.Context, patientID int64) ([]*model.MotionFile, error)
		ListByPatientAfter(ctx context.Context, patientID int64, after time.Time) ([]*model.MotionFile, error)
		Assign(ctx context.Context, id, patientID int64) error
		Delete(ctx context.Context, id int64) error
		ListReadings(ctx context.Context, fileID int64) ([]*model.MotionReading, error)
	}

	DocumentRepository interface {
		Create(ctx context.Context, doc *model.PatientDocument) error
		Get(ctx context.Context, id int64) (*model.PatientDocument, error)
		List(ctx context.Context) ([]*model.PatientDocument, error)
		ListByPatient(ctx context.Context, patientID int64) ([]*model.PatientDocument, error)
		ListByPatientAndType(ctx context.Context, patientID int64, docType model.DocumentType) ([]*model.PatientDocument, error)
		ListByPatientAfter(ctx context.Context, patientID int64, after time.Time) ([]*model.PatientDocument, error)
		Update(ctx context.Context, doc *model.PatientDocument) error
		Delete(ctx context.Context, id int64) error
	}
)
