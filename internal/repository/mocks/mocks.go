// Package mocks holds testify mocks of the repository interfaces for
// service and handler tests.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/jwalitptl/carelink-api/internal/model"
)

type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) Create(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *UserRepository) Provision(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *UserRepository) Get(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *UserRepository) ListByRole(ctx context.Context, role model.Role) ([]*model.User, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.User), args.Error(1)
}

func (m *UserRepository) Update(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *UserRepository) SetRoles(ctx context.Context, id int64, roles model.RoleSet, pending bool) error {
	return m.Called(ctx, id, roles, pending).Error(0)
}

func (m *UserRepository) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *UserRepository) CreatePatient(ctx context.Context, patient *model.User, physicianID int64) (*model.Chat, error) {
	args := m.Called(ctx, patient, physicianID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Chat), args.Error(1)
}

func (m *UserRepository) ReassignPhysician(ctx context.Context, patientID, physicianID int64) error {
	return m.Called(ctx, patientID, physicianID).Error(0)
}

func (m *UserRepository) GetPhysicianOf(ctx context.Context, patientID int64) (*model.User, error) {
	args := m.Called(ctx, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *UserRepository) ListPatientsOf(ctx context.Context, physicianID int64) ([]*model.User, error) {
	args := m.Called(ctx, physicianID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.User), args.Error(1)
}

type DeviceRepository struct {
	mock.Mock
}

func (m *DeviceRepository) Create(ctx context.Context, device *model.Device) error {
	return m.Called(ctx, device).Error(0)
}

func (m *DeviceRepository) Get(ctx context.Context, id int64) (*model.Device, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Device), args.Error(1)
}

func (m *DeviceRepository) List(ctx context.Context) ([]*model.Device, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Device), args.Error(1)
}

func (m *DeviceRepository) ListUnassigned(ctx context.Context) ([]*model.Device, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Device), args.Error(1)
}

func (m *DeviceRepository) GetByPatient(ctx context.Context, patientID int64) (*model.Device, error) {
	args := m.Called(ctx, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Device), args.Error(1)
}

func (m *DeviceRepository) Assign(ctx context.Context, id int64, patientID *int64) error {
	return m.Called(ctx, id, patientID).Error(0)
}

func (m *DeviceRepository) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type ChatRepository struct {
	mock.Mock
}

func (m *ChatRepository) Create(ctx context.Context, chat *model.Chat) error {
	return m.Called(ctx, chat).Error(0)
}

func (m *ChatRepository) Get(ctx context.Context, id int64) (*model.Chat, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Chat), args.Error(1)
}

func (m *ChatRepository) GetByPatient(ctx context.Context, patientID int64) (*model.Chat, error) {
	args := m.Called(ctx, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Chat), args.Error(1)
}

func (m *ChatRepository) GetByParticipants(ctx context.Context, patientID, physicianID int64) (*model.Chat, error) {
	args := m.Called(ctx, patientID, physicianID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Chat), args.Error(1)
}

func (m *ChatRepository) AddMessage(ctx context.Context, msg *model.ChatMessage) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *ChatRepository) ListMessages(ctx context.Context, chatID int64) ([]*model.ChatMessage, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ChatMessage), args.Error(1)
}

type MedicationRepository struct {
	mock.Mock
}

func (m *MedicationRepository) Create(ctx context.Context, med *model.Medication) error {
	return m.Called(ctx, med).Error(0)
}

func (m *MedicationRepository) Get(ctx context.Context, id int64) (*model.Medication, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Medication), args.Error(1)
}

func (m *MedicationRepository) ListByPatient(ctx context.Context, patientID int64) ([]*model.Medication, error) {
	args := m.Called(ctx, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Medication), args.Error(1)
}

func (m *MedicationRepository) Update(ctx context.Context, med *model.Medication) error {
	return m.Called(ctx, med).Error(0)
}

func (m *MedicationRepository) LogTaken(ctx context.Context, id int64, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *MedicationRepository) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type MotionFileRepository struct {
	mock.Mock
}

func (m *MotionFileRepository) Create(ctx context.Context, file *model.MotionFile) error {
	return m.Called(ctx, file).Error(0)
}

func (m *MotionFileRepository) CreateWithReadings(ctx context.Context, file *model.MotionFile, readings []*model.MotionReading) error {
	return m.Called(ctx, file, readings).Error(0)
}

func (m *MotionFileRepository) Get(ctx context.Context, id int64) (*model.MotionFile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MotionFile), args.Error(1)
}

func (m *MotionFileRepository) List(ctx context.Context) ([]*model.MotionFile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.MotionFile), args.Error(1)
}

func (m *MotionFileRepository) ListByPatient(ctx context.Context, patientID int64) ([]*model.MotionFile, error) {
	args := m.Called(ctx, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.MotionFile), args.Error(1)
}

func (m *MotionFileRepository) ListByPatientAfter(ctx context.Context, patientID int64, after time.Time) ([]*model.MotionFile, error) {
	args := m.Called(ctx, patientID, after)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.MotionFile), args.Error(1)
}

func (m *MotionFileRepository) Assign(ctx context.Context, id, patientID int64) error {
	return m.Called(ctx, id, patientID).Error(0)
}

func (m *MotionFileRepository) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MotionFileRepository) ListReadings(ctx context.Context, fileID int64) ([]*model.MotionReading, error) {
	args := m.Called(ctx, fileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.MotionReading), args.Error(1)
}

type DocumentRepository struct {
	mock.Mock
}

func (m *DocumentRepository) Create(ctx context.Context, doc *model.PatientDocument) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *DocumentRepository) Get(ctx context.Context, id int64) (*model.PatientDocument, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PatientDocument), args.Error(1)
}

func (m *DocumentRepository) List(ctx context.Context) ([]*model.PatientDocument, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PatientDocument), args.Error(1)
}

func (m *DocumentRepository) ListByPatient(ctx context.Context, patientID int64) ([]*model.PatientDocument, error) {
	args := m.Called(ctx, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PatientDocument), args.Error(1)
}

func (m *DocumentRepository) ListByPatientAndType(ctx context.Context, patientID int64, docType model.DocumentType) ([]*model.PatientDocument, error) {
	args := m.Called(ctx, patientID, docType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PatientDocument), args.Error(1)
}

func (m *DocumentRepository) ListByPatientAfter(ctx context.Context, patientID int64, after time.Time) ([]*model.PatientDocument, error) {
	args := m.Called(ctx, patientID, after)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PatientDocument), args.Error(1)
}

func (m *DocumentRepository) Update(ctx context.Context, doc *model.PatientDocument) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *DocumentRepository) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}
