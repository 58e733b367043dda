package user

import (
	"context"
	goerrors "errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/carelink-api/internal/model"
	"github.com/jwalitptl/carelink-api/internal/repository"
	"github.com/jwalitptl/carelink-api/pkg/errors"
)

// IdentityDeleter removes accounts at the identity provider.
type IdentityDeleter interface {
	DeleteUsersByEmail(ctx context.Context, email string) error
}

type CreateInput struct {
	FirstName    string `json:"first_name" binding:"required,notblank,max=100"`
	LastName     string `json:"last_name" binding:"max=100"`
	EmailAddress string `json:"email_address" binding:"required,email"`
}

type UserServicer interface {
	Create(ctx context.Context, role model.Role, in CreateInput) (*model.User, error)
	CreatePatient(ctx context.Context, in CreateInput, physicianID int64) (*model.User, error)
	Get(ctx context.Context, role model.Role, id int64) (*model.User, error)
	List(ctx context.Context, role model.Role) ([]*model.User, error)
	Update(ctx context.Context, role model.Role, id int64, patch model.UserPatch) (*model.User, error)
	Delete(ctx context.Context, role model.Role, id int64) error
	PatientsOf(ctx context.Context, physicianID int64) ([]*model.User, error)
	PhysicianOf(ctx context.Context, patientID int64) (*model.User, error)
	ReassignPhysician(ctx context.Context, patientID, physicianID int64) error
}

type Service struct {
	repo     repository.UserRepository
	identity IdentityDeleter
}

// NewService builds the service. identity may be nil when no provider
// management credentials are configured.
func NewService(repo repository.UserRepository, identity IdentityDeleter) *Service {
	return &Service{repo: repo, identity: identity}
}

// Require loads user id and checks it holds role. Missing users and users
// without the role are both reported as "<Role> does not exist".
func Require(ctx context.Context, repo repository.UserRepository, id int64, role model.Role) (*model.User, error) {
	u, err := repo.Get(ctx, id)
	if err != nil {
		if goerrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound(string(role))
		}
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	if !u.Roles.Has(role) {
		return nil, errors.NotFound(string(role))
	}
	return u, nil
}

// Create gives role to the user with the input email, creating the user
// when needed. Users created or changed here are pending until their
// provider roles are synchronized.
func (s *Service) Create(ctx context.Context, role model.Role, in CreateInput) (*model.User, error) {
	existing, err := s.existing(ctx, role, in.EmailAddress)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		roles := existing.Roles.Add(role)
		if err := s.repo.SetRoles(ctx, existing.ID, roles, true); err != nil {
			return nil, fmt.Errorf("failed to add role %s: %w", role, err)
		}
		existing.Roles = roles
		existing.Pending = true
		return existing, nil
	}

	u := newUser(in, role)
	if err := s.repo.Create(ctx, u); err != nil {
		if goerrors.Is(err, repository.ErrDuplicate) {
			return nil, errors.Conflict(fmt.Sprintf("%s already exists", role))
		}
		return nil, fmt.Errorf("failed to create %s: %w", strings.ToLower(string(role)), err)
	}

	log.Info().Int64("user_id", u.ID).Str("role", string(role)).Msg("User created")
	return u, nil
}

// CreatePatient stores the patient with its physician association and
// chat. Nothing is written when the physician does not exist.
func (s *Service) CreatePatient(ctx context.Context, in CreateInput, physicianID int64) (*model.User, error) {
	if _, err := Require(ctx, s.repo, physicianID, model.RolePhysician); err != nil {
		return nil, err
	}

	existing, err := s.existing(ctx, model.RolePatient, in.EmailAddress)
	if err != nil {
		return nil, err
	}

	patient := existing
	if patient == nil {
		patient = newUser(in, model.RolePatient)
	} else {
		patient.Roles = patient.Roles.Add(model.RolePatient)
	}

	chat, err := s.repo.CreatePatient(ctx, patient, physicianID)
	if err != nil {
		if goerrors.Is(err, repository.ErrDuplicate) {
			return nil, errors.Conflict("Patient already exists")
		}
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}

	log.Info().
		Int64("patient_id", patient.ID).
		Int64("physician_id", physicianID).
		Int64("chat_id", chat.ID).
		Msg("Patient created")
	return patient, nil
}

// existing returns the user registered with email, or nil. A user already
// holding role is a conflict.
func (s *Service) existing(ctx context.Context, role model.Role, email string) (*model.User, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if goerrors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up user by email: %w", err)
	}
	if u.Roles.Has(role) {
		return nil, errors.Conflict(fmt.Sprintf("%s already exists", role))
	}
	return u, nil
}

func newUser(in CreateInput, role model.Role) *model.User {
	return &model.User{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		EmailAddress: strings.TrimSpace(in.EmailAddress),
		Roles:        model.RoleSet{role},
		Pending:      true,
	}
}

func (s *Service) Get(ctx context.Context, role model.Role, id int64) (*model.User, error) {
	return Require(ctx, s.repo, id, role)
}

func (s *Service) List(ctx context.Context, role model.Role) ([]*model.User, error) {
	users, err := s.repo.ListByRole(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s users: %w", role, err)
	}
	return users, nil
}

func (s *Service) Update(ctx context.Context, role model.Role, id int64, patch model.UserPatch) (*model.User, error) {
	u, err := Require(ctx, s.repo, id, role)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, errors.Validation("No update data provided")
	}

	patch.Apply(u)
	if err := s.repo.Update(ctx, u); err != nil {
		if goerrors.Is(err, repository.ErrDuplicate) {
			return nil, errors.Conflict("Email address already in use")
		}
		return nil, fmt.Errorf("failed to update user %d: %w", id, err)
	}
	return u, nil
}

// Delete removes the user and everything that cascades from it, then
// removes the provider account. Provider failures are logged only.
func (s *Service) Delete(ctx context.Context, role model.Role, id int64) error {
	u, err := Require(ctx, s.repo, id, role)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if goerrors.Is(err, repository.ErrNotFound) {
			return errors.NotFound(string(role))
		}
		return fmt.Errorf("failed to delete user %d: %w", id, err)
	}

	if s.identity != nil {
		if err := s.identity.DeleteUsersByEmail(ctx, u.EmailAddress); err != nil {
			log.Warn().Err(err).Int64("user_id", id).Msg("Failed to delete identity provider account")
		}
	}
	return nil
}

func (s *Service) PatientsOf(ctx context.Context, physicianID int64) ([]*model.User, error) {
	if _, err := Require(ctx, s.repo, physicianID, model.RolePhysician); err != nil {
		return nil, err
	}
	patients, err := s.repo.ListPatientsOf(ctx, physicianID)
	if err != nil {
		return nil, err
	}
	return patients, nil
}

func (s *Service) PhysicianOf(ctx context.Context, patientID int64) (*model.User, error) {
	if _, err := Require(ctx, s.repo, patientID, model.RolePatient); err != nil {
		return nil, err
	}
	physician, err := s.repo.GetPhysicianOf(ctx, patientID)
	if err != nil {
		if goerrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("Physician")
		}
		return nil, fmt.Errorf("failed to get physician of patient %d: %w", patientID, err)
	}
	return physician, nil
}

func (s *Service) ReassignPhysician(ctx context.Context, patientID, physicianID int64) error {
	if _, err := Require(ctx, s.repo, patientID, model.RolePatient); err != nil {
		return err
	}
	if _, err := Require(ctx, s.repo, physicianID, model.RolePhysician); err != nil {
		return err
	}
	if err := s.repo.ReassignPhysician(ctx, patientID, physicianID); err != nil {
		return fmt.Errorf("failed to reassign physician: %w", err)
	}
	return nil
}
