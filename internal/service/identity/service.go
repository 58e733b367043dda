// Package identity reconciles a connecting user with the local user table
// and the roles the identity provider holds for them.
package identity

import (
	"context"
	goerrors "errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/carelink-api/internal/model"
	"github.com/jwalitptl/carelink-api/internal/repository"
	"github.com/jwalitptl/carelink-api/pkg/auth"
	idp "github.com/jwalitptl/carelink-api/pkg/identity"
)

const (
	EventUserInfo = "user_info"
	EventWait     = "wait"
	EventRelogin  = "relogin"

	waitMessage    = "Wait to be added to the system."
	reloginMessage = "Please login again to update your credentials."
)

// Provider is the part of the management API the sync needs.
type Provider interface {
	GetUser(ctx context.Context, userID string) (*idp.User, error)
	AssignRole(ctx context.Context, roleID, userID string) error
}

type Message struct {
	Message string `json:"message"`
}

// Outcome is the event sent to the connecting client. User is nil for
// wait.
type Outcome struct {
	Event string
	Data  interface{}
	User  *model.User
}

type SyncServicer interface {
	Sync(ctx context.Context, principal *auth.Principal) (*Outcome, error)
}

type Service struct {
	users    repository.UserRepository
	provider Provider
	roleIDs  map[model.Role]string
}

// NewService builds the service. roleIDs maps each local role to the
// provider's role identifier.
func NewService(users repository.UserRepository, provider Provider, roleIDs map[model.Role]string) *Service {
	return &Service{users: users, provider: provider, roleIDs: roleIDs}
}

// Sync looks the caller up by the email the provider holds for them.
// Unknown callers with roles are provisioned. Known callers whose roles
// are out of date at the provider get the missing roles and must log in
// again.
func (s *Service) Sync(ctx context.Context, principal *auth.Principal) (*Outcome, error) {
	profile, err := s.provider.GetUser(ctx, principal.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch provider profile: %w", err)
	}
	email := profile.Email
	if email == "" {
		email = principal.Email
	}
	tokenRoles := model.ParseRoles(principal.Roles)

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !goerrors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to look up user by email: %w", err)
		}
		if len(tokenRoles) == 0 {
			return &Outcome{Event: EventWait, Data: Message{Message: waitMessage}}, nil
		}
		u, err = s.provision(ctx, profile, email, tokenRoles)
		if err != nil {
			return nil, err
		}
		return &Outcome{Event: EventUserInfo, Data: u, User: u}, nil
	}

	logger := log.With().Int64("user_id", u.ID).Str("subject", principal.Subject).Logger()

	if u.Pending {
		if err := s.assign(ctx, profile.UserID, u.Roles); err != nil {
			return nil, err
		}
		if err := s.users.SetRoles(ctx, u.ID, u.Roles, false); err != nil {
			return nil, fmt.Errorf("failed to clear pending flag: %w", err)
		}
		u.Pending = false
		logger.Info().Strs("roles", u.Roles.Strings()).Msg("Pending roles pushed to identity provider")
		return &Outcome{Event: EventRelogin, Data: Message{Message: reloginMessage}, User: u}, nil
	}

	if len(tokenRoles) == 0 || !u.Roles.Equal(tokenRoles) {
		missing := u.Roles.Missing(tokenRoles)
		if err := s.assign(ctx, profile.UserID, missing); err != nil {
			return nil, err
		}
		logger.Info().Strs("roles", missing.Strings()).Msg("Token roles out of date")
		return &Outcome{Event: EventRelogin, Data: Message{Message: reloginMessage}, User: u}, nil
	}

	return &Outcome{Event: EventUserInfo, Data: u, User: u}, nil
}

// provision creates the local user of a caller the provider already gave
// roles to. Without a full name the nickname is used and the repository
// sets the last name to the new user id.
func (s *Service) provision(ctx context.Context, profile *idp.User, email string, roles model.RoleSet) (*model.User, error) {
	u := &model.User{
		FirstName:    profile.GivenName,
		LastName:     profile.FamilyName,
		EmailAddress: email,
		Roles:        roles,
	}
	if u.FirstName == "" || u.LastName == "" {
		u.FirstName = profile.Nickname
		u.LastName = ""
	}

	if err := s.users.Provision(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to provision user: %w", err)
	}

	log.Info().Int64("user_id", u.ID).Strs("roles", roles.Strings()).Msg("User provisioned from identity provider")
	return u, nil
}

func (s *Service) assign(ctx context.Context, providerUserID string, roles model.RoleSet) error {
	for _, role := range roles {
		roleID, ok := s.roleIDs[role]
		if !ok || roleID == "" {
			return fmt.Errorf("no identity provider role id configured for %s", role)
		}
		if err := s.provider.AssignRole(ctx, roleID, providerUserID); err != nil {
			return fmt.Errorf("failed to assign role %s: %w", role, err)
		}
	}
	return nil
}
