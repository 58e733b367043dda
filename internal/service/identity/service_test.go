package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/carelink-api/internal/model"
	"github.com/jwalitptl/carelink-api/internal/repository"
	"github.com/jwalitptl/carelink-api/internal/repository/mocks"
	"github.com/jwalitptl/carelink-api/pkg/auth"
	idp "github.com/jwalitptl/carelink-api/pkg/identity"
)

type fakeProvider struct {
	user     *idp.User
	assigned []string
}

func (f *fakeProvider) GetUser(_ context.Context, userID string) (*idp.User, error) {
	if f.user == nil || f.user.UserID != userID {
		return nil, idp.ErrUserNotFound
	}
	return f.user, nil
}

func (f *fakeProvider) AssignRole(_ context.Context, roleID, _ string) error {
	f.assigned = append(f.assigned, roleID)
	return nil
}

var roleIDs = map[model.Role]string{
	model.RoleAdmin:     "rol_admin",
	model.RolePhysician: "rol_physician",
	model.RolePatient:   "rol_patient",
}

func newProvider() *fakeProvider {
	return &fakeProvider{user: &idp.User{
		UserID:     "auth0|abc",
		Email:      "ada@example.org",
		GivenName:  "Ada",
		FamilyName: "Lovelace",
		Nickname:   "ada",
	}}
}

func TestSyncUnknownUserWithoutRolesWaits(t *testing.T) {
	ctx := context.Background()
	users := new(mocks.UserRepository)
	users.On("GetByEmail", ctx, "ada@example.org").Return(nil, repository.ErrNotFound)

	out, err := NewService(users, newProvider(), roleIDs).Sync(ctx, &auth.Principal{Subject: "auth0|abc"})
	require.NoError(t, err)
	assert.Equal(t, EventWait, out.Event)
	assert.Equal(t, Message{Message: "Wait to be added to the system."}, out.Data)
	assert.Nil(t, out.User)
	users.AssertNotCalled(t, "Provision", mock.Anything, mock.Anything)
}

func TestSyncProvisionsUserWithRoles(t *testing.T) {
	ctx := context.Background()
	users := new(mocks.UserRepository)
	users.On("GetByEmail", ctx, "ada@example.org").Return(nil, repository.ErrNotFound)
	users.On("Provision", ctx, mock.MatchedBy(func(u *model.User) bool {
		return u.FirstName == "Ada" && u.LastName == "Lovelace" && !u.Pending && u.Roles.Has(model.RolePhysician)
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*model.User).ID = 12
	}).Return(nil)

	out, err := NewService(users, newProvider(), roleIDs).Sync(ctx, &auth.Principal{
		Subject: "auth0|abc",
		Roles:   []string{"Physician"},
	})
	require.NoError(t, err)
	assert.Equal(t, EventUserInfo, out.Event)
	assert.Equal(t, int64(12), out.User.ID)
	users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestSyncProvisionFallsBackToNickname(t *testing.T) {
	ctx := context.Background()
	provider := newProvider()
	provider.user.FamilyName = ""

	users := new(mocks.UserRepository)
	users.On("GetByEmail", ctx, "ada@example.org").Return(nil, repository.ErrNotFound)
	users.On("Provision", ctx, mock.MatchedBy(func(u *model.User) bool {
		return u.FirstName == "ada" && u.LastName == ""
	})).Run(func(args mock.Arguments) {
		u := args.Get(1).(*model.User)
		u.ID = 12
		u.LastName = "12"
	}).Return(nil)

	out, err := NewService(users, provider, roleIDs).Sync(ctx, &auth.Principal{Subject: "auth0|abc", Roles: []string{"Patient"}})
	require.NoError(t, err)
	assert.Equal(t, "12", out.User.LastName)
	users.AssertExpectations(t)
}

func TestSyncPendingUserPushesRoles(t *testing.T) {
	ctx := context.Background()
	provider := newProvider()
	users := new(mocks.UserRepository)
	local := &model.User{ID: 3, EmailAddress: "ada@example.org", Roles: model.RoleSet{model.RoleAdmin, model.RolePhysician}, Pending: true}
	users.On("GetByEmail", ctx, "ada@example.org").Return(local, nil)
	users.On("SetRoles", ctx, int64(3), local.Roles, false).Return(nil)

	out, err := NewService(users, provider, roleIDs).Sync(ctx, &auth.Principal{Subject: "auth0|abc"})
	require.NoError(t, err)
	assert.Equal(t, EventRelogin, out.Event)
	assert.Equal(t, []string{"rol_admin", "rol_physician"}, provider.assigned)
	assert.False(t, out.User.Pending)
}

func TestSyncStaleTokenRoles(t *testing.T) {
	ctx := context.Background()
	provider := newProvider()
	users := new(mocks.UserRepository)
	local := &model.User{ID: 3, EmailAddress: "ada@example.org", Roles: model.RoleSet{model.RolePhysician, model.RolePatient}}
	users.On("GetByEmail", ctx, "ada@example.org").Return(local, nil)

	out, err := NewService(users, provider, roleIDs).Sync(ctx, &auth.Principal{Subject: "auth0|abc", Roles: []string{"Physician"}})
	require.NoError(t, err)
	assert.Equal(t, EventRelogin, out.Event)
	assert.Equal(t, []string{"rol_patient"}, provider.assigned)
}

func TestSyncUpToDateUser(t *testing.T) {
	ctx := context.Background()
	provider := newProvider()
	users := new(mocks.UserRepository)
	local := &model.User{ID: 3, EmailAddress: "ada@example.org", Roles: model.RoleSet{model.RolePhysician}}
	users.On("GetByEmail", ctx, "ada@example.org").Return(local, nil)

	out, err := NewService(users, provider, roleIDs).Sync(ctx, &auth.Principal{Subject: "auth0|abc", Roles: []string{"Physician"}})
	require.NoError(t, err)
	assert.Equal(t, EventUserInfo, out.Event)
	assert.Same(t, local, out.User)
	assert.Empty(t, provider.assigned)
}

func TestSyncUnknownSubject(t *testing.T) {
	users := new(mocks.UserRepository)
	_, err := NewService(users, newProvider(), roleIDs).Sync(context.Background(), &auth.Principal{Subject: "auth0|other"})
	assert.ErrorIs(t, err, idp.ErrUserNotFound)
}

func TestSyncProvisionFailureLeavesNoUser(t *testing.T) {
	ctx := context.Background()
	provider := newProvider()
	provider.user.FamilyName = ""

	users := new(mocks.UserRepository)
	users.On("GetByEmail", ctx, "ada@example.org").Return(nil, repository.ErrNotFound)
	users.On("Provision", ctx, mock.AnythingOfType("*model.User")).Return(errors.New("tx aborted"))

	_, err := NewService(users, provider, roleIDs).Sync(ctx, &auth.Principal{Subject: "auth0|abc", Roles: []string{"Patient"}})
	assert.Error(t, err)
	users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}
