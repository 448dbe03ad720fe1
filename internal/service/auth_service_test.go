package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/fieldops/workorder-service/internal/auth"
	"github.com/fieldops/workorder-service/internal/domain"
	apperrors "github.com/fieldops/workorder-service/pkg/util"
)

type authFixture struct {
	service  *AuthService
	users    *fakeUserRepo
	userLogs *fakeUserLogRepo
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	users := newFakeUserRepo(now)
	userLogs := newFakeUserLogRepo(now)
	ticketLogs := newFakeTicketLogRepo(now)
	logger := zap.NewNop()

	svc := NewAuthService(AuthDependencies{
		UserRepo:   users,
		Audit:      NewAuditLogger(userLogs, ticketLogs, logger),
		Tx:         fakeTxManager{},
		Tokens:     auth.NewTokenManager("test-secret", 60),
		BcryptCost: bcrypt.MinCost,
		Logger:     logger,
	})
	return &authFixture{service: svc, users: users, userLogs: userLogs}
}

func TestRegisterDefaultsToContractor(t *testing.T) {
	f := newAuthFixture(t)

	user, err := f.service.Register(context.Background(), RegisterInput{
		Email:    "carol@fieldops.test",
		Name:     "Carol",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleContractor, user.Role)
	assert.True(t, user.Active)
	assert.NotEqual(t, "hunter2hunter2", user.PasswordHash)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	input := RegisterInput{Email: "carol@fieldops.test", Password: "hunter2hunter2"}
	_, err := f.service.Register(ctx, input)
	require.NoError(t, err)

	_, err = f.service.Register(ctx, input)
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "CONFLICT", domainErr.Code)
}

func TestLoginIssuesTokenAndAuditsIP(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.service.Register(ctx, RegisterInput{Email: "carol@fieldops.test", Password: "hunter2hunter2"})
	require.NoError(t, err)

	ip := "203.0.113.9"
	session, err := f.service.Login(ctx, "carol@fieldops.test", "hunter2hunter2", &ip)
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "carol@fieldops.test", session.User.Email)

	require.Len(t, f.userLogs.entries, 1)
	entry := f.userLogs.entries[0]
	assert.Equal(t, domain.UserActionLogin, entry.Action)
	require.NotNil(t, entry.IPAddress)
	assert.Equal(t, ip, *entry.IPAddress)
}

func TestLoginRejectsBadCredentialsAndInactive(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, err := f.service.Register(ctx, RegisterInput{Email: "carol@fieldops.test", Password: "hunter2hunter2"})
	require.NoError(t, err)

	_, err = f.service.Login(ctx, "carol@fieldops.test", "wrong", nil)
	require.Error(t, err)

	_, err = f.service.Login(ctx, "nobody@fieldops.test", "hunter2hunter2", nil)
	require.Error(t, err)

	user.Active = false
	require.NoError(t, f.users.Update(ctx, user))
	_, err = f.service.Login(ctx, "carol@fieldops.test", "hunter2hunter2", nil)
	require.Error(t, err)
}

func TestChangePasswordVerifiesCurrent(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, err := f.service.Register(ctx, RegisterInput{Email: "carol@fieldops.test", Password: "hunter2hunter2"})
	require.NoError(t, err)
	actor := domain.ActorFromUser(user)

	err = f.service.ChangePassword(ctx, actor, "wrong-password", "newpassword1", nil)
	assert.True(t, apperrors.IsValidationError(err))

	err = f.service.ChangePassword(ctx, actor, "hunter2hunter2", "short", nil)
	assert.True(t, apperrors.IsValidationError(err))

	require.NoError(t, f.service.ChangePassword(ctx, actor, "hunter2hunter2", "newpassword1", nil))
	_, err = f.service.Login(ctx, "carol@fieldops.test", "newpassword1", nil)
	require.NoError(t, err)
}

func TestSetTwoFactorAuditsTransitions(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, err := f.service.Register(ctx, RegisterInput{Email: "carol@fieldops.test", Password: "hunter2hunter2"})
	require.NoError(t, err)
	actor := domain.ActorFromUser(user)

	updated, err := f.service.SetTwoFactor(ctx, actor, true, nil)
	require.NoError(t, err)
	assert.True(t, updated.TwoFactorEnabled)

	// Enabling again is a no-op and writes no extra log.
	_, err = f.service.SetTwoFactor(ctx, actor, true, nil)
	require.NoError(t, err)

	require.Len(t, f.userLogs.entries, 1)
	assert.Equal(t, domain.UserActionTwoFactorEnable, f.userLogs.entries[0].Action)
}

func TestAdminUpdateUserRequiresAdmin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	admin := f.users.add(domain.User{Email: "admin@fieldops.test", Role: domain.RoleAdmin, Active: true})
	user, err := f.service.Register(ctx, RegisterInput{Email: "carol@fieldops.test", Password: "hunter2hunter2"})
	require.NoError(t, err)

	inactive := false
	_, err = f.service.AdminUpdateUser(ctx, domain.ActorFromUser(user), admin.ID, AdminUpdateUserInput{Active: &inactive})
	assert.True(t, apperrors.IsPermissionDenied(err))

	updated, err := f.service.AdminUpdateUser(ctx, domain.ActorFromUser(admin), user.ID, AdminUpdateUserInput{Active: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.Active)
}

func TestAdminUpdateUserAuditsChanges(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	admin := f.users.add(domain.User{Email: "admin@fieldops.test", Role: domain.RoleAdmin, Active: true})
	user, err := f.service.Register(ctx, RegisterInput{Email: "carol@fieldops.test", Password: "hunter2hunter2"})
	require.NoError(t, err)

	role := domain.RoleAdmin
	inactive := false
	_, err = f.service.AdminUpdateUser(ctx, domain.ActorFromUser(admin), user.ID, AdminUpdateUserInput{
		Role:   &role,
		Active: &inactive,
	})
	require.NoError(t, err)

	require.Len(t, f.userLogs.entries, 1)
	entry := f.userLogs.entries[0]
	assert.Equal(t, user.ID, entry.UserID)
	assert.Equal(t, domain.UserActionProfileUpdate, entry.Action)
	assert.Equal(t, admin.ID, entry.Details["changed_by"])
	changes, ok := entry.Details["changes"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, changes, "role")
	assert.Contains(t, changes, "active")

	// Submitting current values again writes no extra log.
	_, err = f.service.AdminUpdateUser(ctx, domain.ActorFromUser(admin), user.ID, AdminUpdateUserInput{Active: &inactive})
	require.NoError(t, err)
	assert.Len(t, f.userLogs.entries, 1)
}
