package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/servicedesk/internal/config"
	"github.com/spec-kit/servicedesk/internal/domain"
	apperrors "github.com/spec-kit/servicedesk/pkg/util"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]domain.User)}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	f.users[user.ID] = *user
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := stored
	return &copied, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			copied := u
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func newAuthService(users *fakeUserRepo) *AuthService {
	cfg := config.Config{}
	cfg.Auth = config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 15,
		BcryptCost:            4,
	}
	return NewAuthService(cfg, AuthDependencies{
		UserRepo:       users,
		TechnicianRepo: newFakeTechnicianRepo(),
	})
}

func TestRegisterAndLogin(t *testing.T) {
	users := newFakeUserRepo()
	svc := newAuthService(users)

	user, token, exp, err := svc.Register(context.Background(), "Dana", "Dana@Example.com ", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.Equal(t, "dana@example.com", user.Email)
	assert.NotEmpty(t, token)
	assert.False(t, exp.IsZero())

	logged, token, _, err := svc.Login(context.Background(), "dana@example.com", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)
	assert.NotEmpty(t, token)
}

func TestRegisterValidation(t *testing.T) {
	svc := newAuthService(newFakeUserRepo())

	_, _, _, err := svc.Register(context.Background(), "", "d@example.com", "hunter2hunter2")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	_, _, _, err = svc.Register(context.Background(), "Dana", "d@example.com", "short")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newAuthService(newFakeUserRepo())

	_, _, _, err := svc.Register(context.Background(), "Dana", "d@example.com", "hunter2hunter2")
	require.NoError(t, err)

	_, _, _, err = svc.Register(context.Background(), "Other Dana", "D@Example.com", "hunter2hunter2")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
}

func TestLoginFailures(t *testing.T) {
	users := newFakeUserRepo()
	svc := newAuthService(users)

	_, _, _, err := svc.Login(context.Background(), "nobody@example.com", "whatever123")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))

	user, _, _, err := svc.Register(context.Background(), "Dana", "d@example.com", "hunter2hunter2")
	require.NoError(t, err)

	_, _, _, err = svc.Login(context.Background(), "d@example.com", "wrong-password")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))

	disabled := *user
	disabled.IsActive = false
	require.NoError(t, users.Create(context.Background(), &disabled))
	_, _, _, err = svc.Login(context.Background(), "d@example.com", "hunter2hunter2")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))
}

func TestCreateAccountRoleValidation(t *testing.T) {
	svc := newAuthService(newFakeUserRepo())

	_, err := svc.CreateAccount(context.Background(), "T", "t@example.com", "hunter2hunter2", domain.Role("superuser"))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	tech, err := svc.CreateAccount(context.Background(), "T", "t@example.com", "hunter2hunter2", domain.RoleTechnician)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleTechnician, tech.Role)
	assert.True(t, tech.IsActive)
}
