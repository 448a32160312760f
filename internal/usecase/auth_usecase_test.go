package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pawmarket-backend/internal/domain"
	"pawmarket-backend/pkg/utils"
)

type fakeUserRepo struct {
	byEmail map[string]*domain.User
	byID    map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: map[string]*domain.User{}, byID: map[string]*domain.User{}}
}

func (f *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	f.byEmail[user.Email] = user
	f.byID[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return f.byEmail[email], nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	return f.byID[id], nil
}

func TestRegisterAndLogin(t *testing.T) {
	utils.SetSecret("test-secret")
	repo := newFakeUserRepo()
	uc := NewAuthUsecase(repo, time.Hour)

	user, err := uc.Register(context.Background(), "Ops@Example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", user.Email)
	assert.Equal(t, "viewer", user.Role)
	assert.NotEqual(t, "correct-horse", user.PasswordHash)

	token, logged, err := uc.Login(context.Background(), "ops@example.com", "correct-horse")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, user.ID, logged.ID)

	me, err := uc.Me(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, me.Email)
}

func TestRegisterValidation(t *testing.T) {
	uc := NewAuthUsecase(newFakeUserRepo(), time.Hour)

	_, err := uc.Register(context.Background(), "not-an-email", "longenough")
	assert.Error(t, err)

	_, err = uc.Register(context.Background(), "ok@example.com", "short")
	assert.Error(t, err)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newFakeUserRepo()
	uc := NewAuthUsecase(repo, time.Hour)

	_, err := uc.Register(context.Background(), "ops@example.com", "correct-horse")
	require.NoError(t, err)

	_, err = uc.Register(context.Background(), "ops@example.com", "another-pass")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	utils.SetSecret("test-secret")
	repo := newFakeUserRepo()
	uc := NewAuthUsecase(repo, time.Hour)

	_, _, err := uc.Login(context.Background(), "ghost@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = uc.Register(context.Background(), "ops@example.com", "correct-horse")
	require.NoError(t, err)

	_, _, err = uc.Login(context.Background(), "ops@example.com", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
