package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/user/watchwise/internal/apperr"
	"github.com/user/watchwise/internal/model"
	"github.com/user/watchwise/internal/repository"
)

// MockProfileStore ProfileStore 的 mock
type MockProfileStore struct {
	mock.Mock
}

func (m *MockProfileStore) GetProfile(ctx context.Context, uid string) (*model.UserProfile, error) {
	args := m.Called(ctx, uid)
	profile, _ := args.Get(0).(*model.UserProfile)
	return profile, args.Error(1)
}

func (m *MockProfileStore) CreateProfile(ctx context.Context, profile *model.UserProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockProfileStore) AppendWatchlistMarker(ctx context.Context, uid, watchlistID string) error {
	args := m.Called(ctx, uid, watchlistID)
	return args.Error(0)
}

// failingRevocations 吊销总是失败
type failingRevocations struct{}

func (failingRevocations) Revoke(context.Context, string, time.Duration) error {
	return errors.New("revocation store unavailable")
}

func (failingRevocations) IsRevoked(context.Context, string) (bool, error) {
	return false, nil
}

func TestSignUpThenSignIn(t *testing.T) {
	auth, store := newTestAuth(t)
	accounts := NewAccountService(store)
	ctx := context.Background()

	handle := auth.NewHandle()
	defer handle.Close()

	user, err := accounts.SignUp(ctx, handle, "a@b.com", "longenough1", "A B")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", user.Email)
	assert.Equal(t, "A B", user.DisplayName)

	profile, err := store.GetProfile(ctx, user.UID)
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "A B", profile.FullName)
	assert.Equal(t, "a@b.com", profile.Email)
	assert.NotNil(t, profile.Watchlist)
	assert.Empty(t, profile.Watchlist)
	assert.False(t, profile.CreatedAt.IsZero())

	require.NoError(t, accounts.SignOut(ctx, handle))
	assert.Nil(t, handle.CurrentUser())

	signedIn, err := accounts.SignIn(ctx, handle, "a@b.com", "longenough1")
	require.NoError(t, err)
	assert.Equal(t, user.UID, signedIn.UID)
	assert.Equal(t, "A B", signedIn.DisplayName)
	assert.NotNil(t, signedIn.Watchlist)
}

func TestSignInInvalidCredential(t *testing.T) {
	auth, store := newTestAuth(t)
	accounts := NewAccountService(store)
	ctx := context.Background()

	handle := auth.NewHandle()
	defer handle.Close()

	_, err := accounts.SignUp(ctx, handle, "a@b.com", "longenough1", "A B")
	require.NoError(t, err)
	require.NoError(t, accounts.SignOut(ctx, handle))

	for _, tc := range []struct{ email, password string }{
		{"a@b.com", "wrong-password"},
		{"missing@b.com", "longenough1"},
	} {
		_, err := accounts.SignIn(ctx, handle, tc.email, tc.password)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperr.ErrAuth))
		assert.Equal(t, "Invalid email or password", err.Error())
	}
	assert.Nil(t, handle.CurrentUser())
}

func TestSignInWithoutProfile(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	_, err := auth.CreateUser(ctx, "a@b.com", "longenough1", "")
	require.NoError(t, err)

	profiles := new(MockProfileStore)
	profiles.On("GetProfile", mock.Anything, mock.AnythingOfType("string")).Return(nil, nil)
	accounts := NewAccountService(profiles)

	handle := auth.NewHandle()
	defer handle.Close()

	user, err := accounts.SignIn(ctx, handle, "a@b.com", "longenough1")
	require.NoError(t, err)
	assert.Equal(t, "", user.DisplayName)
	assert.Equal(t, []string{}, user.Watchlist)
	profiles.AssertExpectations(t)
}

func TestSignInProfileReadFailure(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	_, err := auth.CreateUser(ctx, "a@b.com", "longenough1", "A B")
	require.NoError(t, err)

	profiles := new(MockProfileStore)
	profiles.On("GetProfile", mock.Anything, mock.Anything).Return(nil, errors.New("permission denied"))
	accounts := NewAccountService(profiles)

	handle := auth.NewHandle()
	defer handle.Close()

	_, err = accounts.SignIn(ctx, handle, "a@b.com", "longenough1")
	require.Error(t, err)
	assert.Equal(t, "permission denied", err.Error())
}

func TestSignUpPassesValidationMessage(t *testing.T) {
	auth, store := newTestAuth(t)
	accounts := NewAccountService(store)

	handle := auth.NewHandle()
	defer handle.Close()

	_, err := accounts.SignUp(context.Background(), handle, "a@b.com", "short", "A B")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	assert.Equal(t, "Password should be at least 6 characters", err.Error())
	assert.Nil(t, handle.CurrentUser())
}

func TestSignUpPartialFailureKeepsIdentity(t *testing.T) {
	auth, store := newTestAuth(t)
	ctx := context.Background()

	profiles := new(MockProfileStore)
	profiles.On("CreateProfile", mock.Anything, mock.AnythingOfType("*model.UserProfile")).Return(errors.New("write rejected"))
	accounts := NewAccountService(profiles)

	handle := auth.NewHandle()
	defer handle.Close()

	_, err := accounts.SignUp(ctx, handle, "a@b.com", "longenough1", "A B")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrPartialSignUp))
	assert.Equal(t, "Account created but profile setup failed", err.Error())

	// 身份已创建且处于登录状态
	current := handle.CurrentUser()
	require.NotNil(t, current)
	cred, err := store.FindByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, current.UID, cred.UID)

	// 补偿任务补建资料
	reconciler := NewReconcileService(store, store, time.Minute)
	reconciler.now = func() time.Time { return time.Now().Add(time.Hour) }
	assert.Equal(t, 1, reconciler.RunOnce(ctx))

	profile, err := store.GetProfile(ctx, cred.UID)
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "A B", profile.FullName)
	assert.Equal(t, "a@b.com", profile.Email)
	assert.Empty(t, profile.Watchlist)

	// 已有资料的账号不会重复处理
	assert.Equal(t, 0, reconciler.RunOnce(ctx))
	profiles.AssertExpectations(t)
}

func TestSignOutFailure(t *testing.T) {
	store := repository.NewMemoryStore()
	auth := NewAuthService(store, failingRevocations{}, testSecret, time.Hour)
	accounts := NewAccountService(store)
	ctx := context.Background()

	handle := auth.NewHandle()
	defer handle.Close()

	_, err := accounts.SignUp(ctx, handle, "a@b.com", "longenough1", "A B")
	require.NoError(t, err)

	err = accounts.SignOut(ctx, handle)
	require.Error(t, err)
	assert.Equal(t, "Failed to sign out", err.Error())
	assert.NotNil(t, handle.CurrentUser())
}
