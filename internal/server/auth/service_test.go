package auth

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iudanet/taskauth/internal/crypto"
	"github.com/iudanet/taskauth/internal/models"
	"github.com/iudanet/taskauth/internal/server/jwt"
	"github.com/iudanet/taskauth/internal/server/storage"
	"github.com/iudanet/taskauth/internal/server/storage/sqlite"
	"github.com/iudanet/taskauth/internal/validation"
)

const (
	testAccessTTL  = 15 * time.Minute
	testRefreshTTL = 7 * 24 * time.Hour
)

// setupTestLogger creates a logger for testing
func setupTestLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelError,
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// testClock is a manually advanced clock safe for concurrent readers
type testClock struct {
	now time.Time
	mu  sync.RWMutex
}

func (c *testClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	service  *Service
	store    *sqlite.Storage
	codec    *jwt.Codec
	clock    *testClock
	recorder *RecorderMock
}

func setupTestService(t *testing.T) *testEnv {
	t.Helper()
	return setupTestServiceWithUsers(t, nil)
}

// setupTestServiceWithUsers позволяет подменить хранилище пользователей
func setupTestServiceWithUsers(t *testing.T, wrap func(storage.UserStorage) storage.UserStorage) *testEnv {
	t.Helper()

	ctx := context.Background()
	store, err := sqlite.New(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	clock := &testClock{now: time.Unix(1_700_000_000, 0)}

	codec, err := jwt.NewCodec(jwt.Config{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     testAccessTTL,
		RefreshTTL:    testRefreshTTL,
		Now:           clock.Now,
	})
	require.NoError(t, err)

	recorder := &RecorderMock{
		AuthOperationFunc:        func(operation string, outcome string) {},
		RefreshReuseDetectedFunc: func() {},
	}

	var users storage.UserStorage = store
	if wrap != nil {
		users = wrap(store)
	}

	service, err := NewService(setupTestLogger(), users, store, codec, Config{
		PasswordCost: bcrypt.MinCost,
		Now:          clock.Now,
		Metrics:      recorder,
	})
	require.NoError(t, err)

	return &testEnv{
		service:  service,
		store:    store,
		codec:    codec,
		clock:    clock,
		recorder: recorder,
	}
}

func requireAuthError(t *testing.T, err error, kind error, message string) {
	t.Helper()

	require.Error(t, err)
	assert.ErrorIs(t, err, kind)

	var authErr *Error
	require.True(t, errors.As(err, &authErr), "expected *auth.Error, got %T", err)
	assert.Equal(t, message, authErr.Message)
}

func TestNewService_InvalidCost(t *testing.T) {
	_, err := NewService(setupTestLogger(), nil, nil, nil, Config{PasswordCost: 100})
	require.Error(t, err)
}

func TestService_Register(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	res, err := env.service.Register(ctx, "  Ada@Example.com ", "password1", " Ada ")
	require.NoError(t, err)

	assert.NotEmpty(t, res.User.ID)
	assert.Equal(t, "ada@example.com", res.User.Email)
	assert.Equal(t, "Ada", res.User.Name)
	assert.NotEqual(t, "password1", res.User.PasswordHash)
	assert.True(t, crypto.VerifyPassword("password1", res.User.PasswordHash))
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, env.clock.Now().Add(testRefreshTTL), res.RefreshExpiresAt)
	assert.Equal(t, env.clock.Now().Add(testAccessTTL), res.AccessExpiresAt)

	access, err := env.codec.VerifyAccess(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, access.UserID())
	assert.Equal(t, "ada@example.com", access.Email)

	// в БД хранится только хеш refresh токена
	refresh, err := env.codec.VerifyRefresh(res.RefreshToken)
	require.NoError(t, err)
	session, err := env.store.GetSession(ctx, refresh.SessionID())
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, session.UserID)
	assert.Equal(t, crypto.HashRefreshToken(res.RefreshToken), session.TokenHash)
	assert.NotEqual(t, res.RefreshToken, session.TokenHash)
	assert.False(t, session.Revoked)

	require.Len(t, env.recorder.AuthOperationCalls(), 1)
	assert.Equal(t, OpRegister, env.recorder.AuthOperationCalls()[0].Operation)
	assert.Equal(t, outcomeSuccess, env.recorder.AuthOperationCalls()[0].Outcome)
}

func TestService_Register_Validation(t *testing.T) {
	env := setupTestService(t)

	tests := []struct {
		name     string
		email    string
		password string
		userName string
		fields   []string
	}{
		{name: "bad email", email: "not-an-email", password: "password1", userName: "Ada", fields: []string{"email"}},
		{name: "short password", email: "a@x.com", password: "short", userName: "Ada", fields: []string{"password"}},
		{name: "short name", email: "a@x.com", password: "password1", userName: " A ", fields: []string{"name"}},
		{name: "everything", email: "", password: "", userName: "", fields: []string{"email", "password", "name"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.service.Register(context.Background(), tt.email, tt.password, tt.userName)
			require.Error(t, err)

			var verr *validation.Error
			require.True(t, errors.As(err, &verr))
			assert.Len(t, verr.Fields, len(tt.fields))
			for _, field := range tt.fields {
				assert.Contains(t, verr.Fields, field)
			}
		})
	}

	_, err := env.store.GetUserByEmail(context.Background(), "a@x.com")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestService_Register_Duplicate(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	first, err := env.service.Register(ctx, "a@x.com", "password1", "Ada")
	require.NoError(t, err)

	_, err = env.service.Register(ctx, "A@X.COM", "password2", "Other")
	requireAuthError(t, err, ErrConflict, MsgEmailTaken)

	user, err := env.store.GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, user.ID)
	assert.Equal(t, "Ada", user.Name)

	calls := env.recorder.AuthOperationCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, outcomeFailure, calls[1].Outcome)
}

func TestService_Login(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	reg, err := env.service.Register(ctx, "a@x.com", "password1", "Ada")
	require.NoError(t, err)

	res, err := env.service.Login(ctx, "A@x.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, res.User.ID)

	// каждый вход открывает новую независимую цепочку
	regClaims, err := env.codec.VerifyRefresh(reg.RefreshToken)
	require.NoError(t, err)
	loginClaims, err := env.codec.VerifyRefresh(res.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, regClaims.SessionID(), loginClaims.SessionID())
}

func TestService_Login_Failures(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	_, err := env.service.Register(ctx, "a@x.com", "password1", "Ada")
	require.NoError(t, err)

	t.Run("wrong password", func(t *testing.T) {
		_, err := env.service.Login(ctx, "a@x.com", "password2")
		requireAuthError(t, err, ErrUnauthorized, MsgInvalidCredentials)
	})

	t.Run("unknown user gets the same error", func(t *testing.T) {
		_, err := env.service.Login(ctx, "nobody@x.com", "password1")
		requireAuthError(t, err, ErrUnauthorized, MsgInvalidCredentials)
	})

	t.Run("malformed input", func(t *testing.T) {
		_, err := env.service.Login(ctx, "a@x.com", "")
		var verr *validation.Error
		require.True(t, errors.As(err, &verr))
		assert.Contains(t, verr.Fields, "password")
	})
}

func TestService_Refresh_Rotates(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	reg, err := env.service.Register(ctx, "a@x.com", "password1", "Ada")
	require.NoError(t, err)

	env.clock.Advance(time.Minute)

	res, err := env.service.Refresh(ctx, reg.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, res.User.ID)
	assert.NotEqual(t, reg.RefreshToken, res.RefreshToken)
	assert.NotEqual(t, reg.AccessToken, res.AccessToken)
	assert.Equal(t, env.clock.Now().Add(testRefreshTTL), res.RefreshExpiresAt)

	oldClaims, err := env.codec.VerifyRefresh(reg.RefreshToken)
	require.NoError(t, err)
	old, err := env.store.GetSession(ctx, oldClaims.SessionID())
	require.NoError(t, err)
	assert.True(t, old.Revoked)

	// повторное использование старого токена ничего не выпускает
	_, err = env.service.Refresh(ctx, reg.RefreshToken)
	requireAuthError(t, err, ErrUnauthorized, MsgRefreshNoLongerValid)

	// новый токен продолжает цепочку
	next, err := env.service.Refresh(ctx, res.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, res.RefreshToken, next.RefreshToken)
}

func TestService_Refresh_Rejections(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	reg, err := env.service.Register(ctx, "a@x.com", "password1", "Ada")
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		message string
	}{
		{name: "missing", token: "", message: MsgRefreshMissing},
		{name: "garbage", token: "not-a-jwt", message: MsgRefreshInvalid},
		{name: "access token instead of refresh", token: reg.AccessToken, message: MsgRefreshInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.service.Refresh(ctx, tt.token)
			requireAuthError(t, err, ErrUnauthorized, tt.message)
		})
	}
}

func TestService_Refresh_Expired(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	reg, err := env.service.Register(ctx, "a@x.com", "password1", "Ada")
	require.NoError(t, err)

	env.clock.Advance(testRefreshTTL + time.Second)

	_, err = env.service.Refresh(ctx, reg.RefreshToken)
	requireAuthError(t, err, ErrUnauthorized, MsgRefreshInvalid)
}

func TestService_Refresh_UnknownSession(t *testing.T) {
	env := setupTestService(t)

	// подпись верна, но такой сессии в хранилище нет
	token, _, err := env.codec.SignRefresh("user-1", "01HZZZZZZZZZZZZZZZZZZZZZZZ")
	require.NoError(t, err)

	_, err = env.service.Refresh(context.Background(), token)
	requireAuthError(t, err, ErrUnauthorized, MsgRefreshNoLongerValid)
}

func TestService_Refresh_HashMismatchRevokes(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	reg, err := env.service.Register(ctx, "a@x.com", "password1", "Ada")
	require.NoError(t, err)

	session := &models.Session{
		ID:        "01HMISMATCHSESSION00000000",
		UserID:    reg.User.ID,
		TokenHash: crypto.HashRefreshToken("some other token"),
		ExpiresAt: env.clock.Now().Add(time.Hour),
		CreatedAt: env.clock.Now(),
	}
	require.NoError(t, env.store.CreateSession(ctx, session))

	token, _, err := env.codec.SignRefresh(reg.User.ID, session.ID)
	require.NoError(t, err)

	_, err = env.service.Refresh(ctx, token)
	requireAuthError(t, err, ErrUnauthorized, MsgRefreshMismatch)

	stored, err := env.store.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, stored.Revoked)
	assert.Len(t, env.recorder.RefreshReuseDetectedCalls(), 1)
}

// missingUsers делает вид, что пользователь удален
type missingUsers struct {
	storage.UserStorage
}

func (missingUsers) GetUserByID(context.Context, string) (*models.User, error) {
	return nil, storage.ErrUserNotFound
}

func TestService_Refresh_UserGone(t *testing.T) {
	env := setupTestServiceWithUsers(t, func(u storage.UserStorage) storage.UserStorage {
		return missingUsers{UserStorage: u}
	})
	ctx := context.Background()

	reg, err := env.service.Register(ctx, "a@x.com", "password1", "Ada")
	require.NoError(t, err)

	_, err = env.service.Refresh(ctx, reg.RefreshToken)
	requireAuthError(t, err, ErrNotFound, MsgUserNotFound)

	_, err = env.service.User(ctx, reg.User.ID)
	requireAuthError(t, err, ErrNotFound, MsgUserNotFound)
}

func TestService_Refresh_ConcurrentSingleWinner(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	reg, err := env.service.Register(ctx, "a@x.com", "password1", "Ada")
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.service.Refresh(ctx, reg.RefreshToken)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	success := 0
	for err := range results {
		if err == nil {
			success++
			continue
		}
		requireAuthError(t, err, ErrUnauthorized, MsgRefreshNoLongerValid)
	}
	assert.Equal(t, 1, success)

	var live int
	require.NoError(t, env.store.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE user_id = ? AND revoked = 0`, reg.User.ID).Scan(&live))
	assert.Equal(t, 1, live)
}

func TestService_Logout(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	reg, err := env.service.Register(ctx, "a@x.com", "password1", "Ada")
	require.NoError(t, err)

	env.service.Logout(ctx, reg.RefreshToken)

	_, err = env.service.Refresh(ctx, reg.RefreshToken)
	requireAuthError(t, err, ErrUnauthorized, MsgRefreshNoLongerValid)

	// повторный выход и мусор не паникуют и ничего не ломают
	assert.NotPanics(t, func() {
		env.service.Logout(ctx, reg.RefreshToken)
		env.service.Logout(ctx, "")
		env.service.Logout(ctx, "garbage")
		env.service.Logout(ctx, reg.AccessToken)
	})
}

func TestService_Logout_OnlyThatLineage(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	first, err := env.service.Register(ctx, "a@x.com", "password1", "Ada")
	require.NoError(t, err)
	second, err := env.service.Login(ctx, "a@x.com", "password1")
	require.NoError(t, err)

	env.service.Logout(ctx, first.RefreshToken)

	_, err = env.service.Refresh(ctx, second.RefreshToken)
	assert.NoError(t, err)
}

func TestService_SweepExpired(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	_, err := env.service.Register(ctx, "a@x.com", "password1", "Ada")
	require.NoError(t, err)

	deleted, err := env.service.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)

	env.clock.Advance(testRefreshTTL + time.Minute)

	deleted, err = env.service.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
}

func TestService_RunSweeperStops(t *testing.T) {
	env := setupTestService(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		env.service.RunSweeper(ctx, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
