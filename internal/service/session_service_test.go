package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/poulinpay/poulinpay/internal/gateway"
	"github.com/poulinpay/poulinpay/internal/models"
	"github.com/poulinpay/poulinpay/internal/repository"
	"github.com/poulinpay/poulinpay/internal/testserver"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

type fixture struct {
	backend *testserver.Server
	gateway *gateway.Client
	tokens  *repository.MemoryTokenStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := testserver.New(testLogger())
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)

	tokens := repository.NewMemoryTokenStore()
	return &fixture{
		backend: backend,
		gateway: gateway.NewClient(srv.URL+"/api", tokens, srv.Client(), testLogger()),
		tokens:  tokens,
	}
}

func (f *fixture) authenticate(t *testing.T, email string) {
	t.Helper()
	require.NoError(t, f.tokens.Set(f.backend.AccessTokenFor(email)))
}

func TestNewSessionService_ColdStartStatus(t *testing.T) {
	f := newFixture(t)

	s := NewSessionService(f.gateway, f.tokens, testLogger())
	require.Equal(t, StatusUnauthenticated, s.Status())

	require.NoError(t, f.tokens.Set(models.TokenPair{Access: "a", Refresh: "r"}))
	s = NewSessionService(f.gateway, f.tokens, testLogger())
	require.Equal(t, StatusLoading, s.Status())
}

func TestStart_ValidTokenLoadsProfile(t *testing.T) {
	f := newFixture(t)
	f.backend.SeedUser("mina@example.com", "pass1234", "Mina", "Karimi")
	f.authenticate(t, "mina@example.com")

	s := NewSessionService(f.gateway, f.tokens, testLogger())
	s.Start(context.Background())

	require.Equal(t, StatusAuthenticated, s.Status())
	require.NotNil(t, s.User())
	require.Equal(t, "mina@example.com", s.User().Email)
}

func TestStart_InvalidTokenClearsStoreSilently(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.tokens.Set(models.TokenPair{Access: "garbage", Refresh: "garbage"}))

	s := NewSessionService(f.gateway, f.tokens, testLogger())
	s.Start(context.Background())

	require.Equal(t, StatusUnauthenticated, s.Status())
	require.Nil(t, s.User())
	_, ok := f.tokens.Get()
	require.False(t, ok)
}

func TestStart_NoTokenIssuesNoRequests(t *testing.T) {
	f := newFixture(t)

	s := NewSessionService(f.gateway, f.tokens, testLogger())
	s.Start(context.Background())

	require.Equal(t, int64(0), f.backend.RequestCount())
	require.Equal(t, StatusUnauthenticated, s.Status())
}

func TestLogin_RoundTrip(t *testing.T) {
	f := newFixture(t)
	f.backend.SeedUser("mina@example.com", "pass1234", "Mina", "Karimi")

	s := NewSessionService(f.gateway, f.tokens, testLogger())
	user, err := s.Login(context.Background(), "mina@example.com", "pass1234")
	require.NoError(t, err)
	require.Equal(t, "mina@example.com", user.Email)
	require.Equal(t, StatusAuthenticated, s.Status())

	// The stored token is the one the server just issued, so a direct
	// profile fetch with it succeeds.
	pair, ok := f.tokens.Get()
	require.True(t, ok)
	require.NotEmpty(t, pair.Access)
	profile, err := f.gateway.Profile(context.Background())
	require.NoError(t, err)
	require.Equal(t, user.ID, profile.ID)
}

func TestLogin_BadCredentials(t *testing.T) {
	f := newFixture(t)
	f.backend.SeedUser("mina@example.com", "pass1234", "", "")

	s := NewSessionService(f.gateway, f.tokens, testLogger())
	_, err := s.Login(context.Background(), "mina@example.com", "wrong")
	require.Error(t, err)

	var verr *gateway.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "No active account found with the given credentials", verr.Message)

	require.Equal(t, StatusUnauthenticated, s.Status())
	_, ok := f.tokens.Get()
	require.False(t, ok)
}

func TestLogin_FailureLeavesExistingSession(t *testing.T) {
	f := newFixture(t)
	f.backend.SeedUser("mina@example.com", "pass1234", "Mina", "Karimi")

	s := NewSessionService(f.gateway, f.tokens, testLogger())
	_, err := s.Login(context.Background(), "mina@example.com", "pass1234")
	require.NoError(t, err)

	_, err = s.Login(context.Background(), "mina@example.com", "wrong")
	require.Error(t, err)
	require.Equal(t, StatusAuthenticated, s.Status())
	require.NotNil(t, s.User())
}

func TestLogin_ProfileFailureDropsTokens(t *testing.T) {
	f := newFixture(t)
	f.backend.SeedUser("mina@example.com", "pass1234", "", "")
	f.backend.Force("profile", http.StatusInternalServerError)

	s := NewSessionService(f.gateway, f.tokens, testLogger())
	_, err := s.Login(context.Background(), "mina@example.com", "pass1234")
	require.Error(t, err)

	require.Equal(t, StatusUnauthenticated, s.Status())
	_, ok := f.tokens.Get()
	require.False(t, ok)
}

func TestRegister_Success(t *testing.T) {
	f := newFixture(t)

	s := NewSessionService(f.gateway, f.tokens, testLogger())
	user, err := s.Register(context.Background(), models.RegisterRequest{
		Email:     "new@example.com",
		Password:  "pass1234",
		Password2: "pass1234",
		FirstName: "Sara",
	})
	require.NoError(t, err)
	require.Equal(t, "Sara", user.FirstName)
	require.Equal(t, StatusAuthenticated, s.Status())

	_, ok := f.tokens.Get()
	require.True(t, ok)
}

func TestRegister_PasswordMismatchIsLocal(t *testing.T) {
	f := newFixture(t)

	s := NewSessionService(f.gateway, f.tokens, testLogger())
	_, err := s.Register(context.Background(), models.RegisterRequest{
		Email:     "new@example.com",
		Password:  "pass1234",
		Password2: "different",
	})

	var perr *gateway.PreconditionError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, msgPasswordMismatch, perr.Message)
	require.Equal(t, int64(0), f.backend.RequestCount())
	require.Equal(t, StatusUnauthenticated, s.Status())
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.backend.SeedUser("taken@example.com", "pass1234", "", "")

	s := NewSessionService(f.gateway, f.tokens, testLogger())
	_, err := s.Register(context.Background(), models.RegisterRequest{
		Email:     "taken@example.com",
		Password:  "pass1234",
		Password2: "pass1234",
	})

	var verr *gateway.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "email: user with this email already exists.", verr.Message)
}

func TestResetPassword_MismatchIssuesNoRequests(t *testing.T) {
	f := newFixture(t)

	s := NewSessionService(f.gateway, f.tokens, testLogger())
	err := s.ResetPassword(context.Background(), "mina@example.com", "newpass", "other")

	var perr *gateway.PreconditionError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, msgPasswordMismatch, perr.Message)
	require.Equal(t, int64(0), f.backend.RequestCount())
}

func TestResetPassword_ThenLoginWithNewPassword(t *testing.T) {
	f := newFixture(t)
	f.backend.SeedUser("mina@example.com", "oldpass1", "", "")

	s := NewSessionService(f.gateway, f.tokens, testLogger())
	require.NoError(t, s.ResetPassword(context.Background(), "mina@example.com", "newpass1", "newpass1"))

	// No session transition happened.
	require.Equal(t, StatusUnauthenticated, s.Status())

	_, err := s.Login(context.Background(), "mina@example.com", "newpass1")
	require.NoError(t, err)
}

func TestLogout_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.backend.SeedUser("mina@example.com", "pass1234", "", "")

	s := NewSessionService(f.gateway, f.tokens, testLogger())
	_, err := s.Login(context.Background(), "mina@example.com", "pass1234")
	require.NoError(t, err)

	before := f.backend.RequestCount()
	s.Logout()
	s.Logout()

	require.Equal(t, StatusUnauthenticated, s.Status())
	require.Nil(t, s.User())
	_, ok := f.tokens.Get()
	require.False(t, ok)
	// Logout is purely local.
	require.Equal(t, before, f.backend.RequestCount())
}
