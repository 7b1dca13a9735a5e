package service

import (
	"context"

	"github.com/poulinpay/poulinpay/internal/gateway"
	"github.com/poulinpay/poulinpay/internal/models"
	"github.com/poulinpay/poulinpay/internal/repository"
	"github.com/sirupsen/logrus"
)

const msgPasswordMismatch = "رمزهای عبور یکسان نیستند."

type SessionStatus string

const (
	StatusUnauthenticated SessionStatus = "unauthenticated"
	StatusLoading         SessionStatus = "loading"
	StatusAuthenticated   SessionStatus = "authenticated"
)

// SessionService owns the authenticated-user lifecycle. The user object
// is always derived from a successful profile fetch or an explicit
// logout; a failed login or register leaves the session exactly where
// it was.
type SessionService struct {
	gateway *gateway.Client
	tokens  repository.TokenStore
	logger  *logrus.Logger

	status SessionStatus
	user   *models.User
}

func NewSessionService(gw *gateway.Client, tokens repository.TokenStore, logger *logrus.Logger) *SessionService {
	status := StatusUnauthenticated
	if _, ok := tokens.Get(); ok {
		status = StatusLoading
	}
	return &SessionService{
		gateway: gw,
		tokens:  tokens,
		logger:  logger,
		status:  status,
	}
}

func (s *SessionService) Status() SessionStatus { return s.status }

func (s *SessionService) User() *models.User { return s.user }

// Start resolves a cold start: when a token pair survived from a
// previous run, reload the profile silently. Any failure is treated as
// an expired or invalid token — the pair is cleared and no error is
// surfaced, since there is nothing the user can do about it.
func (s *SessionService) Start(ctx context.Context) {
	if s.status != StatusLoading {
		return
	}

	user, err := s.gateway.Profile(ctx)
	if err != nil {
		s.logger.WithError(err).Debug("Silent profile reload failed, dropping stored session")
		s.dropSession()
		return
	}

	s.user = user
	s.status = StatusAuthenticated
}

// Login authenticates and stores the returned token pair before the
// profile fetch, so anything observing the store already sees a valid
// token by the time the user object appears.
func (s *SessionService) Login(ctx context.Context, email, password string) (*models.User, error) {
	resp, err := s.gateway.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if err := s.tokens.Set(models.TokenPair{Access: resp.Access, Refresh: resp.Refresh}); err != nil {
		return nil, err
	}

	user, err := s.gateway.Profile(ctx)
	if err != nil {
		// The server accepted the credentials but rejected its own
		// token; drop it rather than keep a half-open session.
		s.logger.WithError(err).Warn("Profile fetch failed after login")
		s.dropSession()
		return nil, err
	}

	s.user = user
	s.status = StatusAuthenticated
	return user, nil
}

func (s *SessionService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	if req.Password != req.Password2 {
		return nil, &gateway.PreconditionError{Message: msgPasswordMismatch}
	}

	resp, err := s.gateway.Register(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.tokens.Set(models.TokenPair{Access: resp.Access, Refresh: resp.Refresh}); err != nil {
		return nil, err
	}

	user := resp.User
	if user == nil {
		user, err = s.gateway.Profile(ctx)
		if err != nil {
			s.logger.WithError(err).Warn("Profile fetch failed after registration")
			s.dropSession()
			return nil, err
		}
	}

	s.user = user
	s.status = StatusAuthenticated
	return user, nil
}

// ResetPassword is independent of the session state and performs no
// transition. Mismatched passwords are rejected locally before any
// network call.
func (s *SessionService) ResetPassword(ctx context.Context, email, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return &gateway.PreconditionError{Message: msgPasswordMismatch}
	}

	return s.gateway.ResetPassword(ctx, models.ResetPasswordRequest{
		Email:        email,
		NewPassword:  newPassword,
		NewPassword2: confirmPassword,
	})
}

// Logout always succeeds and needs no network round trip. Calling it on
// an already unauthenticated session is a no-op.
func (s *SessionService) Logout() {
	s.dropSession()
}

func (s *SessionService) dropSession() {
	if err := s.tokens.Clear(); err != nil {
		s.logger.WithError(err).Warn("Failed to clear stored tokens")
	}
	s.user = nil
	s.status = StatusUnauthenticated
}
