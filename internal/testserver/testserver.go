// Package testserver hosts an in-process stand-in for the Poulin Pay
// backend, close enough to the real API for client tests: JWT bearer
// auth, DRF-shaped validation bodies, and paginated or bare list
// responses.
package testserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/poulinpay/poulinpay/internal/models"
	"github.com/sirupsen/logrus"
)

type account struct {
	user     models.User
	password string
}

type Server struct {
	secret []byte
	logger *logrus.Logger

	mu        sync.Mutex
	accounts  map[string]*account
	companies []models.Company
	customers []models.Customer
	invoices  []models.Invoice
	links     map[int64]models.PaymentLink
	nextID    int64

	// BareLists switches list endpoints from the paginated envelope to
	// a bare JSON array; the client must accept both shapes.
	BareLists bool

	forced   map[string]int
	requests atomic.Int64
}

func New(logger *logrus.Logger) *Server {
	return &Server{
		secret:   []byte("poulin-test-signing-secret-0123456789ab"),
		logger:   logger,
		accounts: make(map[string]*account),
		links:    make(map[int64]models.PaymentLink),
		forced:   make(map[string]int),
	}
}

// Handler returns the routed API under the same /api prefix the real
// backend uses.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/auth/register/", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/auth/login/", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/auth/reset-password/", s.handleResetPassword).Methods(http.MethodPost)
	api.Handle("/auth/profile/", s.requireAuth(http.HandlerFunc(s.handleProfile))).Methods(http.MethodGet)

	api.Handle("/companies/", s.requireAuth(http.HandlerFunc(s.handleCompanies))).Methods(http.MethodGet, http.MethodPost)
	api.Handle("/companies/{id:[0-9]+}/", s.requireAuth(http.HandlerFunc(s.handleUpdateCompany))).Methods(http.MethodPatch)
	api.Handle("/customers/", s.requireAuth(http.HandlerFunc(s.handleCustomers))).Methods(http.MethodGet, http.MethodPost)
	api.Handle("/invoices/", s.requireAuth(http.HandlerFunc(s.handleInvoices))).Methods(http.MethodGet, http.MethodPost)
	api.Handle("/invoices/{id:[0-9]+}/create_payment_link/", s.requireAuth(http.HandlerFunc(s.handleCreatePaymentLink))).Methods(http.MethodPost)
	api.Handle("/payment-links/", s.requireAuth(http.HandlerFunc(s.handlePaymentLinks))).Methods(http.MethodGet)

	return s.countRequests(r)
}

// Force makes the named operation fail with the given status and a
// DRF-style detail body; a non-positive status clears the failure.
// Keys: list_companies, list_customers, list_invoices,
// create_payment_link, profile.
func (s *Server) Force(key string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status <= 0 {
		delete(s.forced, key)
		return
	}
	s.forced[key] = status
}

// RequestCount reports how many requests reached the server, forced
// failures included.
func (s *Server) RequestCount() int64 {
	return s.requests.Load()
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) forcedStatus(key string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.forced[key]
	return status, ok
}

func (s *Server) failIfForced(w http.ResponseWriter, key string) bool {
	if status, ok := s.forcedStatus(key); ok {
		s.respondJSON(w, status, map[string]string{"detail": "Forced failure."})
		return true
	}
	return false
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, err := s.verifyBearer(r.Header.Get("Authorization"))
		if err != nil {
			s.logger.WithError(err).Debug("Bearer verification failed")
			s.respondJSON(w, http.StatusUnauthorized, map[string]string{
				"detail": "Authentication credentials were not provided.",
			})
			return
		}

		s.mu.Lock()
		_, known := s.accounts[email]
		s.mu.Unlock()
		if !known {
			s.respondJSON(w, http.StatusUnauthorized, map[string]string{
				"detail": "User not found",
			})
			return
		}

		r.Header.Set("X-Test-User", email)
		next.ServeHTTP(w, r)
	})
}

type claims struct {
	Email string `json:"email"`
	Type  string `json:"type"`
	jwt.RegisteredClaims
}

func (s *Server) issueTokens(email string) models.TokenPair {
	now := time.Now()

	sign := func(tokenType string, ttl time.Duration) string {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims{
			Email: email,
			Type:  tokenType,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   email,
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			},
		})
		signed, err := token.SignedString(s.secret)
		if err != nil {
			s.logger.WithError(err).Error("Failed to sign test token")
		}
		return signed
	}

	return models.TokenPair{
		Access:  sign("access", 24*time.Hour),
		Refresh: sign("refresh", 7*24*time.Hour),
	}
}

func (s *Server) verifyBearer(header string) (string, error) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return "", errMissingBearer
	}

	token, err := jwt.ParseWithClaims(header[len(prefix):], &claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errBadSigningMethod
		}
		return s.secret, nil
	})
	if err != nil {
		return "", err
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid || c.Type != "access" {
		return "", errInvalidToken
	}
	return c.Email, nil
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.WithError(err).Error("Failed to encode test response")
		}
	}
}

// respondList mirrors the two shapes the real backend produces.
func (s *Server) respondList(w http.ResponseWriter, items any, count int) {
	if s.BareLists {
		s.respondJSON(w, http.StatusOK, items)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"count":    count,
		"next":     nil,
		"previous": nil,
		"results":  items,
	})
}

func (s *Server) allocID() int64 {
	s.nextID++
	return s.nextID
}
