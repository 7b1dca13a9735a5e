package testserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/poulinpay/poulinpay/internal/models"
)

var (
	errMissingBearer    = errors.New("missing bearer header")
	errBadSigningMethod = errors.New("unexpected signing method")
	errInvalidToken     = errors.New("invalid token")
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid request body"})
		return
	}

	if req.Email == "" {
		s.respondJSON(w, http.StatusBadRequest, map[string][]string{"email": {"This field is required."}})
		return
	}
	if req.Password != req.Password2 {
		s.respondJSON(w, http.StatusBadRequest, map[string][]string{"password": {"Password fields didn't match."}})
		return
	}

	s.mu.Lock()
	if _, exists := s.accounts[req.Email]; exists {
		s.mu.Unlock()
		s.respondJSON(w, http.StatusBadRequest, map[string][]string{"email": {"user with this email already exists."}})
		return
	}

	username := req.Username
	if username == "" {
		username = req.Email
	}
	user := models.User{
		ID:         s.allocID(),
		Email:      req.Email,
		Username:   username,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		IsActive:   true,
		DateJoined: time.Now().UTC(),
	}
	s.accounts[req.Email] = &account{user: user, password: req.Password}
	s.mu.Unlock()

	pair := s.issueTokens(req.Email)
	s.respondJSON(w, http.StatusCreated, map[string]any{
		"user":    user,
		"access":  pair.Access,
		"refresh": pair.Refresh,
		"message": "User registered successfully",
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid request body"})
		return
	}

	s.mu.Lock()
	acct, ok := s.accounts[req.Email]
	s.mu.Unlock()
	if !ok || acct.password != req.Password {
		s.respondJSON(w, http.StatusUnauthorized, map[string]string{
			"detail": "No active account found with the given credentials",
		})
		return
	}

	pair := s.issueTokens(req.Email)
	s.respondJSON(w, http.StatusOK, map[string]string{
		"access":  pair.Access,
		"refresh": pair.Refresh,
	})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid request body"})
		return
	}

	if req.NewPassword != req.NewPassword2 {
		s.respondJSON(w, http.StatusBadRequest, map[string][]string{"new_password": {"Password fields didn't match."}})
		return
	}

	s.mu.Lock()
	acct, ok := s.accounts[req.Email]
	if ok {
		acct.password = req.NewPassword
	}
	s.mu.Unlock()

	if !ok {
		s.respondJSON(w, http.StatusBadRequest, map[string][]string{"email": {"No user found with this email."}})
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Password reset successful"})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	if s.failIfForced(w, "profile") {
		return
	}

	s.mu.Lock()
	acct := s.accounts[r.Header.Get("X-Test-User")]
	s.mu.Unlock()

	s.respondJSON(w, http.StatusOK, acct.user)
}

func (s *Server) handleCompanies(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
			s.respondJSON(w, http.StatusBadRequest, map[string][]string{"name": {"This field is required."}})
			return
		}

		s.mu.Lock()
		company := models.Company{ID: s.allocID(), Name: req.Name, CreatedAt: time.Now().UTC()}
		s.companies = append(s.companies, company)
		s.mu.Unlock()

		s.respondJSON(w, http.StatusCreated, company)
		return
	}

	if s.failIfForced(w, "list_companies") {
		return
	}

	s.mu.Lock()
	items := append([]models.Company(nil), s.companies...)
	s.mu.Unlock()
	s.respondList(w, items, len(items))
}

func (s *Server) handleUpdateCompany(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid request body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.companies {
		if s.companies[i].ID == id {
			if req.Name != "" {
				s.companies[i].Name = req.Name
			}
			s.respondJSON(w, http.StatusOK, s.companies[i])
			return
		}
	}
	s.respondJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
}

func (s *Server) handleCustomers(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req models.CreateCustomerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid request body"})
			return
		}
		if req.FullName == "" {
			s.respondJSON(w, http.StatusBadRequest, map[string][]string{"full_name": {"This field is required."}})
			return
		}

		s.mu.Lock()
		customer := models.Customer{
			ID:        s.allocID(),
			Company:   req.Company,
			FullName:  req.FullName,
			Phone:     req.Phone,
			Email:     req.Email,
			CreatedAt: time.Now().UTC(),
		}
		s.customers = append(s.customers, customer)
		s.mu.Unlock()

		s.respondJSON(w, http.StatusCreated, customer)
		return
	}

	if s.failIfForced(w, "list_customers") {
		return
	}

	s.mu.Lock()
	items := append([]models.Customer(nil), s.customers...)
	s.mu.Unlock()
	s.respondList(w, items, len(items))
}

func (s *Server) handleInvoices(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req models.CreateInvoiceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid request body"})
			return
		}
		if req.Customer == 0 {
			s.respondJSON(w, http.StatusBadRequest, map[string][]string{"customer": {"This field is required."}})
			return
		}
		if req.TotalAmount <= 0 {
			s.respondJSON(w, http.StatusBadRequest, map[string][]string{"total_amount": {"This field is required."}})
			return
		}

		s.mu.Lock()
		invoice := models.Invoice{
			ID:          s.allocID(),
			Company:     req.Company,
			Customer:    req.Customer,
			TotalAmount: req.TotalAmount,
			Status:      models.InvoiceStatusPending,
			CreatedAt:   time.Now().UTC(),
		}
		s.invoices = append(s.invoices, invoice)
		s.mu.Unlock()

		s.respondJSON(w, http.StatusCreated, invoice)
		return
	}

	if s.failIfForced(w, "list_invoices") {
		return
	}

	s.mu.Lock()
	items := make([]models.Invoice, len(s.invoices))
	copy(items, s.invoices)
	for i := range items {
		if link, ok := s.links[items[i].ID]; ok {
			l := link
			items[i].PaymentLink = &l
		}
	}
	s.mu.Unlock()
	s.respondList(w, items, len(items))
}

func (s *Server) handleCreatePaymentLink(w http.ResponseWriter, r *http.Request) {
	if s.failIfForced(w, "create_payment_link") {
		return
	}

	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

	var req models.CreatePaymentLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid request body"})
		return
	}
	if req.ExpiresInDays == 0 {
		req.ExpiresInDays = 30
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var invoice *models.Invoice
	for i := range s.invoices {
		if s.invoices[i].ID == id {
			invoice = &s.invoices[i]
			break
		}
	}
	if invoice == nil {
		s.respondJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	if invoice.Status == models.InvoiceStatusPaid {
		s.respondJSON(w, http.StatusBadRequest, map[string][]string{
			"invoice": {"Cannot create payment link for already paid invoice."},
		})
		return
	}

	expiresAt := time.Now().UTC().Add(time.Duration(req.ExpiresInDays) * 24 * time.Hour)

	// Same get_or_create semantics as the backend: a retry refreshes the
	// existing link instead of minting a second one.
	link, ok := s.links[id]
	if !ok {
		token := uuid.NewString()
		link = models.PaymentLink{
			ID:      s.allocID(),
			Invoice: id,
			Token:   token,
		}
	}
	link.ExpiresAt = expiresAt
	link.IsUsed = false
	link.PaymentURL = "/payment/" + link.Token
	s.links[id] = link

	s.respondJSON(w, http.StatusCreated, link)
}

func (s *Server) handlePaymentLinks(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	items := make([]models.PaymentLink, 0, len(s.links))
	for _, link := range s.links {
		items = append(items, link)
	}
	s.mu.Unlock()
	s.respondList(w, items, len(items))
}

// Seed helpers for tests.

func (s *Server) SeedUser(email, password, firstName, lastName string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := models.User{
		ID:         s.allocID(),
		Email:      email,
		Username:   email,
		FirstName:  firstName,
		LastName:   lastName,
		IsActive:   true,
		DateJoined: time.Now().UTC(),
	}
	s.accounts[email] = &account{user: user, password: password}
	return user
}

func (s *Server) SeedCompany(name string) models.Company {
	s.mu.Lock()
	defer s.mu.Unlock()
	company := models.Company{ID: s.allocID(), Name: name, CreatedAt: time.Now().UTC()}
	s.companies = append(s.companies, company)
	return company
}

func (s *Server) SeedCustomer(companyID int64, fullName, phone string) models.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	customer := models.Customer{
		ID:        s.allocID(),
		Company:   companyID,
		FullName:  fullName,
		Phone:     phone,
		CreatedAt: time.Now().UTC(),
	}
	s.customers = append(s.customers, customer)
	return customer
}

func (s *Server) SeedInvoice(companyID, customerID, amount int64, status string) models.Invoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	invoice := models.Invoice{
		ID:          s.allocID(),
		Company:     companyID,
		Customer:    customerID,
		TotalAmount: amount,
		Status:      status,
		CreatedAt:   time.Now().UTC(),
	}
	s.invoices = append(s.invoices, invoice)
	return invoice
}

// AccessTokenFor issues a valid access token for a seeded user, for
// tests that start from an authenticated state.
func (s *Server) AccessTokenFor(email string) models.TokenPair {
	return s.issueTokens(email)
}

// InvoiceByID returns a copy of the stored invoice, for asserting that
// a failed link step left the invoice untouched.
func (s *Server) InvoiceByID(id int64) (models.Invoice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, invoice := range s.invoices {
		if invoice.ID == id {
			return invoice, true
		}
	}
	return models.Invoice{}, false
}
