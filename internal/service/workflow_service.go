package service

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/poulinpay/poulinpay/internal/gateway"
	"github.com/poulinpay/poulinpay/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	msgRequiredFields = "لطفاً همه فیلدهای الزامی را پر کنید"

	defaultLinkExpiryDays = 30
)

// WorkflowService composes gateway calls into the dashboard's
// multi-step operations: the all-or-nothing bootstrap fan-out and the
// partial-failure-tolerant invoice-then-link sequence.
type WorkflowService struct {
	gateway *gateway.Client
	logger  *logrus.Logger
}

func NewWorkflowService(gw *gateway.Client, logger *logrus.Logger) *WorkflowService {
	return &WorkflowService{
		gateway: gw,
		logger:  logger,
	}
}

// Bootstrap fetches companies, customers and invoices concurrently and
// joins when all three have settled. The three lists are presented
// together, so one failure fails the whole bootstrap rather than
// producing a dashboard built from partial data.
func (s *WorkflowService) Bootstrap(ctx context.Context) (*models.Dashboard, error) {
	var (
		companies []models.Company
		customers []models.Customer
		invoices  []models.Invoice

		companiesErr error
		customersErr error
		invoicesErr  error
	)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		companies, companiesErr = s.gateway.Companies(ctx)
	}()
	go func() {
		defer wg.Done()
		customers, customersErr = s.gateway.Customers(ctx)
	}()
	go func() {
		defer wg.Done()
		invoices, invoicesErr = s.gateway.Invoices(ctx)
	}()
	wg.Wait()

	for _, err := range []error{companiesErr, customersErr, invoicesErr} {
		if err != nil {
			s.logger.WithError(err).Error("Dashboard bootstrap failed")
			return nil, err
		}
	}

	dashboard := &models.Dashboard{
		Customers: customers,
		Invoices:  invoices,
	}
	if len(companies) > 0 {
		dashboard.Company = &companies[0]
	}
	return dashboard, nil
}

// CreateInvoiceWithLink creates an invoice and then immediately
// attempts a payment link for it. The invoice is committed on the
// server regardless of the link outcome: a link failure is recorded on
// the result instead of returned as an error, so callers can tell
// "nothing happened" apart from "invoice created, link needs a retry".
func (s *WorkflowService) CreateInvoiceWithLink(ctx context.Context, companyID, customerID int64, rawAmount string) (*models.InvoiceResult, error) {
	digits := NormalizeAmount(rawAmount)
	if customerID == 0 || digits == "" {
		return nil, &gateway.PreconditionError{Message: msgRequiredFields}
	}

	amount, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return nil, &gateway.PreconditionError{Message: msgRequiredFields}
	}

	invoice, err := s.gateway.CreateInvoice(ctx, models.CreateInvoiceRequest{
		Company:     companyID,
		Customer:    customerID,
		TotalAmount: amount,
	})
	if err != nil {
		return nil, err
	}

	result := &models.InvoiceResult{Invoice: invoice}

	link, err := s.gateway.CreatePaymentLink(ctx, invoice.ID, defaultLinkExpiryDays)
	if err != nil {
		// No rollback: the invoice stands and the link can be created
		// manually later.
		s.logger.WithError(err).WithField("invoice_id", invoice.ID).Warn("Payment link creation failed after invoice was created")
		result.LinkErr = err
		return result, nil
	}

	result.Link = link
	return result, nil
}

// RetryPaymentLink creates a payment link for an existing invoice, the
// manual follow-up to a failed link step.
func (s *WorkflowService) RetryPaymentLink(ctx context.Context, invoiceID int64) (*models.PaymentLink, error) {
	return s.gateway.CreatePaymentLink(ctx, invoiceID, defaultLinkExpiryDays)
}

func (s *WorkflowService) CreateCompany(ctx context.Context, name string) (*models.Company, error) {
	return s.gateway.CreateCompany(ctx, name)
}

func (s *WorkflowService) RenameCompany(ctx context.Context, id int64, name string) (*models.Company, error) {
	return s.gateway.UpdateCompany(ctx, id, name)
}

func (s *WorkflowService) CreateCustomer(ctx context.Context, req models.CreateCustomerRequest) (*models.Customer, error) {
	return s.gateway.CreateCustomer(ctx, req)
}

func (s *WorkflowService) ListPaymentLinks(ctx context.Context) ([]models.PaymentLink, error) {
	return s.gateway.PaymentLinks(ctx)
}

// NormalizeAmount strips everything but ASCII digits from a
// user-entered amount, accepting inputs like "1,000,000".
func NormalizeAmount(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
