package models

import "time"

const (
	InvoiceStatusPending = "pending"
	InvoiceStatusPaid    = "paid"
	InvoiceStatusExpired = "expired"
)

type Company struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Customer struct {
	ID        int64     `json:"id"`
	Company   int64     `json:"company"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Invoice struct {
	ID          int64        `json:"id"`
	Company     int64        `json:"company"`
	Customer    int64        `json:"customer"`
	TotalAmount int64        `json:"total_amount"`
	Status      string       `json:"status"`
	PaymentLink *PaymentLink `json:"payment_link,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

type PaymentLink struct {
	ID         int64     `json:"id"`
	Invoice    int64     `json:"invoice,omitempty"`
	Token      string    `json:"token"`
	ExpiresAt  time.Time `json:"expires_at"`
	IsUsed     bool      `json:"is_used"`
	PaymentURL string    `json:"payment_url,omitempty"`
	URL        string    `json:"url,omitempty"`
}

// Display returns the value shown to the user for a freshly created link:
// the payment URL when the backend provides one, the bare token otherwise.
func (p *PaymentLink) Display() string {
	if p.PaymentURL != "" {
		return p.PaymentURL
	}
	if p.URL != "" {
		return p.URL
	}
	return p.Token
}

type CreateCustomerRequest struct {
	Company  int64  `json:"company"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Email    string `json:"email,omitempty"`
}

type CreateInvoiceRequest struct {
	Company     int64 `json:"company"`
	Customer    int64 `json:"customer"`
	TotalAmount int64 `json:"total_amount"`
}

type CreatePaymentLinkRequest struct {
	ExpiresInDays int `json:"expires_in_days"`
}

// Dashboard is the join-all result of the authenticated bootstrap: the
// active company (first one returned, if any) plus the customer and
// invoice lists. It is only ever built whole; a failed fetch discards it.
type Dashboard struct {
	Company   *Company
	Customers []Customer
	Invoices  []Invoice
}

// InvoiceResult is the outcome of the invoice-then-link sequence. Invoice
// is always set when the sequence got past step one; Link and LinkErr
// record whether the dependent payment link was created or needs a retry.
type InvoiceResult struct {
	Invoice *Invoice
	Link    *PaymentLink
	LinkErr error
}
