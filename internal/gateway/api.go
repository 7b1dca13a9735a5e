package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/poulinpay/poulinpay/internal/models"
)

func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	if err := c.Do(ctx, http.MethodPost, "/auth/register/", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	req := models.LoginRequest{Email: email, Password: password}
	if err := c.Do(ctx, http.MethodPost, "/auth/login/", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) error {
	return c.Do(ctx, http.MethodPost, "/auth/reset-password/", req, nil)
}

func (c *Client) Profile(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.Do(ctx, http.MethodGet, "/auth/profile/", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) Companies(ctx context.Context) ([]models.Company, error) {
	return listResource[models.Company](c, ctx, "/companies/")
}

func (c *Client) CreateCompany(ctx context.Context, name string) (*models.Company, error) {
	var company models.Company
	body := map[string]string{"name": name}
	if err := c.Do(ctx, http.MethodPost, "/companies/", body, &company); err != nil {
		return nil, err
	}
	return &company, nil
}

func (c *Client) UpdateCompany(ctx context.Context, id int64, name string) (*models.Company, error) {
	var company models.Company
	body := map[string]string{"name": name}
	path := fmt.Sprintf("/companies/%d/", id)
	if err := c.Do(ctx, http.MethodPatch, path, body, &company); err != nil {
		return nil, err
	}
	return &company, nil
}

func (c *Client) Customers(ctx context.Context) ([]models.Customer, error) {
	return listResource[models.Customer](c, ctx, "/customers/")
}

func (c *Client) CreateCustomer(ctx context.Context, req models.CreateCustomerRequest) (*models.Customer, error) {
	var customer models.Customer
	if err := c.Do(ctx, http.MethodPost, "/customers/", req, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (c *Client) Invoices(ctx context.Context) ([]models.Invoice, error) {
	return listResource[models.Invoice](c, ctx, "/invoices/")
}

func (c *Client) CreateInvoice(ctx context.Context, req models.CreateInvoiceRequest) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := c.Do(ctx, http.MethodPost, "/invoices/", req, &invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (c *Client) CreatePaymentLink(ctx context.Context, invoiceID int64, expiresInDays int) (*models.PaymentLink, error) {
	var link models.PaymentLink
	path := fmt.Sprintf("/invoices/%d/create_payment_link/", invoiceID)
	body := models.CreatePaymentLinkRequest{ExpiresInDays: expiresInDays}
	if err := c.Do(ctx, http.MethodPost, path, body, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

func (c *Client) PaymentLinks(ctx context.Context) ([]models.PaymentLink, error) {
	return listResource[models.PaymentLink](c, ctx, "/payment-links/")
}

func listResource[T any](c *Client, ctx context.Context, path string) ([]T, error) {
	var raw json.RawMessage
	if err := c.Do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[T](raw)
}
