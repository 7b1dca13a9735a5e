package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/poulinpay/poulinpay/internal/repository"
	"github.com/sirupsen/logrus"
)

// Client is the single choke point for every call to the Poulin Pay
// API. It attaches the bearer token when one is stored and normalizes
// every outcome into either a decoded payload or one of the typed
// errors in this package. It never touches the token store beyond
// reading the current value.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     repository.TokenStore
	logger     *logrus.Logger
}

func NewClient(baseURL string, tokens repository.TokenStore, httpClient *http.Client, logger *logrus.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		tokens:     tokens,
		logger:     logger,
	}
}

// Do issues one request and decodes the response into out (which may be
// nil when the body is irrelevant). Every failure path resolves to a
// *NetworkError, *ValidationError or *HTTPError; a nil return means out
// holds the decoded 2xx payload.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return &NetworkError{Message: MsgServerUnreachable, Cause: err}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if pair, ok := c.tokens.Get(); ok {
		req.Header.Set("Authorization", "Bearer "+pair.Access)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"method": method,
			"path":   path,
		}).Debug("Request transport failure")
		return &NetworkError{Message: MsgServerUnreachable, Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Message: MsgServerUnreachable, Cause: err}
	}

	// Bodies are decoded whenever the server declares JSON, regardless
	// of status: a 400 with field errors is a normal response here, not
	// a transport failure.
	if !isJSON(resp.Header.Get("Content-Type")) {
		msg := strings.TrimSpace(string(data))
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		}
		return &HTTPError{Status: resp.StatusCode, Message: msg}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newValidationError(resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		c.logger.WithError(err).WithField("path", path).Error("Failed to decode response body")
		return &HTTPError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		}
	}

	return nil
}

func isJSON(contentType string) bool {
	return strings.Contains(contentType, "application/json")
}

// decodeList accepts both list response shapes the backend produces: a
// bare JSON array or a paginated envelope with a "results" array.
func decodeList[T any](raw json.RawMessage) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("failed to decode list response: %w", err)
		}
		return items, nil
	}

	var envelope struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode list envelope: %w", err)
	}
	return envelope.Results, nil
}
