package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// User-facing failure strings, kept in the product locale.
const (
	// MsgGenericError is the last-resort message for structured
	// rejections that carry no usable detail.
	MsgGenericError = "خطایی رخ داد"

	// MsgServerUnreachable is returned for every transport-level
	// failure, independent of the request that triggered it.
	MsgServerUnreachable = "عدم اتصال به سرور. لطفاً مطمئن شوید که سرور در آدرس http://localhost:8000 در حال اجرا است"
)

// FieldErrors maps a rejected field to its server-side messages, for
// callers that highlight individual inputs.
type FieldErrors map[string][]string

// NetworkError means no response was received at all.
type NetworkError struct {
	Message string
	Cause   error
}

func (e *NetworkError) Error() string { return e.Message }

func (e *NetworkError) Unwrap() error { return e.Cause }

// ValidationError is a structured non-2xx response reduced to a
// human-readable message plus the per-field detail it was built from.
type ValidationError struct {
	Status  int
	Message string
	Fields  FieldErrors
}

func (e *ValidationError) Error() string { return e.Message }

// HTTPError is an opaque failure: a non-structured body or a structured
// one that could not be interpreted.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string { return e.Message }

// PreconditionError reports a client-side check that failed before any
// network call was made.
type PreconditionError struct {
	Message string
}

func (e *PreconditionError) Error() string { return e.Message }

// newValidationError reduces a decoded non-2xx JSON body to a message
// list: sequence-valued keys become "key: v1, v2", string values are
// included verbatim, and distinct messages are joined with "; ". Keys
// are walked in sorted order so the message is deterministic. When
// nothing usable is found the fallback order is detail, message, then
// the generic localized string.
func newValidationError(status int, body []byte) error {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil || payload == nil {
		return &HTTPError{
			Status:  status,
			Message: fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status)),
		}
	}

	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := FieldErrors{}
	var messages []string
	seen := map[string]bool{}
	push := func(msg string) {
		if msg != "" && !seen[msg] {
			seen[msg] = true
			messages = append(messages, msg)
		}
	}

	for _, key := range keys {
		switch value := payload[key].(type) {
		case []any:
			var parts []string
			for _, item := range value {
				if s, ok := item.(string); ok {
					parts = append(parts, s)
				}
			}
			if len(parts) > 0 {
				fields[key] = parts
				push(key + ": " + strings.Join(parts, ", "))
			}
		case string:
			push(value)
		}
	}

	if len(messages) == 0 {
		if detail, ok := payload["detail"].(string); ok && detail != "" {
			push(detail)
		} else if msg, ok := payload["message"].(string); ok && msg != "" {
			push(msg)
		} else {
			push(MsgGenericError)
		}
	}

	return &ValidationError{
		Status:  status,
		Message: strings.Join(messages, "; "),
		Fields:  fields,
	}
}
