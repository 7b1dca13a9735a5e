package gateway

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewValidationError_DeduplicatesMessages(t *testing.T) {
	body := []byte(`{"a": ["dup"], "b": ["dup"]}`)
	err := newValidationError(http.StatusBadRequest, body)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	// "a: dup" and "b: dup" are distinct; a literal repeat is not.
	require.Equal(t, "a: dup; b: dup", verr.Message)

	err = newValidationError(http.StatusBadRequest, []byte(`{"detail": "same", "message": "same"}`))
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "same", verr.Message)
}

func TestNewValidationError_NonObjectBody(t *testing.T) {
	err := newValidationError(http.StatusBadRequest, []byte(`["not", "an", "object"]`))

	var herr *HTTPError
	require.ErrorAs(t, err, &herr)
	require.Equal(t, http.StatusBadRequest, herr.Status)
	require.Equal(t, "HTTP 400: Bad Request", herr.Message)
}

func TestNewValidationError_MixedStringAndListValues(t *testing.T) {
	body := []byte(`{"detail": "Invoice rejected.", "total_amount": ["A valid integer is required."]}`)
	err := newValidationError(http.StatusBadRequest, body)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "Invoice rejected.; total_amount: A valid integer is required.", verr.Message)
	require.Equal(t, FieldErrors{"total_amount": {"A valid integer is required."}}, verr.Fields)
}

func TestErrorTypes_Messages(t *testing.T) {
	require.Equal(t, MsgServerUnreachable, (&NetworkError{Message: MsgServerUnreachable}).Error())
	require.Equal(t, "boom", (&HTTPError{Status: 500, Message: "boom"}).Error())
	require.Equal(t, "check", (&PreconditionError{Message: "check"}).Error())
}
