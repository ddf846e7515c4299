package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-storefront/internal/errors"
)

// Error is returned for every non-2xx response. Message holds only what the backend sent
// and is empty when the body carried no message.
type Error struct {
	StatusCode int
	Message    string
	Method     string
	Path       string
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, msg)
}

// errorBody is the backend's error envelope. message is a string, or a list of
// strings for validation failures.
type errorBody struct {
	Message json.RawMessage `json:"message"`
	Error   string          `json:"error"`
}

func newError(method, path string, status int, body []byte) *Error {
	return &Error{
		StatusCode: status,
		Message:    parseMessage(body),
		Method:     method,
		Path:       path,
	}
}

func parseMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		var single string
		if json.Unmarshal(eb.Message, &single) == nil && single != "" {
			return single
		}
		var list []string
		if json.Unmarshal(eb.Message, &list) == nil && len(list) > 0 {
			return strings.Join(list, ", ")
		}
		if eb.Error != "" {
			return eb.Error
		}
	}
	return ""
}

// IsStatus reports whether err is an *Error with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

func IsUnauthorized(err error) bool {
	return IsStatus(err, http.StatusUnauthorized)
}

// UserMessage returns the backend supplied message for err, or fallback when there is none.
func UserMessage(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
