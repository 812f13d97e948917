package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// FieldError is one entry of a validation error list as returned by the
// backend: {"loc": ["body", "email"], "msg": "field required"}.
type FieldError struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type,omitempty"`
}

// Field names the offending input: the second location element when present
// (the first is the request part), otherwise the last one.
func (f FieldError) Field() string {
	switch {
	case len(f.Loc) > 1:
		return fmt.Sprint(f.Loc[1])
	case len(f.Loc) == 1:
		return fmt.Sprint(f.Loc[0])
	default:
		return ""
	}
}

func (f FieldError) String() string {
	if field := f.Field(); field != "" {
		return field + ": " + f.Msg
	}
	return f.Msg
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Detail     string
	Fields     []FieldError
}

func (e *APIError) Error() string {
	msg := e.Detail
	if msg == "" && len(e.Fields) > 0 {
		msg = strings.Join(e.FieldMessages(), "; ")
	}
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, msg)
}

// FieldMessages renders each validation entry as "field: message".
func (e *APIError) FieldMessages() []string {
	out := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		out = append(out, f.String())
	}
	return out
}

func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var env struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &env); err != nil || len(env.Detail) == 0 {
		return apiErr
	}

	var s string
	if err := json.Unmarshal(env.Detail, &s); err == nil {
		apiErr.Detail = s
		return apiErr
	}

	var items []json.RawMessage
	if err := json.Unmarshal(env.Detail, &items); err == nil {
		for _, item := range items {
			var msg string
			if err := json.Unmarshal(item, &msg); err == nil {
				apiErr.Fields = append(apiErr.Fields, FieldError{Msg: msg})
				continue
			}
			var fe FieldError
			if err := json.Unmarshal(item, &fe); err == nil {
				apiErr.Fields = append(apiErr.Fields, fe)
			}
		}
		return apiErr
	}

	apiErr.Detail = string(env.Detail)
	return apiErr
}

// StatusCode returns the backend status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Message picks the text a page shows for a failed call: validation entries
// joined by sep, else the server detail, else fallback.
func Message(err error, sep, fallback string) string {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return fallback
	}
	if len(apiErr.Fields) > 0 {
		return strings.Join(apiErr.FieldMessages(), sep)
	}
	if apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}
