package faceapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// UnknownErrorMessage is shown when nothing better is available.
const UnknownErrorMessage = "Erro desconhecido"

// Sentinel errors for the failure taxonomy. Use errors.Is on any error
// returned by Client.
var (
	// ErrValidation: a required field was missing; nothing was sent.
	ErrValidation = errors.New("validation error")
	// ErrNotFound: the service answered 404 (on verify: unknown user).
	ErrNotFound = errors.New("not found")
	// ErrServer: any other non-2xx answer from the service.
	ErrServer = errors.New("server error")
	// ErrNetwork: timeout or connection failure, no answer from the service.
	ErrNetwork = errors.New("network error")
)

// Error describes a failed call.
type Error struct {
	Op         Operation
	Kind       error // one of the sentinels above
	StatusCode int
	Detail     string // server-supplied "detail"
	Message    string // server-supplied "message"
	Err        error  // transport or decoding error
}

func (e *Error) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %v", e.Op, e.Kind)
	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, " (status %d)", e.StatusCode)
	}
	switch {
	case e.Detail != "":
		sb.WriteString(": " + e.Detail)
	case e.Message != "":
		sb.WriteString(": " + e.Message)
	case e.Err != nil:
		sb.WriteString(": " + e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// Message normalizes any error into one display string. Precedence:
// server detail, server message, transport message, UnknownErrorMessage.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Detail != "":
			return apiErr.Detail
		case apiErr.Message != "":
			return apiErr.Message
		case apiErr.Err != nil && apiErr.Err.Error() != "":
			return apiErr.Err.Error()
		default:
			return UnknownErrorMessage
		}
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return UnknownErrorMessage
}

// errorBody is the error payload FastAPI produces. Detail is either a string
// or a list of validation items.
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
}

type validationItem struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// parseErrorBody extracts detail and message from an error response body.
func parseErrorBody(body []byte) (detail, message string) {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return "", ""
	}
	return decodeDetail(eb.Detail), eb.Message
}

func decodeDetail(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var items []validationItem
	if err := json.Unmarshal(raw, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg == "" {
				continue
			}
			if field := lastLoc(it.Loc); field != "" {
				msgs = append(msgs, field+": "+it.Msg)
			} else {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return string(raw)
}

func lastLoc(loc []any) string {
	if len(loc) == 0 {
		return ""
	}
	if s, ok := loc[len(loc)-1].(string); ok {
		return s
	}
	return ""
}
