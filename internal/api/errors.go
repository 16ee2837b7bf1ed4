package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// Request was rejected as unauthorized and no refresh was attempted
	ErrUnauthorized = errors.New("unauthorized")

	// Session has no refresh token, refresh endpoint is not called
	ErrNoRefreshToken = errors.New("no refresh token")

	// Refresh endpoint rejected the refresh token or returned malformed response
	ErrRefreshFailed = errors.New("refresh failed")
)

// NetworkError means no response was obtained from the server
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// HTTPError is a terminal non-2xx/3xx response
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	if msg := e.Message(); msg != "" {
		return fmt.Sprintf("http status %d: %s", e.StatusCode, msg)
	}
	return fmt.Sprintf("http status %d", e.StatusCode)
}

// Message returns the server-provided message if the body is JSON with "message" field.
// Message may be a string or a list of strings (validation errors).
func (e *HTTPError) Message() string {
	return errorBody(e.Body).message()
}

// AuthError is an authorization failure. Reason is one of ErrUnauthorized, ErrNoRefreshToken, ErrRefreshFailed.
type AuthError struct {
	Reason error
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %v", e.Reason, e.Err)
	}
	return e.Reason.Error()
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func (e *AuthError) Is(target error) bool {
	return target == e.Reason
}

// IsRefreshFailure reports that the session was dropped because the refresh did not succeed
func IsRefreshFailure(err error) bool {
	return errors.Is(err, ErrRefreshFailed) || errors.Is(err, ErrNoRefreshToken)
}

type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindNetwork
	KindHTTP
	KindUnauthorized
	KindRefreshFailure
	KindOther
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNetwork:
		return "network"
	case KindHTTP:
		return "http"
	case KindUnauthorized:
		return "unauthorized"
	case KindRefreshFailure:
		return "refresh_failure"
	default:
		return "other"
	}
}

// Kind classifies err for switch-style handling
func Kind(err error) ErrorKind {
	var (
		netErr  *NetworkError
		httpErr *HTTPError
		authErr *AuthError
	)

	switch {
	case err == nil:
		return KindNone
	case errors.As(err, &authErr):
		if IsRefreshFailure(authErr) {
			return KindRefreshFailure
		}
		return KindUnauthorized
	case errors.As(err, &netErr):
		return KindNetwork
	case errors.As(err, &httpErr):
		return KindHTTP
	default:
		return KindOther
	}
}

// errorBody is the loose shape of the backend error responses
type errorBody []byte

type errorFields struct {
	StatusCode int             `json:"statusCode"`
	Code       string          `json:"code"`
	Message    json.RawMessage `json:"message"`
}

func (b errorBody) fields() (errorFields, bool) {
	var f errorFields
	if len(b) == 0 || json.Unmarshal(b, &f) != nil {
		return f, false
	}
	return f, true
}

func (b errorBody) message() string {
	f, ok := b.fields()
	if !ok || len(f.Message) == 0 {
		return ""
	}

	var s string
	if json.Unmarshal(f.Message, &s) == nil {
		return s
	}

	var list []string
	if json.Unmarshal(f.Message, &list) == nil {
		return strings.Join(list, "; ")
	}
	return ""
}

// unauthorized reports an app-level 401 reported with 200 transport status
func (b errorBody) unauthorized() bool {
	f, ok := b.fields()
	return ok && f.StatusCode == 401
}

// alreadyRegistered reports the signup conflict the backend answers with 401/403.
// Such response is a terminal error, refreshing would not help.
func (b errorBody) alreadyRegistered() bool {
	f, ok := b.fields()
	if !ok {
		return false
	}
	if f.Code == "USER_ALREADY_EXISTS" {
		return true
	}

	msg := strings.ToLower(b.message())
	return strings.Contains(msg, "already registered") || strings.Contains(msg, "already exists")
}
