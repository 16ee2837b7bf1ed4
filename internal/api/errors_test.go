package api

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPError_Message(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string message", `{"statusCode":400,"message":"Bad title"}`, "Bad title"},
		{"list message", `{"message":["a","b"]}`, "a; b"},
		{"no message", `{"error":"x"}`, ""},
		{"not json", `<html>oops</html>`, ""},
		{"empty", ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &HTTPError{StatusCode: 400, Body: []byte(tt.body)}

			assert.Equal(t, tt.want, err.Message())
		})
	}

	t.Run("error string", func(t *testing.T) {
		assert.Equal(t, "http status 400: Bad title", (&HTTPError{StatusCode: 400, Body: []byte(`{"message":"Bad title"}`)}).Error())
		assert.Equal(t, "http status 502", (&HTTPError{StatusCode: 502}).Error())
	})
}

func TestErrorBody(t *testing.T) {
	t.Run("already registered", func(t *testing.T) {
		for _, body := range []string{
			`{"code":"USER_ALREADY_EXISTS"}`,
			`{"message":"User already registered"}`,
			`{"message":"Username ALREADY EXISTS"}`,
		} {
			assert.True(t, errorBody(body).alreadyRegistered(), body)
		}

		assert.False(t, errorBody(`{"message":"Unauthorized"}`).alreadyRegistered())
		assert.False(t, errorBody(``).alreadyRegistered())
	})

	t.Run("app level unauthorized", func(t *testing.T) {
		assert.True(t, errorBody(`{"statusCode":401}`).unauthorized())
		assert.False(t, errorBody(`{"statusCode":200}`).unauthorized())
		assert.False(t, errorBody(`[]`).unauthorized())
	})
}

func TestAuthError(t *testing.T) {
	cause := &HTTPError{StatusCode: 401}
	err := fmt.Errorf("load posts: %w", &AuthError{Reason: ErrRefreshFailed, Err: cause})

	require.ErrorIs(t, err, ErrRefreshFailed)
	require.NotErrorIs(t, err, ErrUnauthorized)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, "refresh failed: http status 401", errors.Unwrap(err).Error())

	assert.Equal(t, "no refresh token", (&AuthError{Reason: ErrNoRefreshToken}).Error())
}

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindNone},
		{"network", &NetworkError{Err: context.DeadlineExceeded}, KindNetwork},
		{"http", &HTTPError{StatusCode: 500}, KindHTTP},
		{"unauthorized", &AuthError{Reason: ErrUnauthorized, Err: &HTTPError{StatusCode: 401}}, KindUnauthorized},
		{"refresh failed", &AuthError{Reason: ErrRefreshFailed, Err: &NetworkError{Err: context.DeadlineExceeded}}, KindRefreshFailure},
		{"no refresh token", fmt.Errorf("wrapped: %w", &AuthError{Reason: ErrNoRefreshToken}), KindRefreshFailure},
		{"other", errors.New("boom"), KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.err))
		})
	}

	assert.Equal(t, "refresh_failure", KindRefreshFailure.String())
}
