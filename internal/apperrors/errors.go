package apperrors

import (
	"errors"
)

var (
	ErrPartialSession = errors.New("session must carry both access and refresh tokens or neither")
	ErrNotLoggedIn    = errors.New("not logged in")
	ErrNoUserID       = errors.New("no user id in session")

	ErrInvalidAuthResponse = errors.New("auth response misses required fields")

	ErrInvalidInput = errors.New("invalid input")
	ErrEmptyUpload  = errors.New("nothing to upload")
)
