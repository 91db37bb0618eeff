package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks input the caller must fix.
	ErrValidation         = errors.New("validation failed")
	ErrEmailTaken         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
