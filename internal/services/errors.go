package services

import (
	"errors"

	"github.com/tyebliya/waitlist-api/internal/guard"
)

var (
	// ErrVerificationRequired is returned when a token is expected but missing
	ErrVerificationRequired = guard.ErrVerificationRequired
	// ErrVerificationFailed is returned when the verification provider refuses the request
	ErrVerificationFailed = guard.ErrVerificationFailed
	// ErrAlreadyRegistered is returned when the email or phone is already on the waitlist
	ErrAlreadyRegistered = errors.New("already registered")
	// ErrInvalidRecord is returned when the store rejects the record as invalid
	ErrInvalidRecord = errors.New("invalid record")
)
