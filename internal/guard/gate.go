package guard

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrVerificationRequired means a secret is configured but no token was sent
	ErrVerificationRequired = errors.New("verification required")
	// ErrVerificationFailed means the provider rejected the token or could not be reached
	ErrVerificationFailed = errors.New("verification failed")
)

// Verifier checks a human-verification token with the provider
type Verifier interface {
	Enabled() bool
	Verify(ctx context.Context, token, remoteIP string) error
}

// Gate decides whether a request passes human verification.
// With no verifier or no secret configured every request passes.
type Gate struct {
	verifier Verifier
}

// NewGate creates a verification gate. verifier may be nil.
func NewGate(verifier Verifier) *Gate {
	return &Gate{verifier: verifier}
}

// Enabled reports whether verification is enforced
func (g *Gate) Enabled() bool {
	return g != nil && g.verifier != nil && g.verifier.Enabled()
}

// Check verifies token for the client address. Provider errors of any kind fail closed.
func (g *Gate) Check(ctx context.Context, token, clientIP string) error {
	if !g.Enabled() {
		return nil
	}
	if token == "" {
		return ErrVerificationRequired
	}
	if err := g.verifier.Verify(ctx, token, clientIP); err != nil {
		return fmt.Errorf("%w: %w", ErrVerificationFailed, err)
	}
	return nil
}
