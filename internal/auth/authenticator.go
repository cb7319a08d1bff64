// Package auth handles account credentials and session tokens.
package auth

import (
	"context"

	"github.com/mmynk/splitledger/internal/models"
)

// Authenticator verifies who a caller is. Services depend on this interface
// so the credential scheme can change without touching them.
type Authenticator interface {
	// Register creates an account. Email is normalized before it is stored.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate returns the account matching email and credential,
	// or ErrInvalidCredentials.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential reports whether a credential is acceptable for a new account.
	ValidateCredential(credential string) error
}
