package port

import "context"

// CredentialVerifier checks a user's primary credential. Password storage
// and comparison mechanics live behind this boundary.
type CredentialVerifier interface {
	Verify(ctx context.Context, identifier, password string) (string, error)
}
