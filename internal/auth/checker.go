package auth

import (
	"context"
	"fmt"

	"github.com/maric-labs/registrytools/internal/registryerr"
)

// Checker is the contract the handler layer depends on (spec §4.5's
// check_auth). If no Checker is wired into the server, the check is a
// no-op — the core never stores or interprets credentials itself.
type Checker interface {
	CheckAuth(ctx context.Context, required Permission) error
}

// StoreChecker adapts a Store into a Checker by reading the presented
// credential out of the request context.
type StoreChecker struct {
	Store *Store
}

type credentialKey struct{}

// Credential is an "id:secret" pair presented by a transport-level client.
type Credential struct {
	ID     string
	Secret string
}

// WithCredential attaches a presented credential to a request context.
func WithCredential(ctx context.Context, cred Credential) context.Context {
	return context.WithValue(ctx, credentialKey{}, cred)
}

// CredentialFromContext retrieves a previously attached credential.
func CredentialFromContext(ctx context.Context) (Credential, bool) {
	cred, ok := ctx.Value(credentialKey{}).(Credential)
	return cred, ok
}

func (c *StoreChecker) CheckAuth(ctx context.Context, required Permission) error {
	cred, ok := CredentialFromContext(ctx)
	if !ok {
		return fmt.Errorf("auth: no credential presented, %s required: %w", required, registryerr.ErrPermission)
	}
	granted, err := c.Store.Validate(ctx, cred.ID, cred.Secret)
	if err != nil {
		return err
	}
	if !granted.satisfies(required) {
		return fmt.Errorf("auth: credential has %q, %q required: %w", granted, required, registryerr.ErrPermission)
	}
	return nil
}
