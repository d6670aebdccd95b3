package billing

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// SecretSource resolves the webhook signing secret. It is consulted on every
// request so rotated secrets take effect without a restart.
type SecretSource interface {
	WebhookSecret(ctx context.Context) ([]byte, error)
}

// SecretFunc adapts a function to SecretSource
type SecretFunc func(ctx context.Context) ([]byte, error)

// WebhookSecret implements SecretSource
func (f SecretFunc) WebhookSecret(ctx context.Context) ([]byte, error) {
	return f(ctx)
}

// StaticSecret is a secret fixed at construction time
type StaticSecret []byte

// WebhookSecret implements SecretSource
func (s StaticSecret) WebhookSecret(_ context.Context) ([]byte, error) {
	if len(s) == 0 {
		return nil, ErrSecretUnavailable
	}
	return []byte(s), nil
}

// EnvSecret reads the secret from the named environment variable on each call
func EnvSecret(name string) SecretSource {
	return SecretFunc(func(_ context.Context) ([]byte, error) {
		value := strings.TrimSpace(os.Getenv(name))
		if value == "" {
			return nil, fmt.Errorf("%w: %s is not set", ErrSecretUnavailable, name)
		}
		return []byte(value), nil
	})
}
