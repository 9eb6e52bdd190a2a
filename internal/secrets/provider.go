// Package secrets resolves named credentials from a secret vault at startup.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when the vault has no value for a name.
var ErrNotFound = errors.New("secret not found")

// Provider looks up a single secret value by name.
type Provider interface {
	Get(ctx context.Context, name string) (string, error)
}

// Resolve fetches every name from p and fails on the first secret that is
// missing, empty, or unreachable.
func Resolve(ctx context.Context, p Provider, names ...string) (map[string]string, error) {
	if p == nil {
		return nil, fmt.Errorf("secret provider is required")
	}
	out := make(map[string]string, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("secret name is required")
		}
		value, err := p.Get(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("resolve secret %q: %w", name, err)
		}
		if value == "" {
			return nil, fmt.Errorf("resolve secret %q: %w", name, ErrNotFound)
		}
		out[name] = value
	}
	return out, nil
}
