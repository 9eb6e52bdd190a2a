package secrets

import (
	"context"
	"os"
	"strings"
)

// EnvProvider reads secrets from environment variables. A name such as
// "audit-function-url" with prefix "COMPLIANCE_SECRET_" is read from
// COMPLIANCE_SECRET_AUDIT_FUNCTION_URL.
type EnvProvider struct {
	prefix string
	lookup func(string) (string, bool)
}

// NewEnvProvider creates a provider over the process environment.
func NewEnvProvider(prefix string) *EnvProvider {
	return &EnvProvider{prefix: prefix, lookup: os.LookupEnv}
}

// Get returns the environment value for name.
func (p *EnvProvider) Get(_ context.Context, name string) (string, error) {
	value, ok := p.lookup(p.Key(name))
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// Key returns the environment variable consulted for name.
func (p *EnvProvider) Key(name string) string {
	var b strings.Builder
	b.WriteString(p.prefix)
	for _, r := range strings.ToUpper(name) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
