package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/aws/aws-sdk-go/service/secretsmanager/secretsmanageriface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapProvider map[string]string

func (m mapProvider) Get(_ context.Context, name string) (string, error) {
	v, ok := m[name]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func TestResolveReturnsAllValues(t *testing.T) {
	t.Parallel()

	p := mapProvider{"audit-function-url": "https://audit.example", "database-password": "pw"}
	got, err := Resolve(context.Background(), p, "audit-function-url", "database-password")
	require.NoError(t, err)
	assert.Equal(t, "https://audit.example", got["audit-function-url"])
	assert.Equal(t, "pw", got["database-password"])
}

func TestResolveFailsOnMissingOrEmpty(t *testing.T) {
	t.Parallel()

	p := mapProvider{"empty": ""}

	_, err := Resolve(context.Background(), p, "absent")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), `"absent"`)

	_, err = Resolve(context.Background(), p, "empty")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = Resolve(context.Background(), nil, "x")
	require.Error(t, err)
}

func TestEnvProviderKeyAndLookup(t *testing.T) {
	t.Parallel()

	env := map[string]string{"COMPLIANCE_SECRET_AUDIT_FUNCTION_URL": "https://audit.example"}
	p := &EnvProvider{prefix: "COMPLIANCE_SECRET_", lookup: func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}}

	assert.Equal(t, "COMPLIANCE_SECRET_AUDIT_FUNCTION_URL", p.Key("audit-function-url"))
	assert.Equal(t, "COMPLIANCE_SECRET_PROD_PG_PASSWORD", p.Key("prod/pg.password"))

	v, err := p.Get(context.Background(), "audit-function-url")
	require.NoError(t, err)
	assert.Equal(t, "https://audit.example", v)

	_, err = p.Get(context.Background(), "database-password")
	require.ErrorIs(t, err, ErrNotFound)
}

type secretsManagerMock struct {
	secretsmanageriface.SecretsManagerAPI
	getSecretValue func(input *secretsmanager.GetSecretValueInput) (*secretsmanager.GetSecretValueOutput, error)
}

func (m *secretsManagerMock) GetSecretValueWithContext(
	_ aws.Context,
	input *secretsmanager.GetSecretValueInput,
	_ ...request.Option,
) (*secretsmanager.GetSecretValueOutput, error) {
	return m.getSecretValue(input)
}

func TestAWSProviderGet(t *testing.T) {
	t.Parallel()

	mock := &secretsManagerMock{getSecretValue: func(in *secretsmanager.GetSecretValueInput) (*secretsmanager.GetSecretValueOutput, error) {
		switch aws.StringValue(in.SecretId) {
		case "audit-function-url":
			return &secretsmanager.GetSecretValueOutput{SecretString: aws.String("https://audit.example")}, nil
		case "binary-only":
			return &secretsmanager.GetSecretValueOutput{SecretBinary: []byte{1}}, nil
		case "missing":
			return nil, awserr.New(secretsmanager.ErrCodeResourceNotFoundException, "no such secret", nil)
		default:
			return nil, errors.New("throttled")
		}
	}}
	p, err := NewAWSProviderWithAPI(mock)
	require.NoError(t, err)

	v, err := p.Get(context.Background(), "audit-function-url")
	require.NoError(t, err)
	assert.Equal(t, "https://audit.example", v)

	_, err = p.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = p.Get(context.Background(), "binary-only")
	require.Error(t, err)

	_, err = p.Get(context.Background(), "other")
	require.ErrorContains(t, err, "throttled")

	_, err = NewAWSProviderWithAPI(nil)
	require.Error(t, err)
}
