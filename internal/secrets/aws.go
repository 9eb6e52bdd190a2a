package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/aws/aws-sdk-go/service/secretsmanager/secretsmanageriface"
)

// AWSConfig selects the Secrets Manager region and an optional endpoint override.
type AWSConfig struct {
	Region   string
	Endpoint string
}

// AWSProvider reads secrets from AWS Secrets Manager.
type AWSProvider struct {
	api secretsmanageriface.SecretsManagerAPI
}

// NewAWSProvider builds a Secrets Manager client from the default credential chain.
func NewAWSProvider(cfg AWSConfig) (*AWSProvider, error) {
	sess, err := session.NewSession()
	if err != nil {
		return nil, fmt.Errorf("create AWS session: %w", err)
	}
	awsCfg := aws.NewConfig()
	if cfg.Region != "" {
		awsCfg = awsCfg.WithRegion(cfg.Region)
	}
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint)
	}
	return &AWSProvider{api: secretsmanager.New(sess, awsCfg)}, nil
}

// NewAWSProviderWithAPI wraps an existing client (primarily for testing).
func NewAWSProviderWithAPI(api secretsmanageriface.SecretsManagerAPI) (*AWSProvider, error) {
	if api == nil {
		return nil, fmt.Errorf("secrets manager client is required")
	}
	return &AWSProvider{api: api}, nil
}

// Get returns the string value of the named secret.
func (p *AWSProvider) Get(ctx context.Context, name string) (string, error) {
	out, err := p.api.GetSecretValueWithContext(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == secretsmanager.ErrCodeResourceNotFoundException {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get secret value: %w", err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %q has no string value", name)
	}
	return aws.StringValue(out.SecretString), nil
}
