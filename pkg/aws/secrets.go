package aws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
)

// Secret names the service boots from.
const (
	JWTSecretName     = "shopcart/JWT_SECRET"
	DBCredentialsName = "shopcart/DB_CREDENTIALS"
)

type secretValueAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// DBCredentials is the JSON document stored under DBCredentialsName. Empty
// fields leave the environment value in place.
type DBCredentials struct {
	User     string `json:"POSTGRES_USER"`
	Password string `json:"POSTGRES_PASSWORD"`
	Database string `json:"POSTGRES_DB"`
	Host     string `json:"POSTGRES_HOST"`
	Port     string `json:"POSTGRES_PORT"`
}

// ServiceSecrets reads the signing key and database credentials from
// Secrets Manager.
type ServiceSecrets struct {
	api secretValueAPI
}

func NewServiceSecrets(cfg sdkaws.Config) *ServiceSecrets {
	client := secretsmanager.NewFromConfig(cfg, func(o *secretsmanager.Options) {
		if ep := Endpoint("AWS_SECRETSMANAGER_ENDPOINT"); ep != "" {
			o.BaseEndpoint = sdkaws.String(ep)
		}
	})
	return &ServiceSecrets{api: client}
}

// JWTSecret returns the session signing key. A secret that does not exist
// yields "" and no error.
func (s *ServiceSecrets) JWTSecret(ctx context.Context) (string, error) {
	return s.value(ctx, JWTSecretName)
}

// DBCredentials returns nil, nil when the secret does not exist.
func (s *ServiceSecrets) DBCredentials(ctx context.Context) (*DBCredentials, error) {
	raw, err := s.value(ctx, DBCredentialsName)
	if err != nil || raw == "" {
		return nil, err
	}
	var creds DBCredentials
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return nil, fmt.Errorf("decode %s: %w", DBCredentialsName, err)
	}
	return &creds, nil
}

func (s *ServiceSecrets) value(ctx context.Context, name string) (string, error) {
	out, err := s.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: sdkaws.String(name)})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get secret %s: %w", name, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", name)
	}
	return *out.SecretString, nil
}
