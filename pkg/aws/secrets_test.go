package aws

import (
	"context"
	"errors"
	"testing"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSecretValueAPI struct {
	mock.Mock
}

func (m *mockSecretValueAPI) GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	args := m.Called(sdkaws.ToString(in.SecretId))
	out, _ := args.Get(0).(*secretsmanager.GetSecretValueOutput)
	return out, args.Error(1)
}

func secretString(v string) *secretsmanager.GetSecretValueOutput {
	return &secretsmanager.GetSecretValueOutput{SecretString: sdkaws.String(v)}
}

func TestServiceSecrets_JWTSecret(t *testing.T) {
	api := &mockSecretValueAPI{}
	api.On("GetSecretValue", JWTSecretName).Return(secretString("s3cr3t-signing-key"), nil)

	secret, err := (&ServiceSecrets{api: api}).JWTSecret(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t-signing-key", secret)
	api.AssertExpectations(t)
}

func TestServiceSecrets_MissingSecretIsEmpty(t *testing.T) {
	api := &mockSecretValueAPI{}
	api.On("GetSecretValue", JWTSecretName).Return(nil, &types.ResourceNotFoundException{})
	api.On("GetSecretValue", DBCredentialsName).Return(nil, &types.ResourceNotFoundException{})
	s := &ServiceSecrets{api: api}

	secret, err := s.JWTSecret(context.Background())
	require.NoError(t, err)
	assert.Empty(t, secret)

	creds, err := s.DBCredentials(context.Background())
	require.NoError(t, err)
	assert.Nil(t, creds)
}

func TestServiceSecrets_DBCredentialsDecodesOverrides(t *testing.T) {
	api := &mockSecretValueAPI{}
	api.On("GetSecretValue", DBCredentialsName).
		Return(secretString(`{"POSTGRES_USER":"shop","POSTGRES_PASSWORD":"pw","POSTGRES_HOST":"db.internal"}`), nil)

	creds, err := (&ServiceSecrets{api: api}).DBCredentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &DBCredentials{User: "shop", Password: "pw", Host: "db.internal"}, creds)
}

func TestServiceSecrets_Failures(t *testing.T) {
	api := &mockSecretValueAPI{}
	api.On("GetSecretValue", JWTSecretName).Return(nil, errors.New("access denied"))
	api.On("GetSecretValue", DBCredentialsName).Return(secretString("not json"), nil)
	s := &ServiceSecrets{api: api}

	_, err := s.JWTSecret(context.Background())
	assert.ErrorContains(t, err, JWTSecretName)

	_, err = s.DBCredentials(context.Background())
	assert.ErrorContains(t, err, "decode "+DBCredentialsName)
}

func TestServiceSecrets_BinarySecretRejected(t *testing.T) {
	api := &mockSecretValueAPI{}
	api.On("GetSecretValue", JWTSecretName).
		Return(&secretsmanager.GetSecretValueOutput{SecretBinary: []byte{0x1}}, nil)

	_, err := (&ServiceSecrets{api: api}).JWTSecret(context.Background())
	assert.EqualError(t, err, "secret shopcart/JWT_SECRET has no string value")
}
