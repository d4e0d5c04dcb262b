package aws

import (
	"context"
	"fmt"
	"os"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// LoadAWSConfig loads the default SDK config (env, shared profile, IMDS).
func LoadAWSConfig(ctx context.Context) (sdkaws.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return cfg, fmt.Errorf("failed to load aws config: %w", err)
	}
	if cfg.Region == "" {
		cfg.Region = os.Getenv("AWS_REGION")
	}
	return cfg, nil
}

// Endpoint returns the LocalStack-style override for a service, preferring
// the service-specific variable (e.g. AWS_SNS_ENDPOINT) over AWS_ENDPOINT.
func Endpoint(serviceEnv string) string {
	if v := os.Getenv(serviceEnv); v != "" {
		return v
	}
	return os.Getenv("AWS_ENDPOINT")
}
