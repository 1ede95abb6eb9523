package bucket

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
)

// DefaultCredentials resolves the SDK's default credential chain:
// environment variables, the shared config and credentials files, then
// container and instance roles. A non-empty profile selects a named
// profile from the shared files.
func DefaultCredentials(ctx context.Context, profile string) (aws.CredentialsProvider, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	if cfg.Credentials == nil {
		return nil, ErrNilCredentials
	}

	return cfg.Credentials, nil
}
