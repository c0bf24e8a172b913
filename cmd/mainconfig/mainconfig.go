package mainconfig

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	appconfig "github.com/meesalavenugopal/novacare247/internal/config"
)

// LoadAWSConfig centralizes AWS SDK initialization so the API, the
// notification worker and the seeder share the same LocalStack/production wiring.
// AWS_ENDPOINT_OVERRIDE points every service client (SQS, DynamoDB, S3, SES)
// at one endpoint.
func LoadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	loaders := []func(*config.LoadOptions) error{config.WithRegion(cfg.AWSRegion)}
	if strings.TrimSpace(cfg.AWSAccessKeyID) != "" && strings.TrimSpace(cfg.AWSSecretAccessKey) != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return aws.Config{}, err
	}

	if endpoint := strings.TrimSpace(cfg.AWSEndpointOverride); endpoint != "" {
		awsCfg.BaseEndpoint = aws.String(endpoint)
	}
	return awsCfg, nil
}

// UsesEndpointOverride reports whether clients should use LocalStack-style
// addressing (for example S3 path-style URLs).
func UsesEndpointOverride(cfg *appconfig.Config) bool {
	return strings.TrimSpace(cfg.AWSEndpointOverride) != ""
}
