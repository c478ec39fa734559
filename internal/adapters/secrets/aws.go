package secrets

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/kevin07696/valueio-gateway/internal/domain/ports"
	"go.uber.org/zap"
)

// secretsManagerAPI is the subset of the Secrets Manager client this source uses
type secretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

type awsSource struct {
	client secretsManagerAPI
	logger *zap.Logger
}

// NewAWSSource creates a secret source backed by AWS Secrets Manager.
// endpoint is optional and points the client at LocalStack or similar.
func NewAWSSource(ctx context.Context, region, endpoint string, logger *zap.Logger) (ports.SecretSource, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var clientOptions []func(*secretsmanager.Options)
	if endpoint != "" {
		clientOptions = append(clientOptions, func(o *secretsmanager.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}

	logger.Info("AWS Secrets Manager source initialized",
		zap.String("region", region),
		zap.Bool("custom_endpoint", endpoint != ""),
	)

	return &awsSource{
		client: secretsmanager.NewFromConfig(awsCfg, clientOptions...),
		logger: logger,
	}, nil
}

func (s *awsSource) GetSecret(ctx context.Context, path string) (string, error) {
	startTime := time.Now()
	result, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(path),
	})
	if err != nil {
		s.logger.Error("Failed to retrieve secret",
			zap.String("path", path),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to get secret %s: %w", path, err)
	}

	s.logger.Debug("Secret retrieved from AWS Secrets Manager",
		zap.String("path", path),
		zap.Duration("elapsed", time.Since(startTime)),
	)

	return aws.ToString(result.SecretString), nil
}
