// Package awsconf загружает конфигурацию AWS SDK для клиентов SES и Bedrock.
package awsconf

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// Load возвращает конфигурацию для региона. Если заданы оба ключа, они
// используются как статические учётные данные, иначе действует стандартная
// цепочка (переменные окружения, профиль, роль).
func Load(ctx context.Context, region, accessKey, secretKey string) (aws.Config, error) {
	const op = "awsconf.Load"
	if region == "" {
		region = "us-east-1"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("%s: %w", op, err)
	}
	return cfg, nil
}
