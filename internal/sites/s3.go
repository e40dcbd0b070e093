package sites

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/bbernstein/metobs/internal/models"
)

// S3Client defines the interface for S3 operations we need
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// fromS3 downloads a CSV or YAML site file. The object key decides the format.
func fromS3(ctx context.Context, client S3Client, bucket, key string) ([]models.Site, error) {
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("s3 source needs bucket and key, got bucket=%q key=%q", bucket, key)
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("getting s3://%s/%s: %w", bucket, key, err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing S3 object body")
		}
	}(result.Body)

	sites, err := Parse(key, result.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing s3://%s/%s: %w", bucket, key, err)
	}

	log.Debug().
		Str("bucket", bucket).
		Str("key", key).
		Int("site_count", len(sites)).
		Msg("Loaded sites from S3")
	return sites, nil
}
