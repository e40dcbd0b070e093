package sites

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/bbernstein/metobs/internal/models"
)

const (
	s3Scheme     = "s3://"
	dynamoScheme = "dynamodb://"
)

type loader struct {
	region         string
	s3Endpoint     string
	dynamoEndpoint string
	s3Client       S3Client
	dynamoClient   DynamoScanner
}

type Option func(*loader)

func WithRegion(region string) Option {
	return func(l *loader) {
		l.region = region
	}
}

// WithEndpoints points the AWS clients at local stand-ins such as localstack or dynamodb-local.
func WithEndpoints(s3Endpoint, dynamoEndpoint string) Option {
	return func(l *loader) {
		l.s3Endpoint = s3Endpoint
		l.dynamoEndpoint = dynamoEndpoint
	}
}

func WithS3Client(client S3Client) Option {
	return func(l *loader) {
		l.s3Client = client
	}
}

func WithDynamoClient(client DynamoScanner) Option {
	return func(l *loader) {
		l.dynamoClient = client
	}
}

// Load builds the site table from source, which is one of
//
//	path/to/sites.csv | path/to/sites.yaml
//	s3://bucket/key.csv
//	dynamodb://table
func Load(ctx context.Context, source string, opts ...Option) (*Table, error) {
	l := &loader{}
	for _, opt := range opts {
		opt(l)
	}

	var (
		sites []models.Site
		err   error
	)

	switch {
	case strings.HasPrefix(source, s3Scheme):
		bucket, key, _ := strings.Cut(strings.TrimPrefix(source, s3Scheme), "/")
		client := l.s3Client
		if client == nil {
			if client, err = l.newS3Client(ctx); err != nil {
				return nil, err
			}
		}
		sites, err = fromS3(ctx, client, bucket, key)

	case strings.HasPrefix(source, dynamoScheme):
		client := l.dynamoClient
		if client == nil {
			if client, err = l.newDynamoClient(ctx); err != nil {
				return nil, err
			}
		}
		sites, err = fromDynamo(ctx, client, strings.TrimPrefix(source, dynamoScheme))

	default:
		sites, err = fromFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("loading sites from %s: %w", source, err)
	}

	table, err := NewTable(sites)
	if err != nil {
		return nil, fmt.Errorf("loading sites from %s: %w", source, err)
	}

	log.Info().
		Str("source", source).
		Int("site_count", table.Len()).
		Msg("Site table loaded")
	return table, nil
}

func fromFile(name string) ([]models.Site, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer func(f io.Closer) {
		if err := f.Close(); err != nil {
			log.Error().Err(err).Str("file", name).Msg("Error closing site file")
		}
	}(f)

	return Parse(name, f)
}

func (l *loader) awsConfig(ctx context.Context, endpoint string) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if l.region != "" {
		opts = append(opts, awsconfig.WithRegion(l.region))
	}
	if endpoint != "" {
		// Local development configuration
		log.Debug().Str("endpoint", endpoint).Msg("Using local AWS endpoint")
		opts = append(opts,
			awsconfig.WithRegion("local"),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("local", "local", "")),
			awsconfig.WithClientLogMode(aws.LogRetries),
		)
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	return cfg, nil
}

func (l *loader) newS3Client(ctx context.Context) (S3Client, error) {
	cfg, err := l.awsConfig(ctx, l.s3Endpoint)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if l.s3Endpoint != "" {
			o.BaseEndpoint = aws.String(l.s3Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func (l *loader) newDynamoClient(ctx context.Context) (DynamoScanner, error) {
	cfg, err := l.awsConfig(ctx, l.dynamoEndpoint)
	if err != nil {
		return nil, err
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if l.dynamoEndpoint != "" {
			o.BaseEndpoint = aws.String(l.dynamoEndpoint)
		}
	}), nil
}
