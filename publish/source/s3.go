package source

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/bitrise-io/go-utils/v2/log"
)

const s3PartSize = 10 * 1024 * 1024

// ErrObjectNotFound is returned for s3 locations without an object.
var ErrObjectNotFound = errors.New("object not found")

// S3Config ...
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// Endpoint overrides the S3 endpoint, for S3 compatible storages.
	Endpoint string
}

// S3Downloader downloads s3://bucket/key media.
type S3Downloader struct {
	config S3Config
	logger log.Logger
}

// NewS3Downloader ...
func NewS3Downloader(config S3Config, logger log.Logger) *S3Downloader {
	return &S3Downloader{config: config, logger: logger}
}

// Download ...
func (d *S3Downloader) Download(ctx context.Context, location *url.URL, dest string) error {
	bucket, key, err := parseS3Location(location)
	if err != nil {
		return err
	}

	cfg, err := loadAWSConfig(ctx, d.config, d.logger)
	if err != nil {
		return fmt.Errorf("load aws credentials: %w", err)
	}

	client := s3.NewFromConfig(*cfg, func(o *s3.Options) {
		if d.config.Endpoint != "" {
			o.BaseEndpoint = aws.String(d.config.Endpoint)
			o.UsePathStyle = true
		}
	})

	_, err = client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var apiError smithy.APIError
		if errors.As(err, &apiError) {
			if _, ok := apiError.(*types.NotFound); ok {
				return fmt.Errorf("s3://%s/%s: %w", bucket, key, ErrObjectNotFound)
			}
		}
		return fmt.Errorf("head object: %w", err)
	}

	file, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer file.Close() //nolint:errcheck

	downloader := manager.NewDownloader(client, func(d *manager.Downloader) {
		d.PartSize = s3PartSize
	})
	n, err := downloader.Download(ctx, file, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("get object: %w", err)
	}
	d.logger.Debugf("Downloaded %d bytes from s3://%s/%s", n, bucket, key)

	return nil
}

func parseS3Location(location *url.URL) (string, string, error) {
	bucket := location.Host
	key := strings.TrimPrefix(location.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid s3 location %s, expected s3://bucket/key", location)
	}
	return bucket, key, nil
}

func loadAWSConfig(ctx context.Context, s3Config S3Config, logger log.Logger) (*aws.Config, error) {
	if s3Config.Region == "" {
		return nil, fmt.Errorf("region must not be empty")
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(s3Config.Region),
	}

	if s3Config.AccessKeyID != "" && s3Config.SecretAccessKey != "" {
		logger.Debugf("Using static aws credentials")
		opts = append(opts,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(s3Config.AccessKeyID, s3Config.SecretAccessKey, "")))
	} else {
		logger.Debugf("aws credentials not defined, loading credentials from environment...")
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config, %v", err)
	}

	return &cfg, nil
}
