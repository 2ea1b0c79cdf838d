package resources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ObjectStore is the part of an object store the uploader needs.
type ObjectStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Put(ctx context.Context, key string, body io.ReadSeeker, contentType string) error
}

// Credentials selects how the store authenticates. A complete key pair is
// used as is; otherwise the SDK default chain runs against Profile.
type Credentials struct {
	KeyID        string
	Secret       string
	SessionToken string
	Profile      string
}

func (c Credentials) static() bool {
	return c.KeyID != "" && c.Secret != ""
}

// S3Store stores objects in one S3 bucket.
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store creates a store for cfg.Bucket. A custom endpoint switches to
// path-style addressing, which S3-compatible stores generally require.
func NewS3Store(ctx context.Context, cfg S3Config, creds Credentials) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 store: bucket is required")
	}

	awsCfg, err := loadAWSConfig(ctx, cfg.Region, creds)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

// loadAWSConfig resolves region and credentials. An explicit region wins
// over the profile's, and DefaultRegion fills in when neither has one.
func loadAWSConfig(ctx context.Context, region string, creds Credentials) (aws.Config, error) {
	if creds.static() {
		if region == "" {
			region = DefaultRegion
		}
		return aws.Config{
			Region: region,
			Credentials: credentials.NewStaticCredentialsProvider(
				creds.KeyID, creds.Secret, creds.SessionToken,
			),
		}, nil
	}

	var opts []func(*awsconfig.LoadOptions) error
	// The default profile is what the chain loads anyway; naming it
	// explicitly would fail on hosts without shared config files.
	if creds.Profile != "" && creds.Profile != "default" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(creds.Profile))
	}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("s3 store: load aws config (profile %q): %w", creds.Profile, err)
	}
	if awsCfg.Region == "" {
		awsCfg.Region = DefaultRegion
	}
	return awsCfg, nil
}

// Exists reports whether key is present in the bucket.
func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("head s3://%s/%s: %w", s.bucket, key, err)
}

// Put uploads body under key.
func (s *S3Store) Put(ctx context.Context, key string, body io.ReadSeeker, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var respErr *awshttp.ResponseError
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound
}
