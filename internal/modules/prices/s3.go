package prices

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aristath/blendopt/internal/config"
	"github.com/aristath/blendopt/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
)

// S3Options configures the object storage client
type S3Options = config.S3Config

// S3Loader downloads a CSV object and parses it with ParseCSV
type S3Loader struct {
	bucket     string
	key        string
	downloader *manager.Downloader
	log        zerolog.Logger
}

// NewS3Loader creates a loader around an existing S3 client (or any
// manager.DownloadAPIClient, which is what tests pass).
func NewS3Loader(client manager.DownloadAPIClient, bucket, key string, log zerolog.Logger) *S3Loader {
	return &S3Loader{
		bucket: bucket,
		key:    key,
		downloader: manager.NewDownloader(client, func(d *manager.Downloader) {
			// Price files are small, one sequential part is enough
			d.Concurrency = 1
		}),
		log: logger.Component(log, "s3_loader"),
	}
}

// NewS3Client builds an S3 client from options. Static credentials are used
// when both keys are set, otherwise the SDK default chain applies.
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.HasStaticCredentials() {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// ParseS3URI splits s3://bucket/key
func ParseS3URI(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("invalid s3 uri %q: %w", uri, err)
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("invalid s3 uri %q: scheme must be s3", uri)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("invalid s3 uri %q: expected s3://bucket/key", uri)
	}
	return u.Host, key, nil
}

// Name returns the object URI
func (l *S3Loader) Name() string { return "s3://" + l.bucket + "/" + l.key }

// Load downloads the object and parses it
func (l *S3Loader) Load(ctx context.Context) (*Series, error) {
	buf := manager.NewWriteAtBuffer(nil)
	n, err := l.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(l.key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, &SourceError{Source: l.Name(), Err: ErrSourceNotFound}
		}
		return nil, &SourceError{Source: l.Name(), Err: fmt.Errorf("failed to download object: %w", err)}
	}

	l.log.Debug().Int64("bytes", n).Msg("Downloaded price object")

	series, err := ParseCSV(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, &SourceError{Source: l.Name(), Err: err}
	}
	return series, nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &noSuchBucket) {
		return true
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound {
		return true
	}
	return false
}
