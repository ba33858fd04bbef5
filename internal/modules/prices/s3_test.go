package prices

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 serves objects from memory
type fakeS3 struct {
	objects map[string]string
	err     error
	calls   int
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("The specified key does not exist.")}
	}
	size := int64(len(body))
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: aws.Int64(size),
		ContentRange:  aws.String(fmt.Sprintf("bytes 0-%d/%d", size-1, size)),
	}, nil
}

func TestS3Loader_Load(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	client := &fakeS3{objects: map[string]string{"supply/prices.csv": samplePrices}}

	loader := NewS3Loader(client, "supply", "prices.csv", logger)
	assert.Equal(t, "s3://supply/prices.csv", loader.Name())

	series, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 12, 11, 13}, series.A)
	assert.Equal(t, []float64{10, 10, 10, 10}, series.B)
	assert.Equal(t, 1, client.calls)
}

func TestS3Loader_NotFound(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)

	testCases := []struct {
		name   string
		client *fakeS3
	}{
		{"missing key", &fakeS3{objects: map[string]string{}}},
		{"missing bucket", &fakeS3{err: &types.NoSuchBucket{}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewS3Loader(tc.client, "supply", "prices.csv", logger).Load(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSourceNotFound)
		})
	}
}

func TestS3Loader_OtherFailure(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	client := &fakeS3{err: errors.New("connection reset")}

	_, err := NewS3Loader(client, "supply", "prices.csv", logger).Load(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrSourceNotFound))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestS3Loader_BadContent(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	client := &fakeS3{objects: map[string]string{"supply/prices.csv": "x,y\n1,2\n"}}

	_, err := NewS3Loader(client, "supply", "prices.csv", logger).Load(context.Background())
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestParseS3URI(t *testing.T) {
	bucket, key, err := ParseS3URI("s3://supply/history/2024/prices.csv")
	require.NoError(t, err)
	assert.Equal(t, "supply", bucket)
	assert.Equal(t, "history/2024/prices.csv", key)

	for _, bad := range []string{"s3://bucket", "s3:///key", "http://bucket/key", "s3://bucket/"} {
		_, _, err := ParseS3URI(bad)
		assert.Error(t, err, bad)
	}
}

func TestNewS3Client_StaticCredentials(t *testing.T) {
	ctx := context.Background()
	client, err := NewS3Client(ctx, S3Options{
		Region:          "eu-west-1",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio-secret",
	})
	require.NoError(t, err)

	opts := client.Options()
	assert.Equal(t, "eu-west-1", opts.Region)
	assert.True(t, opts.UsePathStyle)
	assert.Equal(t, "http://localhost:9000", aws.ToString(opts.BaseEndpoint))

	creds, err := opts.Credentials.Retrieve(ctx)
	require.NoError(t, err)
	assert.Equal(t, "minio", creds.AccessKeyID)
	assert.Equal(t, "minio-secret", creds.SecretAccessKey)
}
