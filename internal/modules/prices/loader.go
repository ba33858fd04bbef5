package prices

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// LoaderOptions carries what scheme-specific loaders need
type LoaderOptions struct {
	S3  S3Options
	Log zerolog.Logger
}

// NewLoader picks a loader by source scheme:
//
//	s3://bucket/key    -> S3Loader
//	sqlite://path.db   -> SQLiteLoader
//	anything else      -> CSVLoader on a local path
func NewLoader(ctx context.Context, source string, opts LoaderOptions) (Loader, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("price source must not be empty")
	}

	switch {
	case strings.HasPrefix(source, "s3://"):
		bucket, key, err := ParseS3URI(source)
		if err != nil {
			return nil, err
		}
		client, err := NewS3Client(ctx, opts.S3)
		if err != nil {
			return nil, err
		}
		return NewS3Loader(client, bucket, key, opts.Log), nil

	case strings.HasPrefix(source, "sqlite://"):
		path := strings.TrimPrefix(source, "sqlite://")
		if path == "" {
			return nil, fmt.Errorf("invalid sqlite source %q: missing path", source)
		}
		return NewSQLiteLoader(path, opts.Log), nil

	default:
		return NewCSVLoader(strings.TrimPrefix(source, "file://")), nil
	}
}

// StaticLoader serves an in-memory Series, used for request payloads
type StaticLoader struct {
	name   string
	series *Series
}

// NewStaticLoader wraps a Series
func NewStaticLoader(name string, series *Series) *StaticLoader {
	return &StaticLoader{name: name, series: series}
}

// Name returns the configured name
func (l *StaticLoader) Name() string { return l.name }

// Load validates and returns the wrapped series
func (l *StaticLoader) Load(ctx context.Context) (*Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.series == nil {
		return nil, &SourceError{Source: l.name, Err: ErrNoRows}
	}
	if err := l.series.Validate(); err != nil {
		return nil, &SourceError{Source: l.name, Err: err}
	}
	return l.series, nil
}
