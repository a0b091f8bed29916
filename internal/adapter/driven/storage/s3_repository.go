// Package storage publishes exported reports to S3.
package storage

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/osg-htc/osg-reports/internal/domain/repository"
	"github.com/osg-htc/osg-reports/internal/shared/types"
)

// putObjectAPI is the part of the S3 client used for uploads.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3RepositoryImpl implements repository.StorageRepository. The AWS config
// is loaded on first upload so runs without --upload need no credentials.
type S3RepositoryImpl struct {
	profile string

	mu     sync.Mutex
	client putObjectAPI
}

// NewS3Repository creates a repository using the given shared config
// profile, or the default credential chain when profile is empty.
func NewS3Repository(profile string) repository.StorageRepository {
	return &S3RepositoryImpl{profile: profile}
}

// ParseS3URI splits s3://bucket/prefix into bucket and key prefix.
func ParseS3URI(uri string) (bucket, prefix string, err error) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("%w: %q", types.ErrInvalidS3URI, uri)
	}
	return u.Host, strings.Trim(u.Path, "/"), nil
}

// Upload puts localPath under destination and returns the object URI.
func (r *S3RepositoryImpl) Upload(ctx context.Context, localPath, destination string) (string, error) {
	bucket, prefix, err := ParseS3URI(destination)
	if err != nil {
		return "", err
	}

	client, err := r.getClient(ctx)
	if err != nil {
		return "", err
	}

	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("error opening %s: %w", localPath, err)
	}
	defer file.Close()

	key := path.Join(prefix, filepath.Base(localPath))
	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   file,
	}
	if ct := mime.TypeByExtension(filepath.Ext(localPath)); ct != "" {
		input.ContentType = aws.String(ct)
	}

	if _, err := client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("error uploading to s3://%s/%s: %w", bucket, key, err)
	}

	uri := fmt.Sprintf("s3://%s/%s", bucket, key)
	zerolog.Ctx(ctx).Debug().Str("uri", uri).Msg("report uploaded")
	return uri, nil
}

func (r *S3RepositoryImpl) getClient(ctx context.Context) (putObjectAPI, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client != nil {
		return r.client, nil
	}

	var opts []func(*config.LoadOptions) error
	if r.profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(r.profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for profile %s: %w", r.profile, err)
	}

	r.client = s3.NewFromConfig(cfg)
	return r.client, nil
}
