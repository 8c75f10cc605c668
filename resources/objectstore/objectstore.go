// Package objectstore archives blobs to an S3-compatible bucket.
package objectstore

import (
	"bytes"
	"context"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/pkg/errors"
)

var (
	ErrNotConnected = errors.New("object store is not connected")
	ErrNoBucket     = errors.New("no bucket configured")
)

type Config struct {
	// Bucket to archive into. Empty disables archiving.
	Bucket string
	Region string
	// Endpoint overrides the S3 endpoint, for S3-compatible stores.
	Endpoint string
	// AccessKey and SecretKey are static credentials. When empty, the
	// default AWS credential chain is used.
	AccessKey string
	SecretKey string
}

type S3 struct {
	cfg Config

	mu     sync.RWMutex
	client *s3.S3
}

func New(cfg Config) *S3 {
	return &S3{cfg: cfg}
}

func (s *S3) Enabled() bool {
	return s.cfg.Bucket != ""
}

// Connect creates the client and, when a bucket is configured, checks it is reachable.
func (s *S3) Connect(ctx context.Context) error {
	awsCfg := aws.NewConfig()
	if s.cfg.Region != "" {
		awsCfg = awsCfg.WithRegion(s.cfg.Region)
	}
	if s.cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(s.cfg.Endpoint).WithS3ForcePathStyle(true)
	}
	if s.cfg.AccessKey != "" {
		awsCfg = awsCfg.WithCredentials(credentials.NewStaticCredentials(s.cfg.AccessKey, s.cfg.SecretKey, ""))
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return errors.Wrap(err, "creating aws session")
	}
	client := s3.New(sess)

	if s.Enabled() {
		_, err := client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
			Bucket: aws.String(s.cfg.Bucket),
		})
		if err != nil {
			return errors.Wrapf(err, "checking bucket %q", s.cfg.Bucket)
		}
	}

	s.mu.Lock()
	s.client = client
	s.mu.Unlock()
	return nil
}

func (s *S3) Put(ctx context.Context, key string, data []byte) error {
	if !s.Enabled() {
		return ErrNoBucket
	}

	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()
	if client == nil {
		return ErrNotConnected
	}

	_, err := client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	return errors.Wrapf(err, "putting object %q", key)
}
