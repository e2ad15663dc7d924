package container

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redbco/redb-archive/pkg/config"
	"github.com/redbco/redb-archive/pkg/logger"
)

// objectPartSize bounds the upload buffer for streams of unknown length.
const objectPartSize = 16 * 1024 * 1024

// ObjectStore keeps containers as key prefixes in an S3-compatible bucket.
type ObjectStore struct {
	client *minio.Client
	bucket string
	region string
	prefix string
	log    *logger.Logger
}

// NewObjectStore connects to the endpoint described by cfg.
func NewObjectStore(cfg config.ObjectStoreConfig, log *logger.Logger) (*ObjectStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}
	return &ObjectStore{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
		prefix: strings.Trim(cfg.Prefix, "/"),
		log:    logger.OrNop(log),
	}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *ObjectStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	s.log.Infof("created bucket %s", s.bucket)
	return nil
}

func (s *ObjectStore) key(container, name string) string {
	return Join(Join(s.prefix, container), name)
}

type objectWriter struct {
	pw   *io.PipeWriter
	done chan error
	err  error
	shut bool
}

func (w *objectWriter) Write(p []byte) (int, error) { return w.pw.Write(p) }

func (w *objectWriter) Close() error {
	if w.shut {
		return w.err
	}
	w.shut = true
	w.pw.Close()
	w.err = <-w.done
	return w.err
}

// Create streams the object to the bucket while it is written; Close waits
// for the upload to complete.
func (s *ObjectStore) Create(ctx context.Context, container, name string) (io.WriteCloser, error) {
	key := s.key(container, name)
	if !validName(key) {
		return nil, fmt.Errorf("invalid object key %q", key)
	}
	pr, pw := io.Pipe()
	w := &objectWriter{pw: pw, done: make(chan error, 1)}
	go func() {
		_, err := s.client.PutObject(ctx, s.bucket, key, pr, -1, minio.PutObjectOptions{
			ContentType: "application/octet-stream",
			PartSize:    objectPartSize,
		})
		if err != nil {
			err = fmt.Errorf("failed to upload object %s: %w", key, err)
		}
		pr.CloseWithError(err)
		w.done <- err
	}()
	return w, nil
}

func (s *ObjectStore) Finish(_ context.Context, container string) error {
	s.log.Debugf("finished container %s in bucket %s", s.key(container, ""), s.bucket)
	return nil
}

func (s *ObjectStore) Open(ctx context.Context, container, name string) (io.ReadCloser, error) {
	key := s.key(container, name)
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, key)
		}
		return nil, fmt.Errorf("failed to stat object %s: %w", key, err)
	}
	object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	return object, nil
}
