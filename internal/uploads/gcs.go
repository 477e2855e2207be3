package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"inmovc/internal/gcp"
	"inmovc/internal/logger"
)

// GCSStorage keeps files as objects in a Cloud Storage bucket. Paths have
// the form gs://bucket/object.
type GCSStorage struct {
	client *storage.Client
	bucket string
	log    zerolog.Logger
}

func NewGCSStorage(ctx context.Context, bucket string) (*GCSStorage, error) {
	if bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	client, err := storage.NewClient(ctx, gcp.ClientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	return &GCSStorage{
		client: client,
		bucket: bucket,
		log:    logger.WithComponent("uploads-gcs"),
	}, nil
}

// Save uploads r only if the object does not exist yet.
func (s *GCSStorage) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	name, err := SanitizeName(name)
	if err != nil {
		return "", err
	}

	writer := s.client.Bucket(s.bucket).Object(name).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = "application/pdf"

	if _, err := io.Copy(writer, r); err != nil {
		_ = writer.Close()
		return "", s.writeErr(name, err)
	}
	if err := writer.Close(); err != nil {
		return "", s.writeErr(name, err)
	}

	path := GCSPath(s.bucket, name)
	s.log.Debug().Str("path", path).Msg("Upload saved")
	return path, nil
}

func (s *GCSStorage) writeErr(name string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
		return fmt.Errorf("%w: %s", ErrExists, name)
	}
	return fmt.Errorf("failed to write to GCS: %w", err)
}

func (s *GCSStorage) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	bucket, object, err := ParseGCSPath(path)
	if err != nil {
		return nil, err
	}
	r, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return r, nil
}

// Delete removes the object. A missing object is not an error.
func (s *GCSStorage) Delete(ctx context.Context, path string) error {
	bucket, object, err := ParseGCSPath(path)
	if err != nil {
		return err
	}
	if err := s.client.Bucket(bucket).Object(object).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

func (s *GCSStorage) Close() error {
	return s.client.Close()
}

// GCSPath formats a gs:// URI.
func GCSPath(bucket, object string) string {
	return "gs://" + bucket + "/" + object
}

// ParseGCSPath splits a gs://bucket/object URI.
func ParseGCSPath(path string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(path, "gs://")
	if !ok {
		return "", "", fmt.Errorf("%w: %s is not a gs:// path", ErrInvalidName, path)
	}
	bucket, object, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidName, path)
	}
	return bucket, object, nil
}
