package backup

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/runningman84/truenas-status/pkg/config"
)

// ErrorKind classifies an upload failure by the provider error code
type ErrorKind string

const (
	ErrorKindNoSuchBucket      ErrorKind = "NoSuchBucket"
	ErrorKindInvalidAccessKey  ErrorKind = "InvalidAccessKeyId"
	ErrorKindSignatureMismatch ErrorKind = "SignatureDoesNotMatch"
	ErrorKindAccessDenied      ErrorKind = "AccessDenied"
	ErrorKindOther             ErrorKind = "Other"
)

// UploadError is a classified upload failure
type UploadError struct {
	Kind ErrorKind
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed (%s): %v", e.Kind, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// Description returns a message describing the failure for the operator
func (e *UploadError) Description() string {
	switch e.Kind {
	case ErrorKindNoSuchBucket:
		return "the bucket does not exist, check S3_BUCKET_NAME"
	case ErrorKindInvalidAccessKey:
		return "the access key is not valid, check S3_ACCESS_KEY_ID"
	case ErrorKindSignatureMismatch:
		return "the request signature does not match, check S3_SECRET_ACCESS_KEY"
	case ErrorKindAccessDenied:
		return "access denied, check the bucket policy for this key"
	default:
		return fmt.Sprintf("unexpected error: %v", e.Err)
	}
}

// Classify maps an upload error to its kind using the provider error code
func Classify(err error) *UploadError {
	var uploadErr *UploadError
	if errors.As(err, &uploadErr) {
		return uploadErr
	}

	kind := ErrorKindOther
	switch ErrorKind(minio.ToErrorResponse(err).Code) {
	case ErrorKindNoSuchBucket:
		kind = ErrorKindNoSuchBucket
	case ErrorKindInvalidAccessKey:
		kind = ErrorKindInvalidAccessKey
	case ErrorKindSignatureMismatch:
		kind = ErrorKindSignatureMismatch
	case ErrorKindAccessDenied:
		kind = ErrorKindAccessDenied
	}
	return &UploadError{Kind: kind, Err: err}
}

// S3Uploader uploads backups to an S3 compatible object store
type S3Uploader struct {
	client *minio.Client
	bucket string
}

// NewS3Uploader creates an uploader from the object storage settings.
// The endpoint may be given with or without a scheme, https is the default.
func NewS3Uploader(cfg *config.Config) (*S3Uploader, error) {
	endpoint, secure, err := parseEndpoint(cfg.S3EndpointURL)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, ""),
		Secure: secure,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	return &S3Uploader{client: client, bucket: cfg.S3BucketName}, nil
}

// Upload stores the local file in the bucket under objectName
func (u *S3Uploader) Upload(ctx context.Context, localPath, objectName string) error {
	_, err := u.client.FPutObject(ctx, u.bucket, objectName, localPath, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return Classify(err)
	}
	return nil
}

// parseEndpoint splits an endpoint URL into host[:port] and the TLS flag
func parseEndpoint(raw string) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("S3_ENDPOINT_URL is not set")
	}
	if !strings.Contains(raw, "://") {
		return strings.TrimRight(raw, "/"), true, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("invalid S3_ENDPOINT_URL %q: %w", raw, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid S3_ENDPOINT_URL %q: missing host", raw)
	}
	switch u.Scheme {
	case "https":
		return u.Host, true, nil
	case "http":
		return u.Host, false, nil
	default:
		return "", false, fmt.Errorf("invalid S3_ENDPOINT_URL %q: scheme must be http or https", raw)
	}
}
