package fs

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// uploadConcurrency caps the number of multipart chunks in flight per
// transfer, which bounds memory to concurrency * part size.
const uploadConcurrency = 5

// S3Config is the configuration for a S3-compatible storage provider.
type S3Config struct {
	// S3 Bucket to store files
	Bucket string `toml:"bucket"`
	// Region of the S3 service
	Region string `toml:"region"`
	// EndpointURL is an HTTP endpoint of the S3 API
	EndpointURL string `toml:"endpoint_url"`
	// Prefix is prepended to every object key
	Prefix string `toml:"prefix"`
}

// S3 implements media storage for S3-compatible providers. Uploads are
// streamed in chunks directly from the source reader, the full object
// is never held in memory.
type S3 struct {
	api      s3iface.S3API
	uploader *s3manager.Uploader
	bucket   string
	prefix   string
}

var _ Storage = (*S3)(nil)

func NewS3(c S3Config) (*S3, error) {
	cfg := aws.NewConfig().
		WithEndpoint(c.EndpointURL).
		WithRegion(c.Region)

	sess, err := session.NewSessionWithOptions(session.Options{Config: *cfg})
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize S3 session")
	}

	api := s3.New(sess)

	return &S3{
		api:      api,
		uploader: newUploader(api),
		bucket:   c.Bucket,
		prefix:   c.Prefix,
	}, nil
}

func newUploader(api s3iface.S3API) *s3manager.Uploader {
	return s3manager.NewUploaderWithClient(api, func(u *s3manager.Uploader) {
		u.Concurrency = uploadConcurrency
		// Failed multipart uploads must be aborted so no partially
		// committed object stays visible.
		u.LeavePartsOnError = false
	})
}

func (s *S3) Create(ctx context.Context, name string, contentType string, reader io.Reader) (string, int64, error) {
	var (
		key    = s.buildKey(name)
		logger = log.WithField("key", key)
	)

	logger.Infof("uploading file to %s", s.bucket)
	r := &readerWithN{Reader: reader}

	out, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        r,
		ContentType: &contentType,
		ACL:         aws.String(s3.ObjectCannedACLPublicRead),
	})
	if err != nil {
		return "", 0, errors.Wrapf(err, "failed to upload %q", key)
	}

	logger.Debugf("written %d bytes", r.n)
	return out.Location, int64(r.n), nil
}

func (s *S3) Delete(ctx context.Context, name string) error {
	key := s.buildKey(name)

	_, err := s.api.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	return err
}

func (s *S3) buildKey(name string) string {
	if s.prefix == "" {
		return name
	}

	return fmt.Sprintf("%s/%s", strings.TrimSuffix(s.prefix, "/"), name)
}

type readerWithN struct {
	io.Reader
	n int
}

func (r *readerWithN) Read(p []byte) (n int, err error) {
	n, err = r.Reader.Read(p)
	r.n += n
	return
}
