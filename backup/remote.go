package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kjk/kvs/atomicfile"
	"github.com/kjk/kvs/log"
	"github.com/kjk/kvs/u"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// RemoteConfig describes S3-compatible storage for archives
type RemoteConfig struct {
	Endpoint string
	Access   string
	Secret   string
	Bucket   string
	Region   string
	// use http instead of https, for local minio servers
	Insecure bool
	// if set, all requests are logged here
	RequestTrace io.Writer
}

// Validate checks that all required fields are set
func (c *RemoteConfig) Validate() error {
	if c == nil {
		return errors.New("must provide config")
	}
	var missing []string
	if c.Endpoint == "" {
		missing = append(missing, "endpoint")
	}
	if c.Access == "" {
		missing = append(missing, "access")
	}
	if c.Secret == "" {
		missing = append(missing, "secret")
	}
	if c.Bucket == "" {
		missing = append(missing, "bucket")
	}
	if len(missing) > 0 {
		return fmt.Errorf("remote config is missing %v", missing)
	}
	return nil
}

// Remote uploads and downloads archives
type Remote struct {
	client *minio.Client
	bucket string
}

// NewRemote creates a client and checks that the bucket exists
func NewRemote(ctx context.Context, config *RemoteConfig) (*Remote, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	mc, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.Access, config.Secret, ""),
		Region: config.Region,
		Secure: !config.Insecure,
	})
	if err != nil {
		return nil, err
	}
	if config.RequestTrace != nil {
		mc.TraceOn(config.RequestTrace)
	}
	found, err := mc.BucketExists(ctx, config.Bucket)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("bucket '%s' doesn't exist", config.Bucket)
	}
	return &Remote{
		client: mc,
		bucket: config.Bucket,
	}, nil
}

func contentTypeFor(c u.Compression) string {
	switch c {
	case u.CompressionGzip:
		return "application/gzip"
	case u.CompressionZstd:
		return "application/zstd"
	case u.CompressionBrotli:
		return "application/x-brotli"
	}
	return "application/x-ndjson"
}

// Upload uploads archive at localPath as remoteKey
func (r *Remote) Upload(ctx context.Context, localPath string, remoteKey string) (*minio.UploadInfo, error) {
	opts := minio.PutObjectOptions{
		ContentType: contentTypeFor(u.CompressionForPath(localPath)),
	}
	ui, err := r.client.FPutObject(ctx, r.bucket, remoteKey, localPath, opts)
	if err != nil {
		return nil, fmt.Errorf("upload of '%s' as '%s' failed: %w", localPath, remoteKey, err)
	}
	log.Event("kvs.upload", "archive", localPath, "key", remoteKey, "size", ui.Size)
	return &ui, nil
}

// Download downloads remoteKey to localPath.
// localPath is only written if the whole object was downloaded.
func (r *Remote) Download(ctx context.Context, remoteKey string, localPath string) (int64, error) {
	obj, err := r.client.GetObject(ctx, r.bucket, remoteKey, minio.GetObjectOptions{})
	if err != nil {
		return 0, err
	}
	defer obj.Close()

	if err = os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return 0, err
	}
	n, err := atomicfile.WriteFrom(localPath, obj)
	if err != nil {
		return n, fmt.Errorf("download of '%s' to '%s' failed: %w", remoteKey, localPath, err)
	}
	log.Event("kvs.download", "key", remoteKey, "archive", localPath, "size", n)
	return n, nil
}
