// Package publish uploads run artifacts (the summary and batch logs) to an
// S3-compatible object store.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	DefaultRegion = "us-east-1"

	uploadTimeout = 60 * time.Second
)

// Config describes the object store destination
type Config struct {
	Endpoint  string // host:port, without scheme
	Bucket    string
	Prefix    string // Key prefix; objects land under <prefix>/<runID>/
	AccessKey string
	SecretKey string
	Region    string
	Insecure  bool // Use plain HTTP
}

// Enabled reports whether an endpoint is configured
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != ""
}

const redacted = "[REDACTED]"

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return redacted
}

// String prints the destination with the credentials redacted
func (c Config) String() string {
	return fmt.Sprintf("{Endpoint:%s Bucket:%s Prefix:%s AccessKey:%s SecretKey:%s Region:%s Insecure:%t}",
		c.Endpoint, c.Bucket, c.Prefix, redact(c.AccessKey), redact(c.SecretKey), c.Region, c.Insecure)
}

// LogValue implements slog.LogValuer; credentials are never logged
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("endpoint", c.Endpoint),
		slog.String("bucket", c.Bucket),
		slog.String("prefix", c.Prefix),
		slog.String("accessKey", redact(c.AccessKey)),
		slog.String("secretKey", redact(c.SecretKey)),
		slog.String("region", c.Region),
		slog.Bool("insecure", c.Insecure),
	)
}

// Validate checks that the destination is complete
func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include scheme: %q", c.Endpoint)
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("bucket is required")
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("access key is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("secret key is required")
	}
	return nil
}

// objectStore is the part of *minio.Client the publisher needs
type objectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

var _ objectStore = (*minio.Client)(nil)

// Publisher uploads files to a bucket
type Publisher struct {
	cfg   Config
	store objectStore
	log   log.Logger
}

// NewPublisher creates a publisher backed by a MinIO client
func NewPublisher(cfg Config, logger log.Logger) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    !cfg.Insecure,
		Region:    cfg.Region,
		Transport: newTransport(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}
	return newPublisher(cfg, client, logger), nil
}

func newPublisher(cfg Config, store objectStore, logger log.Logger) *Publisher {
	if logger == nil {
		logger = log.New()
	}
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}
	return &Publisher{cfg: cfg, store: store, log: logger}
}

// ObjectKey returns the key a file named name is stored under for a run
func (p *Publisher) ObjectKey(runID, name string) string {
	return path.Join(p.cfg.Prefix, runID, filepath.ToSlash(name))
}

// Publish uploads every path for the run. Directories are uploaded
// recursively, keyed by their path relative to the directory's parent.
// It returns the keys written.
func (p *Publisher) Publish(ctx context.Context, runID string, paths ...string) ([]string, error) {
	if err := p.ensureBucket(ctx); err != nil {
		return nil, err
	}

	var keys []string
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return keys, fmt.Errorf("failed to stat %s: %w", root, err)
		}
		if !info.IsDir() {
			key := p.ObjectKey(runID, filepath.Base(root))
			if err := p.upload(ctx, root, key); err != nil {
				return keys, err
			}
			keys = append(keys, key)
			continue
		}

		parent := filepath.Dir(root)
		err = filepath.WalkDir(root, func(file string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			rel, err := filepath.Rel(parent, file)
			if err != nil {
				return err
			}
			key := p.ObjectKey(runID, rel)
			if err := p.upload(ctx, file, key); err != nil {
				return err
			}
			keys = append(keys, key)
			return nil
		})
		if err != nil {
			return keys, err
		}
	}

	p.log.Info("Published run artifacts", "bucket", p.cfg.Bucket, "objects", len(keys))
	return keys, nil
}

func (p *Publisher) ensureBucket(ctx context.Context) error {
	exists, err := p.store.BucketExists(ctx, p.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("bucket exists: %w", err)
	}
	if exists {
		return nil
	}
	p.log.Info("Creating bucket", "bucket", p.cfg.Bucket)
	if err := p.store.MakeBucket(ctx, p.cfg.Bucket, minio.MakeBucketOptions{Region: p.cfg.Region}); err != nil {
		return fmt.Errorf("make bucket %s: %w", p.cfg.Bucket, err)
	}
	return nil
}

func (p *Publisher) upload(ctx context.Context, file, key string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", file, err)
	}

	putCtx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()
	_, err = p.store.PutObject(putCtx, p.cfg.Bucket, key, f, info.Size(),
		minio.PutObjectOptions{ContentType: contentType(file)})
	if err != nil {
		return fmt.Errorf("failed to upload %s to %s/%s: %w", file, p.cfg.Bucket, key, err)
	}
	p.log.Debug("Uploaded object", "file", file, "key", key, "size", info.Size())
	return nil
}

func contentType(file string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".json":
		return "application/json"
	case ".log", ".txt", ".prom":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
