package staging

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

type (
	// HTTPSource downloads archives from the dependency service at
	// http://{addr}/download/downloadDepJar/{taskID}.
	HTTPSource struct {
		client *http.Client
	}

	// S3Config configures the object store client of an S3Source.
	S3Config struct {
		Endpoint  string `yaml:"endpoint"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		Region    string `yaml:"region,omitempty"`
		UseSSL    bool   `yaml:"use_ssl,omitempty"`
	}

	// S3Source reads archives from s3://bucket/prefix/{taskID}.zip.
	S3Source struct {
		client *minio.Client
	}
)

// NewHTTPSource creates an HTTPSource whose connections time out after
// connectTimeout.
func NewHTTPSource(connectTimeout time.Duration) *HTTPSource {
	return NewHTTPSourceWithClient(&http.Client{Transport: newTransport(connectTimeout)})
}

// NewHTTPSourceWithClient creates an HTTPSource using client.
func NewHTTPSourceWithClient(client *http.Client) *HTTPSource {
	return &HTTPSource{client: client}
}

// Open implements Source. A 404 response means the task has no archive.
func (s *HTTPSource) Open(ctx context.Context, req Request) (io.ReadCloser, error) {
	addr := req.Addr
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}

	u := fmt.Sprintf("%s/download/downloadDepJar/%s", strings.TrimRight(addr, "/"), req.TaskID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid dependency url %s", u)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to download %s", u)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_ = resp.Body.Close()
		return nil, ErrNoArchive
	case resp.StatusCode != http.StatusOK:
		_ = resp.Body.Close()
		return nil, errors.Errorf("failed to download %s: unexpected status %s", u, resp.Status)
	}

	return resp.Body, nil
}

// NewS3Source creates an S3Source from cfg.
func NewS3Source(cfg S3Config, connectTimeout time.Duration) (*S3Source, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("endpoint is required")
	}

	if strings.Contains(cfg.Endpoint, "://") {
		return nil, errors.Errorf("endpoint must not include scheme: %q", cfg.Endpoint)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(connectTimeout),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create object store client")
	}

	return &S3Source{client: client}, nil
}

// Open implements Source. A missing object means the task has no archive.
func (s *S3Source) Open(ctx context.Context, req Request) (io.ReadCloser, error) {
	bucket, key, err := ObjectKey(req)
	if err != nil {
		return nil, err
	}

	if _, err := s.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrNoArchive
		}

		return nil, errors.Wrapf(err, "failed to stat s3://%s/%s", bucket, key)
	}

	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read s3://%s/%s", bucket, key)
	}

	return obj, nil
}

// ObjectKey returns the bucket and object key of the archive for req, whose
// Addr must be an s3://bucket[/prefix] URL.
func ObjectKey(req Request) (string, string, error) {
	u, err := url.Parse(req.Addr)
	if err != nil {
		return "", "", errors.Wrapf(err, "invalid object store address %q", req.Addr)
	}

	if u.Scheme != "s3" || u.Host == "" {
		return "", "", errors.Errorf("invalid object store address %q", req.Addr)
	}

	return u.Host, path.Join(strings.TrimPrefix(u.Path, "/"), req.TaskID.String()+".zip"), nil
}

func newTransport(connectTimeout time.Duration) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}

	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   connectTimeout,
		ExpectContinueTimeout: time.Second,
	}
}
