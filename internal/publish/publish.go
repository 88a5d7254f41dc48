// Package publish uploads final videos to S3-compatible object storage and
// returns their public URL.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"explainer/internal/config"
	"explainer/internal/logging"
	"explainer/internal/services"
	"explainer/internal/textutil"
)

const (
	stageName   = "publish"
	contentType = "video/mp4"
)

// Client is the subset of *s3.Client used for uploads.
type Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Publisher uploads files to one bucket.
type Publisher struct {
	client        Client
	bucket        string
	region        string
	endpoint      string
	prefix        string
	publicBaseURL string
	publicRead    bool
	logger        *slog.Logger
}

// Option customizes a Publisher.
type Option func(*Publisher)

// WithClient replaces the S3 client, mainly for tests.
func WithClient(client Client) Option {
	return func(p *Publisher) {
		if client != nil {
			p.client = client
		}
	}
}

// WithLogger sets the logging destination.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logging.NewComponentLogger(logger, "publish") }
}

// New builds a publisher from the [publish] section. Static keys are used
// when configured; otherwise the AWS default credential chain applies.
func New(ctx context.Context, cfg config.Publish, opts ...Option) (*Publisher, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "configure", "publish.bucket is empty", nil)
	}
	p := &Publisher{
		bucket:        cfg.Bucket,
		region:        cfg.Region,
		endpoint:      cfg.Endpoint,
		prefix:        strings.Trim(cfg.Prefix, "/"),
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		publicRead:    cfg.PublicRead,
		logger:        logging.NewComponentLogger(nil, "publish"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.client != nil {
		return p, nil
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "load aws config", "", err)
	}
	endpoint := cfg.Endpoint
	p.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return p, nil
}

// Key returns the object key for a local file belonging to jobID.
func (p *Publisher) Key(jobID, localPath string) string {
	name := textutil.SanitizeFileName(filepath.Base(localPath))
	parts := make([]string, 0, 3)
	if p.prefix != "" {
		parts = append(parts, p.prefix)
	}
	if jobID = textutil.SanitizeFileName(jobID); jobID != "" {
		parts = append(parts, jobID)
	}
	parts = append(parts, name)
	return path.Join(parts...)
}

// ObjectURL returns the public URL for key.
func (p *Publisher) ObjectURL(key string) string {
	escaped := escapeKey(key)
	if p.publicBaseURL != "" {
		return p.publicBaseURL + "/" + escaped
	}
	if p.endpoint != "" {
		if u, err := url.Parse(p.endpoint); err == nil && u.Host != "" {
			scheme := u.Scheme
			if scheme == "" {
				scheme = "https"
			}
			return fmt.Sprintf("%s://%s.%s/%s", scheme, p.bucket, u.Host, escaped)
		}
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", p.bucket, p.region, escaped)
}

// Upload stores localPath under the job's prefix and returns its public URL.
func (p *Publisher) Upload(ctx context.Context, jobID, localPath string) (string, error) {
	ctx = services.WithStage(ctx, stageName)
	logger := logging.WithContext(ctx, p.logger)

	file, err := os.Open(localPath)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, stageName, "open", localPath, err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, stageName, "stat", localPath, err)
	}
	if info.Size() == 0 {
		return "", services.Wrap(services.ErrExternalTool, stageName, "validate", "refusing to upload empty file", errors.New(localPath))
	}

	key := p.Key(jobID, localPath)
	input := &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(contentType),
	}
	if p.publicRead {
		input.ACL = types.ObjectCannedACLPublicRead
	}

	start := time.Now()
	if _, err := p.client.PutObject(ctx, input); err != nil {
		logging.WarnWithContext(logger, "upload failed", "publish_failed",
			logging.String("bucket", p.bucket),
			logging.String("key", key),
			logging.Error(err),
			logging.String(logging.FieldImpact, "final video kept locally only"),
			logging.String(logging.FieldErrorHint, "check publish credentials and bucket permissions"),
		)
		return "", services.Wrap(services.ErrExternalTool, stageName, "put object", key, err)
	}
	publicURL := p.ObjectURL(key)
	logger.Info("video published",
		logging.String("bucket", p.bucket),
		logging.String("key", key),
		logging.String("url", publicURL),
		logging.String("size", logging.FormatBytes(info.Size())),
		logging.Duration("elapsed", time.Since(start)),
		logging.String(logging.FieldEventType, "publish_completed"),
	)
	return publicURL, nil
}

func escapeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
