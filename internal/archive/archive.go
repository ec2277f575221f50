// Package archive stores gzip-compressed CSV exports of the catalog in an
// S3-compatible bucket.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	gzip "github.com/klauspost/pgzip"
	"github.com/rs/zerolog"

	"github.com/helixir/research-catalog/internal/catalog"
	"github.com/helixir/research-catalog/internal/config"
	"github.com/helixir/research-catalog/internal/observability"
)

// keyTimeFormat stamps archive object keys.
const keyTimeFormat = "20060102T150405Z"

// ObjectPutter is the subset of the S3 client used to store archives.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Exporter writes the CSV export. *catalog.Snapshot implements it.
type Exporter interface {
	WriteCSV(w io.Writer) (int, error)
}

// Archive describes a stored export.
type Archive struct {
	Bucket    string    `json:"bucket"`
	Key       string    `json:"key"`
	Rows      int       `json:"rows"`
	Bytes     int       `json:"bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// Archiver compresses exports and uploads them.
type Archiver struct {
	client  ObjectPutter
	bucket  string
	prefix  string
	metrics *observability.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

// NewS3Client builds an S3 client from cfg. A custom endpoint switches to
// path-style addressing; static credentials are used when both keys are set,
// otherwise the default AWS credential chain applies.
func NewS3Client(ctx context.Context, cfg config.ArchiveConfig) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// New creates a new Archiver writing to cfg.Bucket under cfg.Prefix.
func New(client ObjectPutter, cfg config.ArchiveConfig, metrics *observability.Metrics, logger zerolog.Logger) *Archiver {
	return &Archiver{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  cfg.Prefix,
		metrics: metrics,
		logger:  logger.With().Str("component", "archive").Logger(),
		now:     time.Now,
	}
}

// Key returns the object key of an archive created at t.
func (a *Archiver) Key(t time.Time) string {
	name := strings.TrimSuffix(catalog.ExportFilename, ".csv")
	return fmt.Sprintf("%s%s-%s.csv.gz", a.prefix, name, t.UTC().Format(keyTimeFormat))
}

// Upload writes the export of exp, gzip-compressed, to a new object.
func (a *Archiver) Upload(ctx context.Context, exp Exporter) (*Archive, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	rows, err := exp.WriteCSV(zw)
	if err != nil {
		return nil, fmt.Errorf("failed to write export: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress export: %w", err)
	}

	created := a.now().UTC()
	key := a.Key(created)
	size := buf.Len()

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(a.bucket),
		Key:                aws.String(key),
		Body:               bytes.NewReader(buf.Bytes()),
		ContentType:        aws.String("text/csv"),
		ContentEncoding:    aws.String("gzip"),
		ContentDisposition: aws.String(fmt.Sprintf("attachment; filename=%q", catalog.ExportFilename)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload archive %s: %w", key, err)
	}

	a.metrics.RecordExport("archive", rows)
	logger := observability.FromContext(ctx, a.logger)
	logger.Info().
		Str("bucket", a.bucket).
		Str("key", key).
		Int("rows", rows).
		Int("bytes", size).
		Msg("export archived")

	return &Archive{Bucket: a.bucket, Key: key, Rows: rows, Bytes: size, CreatedAt: created}, nil
}
