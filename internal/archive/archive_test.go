package archive

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	gzip "github.com/klauspost/pgzip"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/research-catalog/internal/catalog"
	"github.com/helixir/research-catalog/internal/config"
	"github.com/helixir/research-catalog/internal/domain"
	"github.com/helixir/research-catalog/internal/observability"
)

var testMetrics = observability.NewMetrics("archive_test")

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = params
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{}, nil
}

type failingExporter struct{}

func (failingExporter) WriteCSV(io.Writer) (int, error) { return 0, errors.New("disk full") }

var fixedNow = time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)

func newTestArchiver(client ObjectPutter) *Archiver {
	a := New(client, config.ArchiveConfig{Bucket: "catalog", Prefix: "exports/"}, testMetrics, zerolog.Nop())
	a.now = func() time.Time { return fixedNow }
	return a
}

func TestArchiver_Key(t *testing.T) {
	a := newTestArchiver(&fakeS3{})
	assert.Equal(t, "exports/research_database_export-20250615T103000Z.csv.gz", a.Key(fixedNow))
}

func TestArchiver_Upload(t *testing.T) {
	snap := catalog.NewSnapshot(&domain.Dataset{
		Articles: []*domain.Article{{ID: "A1", Title: "One"}, {ID: "A2", Title: "Two"}},
	}, fixedNow)
	client := &fakeS3{}
	before := testutil.ToFloat64(testMetrics.ExportRows)

	got, err := newTestArchiver(client).Upload(context.Background(), snap)
	require.NoError(t, err)

	assert.Equal(t, "catalog", got.Bucket)
	assert.Equal(t, "exports/research_database_export-20250615T103000Z.csv.gz", got.Key)
	assert.Equal(t, 2, got.Rows)
	assert.Equal(t, len(client.body), got.Bytes)
	assert.Equal(t, fixedNow, got.CreatedAt)

	require.NotNil(t, client.input)
	assert.Equal(t, "catalog", aws.ToString(client.input.Bucket))
	assert.Equal(t, got.Key, aws.ToString(client.input.Key))
	assert.Equal(t, "gzip", aws.ToString(client.input.ContentEncoding))
	assert.Equal(t, "text/csv", aws.ToString(client.input.ContentType))

	zr, err := gzip.NewReader(strings.NewReader(string(client.body)))
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(plain), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], `"Article ID","Title"`))
	assert.True(t, strings.HasPrefix(lines[1], `"A1","One"`))

	assert.Equal(t, before+2, testutil.ToFloat64(testMetrics.ExportRows))
}

func TestArchiver_Upload_Errors(t *testing.T) {
	t.Run("export fails", func(t *testing.T) {
		client := &fakeS3{}
		_, err := newTestArchiver(client).Upload(context.Background(), failingExporter{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to write export")
		assert.Nil(t, client.input)
	})

	t.Run("upload fails", func(t *testing.T) {
		snap := catalog.NewSnapshot(&domain.Dataset{}, fixedNow)
		_, err := newTestArchiver(&fakeS3{err: errors.New("access denied")}).Upload(context.Background(), snap)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to upload archive")
		assert.Contains(t, err.Error(), "access denied")
	})
}

func TestNewS3Client(t *testing.T) {
	client, err := NewS3Client(context.Background(), config.ArchiveConfig{
		Endpoint:  "http://localhost:9000",
		Region:    "us-east-1",
		AccessKey: "key",
		SecretKey: "secret",
	})
	require.NoError(t, err)
	assert.NotNil(t, client)
	assert.Equal(t, "http://localhost:9000", aws.ToString(client.Options().BaseEndpoint))
	assert.True(t, client.Options().UsePathStyle)
}
