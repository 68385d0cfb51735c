package archive

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUploader struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (s *stubUploader) Upload(_ context.Context, in *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	s.input = in
	if in.Body != nil {
		s.body, _ = io.ReadAll(in.Body)
	}
	if s.err != nil {
		return nil, s.err
	}
	return &manager.UploadOutput{}, nil
}

func fixedArchiver(up uploader, prefix string) *S3Archiver {
	a := newS3Archiver("ledger-exports", prefix, up, zerolog.Nop())
	a.now = func() time.Time { return time.Date(2025, 3, 7, 23, 30, 0, 0, time.UTC) }
	return a
}

func TestS3ArchiverPut(t *testing.T) {
	up := &stubUploader{}
	a := fixedArchiver(up, "")

	key, err := a.Put(context.Background(), "ledger.csv", "text/csv", []byte("a,b\n"))
	require.NoError(t, err)
	assert.Equal(t, "exports/2025/03/07/ledger.csv", key)
	assert.Equal(t, "ledger-exports", aws.ToString(up.input.Bucket))
	assert.Equal(t, "text/csv", aws.ToString(up.input.ContentType))
	assert.Equal(t, []byte("a,b\n"), up.body)
	assert.True(t, a.Enabled())
}

func TestS3ArchiverKeyStripsDirectories(t *testing.T) {
	a := fixedArchiver(&stubUploader{}, "/reports/")
	assert.Equal(t, "reports/2025/03/07/x.pdf", a.Key("../../x.pdf"))
}

func TestS3ArchiverPutError(t *testing.T) {
	boom := errors.New("access denied")
	a := fixedArchiver(&stubUploader{err: boom}, "")

	_, err := a.Put(context.Background(), "x.pdf", "application/pdf", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestNoopArchiver(t *testing.T) {
	var a Archiver = NoopArchiver{}
	assert.False(t, a.Enabled())
	_, err := a.Put(context.Background(), "x", "y", nil)
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestNewS3ArchiverRequiresBucket(t *testing.T) {
	_, err := NewS3Archiver(context.Background(), S3Config{}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrDisabled)
}
