package report

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/usagepulse/internal/domain/anomaly"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = params
	f.body, _ = io.ReadAll(params.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Archiver_Archive(t *testing.T) {
	putter := &fakePutter{}
	a := &S3Archiver{client: putter, bucket: "reports", prefix: "usagepulse/scans"}

	scannedAt := time.Date(2026, 3, 7, 18, 30, 0, 0, time.UTC)
	summary := anomaly.NewScanSummary(scannedAt)
	summary.CustomersScanned = 12
	summary.TotalAnomalies = 3

	require.NoError(t, a.Archive(context.Background(), summary))

	assert.Equal(t, "reports", aws.ToString(putter.input.Bucket))
	assert.Equal(t, "usagepulse/scans/2026/03/07/scan-1772908200.json", aws.ToString(putter.input.Key))
	assert.Equal(t, "application/json", aws.ToString(putter.input.ContentType))

	var got anomaly.ScanSummary
	require.NoError(t, json.Unmarshal(putter.body, &got))
	assert.Equal(t, 12, got.CustomersScanned)
	assert.Equal(t, 3, got.TotalAnomalies)
}

func TestS3Archiver_UploadError(t *testing.T) {
	a := &S3Archiver{client: &fakePutter{err: errors.New("access denied")}, bucket: "reports"}

	err := a.Archive(context.Background(), anomaly.NewScanSummary(time.Now()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}
