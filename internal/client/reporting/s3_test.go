package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/carpool/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	in   *s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, f.err
}

func TestS3_ReportError(t *testing.T) {
	api := &fakeS3{}
	sink := newS3(api, "reports", "")

	r := New(apperr.NewAPIError("", 500, "/rides", apperr.CodeServer, nil), Context{
		Timestamp: time.Date(2026, 9, 1, 7, 45, 0, 0, time.UTC),
		Method:    "GET",
	})
	require.NoError(t, sink.ReportError(context.Background(), r))

	assert.Equal(t, "reports", aws.ToString(api.in.Bucket))
	assert.Equal(t, "error-reports/2026/09/01/"+r.ID+".json", aws.ToString(api.in.Key))
	assert.Equal(t, "application/json", aws.ToString(api.in.ContentType))

	var decoded Report
	require.NoError(t, json.Unmarshal(api.body, &decoded))
	assert.Equal(t, r.ID, decoded.ID)
	assert.Equal(t, apperr.CodeServer, decoded.Code)
}

func TestS3_PutFails(t *testing.T) {
	sink := newS3(&fakeS3{err: errors.New("access denied")}, "reports", "p")

	err := sink.ReportError(context.Background(), New(apperr.NewNetworkError("", nil), Context{}))
	assert.ErrorContains(t, err, "access denied")
}

func TestNewS3_AppliesConfig(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "eu-central-1", lo.Region)
		assert.NotNil(t, lo.Credentials)
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}

	sink, err := NewS3(context.Background(), S3Config{
		Region:    "eu-central-1",
		Endpoint:  "http://127.0.0.1:9000",
		Bucket:    "reports",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	})

	require.NoError(t, err)
	assert.Equal(t, "reports", sink.bucket)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)
}

func TestNewS3_LoadFails(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = origLoad })

	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no region")
	}

	_, err := NewS3(context.Background(), S3Config{})
	assert.ErrorContains(t, err, "load aws config")
}
