package assets

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	put       *s3.PutObjectInput
	body      []byte
	deleted   []string
	putErr    error
	deleteErr error
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.put = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deleted = append(f.deleted, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func newTestStore(f *fakeObjects) *S3Store {
	return &S3Store{
		client:        f,
		bucket:        "avatars",
		publicBaseURL: "https://cdn.example.com",
		now:           func() time.Time { return time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC) },
	}
}

func TestNewS3Store_AppliesOptions(t *testing.T) {
	origLoad, origNew := loadDefaultAWSConfig, newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		require.NotNil(t, lo.Credentials)
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}

	st, err := NewS3Store(context.Background(), S3Config{
		Region:        "us-east-1",
		Endpoint:      "http://127.0.0.1:9000",
		AccessKey:     "minioadmin",
		SecretKey:     "minioadmin",
		Bucket:        "avatars",
		PublicBaseURL: "https://cdn.example.com/",
		UsePathStyle:  true,
	})
	require.NoError(t, err)

	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)
	assert.Equal(t, "https://cdn.example.com", st.publicBaseURL)
}

func TestNewS3Store_ConfigError(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no creds")
	}

	_, err := NewS3Store(context.Background(), S3Config{})
	assert.ErrorContains(t, err, "no creds")
}

func TestUpload(t *testing.T) {
	f := &fakeObjects{}
	st := newTestStore(f)

	ref, err := st.Upload(context.Background(), []byte("png"), "profile_images", "image/png")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(ref.AssetID, "profile_images/2025/03/07/"))
	assert.Equal(t, "https://cdn.example.com/"+ref.AssetID, ref.URL)
	assert.Equal(t, "avatars", aws.ToString(f.put.Bucket))
	assert.Equal(t, ref.AssetID, aws.ToString(f.put.Key))
	assert.Equal(t, "image/png", aws.ToString(f.put.ContentType))
	assert.Equal(t, []byte("png"), f.body)
}

func TestUpload_Error(t *testing.T) {
	st := newTestStore(&fakeObjects{putErr: errors.New("503")})

	_, err := st.Upload(context.Background(), []byte("png"), "profile_images", "image/png")
	assert.ErrorContains(t, err, "put object")
}

func TestDelete(t *testing.T) {
	f := &fakeObjects{}
	st := newTestStore(f)

	require.NoError(t, st.Delete(context.Background(), "profile_images/x"))
	assert.Equal(t, []string{"profile_images/x"}, f.deleted)

	f.deleteErr = errors.New("503")
	assert.ErrorContains(t, st.Delete(context.Background(), "profile_images/y"), "delete object")
}

func TestMemoryStore(t *testing.T) {
	m := NewMemoryStore("http://local")

	ref, err := m.Upload(context.Background(), []byte("img"), "profile_images", "image/png")
	require.NoError(t, err)
	assert.Equal(t, "http://local/"+ref.AssetID, ref.URL)

	got, err := m.Get(ref.AssetID)
	require.NoError(t, err)
	assert.Equal(t, []byte("img"), got)
	assert.Equal(t, 1, m.Len())

	require.NoError(t, m.Delete(context.Background(), ref.AssetID))
	_, err = m.Get(ref.AssetID)
	assert.Error(t, err)
	assert.Equal(t, 0, m.Len())
}
