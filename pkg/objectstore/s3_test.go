package objectstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/freightcast/backend/internal/contracts"
	"github.com/wonny/freightcast/backend/pkg/config"
)

type fakeS3 struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func (f *fakeS3) Upload(ctx context.Context, in *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = body
	f.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &manager.UploadOutput{Key: in.Key}, nil
}

func newFakeStore() (*S3Store, *fakeS3) {
	fake := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	return &S3Store{bucket: "freight-rate-data", client: fake, uploader: fake}, fake
}

func TestS3Store_PutThenGet(t *testing.T) {
	store, fake := newFakeStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "processed/2026-10-19/freight_data.csv", []byte("a,b\n1,2\n"), "text/csv"))
	assert.Equal(t, "text/csv", fake.types["processed/2026-10-19/freight_data.csv"])

	got, err := store.Get(ctx, "processed/2026-10-19/freight_data.csv")
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(got))
}

func TestS3Store_MissingKey(t *testing.T) {
	store, _ := newFakeStore()

	_, err := store.Get(context.Background(), "raw/freight_data.csv")
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}

func TestS3Store_Errors(t *testing.T) {
	store, fake := newFakeStore()
	fake.err = errors.New("access denied")

	_, err := store.Get(context.Background(), "raw/freight_data.csv")
	assert.ErrorContains(t, err, "access denied")
	assert.NotErrorIs(t, err, contracts.ErrNotFound)

	err = store.Put(context.Background(), "k", []byte("x"), "text/csv")
	assert.ErrorContains(t, err, "access denied")
}

func TestNewS3_StaticCredentials(t *testing.T) {
	store, err := NewS3(context.Background(), config.S3Config{
		Bucket:          "freight-rate-data",
		Region:          "us-east-1",
		Endpoint:        "http://localhost:9000",
		UsePathStyle:    true,
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
	})
	require.NoError(t, err)
	assert.Equal(t, "freight-rate-data", store.Bucket())
}
