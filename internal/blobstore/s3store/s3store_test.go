package s3store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnq1909/music-web-stream-1/internal/blobstore"
)

type fakeAPI struct {
	mu          sync.Mutex
	objects     map[string][]byte
	parts       map[int32][]byte
	puts        int
	aborted     bool
	completed   bool
	failPart    int32
	lastRange   string
	bucketFound bool
	created     bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{objects: map[string][]byte{}, parts: map[int32][]byte{}, bucketFound: true}
}

func (f *fakeAPI) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, _ := io.ReadAll(in.Body)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeAPI) CreateMultipartUpload(_ context.Context, _ *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return &s3.CreateMultipartUploadOutput{UploadId: aws.String("upload-1")}, nil
}

func (f *fakeAPI) UploadPart(_ context.Context, in *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	n := aws.ToInt32(in.PartNumber)
	if f.failPart == n {
		return nil, errors.New("part rejected")
	}
	data, _ := io.ReadAll(in.Body)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.parts[n] = data
	return &s3.UploadPartOutput{ETag: aws.String("etag")}, nil
}

func (f *fakeAPI) CompleteMultipartUpload(_ context.Context, in *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var buf bytes.Buffer
	for _, p := range in.MultipartUpload.Parts {
		buf.Write(f.parts[aws.ToInt32(p.PartNumber)])
	}
	f.objects[aws.ToString(in.Key)] = buf.Bytes()
	f.completed = true
	return &s3.CompleteMultipartUploadOutput{}, nil
}

func (f *fakeAPI) AbortMultipartUpload(_ context.Context, _ *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aborted = true
	return &s3.AbortMultipartUploadOutput{}, nil
}

func (f *fakeAPI) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastRange = aws.ToString(in.Range)
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeAPI) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeAPI) HeadBucket(_ context.Context, _ *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if !f.bucketFound {
		return nil, &types.NotFound{}
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeAPI) CreateBucket(_ context.Context, _ *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.created = true
	f.bucketFound = true
	return &s3.CreateBucketOutput{}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPutObjectSmallBodyUsesSinglePut(t *testing.T) {
	api := newFakeAPI()
	store := NewWithClient(api, "uploads", 0, discardLogger())

	n, err := store.PutObject(context.Background(), "k", "audio/mpeg", bytes.NewReader([]byte("tiny")))
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.Equal(t, 1, api.puts)
	assert.False(t, api.completed)
	assert.Equal(t, []byte("tiny"), api.objects["k"])
}

func TestPutObjectLargeBodyUsesMultipart(t *testing.T) {
	api := newFakeAPI()
	store := NewWithClient(api, "uploads", MinPartSize, discardLogger())
	body := bytes.Repeat([]byte{7}, int(MinPartSize*2+123))

	n, err := store.PutObject(context.Background(), "big", "audio/mpeg", bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, int64(len(body)), n)
	assert.True(t, api.completed)
	assert.Len(t, api.parts, 3)
	assert.Equal(t, body, api.objects["big"])
}

func TestPutObjectAbortsOnPartFailure(t *testing.T) {
	api := newFakeAPI()
	api.failPart = 2
	store := NewWithClient(api, "uploads", MinPartSize, discardLogger())

	n, err := store.PutObject(context.Background(), "big", "", bytes.NewReader(make([]byte, MinPartSize*2)))
	require.Error(t, err)
	assert.Zero(t, n)
	assert.False(t, api.completed)
	assert.True(t, api.aborted)
	assert.NotContains(t, api.objects, "big")
}

func TestGetObjectRangesAndMissingKey(t *testing.T) {
	api := newFakeAPI()
	api.objects["k"] = []byte("0123456789")
	store := NewWithClient(api, "uploads", 0, discardLogger())

	rc, err := store.GetObject(context.Background(), "k", 2, 5)
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, "bytes=2-5", api.lastRange)

	rc, err = store.GetObject(context.Background(), "k", 0, -1)
	require.NoError(t, err)
	rc.Close()
	assert.Empty(t, api.lastRange)

	_, err = store.GetObject(context.Background(), "missing", 0, -1)
	assert.ErrorIs(t, err, blobstore.ErrObjectNotFound)
}

func TestEnsureBucketCreatesMissingBucket(t *testing.T) {
	api := newFakeAPI()
	api.bucketFound = false
	store := NewWithClient(api, "uploads", 0, discardLogger())

	require.NoError(t, store.EnsureBucket(context.Background()))
	assert.True(t, api.created)
	require.NoError(t, store.Ping(context.Background()))
}
