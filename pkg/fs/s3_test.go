package fs

import (
	"bytes"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/client/metadata"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
)

func TestS3_Create(t *testing.T) {
	files := make(map[string][]byte)
	types := make(map[string]string)
	stor := newMockS3(files, types, "")

	_, written, err := stor.Create(testCtx, "high.mp4", "video/mp4", bytes.NewBuffer([]byte{1, 5, 7, 8, 3}))
	assert.NoError(t, err)
	assert.EqualValues(t, 5, written)

	d, ok := files["high.mp4"]
	assert.True(t, ok)
	assert.EqualValues(t, 5, len(d))
	assert.Equal(t, "video/mp4", types["high.mp4"])
}

func TestS3_CreateEmpty(t *testing.T) {
	files := make(map[string][]byte)
	stor := newMockS3(files, map[string]string{}, "")

	_, written, err := stor.Create(testCtx, "empty.jpg", "image/jpg", bytes.NewReader(nil))
	assert.NoError(t, err)
	assert.EqualValues(t, 0, written)

	d, ok := files["empty.jpg"]
	assert.True(t, ok)
	assert.Empty(t, d)
}

func TestS3_CreateWithPrefix(t *testing.T) {
	files := make(map[string][]byte)
	stor := newMockS3(files, map[string]string{}, "media")

	_, _, err := stor.Create(testCtx, "pic.png", "image/png", bytes.NewBuffer([]byte{1}))
	assert.NoError(t, err)

	_, ok := files["media/pic.png"]
	assert.True(t, ok)
}

func TestS3_Delete(t *testing.T) {
	files := make(map[string][]byte)
	stor := newMockS3(files, map[string]string{}, "")

	_, _, err := stor.Create(testCtx, "pic.png", "image/png", bytes.NewBuffer([]byte{1}))
	assert.NoError(t, err)

	err = stor.Delete(testCtx, "pic.png")
	assert.NoError(t, err)

	_, ok := files["pic.png"]
	assert.False(t, ok)
}

func TestS3_BuildKey(t *testing.T) {
	stor := newMockS3(map[string][]byte{}, map[string]string{}, "")
	assert.EqualValues(t, "test-fn", stor.buildKey("test-fn"))

	stor = newMockS3(map[string][]byte{}, map[string]string{}, "mock-prefix")
	assert.EqualValues(t, "mock-prefix/test-fn", stor.buildKey("test-fn"))
}

type mockS3API struct {
	s3iface.S3API
	files map[string][]byte
	types map[string]string
}

func newMockS3(files map[string][]byte, types map[string]string, prefix string) *S3 {
	api := &mockS3API{files: files, types: types}
	return &S3{
		api:      api,
		uploader: newUploader(api),
		bucket:   "mock-bucket",
		prefix:   prefix,
	}
}

func (m *mockS3API) PutObjectRequest(input *s3.PutObjectInput) (*request.Request, *s3.PutObjectOutput) {
	content, _ := io.ReadAll(input.Body)
	req := request.New(aws.Config{}, metadata.ClientInfo{}, request.Handlers{}, nil, &request.Operation{}, nil, nil)
	m.files[*input.Key] = content
	if input.ContentType != nil {
		m.types[*input.Key] = *input.ContentType
	}
	return req, &s3.PutObjectOutput{}
}

func (m *mockS3API) DeleteObjectWithContext(_ aws.Context, input *s3.DeleteObjectInput, _ ...request.Option) (*s3.DeleteObjectOutput, error) {
	delete(m.files, *input.Key)
	return &s3.DeleteObjectOutput{}, nil
}
