package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type putCall struct {
	opts PutOptions
	body string
}

type fakeService struct {
	deleted []string
	puts    []putCall
	putErr  error
	delErr  error
}

func (f *fakeService) PutObject(_ context.Context, body io.Reader, opts PutOptions) (string, error) {
	if f.putErr != nil {
		return "", f.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.puts = append(f.puts, putCall{opts: opts, body: string(data)})
	return "s3://" + opts.Bucket + "/" + opts.Key, nil
}

func (f *fakeService) DeletePrefix(_ context.Context, bucket, prefix string) error {
	if f.delErr != nil {
		return f.delErr
	}
	f.deleted = append(f.deleted, bucket+":"+prefix)
	return nil
}

func TestProfileImageArchive(t *testing.T) {
	store := &fakeService{}
	archive := NewProfileImageArchive(store, "images", "/profile-images/")

	location, err := archive.ArchiveProfileImage(context.Background(), "user-1", "image/png", []byte("png-bytes"))
	require.NoError(t, err)

	assert.Equal(t, []string{"images:profile-images/user-1/"}, store.deleted)
	require.Len(t, store.puts, 1)
	put := store.puts[0]
	assert.Equal(t, "images", put.opts.Bucket)
	assert.Equal(t, "image/png", put.opts.ContentType)
	assert.True(t, strings.HasPrefix(put.opts.Key, "profile-images/user-1/"), put.opts.Key)
	assert.True(t, strings.HasSuffix(put.opts.Key, ".png"), put.opts.Key)
	assert.Equal(t, "png-bytes", put.body)
	assert.Equal(t, "s3://images/"+put.opts.Key, location)
}

func TestProfileImageArchiveErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewProfileImageArchive(&fakeService{}, "images", "p").ArchiveProfileImage(ctx, "", "image/png", nil)
	assert.Error(t, err)

	denied := errors.New("access denied")
	store := &fakeService{delErr: denied}
	_, err = NewProfileImageArchive(store, "images", "p").ArchiveProfileImage(ctx, "user-1", "image/png", []byte("x"))
	assert.ErrorIs(t, err, denied)
	assert.Empty(t, store.puts)

	store = &fakeService{putErr: denied}
	_, err = NewProfileImageArchive(store, "images", "p").ArchiveProfileImage(ctx, "user-1", "image/png", []byte("x"))
	assert.ErrorIs(t, err, denied)
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, ".png", extensionFor("image/png"))
	assert.Equal(t, "", extensionFor("image/x-unknown-format"))
}
