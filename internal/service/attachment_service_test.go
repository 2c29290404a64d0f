package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"t3chat-be/internal/pkg/serverutils"
	"t3chat-be/pkg/blob"
)

func newAttachmentFixture() (IAttachmentService, *fakeBlobStore) {
	store := &fakeBlobStore{objects: map[string]*blob.Object{}}
	return NewAttachmentService(store, 1024, 2), store
}

func TestUploadAndGetRoundTrip(t *testing.T) {
	svc, _ := newAttachmentFixture()
	userId := uuid.New()

	res, err := svc.Upload(context.Background(), userId, []Upload{
		{Filename: "photo.png", ContentType: "image/png", Data: []byte{1, 2, 3}},
	})
	require.NoError(t, err)
	require.Len(t, res.Attachments, 1)
	assert.Equal(t, "image/png", res.Attachments[0].ContentType)

	obj, err := svc.Get(context.Background(), userId, res.Attachments[0].Id)
	require.NoError(t, err)
	assert.True(t, bytes.Equal([]byte{1, 2, 3}, obj.Data))
}

func TestGetByNonOwnerIsNotFound(t *testing.T) {
	svc, _ := newAttachmentFixture()
	owner := uuid.New()

	res, err := svc.Upload(context.Background(), owner, []Upload{
		{Filename: "notes.txt", ContentType: "text/plain", Data: []byte("secret")},
	})
	require.NoError(t, err)

	// A different viewer must not learn the attachment exists at all.
	_, err = svc.Get(context.Background(), uuid.New(), res.Attachments[0].Id)
	assert.ErrorIs(t, err, serverutils.ErrNotFound)
}

func TestUploadRejectsDisallowedMimeType(t *testing.T) {
	svc, store := newAttachmentFixture()

	_, err := svc.Upload(context.Background(), uuid.New(), []Upload{
		{Filename: "app.bin", ContentType: "application/octet-stream", Data: []byte{1}},
	})

	var verr *serverutils.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, store.objects)
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	svc, store := newAttachmentFixture()

	_, err := svc.Upload(context.Background(), uuid.New(), []Upload{
		{Filename: "big.png", ContentType: "image/png", Data: make([]byte, 2048)},
	})

	var verr *serverutils.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, store.objects)
}

func TestUploadRejectsTooManyFiles(t *testing.T) {
	svc, store := newAttachmentFixture()

	files := []Upload{
		{Filename: "a.png", ContentType: "image/png", Data: []byte{1}},
		{Filename: "b.png", ContentType: "image/png", Data: []byte{1}},
		{Filename: "c.png", ContentType: "image/png", Data: []byte{1}},
	}
	_, err := svc.Upload(context.Background(), uuid.New(), files)

	var verr *serverutils.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, store.objects)
}

func TestUploadRejectsMixedBatchEntirely(t *testing.T) {
	svc, store := newAttachmentFixture()

	// One valid and one invalid file: nothing may be stored.
	_, err := svc.Upload(context.Background(), uuid.New(), []Upload{
		{Filename: "ok.png", ContentType: "image/png", Data: []byte{1}},
		{Filename: "nope.pdf", ContentType: "application/pdf", Data: []byte{1}},
	})

	var verr *serverutils.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, store.objects)
}
