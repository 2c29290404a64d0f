package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"t3chat-be/internal/dto"
	"t3chat-be/internal/pkg/serverutils"
	"t3chat-be/pkg/blob"
)

// Upload is one file from a multipart request, already read into memory.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

type IAttachmentService interface {
	Upload(ctx context.Context, userId uuid.UUID, files []Upload) (*dto.UploadAttachmentResponse, error)
	Get(ctx context.Context, userId uuid.UUID, attachmentId string) (*blob.Object, error)
}

type attachmentService struct {
	store        blob.Store
	maxFileBytes int
	maxFileCount int
}

func NewAttachmentService(store blob.Store, maxFileBytes, maxFileCount int) IAttachmentService {
	return &attachmentService{
		store:        store,
		maxFileBytes: maxFileBytes,
		maxFileCount: maxFileCount,
	}
}

// Upload validates every file before storing any, so a rejected batch is
// never partially applied.
func (s *attachmentService) Upload(ctx context.Context, userId uuid.UUID, files []Upload) (*dto.UploadAttachmentResponse, error) {
	if len(files) == 0 {
		return nil, &serverutils.ValidationError{Fields: map[string]string{
			"files": "at least one file is required",
		}}
	}
	if len(files) > s.maxFileCount {
		return nil, &serverutils.ValidationError{Fields: map[string]string{
			"files": fmt.Sprintf("at most %d files per upload", s.maxFileCount),
		}}
	}
	for _, f := range files {
		if !allowedContentType(f.ContentType) {
			return nil, &serverutils.ValidationError{Fields: map[string]string{
				f.Filename: "only image and text files are accepted",
			}}
		}
		if len(f.Data) > s.maxFileBytes {
			return nil, &serverutils.ValidationError{Fields: map[string]string{
				f.Filename: fmt.Sprintf("exceeds the %d byte limit", s.maxFileBytes),
			}}
		}
	}

	res := &dto.UploadAttachmentResponse{Attachments: make([]dto.AttachmentRef, 0, len(files))}
	for _, f := range files {
		id, err := s.store.Put(ctx, userId.String(), f.ContentType, f.Data)
		if err != nil {
			return nil, err
		}
		res.Attachments = append(res.Attachments, dto.AttachmentRef{
			Id:          id,
			ContentType: f.ContentType,
		})
	}
	return res, nil
}

func (s *attachmentService) Get(ctx context.Context, userId uuid.UUID, attachmentId string) (*blob.Object, error) {
	obj, err := s.store.Get(ctx, attachmentId, userId.String())
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, serverutils.ErrNotFound
		}
		return nil, err
	}
	return obj, nil
}

func allowedContentType(contentType string) bool {
	return strings.HasPrefix(contentType, "image/") || strings.HasPrefix(contentType, "text/")
}
