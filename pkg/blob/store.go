package blob

import (
	"context"
	"errors"
)

// ErrNotFound covers missing blobs and blobs owned by someone else; callers
// must not be able to tell the two apart.
var ErrNotFound = errors.New("attachment not found")

// Object is a stored attachment with its metadata.
type Object struct {
	Id          string
	ContentType string
	OwnerUserId string
	Data        []byte
}

// Store is a blob store keyed by generated attachment id, scoped to the
// uploading user on retrieval.
type Store interface {
	Put(ctx context.Context, ownerUserId, contentType string, data []byte) (string, error)
	// Get returns the blob only when requesterUserId matches the stored
	// owner; any other outcome is ErrNotFound.
	Get(ctx context.Context, id, requesterUserId string) (*Object, error)
}
