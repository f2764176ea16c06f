package driven

import "context"

// BlobStore holds raw source bytes by reference. Ingestion never
// assumes local filesystem paths; everything goes through references.
type BlobStore interface {
	// Put stores data and returns its reference.
	Put(ctx context.Context, data []byte) (string, error)

	// Get retrieves the bytes for a reference.
	// Returns domain.ErrNotFound for unknown references.
	Get(ctx context.Context, ref string) ([]byte, error)

	// Delete removes a blob. Deleting an unknown reference is not an error.
	Delete(ctx context.Context, ref string) error
}
