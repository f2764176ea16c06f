// Package file provides a filesystem-backed blob store. Blobs are
// content-addressed by SHA-256 so re-uploading identical bytes reuses
// the same reference.
package file

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aquillm/aquillm/internal/core/domain"
	"github.com/aquillm/aquillm/internal/core/ports/driven"
)

// Ensure BlobStore implements the interface.
var _ driven.BlobStore = (*BlobStore)(nil)

// BlobStore stores raw source bytes under a data directory, one file
// per blob, named by content hash.
type BlobStore struct {
	dir string
}

// NewBlobStore creates a blob store rooted at the given directory.
// If dir is empty, defaults to ~/.aquillm/blobs.
func NewBlobStore(dir string) (*BlobStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, ".aquillm", "blobs")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating blob directory: %w", err)
	}
	return &BlobStore{dir: dir}, nil
}

// Put stores data and returns its content-hash reference.
func (s *BlobStore) Put(_ context.Context, data []byte) (string, error) {
	sum := sha256.Sum256(data)
	ref := hex.EncodeToString(sum[:])

	path := s.blobPath(ref)
	if _, err := os.Stat(path); err == nil {
		// Identical content already stored.
		return ref, nil
	}

	// Write via a temp file so a crash never leaves a partial blob
	// under its final name.
	tmp, err := os.CreateTemp(s.dir, "blob-*")
	if err != nil {
		return "", fmt.Errorf("creating temp blob: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing blob: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("placing blob: %w", err)
	}
	return ref, nil
}

// Get retrieves the bytes for a reference.
func (s *BlobStore) Get(_ context.Context, ref string) ([]byte, error) {
	if !validRef(ref) {
		return nil, fmt.Errorf("%w: blob ref %q", domain.ErrInvalidInput, ref)
	}
	data, err := os.ReadFile(s.blobPath(ref))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("reading blob: %w", err)
	}
	return data, nil
}

// Delete removes a blob. Deleting an unknown reference is not an error.
func (s *BlobStore) Delete(_ context.Context, ref string) error {
	if !validRef(ref) {
		return fmt.Errorf("%w: blob ref %q", domain.ErrInvalidInput, ref)
	}
	if err := os.Remove(s.blobPath(ref)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting blob: %w", err)
	}
	return nil
}

func (s *BlobStore) blobPath(ref string) string {
	return filepath.Join(s.dir, ref)
}

// validRef rejects references that could escape the blob directory.
func validRef(ref string) bool {
	if ref == "" || strings.ContainsAny(ref, "/\\.") {
		return false
	}
	return true
}
