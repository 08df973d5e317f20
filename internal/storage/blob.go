package storage

import (
	"io"
	"path"
)

// BlobStore holds content-unit media (videos, PDFs, documents).
type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
	URL(key string) (string, error) // fs returns "file://..." for dev
}

// MediaKey is the canonical key layout for a unit's media file.
func MediaKey(unitID, filename string) string {
	return path.Join("content", unitID, path.Base(filename))
}
