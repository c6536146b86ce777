// Package uploader sends finished recordings to the configured blob store.
package uploader

import "context"

// Result identifies an uploaded file on the hosting service.
type Result struct {
	ID  string // opaque identifier assigned by the store
	URL string // public playback/download URL
}

// BlobStore uploads a local file and returns its hosted identity.
// Failures are terminal; the engine never retries an upload.
type BlobStore interface {
	Upload(ctx context.Context, filePath string) (*Result, error)
}
