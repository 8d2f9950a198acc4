package storage

import (
	"context"
	"errors"
	"io"
)

// ErrForeignURL is returned when asked to delete a URL another store produced
var ErrForeignURL = errors.New("url is not managed by this store")

// ImageStore keeps uploaded image files and hands out their public URLs
type ImageStore interface {
	// Save stores body under name and returns the URL clients load it from.
	Save(ctx context.Context, name string, body io.Reader, size int64, contentType string) (string, error)
	// Delete removes the file behind url. Deleting a missing file is not an error.
	Delete(ctx context.Context, url string) error
}
