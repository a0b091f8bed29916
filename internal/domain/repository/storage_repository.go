package repository

import "context"

// StorageRepository publishes exported report files.
type StorageRepository interface {
	// Upload copies a local file under destination and returns its URI.
	Upload(ctx context.Context, localPath, destination string) (string, error)
}
