package database

import (
	"context"
	"errors"
	"sync"
)

var (
	providerMu   sync.RWMutex
	projectStore func() ProjectWriter
	storeBackend string
	albumSource  func() AlbumSource
)

// RegisterProjectStore registers the project store constructor.
// This is called by the backend packages to avoid import cycles.
func RegisterProjectStore(backend string, store func() ProjectWriter) {
	providerMu.Lock()
	defer providerMu.Unlock()
	projectStore = store
	storeBackend = backend
}

// Backend returns the name of the registered store backend, or "" if none.
func Backend() string {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return storeBackend
}

// GetProjectWriter returns the registered project store
func GetProjectWriter(ctx context.Context) (ProjectWriter, error) {
	providerMu.RLock()
	defer providerMu.RUnlock()
	if projectStore == nil {
		return nil, errors.New("project store not initialized: set DATABASE_URL or SQLITE_PATH")
	}
	return projectStore(), nil
}

// GetProjectReader returns the registered project store as a reader
func GetProjectReader(ctx context.Context) (ProjectReader, error) {
	return GetProjectWriter(ctx)
}

// RegisterAlbumSource registers the external catalog reader.
func RegisterAlbumSource(source func() AlbumSource) {
	providerMu.Lock()
	defer providerMu.Unlock()
	albumSource = source
}

// GetAlbumSource returns the registered catalog reader
func GetAlbumSource(ctx context.Context) (AlbumSource, error) {
	providerMu.RLock()
	defer providerMu.RUnlock()
	if albumSource == nil {
		return nil, errors.New("album source not initialized: PHOTOPRISM_DATABASE_URL is required")
	}
	return albumSource(), nil
}

// ResetForTesting clears all registrations.
func ResetForTesting() {
	providerMu.Lock()
	defer providerMu.Unlock()
	projectStore = nil
	storeBackend = ""
	albumSource = nil
}
