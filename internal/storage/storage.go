// Package storage keeps mail attachment bytes in S3-compatible object
// storage so workflow events carry a key instead of the payload.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an object key does not exist.
var ErrNotFound = errors.New("object not found")

// ObjectStore stores and loads attachment bytes by key.
type ObjectStore interface {
	Put(ctx context.Context, folder, fileName, contentType string, data []byte) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
}

// Config defines the configuration interface for storage.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketAttachments() string
	IsMinIOEnabled() bool
}

// objectKey builds "<folder>/<base>_<8 hex><ext>" so repeated names never collide.
func objectKey(folder, fileName string) string {
	fileName = path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), "\\", "/"))
	if fileName == "." || fileName == "/" || fileName == "" {
		fileName = "attachment"
	}
	ext := path.Ext(fileName)
	base := strings.TrimSuffix(fileName, ext)
	return path.Join(folder, fmt.Sprintf("%s_%s%s", base, uuid.New().String()[:8], ext))
}

// MemoryStore is an in-process ObjectStore used when MinIO is not configured.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryStore creates an empty memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (m *MemoryStore) Put(_ context.Context, folder, fileName, contentType string, data []byte) (string, error) {
	if err := ValidateContentType(contentType); err != nil {
		return "", err
	}
	key := objectKey(folder, fileName)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	return key, nil
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}
