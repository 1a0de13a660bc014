// Package blob stores the binary artifacts produced by audio and image
// generations under opaque keys.
package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/syssam/lingominer"
)

// Store reads and writes binary artifacts. Keys are opaque strings minted
// by the caller; implementations must be safe for concurrent use.
type Store interface {
	Upload(ctx context.Context, bucket, key string, data []byte) error
	Download(ctx context.Context, bucket, key string) ([]byte, error)
}

// validKeyRe restricts bucket and key names to a path-safe alphabet.
var validKeyRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

func checkName(kind, name string) error {
	if !validKeyRe.MatchString(name) {
		return fmt.Errorf("blob: invalid %s %q", kind, name)
	}
	return nil
}

// Disk is a Store backed by the local filesystem: one directory per bucket,
// one file per key.
type Disk struct {
	root string
}

// NewDisk creates a disk store rooted at dir.
func NewDisk(dir string) *Disk {
	return &Disk{root: dir}
}

// Upload writes data to root/bucket/key, creating the bucket directory as
// needed.
func (d *Disk) Upload(_ context.Context, bucket, key string, data []byte) error {
	if err := checkName("bucket", bucket); err != nil {
		return err
	}
	if err := checkName("key", key); err != nil {
		return err
	}
	dir := filepath.Join(d.root, bucket)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("blob: create bucket %q: %w", bucket, err)
	}
	if err := os.WriteFile(filepath.Join(dir, key), data, 0o644); err != nil {
		return fmt.Errorf("blob: write %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Download reads the object stored under bucket/key.
func (d *Disk) Download(_ context.Context, bucket, key string) ([]byte, error) {
	if err := checkName("bucket", bucket); err != nil {
		return nil, err
	}
	if err := checkName("key", key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(d.root, bucket, key))
	if os.IsNotExist(err) {
		return nil, lingominer.NewNotFoundErrorWithID("blob", bucket+"/"+key)
	}
	if err != nil {
		return nil, fmt.Errorf("blob: read %s/%s: %w", bucket, key, err)
	}
	return data, nil
}

// Mem is an in-memory Store for tests.
type Mem struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMem creates an empty in-memory store.
func NewMem() *Mem {
	return &Mem{objects: make(map[string][]byte)}
}

// Upload stores data under bucket/key.
func (m *Mem) Upload(_ context.Context, bucket, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.objects[bucket+"/"+key] = cp
	return nil
}

// Download returns the object stored under bucket/key.
func (m *Mem) Download(_ context.Context, bucket, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, lingominer.NewNotFoundErrorWithID("blob", bucket+"/"+key)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// Len returns the number of stored objects.
func (m *Mem) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

// Keys returns the stored bucket/key names.
func (m *Mem) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}
