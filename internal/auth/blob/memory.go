package blob

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"
)

// MemoryStorage holds objects in process. Signed URLs point at a fake host and
// carry the expiry as a query parameter.
type MemoryStorage struct {
	Bucket string

	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{Bucket: "memory", objects: make(map[string][]byte)}
}

func (s *MemoryStorage) Upload(_ context.Context, obj Object, r io.Reader) (Descriptor, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, r)
	if err != nil {
		return Descriptor{}, fmt.Errorf("blob: read %s: %w", obj.Key, err)
	}
	sum := md5.Sum(buf.Bytes())

	s.mu.Lock()
	s.objects[obj.Key] = buf.Bytes()
	s.mu.Unlock()

	return Descriptor{Bucket: s.Bucket, Key: obj.Key, ETag: hex.EncodeToString(sum[:]), Size: n}, nil
}

func (s *MemoryStorage) SignedURL(_ context.Context, d Descriptor, ttl time.Duration) (string, error) {
	s.mu.RLock()
	_, ok := s.objects[d.Key]
	s.mu.RUnlock()
	if !ok {
		return "", ErrObjectNotFound
	}

	u := url.URL{
		Scheme:   "http",
		Host:     "blob.invalid",
		Path:     "/" + s.Bucket + "/" + d.Key,
		RawQuery: url.Values{"expires": {time.Now().Add(ttl).UTC().Format(time.RFC3339)}}.Encode(),
	}
	return u.String(), nil
}

func (s *MemoryStorage) Delete(_ context.Context, d Descriptor) error {
	s.mu.Lock()
	delete(s.objects, d.Key)
	s.mu.Unlock()
	return nil
}

// Get returns the stored bytes for key.
func (s *MemoryStorage) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.objects[key]
	return b, ok
}
