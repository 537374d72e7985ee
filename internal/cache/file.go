package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultStaleRetention bounds how long expired entries stay on disk for the
// stale-while-error fallback before Sweep removes them.
const DefaultStaleRetention = 24 * time.Hour

// FileStore is a directory-of-files cache backend. Each key maps to one JSON
// file named by the sha256 of the key. Writes go to a temp file in the same
// directory followed by an atomic rename, so a concurrent reader never
// observes a half-written value.
type FileStore struct {
	dir       string
	retention time.Duration
	now       func() time.Time
	logger    *log.Logger
}

func NewFileStore(dir string, retention time.Duration) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	if retention <= 0 {
		retention = DefaultStaleRetention
	}
	return &FileStore{
		dir:       dir,
		retention: retention,
		now:       time.Now,
		logger:    log.New(log.Writer(), "[CACHE] ", log.LstdFlags),
	}, nil
}

func (s *FileStore) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+".json")
}

func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	e, err := s.read(key)
	if err != nil {
		return nil, err
	}
	if e.expired(s.now()) {
		return nil, ErrMiss
	}
	return e.Value, nil
}

func (s *FileStore) GetStale(ctx context.Context, key string) ([]byte, error) {
	e, err := s.read(key)
	if err != nil {
		return nil, err
	}
	return e.Value, nil
}

func (s *FileStore) read(key string) (entry, error) {
	raw, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return entry{}, ErrMiss
		}
		return entry{}, fmt.Errorf("cache read: %w", err)
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		// Corrupted entries are removed and treated as absent.
		s.logger.Printf("removing corrupted entry for key %s: %v", key, err)
		_ = os.Remove(s.path(key))
		return entry{}, ErrMiss
	}
	return e, nil
}

func (s *FileStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{
		Key:        key,
		CreatedAt:  s.now(),
		TTLSeconds: int64(ttl / time.Second),
		Value:      json.RawMessage(value),
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".cache-*")
	if err != nil {
		return fmt.Errorf("cache write: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("cache write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("cache write: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("cache write: %w", err)
	}
	return nil
}

func (s *FileStore) Invalidate(ctx context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}

// Sweep removes entries that expired longer than the retention window ago.
// It returns the number of entries removed.
func (s *FileStore) Sweep(ctx context.Context) (int, error) {
	dirents, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("cache sweep: %w", err)
	}
	removed := 0
	now := s.now()
	for _, d := range dirents {
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			continue
		}
		p := filepath.Join(s.dir, d.Name())
		raw, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		var e entry
		if err := json.Unmarshal(raw, &e); err != nil {
			_ = os.Remove(p)
			removed++
			continue
		}
		if now.After(e.expiresAt().Add(s.retention)) {
			if err := os.Remove(p); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
