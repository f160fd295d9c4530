package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/renameio/v2"
)

const (
	sidecarSuffix = ".url"
	lockFileName  = ".lock"
)

// NewStore 以 basePath 为根目录构建磁盘缓存，整个进程复用一份实例。
// 目录创建失败时仍返回可用的 Store，同时返回 *RootError 供调用方记录。
func NewStore(basePath string) (Store, error) {
	if basePath == "" {
		return nil, errors.New("storage path required")
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve storage path: %w", err)
	}

	store := &fileStore{
		basePath: abs,
		locks:    make(map[string]*entryLock),
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return store, &RootError{Path: abs, Err: err}
	}
	return store, nil
}

// fileStore 通过 entryLock 避免同一 digest 在进程内并发写入，通过 flock 避免跨进程并发写入。
type fileStore struct {
	basePath string

	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

func (s *fileStore) Root() string {
	return s.basePath
}

func (s *fileStore) Get(ctx context.Context, digest string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filePath, err := s.payloadPath(digest)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, ErrNotFound
	}

	payload, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return payload, nil
}

func (s *fileStore) Has(ctx context.Context, digest string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	filePath, err := s.payloadPath(digest)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

func (s *fileStore) Provenance(ctx context.Context, digest string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	payloadPath, err := s.payloadPath(digest)
	if err != nil {
		return "", err
	}
	raw, err := os.ReadFile(payloadPath + sidecarSuffix)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", err
	}
	return string(raw), nil
}

func (s *fileStore) Put(ctx context.Context, digest, key string, payload []byte) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filePath, err := s.payloadPath(digest)
	if err != nil {
		return nil, err
	}

	unlock := s.lockEntry(digest)
	defer unlock()

	// 构造阶段可能未能创建根目录，这里再次尝试。
	if err := os.MkdirAll(s.basePath, 0o755); err != nil {
		return nil, &RootError{Path: s.basePath, Err: err}
	}

	fileLock := flock.New(filepath.Join(s.basePath, lockFileName))
	if err := fileLock.Lock(); err != nil {
		return nil, fmt.Errorf("acquire cache lock: %w", err)
	}
	defer fileLock.Unlock()

	sidecarPath := filePath + sidecarSuffix
	recorded, err := os.ReadFile(sidecarPath)
	switch {
	case err == nil:
		if string(recorded) != key {
			return nil, fmt.Errorf("%w: %s already records %q", ErrDigestCollision, digest, string(recorded))
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}

	// create-if-absent：持锁后再次确认，先完成写入的一方胜出。
	if info, err := os.Stat(filePath); err == nil && !info.IsDir() {
		return &Entry{
			Digest:    digest,
			Key:       key,
			FilePath:  filePath,
			SizeBytes: info.Size(),
			ModTime:   info.ModTime(),
			Created:   false,
		}, nil
	}

	if err := renameio.WriteFile(sidecarPath, []byte(key), 0o644); err != nil {
		return nil, fmt.Errorf("write sidecar: %w", err)
	}
	if err := renameio.WriteFile(filePath, payload, 0o644); err != nil {
		return nil, fmt.Errorf("write payload: %w", err)
	}

	return &Entry{
		Digest:    digest,
		Key:       key,
		FilePath:  filePath,
		SizeBytes: int64(len(payload)),
		ModTime:   time.Now().UTC(),
		Created:   true,
	}, nil
}

func (s *fileStore) lockEntry(digest string) func() {
	s.mu.Lock()
	lock := s.locks[digest]
	if lock == nil {
		lock = &entryLock{}
		s.locks[digest] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, digest)
		}
		s.mu.Unlock()
	}
}

func (s *fileStore) payloadPath(digest string) (string, error) {
	if !ValidDigest(digest) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDigest, digest)
	}
	return filepath.Join(s.basePath, digest), nil
}
