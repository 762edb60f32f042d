// Package filestore keeps one file per key under a directory of a
// vfs.FileSystem. Writes go to a temporary file that is renamed into place.
package filestore

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/adrg/xdg"
	"github.com/google/uuid"
	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
)

const (
	fileSuffix = ".state"
	tempPrefix = ".tmp-"
)

// DefaultDir returns the directory used when none is configured:
// $XDG_DATA_HOME/<app>/state.
func DefaultDir(app string) string {
	return filepath.Join(xdg.DataHome, app, "state")
}

type config struct {
	fs     vfs.FileSystem
	perm   os.FileMode
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*config)

// WithFS selects the filesystem. Defaults to the host filesystem.
func WithFS(fs vfs.FileSystem) Option {
	return func(c *config) {
		c.fs = fs
	}
}

// WithPerm sets the mode of written files. Defaults to 0600.
func WithPerm(perm os.FileMode) Option {
	return func(c *config) {
		c.perm = perm
	}
}

// WithLogger sets the logger used for cleanup warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// Store is a file-per-key backend.
type Store struct {
	fs     vfs.FileSystem
	dir    string
	perm   os.FileMode
	logger *slog.Logger

	mu sync.Mutex
}

// Open prepares dir on the configured filesystem and returns a Store rooted
// there.
func Open(dir string, opts ...Option) (*Store, error) {
	cfg := config{perm: 0o600}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.fs == nil {
		cfg.fs = osfs.New()
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if dir == "" {
		return nil, errors.New("filestore: directory is required")
	}
	if err := cfg.fs.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("filestore: create %q: %w", dir, err)
	}
	return &Store{fs: cfg.fs, dir: dir, perm: cfg.perm, logger: cfg.logger}, nil
}

// Dir returns the directory holding the files.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) GetItem(key string) (string, bool, error) {
	f, err := s.fs.Open(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("filestore: open %q: %w", key, err)
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return "", false, fmt.Errorf("filestore: read %q: %w", key, err)
	}
	return string(raw), true, nil
}

func (s *Store) SetItem(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeAtomic(s.path(key), []byte(value)); err != nil {
		return fmt.Errorf("filestore: write %q: %w", key, err)
	}
	return nil
}

func (s *Store) RemoveItem(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.fs.Remove(s.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("filestore: remove %q: %w", key, err)
	}
	return nil
}

// Keys lists the stored keys in sorted order.
func (s *Store) Keys() ([]string, error) {
	d, err := s.fs.Open(s.dir)
	if err != nil {
		return nil, fmt.Errorf("filestore: open %q: %w", s.dir, err)
	}
	defer d.Close()

	names, err := d.Readdirnames(-1)
	if err != nil {
		return nil, fmt.Errorf("filestore: list %q: %w", s.dir, err)
	}
	keys := make([]string, 0, len(names))
	for _, name := range names {
		if strings.HasPrefix(name, tempPrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		key, err := url.PathUnescape(strings.TrimSuffix(name, fileSuffix))
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) writeAtomic(target string, data []byte) error {
	tmp := filepath.Join(s.dir, tempPrefix+uuid.NewString())
	f, err := s.fs.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, s.perm)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	success := false
	defer func() {
		if success {
			return
		}
		if err := s.fs.Remove(tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to remove temporary file", "path", tmp, "error", err)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := s.fs.Rename(tmp, target); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	success = true
	return nil
}

// path maps a key to a file name. Keys are escaped so any string, including
// ones with separators, stays inside dir.
func (s *Store) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+fileSuffix)
}
