package local

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kbukum/restkit/logger"
	"github.com/kbukum/restkit/storage"
	"github.com/kbukum/restkit/transfer"
)

func init() {
	storage.RegisterFactory(storage.ProviderLocal, func(cfg storage.Config, log *logger.Logger) (storage.Storage, error) {
		return NewStorage(cfg.BasePath, WithLogger(log))
	})
}

// Storage implements storage.Storage using the local filesystem. Uploads
// are written to a temporary file and renamed into place, so readers never
// observe a partial object.
type Storage struct {
	basePath string
	engine   *transfer.Engine
	log      *logger.Logger
}

// Option configures a local Storage.
type Option func(*Storage)

// WithEngine copies uploads through e instead of a default engine.
func WithEngine(e *transfer.Engine) Option {
	return func(s *Storage) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithLogger sets the storage logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Storage) {
		if l != nil {
			s.log = l
		}
	}
}

// NewStorage creates a new local filesystem storage rooted at basePath.
func NewStorage(basePath string, opts ...Option) (*Storage, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve base path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("storage: create base directory: %w", err)
	}
	s := &Storage{basePath: abs, log: logger.Get("storage")}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = transfer.NewEngine("local-storage", transfer.WithLogger(s.log))
	}
	return s, nil
}

// resolve maps an object key into basePath. The key is cleaned first, so
// ".." segments cannot escape the root.
func (s *Storage) resolve(key string) (string, error) {
	k, err := storage.CleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, filepath.FromSlash(k)), nil
}

// Upload copies reader into a temporary sibling of path and renames it on
// success. Cancellation or a read error removes the temporary file.
func (s *Storage) Upload(ctx context.Context, path string, reader io.Reader) (err error) {
	fullPath, err := s.resolve(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("storage: create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(fullPath)+".*.part")
	if err != nil {
		return fmt.Errorf("storage: create file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	p, err := s.engine.Copy(ctx, tmp, reader, transfer.Options{})
	if closeErr := tmp.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("storage: close file: %w", closeErr)
	}
	if err != nil {
		return err
	}
	if err = os.Rename(tmp.Name(), fullPath); err != nil {
		return fmt.Errorf("storage: rename file: %w", err)
	}
	s.log.WithContext(ctx).Debug("stored object", logger.Merge(
		logger.Fields("path", path),
		logger.TransferFields(p.TransferredBytes, p.TotalBytes),
	))
	return nil
}

// Download returns a reader for the local file at the given path.
func (s *Storage) Download(_ context.Context, path string) (io.ReadCloser, error) {
	fullPath, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.NotFound(path)
		}
		return nil, fmt.Errorf("storage: open file: %w", err)
	}
	return f, nil
}

// Delete removes a local file. Returns nil if the file does not exist.
func (s *Storage) Delete(_ context.Context, path string) error {
	fullPath, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: delete file: %w", err)
	}
	return nil
}

// Exists checks whether a local file exists.
func (s *Storage) Exists(_ context.Context, path string) (bool, error) {
	fullPath, err := s.resolve(path)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("storage: stat file: %w", err)
	}
	return true, nil
}

// URL returns a file:// URL for the local file.
func (s *Storage) URL(_ context.Context, path string) (string, error) {
	fullPath, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	u := &url.URL{Scheme: "file", Path: filepath.ToSlash(fullPath)}
	return u.String(), nil
}

// List returns metadata for all files whose relative path starts with
// prefix. In-flight uploads are skipped.
func (s *Storage) List(_ context.Context, prefix string) ([]storage.FileInfo, error) {
	baseDir := s.basePath
	if k, err := storage.CleanKey(prefix); err == nil {
		prefix = k
		baseDir = filepath.Dir(filepath.Join(s.basePath, filepath.FromSlash(k)))
	} else {
		prefix = ""
	}

	var files []storage.FileInfo
	err := filepath.Walk(baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || strings.HasSuffix(info.Name(), ".part") {
			return nil
		}
		relPath, err := filepath.Rel(s.basePath, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)
		if !strings.HasPrefix(relPath, prefix) {
			return nil
		}
		files = append(files, storage.FileInfo{
			Path:         relPath,
			Size:         info.Size(),
			LastModified: info.ModTime(),
			ContentType:  storage.ContentTypeFor(relPath),
		})
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return []storage.FileInfo{}, nil
		}
		return nil, fmt.Errorf("storage: list files: %w", err)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
	return files, nil
}

var _ storage.Storage = (*Storage)(nil)
