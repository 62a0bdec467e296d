package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/encoding"
	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/model"
)

// File names used by FileStore.
const (
	ModelFile    = "demand_model.json"
	EncodersFile = "encoders.json"
)

// FileStore keeps artifacts as two JSON files in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the directory the store reads and writes.
func (s *FileStore) Dir() string {
	return s.dir
}

// Load reads both artifact files.
func (s *FileStore) Load(_ context.Context) (*Bundle, error) {
	var m model.LinearModel
	if err := s.read(ModelFile, &m); err != nil {
		return nil, err
	}
	var enc encoding.EncoderSet
	if err := s.read(EncodersFile, &enc); err != nil {
		return nil, err
	}

	b := &Bundle{Model: &m, Encoders: &enc}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("invalid artifacts in %s: %w", s.dir, err)
	}
	return b, nil
}

// Save writes both artifact files. Each file is replaced atomically.
func (s *FileStore) Save(_ context.Context, b *Bundle) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	if err := s.write(EncodersFile, b.Encoders); err != nil {
		return err
	}
	return s.write(ModelFile, b.Model)
}

func (s *FileStore) read(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func (s *FileStore) write(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck,gosec // write error takes precedence
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck,gosec // sync error takes precedence
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}
