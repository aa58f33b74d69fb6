package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// JSONDocument is a whole-file JSON store. Every call re-reads the file; the mutex
// serializes load-mutate-save cycles of this process so concurrent updates are not lost.
type JSONDocument[T any] struct {
	mu         sync.Mutex
	path       string
	newDefault func() T
	logger     *zap.Logger
}

// NewJSONDocument binds a document to path. newDefault builds the empty value used
// when the file is absent or unreadable.
func NewJSONDocument[T any](path string, newDefault func() T, logger *zap.Logger) *JSONDocument[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JSONDocument[T]{path: path, newDefault: newDefault, logger: logger.With(zap.String("document", filepath.Base(path)))}
}

// Path returns the backing file.
func (d *JSONDocument[T]) Path() string {
	return d.path
}

// Init creates the parent directory and writes the default value when the file does not exist yet.
func (d *JSONDocument[T]) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(d.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if _, err := os.Stat(d.path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", d.path, err)
	}
	return d.write(d.newDefault())
}

// Load returns the stored value, or the default when the file is absent or corrupt.
func (d *JSONDocument[T]) Load() T {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.read()
}

// Save overwrites the file with value in a single replace.
func (d *JSONDocument[T]) Save(value T) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.write(value)
}

// Update loads the document, applies fn and saves the result. Nothing is written when fn fails.
func (d *JSONDocument[T]) Update(fn func(*T) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	value := d.read()
	if err := fn(&value); err != nil {
		return err
	}
	return d.write(value)
}

func (d *JSONDocument[T]) read() T {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			d.logger.Warn("read json document", zap.Error(err))
		}
		return d.newDefault()
	}
	value := d.newDefault()
	if err := json.Unmarshal(data, &value); err != nil {
		d.logger.Warn("corrupt json document, using empty default", zap.Error(err))
		return d.newDefault()
	}
	return value
}

func (d *JSONDocument[T]) write(value T) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(d.path), err)
	}
	dir := filepath.Dir(d.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(d.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, d.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", d.path, err)
	}
	return nil
}

// CheckDataDir reports whether dir exists and is a directory.
func CheckDataDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}
