// Package blobs keeps the raw uploaded files on disk under stable identifiers.
package blobs

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/alexsergivan/transliterator"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const maxNameLength = 64

type Storage struct {
	dir      string
	translit *transliterator.Transliterator
}

func NewStorage(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "Failed to create uploads directory")
	}
	return &Storage{
		dir:      dir,
		translit: transliterator.NewTransliterator(nil),
	}, nil
}

// Blob is an upload being written. It becomes visible under its final name
// only after Commit.
type Blob struct {
	ID   string
	Path string

	file *os.File
	size int64
}

// Create opens a new blob. originalName only contributes a readable suffix.
func (s *Storage) Create(originalName string) (*Blob, error) {
	id := uuid.New().String()
	name := id
	if cleaned := s.CleanupName(originalName); cleaned != "" {
		name += "-" + cleaned
	}

	path := filepath.Join(s.dir, name)
	file, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create blob")
	}
	return &Blob{ID: id, Path: path, file: file}, nil
}

// CleanupName turns a user supplied file name into a safe ASCII file name.
func (s *Storage) CleanupName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	name = s.translit.Transliterate(name, "en")
	name = strings.Map(func(ch rune) rune {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
			return ch
		case ch == '.' || ch == '-' || ch == '_':
			return ch
		case ch == ' ':
			return '_'
		}
		return -1
	}, name)
	name = strings.TrimLeft(name, ".")
	if len(name) > maxNameLength {
		name = name[len(name)-maxNameLength:]
	}
	return name
}

func (b *Blob) Write(p []byte) (int, error) {
	n, err := b.file.Write(p)
	b.size += int64(n)
	return n, err
}

func (b *Blob) Size() int64 {
	return b.size
}

func (b *Blob) Commit() error {
	if err := b.file.Sync(); err != nil {
		b.Abort()
		return errors.Wrap(err, "Failed to sync blob")
	}
	if err := b.file.Close(); err != nil {
		os.Remove(b.file.Name())
		return errors.Wrap(err, "Failed to close blob")
	}
	if err := os.Rename(b.file.Name(), b.Path); err != nil {
		os.Remove(b.file.Name())
		return errors.Wrap(err, "Failed to publish blob")
	}
	return nil
}

func (b *Blob) Abort() {
	b.file.Close()
	os.Remove(b.file.Name())
}
