package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DocumentStore persists verification files on disk under a base directory.
// The workflow engine never inspects file bytes; it only keeps the returned
// file reference.
type DocumentStore struct {
	baseDir string
}

// NewDocumentStore ensures the base directory exists and returns a handle.
func NewDocumentStore(baseDir string) (*DocumentStore, error) {
	if baseDir == "" {
		baseDir = "./documents"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create documents directory: %w", err)
	}
	return &DocumentStore{baseDir: baseDir}, nil
}

// Store copies the uploaded stream into per-application storage and returns
// the file reference (a relative path).
func (s *DocumentStore) Store(applicationID, originalName string, r io.Reader) (string, error) {
	ext := filepath.Ext(originalName)
	fileRef := filepath.Join(applicationID, uuid.NewString()+strings.ToLower(ext))
	path := s.resolve(fileRef)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare document directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create document file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	if _, err := io.Copy(file, r); err != nil {
		return "", fmt.Errorf("write document stream: %w", err)
	}
	return filepath.ToSlash(fileRef), nil
}

// Open returns a reader for a previously stored file reference.
func (s *DocumentStore) Open(fileRef string) (io.ReadCloser, error) {
	path := s.resolve(fileRef)
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document file: %w", err)
	}
	return file, nil
}

// Stat reports the size and modification time of a stored file.
func (s *DocumentStore) Stat(fileRef string) (int64, time.Time, error) {
	info, err := os.Stat(s.resolve(fileRef))
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("stat document file: %w", err)
	}
	return info.Size(), info.ModTime(), nil
}

// Remove deletes a stored file. Missing files are not an error.
func (s *DocumentStore) Remove(fileRef string) error {
	err := os.Remove(s.resolve(fileRef))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove document file: %w", err)
	}
	return nil
}

func (s *DocumentStore) resolve(fileRef string) string {
	cleaned := filepath.Clean("/" + fileRef)
	return filepath.Join(s.baseDir, cleaned)
}
