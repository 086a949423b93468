package ingest

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"docchat-platform/internal/logger"
)

// ErrEmptyFile is returned when an upload carries no bytes.
var ErrEmptyFile = errors.New("file is empty")

// ErrFileTooLarge is returned when an upload exceeds the configured limit.
var ErrFileTooLarge = errors.New("file exceeds maximum size")

// StoredFile describes an upload written to local storage.
type StoredFile struct {
	Path       string
	SecureName string
	Hash       string
	Size       int64
}

// FileStorage keeps uploads on local disk until ingestion finishes.
type FileStorage struct {
	uploadDir string
	tempDir   string
	maxSize   int64
}

func NewFileStorage(uploadDir string, maxSize int64) (*FileStorage, error) {
	tempDir := filepath.Join(uploadDir, ".tmp")
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &FileStorage{uploadDir: uploadDir, tempDir: tempDir, maxSize: maxSize}, nil
}

// Dir returns the upload directory.
func (s *FileStorage) Dir() string {
	return s.uploadDir
}

// Store streams r to a temp file while hashing it, then renames it into
// the upload directory.
func (s *FileStorage) Store(r io.Reader, originalName string) (*StoredFile, error) {
	secureName := generateSecureFilename(originalName)
	finalPath := filepath.Join(s.uploadDir, secureName)

	tempPath := filepath.Join(s.tempDir, uuid.NewString()+".tmp")
	tempFile, err := os.Create(tempPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	hasher := md5.New()
	src := r
	if s.maxSize > 0 {
		src = io.LimitReader(r, s.maxSize+1)
	}
	written, err := io.Copy(io.MultiWriter(tempFile, hasher), src)
	closeErr := tempFile.Close()
	switch {
	case err != nil:
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	case closeErr != nil:
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to close temp file: %w", closeErr)
	case written == 0:
		os.Remove(tempPath)
		return nil, ErrEmptyFile
	case s.maxSize > 0 && written > s.maxSize:
		os.Remove(tempPath)
		return nil, ErrFileTooLarge
	}

	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to move file to final location: %w", err)
	}

	return &StoredFile{
		Path:       finalPath,
		SecureName: secureName,
		Hash:       hex.EncodeToString(hasher.Sum(nil)),
		Size:       written,
	}, nil
}

// Cleanup removes a stored file. Missing files are ignored.
func (s *FileStorage) Cleanup(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to cleanup file", "path", path, "error", err)
	}
}

// Sweep deletes regular files under the upload directory older than maxAge
// and returns how many were removed.
func (s *FileStorage) Sweep(maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	err := filepath.WalkDir(s.uploadDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err == nil {
				removed++
			}
		}
		return nil
	})
	return removed, err
}

func generateSecureFilename(originalName string) string {
	randomBytes := make([]byte, 8)
	rand.Read(randomBytes)

	ext := strings.ToLower(filepath.Ext(originalName))
	base := strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName))

	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ' || r == '.':
			return '_'
		}
		return -1
	}, base)
	if len(safe) > 50 {
		safe = safe[:50]
	}

	return fmt.Sprintf("%s_%s_%s%s", time.Now().Format("20060102_150405"), hex.EncodeToString(randomBytes), safe, ext)
}
