package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreWritesAndHashes(t *testing.T) {
	s, err := NewFileStorage(t.TempDir(), 1024)
	require.NoError(t, err)

	stored, err := s.Store(strings.NewReader("hello"), "My Report.final.txt")
	require.NoError(t, err)

	assert.EqualValues(t, 5, stored.Size)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", stored.Hash)
	assert.True(t, strings.HasSuffix(stored.SecureName, "_My_Report_final.txt"))

	data, err := os.ReadFile(stored.Path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	s.Cleanup(stored.Path)
	_, err = os.Stat(stored.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestStoreRejectsEmptyAndOversize(t *testing.T) {
	s, err := NewFileStorage(t.TempDir(), 4)
	require.NoError(t, err)

	_, err = s.Store(strings.NewReader(""), "empty.txt")
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = s.Store(strings.NewReader("too long"), "big.txt")
	assert.ErrorIs(t, err, ErrFileTooLarge)

	temps, err := os.ReadDir(filepath.Join(s.Dir(), ".tmp"))
	require.NoError(t, err)
	assert.Empty(t, temps)
}

func TestSweepRemovesOldFiles(t *testing.T) {
	s, err := NewFileStorage(t.TempDir(), 0)
	require.NoError(t, err)

	old, err := s.Store(strings.NewReader("old"), "old.txt")
	require.NoError(t, err)
	fresh, err := s.Store(strings.NewReader("fresh"), "fresh.txt")
	require.NoError(t, err)

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(old.Path, past, past))

	j := NewJanitor(s, 24*time.Hour)
	j.Sweep()

	_, err = os.Stat(old.Path)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh.Path)
	assert.NoError(t, err)
}

func TestCleanupIgnoresMissing(t *testing.T) {
	s, err := NewFileStorage(t.TempDir(), 0)
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		s.Cleanup("")
		s.Cleanup(filepath.Join(s.Dir(), "missing.txt"))
	})
}
