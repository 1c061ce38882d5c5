package fileutils

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookerybooks/bookery/pkg/errcodes"
)

func TestCopyFile(t *testing.T) {
	t.Run("copies contents", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "src.epub")
		dst := filepath.Join(dir, "dst.epub")
		require.NoError(t, os.WriteFile(src, []byte("payload"), 0644))

		require.NoError(t, CopyFile(src, dst))

		data, err := os.ReadFile(dst)
		require.NoError(t, err)
		assert.Equal(t, []byte("payload"), data)
	})

	t.Run("preserves permissions", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "src.epub")
		dst := filepath.Join(dir, "dst.epub")
		require.NoError(t, os.WriteFile(src, []byte("payload"), 0600))

		require.NoError(t, CopyFile(src, dst))

		info, err := os.Stat(dst)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	})

	t.Run("preserves modification time", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "src.epub")
		dst := filepath.Join(dir, "dst.epub")
		require.NoError(t, os.WriteFile(src, []byte("payload"), 0644))

		past := time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)
		require.NoError(t, os.Chtimes(src, past, past))

		require.NoError(t, CopyFile(src, dst))

		info, err := os.Stat(dst)
		require.NoError(t, err)
		assert.True(t, info.ModTime().Equal(past), "mod time %v, want %v", info.ModTime(), past)
	})

	t.Run("source is left untouched", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "src.epub")
		require.NoError(t, os.WriteFile(src, []byte("payload"), 0644))

		require.NoError(t, CopyFile(src, filepath.Join(dir, "dst.epub")))

		data, err := os.ReadFile(src)
		require.NoError(t, err)
		assert.Equal(t, []byte("payload"), data)
	})

	t.Run("overwrites an existing destination", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "src.epub")
		dst := filepath.Join(dir, "dst.epub")
		require.NoError(t, os.WriteFile(src, []byte("new"), 0644))
		require.NoError(t, os.WriteFile(dst, []byte("stale contents"), 0644))

		require.NoError(t, CopyFile(src, dst))

		data, err := os.ReadFile(dst)
		require.NoError(t, err)
		assert.Equal(t, []byte("new"), data)
	})

	t.Run("missing source", func(t *testing.T) {
		dir := t.TempDir()
		err := CopyFile(filepath.Join(dir, "absent.epub"), filepath.Join(dir, "dst.epub"))
		assert.Error(t, err)
	})
}

func TestHashFile(t *testing.T) {
	t.Run("hashes contents", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "book.epub")
		require.NoError(t, os.WriteFile(path, []byte("hello world"), 0644))

		sum, err := HashFile(path)
		require.NoError(t, err)
		assert.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", sum)
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.epub")
		require.NoError(t, os.WriteFile(path, nil, 0644))

		sum, err := HashFile(path)
		require.NoError(t, err)
		assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", sum)
	})

	t.Run("identical contents hash the same", func(t *testing.T) {
		dir := t.TempDir()
		a := filepath.Join(dir, "a.epub")
		b := filepath.Join(dir, "b.epub")
		require.NoError(t, os.WriteFile(a, []byte("same bytes"), 0644))
		require.NoError(t, os.WriteFile(b, []byte("same bytes"), 0644))

		hashA, err := HashFile(a)
		require.NoError(t, err)
		hashB, err := HashFile(b)
		require.NoError(t, err)
		assert.Equal(t, hashA, hashB)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := HashFile(filepath.Join(t.TempDir(), "absent.epub"))
		assert.Error(t, err)
	})
}

func TestResolveCollision(t *testing.T) {
	t.Run("free path is returned unchanged", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "book.epub")

		resolved, err := ResolveCollision(path)
		require.NoError(t, err)
		assert.Equal(t, path, resolved)
	})

	t.Run("occupied path gets a numeric suffix", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "book.epub")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

		resolved, err := ResolveCollision(path)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "book_1.epub"), resolved)
	})

	t.Run("counts past taken suffixes", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "book.epub")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "book_1.epub"), []byte("x"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "book_2.epub"), []byte("x"), 0644))

		resolved, err := ResolveCollision(path)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "book_3.epub"), resolved)
	})

	t.Run("path without an extension", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "notes")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

		resolved, err := ResolveCollision(path)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "notes_1"), resolved)
	})

	t.Run("exhaustion returns a collision error", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "book.epub")
		require.NoError(t, os.WriteFile(path, nil, 0644))
		for i := 1; i <= maxCollisionAttempts; i++ {
			name := fmt.Sprintf("book_%d.epub", i)
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
		}

		_, err := ResolveCollision(path)
		require.Error(t, err)
		assert.True(t, errcodes.IsKind(err, errcodes.KindCollisionExhausted))
	})
}
