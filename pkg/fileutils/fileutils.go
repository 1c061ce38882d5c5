// Package fileutils provides the low-level file operations behind the
// write pipeline and the importer: copying with attribute preservation,
// collision-free naming, and content hashing.
package fileutils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/bookerybooks/bookery/pkg/errcodes"
)

// maxCollisionAttempts bounds the _1, _2, ... suffix search in
// ResolveCollision.
const maxCollisionAttempts = 10000

// hashBufferSize is the chunk size used when hashing file contents.
const hashBufferSize = 64 * 1024

// CopyFile copies the file at src to dst, carrying over the source's
// permissions and modification time. The destination is truncated when it
// already exists. The source is only ever opened for reading.
func CopyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return errors.WithStack(err)
	}
	defer sourceFile.Close()

	sourceInfo, err := sourceFile.Stat()
	if err != nil {
		return errors.WithStack(err)
	}

	destFile, err := os.Create(dst)
	if err != nil {
		return errors.WithStack(err)
	}

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		destFile.Close()
		return errors.WithStack(err)
	}
	if err := destFile.Close(); err != nil {
		return errors.WithStack(err)
	}

	if err := os.Chmod(dst, sourceInfo.Mode()); err != nil {
		return errors.WithStack(err)
	}
	modTime := sourceInfo.ModTime()
	if err := os.Chtimes(dst, modTime, modTime); err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// HashFile returns the SHA-256 digest of the file at path as lowercase hex.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.WithStack(err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, hashBufferSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", errors.WithStack(err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ResolveCollision returns path unchanged when nothing occupies it.
// Otherwise it appends _1, _2, ... to the stem until it finds a name that
// is still free. When every suffix up to maxCollisionAttempts is taken, a
// collision exhausted error is returned.
func ResolveCollision(path string) (string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path, nil
	}

	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for counter := 1; counter <= maxCollisionAttempts; counter++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, counter, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		}
	}
	return "", errors.WithStack(errcodes.CollisionExhausted(
		fmt.Sprintf("no free filename for %s after %d attempts", path, maxCollisionAttempts)))
}
