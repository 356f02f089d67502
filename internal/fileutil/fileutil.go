package fileutil

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

const partialSuffix = ".part"

// WriteFileVerified writes data to a temporary sibling of dst, re-reads it to
// verify size and SHA256, then renames it into place. The temporary file is
// removed on any failure so dst is either complete or absent.
func WriteFileVerified(fs afero.Fs, dst string, data []byte, mode os.FileMode) error {
	tmp := dst + partialSuffix
	out, err := fs.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(tmp), err)
	}
	written, err := io.Copy(out, bytes.NewReader(data))
	if err != nil {
		_ = out.Close()
		_ = fs.Remove(tmp)
		return fmt.Errorf("write %s: %w", filepath.Base(tmp), err)
	}
	if err := out.Close(); err != nil {
		_ = fs.Remove(tmp)
		return fmt.Errorf("close %s: %w", filepath.Base(tmp), err)
	}
	if written != int64(len(data)) {
		_ = fs.Remove(tmp)
		return fmt.Errorf("write size mismatch: expected %d bytes, wrote %d bytes", len(data), written)
	}

	if err := verifyHash(fs, tmp, sha256.Sum256(data)); err != nil {
		_ = fs.Remove(tmp)
		return err
	}
	if err := fs.Rename(tmp, dst); err != nil {
		_ = fs.Remove(tmp)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

func verifyHash(fs afero.Fs, path string, want [sha256.Size]byte) error {
	in, err := fs.Open(path)
	if err != nil {
		return fmt.Errorf("reopen for verification: %w", err)
	}
	defer in.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, in); err != nil {
		return fmt.Errorf("read back: %w", err)
	}
	if !bytes.Equal(hasher.Sum(nil), want[:]) {
		return fmt.Errorf("write hash mismatch: file corrupted during write")
	}
	return nil
}
