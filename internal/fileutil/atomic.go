package fileutil

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteAtomic calls write with a temp file in the target's directory and
// renames it over target when write succeeds. The temp file is removed on
// any failure.
func WriteAtomic(target string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}

// WriteFromReader streams r into target atomically and returns the bytes
// written.
func WriteFromReader(target string, r io.Reader) (int64, error) {
	var written int64
	err := WriteAtomic(target, func(w io.Writer) error {
		n, err := io.Copy(w, r)
		written = n
		return err
	})
	return written, err
}

// CopyFile copies src to dst atomically, checking that the size and SHA256
// of the written bytes match the source. Copying a file onto itself is a
// no-op.
func CopyFile(src, dst string) error {
	if filepath.Clean(src) == filepath.Clean(dst) {
		return nil
	}
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	return WriteAtomic(dst, func(w io.Writer) error {
		srcHasher := sha256.New()
		dstHasher := sha256.New()
		written, err := io.Copy(io.MultiWriter(w, dstHasher), io.TeeReader(in, srcHasher))
		if err != nil {
			return err
		}
		if written != srcInfo.Size() {
			return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written)
		}
		if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
			return fmt.Errorf("copy hash mismatch: %s changed during copy", src)
		}
		return nil
	})
}
