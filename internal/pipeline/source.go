package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"slidecue/internal/fileutil"
	"slidecue/internal/textutil"
)

type sourceKind int

const (
	kindNone sourceKind = iota
	kindFile
	kindUpload
)

// Source is an input given either as a path on disk or as a stream with a
// file name. It is resolved to a local path once, when a job starts.
type Source struct {
	kind   sourceKind
	path   string
	name   string
	reader io.Reader
}

// ExistingFile refers to a file already on disk.
func ExistingFile(path string) Source {
	return Source{kind: kindFile, path: path, name: filepath.Base(path)}
}

// Upload refers to streamed content that is copied into the job's work
// directory under a sanitized form of name.
func Upload(name string, r io.Reader) Source {
	return Source{kind: kindUpload, name: name, reader: r}
}

// IsZero reports whether no source was given.
func (s Source) IsZero() bool {
	return s.kind == kindNone
}

// Name returns the file name the source was given under.
func (s Source) Name() string {
	return s.name
}

// Path returns the on-disk path of a file source, or the name of an upload.
func (s Source) Path() string {
	if s.kind == kindFile {
		return s.path
	}
	return s.name
}

// Stem returns the sanitized file name without extension.
func (s Source) Stem() string {
	base := textutil.SanitizeFileName(s.name)
	if stem := strings.TrimSuffix(base, filepath.Ext(base)); stem != "" {
		return stem
	}
	return base
}

// Resolve returns a readable local path for the source, copying uploads into
// dir.
func (s Source) Resolve(dir string) (string, error) {
	switch s.kind {
	case kindFile:
		info, err := os.Stat(s.path)
		if err != nil {
			return "", err
		}
		if info.IsDir() {
			return "", fmt.Errorf("%s is a directory", s.path)
		}
		return s.path, nil
	case kindUpload:
		if s.reader == nil {
			return "", errors.New("upload has no content")
		}
		name := textutil.SanitizeFileName(s.name)
		if name == "" || name == "." || name == ".." {
			return "", fmt.Errorf("upload has no usable file name (%q)", s.name)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
		target := filepath.Join(dir, name)
		if _, err := fileutil.WriteFromReader(target, s.reader); err != nil {
			return "", fmt.Errorf("copy upload %s: %w", name, err)
		}
		return target, nil
	default:
		return "", errors.New("no source given")
	}
}
