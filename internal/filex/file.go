// Package filex turns the different shapes a file can arrive in into one
// canonical in-memory File, and carries the helpers around it: data-URL
// encoding for durable storage, upload-eligibility checks and the local data
// directory.
package filex

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DefaultName is used when a source carries no usable file name.
const DefaultName = "upload.bin"

// DefaultType is used when no MIME type can be determined.
const DefaultType = "application/octet-stream"

// File is the canonical binary file: a name, a MIME type and the full content.
type File struct {
	Name    string
	Type    string
	Content []byte
}

func (f *File) Size() int64 {
	return int64(len(f.Content))
}

// Reader returns a fresh reader over the content.
func (f *File) Reader() io.Reader {
	return bytes.NewReader(f.Content)
}

func (f *File) String() string {
	return fmt.Sprintf("%s (%s, %d bytes)", f.Name, f.Type, len(f.Content))
}

// EnsureSubdDir creates dirName under the working directory if needed and
// returns its absolute path.
func EnsureSubdDir(dirName string) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getwd: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}
