package filex

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrFileTooSmall    = errors.New("file is too small")
	ErrFileTooLarge    = errors.New("file is too large")
	ErrUnsupportedType = errors.New("unsupported file type")
)

// Limits bounds the files accepted into the stage.
type Limits struct {
	MinSize int64
	MaxSize int64
}

// DefaultLimits accepts 1 KiB up to 50 MiB.
func DefaultLimits() Limits {
	return Limits{MinSize: 1 << 10, MaxSize: 50 << 20}
}

var allowedExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {},
	".pdf": {},
	".doc": {}, ".docx": {},
	".xls": {}, ".xlsx": {},
}

var allowedTypes = []string{
	"image/jpeg",
	"image/png",
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// Validate reports whether f may be staged: its size must lie within l and
// either its extension or its declared/sniffed type must be one of the
// accepted image, PDF, Word or Excel formats.
func Validate(f *File, l Limits) error {
	size := f.Size()
	if l.MinSize > 0 && size < l.MinSize {
		return fmt.Errorf("%w: %s is %d bytes, minimum is %d", ErrFileTooSmall, f.Name, size, l.MinSize)
	}
	if l.MaxSize > 0 && size > l.MaxSize {
		return fmt.Errorf("%w: %s is %d bytes, maximum is %d", ErrFileTooLarge, f.Name, size, l.MaxSize)
	}

	if _, ok := allowedExtensions[strings.ToLower(filepath.Ext(f.Name))]; ok {
		return nil
	}
	if declared, _, _ := splitParams(f.Type); mimetype.EqualsAny(declared, allowedTypes...) {
		return nil
	}
	if mimetype.EqualsAny(DetectType(f.Content), allowedTypes...) {
		return nil
	}

	return fmt.Errorf("%w: %s (%s)", ErrUnsupportedType, f.Name, f.Type)
}
