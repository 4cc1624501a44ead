package filex

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// ErrUnrecognizedSource means a value matched none of the known file shapes.
// It always points at a caller bug.
var ErrUnrecognizedSource = errors.New("unrecognized file representation")

// Source is the closed set of shapes a file may arrive in. The variants are
// *File, NativeHandle, WrappedBlob, DataURL and RawBytes.
type Source interface {
	isSource()
}

func (*File) isSource() {}

// NativeHandle is a file on the local filesystem.
type NativeHandle struct {
	Path string
	// Name and Type override the base name and the sniffed type when set.
	Name string
	Type string
}

func (NativeHandle) isSource() {}

// WrappedBlob carries a stream of bytes plus optional metadata.
type WrappedBlob struct {
	Name string
	Type string
	Blob io.Reader
}

func (WrappedBlob) isSource() {}

// DataURL is a base64 data URL, e.g. "data:application/pdf;base64,JVBERi0x".
type DataURL struct {
	Name string
	Type string
	URL  string
}

func (DataURL) isSource() {}

// RawBytes is a byte array with a mandatory MIME type.
type RawBytes struct {
	Name  string
	Type  string
	Bytes []byte
}

func (RawBytes) isSource() {}

// Normalize converts src into a canonical *File. A *File is returned as is.
//
// Name falls back to DefaultName; Type falls back to the type carried by the
// payload (data-URL header or sniffed content). RawBytes without a Type is
// rejected, since raw bytes carry no type of their own.
func Normalize(src Source) (*File, error) {
	switch s := src.(type) {
	case *File:
		if s == nil {
			return nil, ErrUnrecognizedSource
		}
		return s, nil

	case NativeHandle:
		if s.Path == "" {
			return nil, ErrUnrecognizedSource
		}
		content, err := os.ReadFile(s.Path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", s.Path, err)
		}
		name := s.Name
		if name == "" {
			name = filepath.Base(s.Path)
		}
		return newFile(name, s.Type, content), nil

	case WrappedBlob:
		if s.Blob == nil {
			return nil, ErrUnrecognizedSource
		}
		content, err := io.ReadAll(s.Blob)
		if err != nil {
			return nil, fmt.Errorf("read blob: %w", err)
		}
		return newFile(s.Name, s.Type, content), nil

	case DataURL:
		mime, content, err := DecodeDataURL(s.URL)
		if err != nil {
			return nil, err
		}
		typ := s.Type
		if typ == "" {
			typ = mime
		}
		return newFile(s.Name, typ, content), nil

	case RawBytes:
		if s.Bytes == nil || s.Type == "" {
			return nil, ErrUnrecognizedSource
		}
		return newFile(s.Name, s.Type, s.Bytes), nil

	default:
		return nil, ErrUnrecognizedSource
	}
}

func newFile(name, typ string, content []byte) *File {
	if name == "" {
		name = DefaultName
	}
	if typ == "" {
		typ = DetectType(content)
	}
	return &File{Name: name, Type: typ, Content: content}
}

// DetectType sniffs the MIME type of content without parameters.
func DetectType(content []byte) string {
	if len(content) == 0 {
		return DefaultType
	}
	m := mimetype.Detect(content)
	if m == nil {
		return DefaultType
	}
	t, _, _ := splitParams(m.String())
	return t
}
