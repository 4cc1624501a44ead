package filex

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrInvalidDataURL = errors.New("invalid data url")

var dataURLMime = regexp.MustCompile(`data:(.*?);base64`)

// EncodeDataURL renders f as "data:<type>;base64,<payload>".
func EncodeDataURL(f *File) string {
	typ := f.Type
	if typ == "" {
		typ = DefaultType
	}
	return "data:" + typ + ";base64," + base64.StdEncoding.EncodeToString(f.Content)
}

// DecodeDataURL splits u on the first comma. The MIME type is taken from the
// header (DefaultType when absent); the payload must be standard base64.
func DecodeDataURL(u string) (mime string, content []byte, err error) {
	header, payload, ok := strings.Cut(u, ",")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing comma", ErrInvalidDataURL)
	}

	mime = DefaultType
	if m := dataURLMime.FindStringSubmatch(header); m != nil && m[1] != "" {
		mime = m[1]
	}

	content, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrInvalidDataURL, err)
	}
	return mime, content, nil
}

func splitParams(mime string) (string, string, bool) {
	t, params, ok := strings.Cut(mime, ";")
	return strings.TrimSpace(t), strings.TrimSpace(params), ok
}
