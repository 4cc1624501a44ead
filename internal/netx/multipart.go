// Package netx builds multipart upload requests and reports how much of the
// request body the transport has consumed.
package netx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"
)

// FormField is a plain text multipart field. Order is preserved on the wire.
type FormField struct {
	Name  string
	Value string
}

// FormFile is the single file part of an upload.
type FormFile struct {
	Field    string
	FileName string
	Type     string
	Content  []byte
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// BuildMultipart encodes fields followed by file into a multipart/form-data
// body and returns it together with its Content-Type header value.
func BuildMultipart(fields []FormField, file *FormFile) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range fields {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f.Name, err)
		}
	}

	if file != nil {
		typ := file.Type
		if typ == "" {
			typ = "application/octet-stream"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(file.Field), quoteEscaper.Replace(file.FileName)))
		h.Set("Content-Type", typ)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create file part: %w", err)
		}
		if _, err := part.Write(file.Content); err != nil {
			return nil, "", fmt.Errorf("write file part: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}

// NewUploadRequest wraps body in a progress-reporting reader. ContentLength
// and GetBody are set so the transport can send and replay it. A replayed
// body stays silent until it passes the bytes already reported, so progress
// never goes backwards.
func NewUploadRequest(ctx context.Context, method, url string, body []byte, contentType string, progress ProgressFunc) (*http.Request, error) {
	progress = forwardOnly(progress)
	req, err := http.NewRequestWithContext(ctx, method, url, NewProgressReader(bytes.NewReader(body), int64(len(body)), progress))
	if err != nil {
		return nil, err
	}
	req.ContentLength = int64(len(body))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(NewProgressReader(bytes.NewReader(body), int64(len(body)), progress)), nil
	}
	req.Header.Set("Content-Type", contentType)
	return req, nil
}

func forwardOnly(fn ProgressFunc) ProgressFunc {
	if fn == nil {
		return nil
	}
	var (
		mu   sync.Mutex
		high int64
	)
	return func(sent, total int64) {
		mu.Lock()
		if sent <= high {
			mu.Unlock()
			return
		}
		high = sent
		mu.Unlock()
		fn(sent, total)
	}
}
