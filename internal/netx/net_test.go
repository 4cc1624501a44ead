package netx

import (
	"bytes"
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMultipart_FieldsAndFile(t *testing.T) {
	content := []byte("%PDF-1.4 body")
	body, ct, err := BuildMultipart(
		[]FormField{{Name: "userId", Value: "u1"}, {Name: "transactionId", Value: "TXN_1"}},
		&FormFile{Field: "file", FileName: `a "quoted".pdf`, Type: "application/pdf", Content: content},
	)
	require.NoError(t, err)

	mediaType, params, err := mime.ParseMediaType(ct)
	require.NoError(t, err)
	require.Equal(t, "multipart/form-data", mediaType)

	r := multipart.NewReader(bytes.NewReader(body), params["boundary"])

	var names []string
	for {
		p, err := r.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, p.FormName())
		data, err := io.ReadAll(p)
		require.NoError(t, err)

		switch p.FormName() {
		case "userId":
			assert.Equal(t, "u1", string(data))
		case "transactionId":
			assert.Equal(t, "TXN_1", string(data))
		case "file":
			assert.Equal(t, `a "quoted".pdf`, p.FileName())
			assert.Equal(t, "application/pdf", p.Header.Get("Content-Type"))
			assert.Equal(t, content, data)
		}
	}
	assert.Equal(t, []string{"userId", "transactionId", "file"}, names)
}

func TestBuildMultipart_DefaultsFileType(t *testing.T) {
	body, ct, err := BuildMultipart(nil, &FormFile{Field: "file", FileName: "x", Content: []byte{1}})
	require.NoError(t, err)

	_, params, err := mime.ParseMediaType(ct)
	require.NoError(t, err)
	p, err := multipart.NewReader(bytes.NewReader(body), params["boundary"]).NextPart()
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", p.Header.Get("Content-Type"))
}

func TestNewUploadRequest_ReportsProgress(t *testing.T) {
	payload := bytes.Repeat([]byte("z"), 64*1024)

	var gotLen int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotLen = int64(len(b))
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	var mu sync.Mutex
	var last, total int64
	req, err := NewUploadRequest(context.Background(), http.MethodPost, ts.URL, payload, "application/octet-stream", func(sent, tot int64) {
		mu.Lock()
		defer mu.Unlock()
		assert.GreaterOrEqual(t, sent, last, "progress must be monotonic")
		last, total = sent, tot
	})
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, int64(len(payload)), gotLen)
	assert.Equal(t, int64(len(payload)), last)
	assert.Equal(t, int64(len(payload)), total)
}

func TestNewUploadRequest_ReplayDoesNotRewindProgress(t *testing.T) {
	payload := bytes.Repeat([]byte("r"), 10*1024)

	var reports []int64
	req, err := NewUploadRequest(context.Background(), http.MethodPost, "http://example.invalid", payload, "application/octet-stream", func(sent, _ int64) {
		reports = append(reports, sent)
	})
	require.NoError(t, err)

	// first attempt dies halfway
	_, err = io.CopyN(io.Discard, req.Body, int64(len(payload)/2))
	require.NoError(t, err)
	afterFirst := len(reports)
	require.NotZero(t, afterFirst)

	replay, err := req.GetBody()
	require.NoError(t, err)
	n, err := io.Copy(io.Discard, replay)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)

	for i := 1; i < len(reports); i++ {
		assert.Greater(t, reports[i], reports[i-1], "report %d went backwards", i)
	}
	assert.Greater(t, len(reports), afterFirst, "replay reports past the earlier mark")
	assert.Equal(t, int64(len(payload)), reports[len(reports)-1])
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0.0, Percent(5, 0, 99))
	assert.Equal(t, 50.0, Percent(50, 100, 99))
	assert.Equal(t, 99.0, Percent(100, 100, 99))
	assert.Equal(t, 100.0, Percent(100, 100, 100))
}
