package netx

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadToS3PresignedURL(t *testing.T) {
	file := []byte("hello, s3")

	t.Run("success 200 OK", func(t *testing.T) {
		var gotBody []byte
		var gotCT string
		var gotMethod string

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotCT = r.Header.Get("Content-Type")
			body, _ := io.ReadAll(r.Body)
			_ = r.Body.Close()
			gotBody = body
			w.WriteHeader(http.StatusOK)
		}))
		defer ts.Close()

		err := UploadToS3PresignedURL(context.Background(), ts.Client(), ts.URL+"/some/presigned?X-Amz-Signature=abc", bytes.NewReader(file), int64(len(file)))
		require.NoError(t, err)
		assert.Equal(t, http.MethodPut, gotMethod)
		assert.Equal(t, "application/octet-stream", gotCT)
		assert.Equal(t, file, gotBody)
	})

	t.Run("non-200 -> error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer ts.Close()

		err := UploadToS3PresignedURL(context.Background(), nil, ts.URL, bytes.NewReader(file), int64(len(file)))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "upload failed: 403")
	})

	t.Run("network error", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		ts.Close()

		err := UploadToS3PresignedURL(context.Background(), nil, ts.URL, bytes.NewReader(file), int64(len(file)))
		require.Error(t, err)
		assert.False(t, strings.Contains(err.Error(), "upload failed"))
	})
}

func TestDownload(t *testing.T) {
	payload := bytes.Repeat([]byte("0123456789abcdef"), DownloadChunkSize/8) // two chunks

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.Error(w, "nope", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		_, _ = w.Write(payload)
	}))
	defer ts.Close()

	t.Run("copies body and reports progress", func(t *testing.T) {
		var buf bytes.Buffer
		var last, total int64
		calls := 0

		n, err := Download(context.Background(), ts.Client(), ts.URL+"/blob", &buf, func(done, tot int64) {
			calls++
			last, total = done, tot
		})
		require.NoError(t, err)
		assert.Equal(t, int64(len(payload)), n)
		assert.Equal(t, payload, buf.Bytes())
		assert.Equal(t, int64(len(payload)), last)
		assert.Equal(t, int64(len(payload)), total)
		assert.GreaterOrEqual(t, calls, 1)
	})

	t.Run("non-200 is an error", func(t *testing.T) {
		var buf bytes.Buffer
		_, err := Download(context.Background(), nil, ts.URL+"/missing", &buf, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "download failed: 404")
		assert.Zero(t, buf.Len())
	})

	t.Run("cancelled between chunks", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var buf bytes.Buffer
		n, err := Download(ctx, ts.Client(), ts.URL+"/blob", &buf, func(done, _ int64) {
			cancel()
		})
		require.ErrorIs(t, err, context.Canceled)
		assert.Less(t, n, int64(len(payload)))
	})

	t.Run("writer error propagates", func(t *testing.T) {
		_, err := Download(context.Background(), ts.Client(), ts.URL+"/blob", failingWriter{}, nil)
		require.Error(t, err)
	})
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }
