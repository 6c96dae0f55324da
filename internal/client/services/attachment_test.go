package services

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachmentSave_DeduplicatesAndEncrypts(t *testing.T) {
	env := newTestEnv(t, defaultPolicy)
	ctx := context.Background()

	h1, err := env.attachments.Save(ctx, []byte("plain bytes"), "text/plain", "a.txt")
	require.NoError(t, err)
	h2, err := env.attachments.Save(ctx, []byte("plain bytes"), "text/plain", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Equal(t, cryptox.Hash([]byte("plain bytes")), h1)

	raw, err := os.ReadFile(filepath.Join(env.dir, h1))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "plain bytes")

	got, err := env.attachments.Read(ctx, h1)
	require.NoError(t, err)
	assert.Equal(t, []byte("plain bytes"), got)

	uri, err := env.attachments.ReadDataURI(ctx, h1)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:text/plain;base64,"))

	a, err := env.attachments.Attachment(ctx, h1)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "a.txt", a.Filename)
}

func TestAttachmentSave_NeedsMasterKey(t *testing.T) {
	env := newTestEnv(t, defaultPolicy)
	env.keys.key = nil

	_, err := env.attachments.Save(context.Background(), []byte("x"), "text/plain", "")
	assert.ErrorIs(t, err, common.ErrVaultLocked)
}

func TestAttachmentRead_Missing(t *testing.T) {
	env := newTestEnv(t, defaultPolicy)

	_, err := env.attachments.Read(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestQueueDownloads_FetchesMissingBlobs(t *testing.T) {
	env := newTestEnv(t, defaultPolicy)
	ctx := context.Background()
	env.auth.token = "tok"

	payload := []byte("remote image")
	hash := cryptox.Hash(payload)
	var blob bytes.Buffer
	require.NoError(t, cryptox.EncryptStream(ctx, env.keys.key, bytes.NewReader(payload), &blob))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(blob.Bytes())
	}))
	defer srv.Close()

	env.api.handle = func(method, path string, _ any) (any, error) {
		if method == "GET" && path == "/s3?name="+hash {
			return presignedResponse{URL: srv.URL + "/blob", MimeType: "image/png", Size: int64(len(payload))}, nil
		}
		return nil, nil
	}

	var (
		mu       sync.Mutex
		progress [][2]int
	)
	err := env.attachments.QueueDownloads(ctx, "g1", []string{hash}, func(done, total int) {
		mu.Lock()
		progress = append(progress, [2]int{done, total})
		mu.Unlock()
	})
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{0, 1}, {1, 1}}, progress)

	got, err := env.attachments.Read(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	a, err := env.attachments.Attachment(ctx, hash)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.True(t, a.Uploaded)
	assert.Equal(t, "image/png", a.MimeType)

	calls := env.api.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "tok", calls[0].Token)
}

func TestQueueDownloads_CancelledContext(t *testing.T) {
	env := newTestEnv(t, defaultPolicy)
	env.auth.token = "tok"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()
	env.api.handle = func(string, string, any) (any, error) {
		return presignedResponse{URL: srv.URL}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := env.attachments.QueueDownloads(ctx, "g", []string{"h"}, nil)
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(env.dir, "h"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestCancelGroup_UnknownIsNoop(t *testing.T) {
	env := newTestEnv(t, defaultPolicy)
	env.attachments.CancelGroup("nothing")
}

func TestUploadPending(t *testing.T) {
	env := newTestEnv(t, defaultPolicy)
	ctx := context.Background()
	env.auth.token = "tok"

	hash, err := env.attachments.Save(ctx, []byte("to upload"), "text/plain", "u.txt")
	require.NoError(t, err)

	var uploaded []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		uploaded, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	env.api.handle = func(method, path string, _ any) (any, error) {
		if path == "/s3/upload?name="+hash {
			return presignedResponse{URL: srv.URL}, nil
		}
		return nil, nil
	}

	n, err := env.attachments.UploadPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	onDisk, err := os.ReadFile(filepath.Join(env.dir, hash))
	require.NoError(t, err)
	assert.Equal(t, onDisk, uploaded)

	pending, err := env.repos.Attachments.GetAllPendingUpload(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	calls := env.api.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "POST", calls[0].Method)
	assert.Equal(t, "/attachments", calls[0].Path)

	n, err = env.attachments.UploadPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
