package syncer

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/client/client"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/content"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/notekeeper/internal/client/services"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/cryptox"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

// Merger applies a remote record to local state.
type Merger interface {
	Merge(ctx context.Context, remote models.Content) error
}

// AttachmentUploader pushes locally stored blobs the server has not seen.
type AttachmentUploader interface {
	UploadPending(ctx context.Context) (int, error)
}

// syncItem is the wire form of a content record. Only routing fields travel
// in the clear; the record itself is sealed with the master key.
type syncItem struct {
	ID           string `json:"id"`
	DateModified int64  `json:"dateModified"`
	Deleted      bool   `json:"deleted"`
	Cipher       []byte `json:"cipher"`
	Nonce        []byte `json:"nonce"`
}

type pushRequest struct {
	Items []syncItem `json:"items"`
}

type pullResponse struct {
	Items      []syncItem `json:"items"`
	ServerTime int64      `json:"serverTime"`
}

// HTTPTransport exchanges encrypted content records with the sync API.
type HTTPTransport struct {
	api      client.API
	auth     services.AuthProvider
	keys     services.KeyProvider
	repo     content.Repository
	meta     metadata.Repository
	merger   Merger
	uploader AttachmentUploader
	log      logging.Logger
	now      func() time.Time
}

func NewHTTPTransport(
	api client.API,
	auth services.AuthProvider,
	keys services.KeyProvider,
	repo content.Repository,
	meta metadata.Repository,
	merger Merger,
	uploader AttachmentUploader,
	log logging.Logger,
) *HTTPTransport {
	return &HTTPTransport{
		api:      api,
		auth:     auth,
		keys:     keys,
		repo:     repo,
		meta:     meta,
		merger:   merger,
		uploader: uploader,
		log:      log,
		now:      time.Now,
	}
}

// Sync pulls remote changes and then pushes local ones, as req.Type allows.
func (t *HTTPTransport) Sync(ctx context.Context, req Request) error {
	key := t.keys.MasterKey()
	if key == nil {
		return common.ErrVaultLocked
	}
	defer common.WipeByteArray(key)

	token, err := t.auth.AccessToken(ctx)
	if err != nil {
		return err
	}

	// Pull before push: merge must see local edits while they are pending.
	if req.Type != TypeSend {
		if err := t.pull(ctx, token, key, req); err != nil {
			return fmt.Errorf("pull: %w", err)
		}
	}
	if req.Type != TypeFetch {
		if err := t.push(ctx, token, key); err != nil {
			return fmt.Errorf("push: %w", err)
		}
	}
	return nil
}

func (t *HTTPTransport) push(ctx context.Context, token string, key []byte) error {
	if t.uploader != nil {
		n, err := t.uploader.UploadPending(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			t.log.Info(ctx, "attachments uploaded", "count", n)
		}
	}

	pending, err := t.repo.GetAllPending(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	items := make([]syncItem, 0, len(pending))
	for _, c := range pending {
		ct, nonce, err := cryptox.EncryptJSON(c, key)
		if err != nil {
			return fmt.Errorf("encrypt %s: %w", c.ID, err)
		}
		items = append(items, syncItem{
			ID:           c.ID,
			DateModified: c.DateModified.UnixMilli(),
			Deleted:      c.Deleted,
			Cipher:       ct,
			Nonce:        nonce,
		})
	}

	if err := t.api.Post(ctx, "/sync/content", pushRequest{Items: items}, token, nil); err != nil {
		return err
	}

	// Rows edited while the request was in flight stay pending.
	for _, c := range pending {
		if err := t.repo.MarkSynced(ctx, c.ID, c.DateModified); err != nil {
			return err
		}
	}
	t.log.Info(ctx, "content pushed", "count", len(items))
	return nil
}

func (t *HTTPTransport) pull(ctx context.Context, token string, key []byte, req Request) error {
	since, err := t.since(ctx, req)
	if err != nil {
		return err
	}

	q := url.Values{}
	q.Set("since", strconv.FormatInt(since, 10))

	var resp pullResponse
	if err := t.api.Get(ctx, "/sync/content?"+q.Encode(), token, &resp); err != nil {
		return err
	}

	merged := 0
	for _, it := range resp.Items {
		var remote models.Content
		if err := cryptox.DecryptJSON(it.Cipher, it.Nonce, key, &remote); err != nil {
			t.log.Warn(ctx, "skipping undecryptable item", "id", it.ID, "error", err)
			continue
		}
		if remote.ID != it.ID {
			t.log.Warn(ctx, "skipping item with mismatched id", "id", it.ID, "sealed_id", remote.ID)
			continue
		}
		if err := t.merger.Merge(ctx, remote); err != nil {
			return fmt.Errorf("merge %s: %w", it.ID, err)
		}
		merged++
	}

	serverTime := resp.ServerTime
	if serverTime == 0 {
		serverTime = t.now().UnixMilli()
	}
	if err := metadata.SetJSON(ctx, t.meta, metadata.KeyLastSynced, serverTime); err != nil {
		return err
	}
	t.log.Info(ctx, "content pulled", "count", merged, "since", since)
	return nil
}

func (t *HTTPTransport) since(ctx context.Context, req Request) (int64, error) {
	if req.Forced {
		return 0, nil
	}
	if !req.LastSyncTime.IsZero() {
		return req.LastSyncTime.UnixMilli(), nil
	}
	var last int64
	if _, err := metadata.GetJSON(ctx, t.meta, metadata.KeyLastSynced, &last); err != nil {
		return 0, err
	}
	return last, nil
}
