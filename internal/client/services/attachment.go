package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/client/client"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/attachments"
	"github.com/dmitrijs2005/notekeeper/internal/client/richtext"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/cryptox"
	"github.com/dmitrijs2005/notekeeper/internal/filex"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/netx"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DownloadProgress reports finished and total attachment counts of a
// download group. It may be called from several goroutines.
type DownloadProgress func(done, total int)

// AttachmentStore is the blob store used by the content service.
type AttachmentStore interface {
	// Attachment returns metadata for hash, or nil.
	Attachment(ctx context.Context, hash string) (*models.Attachment, error)

	// Read returns the decrypted blob.
	Read(ctx context.Context, hash string) ([]byte, error)

	// ReadDataURI returns the blob as a base64 data URI.
	ReadDataURI(ctx context.Context, hash string) (string, error)

	// Save stores data and returns its hash. Saving the same bytes twice
	// yields the same hash and a single blob.
	Save(ctx context.Context, data []byte, mimeType, filename string) (string, error)

	// QueueDownloads fetches every hash missing locally. Downloads run under
	// groupID and stop when the group is cancelled or ctx is done.
	QueueDownloads(ctx context.Context, groupID string, hashes []string, progress DownloadProgress) error

	// CancelGroup aborts the downloads of groupID.
	CancelGroup(groupID string)
}

type presignedResponse struct {
	URL      string `json:"url"`
	Filename string `json:"filename,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

type attachmentRequest struct {
	Hash     string `json:"hash"`
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

type downloadGroup struct {
	cancel context.CancelFunc
}

// AttachmentService keeps blobs encrypted with the master key under dir,
// one file per hash, and mirrors them to object storage through presigned
// URLs handed out by the API.
type AttachmentService struct {
	repo        attachments.Repository
	dir         string
	keys        KeyProvider
	auth        AuthProvider
	api         client.API
	http        *http.Client
	concurrency int
	log         logging.Logger
	now         func() time.Time

	mu     sync.Mutex
	groups map[string]*downloadGroup
}

func NewAttachmentService(
	repo attachments.Repository,
	dir string,
	keys KeyProvider,
	auth AuthProvider,
	api client.API,
	httpClient *http.Client,
	concurrency int,
	log logging.Logger,
) *AttachmentService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &AttachmentService{
		repo:        repo,
		dir:         dir,
		keys:        keys,
		auth:        auth,
		api:         api,
		http:        httpClient,
		concurrency: concurrency,
		log:         log,
		now:         time.Now,
		groups:      make(map[string]*downloadGroup),
	}
}

func (s *AttachmentService) blobPath(hash string) string {
	return filepath.Join(s.dir, hash)
}

func (s *AttachmentService) hasBlob(hash string) bool {
	_, err := os.Stat(s.blobPath(hash))
	return err == nil
}

func (s *AttachmentService) masterKey() ([]byte, error) {
	key := s.keys.MasterKey()
	if key == nil {
		return nil, common.ErrVaultLocked
	}
	return key, nil
}

func (s *AttachmentService) Attachment(ctx context.Context, hash string) (*models.Attachment, error) {
	return s.repo.GetByHash(ctx, hash)
}

func (s *AttachmentService) Save(ctx context.Context, data []byte, mimeType, filename string) (string, error) {
	hash := cryptox.Hash(data)

	existing, err := s.repo.GetByHash(ctx, hash)
	if err != nil {
		return "", err
	}
	if existing != nil && s.hasBlob(hash) {
		return hash, nil
	}

	key, err := s.masterKey()
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(key)

	if _, err := filex.EnsureDir(s.dir); err != nil {
		return "", err
	}
	err = filex.WriteAtomic(s.blobPath(hash), func(w io.Writer) error {
		return cryptox.EncryptStream(ctx, key, bytes.NewReader(data), w)
	})
	if err != nil {
		return "", fmt.Errorf("write blob %s: %w", hash, err)
	}

	now := s.now()
	a := &models.Attachment{
		ID:           uuid.NewString(),
		Hash:         hash,
		Filename:     filename,
		MimeType:     mimeType,
		Size:         int64(len(data)),
		DateCreated:  now,
		DateModified: now,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return "", err
	}
	return hash, nil
}

func (s *AttachmentService) Read(ctx context.Context, hash string) ([]byte, error) {
	f, err := os.Open(s.blobPath(hash))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("blob %s: %w", hash, common.ErrorNotFound)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	key, err := s.masterKey()
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	var buf bytes.Buffer
	if err := cryptox.DecryptStream(ctx, key, f, &buf); err != nil {
		return nil, fmt.Errorf("decrypt blob %s: %w", hash, err)
	}
	return buf.Bytes(), nil
}

func (s *AttachmentService) ReadDataURI(ctx context.Context, hash string) (string, error) {
	a, err := s.repo.GetByHash(ctx, hash)
	if err != nil {
		return "", err
	}
	mime := "application/octet-stream"
	if a != nil && a.MimeType != "" {
		mime = a.MimeType
	}
	data, err := s.Read(ctx, hash)
	if err != nil {
		return "", err
	}
	return richtext.DataURI(mime, data), nil
}

func (s *AttachmentService) QueueDownloads(ctx context.Context, groupID string, hashes []string, progress DownloadProgress) error {
	var missing []string
	for _, h := range hashes {
		if !s.hasBlob(h) {
			missing = append(missing, h)
		}
	}

	total := len(hashes)
	var done atomic.Int64
	done.Store(int64(total - len(missing)))
	if progress != nil {
		progress(int(done.Load()), total)
	}
	if len(missing) == 0 {
		return nil
	}

	token, err := s.auth.AccessToken(ctx)
	if err != nil {
		return err
	}
	if _, err := filex.EnsureDir(s.dir); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	group := s.register(groupID, cancel)
	defer s.unregister(groupID, group)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, h := range missing {
		g.Go(func() error {
			if err := s.download(gctx, token, h); err != nil {
				return fmt.Errorf("download %s: %w", h, err)
			}
			n := done.Add(1)
			if progress != nil {
				progress(int(n), total)
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *AttachmentService) download(ctx context.Context, token, hash string) error {
	var pr presignedResponse
	if err := s.api.Get(ctx, "/s3?name="+url.QueryEscape(hash), token, &pr); err != nil {
		return err
	}

	err := filex.WriteAtomic(s.blobPath(hash), func(w io.Writer) error {
		_, err := netx.Download(ctx, s.http, pr.URL, w, nil)
		return err
	})
	if err != nil {
		return err
	}

	now := s.now()
	return s.repo.Create(ctx, &models.Attachment{
		ID:           uuid.NewString(),
		Hash:         hash,
		Filename:     pr.Filename,
		MimeType:     pr.MimeType,
		Size:         pr.Size,
		Uploaded:     true,
		DateCreated:  now,
		DateModified: now,
	})
}

func (s *AttachmentService) register(groupID string, cancel context.CancelFunc) *downloadGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.groups[groupID]; ok {
		prev.cancel()
	}
	g := &downloadGroup{cancel: cancel}
	s.groups[groupID] = g
	return g
}

func (s *AttachmentService) unregister(groupID string, g *downloadGroup) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g.cancel()
	if s.groups[groupID] == g {
		delete(s.groups, groupID)
	}
}

func (s *AttachmentService) CancelGroup(groupID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.groups[groupID]; ok {
		g.cancel()
		delete(s.groups, groupID)
	}
}

// UploadPending pushes every blob not yet present remotely and returns the
// number uploaded.
func (s *AttachmentService) UploadPending(ctx context.Context) (int, error) {
	pending, err := s.repo.GetAllPendingUpload(ctx)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	token, err := s.auth.AccessToken(ctx)
	if err != nil {
		return 0, err
	}

	uploaded := 0
	for _, a := range pending {
		if err := s.upload(ctx, token, a); err != nil {
			return uploaded, fmt.Errorf("upload %s: %w", a.Hash, err)
		}
		uploaded++
	}
	return uploaded, nil
}

func (s *AttachmentService) upload(ctx context.Context, token string, a *models.Attachment) error {
	f, err := os.Open(s.blobPath(a.Hash))
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return err
	}

	meta := attachmentRequest{Hash: a.Hash, Filename: a.Filename, MimeType: a.MimeType, Size: a.Size}
	if err := s.api.Post(ctx, "/attachments", meta, token, nil); err != nil {
		return err
	}

	var pr presignedResponse
	if err := s.api.Get(ctx, "/s3/upload?name="+url.QueryEscape(a.Hash), token, &pr); err != nil {
		return err
	}
	if err := netx.UploadToS3PresignedURL(ctx, s.http, pr.URL, f, st.Size()); err != nil {
		return err
	}
	return s.repo.MarkUploaded(ctx, a.Hash)
}
