package services

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/objectstore"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/files"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/users"
)

type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, args ...any) {}
func (nopLogger) Info(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Warn(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Error(ctx context.Context, msg string, args ...any) {}
func (l nopLogger) With(args ...any) logging.Logger                  { return l }

type fakeRepoManager struct {
	users *fakeUserRepo
	files *fakeFileRepo
}

func (m *fakeRepoManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository                  { return m.users }
func (m *fakeRepoManager) Files(db dbx.DBTX) files.Repository                  { return m.files }

type fakeUserRepo struct {
	mu      sync.Mutex
	byID    map[string]*models.User
	getErr  error
	saveErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: make(map[string]*models.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return nil, r.saveErr
	}
	for _, u := range r.byID {
		if strings.EqualFold(u.Email, user.Email) {
			return nil, common.ErrEmailExists
		}
	}
	now := time.Now()
	saved := *user
	saved.ID = uuid.NewString()
	saved.CreatedAt = now
	saved.UpdatedAt = now
	r.byID[saved.ID] = &saved
	out := saved
	return &out, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	for _, u := range r.byID {
		if strings.EqualFold(u.Email, email) {
			out := *u
			return &out, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	if u, ok := r.byID[id]; ok {
		out := *u
		return &out, nil
	}
	return nil, common.ErrNotFound
}

type fakeFileRepo struct {
	mu        sync.Mutex
	byID      map[string]*models.File
	createErr error
	recordErr error
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{byID: make(map[string]*models.File)}
}

func (r *fakeFileRepo) Create(ctx context.Context, file *models.File) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	saved := *file
	saved.ID = uuid.NewString()
	saved.UploadedAt = time.Now()
	saved.IsActive = true
	r.byID[saved.ID] = &saved
	out := saved
	return &out, nil
}

func (r *fakeFileRepo) GetActiveByIDAndOwner(ctx context.Context, id, ownerID string) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byID[id]
	if !ok || f.OwnerID != ownerID || !f.IsActive {
		return nil, common.ErrNotFound
	}
	out := *f
	return &out, nil
}

func (r *fakeFileRepo) GetByIDAndOwner(ctx context.Context, id, ownerID string) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byID[id]
	if !ok || f.OwnerID != ownerID {
		return nil, common.ErrNotFound
	}
	out := *f
	return &out, nil
}

func (r *fakeFileRepo) ListActiveByOwner(ctx context.Context, ownerID string, opts files.ListOptions) ([]*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*models.File
	for _, f := range r.byID {
		if f.OwnerID == ownerID && f.IsActive {
			out := *f
			all = append(all, &out)
		}
	}
	if opts.Skip >= len(all) {
		return nil, nil
	}
	all = all[opts.Skip:]
	if opts.Limit > 0 && len(all) > opts.Limit {
		all = all[:opts.Limit]
	}
	return all, nil
}

func (r *fakeFileRepo) SummarizeActiveByOwner(ctx context.Context, ownerID string) (*files.Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &files.Summary{}
	for _, f := range r.byID {
		if f.OwnerID == ownerID && f.IsActive {
			s.TotalFiles++
			s.TotalSize += f.Size
		}
	}
	return s, nil
}

func (r *fakeFileRepo) RecordDownload(ctx context.Context, id, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recordErr != nil {
		return r.recordErr
	}
	f, ok := r.byID[id]
	if !ok || f.OwnerID != ownerID || !f.IsActive {
		return common.ErrNotFound
	}
	f.DownloadCount++
	f.LastAccessedAt = time.Now()
	return nil
}

func (r *fakeFileRepo) SoftDelete(ctx context.Context, id, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byID[id]
	if !ok || f.OwnerID != ownerID || !f.IsActive {
		return common.ErrNotFound
	}
	f.IsActive = false
	return nil
}

func (r *fakeFileRepo) HardDelete(ctx context.Context, id, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byID[id]
	if !ok || f.OwnerID != ownerID {
		return common.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

type fakeObjectStore struct {
	mu         sync.Mutex
	objects    map[string][]byte
	putErr     error
	existsErr  error
	deleteErr  error
	presignErr error
	deleted    []string
	lastOpts   objectstore.PresignOptions
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string][]byte)}
}

func (s *fakeObjectStore) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(body); err != nil {
		return err
	}
	s.objects[key] = buf.Bytes()
	return nil
}

func (s *fakeObjectStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.existsErr != nil {
		return false, s.existsErr
	}
	_, ok := s.objects[key]
	return ok, nil
}

func (s *fakeObjectStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, key)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.objects, key)
	return nil
}

func (s *fakeObjectStore) PresignGet(ctx context.Context, key string, opts objectstore.PresignOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.presignErr != nil {
		return "", s.presignErr
	}
	s.lastOpts = opts
	return "https://storage.test/" + key + "?signed=1", nil
}

func (s *fakeObjectStore) Bucket() string { return "test-bucket" }
