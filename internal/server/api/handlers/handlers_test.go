package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/password"
	"github.com/dmitrijs2005/filevault/internal/server/auth"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/objectstore"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/files"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/users"
	"github.com/dmitrijs2005/filevault/internal/server/services"
)

type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, args ...any) {}
func (nopLogger) Info(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Warn(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Error(ctx context.Context, msg string, args ...any) {}
func (l nopLogger) With(args ...any) logging.Logger                  { return l }

type memUserRepo struct {
	mu   sync.Mutex
	byID map[string]*models.User
}

func (r *memUserRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
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

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if strings.EqualFold(u.Email, email) {
			out := *u
			return &out, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		out := *u
		return &out, nil
	}
	return nil, common.ErrNotFound
}

type memFileRepo struct {
	mu   sync.Mutex
	byID map[string]*models.File
}

func (r *memFileRepo) Create(ctx context.Context, file *models.File) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	saved := *file
	saved.ID = uuid.NewString()
	saved.UploadedAt = time.Now()
	saved.IsActive = true
	r.byID[saved.ID] = &saved
	out := saved
	return &out, nil
}

func (r *memFileRepo) GetActiveByIDAndOwner(ctx context.Context, id, ownerID string) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byID[id]
	if !ok || f.OwnerID != ownerID || !f.IsActive {
		return nil, common.ErrNotFound
	}
	out := *f
	return &out, nil
}

func (r *memFileRepo) GetByIDAndOwner(ctx context.Context, id, ownerID string) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byID[id]
	if !ok || f.OwnerID != ownerID {
		return nil, common.ErrNotFound
	}
	out := *f
	return &out, nil
}

func (r *memFileRepo) ListActiveByOwner(ctx context.Context, ownerID string, opts files.ListOptions) ([]*models.File, error) {
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

func (r *memFileRepo) SummarizeActiveByOwner(ctx context.Context, ownerID string) (*files.Summary, error) {
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

func (r *memFileRepo) RecordDownload(ctx context.Context, id, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byID[id]
	if !ok || f.OwnerID != ownerID || !f.IsActive {
		return common.ErrNotFound
	}
	f.DownloadCount++
	f.LastAccessedAt = time.Now()
	return nil
}

func (r *memFileRepo) SoftDelete(ctx context.Context, id, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byID[id]
	if !ok || f.OwnerID != ownerID || !f.IsActive {
		return common.ErrNotFound
	}
	f.IsActive = false
	return nil
}

func (r *memFileRepo) HardDelete(ctx context.Context, id, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byID[id]
	if !ok || f.OwnerID != ownerID {
		return common.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

type memRepoManager struct {
	users *memUserRepo
	files *memFileRepo
}

func (m *memRepoManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }
func (m *memRepoManager) Users(db dbx.DBTX) users.Repository                  { return m.users }
func (m *memRepoManager) Files(db dbx.DBTX) files.Repository                  { return m.files }

type memObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *memObjectStore) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(body); err != nil {
		return err
	}
	s.objects[key] = buf.Bytes()
	return nil
}

func (s *memObjectStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *memObjectStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memObjectStore) PresignGet(ctx context.Context, key string, opts objectstore.PresignOptions) (string, error) {
	return "https://storage.test/" + key + "?signed=1", nil
}

func (s *memObjectStore) Bucket() string { return "test-bucket" }

// testEnv wires both handlers to in-memory backends on one router, the way
// an integration environment would run the two services side by side.
type testEnv struct {
	router *chi.Mux
	tokens *auth.Service
	store  *memObjectStore
	files  *memFileRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	userRepo := &memUserRepo{byID: make(map[string]*models.User)}
	fileRepo := &memFileRepo{byID: make(map[string]*models.File)}
	m := &memRepoManager{users: userRepo, files: fileRepo}
	store := &memObjectStore{objects: make(map[string][]byte)}

	tokens := auth.NewService([]byte("test-secret"), "filevault", "filevault-clients", time.Hour, 24*time.Hour)
	logger := nopLogger{}

	userSvc := services.NewUserService(nil, m, password.NewHasher(bcrypt.MinCost), tokens)
	fileSvc := services.NewFileService(nil, m, store, 15*time.Minute, logger)

	router := chi.NewRouter()
	NewAuthHandler(userSvc, tokens, logger).Routes(router)
	NewFilesHandler(fileSvc, tokens, logger).Routes(router)

	return &testEnv{router: router, tokens: tokens, store: store, files: fileRepo}
}

func (e *testEnv) do(t *testing.T, method, target, token string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) doJSON(t *testing.T, method, target, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	return e.do(t, method, target, token, bytes.NewReader(b))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func errCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeBody(t, rec)
	inner, ok := body["error"].(map[string]any)
	require.True(t, ok, "expected an error envelope, got %s", rec.Body.String())
	code, _ := inner["code"].(string)
	return code
}

// register creates an account and returns its id.
func (e *testEnv) register(t *testing.T, email, pass string) string {
	t.Helper()
	rec := e.doJSON(t, http.MethodPost, "/register", "", map[string]string{"email": email, "password": pass})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody(t, rec)["userId"].(string)
}

// login returns the access token for existing credentials.
func (e *testEnv) login(t *testing.T, email, pass string) string {
	t.Helper()
	rec := e.doJSON(t, http.MethodPost, "/login", "", map[string]string{"email": email, "password": pass})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeBody(t, rec)["token"].(string)
}

// upload stores content under filename and returns the file id.
func (e *testEnv) upload(t *testing.T, token, filename, content string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/upload?filename="+filename, token, strings.NewReader(content))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody(t, rec)["fileId"].(string)
}
