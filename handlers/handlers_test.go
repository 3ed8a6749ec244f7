package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pulse/config"
	"pulse/database"
	"pulse/handlers"
	"pulse/media"
	"pulse/middleware"
	"pulse/models"
	"pulse/push"
	"pulse/routes"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

const testSecret = "handler-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type published struct {
	Type    string
	Payload any
}

type fakeEvents struct {
	mu     sync.Mutex
	events []published
}

func (f *fakeEvents) Publish(eventType string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, published{Type: eventType, Payload: payload})
}

func (f *fakeEvents) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

type notification struct {
	UserID uint
	Msg    push.Message
}

type fakePush struct {
	mu      sync.Mutex
	enabled bool
	sent    []notification
}

func (f *fakePush) Notify(userID uint, msg push.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, notification{UserID: userID, Msg: msg})
}

func (f *fakePush) Enabled() bool     { return f.enabled }
func (f *fakePush) PublicKey() string { return "test-public-key" }

func (f *fakePush) notifications() []notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notification(nil), f.sent...)
}

type fakeUploader struct {
	targets []media.Target
	err     error
}

func (f *fakeUploader) Upload(_ context.Context, file io.Reader, target media.Target) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if _, err := io.ReadAll(file); err != nil {
		return "", err
	}
	f.targets = append(f.targets, target)
	return "https://res.cloudinary.test/" + target.Folder + "/" + target.PublicID + ".png", nil
}

type fakeGoogle struct {
	info *handlers.GoogleUserInfo
	err  error
}

func (f *fakeGoogle) AuthCodeURL(state string) string {
	return "https://accounts.google.test/auth?state=" + state
}

func (f *fakeGoogle) Exchange(_ context.Context, code string) (*handlers.GoogleUserInfo, error) {
	if code != "good-code" {
		return nil, fmt.Errorf("bad code %q", code)
	}
	return f.info, f.err
}

type testServer struct {
	t        *testing.T
	store    database.Store
	handler  *handlers.Handler
	router   *gin.Engine
	events   *fakeEvents
	push     *fakePush
	uploader *fakeUploader
}

type option func(*handlers.Handler, *routes.Deps)

func withLimiter(perMinute int) option {
	return func(_ *handlers.Handler, d *routes.Deps) {
		d.Limiter = middleware.NewIPRateLimiter(perMinute, time.Minute)
	}
}

func withoutUploader() option {
	return func(h *handlers.Handler, _ *routes.Deps) { h.Uploader = nil }
}

func withGoogle(g handlers.GoogleProvider) option {
	return func(h *handlers.Handler, _ *routes.Deps) { h.Google = g }
}

var dbSeq atomic.Int64

func newTestServer(t *testing.T, opts ...option) *testServer {
	t.Helper()

	dsn := fmt.Sprintf("file:handlers_test_%d?mode=memory&cache=shared&_foreign_keys=on", dbSeq.Add(1))
	store, err := database.OpenSQLite(dsn, nil)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })

	log, _ := test.NewNullLogger()
	cfg := &config.Config{
		DatabaseDriver:     config.DriverSQLite,
		JWTSecret:          testSecret,
		TokenTTL:           time.Hour,
		CORSOrigins:        []string{"http://localhost:3000"},
		RateLimitPerMinute: 60,
	}

	ts := &testServer{
		t:        t,
		store:    store,
		events:   &fakeEvents{},
		push:     &fakePush{enabled: true},
		uploader: &fakeUploader{},
	}
	ts.handler = &handlers.Handler{
		Store:    store,
		Log:      log,
		Config:   cfg,
		Events:   ts.events,
		Push:     ts.push,
		Uploader: ts.uploader,
	}
	deps := routes.Deps{Handler: ts.handler, Log: log}
	for _, opt := range opts {
		opt(ts.handler, &deps)
	}
	ts.router = routes.SetupRouter(deps)
	return ts
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type result struct {
	Code   int
	Header http.Header
	Body   envelope
	Raw    string
}

func (r result) data(t *testing.T, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Body.Data, out), r.Raw)
}

func (ts *testServer) serve(req *http.Request) result {
	ts.t.Helper()
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	res := result{Code: w.Code, Header: w.Header(), Raw: w.Body.String()}
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(ts.t, json.Unmarshal(w.Body.Bytes(), &res.Body), res.Raw)
	}
	return res
}

func (ts *testServer) do(method, path string, body any, token string) result {
	ts.t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(ts.t, err)
			reader = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return ts.serve(req)
}

func (ts *testServer) multipart(method, path string, fields map[string]string, fileField string, file []byte, token string) result {
	ts.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(ts.t, mw.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, "picture.png")
		require.NoError(ts.t, err)
		_, err = fw.Write(file)
		require.NoError(ts.t, err)
	}
	require.NoError(ts.t, mw.Close())

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return ts.serve(req)
}

func (ts *testServer) user(username string) *models.User {
	ts.t.Helper()
	u := &models.User{
		Email:        username + "@example.com",
		Username:     username,
		Name:         username,
		Role:         models.RoleUser,
		AuthProvider: models.ProviderEmail,
	}
	require.NoError(ts.t, ts.store.CreateUser(context.Background(), u))
	return u
}

func (ts *testServer) post(userID uint, description string) *models.Post {
	ts.t.Helper()
	p := &models.Post{UserID: userID, Description: description}
	require.NoError(ts.t, ts.store.CreatePost(context.Background(), p))
	return p
}

func token(t *testing.T, userID uint) string {
	t.Helper()
	tok, err := middleware.IssueToken(testSecret, userID, time.Hour)
	require.NoError(t, err)
	return tok
}

var pngBytes = []byte("\x89PNG\x0d\x0a\x1a\x0a\x00\x00\x00\x0dIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
