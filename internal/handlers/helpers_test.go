package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"NotesAI/internal/biometric"
	"NotesAI/internal/config"
	"NotesAI/internal/crypto"
	"NotesAI/internal/handlers"
	"NotesAI/internal/kv"
	"NotesAI/internal/middleware"
	"NotesAI/internal/notesctx"
	"NotesAI/internal/secret"
	"NotesAI/internal/storage"
)

const testSecret = "test-secret"

// switchPlatform отменяет запросы, пока выставлен deny.
type switchPlatform struct{ deny atomic.Bool }

func (p *switchPlatform) HasHardware(context.Context) bool { return true }
func (p *switchPlatform) IsEnrolled(context.Context) bool  { return true }
func (p *switchPlatform) Prompt(context.Context, string) error {
	if p.deny.Load() {
		return biometric.ErrCancelled
	}
	return nil
}

// newTestRouter собирает настоящий стек на memory-бэкенде с заданной платформой аутентификации.
func newTestRouter(t *testing.T, platform biometric.Platform) (http.Handler, *notesctx.Context) {
	t.Helper()
	gate := biometric.NewGate(platform, nil)
	svc := crypto.NewService(secret.NewMemory(), crypto.ModeAESGCM, nil)
	nc := notesctx.New(storage.New(kv.NewMemory(), nil), svc, gate, nil)
	require.NoError(t, nc.Load(context.Background()))

	cfg := &config.Config{APISecret: testSecret}
	h := handlers.NewHandler(nc, gate, nil, cfg)
	return h.Router, nc
}

func addAuth(t *testing.T, req *http.Request, sessionID string) {
	t.Helper()
	rr := httptest.NewRecorder()
	require.NoError(t, middleware.SetLoginCookie(rr, sessionID, testSecret))
	for _, c := range rr.Result().Cookies() {
		req.AddCookie(c)
	}
}

// do выполняет авторизованный запрос; body кодируется в JSON, если не nil.
func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	addAuth(t, req, "s1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}
