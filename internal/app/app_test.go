package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"filebot/internal/bot"
	"filebot/internal/config"
	gwstubs "filebot/internal/gateway/stubs"
	"filebot/internal/storage"
	"filebot/internal/storage/stubs"
)

func newTestRouter(secret string) http.Handler {
	b := bot.NewBot(nil, gwstubs.NewRecorder("filebot"), stubs.NewMockDB(), storage.NopActivityLog{},
		bot.Options{OwnerID: 1, StorageGroupID: -100, WebhookSecret: secret}, zap.NewNop())
	return newRouter(b, "webhook")
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter("")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, rec.Body.String(), "mode: webhook")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_WebhookSecret(t *testing.T) {
	router := newTestRouter("s3cret")

	post := func(path, body string) int {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
		return rec.Code
	}

	assert.Equal(t, http.StatusNotFound, post("/telegram-webhook", `{"update_id":1}`))
	assert.Equal(t, http.StatusNotFound, post("/telegram-webhook/wrong", `{"update_id":1}`))
	assert.Equal(t, http.StatusOK, post("/telegram-webhook/s3cret", `{"update_id":1}`))
	assert.Equal(t, http.StatusBadRequest, post("/telegram-webhook/s3cret", `not json`))
}

func TestRouter_WebhookWithoutSecret(t *testing.T) {
	router := newTestRouter("")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/telegram-webhook", strings.NewReader(`{"update_id":2}`)))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/telegram-webhook", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

// newTestApp builds an app around a bot without a Telegram client, so every
// attempt to start update delivery fails
func newTestApp(webhook bool) *App {
	cfg := &config.Config{
		AdminIDs:       []int64{1},
		StorageGroupID: -100,
		WebhookMode:    webhook,
		WebhookURL:     "https://example.com",
		Port:           "0",
		UseMockDB:      true,
	}
	db := stubs.NewMockDB()
	a := &App{
		config:   cfg,
		logger:   zap.NewNop(),
		db:       db,
		activity: storage.NopActivityLog{},
		bot: bot.NewBot(nil, gwstubs.NewRecorder("filebot"), db, storage.NopActivityLog{},
			bot.Options{OwnerID: 1, StorageGroupID: -100}, zap.NewNop()),
	}
	a.initHTTPServer()
	return a
}

func serveWithTimeout(t *testing.T, a *App) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- a.serve(context.Background()) }()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after update delivery failed to start")
		return nil
	}
}

func TestServe_WebhookSetupFailureStopsServer(t *testing.T) {
	a := newTestApp(true)

	err := serveWithTimeout(t, a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to setup webhook")
	assert.ErrorIs(t, a.server.ListenAndServe(), http.ErrServerClosed)
}

func TestServe_PollingFailureStopsServer(t *testing.T) {
	a := newTestApp(false)

	err := serveWithTimeout(t, a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
	assert.ErrorIs(t, a.server.ListenAndServe(), http.ErrServerClosed)
}
