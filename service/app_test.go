package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"inkwell/app/config"
	"inkwell/app/logger"
	"inkwell/app/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func importTestData(t *testing.T, path string) {
	t.Helper()
	db, err := repositories.OpenDB(path)
	require.NoError(t, err)
	defer db.Close()
	f, err := os.Open(writeExport(t))
	require.NoError(t, err)
	defer f.Close()
	_, err = repositories.NewDataset(db).Import(f)
	require.NoError(t, err)
}

func testAppConfig(t *testing.T) *config.Config {
	cfg := setupTestConfig(t)
	cfg.SiteTitle = "Inkwell"
	cfg.Revalidate = time.Minute
	cfg.RegenerateTimeout = time.Second
	cfg.CMSTimeout = time.Second
	cfg.CacheBackend = config.CacheMemory
	cfg.Prerender = true
	return cfg
}

func TestNewAppLocalDataset(t *testing.T) {
	cfg := testAppConfig(t)
	importTestData(t, cfg.DataPath)

	app, err := NewApp(cfg, logger.Discard())
	require.NoError(t, err)
	defer app.Close()
	require.NotNil(t, app.Dataset)
	require.NoError(t, app.Warm(context.Background()))

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/post/hello-world", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Contains(t, rec.Body.String(), "Hello World")

	rec = httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/post/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewAppBadgerCache(t *testing.T) {
	cfg := testAppConfig(t)
	cfg.CacheBackend = config.CacheBadger
	cfg.Fallback = config.FallbackNone
	cfg.Prerender = false
	importTestData(t, cfg.DataPath)

	app, err := NewApp(cfg, logger.Discard())
	require.NoError(t, err)
	require.NoError(t, app.Warm(context.Background()))
	require.NoError(t, app.Close())
	assert.DirExists(t, cfg.CachePath)
}

func TestNewAppRedisWithoutClient(t *testing.T) {
	cfg := testAppConfig(t)
	cfg.CacheBackend = config.CacheRedis

	var app *App
	var err error
	require.NotPanics(t, func() { app, err = NewApp(cfg, logger.Discard()) })
	assert.Nil(t, app)
	assert.ErrorContains(t, err, "REDIS_ADDR")

	// The dataset opened before the failure must be released.
	db, err := repositories.OpenDB(cfg.DataPath)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestNewAppBadDataPath(t *testing.T) {
	cfg := testAppConfig(t)
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	cfg.DataPath = file

	var err error
	require.NotPanics(t, func() { _, err = NewApp(cfg, logger.Discard()) })
	assert.Error(t, err)
}

func TestHandlePrerender(t *testing.T) {
	cfg := testAppConfig(t)
	importTestData(t, cfg.DataPath)
	out := filepath.Join(t.TempDir(), "site")

	output, exitCode := runCommand(func() int {
		return HandlePrerender(cfg, logger.Discard(), []string{out})
	})
	require.Equal(t, 0, exitCode, output)
	assert.Contains(t, output, "Exported")
	assert.FileExists(t, filepath.Join(out, "index.html"))
	assert.FileExists(t, filepath.Join(out, "post", "hello-world", "index.html"))

	output, exitCode = runCommand(func() int {
		return HandlePrerender(cfg, logger.Discard(), []string{out, "--s3"})
	})
	assert.Equal(t, 1, exitCode)
	assert.Contains(t, output, "--s3 requires EXPORT_S3_BUCKET")
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}

	done := make(chan int, 1)
	go func() { done <- serve(ctx, srv, logger.Discard()) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case code := <-done:
		assert.Equal(t, 0, code)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRunStaticServerRejectsMissingDir(t *testing.T) {
	assert.Equal(t, 1, RunStaticServer(filepath.Join(t.TempDir(), "missing"), "0", logger.Discard()))
}
