package service

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inkwell/app/logger"
	"inkwell/app/middleware"
)

// RunStaticServer serves an exported site directory.
func RunStaticServer(staticDir, port string, log *logger.Logger) int {
	if fi, err := os.Stat(staticDir); err != nil || !fi.IsDir() {
		log.Error("not a directory: %s", staticDir)
		return 1
	}
	log.Info("serving static export from %s", staticDir)

	handler := middleware.Logger(log)(http.FileServer(http.Dir(staticDir)))
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return serve(ctx, &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}, log)
}
