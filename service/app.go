package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"inkwell/app/cache"
	"inkwell/app/cms"
	"inkwell/app/config"
	"inkwell/app/controllers"
	"inkwell/app/logger"
	"inkwell/app/middleware"
	"inkwell/app/queue"
	"inkwell/app/render"
	"inkwell/app/repositories"
	"inkwell/app/routes"
	"inkwell/app/services"
	"inkwell/app/submitter"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 5 * time.Second

// App holds the wired server components.
type App struct {
	Config   *config.Config
	Logger   *logger.Logger
	Repo     repositories.ContentRepository
	Dataset  *repositories.Dataset
	Renderer *render.Renderer
	Pages    *cache.PageCache
	Posts    *services.PostService
	Comments *services.CommentService
	Router   *mux.Router

	closers []func() error
}

// NewApp builds every component the configuration asks for. Close releases
// them.
func NewApp(cfg *config.Config, log *logger.Logger) (_ *App, err error) {
	app := &App{Config: cfg, Logger: log}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	images := cms.ImageURLBuilder{ProjectID: cfg.SanityProjectID, Dataset: cfg.SanityDataset}
	if cfg.UseCMS() {
		client := cms.NewClient(cms.OptionsFromConfig(cfg), log.With("component", "cms"))
		images = cms.ImageURLBuilder{ProjectID: client.ProjectID(), Dataset: client.Dataset()}
		app.Repo = cms.NewRepository(client)
		log.Info("serving content from CMS project %s/%s", client.ProjectID(), client.Dataset())
	} else {
		db, err := repositories.OpenDB(cfg.DataPath)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, db.Close)
		app.Dataset = repositories.NewDataset(db)
		app.Repo = app.Dataset
		log.Info("no CMS project configured, serving local dataset at %s", cfg.DataPath)
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		app.closers = append(app.closers, redisClient.Close)
	}

	store, err := app.pageStore(redisClient)
	if err != nil {
		return nil, err
	}

	app.Renderer, err = render.New(render.Options{
		SiteTitle:  cfg.SiteTitle,
		DateLayout: cfg.DateLayout,
		Images:     images,
	})
	if err != nil {
		return nil, err
	}
	app.Pages = cache.NewPageCache(store, cache.Options{
		Revalidate:        cfg.Revalidate,
		RegenerateTimeout: cfg.RegenerateTimeout,
		Evict:             services.IsNotFound,
	}, log.With("component", "cache"))

	var notifier queue.Notifier = queue.NoopNotifier{}
	if cfg.RabbitMQURL != "" {
		client, err := queue.NewRabbitMQClient(cfg.RabbitMQURL, log)
		if err != nil {
			log.Warn("moderation queue unavailable, continuing without notifications: %v", err)
		} else {
			notifier = client
			app.closers = append(app.closers, client.Close)
		}
	}

	app.Posts = services.NewPostService(app.Repo, app.Renderer, app.Pages, cfg.Fallback, log)
	app.Comments = services.NewCommentService(app.Repo, notifier, log)

	var sub submitter.Submitter = submitter.ServiceSubmitter{Service: app.Comments}
	if cfg.CommentEndpoint != "" {
		sub = submitter.NewHTTPSubmitter(cfg.CommentEndpoint, cfg.CMSTimeout)
	}

	trusted, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}
	var limiter middleware.Limiter
	if cfg.CommentRateLimit > 0 {
		if redisClient != nil {
			limiter = middleware.NewRedisLimiter(redisClient, cfg.CommentRateLimit, cfg.CommentRateWindow)
		} else {
			limiter = middleware.NewMemoryLimiter(cfg.CommentRateLimit, cfg.CommentRateWindow)
		}
	}

	app.Router = routes.SetupRoutes(routes.Handlers{
		Posts:          controllers.NewPostController(app.Posts, app.Renderer, int(cfg.Revalidate.Seconds()), log),
		Comments:       controllers.NewCommentController(app.Comments, app.Posts, sub, app.Renderer, log),
		Limiter:        limiter,
		TrustedProxies: trusted,
		Logger:         log,
	})
	return app, nil
}

func (a *App) pageStore(redisClient *redis.Client) (cache.PageStore, error) {
	switch a.Config.CacheBackend {
	case config.CacheBadger:
		db, err := repositories.OpenDB(a.Config.CachePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		return cache.NewBadgerStore(db), nil
	case config.CacheRedis:
		if redisClient == nil {
			return nil, errors.New("redis page cache requires REDIS_ADDR")
		}
		return cache.NewRedisStore(redisClient, 0), nil
	default:
		return cache.NewMemoryStore(), nil
	}
}

// Warm loads the static path set and, when enabled, prerenders it.
func (a *App) Warm(ctx context.Context) error {
	if a.Config.Prerender {
		_, err := a.Posts.Prerender(ctx)
		return err
	}
	if a.Config.Fallback == config.FallbackNone {
		_, err := a.Posts.LoadPaths(ctx)
		return err
	}
	return nil
}

// Close waits for background regenerations and releases resources in
// reverse order of acquisition.
func (a *App) Close() error {
	if a.Pages != nil {
		a.Pages.Wait()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// RunAppServer starts the blog server and blocks until SIGINT or SIGTERM.
func RunAppServer(cfg *config.Config, log *logger.Logger) int {
	log.Info("starting inkwell: %s", describe(cfg))
	app, err := NewApp(cfg, log)
	if err != nil {
		log.Error("failed to start: %v", err)
		return 1
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Warm(ctx); err != nil {
		// Pages still render on demand
		log.Warn("prerender failed: %v", err)
	}

	return serve(ctx, &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}, log)
}

// serve runs srv until ctx is done, then drains it.
func serve(ctx context.Context, srv *http.Server, log *logger.Logger) int {
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error: %v", err)
			return 1
		}
		return 0
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed: %v", err)
		return 1
	}
	return 0
}

// describe summarizes the configuration for the startup log.
func describe(cfg *config.Config) string {
	source := "local dataset"
	if cfg.UseCMS() {
		source = "cms " + cfg.SanityProjectID
	}
	return fmt.Sprintf("content=%s cache=%s revalidate=%s fallback=%s", source, cfg.CacheBackend, cfg.Revalidate, cfg.Fallback)
}
