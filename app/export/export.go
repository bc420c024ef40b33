// Package export writes the site out as static files.
package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"inkwell/app/logger"
	"inkwell/app/render"
	"inkwell/app/services"
)

// Sink receives exported files.
type Sink interface {
	Put(ctx context.Context, name string, body []byte, contentType string) error
}

// DirSink writes files under a local directory.
type DirSink struct {
	Root string
}

func (d DirSink) Put(_ context.Context, name string, body []byte, _ string) error {
	full := filepath.Join(d.Root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", name, err)
	}
	return os.WriteFile(full, body, 0644)
}

// Stats counts what an export wrote.
type Stats struct {
	Pages  int
	Failed int
}

// Exporter renders every page and hands it to the sinks.
type Exporter struct {
	posts    *services.PostService
	renderer *render.Renderer
	sinks    []Sink
	logger   *logger.Logger
}

func NewExporter(posts *services.PostService, renderer *render.Renderer, log *logger.Logger, sinks ...Sink) *Exporter {
	return &Exporter{posts: posts, renderer: renderer, sinks: sinks, logger: log}
}

// Run exports the listing, every post, the 404 page and the stylesheet.
// A post that fails to render is logged and counted, not fatal.
func (e *Exporter) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	listing, err := e.posts.RenderListing(ctx)
	if err != nil {
		return stats, err
	}
	if err := e.put(ctx, "index.html", listing, "text/html; charset=utf-8"); err != nil {
		return stats, err
	}
	stats.Pages++

	slugs, err := e.posts.LoadPaths(ctx)
	if err != nil {
		return stats, err
	}
	for _, entry := range slugs {
		slug := entry.Slug.Current
		body, err := e.posts.RenderPost(ctx, slug, render.FormView{})
		if err != nil {
			e.logger.Warn("export %s failed: %v", slug, err)
			stats.Failed++
			continue
		}
		if err := e.put(ctx, path.Join("post", slug, "index.html"), body, "text/html; charset=utf-8"); err != nil {
			return stats, err
		}
		stats.Pages++
	}

	var notFound bytes.Buffer
	if err := e.renderer.NotFound(&notFound); err != nil {
		return stats, err
	}
	if err := e.put(ctx, "404.html", notFound.Bytes(), "text/html; charset=utf-8"); err != nil {
		return stats, err
	}

	css, err := e.stylesheet()
	if err != nil {
		return stats, err
	}
	if err := e.put(ctx, "static/style.css", css, "text/css; charset=utf-8"); err != nil {
		return stats, err
	}

	e.logger.Info("exported %d pages (%d failed)", stats.Pages, stats.Failed)
	return stats, nil
}

func (e *Exporter) put(ctx context.Context, name string, body []byte, contentType string) error {
	for _, sink := range e.sinks {
		if err := sink.Put(ctx, name, body, contentType); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}

func (e *Exporter) stylesheet() ([]byte, error) {
	f, err := render.Static().Open("style.css")
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
