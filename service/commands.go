package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"inkwell/app/cache"
	"inkwell/app/config"
	"inkwell/app/export"
	"inkwell/app/logger"
	"inkwell/app/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/dustin/go-humanize"
	"github.com/redis/go-redis/v9"
)

var osExit = os.Exit

// HandleDataCommand runs a local dataset subcommand and returns an exit code.
func HandleDataCommand(cfg *config.Config, args []string) int {
	if len(args) < 1 {
		printDataHelp()
		osExit(1)
		return 1
	}

	db := store{label: "database", path: cfg.DataPath}
	switch cmd := args[0]; cmd {
	case "init":
		initDb(db)
		return 0
	case "import":
		if len(args) < 2 {
			fmt.Println("Error: NDJSON export file required for import")
			osExit(1)
			return 1
		}
		return importDataset(db, args[1])
	case "approve":
		rest := positional(args[1:])
		if len(rest) < 1 {
			fmt.Println("Error: comment id required for approve")
			osExit(1)
			return 1
		}
		return approveComment(db, rest[0], !hasFlag(args[1:], "--reject"))
	case "delete-comment", "delete-post":
		if len(args) < 2 {
			fmt.Printf("Error: %s requires an argument\n", cmd)
			osExit(1)
			return 1
		}
		if cmd == "delete-comment" {
			return deleteComment(db, args[1])
		}
		return deletePost(db, args[1])
	case "clean":
		clean(db)
		return 0
	case "backup":
		backup(db)
		return 0
	case "restore":
		if len(args) < 2 {
			fmt.Println("Error: backup file path required for restore")
			osExit(1)
			return 1
		}
		return restore(db, args[1])
	case "help":
		printDataHelp()
		return 0
	default:
		fmt.Printf("Unknown data command: %s\n\n", cmd)
		printDataHelp()
		osExit(1)
		return 1
	}
}

// HandleCacheCommand runs a page cache subcommand and returns an exit code.
func HandleCacheCommand(cfg *config.Config, args []string) int {
	if len(args) < 1 {
		printCacheHelp()
		osExit(1)
		return 1
	}

	pages := store{label: "page cache", path: cfg.CachePath}
	cmd := args[0]
	if cfg.CacheBackend != config.CacheBadger && cmd != "clean" && cmd != "help" {
		fmt.Printf("Cache %s is only supported for the %s backend (current: %s)\n", cmd, config.CacheBadger, cfg.CacheBackend)
		return 1
	}
	switch cmd {
	case "clean":
		switch cfg.CacheBackend {
		case config.CacheBadger:
			clean(pages)
		case config.CacheRedis:
			return cleanRedisCache(cfg)
		default:
			fmt.Println("Memory page cache is dropped on restart, nothing to clean")
		}
		return 0
	case "backup":
		backup(pages)
		return 0
	case "restore":
		if len(args) < 2 {
			fmt.Println("Error: backup file path required for restore")
			osExit(1)
			return 1
		}
		return restore(pages, args[1])
	case "help":
		printCacheHelp()
		return 0
	default:
		fmt.Printf("Unknown cache command: %s\n\n", cmd)
		printCacheHelp()
		osExit(1)
		return 1
	}
}

// HandlePrerender exports every page to a directory and optionally to S3.
func HandlePrerender(cfg *config.Config, log *logger.Logger, args []string) int {
	rest := positional(args)
	if len(rest) < 1 {
		fmt.Println("Error: output directory required for prerender")
		osExit(1)
		return 1
	}

	ctx := context.Background()
	sinks := []export.Sink{export.DirSink{Root: rest[0]}}
	if hasFlag(args, "--s3") {
		if cfg.ExportS3Bucket == "" {
			fmt.Println("Error: --s3 requires EXPORT_S3_BUCKET")
			return 1
		}
		s3Sink, err := export.NewS3Sink(ctx, cfg.ExportS3Bucket, "", cfg.AWSRegion)
		if err != nil {
			fmt.Printf("Failed to configure S3 export: %v\n", err)
			return 1
		}
		sinks = append(sinks, s3Sink)
	}

	app, err := NewApp(cfg, log)
	if err != nil {
		fmt.Printf("Failed to load site: %v\n", err)
		return 1
	}
	defer app.Close()

	start := time.Now()
	stats, err := export.NewExporter(app.Posts, app.Renderer, log, sinks...).Run(ctx)
	if err != nil {
		fmt.Printf("Prerender failed: %v\n", err)
		return 1
	}
	fmt.Printf("Exported %s pages to %s in %s (%d failed)\n",
		humanize.Comma(int64(stats.Pages)), rest[0], time.Since(start).Round(time.Millisecond), stats.Failed)
	if stats.Failed > 0 {
		return 1
	}
	return 0
}

func printDataHelp() {
	helpText := `Usage: inkwell data <command>

Commands:
  init                            Initialize a new empty dataset
  import <file.ndjson>            Import posts, authors and comments from a CMS export
  approve <comment-id> [--reject] Approve (or withdraw approval of) a comment
  delete-comment <comment-id>     Delete a comment
  delete-post <slug>              Delete a post and its comments
  clean                           Delete the local dataset
  backup                          Create a backup of the dataset
  restore <file>                  Restore the dataset from a backup
  help                            Display this help message
`
	fmt.Println(helpText)
}

func printCacheHelp() {
	helpText := `Usage: inkwell cache <command>

Commands:
  clean                           Drop every cached page
  backup                          Create a backup of the badger page cache
  restore <file>                  Restore the badger page cache from a backup
  help                            Display this help message
`
	fmt.Println(helpText)
}

func importDataset(s store, file string) int {
	f, err := os.Open(file)
	if err != nil {
		fmt.Printf("Failed to open export file: %v\n", err)
		return 1
	}
	defer f.Close()

	db, err := repositories.OpenDB(s.path)
	if err != nil {
		fmt.Printf("Failed to open %s: %v\n", s.label, err)
		return 1
	}
	defer db.Close()

	stats, err := repositories.NewDataset(db).Import(f)
	if err != nil {
		fmt.Printf("Import failed: %v\n", err)
		return 1
	}
	fmt.Printf("Imported %d posts, %d authors, %d comments (%d documents skipped)\n",
		stats.Posts, stats.Authors, stats.Comments, stats.Skipped)
	return 0
}

// openDataset opens an existing local dataset. The returned func closes it.
func openDataset(s store) (*repositories.Dataset, func(), bool) {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		fmt.Printf("No %s exists at %s\n", s.label, s.path)
		return nil, nil, false
	}
	db, err := repositories.OpenDB(s.path)
	if err != nil {
		fmt.Printf("Failed to open %s: %v\n", s.label, err)
		return nil, nil, false
	}
	return repositories.NewDataset(db), func() { db.Close() }, true
}

func approveComment(s store, id string, approved bool) int {
	dataset, closeDB, ok := openDataset(s)
	if !ok {
		return 1
	}
	defer closeDB()

	if err := dataset.SetApproval(id, approved); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			fmt.Printf("Comment not found: %s\n", id)
		} else {
			fmt.Printf("Failed to update comment: %v\n", err)
		}
		return 1
	}
	if approved {
		fmt.Printf("Comment %s approved\n", id)
	} else {
		fmt.Printf("Comment %s rejected\n", id)
	}
	return 0
}

func deleteComment(s store, id string) int {
	dataset, closeDB, ok := openDataset(s)
	if !ok {
		return 1
	}
	defer closeDB()

	removed, err := dataset.DeleteComment(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			fmt.Printf("Comment not found: %s\n", id)
		} else {
			fmt.Printf("Failed to delete comment: %v\n", err)
		}
		return 1
	}
	fmt.Printf("Comment %s by %s deleted\n", removed.ID, removed.Name)
	return 0
}

func deletePost(s store, slug string) int {
	dataset, closeDB, ok := openDataset(s)
	if !ok {
		return 1
	}
	defer closeDB()

	if !confirm(fmt.Sprintf("Delete post %q and all of its comments?", slug)) {
		fmt.Println("Operation cancelled")
		return 1
	}
	n, err := dataset.DeletePost(slug)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			fmt.Printf("Post not found: %s\n", slug)
		} else {
			fmt.Printf("Failed to delete post: %v\n", err)
		}
		return 1
	}
	fmt.Printf("Post %s deleted with %d comments\n", slug, n)
	return 0
}

func cleanRedisCache(cfg *config.Config) int {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer client.Close()

	if !confirm("Are you sure you want to drop every cached page from redis?") {
		fmt.Println("Operation cancelled")
		return 1
	}
	if err := cache.NewRedisStore(client, 0).Clear(context.Background()); err != nil {
		fmt.Printf("Failed to clean page cache: %v\n", err)
		return 1
	}
	fmt.Println("Page cache cleaned successfully")
	return 0
}

// clean removes the store directory.
func clean(s store) {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		fmt.Printf("%s is already clean (does not exist)\n", s.title())
		return
	}

	if !confirm(fmt.Sprintf("Are you sure you want to clean the %s? This cannot be undone.", s.label)) {
		fmt.Println("Operation cancelled")
		return
	}

	if err := os.RemoveAll(s.path); err != nil {
		fmt.Printf("Failed to clean %s: %v\n", s.label, err)
		return
	}
	fmt.Printf("%s cleaned successfully\n", s.title())
}

// initDb initializes a new empty store.
func initDb(s store) {
	if _, err := os.Stat(s.path); err == nil {
		fmt.Printf("%s already exists. Use 'clean' first if you want to reinitialize.\n", s.title())
		return
	}

	if err := os.MkdirAll(s.path, 0755); err != nil {
		fmt.Printf("Failed to create %s directory: %v\n", s.label, err)
		return
	}

	db, err := repositories.OpenDB(s.path)
	if err != nil {
		fmt.Printf("Failed to initialize %s: %v\n", s.label, err)
		return
	}
	defer db.Close()

	fmt.Printf("%s initialized successfully\n", s.title())
}

// backup writes a full badger backup into backupDir.
func backup(s store) {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		fmt.Printf("No %s exists to backup\n", s.label)
		return
	}

	if err := os.MkdirAll(backupDir, 0755); err != nil {
		fmt.Printf("Failed to create backup directory: %v\n", err)
		return
	}

	db, err := repositories.OpenDB(s.path)
	if err != nil {
		fmt.Printf("Failed to open %s: %v\n", s.label, err)
		return
	}
	defer db.Close()

	name := fmt.Sprintf("%s_%d.db", filepath.Base(s.path), time.Now().Unix())
	backupFile := filepath.Join(backupDir, name)
	f, err := os.Create(backupFile)
	if err != nil {
		fmt.Printf("Failed to create backup file: %v\n", err)
		return
	}
	defer f.Close()

	if _, err := db.Backup(f, 0); err != nil {
		fmt.Printf("Failed to backup %s: %v\n", s.label, err)
		return
	}

	size := ""
	if fi, err := f.Stat(); err == nil {
		size = " (" + humanize.Bytes(uint64(fi.Size())) + ")"
	}
	fmt.Printf("%s backed up successfully to %s%s\n", s.title(), backupFile, size)
}

// restore replaces the store with the contents of a backup file.
func restore(s store, backupFile string) int {
	if _, err := os.Stat(backupFile); os.IsNotExist(err) {
		fmt.Printf("Backup file does not exist: %s\n", backupFile)
		return 1
	}

	if _, err := os.Stat(s.path); err == nil {
		if !confirm(fmt.Sprintf("Existing %s found. Do you want to replace it?", s.label)) {
			fmt.Println("Operation cancelled")
			return 1
		}
		if err := os.RemoveAll(s.path); err != nil {
			fmt.Printf("Failed to remove existing %s: %v\n", s.label, err)
			return 1
		}
	}

	if err := os.MkdirAll(s.path, 0755); err != nil {
		fmt.Printf("Failed to create %s directory: %v\n", s.label, err)
		return 1
	}

	db, err := repositories.OpenDB(s.path)
	if err != nil {
		fmt.Printf("Failed to open %s: %v\n", s.label, err)
		return 1
	}
	defer db.Close()

	f, err := os.Open(backupFile)
	if err != nil {
		fmt.Printf("Failed to open backup file: %v\n", err)
		return 1
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		fmt.Printf("Failed to stat backup file: %v\n", err)
		return 1
	}
	if fi.Size() == 0 {
		fmt.Printf("Backup file is empty: %s\n", backupFile)
		return 1
	}

	if err := load(db, f); err != nil {
		fmt.Printf("Failed to restore %s: %v\n", s.label, err)
		return 1
	}

	fmt.Printf("%s restored successfully\n", s.title())
	return 0
}

// load wraps db.Load, which panics on some malformed inputs.
func load(db *badger.DB, f *os.File) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic occurred during restore: %v", r)
		}
	}()
	return db.Load(f, 4)
}
