package main

import (
	"fmt"
	"os"
	"strings"

	"inkwell/app/config"
	"inkwell/app/logger"
	"inkwell/service"
)

const cliVersion = "1.0.0"

var exit = os.Exit

func main() {
	RealMain()
}

// RealMain dispatches the command line. It is separate from main so tests
// can trap exit.
func RealMain() {
	if len(os.Args) < 2 {
		printHelp()
		exit(1)
		return
	}

	cmd := strings.ToLower(os.Args[1])
	args := os.Args[2:]
	switch cmd {
	case "help":
		printHelp()
		return
	case "version":
		fmt.Printf("inkwell version %s\n", cliVersion)
		return
	case "serve", "prerender", "static", "data", "cache":
	default:
		fmt.Printf("Unknown command: %s\n\n", os.Args[1])
		printHelp()
		exit(1)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Configuration error: %v\n", err)
		exit(1)
		return
	}
	log := logger.New(cfg.LogLevel)

	var code int
	switch cmd {
	case "serve":
		code = service.RunAppServer(cfg, log)
	case "prerender":
		code = service.HandlePrerender(cfg, log, args)
	case "static":
		if len(args) < 1 {
			fmt.Println("Error: static directory path required for static command")
			exit(1)
			return
		}
		code = service.RunStaticServer(args[0], cfg.ServerPort, log)
	case "data":
		code = service.HandleDataCommand(cfg, args)
	case "cache":
		code = service.HandleCacheCommand(cfg, args)
	}
	if code != 0 {
		exit(code)
	}
}

func printHelp() {
	helpText := `Usage: inkwell <command> [options]
Commands:
  help                           Display this help message.
  version                        Show version information.
  serve                          Run the blog server.
  prerender <dir> [--s3]         Export every page as static HTML, optionally uploading to S3.
  static <dir>                   Serve a prerendered export directory.
  data <command>                 Manage the local dataset (see "inkwell data help").
  cache <command>                Manage the page cache (see "inkwell cache help").
`
	fmt.Println(helpText)
}
