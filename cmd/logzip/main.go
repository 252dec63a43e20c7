package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/opsdrop/logzip/internal/client"
	"github.com/opsdrop/logzip/internal/config"
	"github.com/opsdrop/logzip/internal/discovery"
	"github.com/opsdrop/logzip/internal/server"
	"github.com/opsdrop/logzip/internal/ui"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "serve":
		serveCmd(os.Args[2:])
	case "fetch":
		fetchCmd(os.Args[2:])
	case "search":
		searchCmd(os.Args[2:])
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("logzip - serve a server's log directory as a streamed zip")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  logzip serve [flags]")
	fmt.Println("  logzip fetch [flags] <url>")
	fmt.Println("  logzip search [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve   Serve <root>/logs as logs.zip over HTTP")
	fmt.Println("  fetch   Download the archive from a running logzip server")
	fmt.Println("  search  Discover logzip servers on the LAN via mDNS")
	fmt.Println()
	fmt.Println("The base directory is taken from --root, the " + config.EnvRoot + " environment")
	fmt.Println("variable, or the \"root\" key of a --config YAML file, in that order of")
	fmt.Println("preference.")
	fmt.Println()
	fmt.Println("Use \"logzip <command> -h\" for command-specific flags.")
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func serveCmd(args []string) {
	fs := pflag.NewFlagSet("serve", pflag.ExitOnError)
	root := fs.StringP("root", "r", "", "base directory; logs are served from <root>/logs")
	cfgPath := fs.StringP("config", "c", "", "YAML config file")
	port := fs.IntP("port", "p", 0, "listen port (default random)")
	iface := fs.StringP("interface", "i", "", "bind to a specific network interface")
	noQR := fs.Bool("no-qr", false, "skip printing the QR code")
	noMDNS := fs.Bool("no-mdns", false, "skip mDNS advertisement")
	verbose := fs.BoolP("verbose", "v", false, "verbose logging")
	fs.Parse(args)

	logger := newLogger(*verbose)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Error("could not load config", "error", err)
		os.Exit(1)
	}
	if *root != "" {
		cfg.Root = *root
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *iface != "" {
		cfg.Interface = *iface
	}
	if *noMDNS {
		cfg.Advertise = false
	}

	// Fail on a bad base directory now, not on the first request.
	logsDir, err := cfg.LogsDir()
	if err != nil {
		logger.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	srv := &server.Server{Config: cfg, Logger: logger}
	url, err := srv.Start()
	if err != nil {
		logger.Error("could not start server", "error", err)
		os.Exit(1)
	}
	defer srv.Shutdown()

	fmt.Printf("> Serving '%s' as logs.zip\n\n", logsDir)
	if !*noQR {
		_ = ui.PrintQR(url)
	}
	fmt.Printf("Or run: logzip fetch %s\n", url)
	select {} // block until interrupted
}

func fetchCmd(args []string) {
	fs := pflag.NewFlagSet("fetch", pflag.ExitOnError)
	out := fs.StringP("output", "o", "", "output path (default from server)")
	force := fs.BoolP("force", "f", false, "overwrite existing files")
	verbose := fs.BoolP("verbose", "v", false, "verbose logging")
	fs.Parse(args)

	logger := newLogger(*verbose)
	if fs.NArg() < 1 {
		logger.Error("fetch requires a URL")
		os.Exit(2)
	}
	file, err := client.Fetch(fs.Arg(0), *out, *force, os.Stdout)
	if err != nil {
		logger.Error("fetch failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("\nSaved to %s\n", file)
}

func searchCmd(args []string) {
	fs := pflag.NewFlagSet("search", pflag.ExitOnError)
	timeout := fs.Duration("timeout", 3*time.Second, "duration to wait for discovery")
	fs.Parse(args)

	services, err := discovery.Browse(context.Background(), *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "search failed: %v\n", err)
		os.Exit(1)
	}
	if len(services) == 0 {
		fmt.Println("No logzip servers found")
		return
	}
	fmt.Println("Discovered servers:")
	for _, svc := range services {
		fmt.Printf("- %s %s\n", svc.Name, svc.URL)
	}
}
