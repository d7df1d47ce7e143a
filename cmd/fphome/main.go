package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	fphome "github.com/makemysite/FP-HOME-DRAFT-sub000"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/logging"
	"github.com/makemysite/FP-HOME-DRAFT-sub000/seo"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "scan":
		if err := runScan(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("fphome %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`fphome - FieldPulse marketing site, blog and admin console

Usage:
  fphome serve [-config path]   Start the HTTP server
  fphome scan <url>             Run the SEO scanner against one page
  fphome version                Print the version
  fphome help                   Show this help

Configuration is read from .env, the optional config file and FPHOME_*
environment variables (for example FPHOME_ADMIN_PASSWORD,
FPHOME_BACKEND_DRIVER=rest, FPHOME_BACKEND_URL).`)
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to a config file (yaml, toml or json)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := fphome.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return err
	}

	app := fphome.New(cfg, fphome.ViewFuncs{}, fphome.WithLogger(logger))
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- app.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.Shutdown(shutdownCtx)
}

func runScan(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: fphome scan <url>")
	}
	logger, err := logging.New(true, "warn")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	report, err := seo.NewScanner(seo.WithLogger(logger)).Scan(ctx, args[0])
	if err != nil {
		logger.Error("scan failed", zap.Error(err))
		return err
	}
	fmt.Printf("URL:         %s\n", report.URL)
	fmt.Printf("Score:       %d/100\n", report.Score)
	fmt.Printf("Title:       %s\n", report.Title)
	fmt.Printf("Description: %s\n", report.Description)
	fmt.Printf("H1 count:    %d\n", report.H1Count)
	fmt.Printf("Missing alt: %d\n", report.ImagesMissingAlt)
	fmt.Printf("Canonical:   %s\n", report.Canonical)
	if len(report.Issues) > 0 {
		fmt.Printf("Issues:\n  - %s\n", strings.Join(report.Issues, "\n  - "))
	}
	return nil
}
