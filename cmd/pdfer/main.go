// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/pdfer/internal/config"
	"github.com/pdfer/internal/document"
	"github.com/pdfer/internal/export"
	"github.com/pdfer/internal/extract"
	"github.com/pdfer/internal/jobs"
	"github.com/pdfer/internal/logger"
	"github.com/pdfer/internal/notify"
	"github.com/pdfer/internal/ocr"
	"github.com/pdfer/internal/ocr/tesseract"
	"github.com/pdfer/internal/queue"
	"github.com/pdfer/internal/store"
	"github.com/pdfer/internal/watcher"
	"github.com/pdfer/internal/worker"
)

var configPath = flag.String("config", "", "Path to config file (default: ~/.pdfer/config.yaml)")

const usage = `usage: pdfer [-config file] <command> [flags] [args]

commands:
  pages <file.pdf>                     print the page count
  info <file.pdf>                      print path, page count and document metadata
  text [-page N] <file.pdf>            print embedded text (all pages when N is 0)
  ocr [-out rows.xlsx] <file.pdf>      OCR every page into flat rows
  hocr [-out rows.xlsx] <file.hocr>    flatten an existing hOCR file
  enqueue [-out rows.xlsx] <file.pdf>  queue a document for the serve workers
  serve                                watch inboxes and process queued documents
`

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.Init(cfg.LogFile, logger.ParseLevel(cfg.LogLevel))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "pages":
		err = runPages(args)
	case "info":
		err = runInfo(args)
	case "text":
		err = runText(args)
	case "ocr":
		err = runOCR(ctx, cfg, args)
	case "hocr":
		err = runHOCR(args)
	case "enqueue":
		err = runEnqueue(ctx, cfg, args)
	case "serve":
		err = runServe(ctx, cfg)
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		logger.Errorf("%s: %v", cmd, err)
		log.Close()
		os.Exit(exitCode(err))
	}
}

// exitCode distinguishes bad input from runtime failures
func exitCode(err error) int {
	switch {
	case errors.Is(err, document.ErrNotFound),
		errors.Is(err, document.ErrPageOutOfRange),
		errors.Is(err, document.ErrEncrypted):
		return 3
	case errors.Is(err, ocr.ErrEngineUnavailable):
		return 4
	default:
		return 1
	}
}

func singleArg(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		return "", fmt.Errorf("expected exactly one file argument, got %d", fs.NArg())
	}
	return fs.Arg(0), nil
}

func runPages(args []string) error {
	path, err := singleArg(flag.NewFlagSet("pages", flag.ExitOnError), args)
	if err != nil {
		return err
	}
	doc, err := document.Open(path)
	if err != nil {
		return err
	}
	defer doc.Close()

	fmt.Println(doc.NumPages())
	return nil
}

func runInfo(args []string) error {
	path, err := singleArg(flag.NewFlagSet("info", flag.ExitOnError), args)
	if err != nil {
		return err
	}
	doc, err := document.Open(path)
	if err != nil {
		return err
	}
	defer doc.Close()

	fmt.Printf("path\t%s\npages\t%d\n", doc.Path(), doc.NumPages())
	meta := doc.Metadata()
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if meta[k] != "" {
			fmt.Printf("%s\t%s\n", k, meta[k])
		}
	}
	return nil
}

func runText(args []string) error {
	fs := flag.NewFlagSet("text", flag.ExitOnError)
	page := fs.Int("page", 0, "1-based page to extract, 0 for the whole document")
	path, err := singleArg(fs, args)
	if err != nil {
		return err
	}

	text, err := extract.Text(path, *page)
	if err != nil {
		return err
	}
	fmt.Println(text)
	return nil
}

func newPipeline(cfg *config.Config) (*extract.Pipeline, error) {
	langs, err := tesseract.Available()
	if err != nil {
		return nil, err
	}
	logger.Debugf("Tesseract languages available: %v", langs)

	return extract.NewPipeline(
		tesseract.NewEngine(cfg.OCR.PageSegMode),
		extract.WithDPI(cfg.OCR.DPI),
		extract.WithLanguages(cfg.OCR.Languages...),
		extract.WithWorkers(cfg.OCR.PageWorkers),
		extract.WithEngineMetadata(cfg.EngineMetadata()),
	), nil
}

// ocrFlags registers the OCR overrides of the ocr command
func ocrFlags(fs *flag.FlagSet) (dpi *int, langs *string, workers *int) {
	dpi = fs.Int("dpi", 0, "Rasterization DPI (overrides config)")
	langs = fs.String("lang", "", "Comma-separated Tesseract languages (overrides config)")
	workers = fs.Int("workers", 0, "Pages recognized concurrently (overrides config)")
	return dpi, langs, workers
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func runOCR(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("ocr", flag.ExitOnError)
	out := fs.String("out", "", "Write rows to this .xlsx file instead of stdout")
	dpi, langs, workers := ocrFlags(fs)
	path, err := singleArg(fs, args)
	if err != nil {
		return err
	}
	config.ApplyCLIFlags(cfg, *dpi, splitList(*langs), *workers)

	pipeline, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	table, err := pipeline.Run(ctx, path)
	if err != nil {
		return err
	}
	logger.Printf("OCR complete: %s pages=%d rows=%d", path, table.Pages, len(table.Rows))

	return writeRows(*out, table.Rows)
}

func runHOCR(args []string) error {
	fs := flag.NewFlagSet("hocr", flag.ExitOnError)
	out := fs.String("out", "", "Write rows to this .xlsx file instead of stdout")
	path, err := singleArg(fs, args)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	pages, err := ocr.ParseHOCR(f)
	if err != nil {
		return err
	}
	return writeRows(*out, ocr.NormalizeDocument(pages))
}

func writeRows(out string, rows []ocr.FlatRow) error {
	if out == "" {
		return export.WriteTSV(os.Stdout, rows)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := export.SaveXLSX(out, rows); err != nil {
		return err
	}
	logger.Printf("Wrote %d rows to %s", len(rows), out)
	return nil
}

func openQueue(ctx context.Context, cfg *config.Config) (queue.Queue, func(), error) {
	if !cfg.Redis.Enabled {
		return queue.NewMemoryQueue(0), func() {}, nil
	}

	client, err := config.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	q, err := queue.NewRedisQueue(ctx, client, cfg.Redis.QueueKey)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	logger.Printf("Using Redis queue %s at %s", q.Key(), cfg.Redis.Addr)
	return q, func() { client.Close() }, nil
}

func runEnqueue(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("enqueue", flag.ExitOnError)
	out := fs.String("out", "", "Export rows to this .xlsx file when the job completes")
	path, err := singleArg(fs, args)
	if err != nil {
		return err
	}
	if !cfg.Redis.Enabled {
		return errors.New("enqueue needs redis.enabled so a running serve process can pick the job up")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	hash, err := document.Hash(abs)
	if err != nil {
		return err
	}

	q, closeQueue, err := openQueue(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeQueue()

	return jobs.EnqueueOCRDocument(ctx, q, queue.OCRDocumentPayload{Path: abs, Hash: hash, Output: *out})
}

func runServe(ctx context.Context, cfg *config.Config) error {
	pipeline, err := newPipeline(cfg)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.DataDir)
	if err != nil {
		return err
	}
	defer st.Close()

	// Jobs of a previous run that died with it are retried by the startup scan
	if err := watcher.RecoverInFlight(st, cfg.Redis.Enabled); err != nil {
		return err
	}

	q, closeQueue, err := openQueue(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeQueue()

	handler := jobs.NewOCRHandler(pipeline, st, notify.New(cfg.Notify), cfg.OutputDir)

	watcherMgr := watcher.NewManager(cfg.Watch.Paths, q, st, cfg.Watch.Debounce)
	if err := watcherMgr.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer watcherMgr.Stop()

	logger.Printf("pdfer serving: watch=%v workers=%d output=%s. Press Ctrl+C to stop.", watcherMgr.WatchedPaths(), cfg.Workers, cfg.OutputDir)

	// Blocks until the signal context is cancelled
	if err := worker.StartWorkers(ctx, q, handler.Handle, cfg.Workers); err != nil {
		return err
	}
	logger.Printf("Shutdown complete")
	return nil
}
