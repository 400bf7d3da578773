// Command apirecord builds OpenAPI documents from recorded HTTP traffic.
//
//	apirecord build [-format yaml|json] [-o file] [-jq expr] [-har] [-routes file] files...
//	apirecord serve [files...]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/usestring/apirecord/internal/capture"
	"github.com/usestring/apirecord/internal/config"
	"github.com/usestring/apirecord/internal/logging"
	"github.com/usestring/apirecord/internal/route"
	"github.com/usestring/apirecord/pkg/mcpsrv"
	"github.com/usestring/apirecord/pkg/recorder"
)

const usage = `usage:
  apirecord build [-format yaml|json] [-o file] [-jq expr] [-har] [-routes file] files...
  apirecord serve [files...]
`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// run executes one subcommand and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	cfg := config.Load()
	var err error
	switch args[0] {
	case "build":
		err = runBuild(ctx, cfg, args[1:], stdout, stderr)
	case "serve":
		err = runServe(ctx, cfg, args[1:])
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n%s", args[0], usage)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		return 2
	default:
		fmt.Fprintln(stderr, "apirecord:", err)
		return 1
	}
}

var errUsage = errors.New("usage")

func runBuild(ctx context.Context, cfg *config.Config, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	fs.SetOutput(stderr)
	format := fs.String("format", cfg.Format, "output format: yaml or json")
	output := fs.String("o", "", "write the document to this file instead of stdout")
	jqExpr := fs.String("jq", "", "jq expression mapping each input document to exchange records")
	har := fs.Bool("har", false, "read every input as a HAR archive")
	routes := fs.String("routes", "", "YAML route table; unmatched paths fall back to identifier heuristics")
	title := fs.String("title", cfg.Title, "document title")
	version := fs.String("version", cfg.Version, "document version")
	workers := fs.Int("workers", cfg.LoadWorkers, "files parsed concurrently")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return errUsage
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "build: at least one capture file is required")
		return errUsage
	}

	docFormat, err := recorder.ParseFormat(*format)
	if err != nil {
		return err
	}

	logger, cleanup, err := newLogger(cfg, stderr)
	if err != nil {
		return err
	}
	defer func() { _ = cleanup() }()

	recOpts := append(cfg.RecorderOptions(),
		recorder.WithInfo(*title, *version),
		recorder.WithLogger(logger),
	)
	if *routes != "" {
		table, err := loadRoutes(*routes)
		if err != nil {
			return err
		}
		recOpts = append(recOpts, recorder.WithMatcher(route.Chain{table, route.HeuristicMatcher{}}))
	}
	rec := recorder.New(recOpts...)

	loadOpts := capture.Options{Workers: *workers, Logger: logger}
	if *har {
		loadOpts.Format = capture.FormatHAR
	}
	if *jqExpr != "" {
		mapper, err := capture.NewMapper(*jqExpr)
		if err != nil {
			return err
		}
		loadOpts.Mapper = mapper
	}

	stats, err := capture.LoadFiles(ctx, rec, fs.Args(), loadOpts)
	if err != nil {
		return err
	}
	logger.Info("captures loaded",
		slog.Int("files", stats.Files),
		slog.Int("exchanges", stats.Exchanges),
		slog.Int("recorded", stats.Recorded),
		slog.Int("skipped", stats.Skipped),
		slog.Int("operations", len(rec.Operations())),
	)

	if *output == "" {
		return rec.WriteDocument(stdout, docFormat)
	}
	f, err := os.Create(*output)
	if err != nil {
		return err
	}
	if err := rec.WriteDocument(f, docFormat); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func runServe(ctx context.Context, cfg *config.Config, args []string) error {
	server, err := mcpsrv.NewServer(mcpsrv.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer server.Close()

	if len(args) > 0 {
		stats, err := capture.LoadFiles(ctx, server.Deps().Recorder, args, capture.Options{Workers: cfg.LoadWorkers})
		if err != nil {
			return err
		}
		slog.Info("captures preloaded", slog.Int("recorded", stats.Recorded), slog.Int("skipped", stats.Skipped))
	}

	slog.Info("starting apirecord MCP server on stdio")
	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server error: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

// newLogger logs to w unless a log file is configured.
func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, func() error, error) {
	lc := cfg.Logging()
	if lc.FilePath != "" {
		return logging.New(lc)
	}
	return slog.New(logging.NewHandler(w, lc)), func() error { return nil }, nil
}

func loadRoutes(path string) (*route.TemplateMatcher, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := route.LoadTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
