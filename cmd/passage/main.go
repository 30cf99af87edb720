// Package main is the passage CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/passage/internal/answer"
	"github.com/hyperjump/passage/internal/cli"
	"github.com/hyperjump/passage/internal/config"
	"github.com/hyperjump/passage/internal/ingest"
	"github.com/hyperjump/passage/internal/models"
	"github.com/hyperjump/passage/internal/server"
	"github.com/hyperjump/passage/internal/watcher"
	"github.com/hyperjump/passage/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/passage/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory; if that exists it is used.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// A missing .env is fine; secrets may come from the real environment.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "init":
		runInit()
	case "ingest":
		runIngestCommand()
	case "build":
		runBuildCommand()
	case "search":
		runSearch()
	case "ask":
		runAsk()
	case "server":
		runServer()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("passage version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads config and creates the logger. quiet selects NewQuietLogger.
func setup(configPath string, debugFlag, quiet bool) (*config.Config, *zap.Logger, bool) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debug := cfg.Debug || debugFlag
	newLogger := utils.NewLogger
	if quiet {
		newLogger = utils.NewQuietLogger
	}
	logger, err := newLogger(debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debug))
	return cfg, logger, debug
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "overwrite an existing config file")
	_ = fs.Parse(os.Args[2:])

	path := "config.yaml"
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	if err := writeDefaultConfig(path, *force); err != nil {
		fmt.Fprintf(os.Stderr, "Init failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", path)
}

// writeDefaultConfig writes config.Default to path and creates the docs
// directory next to it.
func writeDefaultConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	cfg := config.Default()
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	docs := filepath.Join(filepath.Dir(path), cfg.Ingest.DataDir)
	if err := os.MkdirAll(docs, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", docs, err)
	}
	return nil
}

func runIngestCommand() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debugFlag := fs.Bool("debug", false, "enable debug logging")
	build := fs.Bool("build", false, "build the index after ingesting")
	watch := fs.Bool("watch", false, "keep running and re-ingest and rebuild when data_dir changes")
	debounce := fs.Duration("debounce", 2*time.Second, "quiet period before a rebuild in --watch mode")
	_ = fs.Parse(os.Args[2:])

	cfg, logger, debug := setup(*configPath, *debugFlag, false)
	defer logger.Sync()
	singleFile := ""
	if fs.NArg() > 0 {
		abs, err := filepath.Abs(fs.Arg(0))
		if err != nil {
			logger.Fatal("Invalid data directory", zap.Error(err))
		}
		if info, statErr := os.Stat(abs); statErr == nil && info.Mode().IsRegular() {
			singleFile = abs
		} else {
			cfg.Ingest.DataDir = abs
		}
	}
	if singleFile != "" && *watch {
		fmt.Fprintln(os.Stderr, "--watch needs a directory, not a file")
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()

	if !*watch {
		var (
			report *ingest.Report
			err    error
		)
		if singleFile != "" {
			report, err = runIngestFile(ctx, cfg, logger, debug, singleFile)
		} else {
			report, err = runIngest(ctx, cfg, logger, debug)
		}
		if err != nil {
			logger.Fatal("Ingest failed", zap.Error(err))
		}
		for _, s := range report.Skipped {
			fmt.Printf("skipped: %s\n", s)
		}
		fmt.Printf("Ingested %d source(s) into %d chunk(s) in %s\n", len(report.Sources), report.Chunks, cfg.Storage.ChunkDir)
		if *build {
			buildOnce(ctx, cfg, logger)
		}
		return
	}

	enc, err := newEmbedder(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer enc.Close()

	if err := ingestAndBuild(ctx, cfg, enc, logger, debug); err != nil {
		logger.Error("initial build failed", zap.Error(err))
	}
	w := watcher.NewWatcher(cfg.Ingest.DataDir,
		func(ctx context.Context, changed []string) error {
			return ingestAndBuild(ctx, cfg, enc, logger, debug)
		},
		watcher.WithExtensions(cfg.Ingest.Extensions),
		watcher.WithRecursive(cfg.Ingest.RecursiveOrDefault()),
		watcher.WithDebounce(*debounce),
		watcher.WithLogger(logger),
	)
	if err := w.Start(ctx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	<-ctx.Done()
	logger.Info("Shutting down...")
	w.Stop()
}

func runBuildCommand() {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debugFlag := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, logger, _ := setup(*configPath, *debugFlag, false)
	defer logger.Sync()
	ctx, cancel := signalContext()
	defer cancel()
	buildOnce(ctx, cfg, logger)
}

func buildOnce(ctx context.Context, cfg *config.Config, logger *zap.Logger) {
	enc, err := newEmbedder(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer enc.Close()
	idx, err := runBuild(ctx, cfg, enc, logger)
	if err != nil {
		logger.Fatal("Build failed", zap.Error(err))
	}
	defer idx.Close()
	m := idx.Manifest()
	fmt.Printf("Built index %s: %d chunk(s), %d dimensions, model %s\n", m.RunID, m.Count, m.Dimensions, m.Model)
}

// buildQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = load the index directly)")
	k := fs.Int("k", 0, "number of passages (0 = retrieval.default_k)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	debugFlag := fs.Bool("debug", false, "enable debug logging")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: passage search [flags] <query>\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(argsReorder(os.Args[2:]))

	query := buildQuery(fs.Args())
	if query == "" {
		fs.Usage()
		os.Exit(1)
	}
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var response *models.SearchResponse
	if *serverURL != "" {
		response, err = searchViaHTTP(*serverURL, &models.SearchQuery{Query: query, K: *k})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, logger, debug := setup(*configPath, *debugFlag, true)
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger, debug)
		if err != nil {
			exitUnavailable(logger, err)
		}
		defer components.Close()
		response, err = searchLocal(context.Background(), components, query, *k)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func searchLocal(ctx context.Context, c *Components, query string, k int) (*models.SearchResponse, error) {
	start := time.Now()
	hits, err := c.Retriever.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	if hits == nil {
		hits = []models.Hit{}
	}
	return &models.SearchResponse{
		Hits:      hits,
		Total:     len(hits),
		QueryTime: time.Since(start).Milliseconds(),
		Query:     strings.TrimSpace(query),
	}, nil
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = load the index directly)")
	k := fs.Int("k", 0, "number of passages given to the generator (0 = retrieval.default_k)")
	stream := fs.Bool("stream", false, "print the answer as it is generated")
	outputFormat := fs.String("output", "text", "output format: text or json")
	debugFlag := fs.Bool("debug", false, "enable debug logging")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: passage ask [flags] <question>\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(argsReorder(os.Args[2:]))

	question := buildQuery(fs.Args())
	if question == "" {
		fs.Usage()
		os.Exit(1)
	}
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	req := models.AskRequest{Question: question, K: *k, Stream: *stream && format == cli.OutputText}

	if *serverURL != "" {
		if err := askViaHTTP(os.Stdout, *serverURL, req, format); err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, logger, debug := setup(*configPath, *debugFlag, true)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger, debug)
	if err != nil {
		exitUnavailable(logger, err)
	}
	defer components.Close()

	ctx, cancel := signalContext()
	defer cancel()
	if err := askLocal(ctx, os.Stdout, components.Answers, req, format); err != nil {
		fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
		os.Exit(1)
	}
}

func askLocal(ctx context.Context, w io.Writer, svc *answer.Service, req models.AskRequest, format cli.OutputFormat) error {
	if !req.Stream {
		resp, err := svc.Ask(ctx, req)
		if err != nil {
			return err
		}
		return cli.WriteAnswer(w, resp, format)
	}
	pending, err := svc.AskStream(ctx, req)
	if err != nil {
		return err
	}
	if pending.Refused {
		_, err := fmt.Fprintln(w, answer.RefusalMessage)
		return err
	}
	defer pending.Stream.Close()
	for {
		frag, err := pending.Stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, frag); err != nil {
			return err
		}
	}
	fmt.Fprintln(w)
	cli.WriteSources(w, pending.Sources)
	return nil
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debugFlag := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, logger, debug := setup(*configPath, *debugFlag, false)
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, debug)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	opts := []server.Option{server.WithDiskPaths(diskPaths(cfg)...)}
	if components.Catalog != nil {
		opts = append(opts, server.WithCatalog(components.Catalog))
	}
	srv := server.NewServer(components.Index, components.Retriever, components.Answers, &cfg.Server, logger, opts...)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	ctx, cancel := signalContext()
	defer cancel()
	<-ctx.Done()

	logger.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = read the index directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var st *models.Status
	if *serverURL != "" {
		st, err = statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, logger, debug := setup(*configPath, false, true)
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger, debug)
		if err != nil {
			exitUnavailable(logger, err)
		}
		defer components.Close()
		st, err = server.CollectStatus(context.Background(), components.Index, components.Catalog, diskPaths(cfg)...)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	}
	if err := cli.WriteStatus(os.Stdout, st, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func exitUnavailable(logger *zap.Logger, err error) {
	if isUnavailable(err) {
		fmt.Fprintf(os.Stderr, "Index unavailable: %v\nRun \"passage ingest --build\" first.\n", err)
		os.Exit(1)
	}
	logger.Fatal("Failed to initialize", zap.Error(err))
}

func postJSON(url string, body interface{}) (*http.Response, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return resp, nil
}

func searchViaHTTP(serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	resp, err := postJSON(serverURL+"/api/v1/search", query)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func askViaHTTP(w io.Writer, serverURL string, req models.AskRequest, format cli.OutputFormat) error {
	resp, err := postJSON(serverURL+"/api/v1/ask", req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if req.Stream {
		_, err := io.Copy(w, resp.Body)
		return err
	}
	var out models.AskResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return cli.WriteAnswer(w, &out, format)
}

func statusViaHTTP(serverURL string) (*models.Status, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s models.Status
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func printUsage() {
	fmt.Println(`passage - grounded passage retrieval over your documents

Usage:
  passage init [path]              Write a starter config.yaml
  passage ingest [flags] [dir|file] Extract and segment documents into chunk records
  passage build [flags]            Embed chunk records and write the index
  passage search [flags] <query>   Show the passages that support a query
  passage ask [flags] <question>   Answer a question from the indexed passages
  passage server [flags]           Start the HTTP server
  passage status [flags]           Show index and catalog status
  passage version                  Show version
  passage help                     Show this help

Common Flags:
  --config string    Config file path (default: ./config.yaml, then /usr/local/etc/passage/config.yaml)
  --debug            Enable debug logging

Ingest Flags:
  --build            Build the index after ingesting
  --watch            Keep running; re-ingest and rebuild when data_dir changes
  --debounce         Quiet period before a rebuild in watch mode (default: 2s)

Search / Ask Flags:
  --k int            Number of passages (default from retrieval.default_k)
  --server string    Use a running server instead of loading the index
  --output string    Output format: text or json (default: text)
  --stream           (ask) Print the answer as it is generated

Examples:
  passage init
  passage ingest --build ./docs
  passage search "solar panel maintenance"
  passage ask --stream how often should the panels be cleaned
  passage ingest --watch
  passage server
  passage status --output json`)
}
