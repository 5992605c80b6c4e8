// Package main is the manabu CLI entry point.
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

	"github.com/hyperjump/manabu/internal/cli"
	"github.com/hyperjump/manabu/internal/config"
	"github.com/hyperjump/manabu/internal/embedding"
	"github.com/hyperjump/manabu/internal/extract"
	"github.com/hyperjump/manabu/internal/generation"
	"github.com/hyperjump/manabu/internal/models"
	"github.com/hyperjump/manabu/internal/pipeline"
	"github.com/hyperjump/manabu/internal/server"
	"github.com/hyperjump/manabu/internal/storage"
	"github.com/hyperjump/manabu/internal/vector"
	"github.com/hyperjump/manabu/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/manabu/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in the current
// directory wins if it exists, so "manabu serve" from a project dir uses that project's
// config. Returns the config and the path that was actually loaded.
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
	// API keys may live in a .env next to the config; a missing file is fine.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "serve", "server":
		runServe()
	case "build":
		runBuild()
	case "retrieve":
		runRetrieve()
	case "ask":
		runAsk()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("manabu version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads the config and creates the logger, exiting on failure.
func setup(configPath string, debugFlag bool) (*config.Config, *zap.Logger) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || debugFlag
	logger, err := utils.NewLogger(debugMode, zap.String("version", version))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.Info("config loaded",
		zap.String("config_path", resolved),
		zap.Bool("debug", debugMode),
		zap.String("corpus", cfg.Corpus.Directory))
	return cfg, logger
}

func runServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srv := server.NewServer(components.Pipeline, components.Asker, cfg, logger)
	if err := serve(ctx, components.Pipeline, srv, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		components.Close()
		_ = logger.Sync()
		os.Exit(1)
	}
}

// httpServer is the part of *server.Server that serve drives.
type httpServer interface {
	Start() error
	Stop(ctx context.Context) error
}

// serve runs the listener and the index build side by side. The listener comes up first
// and queries get 503 until the build finishes. It returns nil once ctx is done, and an
// error when the server fails or the build fails; a failed build stops the server.
func serve(ctx context.Context, p *pipeline.Pipeline, srv httpServer, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(ctx)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	buildDone := make(chan error, 1)
	go func() {
		_, err := p.Build(ctx)
		buildDone <- err
	}()
	builds := buildDone // nil once received
	// The build must not outlive serve: callers close the store and index next.
	defer func() {
		cancel()
		if builds != nil {
			<-builds
		}
	}()

	shutdown := func(cause error) error {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
		return cause
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutting down...")
			return shutdown(nil)
		case err := <-serverErr:
			return fmt.Errorf("server failed: %w", err)
		case err := <-builds:
			builds = nil
			if err == nil {
				continue
			}
			if ctx.Err() != nil {
				logger.Info("Shutting down...")
				return shutdown(nil)
			}
			logger.Error("index build failed, stopping server", zap.Error(err))
			return shutdown(fmt.Errorf("index build failed: %w", err))
		}
	}
}

func runBuild() {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format := parseFormat(*outputFormat)
	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()

	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	report, err := components.Pipeline.Build(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Build failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteBuildReport(os.Stdout, report, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// queryFlags are shared by retrieve and ask.
type queryFlags struct {
	fs         *flag.FlagSet
	configPath *string
	serverURL  *string
	topK       *int
	output     *string
	debug      *bool
}

func newQueryFlags(name string) *queryFlags {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	q := &queryFlags{
		fs:         fs,
		configPath: fs.String("config", defaultConfigPath, "config file path (local mode)"),
		serverURL:  fs.String("server", "", "server URL, e.g. http://localhost:8080 (empty = build the index locally)"),
		topK:       fs.Int("top-k", 0, "number of chunks to retrieve (0 = config default)"),
		output:     fs.String("output", "text", "output format: text or json"),
		debug:      fs.Bool("debug", false, "enable debug logging (local mode)"),
	}
	fs.Usage = func() { printQueryUsage(fs, name) }
	return q
}

// parse reads args and returns the request, exiting with usage when the query is blank.
func (q *queryFlags) parse(args []string) *models.RetrieveRequest {
	_ = q.fs.Parse(argsReorder(args))
	query := buildQuery(q.fs.Args())
	if query == "" {
		q.fs.Usage()
		os.Exit(1)
	}
	return &models.RetrieveRequest{Query: query, TopK: *q.topK}
}

func printQueryUsage(fs *flag.FlagSet, name string) {
	fmt.Fprintf(fs.Output(), "Usage: manabu %s [flags] <question>\n\n", name)
	fmt.Fprintf(fs.Output(), "The question is all remaining arguments joined by spaces.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Without --server the corpus is indexed in this process before answering, which takes as
long as "manabu build". Point --server at a running "manabu serve" to reuse its index.

Examples:
  manabu %[1]s how many vacation days do I get
  manabu %[1]s --top-k 3 "expense reimbursement"
  manabu %[1]s --server http://localhost:8080 --output json vpn setup
`, name)
}

// buildQuery joins all positional args with spaces so multi-word queries work the same
// with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves any flags (and their values) that appear after the query to the front
// of the slice so that flag.Parse() sees them. The flag package stops at the first
// non-flag argument.
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

func parseFormat(s string) cli.OutputFormat {
	format, err := cli.ParseOutputFormat(s)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return format
}

func runRetrieve() {
	q := newQueryFlags("retrieve")
	req := q.parse(os.Args[2:])
	format := parseFormat(*q.output)

	var (
		resp *models.RetrieveResponse
		err  error
	)
	if *q.serverURL != "" {
		resp, err = retrieveViaHTTP(*q.serverURL, req)
	} else {
		resp, err = withLocalPipeline(*q.configPath, *q.debug, func(ctx context.Context, c *Components) (*models.RetrieveResponse, error) {
			r, err := c.Pipeline.Wait(ctx)
			if err != nil {
				return nil, err
			}
			return r.Respond(ctx, req)
		})
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Retrieve failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteRetrieveResponse(os.Stdout, resp, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runAsk() {
	q := newQueryFlags("ask")
	req := q.parse(os.Args[2:])
	format := parseFormat(*q.output)

	var (
		resp *models.AskResponse
		err  error
	)
	if *q.serverURL != "" {
		resp, err = askViaHTTP(*q.serverURL, req)
	} else {
		resp, err = withLocalPipeline(*q.configPath, *q.debug, func(ctx context.Context, c *Components) (*models.AskResponse, error) {
			r, err := c.Pipeline.Wait(ctx)
			if err != nil {
				return nil, err
			}
			return c.Asker.Ask(ctx, r, req)
		})
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteAskResponse(os.Stdout, resp, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// withLocalPipeline builds the index in-process and runs fn against it.
func withLocalPipeline[T any](configPath string, debug bool, fn func(context.Context, *Components) (T, error)) (T, error) {
	var zero T
	cfg, logger := setup(configPath, debug)
	defer logger.Sync()

	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return zero, err
	}
	defer components.Close()

	if _, err := components.Pipeline.Build(ctx); err != nil {
		return zero, err
	}
	return fn(ctx, components)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format := parseFormat(*outputFormat)
	status, err := statusViaHTTP(*serverURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	if err := writeStatus(os.Stdout, status, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func writeStatus(w io.Writer, s *server.StatusResponse, format cli.OutputFormat) error {
	if format == cli.OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	fmt.Fprintf(w, "phase:          %s\n", s.Phase)
	if s.Error != "" {
		fmt.Fprintf(w, "error:          %s\n", s.Error)
	}
	fmt.Fprintf(w, "files:          %d   # documents indexed\n", s.Files)
	fmt.Fprintf(w, "chunks:         %d   # retrievable units\n", s.Chunks)
	fmt.Fprintf(w, "skipped:        %d   # files that failed to parse\n", len(s.Skipped))
	for _, sk := range s.Skipped {
		fmt.Fprintf(w, "  - %s: %s\n", sk.Path, sk.Error)
	}
	fmt.Fprintf(w, "index:          %s (%d vectors)\n", s.IndexType, s.IndexSize)
	fmt.Fprintf(w, "model:          %s (%d dims)\n", s.Model, s.Dimensions)
	fmt.Fprintf(w, "corpus_bytes:   %d\n", s.CorpusBytes)
	fmt.Fprintf(w, "database_bytes: %d\n", s.DatabaseBytes)
	fmt.Fprintf(w, "build_seconds:  %.2f\n", s.BuildSeconds)
	fmt.Fprintf(w, "\n# retrieval\n")
	fmt.Fprintf(w, "top_k:          %d\n", s.TopK)
	fmt.Fprintf(w, "min_score:      %.2f\n", s.MinScore)
	fmt.Fprintf(w, "generation:     %s\n", s.GenerationMode)
	return nil
}

// postJSON sends body to serverURL+path and decodes a 200 response into out.
func postJSON(serverURL, path string, body, out interface{}) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := http.Post(strings.TrimRight(serverURL, "/")+path, "application/json", bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out interface{}) error {
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func retrieveViaHTTP(serverURL string, req *models.RetrieveRequest) (*models.RetrieveResponse, error) {
	var resp models.RetrieveResponse
	if err := postJSON(serverURL, "/api/v1/retrieve", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func askViaHTTP(serverURL string, req *models.RetrieveRequest) (*models.AskResponse, error) {
	var resp models.AskResponse
	if err := postJSON(serverURL, "/api/v1/ask", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func statusViaHTTP(serverURL string) (*server.StatusResponse, error) {
	resp, err := http.Get(strings.TrimRight(serverURL, "/") + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	var s server.StatusResponse
	if err := decodeResponse(resp, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Components holds initialized services.
type Components struct {
	Store    *storage.SQLiteStore
	Embedder embedding.Embedder
	Index    vector.Index
	Pipeline *pipeline.Pipeline
	Asker    *generation.Asker
}

func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Index != nil {
		_ = c.Index.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	logger = utils.OrNop(logger)
	c := &Components{}

	embedder, err := embedding.New(ctx, cfg.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	c.Embedder = embedder

	index, fellBack, err := vector.NewIndexOrMemory(cfg.Retrieval.IndexType, embedder.Dimensions())
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	if fellBack {
		logger.Warn("FAISS index requested but not compiled in, using memory index",
			zap.String("requested_type", cfg.Retrieval.IndexType))
	}
	c.Index = index
	logger.Info("vector index initialized",
		zap.String("type", index.Type()),
		zap.Bool("faiss_available", vector.IsFAISSAvailable()))

	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.Store = store

	generator, err := generation.New(ctx, cfg.Generation, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize generator: %w", err)
	}
	c.Asker = generation.NewAsker(generator, logger)

	c.Pipeline = pipeline.New(pipeline.Deps{
		Extractor: extract.NewExtractor(),
		Embedder:  embedder,
		Index:     index,
		Store:     store,
		Corpus:    cfg.Corpus,
		Retrieval: cfg.Retrieval,
		Logger:    logger,
	})
	return c, nil
}

func printUsage() {
	fmt.Println(`manabu - Question answering over a folder of company documents

Usage:
  manabu serve [flags]              Index the corpus and start the HTTP server
  manabu build [flags]              Index the corpus and print the build report
  manabu retrieve [flags] <query>   Show the chunks most relevant to a query
  manabu ask [flags] <question>     Answer a question from the corpus
  manabu status [flags]             Show the status of a running server
  manabu version                    Show version
  manabu help                       Show this help

Serve / Build Flags:
  --config string    Config file path (default: /usr/local/etc/manabu/config.yaml, or ./config.yaml)
  --debug            Enable debug logging
  --output string    Build report format: text or json (build only)

Retrieve / Ask Flags:
  --config string    Config file path (local mode)
  --server string    Server URL. Empty (default) indexes the corpus in this process.
  --top-k int        Number of chunks to retrieve (default from config)
  --output string    Output format: text or json (default: text)

Status Flags:
  --server string    Server URL (default: http://localhost:8080)
  --output string    Output format: text or json (default: text)

Environment:
  API keys for the openai and gemini providers are read from the variables named by
  embedding.api_key_env and generation.api_key_env. A .env file in the working
  directory is loaded first.

Examples:
  manabu serve
  manabu build --output json
  manabu retrieve "vacation policy"
  manabu ask how do I submit expenses
  manabu ask --server http://localhost:8080 --top-k 3 vpn setup
  manabu status --output json`)
}
