// Package main is the CiteTalk CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ayush1014/CiteTalk-voice-Backend/internal/apperr"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/cli"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/config"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/embedding"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/extract"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/generator"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/history"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/indexer"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/intent"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/llm"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/models"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/orchestrator"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/retrieval"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/server"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/vector"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/watcher"
	"github.com/ayush1014/CiteTalk-voice-Backend/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "config.yaml"
	httpTimeout       = 5 * time.Minute
)

// loadConfig loads .env, then the config file at path. When path is the default and no such
// file exists, built-in defaults plus environment overrides are used.
func loadConfig(path string) (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && path == defaultConfigPath {
			return config.Default()
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return config.Load(path)
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "ask":
		runAsk()
	case "history":
		runHistory()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("citetalk version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// setup loads config and builds a logger. Logging goes to stderr so command output stays clean.
func setup(configPath string, debugFlag bool) (*config.Config, *zap.Logger) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	debugMode := cfg.Debug || debugFlag
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	return cfg, logger
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()
	logger.Info("config loaded",
		zap.String("config_path", *configPath),
		zap.String("store", cfg.Store.Type),
		zap.String("history", cfg.History.Type),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := initializeComponents(ctx, cfg, logger, true)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	if len(cfg.Watch.Directories) > 0 {
		w := watcher.New(components.Indexer, cfg.Watch.Directories, ingestExtensions(cfg), cfg.Watch.RecursiveOrDefault(),
			watcher.WithLogger(logger))
		if err := w.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer w.Stop()
		w.SyncInBackground()
	}

	srv := server.NewServer(components.Orchestrator, components.Indexer, components.Store, components.History, cfg,
		server.WithVersion(version), server.WithLogger(logger))
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL; empty ingests directly into the configured store")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	if fs.NArg() < 1 {
		fatalf("Usage: citetalk ingest [flags] <file-or-directory>...")
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}

	cfg, logger := setup(*configPath, false)
	defer logger.Sync()
	ctx := context.Background()
	exts := ingestExtensions(cfg)

	var resp *server.IngestResponse
	if *serverURL != "" {
		resp, err = ingestViaHTTP(*serverURL, fs.Args(), exts)
	} else {
		resp, err = ingestDirect(ctx, cfg, logger, fs.Args(), exts)
	}
	if resp != nil {
		_ = cli.WriteIngest(os.Stdout, resp, format)
	}
	if err != nil {
		fatalf("Ingest failed: %v", err)
	}
}

func ingestDirect(ctx context.Context, cfg *config.Config, logger *zap.Logger, paths, exts []string) (*server.IngestResponse, error) {
	components, err := initializeComponents(ctx, cfg, logger, false)
	if err != nil {
		return nil, err
	}
	defer components.Close()

	resp := &server.IngestResponse{DocumentIDs: []string{}}
	files := 0
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return failIngest(resp, files, err)
		}
		if info.IsDir() {
			n, ids, err := components.Indexer.IngestDirectory(ctx, p, exts, true)
			files += n
			resp.DocumentIDs = append(resp.DocumentIDs, ids...)
			if err != nil {
				return failIngest(resp, files, err)
			}
			continue
		}
		ids, err := components.Indexer.ReplaceFile(ctx, p, nil)
		resp.DocumentIDs = append(resp.DocumentIDs, ids...)
		if err != nil {
			return failIngest(resp, files, err)
		}
		files++
	}
	resp.Success = true
	resp.Message = fmt.Sprintf("Ingested %d file(s)", files)
	return resp, nil
}

func failIngest(resp *server.IngestResponse, files int, err error) (*server.IngestResponse, error) {
	resp.Message = fmt.Sprintf("Ingested %d file(s) before failure", files)
	return resp, err
}

// ingestViaHTTP extracts files locally and posts their text to a running server.
func ingestViaHTTP(serverURL string, paths, exts []string) (*server.IngestResponse, error) {
	files, err := collectFiles(paths, exts)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no ingestible files found")
	}
	ex := extract.NewExtractor()
	req := server.IngestRequest{}
	for _, f := range files {
		text, err := ex.Extract(f)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", f, err)
		}
		req.Texts = append(req.Texts, text)
		req.Metadatas = append(req.Metadatas, map[string]interface{}{
			models.MetaSource:     f,
			"filename":            filepath.Base(f),
			models.MetaDocumentID: indexer.FileDocumentID(f),
		})
	}
	var resp server.IngestResponse
	err = doJSON(http.MethodPost, serverURL+"/api/ingest", req, &resp)
	if err != nil && resp.Message == "" {
		return nil, err
	}
	return &resp, err
}

// collectFiles expands directories into the matching regular files beneath them.
func collectFiles(paths, exts []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, abs)
			continue
		}
		err = filepath.WalkDir(abs, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.Type().IsRegular() && indexer.ExtensionAllowed(filepath.Ext(path), exts) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL; empty runs the pipeline locally")
	sessionID := fs.String("session", "", "session id (default: a new session)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	query := buildQuery(fs.Args())
	if query == "" {
		fatalf("Usage: citetalk ask [flags] <query>")
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}
	if *sessionID == "" {
		*sessionID = uuid.New().String()
	}

	var resp *server.ChatResponse
	if *serverURL != "" {
		resp = &server.ChatResponse{}
		err = doJSON(http.MethodPost, *serverURL+"/api/chat", models.ChatRequest{Query: query, SessionID: *sessionID}, resp)
	} else {
		cfg, logger := setup(*configPath, *debug)
		defer logger.Sync()
		resp, err = askDirect(context.Background(), cfg, logger, query, *sessionID)
	}
	if err != nil {
		fatalf("Ask failed: %v", err)
	}
	if err := cli.WriteChat(os.Stdout, resp, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func askDirect(ctx context.Context, cfg *config.Config, logger *zap.Logger, query, sessionID string) (*server.ChatResponse, error) {
	components, err := initializeComponents(ctx, cfg, logger, true)
	if err != nil {
		return nil, err
	}
	defer components.Close()

	result, err := components.Orchestrator.Run(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	if err := components.History.Append(ctx, models.NewConversationTurn(query, result)); err != nil {
		logger.Warn("failed to save conversation turn", zap.Error(err))
	}
	return server.NewChatResponse(result), nil
}

func runHistory() {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL; empty reads the configured history store")
	limit := fs.Int("limit", 0, "number of most recent turns (default from config)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	if fs.NArg() != 1 {
		fatalf("Usage: citetalk history [flags] <session-id>")
	}
	sessionID := fs.Arg(0)
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}

	var resp *server.HistoryResponse
	if *serverURL != "" {
		u := *serverURL + "/api/history/" + url.PathEscape(sessionID)
		if *limit > 0 {
			u += fmt.Sprintf("?limit=%d", *limit)
		}
		resp = &server.HistoryResponse{}
		err = doJSON(http.MethodGet, u, nil, resp)
	} else {
		cfg, logger := setup(*configPath, false)
		defer logger.Sync()
		resp, err = historyDirect(context.Background(), cfg, sessionID, *limit)
	}
	if err != nil {
		fatalf("History failed: %v", err)
	}
	if err := cli.WriteHistory(os.Stdout, resp, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func historyDirect(ctx context.Context, cfg *config.Config, sessionID string, limit int) (*server.HistoryResponse, error) {
	hist, err := history.New(ctx, cfg.History)
	if err != nil {
		return nil, err
	}
	defer hist.Close()
	if limit <= 0 {
		limit = cfg.History.DefaultLimit
	}
	turns, err := hist.List(ctx, sessionID, limit)
	if err != nil {
		return nil, err
	}
	return &server.HistoryResponse{SessionID: sessionID, Conversations: turns, Count: len(turns)}, nil
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL; empty inspects the configured store")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}

	var resp *server.StatusResponse
	if *serverURL != "" {
		resp = &server.StatusResponse{}
		err = doJSON(http.MethodGet, *serverURL+"/api/status", nil, resp)
	} else {
		cfg, logger := setup(*configPath, false)
		defer logger.Sync()
		ctx := context.Background()
		var store vector.Store
		store, err = vector.NewStore(ctx, cfg.Store, cfg.Embedding.Dimensions, logger)
		if err == nil {
			defer store.Close()
			resp, err = server.BuildStatus(ctx, store, cfg, version)
		}
	}
	if err != nil {
		fatalf("Status failed: %v", err)
	}
	if err := cli.WriteStatus(os.Stdout, resp, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

// doJSON sends body (when non-nil) as JSON and decodes the response into out. Non-2xx
// responses are decoded too, so callers can report partial results, and returned as errors.
func doJSON(method, u string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, u, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	client := &http.Client{Timeout: httpTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = json.Unmarshal(data, out)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// buildQuery joins positional args into one query, so quoting is optional.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// reorderArgs moves flags given after positional arguments to the front, since the flag
// package stops parsing at the first positional.
func reorderArgs(args []string) []string {
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

func ingestExtensions(cfg *config.Config) []string {
	if len(cfg.Watch.Extensions) > 0 {
		return cfg.Watch.Extensions
	}
	return extract.SupportedExtensions()
}

// Components holds initialized services.
type Components struct {
	Embedder     embedding.Embedder
	Store        vector.Store
	History      history.Store
	Indexer      *indexer.Indexer
	Orchestrator *orchestrator.Orchestrator
}

func (c *Components) Close() {
	if c.History != nil {
		_ = c.History.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

// initializeComponents builds every service once. withHistory opens the history store;
// otherwise History is a NopStore.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, withHistory bool) (*Components, error) {
	c := &Components{History: history.NopStore{}}

	embedder, err := embedding.New(cfg.Embedding, cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	c.Embedder = embedder

	store, err := vector.NewStore(ctx, cfg.Store, cfg.Embedding.Dimensions, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	c.Store = store
	if embedder.Dimensions() != store.Dimensions() {
		c.Close()
		return nil, apperr.ConfigurationError("initializeComponents",
			"embedder produces %d dimensions but the store holds %d", embedder.Dimensions(), store.Dimensions())
	}

	if withHistory {
		hist, err := history.New(ctx, cfg.History)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize history: %w", err)
		}
		c.History = hist
	}

	chunker, err := indexer.NewChunker(cfg.Chunking.ChunkSize, cfg.Chunking.OverlapOrDefault())
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Indexer = indexer.NewIndexer(store, embedder, chunker,
		indexer.WithExtractor(extract.NewExtractor()),
		indexer.WithConcurrency(cfg.Ingest.Concurrency),
		indexer.WithLogger(logger),
	)

	client := llm.NewOpenAIClient(cfg.LLM, llm.WithLogger(logger))
	c.Orchestrator = orchestrator.New(
		intent.NewClassifier(client, intent.WithLogger(logger)),
		retrieval.NewRetriever(embedder, store, cfg.Retrieval.TopK, retrieval.WithLogger(logger)),
		generator.NewGenerator(client, generator.WithLogger(logger)),
		orchestrator.WithTopK(cfg.Retrieval.TopK),
		orchestrator.WithLogger(logger),
	)

	logger.Info("components initialized",
		zap.String("store", cfg.Store.Type),
		zap.Int("dimensions", store.Dimensions()),
		zap.String("chat_model", client.Model()),
	)
	return c, nil
}

func printUsage() {
	fmt.Println(`citetalk - conversational RAG backend

Usage:
  citetalk server [flags]                   Start the HTTP API (and directory watcher)
  citetalk ingest [flags] <path>...         Ingest files or directories
  citetalk ask [flags] <query>              Answer a single query
  citetalk history [flags] <session-id>     Show a session's conversation
  citetalk status [flags]                   Show store and configuration status
  citetalk version                          Show version
  citetalk help                             Show this help

Common Flags:
  --config string    Config file path (default: ./config.yaml; built-in defaults when missing)
  --server string    Server URL, e.g. http://localhost:8000. Empty uses local components.
  --output string    Output format: text or json (default: text)

Server Flags:
  --debug            Enable debug logging

Ask Flags:
  --session string   Session id (default: a new session)
  --debug            Enable debug logging

History Flags:
  --limit int        Number of most recent turns (default from config)

Environment:
  OPENAI_API_KEY, OPENAI_BASE_URL, OPENAI_MODEL, OPENAI_EMBEDDING_MODEL,
  CHUNK_SIZE, CHUNK_OVERLAP, RETRIEVAL_TOP_K, HOST, PORT, DEBUG, REDIS_URL
  (also read from .env)

Examples:
  citetalk server
  citetalk ingest ./docs
  citetalk ingest --server http://localhost:8000 report.pdf notes.md
  citetalk ask what does the report say about revenue
  citetalk ask --session 1b4e... --output json "and last year?"
  citetalk history 1b4e...
  citetalk status --output json`)
}
