// Package main is the Latent-FS CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/latentfs/internal/cli"
	"github.com/hyperjump/latentfs/internal/cluster"
	"github.com/hyperjump/latentfs/internal/config"
	"github.com/hyperjump/latentfs/internal/embedding"
	"github.com/hyperjump/latentfs/internal/models"
	"github.com/hyperjump/latentfs/internal/naming"
	"github.com/hyperjump/latentfs/internal/seed"
	"github.com/hyperjump/latentfs/internal/server"
	"github.com/hyperjump/latentfs/internal/storage"
	"github.com/hyperjump/latentfs/internal/watcher"
	"github.com/hyperjump/latentfs/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/latentfs/config.yaml"
	defaultServerURL  = "http://localhost:9999"
)

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used instead. Returns the config and the path actually loaded.
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
	// .env carries OPENAI_API_KEY in development; missing file is fine.
	_ = godotenv.Load()

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
	case "clusters":
		runClusters()
	case "documents":
		runDocuments()
	case "re-embed":
		runReEmbed()
	case "seed":
		runSeed()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("latentfs version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := components.Store.Rehydrate(ctx); err != nil {
		logger.Fatal("Failed to rehydrate from storage", zap.Error(err))
	}

	var inbox *watcher.Inbox
	if len(cfg.Watch.Directories) > 0 {
		inbox = watcher.NewInbox(
			cfg.Watch.Directories,
			cfg.Watch.Extensions,
			components.Store,
			watcher.WithLogger(logger),
		)
		if err := inbox.Start(ctx); err != nil {
			logger.Fatal("Failed to start inbox watcher", zap.Error(err))
		}
		defer inbox.Stop()
	}

	srv := server.NewServer(components.Store, components.Storage, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	_ = fs.Parse(os.Args[2:])

	texts := fs.Args()
	if len(texts) == 0 {
		fmt.Println("Usage: latentfs ingest [flags] <text> [text...]")
		fmt.Println("       echo \"some text\" | latentfs ingest -")
		os.Exit(1)
	}
	if len(texts) == 1 && texts[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read stdin: %v\n", err)
			os.Exit(1)
		}
		texts = []string{string(data)}
	}

	var resp models.IngestResponse
	if err := postJSON(*serverURL+"/api/v1/ingest", models.IngestRequest{Texts: texts}, &resp); err != nil {
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Ingested %d document(s)\n", resp.Count)
	for _, id := range resp.DocumentIDs {
		fmt.Println(id)
	}
}

func runClusters() {
	fs := flag.NewFlagSet("clusters", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var view models.ClusterResponse
	if err := getJSON(*serverURL+"/api/v1/cluster", &view); err != nil {
		fmt.Fprintf(os.Stderr, "Cluster view failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteClusterView(os.Stdout, &view, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runDocuments() {
	fs := flag.NewFlagSet("documents", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var resp models.DocumentResponse
	if err := getJSON(*serverURL+"/api/v1/documents", &resp); err != nil {
		fmt.Fprintf(os.Stderr, "Documents failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteDocuments(os.Stdout, &resp, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runReEmbed() {
	fs := flag.NewFlagSet("re-embed", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 2 {
		fmt.Println("Usage: latentfs re-embed [flags] <document-id> <target-folder-id>")
		os.Exit(1)
	}
	req := models.ReEmbedRequest{
		DocumentID:     fs.Arg(0),
		TargetFolderID: fs.Arg(1),
	}

	var resp models.ReEmbedResponse
	if err := postJSON(*serverURL+"/api/v1/re-embed", req, &resp); err != nil {
		fmt.Fprintf(os.Stderr, "Re-embed failed: %v\n", err)
		os.Exit(1)
	}
	if resp.NewClusterID == req.TargetFolderID {
		fmt.Printf("Document %s is now in folder %s\n", req.DocumentID, resp.NewClusterID)
	} else {
		fmt.Printf("Document %s was nudged toward %s but landed in %s\n",
			req.DocumentID, req.TargetFolderID, resp.NewClusterID)
	}
}

func runSeed() {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	_ = fs.Parse(os.Args[2:])

	var resp models.IngestResponse
	if err := postJSON(*serverURL+"/api/v1/ingest", models.IngestRequest{Texts: seed.Corpus()}, &resp); err != nil {
		fmt.Fprintf(os.Stderr, "Seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Seeded %d sample document(s)\n", resp.Count)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status map[string]interface{}
	if err := getJSON(*serverURL+"/api/v1/status", &status); err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("documents:         %v\n", status["documents"])
		fmt.Printf("clusters:          %v\n", status["clusters"])
		fmt.Printf("snapshot_version:  %v\n", status["snapshot_version"])
		if v, ok := status["disk_usage_bytes"]; ok {
			fmt.Printf("disk_usage_bytes:  %v\n", v)
		}
		if cfg, ok := status["config"].(map[string]interface{}); ok {
			fmt.Println()
			fmt.Println("# configuration")
			for _, key := range []string{"embedding_provider", "embedding_dimensions", "target_clusters", "alpha", "database_path"} {
				if v, ok := cfg[key]; ok {
					fmt.Printf("%-20s %v\n", key+":", v)
				}
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func postJSON(url string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func getJSON(url string, out interface{}) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Components holds initialized services.
type Components struct {
	Storage  storage.Storage
	Embedder embedding.Embedder
	Store    *cluster.Store
}

func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	if dir := filepath.Dir(cfg.Storage.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	var embedder embedding.Embedder
	if cfg.Embedding.Provider == "openai" && apiKey != "" {
		embedder, err = embedding.NewOpenAIEmbedder(
			apiKey,
			cfg.Embedding.Model,
			cfg.Embedding.Dimensions,
			cfg.Embedding.CacheSize,
			cfg.Embedding.Timeout(),
		)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
	} else {
		if cfg.Embedding.Provider == "openai" {
			logger.Warn("OPENAI_API_KEY not set, using mock embedder")
		}
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	}

	storeOpts := []cluster.Option{
		cluster.WithLogger(logger),
		cluster.WithNamingSampleSize(cfg.Naming.SampleSize),
	}
	if cfg.Naming.EnabledOrDefault() && apiKey != "" {
		namer, err := naming.NewOpenAINamer(apiKey, cfg.Naming.Model, cfg.Naming.Timeout())
		if err != nil {
			_ = embedder.Close()
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize namer: %w", err)
		}
		storeOpts = append(storeOpts, cluster.WithNamer(namer))
	}

	clusterStore, err := cluster.NewStore(store, embedder, &cfg.Cluster, storeOpts...)
	if err != nil {
		_ = embedder.Close()
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize cluster store: %w", err)
	}

	return &Components{
		Storage:  store,
		Embedder: embedder,
		Store:    clusterStore,
	}, nil
}

func printUsage() {
	fmt.Println(`latentfs - Semantic folders over a document embedding space

Usage:
  latentfs server [flags]                        Start the HTTP server
  latentfs ingest [flags] <text> [text...]       Ingest documents (use "-" to read stdin)
  latentfs clusters [flags]                      Show the current folder view
  latentfs documents [flags]                     List stored documents
  latentfs re-embed [flags] <doc-id> <folder-id> Nudge a document toward a folder
  latentfs seed [flags]                          Ingest the built-in sample corpus
  latentfs status [flags]                        Show server status
  latentfs version                               Show version
  latentfs help                                  Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/latentfs/config.yaml)
  --debug            Enable debug logging

Client Flags (ingest, clusters, documents, re-embed, seed, status):
  --server string    Server URL (default: http://localhost:9999)
  --output string    Output format: text or json (clusters, documents, status)

Examples:
  latentfs server
  latentfs seed
  latentfs clusters
  latentfs ingest "notes from the meeting about the launch window"
  latentfs re-embed 1b4e28ba-2fa1-11d2-883f-0016d3cca427 folder-uuid
  latentfs status --output json`)
}
