// Package main is the folio CLI entry point.
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

	"go.uber.org/zap"

	"github.com/mkrz/folio/internal/cli"
	"github.com/mkrz/folio/internal/config"
	"github.com/mkrz/folio/internal/extract"
	"github.com/mkrz/folio/internal/models"
	"github.com/mkrz/folio/internal/paginate"
	"github.com/mkrz/folio/internal/server"
	"github.com/mkrz/folio/internal/session"
	"github.com/mkrz/folio/internal/storage"
	"github.com/mkrz/folio/internal/watcher"
	"github.com/mkrz/folio/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/folio/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so that "folio server" from the project dir uses the project's
// config (including debug). Returns the config and the path that was actually
// loaded.
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
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "open":
		runOpen()
	case "show":
		runShow()
	case "next":
		runNav(models.ActionAdvance)
	case "prev":
		runNav(models.ActionRetreat)
	case "reset":
		runNav(models.ActionReset)
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("folio version %s\n", version)
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
	debug := fs.Bool("debug", false, "enable debug logging (page turns, inbox events, etc.)")
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

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	var inbox *watcher.Watcher
	if cfg.Watch.Directory != "" {
		watchOpts := []watcher.Option{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		inbox = watcher.New(
			cfg.Watch.Directory,
			cfg.Watch.Extensions,
			func(user, path string) {
				if err := openFromInbox(components, user, path); err != nil {
					logger.Warn("inbox open failed", zap.String("user", user), zap.String("path", path), zap.Error(err))
				}
			},
			func(user string) {
				logger.Debug("inbox file removed", zap.String("user", user))
			},
			watchOpts...,
		)
		if err := inbox.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start inbox watcher", zap.Error(err))
		}
		inbox.SyncExisting()
	}

	srv := server.NewServer(
		components.Sessions,
		components.Extractor,
		components.Store,
		components.Library,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	if inbox != nil {
		inbox.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// openFromInbox opens a book dropped into the inbox directory and keeps a
// library copy so the session survives restarts.
func openFromInbox(c *Components, user, path string) error {
	src, err := c.Extractor.ExtractFile(path)
	if err != nil {
		return err
	}
	if _, err := c.Sessions.Open(context.Background(), user, src); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("reopen inbox file: %w", err)
	}
	defer f.Close()
	if _, err := c.Library.Save(user, f); err != nil {
		return fmt.Errorf("save library copy: %w", err)
	}
	return nil
}

func runOpen() {
	fs := flag.NewFlagSet("open", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage when server is not running)")
	user := fs.String("user", "", "user to open the book for")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if *user == "" || fs.NArg() < 1 {
		fmt.Println("Usage: folio open [flags] --user <user> <file.epub>")
		os.Exit(1)
	}
	path := fs.Arg(0)
	format := mustParseFormat(*outputFormat)

	if *serverURL != "" {
		// Use the HTTP API when the server is running (avoids an SQLite
		// lock conflict with the server process).
		view, err := uploadViaHTTP(*serverURL, *user, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Open failed: %v\n", err)
			os.Exit(1)
		}
		writeView(view, format)
		return
	}

	components := mustInitialize(*configPath)
	defer components.Close()

	src, err := components.Extractor.ExtractFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Open failed: %v\n", err)
		os.Exit(1)
	}
	view, err := components.Sessions.Open(context.Background(), *user, src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Open failed: %v\n", err)
		os.Exit(1)
	}
	f, err := os.Open(path)
	if err == nil {
		if _, saveErr := components.Library.Save(*user, f); saveErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: library copy not saved: %v\n", saveErr)
		}
		f.Close()
	}
	writeView(view, format)
}

func runShow() {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage when server is not running)")
	user := fs.String("user", "", "user whose page to show")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if *user == "" {
		fmt.Println("Usage: folio show [flags] --user <user>")
		os.Exit(1)
	}
	format := mustParseFormat(*outputFormat)

	if *serverURL != "" {
		view, err := pageViaHTTP(*serverURL, *user)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Show failed: %v\n", err)
			os.Exit(1)
		}
		writeView(view, format)
		return
	}

	components := mustInitialize(*configPath)
	defer components.Close()

	if err := restoreFromLibrary(components, *user); err != nil {
		fmt.Fprintf(os.Stderr, "Show failed: %v\n", err)
		os.Exit(1)
	}
	view, err := components.Sessions.Render(context.Background(), *user)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Show failed: %v\n", err)
		os.Exit(1)
	}
	writeView(view, format)
}

func runNav(action models.Action) {
	fs := flag.NewFlagSet(string(action), flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage when server is not running)")
	user := fs.String("user", "", "user whose session to navigate")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if *user == "" {
		fmt.Printf("Usage: folio %s [flags] --user <user>\n", navCommandName(action))
		os.Exit(1)
	}
	format := mustParseFormat(*outputFormat)

	if *serverURL != "" {
		view, err := navViaHTTP(*serverURL, *user, action)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Navigation failed: %v\n", err)
			os.Exit(1)
		}
		if action == models.ActionReset {
			fmt.Printf("Session reset for %s\n", *user)
			return
		}
		writeView(view, format)
		return
	}

	components := mustInitialize(*configPath)
	defer components.Close()

	if action == models.ActionReset {
		if err := components.Sessions.Reset(context.Background(), *user); err != nil {
			fmt.Fprintf(os.Stderr, "Reset failed: %v\n", err)
			os.Exit(1)
		}
		if err := components.Library.Remove(*user); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: library copy not removed: %v\n", err)
		}
		fmt.Printf("Session reset for %s\n", *user)
		return
	}

	if err := restoreFromLibrary(components, *user); err != nil {
		fmt.Fprintf(os.Stderr, "Navigation failed: %v\n", err)
		os.Exit(1)
	}
	view, err := components.Sessions.Navigate(context.Background(), *user, action)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Navigation failed: %v\n", err)
		os.Exit(1)
	}
	writeView(view, format)
}

func navCommandName(action models.Action) string {
	switch action {
	case models.ActionAdvance:
		return "next"
	case models.ActionRetreat:
		return "prev"
	default:
		return "reset"
	}
}

// restoreFromLibrary rebuilds the user's session from the stored book copy.
// Direct-mode commands run in a fresh process, so there is never an in-memory
// session to reuse.
func restoreFromLibrary(c *Components, user string) error {
	if !c.Library.Has(user) {
		return fmt.Errorf("no book loaded for %s; open one with 'folio open'", user)
	}
	src, err := c.Extractor.ExtractFile(c.Library.Path(user))
	if err != nil {
		return fmt.Errorf("rebuild session: %w", err)
	}
	if _, err := c.Sessions.Restore(context.Background(), user, src); err != nil {
		return fmt.Errorf("rebuild session: %w", err)
	}
	return nil
}

// statusConfigResponse holds configuration info returned by status.
type statusConfigResponse struct {
	PageBudget        int    `json:"page_budget,omitempty"`
	ParagraphsPerPage int    `json:"paragraphs_per_page,omitempty"`
	DatabasePath      string `json:"database_path,omitempty"`
	LibraryPath       string `json:"library_path,omitempty"`
}

// statusResponse is the shape of the GET /api/v1/status response.
type statusResponse struct {
	Cursors        int64                 `json:"cursors"`
	ActiveSessions int                   `json:"active_sessions"`
	DiskUsageBytes int64                 `json:"disk_usage_bytes"`
	Config         *statusConfigResponse `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger, cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		cursorCount, err := components.Store.Count(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count cursors failed: %v\n", err)
			os.Exit(1)
		}
		status = statusResponse{
			Cursors:        cursorCount,
			ActiveSessions: components.Sessions.ActiveSessions(),
			DiskUsageBytes: storage.DiskUsage(cfg.Storage.DatabasePath, cfg.Storage.LibraryPath),
			Config: &statusConfigResponse{
				PageBudget:        cfg.Reader.PageBudget,
				ParagraphsPerPage: cfg.Reader.ParagraphsPerPage,
				DatabasePath:      cfg.Storage.DatabasePath,
				LibraryPath:       cfg.Storage.LibraryPath,
			},
		}
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
		fmt.Printf("cursors:           %d   # reading positions on record\n", status.Cursors)
		fmt.Printf("active_sessions:   %d   # users with a book loaded\n", status.ActiveSessions)
		fmt.Printf("disk_usage_bytes:  %d   # database + library on disk\n", status.DiskUsageBytes)
		if status.Config != nil {
			fmt.Println()
			fmt.Println("# configuration")
			if status.Config.PageBudget > 0 {
				fmt.Printf("page_budget:         %d\n", status.Config.PageBudget)
			}
			if status.Config.ParagraphsPerPage > 0 {
				fmt.Printf("paragraphs_per_page: %d\n", status.Config.ParagraphsPerPage)
			}
			if status.Config.DatabasePath != "" {
				fmt.Printf("database_path:       %s\n", status.Config.DatabasePath)
			}
			if status.Config.LibraryPath != "" {
				fmt.Printf("library_path:        %s\n", status.Config.LibraryPath)
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func mustParseFormat(s string) cli.OutputFormat {
	format, err := cli.ParseFormat(s)
	if err != nil {
		fmt.Printf("Unknown output format %q; use text or json\n", s)
		os.Exit(1)
	}
	return format
}

func writeView(view *models.RenderView, format cli.OutputFormat) {
	if err := cli.WriteRenderView(os.Stdout, view, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func uploadViaHTTP(serverURL, user, path string) (*models.RenderView, error) {
	if !extract.SupportedExtension(path) {
		return nil, fmt.Errorf("unsupported file extension: %s", filepath.Ext(path))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	resp, err := http.Post(serverURL+"/api/v1/users/"+user+"/book", "application/epub+zip", f)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return nil, httpError(resp)
	}
	return decodeViewResponse(resp)
}

func navViaHTTP(serverURL, user string, action models.Action) (*models.RenderView, error) {
	body, err := json.Marshal(map[string]string{"action": string(action)})
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/users/"+user+"/nav", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, httpError(resp)
	}
	if action == models.ActionReset {
		return nil, nil
	}
	return decodeViewResponse(resp)
}

func pageViaHTTP(serverURL, user string) (*models.RenderView, error) {
	resp, err := http.Get(serverURL + "/api/v1/users/" + user + "/page")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, httpError(resp)
	}
	return decodeViewResponse(resp)
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, httpError(resp)
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

// httpError turns a non-success API response into a readable error, with a
// friendlier message for the missing-session case.
func httpError(resp *http.Response) error {
	b, _ := io.ReadAll(resp.Body)
	var payload struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(b, &payload); err == nil {
		if payload.Status == "session_missing" {
			return fmt.Errorf("no book loaded; open one with 'folio open'")
		}
		if payload.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, payload.Error)
		}
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
}

func decodeViewResponse(resp *http.Response) (*models.RenderView, error) {
	var view models.RenderView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &view, nil
}

// Components holds initialized services.
type Components struct {
	Store     *storage.SQLiteStore
	Library   *storage.Library
	Extractor *extract.Extractor
	Sessions  *session.Manager
}

func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cursor store: %w", err)
	}
	library, err := storage.NewLibrary(cfg.Storage.LibraryPath)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize library: %w", err)
	}

	extractOpts := []extract.ExtractorOption{}
	sessionOpts := []session.ManagerOption{}
	if debug && logger != nil {
		extractOpts = append(extractOpts, extract.WithLogger(logger))
		sessionOpts = append(sessionOpts, session.WithLogger(logger))
	}
	paginator := paginate.New(cfg.Reader.PageBudget, cfg.Reader.ParagraphsPerPage)
	sessions := session.NewManager(store, paginator, sessionOpts...)

	return &Components{
		Store:     store,
		Library:   library,
		Extractor: extract.NewExtractor(extractOpts...),
		Sessions:  sessions,
	}, nil
}

// mustInitialize loads config and builds components for direct-storage mode,
// exiting on failure.
func mustInitialize(configPath string) *Components {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	return components
}

func printUsage() {
	fmt.Println(`folio - Paged EPUB reading service

Usage:
  folio server [flags]                 Start the HTTP server
  folio open [flags] --user <u> <file> Open a book for a user (page 1)
  folio show [flags] --user <u>        Show the current page
  folio next [flags] --user <u>        Turn to the next page
  folio prev [flags] --user <u>        Turn to the previous page
  folio reset [flags] --user <u>       Drop the session and reading position
  folio status [flags]                 Show session/storage status
  folio version                        Show version
  folio help                           Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/folio/config.yaml)
  --debug            Enable debug logging (page turns, inbox events, etc.)

Reading Flags (open, show, next, prev, reset):
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage when the server is not running.
  --user string      The user whose session to act on (required)
  --output string    Output format: text or json (default: text)

Status Flags:
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080)
  --output string    Output format: text or json (default: text)`)
}
