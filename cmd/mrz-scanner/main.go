package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/mrz-scanner/internal/engine"
	"github.com/zombor/mrz-scanner/internal/engine/gemini"
	"github.com/zombor/mrz-scanner/internal/engine/ollama"
	"github.com/zombor/mrz-scanner/internal/engine/tesseract"
	"github.com/zombor/mrz-scanner/internal/history"
	"github.com/zombor/mrz-scanner/internal/mrz"
	"github.com/zombor/mrz-scanner/internal/scanner"
	"github.com/zombor/mrz-scanner/internal/web"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

type closer interface {
	Close() error
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("mrz-scanner")
	var (
		port          = fs.IntLong("port", 8080, "HTTP server port")
		dbPath        = fs.StringLong("db", "mrz-scanner.db", "Database file path")
		framesPath    = fs.StringLong("frames", "./frames", "Captured-frame storage directory")
		engineType    = fs.StringLong("engine", "gemini", "Recognition engine: 'gemini', 'ollama', or 'tesseract'")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL     = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, qwen2-vl)")
		tessLang      = fs.StringLong("tesseract-lang", "eng", "Tesseract language/traineddata name")
		license       = fs.StringLong("license", "", "Recognition engine license (empty uses the built-in trial)")
		templatePath  = fs.StringLong("template", "", "Capture template settings file")
		docTypes      = fs.StringLong("doc-types", "", "Comma-separated enabled document types: td1,td2,passport (empty enables all)")
		soundEnabled  = fs.BoolLong("sound", "Enable the audible capture cue")
		authUser      = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass      = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion   = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("MRZ_SCANNER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Initialize database
	slog.Info("Initializing database...")
	db, err := history.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize recognition engine
	var router engine.Router
	switch *engineType {
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini recognizer...", "model", *geminiModel)
		router, err = gemini.New(apiKey, *geminiModel)
	case "ollama":
		slog.Info("Initializing Ollama recognizer...", "url", *ollamaURL, "model", *ollamaModel)
		router, err = ollama.New(*ollamaURL, *ollamaModel)
	case "tesseract":
		slog.Info("Initializing Tesseract recognizer...", "language", *tessLang)
		router, err = tesseract.New(*tessLang)
	default:
		slog.Error("Invalid engine type", "type", *engineType, "valid", "gemini, ollama, or tesseract")
		os.Exit(1)
	}
	if err != nil {
		slog.Error("Failed to initialize recognition engine", "error", err)
		os.Exit(1)
	}
	if c, ok := router.(closer); ok {
		defer c.Close()
	}

	// Initialize frame storage
	slog.Info("Initializing frame storage...")
	frames, err := history.NewLocalStorage(*framesPath)
	if err != nil {
		slog.Error("Failed to initialize frame storage", "error", err)
		os.Exit(1)
	}

	cfg := scanner.Config{
		License:      *license,
		TemplatePath: *templatePath,
		DocTypes:     parseDocTypes(*docTypes),
		SoundEnabled: *soundEnabled,
	}

	// Upload-only deployment: no camera, headless view surface.
	host := scanner.NewHost(cfg, nil, router, scanner.HeadlessViewPort{})
	historyService := history.NewService(db, frames)

	basicAuth := web.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := web.NewServer(host, historyService, basicAuth)

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "mode", host.Modes().Mode())
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}

func parseDocTypes(raw string) []mrz.DocumentType {
	if raw == "" {
		return nil
	}
	var types []mrz.DocumentType
	for _, part := range strings.Split(raw, ",") {
		types = append(types, mrz.DocumentType(strings.TrimSpace(strings.ToLower(part))))
	}
	return types
}
