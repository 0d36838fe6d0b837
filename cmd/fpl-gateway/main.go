// ABOUTME: Entry point for the FPL chat gateway server
// ABOUTME: Serves the streaming chat API and offers tools, health and token commands

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/curphey/fpl-sub000/internal/analytics"
	"github.com/curphey/fpl-sub000/internal/auth"
	"github.com/curphey/fpl-sub000/internal/builtins"
	"github.com/curphey/fpl-sub000/internal/config"
	"github.com/curphey/fpl-sub000/internal/gateway"
	"github.com/curphey/fpl-sub000/internal/logging"
	"github.com/curphey/fpl-sub000/internal/packs"
)

// version is set at build time.
var version = "dev"

const banner = `
  __       _                     _
 / _|_ __ | |       __ _  __ _| |_ _____      ____ _ _   _
| |_| '_ \| |_____ / _' |/ _' | __/ _ \ \ /\ / / _' | | | |
|  _| |_) | |_____| (_| | (_| | ||  __/\ V  V / (_| | |_| |
|_| | .__/|_|      \__, |\__,_|\__\___| \_/\_/ \__,_|\__, |
    |_|            |___/                             |___/
`

// getConfigPath returns the path to the gateway config file.
// Priority: FPL_CONFIG env var > XDG_CONFIG_HOME/fpl/gateway.yaml > ~/.config/fpl/gateway.yaml
func getConfigPath() string {
	if envPath := os.Getenv("FPL_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "gateway.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "fpl", "gateway.yaml")
}

// loadConfig loads the config file, falling back to defaults when it does not exist.
func loadConfig(path string) (*config.Config, bool, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		cfg := config.Default()
		return cfg, false, cfg.Validate()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, false, fmt.Errorf("loading config: %w", err)
	}
	return cfg, true, nil
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Println("Usage: fpl-gateway <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve                          Start the gateway server")
		fmt.Println("  tools                          List the registered tools")
		fmt.Println("  health                         Check gateway health")
		fmt.Println("  token SUBJECT [MANAGER_ID]     Issue a bearer token")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "tools":
		err = runTools()
	case "health":
		err = runHealth(ctx)
	case "token":
		err = runToken(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, fromFile, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Logging, os.Stdout)

	// Startup info
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	if fromFile {
		fmt.Printf("Config:    %s\n", configPath)
	} else {
		fmt.Print("Config:    ")
		yellow.Println("defaults (no config file)")
	}
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("FPL API:   %s\n", cfg.FPL.BaseURL)
	if cfg.Metrics.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Metrics:   %s\n", cfg.Metrics.Path)
	}
	if cfg.MCP.Enabled {
		green.Print("    ▶ ")
		fmt.Println("MCP:       /mcp")
	}
	fmt.Println()

	logger.Info("starting fpl-gateway",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
	)

	gw, err := gateway.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	return gw.Run(ctx)
}

// runTools prints the tool catalogue without starting a server.
func runTools() error {
	registry := packs.NewRegistry(nil)
	if err := builtins.RegisterAll(registry, analytics.New(), nil); err != nil {
		return err
	}

	bold := color.New(color.Bold)
	gray := color.New(color.FgHiBlack)
	for _, p := range registry.Packs() {
		bold.Println(p.ID)
		for _, name := range p.ToolNames {
			tool := registry.Get(name)
			fmt.Printf("  %-26s ", name)
			gray.Println(tool.Definition.Description)
		}
	}
	return nil
}

func runHealth(ctx context.Context) error {
	cfg, _, err := loadConfig(getConfigPath())
	if err != nil {
		return err
	}

	// Make HTTP request to health endpoint with context
	url := fmt.Sprintf("http://%s/health", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

// runToken issues a 30-day bearer token signed with auth.jwt_secret.
func runToken(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: fpl-gateway token SUBJECT [MANAGER_ID]")
	}

	managerID := 0
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return fmt.Errorf("manager id must be a positive integer, got %q", args[1])
		}
		managerID = n
	}

	cfg, _, err := loadConfig(getConfigPath())
	if err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is not configured")
	}

	token, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret)).Generate(args[0], managerID, 30*24*time.Hour)
	if err != nil {
		return fmt.Errorf("signing token: %w", err)
	}

	fmt.Println(token)
	return nil
}
