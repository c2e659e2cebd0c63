package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattjoyce/palisade/internal/api"
	"github.com/mattjoyce/palisade/internal/auth"
	"github.com/mattjoyce/palisade/internal/bridge"
	"github.com/mattjoyce/palisade/internal/config"
	"github.com/mattjoyce/palisade/internal/event"
	"github.com/mattjoyce/palisade/internal/events"
	"github.com/mattjoyce/palisade/internal/ledger"
	"github.com/mattjoyce/palisade/internal/lock"
	"github.com/mattjoyce/palisade/internal/log"
	"github.com/mattjoyce/palisade/internal/platform"
	"github.com/mattjoyce/palisade/internal/storage"
	"github.com/mattjoyce/palisade/internal/tui/watch"
	"github.com/mattjoyce/palisade/internal/validate"
	"github.com/mattjoyce/palisade/internal/webhook"
)

var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(cliArgs []string) int {
	if len(cliArgs) < 1 {
		printUsage()
		return 1
	}

	cmd := cliArgs[0]
	args := cliArgs[1:]

	if cmd == "--version" {
		return runVersion(args)
	}

	switch cmd {
	// --- NOUNS ---
	case "system":
		return runSystemNoun(args)
	case "config":
		return runConfigNoun(args)

	// --- ROOT ALIASES ---
	case "start":
		return runStart(args)
	case "doctor":
		return runConfigCheck(args)
	case "version":
		return runVersion(args)
	case "help", "--help", "-h":
		printUsage()
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		return 1
	}
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func runVersion(args []string) int {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Output version metadata as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "Usage: palisade version [--json]")
		return 1
	}

	info := currentVersionInfo()

	if *jsonOut {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render version JSON: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	fmt.Printf("palisade %s\n", info.Version)
	fmt.Printf("commit: %s\n", info.Commit)
	fmt.Printf("built_at: %s\n", info.BuildTime)
	return 0
}

func currentVersionInfo() versionInfo {
	info := versionInfo{
		Version:   strings.TrimSpace(version),
		Commit:    "unknown",
		BuildTime: "unknown",
	}

	if info.Version == "" {
		info.Version = "0.0.0-dev"
	}

	resolvedCommit := strings.TrimSpace(gitCommit)
	if resolvedCommit == "" || resolvedCommit == "unknown" {
		resolvedCommit = strings.TrimSpace(readBuildSetting("vcs.revision"))
	}
	if resolvedCommit != "" {
		info.Commit = shortenCommit(resolvedCommit)
	}

	resolvedBuildTime := strings.TrimSpace(buildDate)
	if resolvedBuildTime == "" || resolvedBuildTime == "unknown" {
		resolvedBuildTime = strings.TrimSpace(readBuildSetting("vcs.time"))
	}
	if normalizedBuildTime, ok := normalizeBuildTimeUTC(resolvedBuildTime); ok {
		info.BuildTime = normalizedBuildTime
	}

	return info
}

func shortenCommit(commit string) string {
	if len(commit) <= 12 {
		return commit
	}
	return commit[:12]
}

func normalizeBuildTimeUTC(raw string) (string, bool) {
	if raw == "" || raw == "unknown" {
		return "", false
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return "", false
	}

	return t.UTC().Format(time.RFC3339), true
}

func readBuildSetting(key string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == key {
			return setting.Value
		}
	}
	return ""
}

func printUsage() {
	fmt.Print(`palisade - Webhook gateway that validates platform deployments

Usage:
  palisade <noun> <action> [flags]

Core Resources (Nouns):
  system    Gateway lifecycle and health
  config    Configuration and integrity

System Commands:
  system start      Start the gateway in the foreground
  system status     Preflight health checks (config, ledger, PID lock)
  system watch      Real-time delivery monitoring TUI

Config Commands:
  config show       Show the resolved configuration
  config check      Validate configuration (doctor)
  config lock       Authorize current config (update integrity hash)

General:
  --version         Show version information
  version           Show version information
  help              Show this help message

Use 'palisade <noun> help' for resource-specific flags.
`)
}

// --- NOUN DISPATCHERS ---

func runSystemNoun(args []string) int {
	if len(args) < 1 {
		printSystemNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printSystemNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "start":
		if hasHelpFlag(actionArgs) {
			printSystemStartHelp()
			return 0
		}
		return runStart(actionArgs)
	case "status":
		if hasHelpFlag(actionArgs) {
			printSystemStatusHelp()
			return 0
		}
		return runSystemStatus(actionArgs)
	case "watch":
		if hasHelpFlag(actionArgs) {
			printSystemWatchHelp()
			return 0
		}
		return runWatch(actionArgs)
	case "help":
		printSystemNounHelp(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown system action: %s\n", action)
		return 1
	}
}

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		printConfigNounHelp(os.Stderr)
		return 1
	}

	if isHelpToken(args[0]) {
		printConfigNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "show":
		if hasHelpFlag(actionArgs) {
			printConfigShowHelp()
			return 0
		}
		return runConfigShow(actionArgs)
	case "check":
		if hasHelpFlag(actionArgs) {
			printConfigCheckHelp()
			return 0
		}
		return runConfigCheck(actionArgs)
	case "lock":
		if hasHelpFlag(actionArgs) {
			printConfigLockHelp()
			return 0
		}
		return runConfigLock(actionArgs)
	case "help":
		printConfigNounHelp(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", action)
		return 1
	}
}

func isHelpToken(token string) bool {
	return token == "help" || token == "--help" || token == "-h"
}

func hasHelpFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			return true
		}
	}
	return false
}

func printSystemNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: palisade system <action>")
	fmt.Fprintln(w, "Actions: start, status, watch")
}

func printConfigNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: palisade config <action> [flags]")
	fmt.Fprintln(w, "Actions: show, check, lock")
}

func printSystemStartHelp() {
	fmt.Println("Usage: palisade system start [--config PATH]")
	fmt.Println("Start the gateway in the foreground.")
}

func printSystemStatusHelp() {
	fmt.Println("Usage: palisade system status [--config PATH] [--json]")
	fmt.Println("Run preflight health checks (config, delivery ledger, PID lock, signing secret).")
	fmt.Println("")
	fmt.Println("Exit codes:")
	fmt.Println("  0  All checks passed; the gateway is ready to start")
	fmt.Println("  1  One or more checks failed")
}

func printSystemWatchHelp() {
	fmt.Println("Usage: palisade system watch [flags]")
	fmt.Println()
	fmt.Println("Real-time delivery monitoring TUI.")
	fmt.Println("Shows gateway health, recent deliveries, and the live event stream.")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --api-url URL    Admin API URL (default: http://127.0.0.1:9090)")
	fmt.Println("  --api-key KEY    API bearer token (or PALISADE_API_KEY env var)")
	fmt.Println()
	fmt.Println("Keybindings:")
	fmt.Println("  q, Ctrl+C        Quit")
	fmt.Println("  ↑/↓, k/j         Scroll deliveries")
}

func printConfigShowHelp() {
	fmt.Println("Usage: palisade config show [--config PATH] [--json] [--reveal]")
	fmt.Println("Show the resolved configuration. Credentials are redacted unless --reveal is given.")
}

func printConfigCheckHelp() {
	fmt.Println("Usage: palisade config check [--config PATH] [--format human|json] [--strict] [--json]")
	fmt.Println("Validate configuration values and flag risky settings.")
}

func printConfigLockHelp() {
	fmt.Println("Usage: palisade config lock [--config PATH] [-v|--verbose] [--dry-run]")
	fmt.Println("Authorize the current configuration by regenerating its integrity hash.")
}

// --- ACTION IMPLEMENTATIONS ---

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	if *configPath == "" {
		discovered, err := config.DiscoverConfigDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to discover config: %v\n", err)
			return 1
		}
		*configPath = discovered
		fmt.Fprintf(os.Stderr, "Using discovered config: %s\n", *configPath)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	logger := log.WithComponent("main")
	logger.Info("palisade starting", "version", version, "config", *configPath)

	pidLockPath := getPIDLockPath(cfg)
	pidLock, err := lock.AcquirePIDLock(pidLockPath)
	if err != nil {
		logger.Error("failed to acquire PID lock (another instance may be running)", "path", pidLockPath, "error", err)
		return 1
	}
	defer pidLock.Release()
	logger.Info("acquired PID lock", "path", pidLockPath)

	ctx := context.Background()
	db, err := storage.OpenSQLite(ctx, cfg.Storage.Path)
	if err != nil {
		logger.Error("failed to open delivery ledger", "path", cfg.Storage.Path, "error", err)
		return 1
	}
	defer db.Close()
	logger.Info("delivery ledger opened", "path", cfg.Storage.Path)

	led := ledger.New(db)
	hub := events.NewHub(256)

	client := platform.NewClient(cfg.Platform.BaseURL, cfg.Platform.APIKey, cfg.Platform.RequestTimeout)
	engine := validate.NewEngine(nil, nil)

	dispatcher := event.NewDispatcher()
	bridge.New(client, engine, log.WithComponent("bridge")).RegisterHandlers(dispatcher)

	verifier, err := webhook.NewVerifier(cfg.Webhook.Secret, cfg.Webhook.Tolerance)
	if err != nil {
		logger.Error("webhook signing secret rejected", "error", err)
		return 1
	}

	webhookConfig, err := webhook.FromGlobalConfig(cfg.Webhook)
	if err != nil {
		logger.Error("invalid webhook configuration", "error", err)
		return 1
	}

	webhookServer := webhook.New(webhookConfig, verifier, dispatcher, led, hub, log.WithComponent("webhook"))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 2)

	go func() {
		if err := webhookServer.Start(ctx); err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("webhook: %w", err)
		}
	}()

	if cfg.API.Enabled {
		tokens := make([]auth.TokenConfig, 0, len(cfg.API.Auth.Tokens))
		for _, t := range cfg.API.Auth.Tokens {
			tokens = append(tokens, auth.TokenConfig{
				Token:  t.Token,
				Scopes: t.Scopes,
			})
		}
		apiConfig := api.Config{
			Listen: cfg.API.Listen,
			APIKey: cfg.API.Auth.APIKey,
			Tokens: tokens,
		}
		apiServer := api.New(apiConfig, led, hub, log.WithComponent("api"))
		go func() {
			if err := apiServer.Start(ctx); err != nil && err != context.Canceled {
				errCh <- fmt.Errorf("api: %w", err)
			}
		}()
		logger.Info("admin API enabled", "listen", cfg.API.Listen)
	}

	go runLedgerJanitor(ctx, led, cfg.Storage.Retention, log.WithComponent("janitor"))

	logger.Info("palisade running (press Ctrl+C to stop)",
		"listen", webhookConfig.Listen, "path", webhookConfig.Path)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
		cancel()
	case err := <-errCh:
		logger.Error("component failed", "error", err)
		cancel()
		return 1
	}

	logger.Info("palisade stopped")
	return 0
}

// runLedgerJanitor prunes expired delivery rows on an hourly cadence.
func runLedgerJanitor(ctx context.Context, led *ledger.Ledger, retention time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruned, err := led.Prune(ctx, retention)
			if err != nil {
				logger.Error("ledger prune failed", "error", err)
				continue
			}
			if pruned > 0 {
				logger.Info("pruned expired deliveries", "count", pruned, "retention", retention.String())
			}
		}
	}
}

type statusCheck struct {
	Name      string `json:"name"`
	OK        bool   `json:"ok"`
	Detail    string `json:"detail,omitempty"`
	ActivePID int    `json:"active_pid,omitempty"`
}

type statusReport struct {
	Healthy bool          `json:"healthy"`
	Checks  []statusCheck `json:"checks"`
}

// runSystemStatus runs the preflight checks a `system start` depends on:
// loadable config, a writable ledger database, a free PID lock, and a
// well-formed signing secret. It never starts anything.
func runSystemStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	jsonOut := fs.Bool("json", false, "Output status report as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	report := statusReport{Checks: make([]statusCheck, 0, 4)}

	cfg, loadErr := loadConfigForStatus(*configPath)
	if loadErr != nil {
		report.Checks = append(report.Checks, statusCheck{Name: "config_load", OK: false, Detail: loadErr.Error()})
		for _, name := range []string{"storage_db", "pid_lock", "signing_secret"} {
			report.Checks = append(report.Checks, statusCheck{Name: name, OK: false, Detail: "config not loaded"})
		}
	} else {
		report.Checks = append(report.Checks, statusCheck{Name: "config_load", OK: true})
		report.Checks = append(report.Checks, checkStorage(cfg))
		report.Checks = append(report.Checks, checkPIDLock(cfg))
		report.Checks = append(report.Checks, checkSigningSecret(cfg))
	}

	report.Healthy = true
	for _, c := range report.Checks {
		if !c.OK {
			report.Healthy = false
			break
		}
	}

	if *jsonOut {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render status JSON: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
	} else {
		for _, c := range report.Checks {
			if c.OK {
				fmt.Printf("%s: OK\n", c.Name)
				continue
			}
			fmt.Printf("%s: FAIL (%s)\n", c.Name, c.Detail)
		}
		if report.Healthy {
			fmt.Println("Status: healthy")
		} else {
			fmt.Println("Status: unhealthy")
		}
	}

	if !report.Healthy {
		return 1
	}
	return 0
}

func loadConfigForStatus(configPath string) (*config.Config, error) {
	if configPath == "" {
		discovered, err := config.DiscoverConfigDir()
		if err != nil {
			return nil, err
		}
		configPath = discovered
	}
	return config.Load(configPath)
}

func checkStorage(cfg *config.Config) statusCheck {
	db, err := storage.OpenSQLite(context.Background(), cfg.Storage.Path)
	if err != nil {
		return statusCheck{Name: "storage_db", OK: false, Detail: err.Error()}
	}
	_ = db.Close()
	return statusCheck{Name: "storage_db", OK: true}
}

// checkPIDLock reports whether another gateway instance is live. A lock file
// whose PID no longer runs is stale and does not block a start.
func checkPIDLock(cfg *config.Config) statusCheck {
	lockPath := getPIDLockPath(cfg)

	pid, err := lock.ReadPID(lockPath)
	if err != nil {
		if os.IsNotExist(err) {
			return statusCheck{Name: "pid_lock", OK: true}
		}
		return statusCheck{Name: "pid_lock", OK: false, Detail: fmt.Sprintf("unreadable lock file %s: %v", lockPath, err)}
	}

	if processAlive(pid) {
		return statusCheck{
			Name:      "pid_lock",
			OK:        false,
			Detail:    fmt.Sprintf("gateway already running (pid %d)", pid),
			ActivePID: pid,
		}
	}
	return statusCheck{Name: "pid_lock", OK: true, Detail: "stale lock file"}
}

func checkSigningSecret(cfg *config.Config) statusCheck {
	if _, err := webhook.NewVerifier(cfg.Webhook.Secret, cfg.Webhook.Tolerance); err != nil {
		return statusCheck{Name: "signing_secret", OK: false, Detail: err.Error()}
	}
	return statusCheck{Name: "signing_secret", OK: true}
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	apiURL := fs.String("api-url", "http://127.0.0.1:9090", "Admin API URL")
	apiKey := fs.String("api-key", os.Getenv("PALISADE_API_KEY"), "API bearer token")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	if *apiKey == "" {
		fmt.Fprintln(os.Stderr, "Error: API key required. Use --api-key or PALISADE_API_KEY env var.")
		return 1
	}

	m := watch.New(*apiURL, *apiKey)
	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		return 1
	}
	return 0
}

// getPIDLockPath derives the lock path from the ledger database path, so a
// second instance pointed at the same ledger is refused.
func getPIDLockPath(cfg *config.Config) string {
	dbPath := cfg.Storage.Path
	dbDir := filepath.Dir(dbPath)
	dbBase := filepath.Base(dbPath)
	ext := filepath.Ext(dbBase)
	nameWithoutExt := dbBase[:len(dbBase)-len(ext)]
	return filepath.Join(dbDir, nameWithoutExt+".pid")
}
