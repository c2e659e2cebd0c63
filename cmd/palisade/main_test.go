package main

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/mattjoyce/palisade/internal/config"
)

func captureOutputWithExitCode(t *testing.T, run func() int) (int, string, string) {
	t.Helper()

	oldStdout := os.Stdout
	oldStderr := os.Stderr

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe stdout failed: %v", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe stderr failed: %v", err)
	}

	os.Stdout = stdoutW
	os.Stderr = stderrW

	code := run()

	_ = stdoutW.Close()
	_ = stderrW.Close()
	os.Stdout = oldStdout
	os.Stderr = oldStderr

	stdoutBytes, _ := io.ReadAll(stdoutR)
	stderrBytes, _ := io.ReadAll(stderrR)

	_ = stdoutR.Close()
	_ = stderrR.Close()

	return code, string(stdoutBytes), string(stderrBytes)
}

func setVersionMetadataForTest(t *testing.T, v, commit, built string) {
	t.Helper()

	origVersion := version
	origCommit := gitCommit
	origBuildDate := buildDate

	version = v
	gitCommit = commit
	buildDate = built

	t.Cleanup(func() {
		version = origVersion
		gitCommit = origCommit
		buildDate = origBuildDate
	})
}

const fixtureAPIKey = "mk_fixture_key_123"
const fixtureSecret = "whsec_dGVzdC1zaWduaW5nLXNlY3JldA=="

// writeConfigFixture lays down a minimal valid config. Extra lines are
// appended to the webhook block, which is kept last for that reason.
func writeConfigFixture(t *testing.T, dir string, extra string) string {
	t.Helper()

	configYAML := `
service:
  log_level: info
platform:
  base_url: https://api.example.com/v1
  api_key: ` + fixtureAPIKey + `
storage:
  path: ` + filepath.Join(dir, "palisade.db") + `
webhook:
  secret: ` + fixtureSecret + `
` + extra
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	return configPath
}

func TestRunCLIRootVersionFlag(t *testing.T) {
	setVersionMetadataForTest(t, "1.2.3", "abc1234567890", "2026-02-12T11:30:00Z")

	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runCLI([]string{"--version"})
	})
	if code != 0 {
		t.Fatalf("runCLI() code = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "palisade 1.2.3") {
		t.Fatalf("stdout missing semantic version: %s", stdout)
	}
	if !strings.Contains(stdout, "commit: abc123456789") {
		t.Fatalf("stdout missing short commit: %s", stdout)
	}
	if !strings.Contains(stdout, "built_at: 2026-02-12T11:30:00Z") {
		t.Fatalf("stdout missing build time: %s", stdout)
	}
}

func TestRunVersionJSONOutputIncludesMetadata(t *testing.T) {
	setVersionMetadataForTest(t, "2.0.0-rc.1", "aabbccddeeff001122334455", "2026-02-12T11:30:00-05:00")

	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runVersion([]string{"--json"})
	})
	if code != 0 {
		t.Fatalf("runVersion() code = %d, stderr: %s", code, stderr)
	}

	var out struct {
		Version   string `json:"version"`
		Commit    string `json:"commit"`
		BuildTime string `json:"build_time"`
	}
	if err := json.Unmarshal([]byte(stdout), &out); err != nil {
		t.Fatalf("failed to parse version JSON: %v\noutput=%s", err, stdout)
	}

	if out.Version != "2.0.0-rc.1" {
		t.Fatalf("version = %q, want %q", out.Version, "2.0.0-rc.1")
	}
	if out.Commit != "aabbccddeeff" {
		t.Fatalf("commit = %q, want %q", out.Commit, "aabbccddeeff")
	}
	if out.BuildTime != "2026-02-12T16:30:00Z" {
		t.Fatalf("build_time = %q, want %q", out.BuildTime, "2026-02-12T16:30:00Z")
	}
}

func TestPrintUsageUsesActionTerminology(t *testing.T) {
	_, stdout, _ := captureOutputWithExitCode(t, func() int {
		printUsage()
		return 0
	})
	if !strings.Contains(stdout, "palisade <noun> <action> [flags]") {
		t.Fatalf("usage missing action terminology: %s", stdout)
	}
}

func TestRunCLIUnknownCommand(t *testing.T) {
	code, _, stderr := captureOutputWithExitCode(t, func() int {
		return runCLI([]string{"frobnicate"})
	})
	if code != 1 {
		t.Fatalf("runCLI() code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "Unknown command: frobnicate") {
		t.Fatalf("stderr missing unknown command message: %s", stderr)
	}
}

func TestRunSystemNounActionHelp(t *testing.T) {
	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runSystemNoun([]string{"status", "--help"})
	})
	if code != 0 {
		t.Fatalf("runSystemNoun() code = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "Usage: palisade system status") {
		t.Fatalf("stdout missing status action help usage: %s", stdout)
	}
}

func TestRunConfigNounActionHelp(t *testing.T) {
	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runConfigNoun([]string{"check", "--help"})
	})
	if code != 0 {
		t.Fatalf("runConfigNoun() code = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "Usage: palisade config check") {
		t.Fatalf("stdout missing action help usage: %s", stdout)
	}
}

func TestRunConfigShowRedactsCredentials(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeConfigFixture(t, tmpDir, "")

	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runConfigShow([]string{"--config", configPath})
	})
	if code != 0 {
		t.Fatalf("runConfigShow() code = %d, stderr: %s", code, stderr)
	}
	if strings.Contains(stdout, fixtureAPIKey) || strings.Contains(stdout, fixtureSecret) {
		t.Fatalf("credentials leaked into redacted output: %s", stdout)
	}
	if !strings.Contains(stdout, redactedPlaceholder) {
		t.Fatalf("stdout missing redaction placeholder: %s", stdout)
	}
}

func TestRunConfigShowRevealShowsCredentials(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeConfigFixture(t, tmpDir, "")

	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runConfigShow([]string{"--config", configPath, "--reveal"})
	})
	if code != 0 {
		t.Fatalf("runConfigShow() code = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, fixtureAPIKey) {
		t.Fatalf("reveal output missing api key: %s", stdout)
	}
}

func TestRunConfigShowJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeConfigFixture(t, tmpDir, "")

	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runConfigShow([]string{"--config", configPath, "--json"})
	})
	if code != 0 {
		t.Fatalf("runConfigShow() code = %d, stderr: %s", code, stderr)
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
		t.Fatalf("failed to parse JSON output: %v\noutput=%s", err, stdout)
	}

	webhookSection, ok := doc["webhook"].(map[string]any)
	if !ok {
		t.Fatalf("missing webhook section: %s", stdout)
	}
	if webhookSection["path"] != "/webhooks/miru" {
		t.Fatalf("expected default webhook path in output, got %v", webhookSection["path"])
	}
	if webhookSection["secret"] != redactedPlaceholder {
		t.Fatalf("expected redacted secret, got %v", webhookSection["secret"])
	}
}

func TestRunConfigCheckValidFixture(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeConfigFixture(t, tmpDir, "")

	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runConfigCheck([]string{"--config", configPath})
	})
	if code != 0 {
		t.Fatalf("runConfigCheck() code = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "Configuration valid.") {
		t.Fatalf("stdout missing valid summary: %s", stdout)
	}
}

func TestRunConfigCheckStrictTreatsWarningsAsErrors(t *testing.T) {
	tmpDir := t.TempDir()
	// Dedupe always draws a warning from the doctor.
	configPath := writeConfigFixture(t, tmpDir, "  dedupe: true\n")

	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runConfigCheck([]string{"--config", configPath, "--strict"})
	})
	if code != 2 {
		t.Fatalf("runConfigCheck() code = %d, want 2; stdout=%s stderr=%s", code, stdout, stderr)
	}
	if !strings.Contains(stdout, "WARN") {
		t.Fatalf("stdout missing warning line: %s", stdout)
	}
}

func TestRunConfigLockVerboseDryRun(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeConfigFixture(t, tmpDir, "")

	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runConfigLock([]string{"--config", configPath, "-v", "--dry-run"})
	})
	if code != 0 {
		t.Fatalf("runConfigLock() code = %d, stderr: %s", code, stderr)
	}

	if !strings.Contains(stdout, "Processing directory") {
		t.Fatalf("stdout missing verbose directory progress: %s", stdout)
	}
	hashPattern := regexp.MustCompile(`HASH config\.yaml: [a-f0-9]{64}`)
	if !hashPattern.MatchString(stdout) {
		t.Fatalf("stdout missing valid hash output: %s", stdout)
	}
	if !strings.Contains(stdout, "DRY-RUN .checksums:") {
		t.Fatalf("stdout missing dry-run line: %s", stdout)
	}
	if !strings.Contains(stdout, "Dry run completed") {
		t.Fatalf("stdout missing dry-run summary: %s", stdout)
	}

	if _, err := os.Stat(filepath.Join(tmpDir, ".checksums")); !os.IsNotExist(err) {
		t.Fatal(".checksums should not be written in dry-run mode")
	}
}

func TestRunConfigLockWritesChecksumsAndGuardsLoads(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeConfigFixture(t, tmpDir, "")

	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runConfigLock([]string{"--config", configPath, "--verbose"})
	})
	if code != 0 {
		t.Fatalf("runConfigLock() code = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "WROTE .checksums:") {
		t.Fatalf("stdout missing wrote checksums line: %s", stdout)
	}
	if !strings.Contains(stdout, "Successfully locked configuration") {
		t.Fatalf("stdout missing success summary: %s", stdout)
	}

	if _, err := os.Stat(filepath.Join(tmpDir, ".checksums")); err != nil {
		t.Fatalf("expected .checksums to be written: %v", err)
	}

	if _, err := config.Load(configPath); err != nil {
		t.Fatalf("config should load after lock: %v", err)
	}

	// Out-of-band edits must be refused until the config is locked again.
	raw, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatal(err)
	}
	tampered := strings.Replace(string(raw), "log_level: info", "log_level: debug", 1)
	if err := os.WriteFile(configPath, []byte(tampered), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := config.Load(configPath); err == nil {
		t.Fatal("config load should fail after tampering")
	}
}

func TestRunSystemStatusJSONHealthy(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeConfigFixture(t, tmpDir, "")

	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runSystemStatus([]string{"--config", configPath, "--json"})
	})
	if code != 0 {
		t.Fatalf("runSystemStatus() code = %d, stderr: %s", code, stderr)
	}

	var report struct {
		Healthy bool `json:"healthy"`
		Checks  []struct {
			Name string `json:"name"`
			OK   bool   `json:"ok"`
		} `json:"checks"`
	}
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("failed to parse JSON status output: %v\noutput=%s", err, stdout)
	}
	if !report.Healthy {
		t.Fatalf("expected healthy=true, got false; output=%s", stdout)
	}
	if len(report.Checks) != 4 {
		t.Fatalf("expected 4 checks, got %d", len(report.Checks))
	}
}

func TestRunSystemStatusConfigLoadFailure(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	code, stdout, _ := captureOutputWithExitCode(t, func() int {
		return runSystemStatus([]string{"--config", configPath})
	})
	if code == 0 {
		t.Fatalf("runSystemStatus() should fail for invalid config; stdout=%s", stdout)
	}
	if !strings.Contains(stdout, "config_load: FAIL") {
		t.Fatalf("expected config_load failure in output; stdout=%s", stdout)
	}
	if !strings.Contains(stdout, "storage_db: FAIL") || !strings.Contains(stdout, "pid_lock: FAIL") {
		t.Fatalf("expected dependent checks to fail when config load fails; stdout=%s", stdout)
	}
}

func TestRunSystemStatusDetectsActivePIDLock(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeConfigFixture(t, tmpDir, "")

	cfg, err := loadConfigForTool(configPath)
	if err != nil {
		t.Fatalf("loadConfigForTool: %v", err)
	}
	lockPath := getPIDLockPath(cfg)
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(lockPath, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runSystemStatus([]string{"--config", configPath, "--json"})
	})
	if code == 0 {
		t.Fatalf("runSystemStatus() should fail when active pid lock exists; stderr=%s stdout=%s", stderr, stdout)
	}

	var report struct {
		Healthy bool `json:"healthy"`
		Checks  []struct {
			Name      string `json:"name"`
			OK        bool   `json:"ok"`
			ActivePID int    `json:"active_pid"`
		} `json:"checks"`
	}
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("failed to parse JSON status output: %v\noutput=%s", err, stdout)
	}
	if report.Healthy {
		t.Fatalf("expected healthy=false when active lock exists; output=%s", stdout)
	}

	foundPIDCheck := false
	for _, c := range report.Checks {
		if c.Name == "pid_lock" {
			foundPIDCheck = true
			if c.OK {
				t.Fatalf("expected pid_lock check to fail when active pid exists; output=%s", stdout)
			}
			if c.ActivePID != os.Getpid() {
				t.Fatalf("active_pid = %d, want %d", c.ActivePID, os.Getpid())
			}
		}
	}
	if !foundPIDCheck {
		t.Fatalf("pid_lock check missing from report: %s", stdout)
	}
}

func TestRunSystemStatusIgnoresStaleLock(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeConfigFixture(t, tmpDir, "")

	cfg, err := loadConfigForTool(configPath)
	if err != nil {
		t.Fatalf("loadConfigForTool: %v", err)
	}
	lockPath := getPIDLockPath(cfg)
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		t.Fatal(err)
	}
	// A PID far beyond pid_max never refers to a live process.
	if err := os.WriteFile(lockPath, []byte("99999999\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runSystemStatus([]string{"--config", configPath})
	})
	if code != 0 {
		t.Fatalf("runSystemStatus() code = %d; stale lock should not fail; stdout=%s stderr=%s", code, stdout, stderr)
	}
	if !strings.Contains(stdout, "Status: healthy") {
		t.Fatalf("expected healthy status with stale lock; stdout=%s", stdout)
	}
}

func TestGetPIDLockPath(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Path = "/var/lib/palisade/palisade.db"

	if got := getPIDLockPath(cfg); got != "/var/lib/palisade/palisade.pid" {
		t.Fatalf("getPIDLockPath() = %q, want %q", got, "/var/lib/palisade/palisade.pid")
	}
}
