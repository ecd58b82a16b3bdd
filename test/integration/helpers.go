//go:build integration

package integration

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// TestConfig holds configuration for integration tests.
type TestConfig struct {
	LoginURL   string
	Username   string
	Password   string
	UserAgent  string
	UAPassword string
	RetsPath   string
	Verbose    bool
}

// LoadTestConfig loads configuration from environment variables.
func LoadTestConfig() *TestConfig {
	return &TestConfig{
		LoginURL:   os.Getenv("RETS_LOGIN_URL"),
		Username:   os.Getenv("RETS_USERNAME"),
		Password:   os.Getenv("RETS_PASSWORD"),
		UserAgent:  os.Getenv("RETS_USER_AGENT"),
		UAPassword: os.Getenv("RETS_UA_PASSWORD"),
		RetsPath:   getRetsPath(),
		Verbose:    os.Getenv("RETS_VERBOSE") == "true",
	}
}

// getRetsPath determines the path to the rets binary.
func getRetsPath() string {
	if path := os.Getenv("RETS_BINARY_PATH"); path != "" {
		return path
	}

	candidates := []string{
		"../../rets",
		"./rets",
		"../rets",
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return "rets"
}

// SkipIfMissingConfig skips the test when no server is configured.
func (config *TestConfig) SkipIfMissingConfig(t *testing.T) {
	t.Helper()

	if config.LoginURL == "" {
		t.Skip("RETS_LOGIN_URL not set, skipping integration test")
	}
}

// SkipIfMissingBinary skips the test when the rets binary is not built.
func (config *TestConfig) SkipIfMissingBinary(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath(config.RetsPath); err != nil {
		t.Skipf("rets binary not found at %s, skipping integration test", config.RetsPath)
	}
}

// CommandRunner runs rets commands against an isolated home directory.
type CommandRunner struct {
	config *TestConfig
	home   string
	t      *testing.T
}

// NewCommandRunner creates a new command runner.
func NewCommandRunner(config *TestConfig, t *testing.T) *CommandRunner {
	t.Helper()

	return &CommandRunner{
		config: config,
		home:   t.TempDir(),
		t:      t,
	}
}

// ConfigFile is the config file every command uses.
func (runner *CommandRunner) ConfigFile() string {
	return filepath.Join(runner.home, ".rets", "config.yml")
}

// Run executes a rets command and returns its output. Credentials are
// passed through the environment.
func (runner *CommandRunner) Run(args ...string) (string, string, error) {
	args = append([]string{"--config", runner.ConfigFile()}, args...)

	// #nosec G204
	cmd := exec.Command(runner.config.RetsPath, args...)
	cmd.Env = append(os.Environ(),
		"HOME="+runner.home,
		"RETS_LOGIN_URL="+runner.config.LoginURL,
		"RETS_USERNAME="+runner.config.Username,
		"RETS_PASSWORD="+runner.config.Password,
		"RETS_USER_AGENT="+runner.config.UserAgent,
		"RETS_UA_PASSWORD="+runner.config.UAPassword,
	)

	var stdoutBuf, stderrBuf bytes.Buffer

	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf
	cmd.Stdin = strings.NewReader("")

	if runner.config.Verbose {
		runner.t.Logf("Running: %s %s", runner.config.RetsPath, strings.Join(args, " "))
	}

	err := cmd.Run()

	if runner.config.Verbose && err != nil {
		runner.t.Logf("Command failed: %v\nStdout: %s\nStderr: %s", err, stdoutBuf.String(), stderrBuf.String())
	}

	return stdoutBuf.String(), stderrBuf.String(), err
}

// AssertJSONOutput verifies command output looks like JSON.
func AssertJSONOutput(t *testing.T, output string) {
	t.Helper()

	output = strings.TrimSpace(output)
	if !strings.HasPrefix(output, "{") && !strings.HasPrefix(output, "[") {
		t.Errorf("Output does not appear to be JSON: %s", output)
	}
}
