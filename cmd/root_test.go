package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

// executeCommand runs root with args and returns combined output.
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	_, err = root.ExecuteC()
	return buf.String(), err
}

// isolate points every config, profile and state directory at temp dirs
// and resets flag variables left over from earlier executions. It returns
// the project directory.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("AURASYNC_USER_EMAIL", "dev@example.com")

	flagLogLevel, flagLogFile, flagDir = "", "", ""
	runStdin, runTUI, runNoWatch = false, false, false
	emitWrite, emitDetail = false, ""
	statusFormat, statusClear = "text", false
	rootCmd.SetIn(os.Stdin)
	return t.TempDir()
}

func writeProjectConfig(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, ".aurasync.yaml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write project config: %v", err)
	}
}

// TestProjectConfigIsLoaded verifies that -C selects the project whose
// config file applies and that the profile fills missing credentials.
func TestProjectConfigIsLoaded(t *testing.T) {
	dir := isolate(t)
	writeProjectConfig(t, dir, "project_name: Demo\nendpoint: http://example.invalid/hb\n")

	if _, err := executeCommand(rootCmd, "tags", "-C", dir); err != nil {
		t.Fatalf("tags: %v", err)
	}
	got := GetConfig()
	if got.ProjectName != "Demo" {
		t.Errorf("ProjectName = %q, want Demo", got.ProjectName)
	}
	if got.Endpoint != "http://example.invalid/hb" {
		t.Errorf("Endpoint = %q", got.Endpoint)
	}
	if GetProfile() != nil {
		t.Error("no profile should be loaded in a fresh config dir")
	}
}

// TestBrokenProjectConfigFails verifies that a malformed project file is
// reported instead of silently ignored.
func TestBrokenProjectConfigFails(t *testing.T) {
	dir := isolate(t)
	writeProjectConfig(t, dir, "debounce: [not a duration\n")

	if _, err := executeCommand(rootCmd, "tags", "-C", dir); err == nil {
		t.Fatal("expected an error for a malformed project config")
	}
}

// TestLogFileFlag verifies that --log-file receives the logs.
func TestLogFileFlag(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(t.TempDir(), "logs", "aurasync.log")

	if _, err := executeCommand(rootCmd, "emit", "play_mode_entered", "--log-level", "debug", "--log-file", path, "-C", dir); err != nil {
		t.Fatalf("emit: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !bytes.Contains(data, []byte("heartbeat")) {
		t.Errorf("log file has no heartbeat entries:\n%s", data)
	}
}
