package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	toml "github.com/pelletier/go-toml/v2"

	"talespin/internal/config"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", base)

	cfgVal := config.Default()
	cfgVal.Paths.LibraryDir = filepath.Join(base, "library")
	cfgVal.Paths.OutputDir = filepath.Join(base, "audiobooks")
	cfgVal.Paths.StagingDir = filepath.Join(base, "staging")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.VoicesDir = filepath.Join(base, "voices")
	cfgVal.TTS.Command = "render-tts --device cpu"

	configPath := filepath.Join(base, "config.toml")
	encoded, err := toml.Marshal(cfgVal)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, encoded, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := os.MkdirAll(cfgVal.Paths.LibraryDir, 0o755); err != nil {
		t.Fatalf("mkdir library: %v", err)
	}

	return &cliTestEnv{baseDir: base, configPath: configPath}
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func writeTestBook(t *testing.T, dir string) string {
	t.Helper()
	body := strings.Repeat("The road wound on through the hills toward the sea. ", 6)
	content := strings.Join([]string{
		"Chapter 1. The Long Road",
		"",
		body,
		"",
		"Chapter 2. The Harbor",
		"",
		body,
	}, "\n")
	path := filepath.Join(dir, "journey.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write book: %v", err)
	}
	return path
}

func TestPresetsListsBuiltins(t *testing.T) {
	out, _, err := runCLI(t, "", "presets")
	if err != nil {
		t.Fatalf("presets: %v", err)
	}
	requireContains(t, out, "content-only")
	requireContains(t, out, "all")
	requireContains(t, out, "none")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	_, _, err = runCLI(t, "", "config", "init", "--path", target)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected already-exists error, got %v", err)
	}
}

func TestChaptersListsExtractedChapters(t *testing.T) {
	env := setupCLITestEnv(t)
	bookPath := writeTestBook(t, env.baseDir)

	out, _, err := runCLI(t, env.configPath, "chapters", bookPath, "--no-filter")
	if err != nil {
		t.Fatalf("chapters: %v", err)
	}
	requireContains(t, out, "The Long Road")
	requireContains(t, out, "The Harbor")
	requireContains(t, out, "chapters kept")
}

func TestChaptersExcludePattern(t *testing.T) {
	env := setupCLITestEnv(t)
	bookPath := writeTestBook(t, env.baseDir)

	out, _, err := runCLI(t, env.configPath, "chapters", bookPath, "--exclude", "Harbor")
	if err != nil {
		t.Fatalf("chapters: %v", err)
	}
	requireContains(t, out, "1 of 2 chapters kept")
}

func TestScanFindsLibraryBooks(t *testing.T) {
	env := setupCLITestEnv(t)
	library := filepath.Join(env.baseDir, "library")
	for _, name := range []string{"one.epub", "two.fb2", "skip.pdf"} {
		if err := os.WriteFile(filepath.Join(library, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	out, _, err := runCLI(t, env.configPath, "scan")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, out, "one.epub")
	requireContains(t, out, "two.fb2")
	if strings.Contains(out, "skip.pdf") {
		t.Fatalf("unsupported format listed:\n%s", out)
	}

	out, _, err = runCLI(t, env.configPath, "scan", "--count")
	if err != nil {
		t.Fatalf("scan --count: %v", err)
	}
	if strings.TrimSpace(out) != "2" {
		t.Fatalf("expected count 2, got %q", out)
	}
}

func TestVoicesListsBuiltinsAndCustom(t *testing.T) {
	env := setupCLITestEnv(t)
	voicesDir := filepath.Join(env.baseDir, "voices")
	if err := os.MkdirAll(voicesDir, 0o755); err != nil {
		t.Fatalf("mkdir voices: %v", err)
	}
	if err := os.WriteFile(filepath.Join(voicesDir, "narrator.pt"), []byte("weights"), 0o644); err != nil {
		t.Fatalf("write voice: %v", err)
	}

	out, _, err := runCLI(t, env.configPath, "voices")
	if err != nil {
		t.Fatalf("voices: %v", err)
	}
	requireContains(t, out, "alba *")
	requireContains(t, out, "narrator")
	requireContains(t, out, "custom")
}

func TestConvertRejectsUnknownFormat(t *testing.T) {
	env := setupCLITestEnv(t)
	bookPath := writeTestBook(t, env.baseDir)

	_, _, err := runCLI(t, env.configPath, "convert", bookPath, "--format", "ogg")
	if err == nil || !strings.Contains(err.Error(), "unsupported output format") {
		t.Fatalf("expected format error, got %v", err)
	}
}
