package deps

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"talespin/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}

	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}

	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
}

func TestRequirementsExtractsRendererBinary(t *testing.T) {
	cfg := config.Default()
	cfg.TTS.Command = `render-tts --model "large v2" --device cpu`

	reqs := Requirements(&cfg)
	if len(reqs) != 2 {
		t.Fatalf("expected ffmpeg + renderer, got %d", len(reqs))
	}
	if reqs[0].Command != "ffmpeg" {
		t.Fatalf("first requirement = %q", reqs[0].Command)
	}
	if reqs[1].Command != "render-tts" {
		t.Fatalf("renderer binary = %q", reqs[1].Command)
	}
}

func TestCheckReportsMissing(t *testing.T) {
	t.Setenv("PATH", "")
	cfg := config.Default()
	cfg.TTS.Command = "no-such-renderer"

	err := Check(&cfg)
	if err == nil {
		t.Fatal("expected missing dependency error")
	}
	if !strings.Contains(err.Error(), "FFmpeg") || !strings.Contains(err.Error(), "TTS renderer") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckFFmpegSidecar(t *testing.T) {
	tmp := t.TempDir()
	rendererName := executableName("render-tts")
	ffmpegName := executableName("ffmpeg")
	rendererPath := filepath.Join(tmp, rendererName)
	ffmpegPath := filepath.Join(tmp, ffmpegName)
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(rendererPath, script, 0o755); err != nil {
		t.Fatalf("write renderer stub: %v", err)
	}
	if err := os.WriteFile(ffmpegPath, script, 0o755); err != nil {
		t.Fatalf("write ffmpeg sidecar: %v", err)
	}

	status := CheckFFmpeg(rendererPath)
	if !status.Available {
		t.Fatalf("expected ffmpeg sidecar to be available, got detail %q", status.Detail)
	}
	if status.Command != ffmpegPath {
		t.Fatalf("expected ffmpeg command %q, got %q", ffmpegPath, status.Command)
	}
}

func TestCheckFFmpegPathFallback(t *testing.T) {
	tmp := t.TempDir()
	rendererPath := filepath.Join(tmp, executableName("render-tts"))
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(rendererPath, script, 0o755); err != nil {
		t.Fatalf("write renderer stub: %v", err)
	}

	binDir := filepath.Join(tmp, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}
	ffmpegPath := filepath.Join(binDir, executableName("ffmpeg"))
	if err := os.WriteFile(ffmpegPath, script, 0o755); err != nil {
		t.Fatalf("write ffmpeg stub: %v", err)
	}
	oldPath := os.Getenv("PATH")
	newPath := binDir
	if oldPath != "" {
		newPath = binDir + string(os.PathListSeparator) + oldPath
	}
	t.Setenv("PATH", newPath)

	status := CheckFFmpeg(rendererPath)
	if !status.Available {
		t.Fatalf("expected ffmpeg fallback to be available, got detail %q", status.Detail)
	}
	if status.Command != ffmpegPath {
		t.Fatalf("expected ffmpeg command %q, got %q", ffmpegPath, status.Command)
	}
}

func TestCheckFFmpegNotFound(t *testing.T) {
	tmp := t.TempDir()
	rendererPath := filepath.Join(tmp, executableName("render-tts"))
	t.Setenv("PATH", "")
	status := CheckFFmpeg(rendererPath)
	if status.Available {
		t.Fatal("expected ffmpeg resolution to fail")
	}
	if status.Detail == "" {
		t.Fatal("expected detail message when ffmpeg is unavailable")
	}
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}
