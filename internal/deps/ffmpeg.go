package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// CheckFFmpeg reports the ffmpeg binary stitching will execute.
//
// Bundled TTS renderer distributions often ship an ffmpeg binary next
// to the renderer executable; that copy wins over PATH so stitching
// uses the same build the renderer was tested against.
func CheckFFmpeg(rendererCommand string) Status {
	result := Status{
		Name:        "FFmpeg",
		Description: "Stitches chapter audio into the audiobook container",
	}

	rendererBinary := commandBinary(strings.TrimSpace(rendererCommand))
	if rendererBinary != "" {
		if resolved, err := exec.LookPath(rendererBinary); err == nil {
			if candidate, ok := sidecarCandidate(resolved); ok {
				if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
					result.Command = candidate
					result.Available = true
					return result
				}
			}
		}
	}

	ffmpegName := "ffmpeg"
	if ffmpegPath, err := exec.LookPath(ffmpegName); err == nil {
		result.Command = ffmpegPath
		result.Available = true
		return result
	}

	result.Command = ffmpegName
	result.Available = false
	result.Detail = fmt.Sprintf("binary %q not found", ffmpegName)
	return result
}

func sidecarCandidate(rendererPath string) (string, bool) {
	if rendererPath == "" {
		return "", false
	}
	dir := filepath.Dir(rendererPath)
	name := "ffmpeg"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(dir, name), true
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
