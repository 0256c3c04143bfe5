// Package deps verifies the external programs a conversion run shells
// out to before any work starts, so a missing binary surfaces as one
// clear preflight message instead of a mid-run failure.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	shellwords "github.com/mattn/go-shellwords"

	"talespin/internal/config"
)

// Requirement defines an external dependency talespin relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements derives the external binary list from configuration:
// the TTS renderer command and ffmpeg for audiobook stitching.
func Requirements(cfg *config.Config) []Requirement {
	reqs := []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Stitches chapter audio into the audiobook container",
		},
	}
	if binary := commandBinary(cfg.TTS.Command); binary != "" {
		reqs = append(reqs, Requirement{
			Name:        "TTS renderer",
			Command:     binary,
			Description: "External speech synthesis command (tts.command)",
		})
	}
	return reqs
}

// commandBinary extracts the executable from a shell-quoted command line.
func commandBinary(command string) string {
	command = strings.TrimSpace(command)
	if command == "" {
		return ""
	}
	argv, err := shellwords.NewParser().Parse(command)
	if err != nil || len(argv) == 0 {
		// Let preflight report the raw string rather than hiding it.
		return command
	}
	return argv[0]
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Check runs the configured requirements and returns an error naming
// every missing required binary.
func Check(cfg *config.Config) error {
	var missing []string
	for _, status := range CheckBinaries(Requirements(cfg)) {
		if !status.Available && !status.Optional {
			missing = append(missing, fmt.Sprintf("%s (%s)", status.Name, status.Detail))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required dependencies: %s", strings.Join(missing, "; "))
	}
	return nil
}
