// Package voice resolves voice tokens for speech synthesis. A token is
// either the name of a built-in voice or a path to a custom voice file
// on disk; the resolved value stays opaque to the renderer.
package voice

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultVoice is used when no voice is configured.
const DefaultVoice = "alba"

// Kind distinguishes bundled voices from user-supplied voice files.
type Kind string

const (
	KindBuiltin Kind = "built-in"
	KindCustom  Kind = "custom"
)

// Voice is a resolved voice selection. Token is the value handed to
// the renderer: the built-in name, or the absolute path of a custom
// voice file.
type Voice struct {
	Name        string
	Description string
	Kind        Kind
	Token       string
}

// builtins in presentation order.
var builtinNames = []string{
	"alba",
	"marius",
	"javert",
	"jean",
	"fantine",
	"cosette",
	"eponine",
	"azelma",
}

var builtinDescriptions = map[string]string{
	"alba":    "American Male",
	"marius":  "American Male",
	"javert":  "American Male",
	"jean":    "American Male",
	"fantine": "British Female",
	"cosette": "American Female",
	"eponine": "British Female",
	"azelma":  "American Female",
}

// Builtins returns the bundled voices in presentation order.
func Builtins() []Voice {
	voices := make([]Voice, 0, len(builtinNames))
	for _, name := range builtinNames {
		voices = append(voices, Voice{
			Name:        name,
			Description: builtinDescriptions[name],
			Kind:        KindBuiltin,
			Token:       name,
		})
	}
	return voices
}

// IsBuiltin reports whether name is a bundled voice.
func IsBuiltin(name string) bool {
	_, ok := builtinDescriptions[strings.ToLower(name)]
	return ok
}

// Resolve turns a user-supplied token into a Voice. An empty token
// picks the default voice; a built-in name matches case-insensitively;
// anything else must be a readable file on disk.
func Resolve(token string) (Voice, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		token = DefaultVoice
	}

	if lower := strings.ToLower(token); IsBuiltin(lower) {
		return Voice{
			Name:        lower,
			Description: builtinDescriptions[lower],
			Kind:        KindBuiltin,
			Token:       lower,
		}, nil
	}

	info, err := os.Stat(token)
	if err != nil || info.IsDir() {
		return Voice{}, fmt.Errorf("voice: %q is neither a built-in voice nor a voice file", token)
	}
	abs, err := filepath.Abs(token)
	if err != nil {
		return Voice{}, fmt.Errorf("voice: resolving %q: %w", token, err)
	}
	name := strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
	return Voice{
		Name:        name,
		Description: "Custom Voice",
		Kind:        KindCustom,
		Token:       abs,
	}, nil
}

// ScanDir lists custom voice files in dir, sorted by name. Hidden
// files and subdirectories are skipped; a missing directory is not an
// error.
func ScanDir(dir string) ([]Voice, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("voice: reading %s: %w", dir, err)
	}

	var voices []Voice
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		voices = append(voices, Voice{
			Name:        name,
			Description: "Custom Voice",
			Kind:        KindCustom,
			Token:       filepath.Join(dir, entry.Name()),
		})
	}
	sort.Slice(voices, func(i, j int) bool { return voices[i].Name < voices[j].Name })
	return voices, nil
}

// Available combines the built-in voices with any custom voices found
// in dir. An empty dir lists only the builtins.
func Available(dir string) ([]Voice, error) {
	voices := Builtins()
	if dir == "" {
		return voices, nil
	}
	custom, err := ScanDir(dir)
	if err != nil {
		return nil, err
	}
	return append(voices, custom...), nil
}
