// Package stitch joins rendered chapter audio into a single audiobook
// container with chapter markers, using ffmpeg's concat demuxer and
// FFMETADATA chapter format.
package stitch

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"talespin/internal/book"
	"talespin/internal/logging"
	"talespin/internal/textutil"
)

// Options configures one stitch invocation.
type Options struct {
	// FFmpeg is the binary to execute; empty means "ffmpeg".
	FFmpeg string
	// WorkDir holds the chapter WAV files and receives the concat
	// list, metadata file, and cover image.
	WorkDir string
	// Output is the final audiobook path; its extension must match
	// Format.
	Output string
	// Format is m4b, m4a, or mp3.
	Format string
	// Bitrate is the target audio bitrate, e.g. "64k".
	Bitrate string
	// Meta supplies the global tags and optional cover image.
	Meta book.Metadata
	// EmbedCover attaches Meta.CoverImage when the container allows it.
	EmbedCover bool

	Logger *slog.Logger
}

// OutputPath derives the audiobook filename from the book title.
func OutputPath(outputDir, title, format string) string {
	name := textutil.SanitizeFileName(title)
	if name == "" {
		name = "audiobook"
	}
	return filepath.Join(outputDir, name+"."+format)
}

// Run concatenates results into the output container. Results must be
// in playback order; duration bookkeeping from the render stage drives
// the chapter markers.
func Run(ctx context.Context, results []book.AudioResult, opts Options) error {
	if len(results) == 0 {
		return fmt.Errorf("stitch: no rendered chapters")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	listPath := filepath.Join(opts.WorkDir, "files.txt")
	if err := writeConcatList(listPath, results); err != nil {
		return err
	}
	metaPath := filepath.Join(opts.WorkDir, "metadata.txt")
	if err := writeMetadataFile(metaPath, results, opts.Meta); err != nil {
		return err
	}

	coverPath := ""
	if opts.EmbedCover && supportsCover(opts.Format) && len(opts.Meta.CoverImage) > 0 {
		coverPath = filepath.Join(opts.WorkDir, coverFileName(opts.Meta.CoverMimeType))
		if err := os.WriteFile(coverPath, opts.Meta.CoverImage, 0o644); err != nil {
			return fmt.Errorf("stitch: write cover: %w", err)
		}
	}

	binary := opts.FFmpeg
	if binary == "" {
		binary = "ffmpeg"
	}
	args := buildArgs(listPath, metaPath, coverPath, opts)

	logger.Info("stitching audiobook",
		logging.Int("chapters", len(results)),
		logging.String("output", opts.Output),
		logging.Bool("cover", coverPath != ""),
	)

	cmd := exec.CommandContext(ctx, binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return fmt.Errorf("stitch: ffmpeg failed: %w: %s", err, detail)
		}
		return fmt.Errorf("stitch: ffmpeg failed: %w", err)
	}
	return nil
}

// writeConcatList emits the concat demuxer file list. Single quotes in
// paths use the demuxer's quote-break escape.
func writeConcatList(path string, results []book.AudioResult) error {
	var buf bytes.Buffer
	for _, res := range results {
		escaped := strings.ReplaceAll(res.Path, "'", `'\''`)
		fmt.Fprintf(&buf, "file '%s'\n", escaped)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("stitch: write concat list: %w", err)
	}
	return nil
}

// writeMetadataFile emits FFMETADATA1 global tags plus one cumulative
// chapter marker per result, in milliseconds.
func writeMetadataFile(path string, results []book.AudioResult, meta book.Metadata) error {
	var buf bytes.Buffer
	buf.WriteString(";FFMETADATA1\n")
	if meta.Title != "" {
		fmt.Fprintf(&buf, "title=%s\n", escapeMeta(meta.Title))
		fmt.Fprintf(&buf, "album=%s\n", escapeMeta(meta.Title))
	}
	if meta.Author != "" {
		fmt.Fprintf(&buf, "artist=%s\n", escapeMeta(meta.Author))
	}
	buf.WriteString("genre=Audiobook\n")

	var t int64
	for _, res := range results {
		start, end := t, t+res.DurationMS
		fmt.Fprintf(&buf, "[CHAPTER]\nTIMEBASE=1/1000\nSTART=%d\nEND=%d\ntitle=%s\n", start, end, escapeMeta(res.Title))
		t += res.DurationMS
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("stitch: write metadata: %w", err)
	}
	return nil
}

// escapeMeta escapes the characters the FFMETADATA format reserves.
func escapeMeta(value string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		"=", `\=`,
		";", `\;`,
		"#", `\#`,
		"\n", `\`+"\n",
	)
	return replacer.Replace(value)
}

func buildArgs(listPath, metaPath, coverPath string, opts Options) []string {
	args := []string{
		"-y", "-v", "error",
		"-f", "concat", "-safe", "0", "-i", listPath,
		"-i", metaPath,
	}
	if coverPath != "" {
		args = append(args, "-i", coverPath)
	}
	args = append(args, "-map_metadata", "1")
	if coverPath != "" {
		args = append(args,
			"-map", "0:a", "-map", "2:v",
			"-c:v", "copy",
			"-disposition:v:0", "attached_pic",
		)
	}
	if opts.Format == "mp3" {
		args = append(args, "-c:a", "libmp3lame")
	} else {
		args = append(args, "-c:a", "aac")
	}
	args = append(args, "-b:a", opts.Bitrate)
	if opts.Format == "m4b" || opts.Format == "m4a" {
		args = append(args, "-movflags", "+faststart")
	}
	return append(args, opts.Output)
}

func supportsCover(format string) bool {
	return format == "m4b" || format == "m4a"
}

func coverFileName(mime string) string {
	if strings.Contains(mime, "png") {
		return "cover.png"
	}
	return "cover.jpg"
}
