package stitch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"talespin/internal/book"
)

func sampleResults(workDir string) []book.AudioResult {
	return []book.AudioResult{
		{ChapterIndex: 1, Title: "Chapter 1", Path: filepath.Join(workDir, "ch_0001.wav"), DurationMS: 60000},
		{ChapterIndex: 2, Title: "Chapter 2; The Return", Path: filepath.Join(workDir, "ch_0002.wav"), DurationMS: 45500},
	}
}

func TestWriteConcatList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "files.txt")

	results := []book.AudioResult{
		{Path: "/tmp/run/ch_0001.wav"},
		{Path: "/tmp/o'brien/ch_0002.wav"},
	}
	if err := writeConcatList(path, results); err != nil {
		t.Fatalf("writeConcatList: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %v", lines)
	}
	if lines[0] != "file '/tmp/run/ch_0001.wav'" {
		t.Fatalf("line 0 = %q", lines[0])
	}
	if !strings.Contains(lines[1], `'\''`) {
		t.Fatalf("quote not escaped: %q", lines[1])
	}
}

func TestWriteMetadataFileChapterMarkers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metadata.txt")

	meta := book.Metadata{Title: "A Tale", Author: "J. Writer"}
	if err := writeMetadataFile(path, sampleResults(dir), meta); err != nil {
		t.Fatalf("writeMetadataFile: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(content)

	if !strings.HasPrefix(text, ";FFMETADATA1\n") {
		t.Fatalf("missing header: %q", text)
	}
	if !strings.Contains(text, "title=A Tale\n") || !strings.Contains(text, "artist=J. Writer\n") {
		t.Fatalf("missing global tags: %q", text)
	}
	// Cumulative markers: chapter 2 starts where chapter 1 ends.
	if !strings.Contains(text, "START=0\nEND=60000\n") {
		t.Fatalf("first chapter marker wrong: %q", text)
	}
	if !strings.Contains(text, "START=60000\nEND=105500\n") {
		t.Fatalf("second chapter marker wrong: %q", text)
	}
	if !strings.Contains(text, `title=Chapter 2\; The Return`) {
		t.Fatalf("reserved character not escaped: %q", text)
	}
}

func TestEscapeMeta(t *testing.T) {
	got := escapeMeta(`a=b;c#d\e`)
	want := `a\=b\;c\#d\\e`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestBuildArgs(t *testing.T) {
	opts := Options{Format: "m4b", Bitrate: "64k", Output: "/out/book.m4b"}
	args := buildArgs("/w/files.txt", "/w/metadata.txt", "/w/cover.jpg", opts)
	joined := strings.Join(args, " ")

	for _, want := range []string{
		"-f concat -safe 0 -i /w/files.txt",
		"-i /w/metadata.txt",
		"-i /w/cover.jpg",
		"-map_metadata 1",
		"-map 0:a -map 2:v",
		"-disposition:v:0 attached_pic",
		"-c:a aac",
		"-b:a 64k",
		"-movflags +faststart",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args missing %q: %v", want, args)
		}
	}
	if args[len(args)-1] != "/out/book.m4b" {
		t.Fatalf("output must be last arg: %v", args)
	}
}

func TestBuildArgsMP3NoCover(t *testing.T) {
	opts := Options{Format: "mp3", Bitrate: "128k", Output: "/out/book.mp3"}
	args := buildArgs("/w/files.txt", "/w/metadata.txt", "", opts)
	joined := strings.Join(args, " ")

	if !strings.Contains(joined, "-c:a libmp3lame") {
		t.Fatalf("expected mp3 encoder: %v", args)
	}
	if strings.Contains(joined, "attached_pic") || strings.Contains(joined, "faststart") {
		t.Fatalf("mp3 args carry container-specific flags: %v", args)
	}
}

func TestOutputPathSanitizes(t *testing.T) {
	got := OutputPath("/out", `A Book: "Subtitle"?`, "m4b")
	if strings.ContainsAny(filepath.Base(got), `:"?`) {
		t.Fatalf("unsanitized output name: %q", got)
	}
	if filepath.Ext(got) != ".m4b" {
		t.Fatalf("wrong extension: %q", got)
	}

	if got := OutputPath("/out", "   ", "mp3"); filepath.Base(got) != "audiobook.mp3" {
		t.Fatalf("empty title fallback: %q", got)
	}
}

func TestRunWithStubFFmpeg(t *testing.T) {
	workDir := t.TempDir()
	outDir := t.TempDir()

	stub := filepath.Join(t.TempDir(), "ffmpeg")
	script := "#!/bin/sh\n# capture args, create the last argument as output\nargs=\"$@\"\nfor last; do :; done\necho \"$args\" > \"" + filepath.Join(workDir, "args.txt") + "\"\ntouch \"$last\"\n"
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	output := filepath.Join(outDir, "book.m4b")
	opts := Options{
		FFmpeg:     stub,
		WorkDir:    workDir,
		Output:     output,
		Format:     "m4b",
		Bitrate:    "64k",
		Meta:       book.Metadata{Title: "A Tale", CoverImage: []byte("img"), CoverMimeType: "image/jpeg"},
		EmbedCover: true,
	}

	if err := Run(context.Background(), sampleResults(workDir), opts); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(output); err != nil {
		t.Fatalf("output not created: %v", err)
	}
	if _, err := os.Stat(filepath.Join(workDir, "files.txt")); err != nil {
		t.Fatalf("concat list missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(workDir, "cover.jpg")); err != nil {
		t.Fatalf("cover not written: %v", err)
	}

	args, err := os.ReadFile(filepath.Join(workDir, "args.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(args), "attached_pic") {
		t.Fatalf("cover mapping missing from invocation: %q", args)
	}
}

func TestRunRejectsEmptyResults(t *testing.T) {
	if err := Run(context.Background(), nil, Options{WorkDir: t.TempDir()}); err == nil {
		t.Fatal("expected error for empty result list")
	}
}
