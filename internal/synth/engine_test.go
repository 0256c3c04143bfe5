package synth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"talespin/internal/book"
)

const testSampleRate = 8000

// stubPCM returns ms milliseconds of silent 16-bit mono PCM.
func stubPCM(ms int) PCM {
	data := make([]byte, testSampleRate*ms/1000*2)
	return PCM{Data: data, SampleRate: testSampleRate, Channels: 1}
}

func okRender(context.Context, string, string, string) (PCM, error) {
	return stubPCM(1200), nil
}

func testChapter(index int, title string, paragraphs ...string) book.Chapter {
	return book.Chapter{Index: index, Title: title, Paragraphs: paragraphs, TocIndex: index - 1}
}

func newTestEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	if opts.Workers == 0 {
		opts.Workers = 2
	}
	if opts.WorkDir == "" {
		opts.WorkDir = t.TempDir()
	}
	eng, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return eng
}

func TestEngineValidatesOptions(t *testing.T) {
	if _, err := New(Options{Workers: 0, Render: okRender, WorkDir: t.TempDir()}); err == nil {
		t.Fatal("expected error for zero workers")
	}
	if _, err := New(Options{Workers: 1, WorkDir: t.TempDir()}); err == nil {
		t.Fatal("expected error for missing render function")
	}
	if _, err := New(Options{Workers: 1, Render: okRender}); err == nil {
		t.Fatal("expected error for missing work directory")
	}
	if _, err := New(Options{Workers: 1, Render: okRender, WorkDir: filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Fatal("expected error for nonexistent work directory")
	}
}

func TestEngineRendersChaptersInIndexOrder(t *testing.T) {
	workDir := t.TempDir()

	// Stagger render latency so completion order differs from index
	// order; results must still come back sorted.
	render := func(ctx context.Context, title, chunk, voice string) (PCM, error) {
		if strings.Contains(title, "One") {
			time.Sleep(30 * time.Millisecond)
		}
		return stubPCM(1500), nil
	}

	eng := newTestEngine(t, Options{Workers: 2, Render: render, WorkDir: workDir})
	chapters := []book.Chapter{
		testChapter(1, "Chapter One", "Some opening prose for the first chapter."),
		testChapter(2, "Chapter Two", "The second chapter continues the story."),
		testChapter(3, "Chapter Three", "And the third chapter wraps things up."),
	}

	out, err := eng.Run(context.Background(), chapters)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.State != StateSucceeded {
		t.Fatalf("state = %q", out.State)
	}
	if len(out.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(out.Results))
	}
	for i, res := range out.Results {
		if res.ChapterIndex != i+1 {
			t.Fatalf("result %d has chapter index %d", i, res.ChapterIndex)
		}
		want := filepath.Join(workDir, fmt.Sprintf("ch_%04d.wav", i+1))
		if res.Path != want {
			t.Fatalf("result path = %q, want %q", res.Path, want)
		}
		if _, statErr := os.Stat(res.Path); statErr != nil {
			t.Fatalf("chapter audio missing: %v", statErr)
		}
		if res.DurationMS < 1000 {
			t.Fatalf("duration %dms below floor", res.DurationMS)
		}
	}
}

func TestEngineRetriesOnceThenSucceeds(t *testing.T) {
	var mu sync.Mutex
	failed := make(map[string]bool)

	render := func(ctx context.Context, title, chunk, voice string) (PCM, error) {
		mu.Lock()
		defer mu.Unlock()
		if !failed[chunk] {
			failed[chunk] = true
			return PCM{}, errors.New("transient synthesis failure")
		}
		return stubPCM(1500), nil
	}

	eng := newTestEngine(t, Options{Workers: 1, Render: render})
	out, err := eng.Run(context.Background(), []book.Chapter{
		testChapter(1, "Chapter One", "A paragraph that renders on the second attempt."),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.State != StateSucceeded || len(out.Results) != 1 {
		t.Fatalf("state=%q results=%d", out.State, len(out.Results))
	}
}

func TestEngineFailsChapterWhenMostChunksDrop(t *testing.T) {
	render := func(ctx context.Context, title, chunk, voice string) (PCM, error) {
		return PCM{}, errors.New("voice model crashed")
	}

	var events []Event
	eng := newTestEngine(t, Options{
		Workers: 1,
		Render:  render,
		OnEvent: func(ev Event) { events = append(events, ev) },
	})

	out, err := eng.Run(context.Background(), []book.Chapter{
		testChapter(1, "Doomed Chapter", "Text that will never render."),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.State != StateSucceededSkips {
		t.Fatalf("state = %q", out.State)
	}
	if len(out.Results) != 0 {
		t.Fatalf("failed chapter must not produce a result: %v", out.Results)
	}
	if len(out.Skipped) != 1 || out.Skipped[0].ChapterIndex != 1 {
		t.Fatalf("skipped = %v", out.Skipped)
	}
	if len(out.Errors) != 1 || out.Errors[0].Title != "Doomed Chapter" {
		t.Fatalf("errors = %v", out.Errors)
	}

	var sawError bool
	for _, ev := range events {
		if ev.Kind == EventError {
			sawError = true
		}
	}
	if !sawError {
		t.Fatal("expected an error event in the stream")
	}
}

func TestEngineSkipsShortAudio(t *testing.T) {
	render := func(ctx context.Context, title, chunk, voice string) (PCM, error) {
		return stubPCM(200), nil
	}

	var errorEvents int
	eng := newTestEngine(t, Options{
		Workers: 1,
		Render:  render,
		OnEvent: func(ev Event) {
			if ev.Kind == EventError {
				errorEvents++
			}
		},
	})
	out, err := eng.Run(context.Background(), []book.Chapter{
		testChapter(1, "Whisper", "Barely any audio comes out of this."),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.State != StateSucceededSkips {
		t.Fatalf("state = %q", out.State)
	}
	if len(out.Skipped) != 1 || out.Skipped[0].Reason != "audio below minimum duration" {
		t.Fatalf("skipped = %v", out.Skipped)
	}
	if errorEvents != 1 {
		t.Fatalf("error events = %d, want 1", errorEvents)
	}
	if len(out.Errors) != 1 || out.Errors[0].Title != "Whisper" {
		t.Fatalf("errors = %v", out.Errors)
	}
}

func TestEngineZeroChunkChapterSkipsSilently(t *testing.T) {
	var events []Event
	eng := newTestEngine(t, Options{
		Workers: 1,
		Render:  okRender,
		OnEvent: func(ev Event) { events = append(events, ev) },
	})

	out, err := eng.Run(context.Background(), []book.Chapter{
		testChapter(1, "Part One"), // structural landmark, no paragraphs
		testChapter(2, "Chapter One", "Actual narrated content follows the part divider."),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.State != StateSucceeded {
		t.Fatalf("state = %q (skipped=%v errors=%v)", out.State, out.Skipped, out.Errors)
	}
	if len(out.Results) != 1 || out.Results[0].ChapterIndex != 2 {
		t.Fatalf("results = %v", out.Results)
	}
	if len(out.Skipped) != 0 {
		t.Fatalf("structural chapters are not skips: %v", out.Skipped)
	}

	starts := 0
	dones := 0
	for _, ev := range events {
		switch ev.Kind {
		case EventStart:
			starts++
		case EventDone:
			dones++
		}
	}
	if starts != 2 || dones != 2 {
		t.Fatalf("start/done = %d/%d, want 2/2", starts, dones)
	}
}

func TestEngineAppendsPauses(t *testing.T) {
	eng := newTestEngine(t, Options{
		Workers:      1,
		Render:       okRender,
		PauseLine:    100 * time.Millisecond,
		PauseChapter: 500 * time.Millisecond,
	})

	out, err := eng.Run(context.Background(), []book.Chapter{
		testChapter(1, "Chapter One", "A single chunk of narration text."),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// 1200ms of speech + 100ms line pause + 500ms chapter pause.
	if got := out.Results[0].DurationMS; got != 1800 {
		t.Fatalf("duration = %dms, want 1800", got)
	}
}

func TestEngineCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	var once sync.Once

	render := func(ctx context.Context, title, chunk, voice string) (PCM, error) {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return PCM{}, ctx.Err()
	}

	eng := newTestEngine(t, Options{Workers: 2, Render: render})
	chapters := []book.Chapter{
		testChapter(1, "Chapter One", "Long enough text for the first chapter."),
		testChapter(2, "Chapter Two", "Long enough text for the second chapter."),
		testChapter(3, "Chapter Three", "Long enough text for the third chapter."),
	}

	go func() {
		<-started
		cancel()
	}()

	out, err := eng.Run(ctx, chapters)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if out.State != StateCancelled {
		t.Fatalf("state = %q", out.State)
	}
	if out.Results != nil {
		t.Fatalf("cancelled run must discard partial results: %v", out.Results)
	}
}

func TestEngineFirstChapterUsesSmallChunks(t *testing.T) {
	long := strings.Repeat("A full sentence of text sits right here. ", 12)
	long = strings.TrimSpace(long)

	var mu sync.Mutex
	maxByTitle := make(map[string]int)
	render := func(ctx context.Context, title, chunk, voice string) (PCM, error) {
		mu.Lock()
		if len(chunk) > maxByTitle[title] {
			maxByTitle[title] = len(chunk)
		}
		mu.Unlock()
		return stubPCM(1200), nil
	}

	eng := newTestEngine(t, Options{Workers: 1, Render: render})
	out, err := eng.Run(context.Background(), []book.Chapter{
		testChapter(1, "Chapter One", long),
		testChapter(2, "Chapter Two", long),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.State != StateSucceeded {
		t.Fatalf("state = %q", out.State)
	}
	if maxByTitle["Chapter One"] > FirstChapterChunkChars {
		t.Fatalf("first chapter chunk %d exceeds %d", maxByTitle["Chapter One"], FirstChapterChunkChars)
	}
	if maxByTitle["Chapter Two"] <= FirstChapterChunkChars {
		t.Fatalf("later chapters should use the larger budget, got max %d", maxByTitle["Chapter Two"])
	}
}
