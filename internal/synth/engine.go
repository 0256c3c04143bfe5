package synth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"talespin/internal/book"
	"talespin/internal/logging"
)

// ErrCancelled reports that a run was interrupted before completion.
// It is distinct from a zero-chapter success: partial results are
// discarded so the caller never mistakes an abort for a short book.
var ErrCancelled = errors.New("conversion cancelled")

// State is the terminal state of a completed run. Failure to start
// (bad options, unusable work dir) is reported as a plain error before
// any Outcome exists, so it has no State value.
type State string

const (
	StateSucceeded      State = "succeeded"
	StateSucceededSkips State = "succeeded_with_skips"
	StateCancelled      State = "cancelled"
)

// Skip records a chapter that produced no audio and why.
type Skip struct {
	ChapterIndex int
	Title        string
	Reason       string
}

// WorkerError is a collected Error event, surfaced in the run summary.
type WorkerError struct {
	WorkerID int
	Title    string
	Message  string
	Detail   string
}

// Snapshot is the controller's periodic view of the run, intended for
// UI refreshes.
type Snapshot struct {
	Elapsed           string
	ETA               string
	Rate              string
	CompletedChapters int
	TotalChapters     int
	UnitsDone         int
	TotalUnits        int
	Workers           []WorkerStatus
}

// WorkerStatus describes one in-flight chapter.
type WorkerStatus struct {
	WorkerID    int
	Title       string
	CurrentUnit int
	TotalUnits  int
}

// Outcome is the aggregate result of a run.
type Outcome struct {
	State   State
	Results []book.AudioResult
	Skipped []Skip
	Errors  []WorkerError
	Elapsed time.Duration
}

// Options configures an Engine.
type Options struct {
	// Workers bounds concurrent chapter jobs.
	Workers int
	// Render is the injected synthesis function.
	Render RenderFunc
	// Voice is the opaque voice token passed through to Render.
	Voice string
	// WorkDir receives per-chapter WAV files; it must exist and is
	// owned (created and removed) by the caller.
	WorkDir string
	// PauseLine is appended after every rendered chunk.
	PauseLine time.Duration
	// PauseChapter is appended at the end of every chapter.
	PauseChapter time.Duration
	// MinAudio is the duration floor below which a chapter counts as
	// failed rather than rendered.
	MinAudio time.Duration
	// MaxDroppedFrac fails a chapter when more than this fraction of
	// its chunks were dropped after retries.
	MaxDroppedFrac float64

	// OnEvent observes every worker event from the controller
	// goroutine; OnTick fires on each UI refresh interval.
	OnEvent func(Event)
	OnTick  func(Snapshot)

	Logger *slog.Logger
}

const (
	renderAttempts  = 2
	defaultMinAudio = time.Second
	tickInterval    = 125 * time.Millisecond
	eventBuffer     = 256
)

// Engine fans chapter render jobs out across a bounded worker pool and
// aggregates the event stream into an Outcome.
type Engine struct {
	opts   Options
	logger *slog.Logger
}

// New validates options and builds an engine.
func New(opts Options) (*Engine, error) {
	if opts.Workers <= 0 {
		return nil, fmt.Errorf("synth: worker count must be positive, got %d", opts.Workers)
	}
	if opts.Render == nil {
		return nil, fmt.Errorf("synth: render function is required")
	}
	if opts.WorkDir == "" {
		return nil, fmt.Errorf("synth: work directory is required")
	}
	if info, err := os.Stat(opts.WorkDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("synth: work directory %q not usable: %w", opts.WorkDir, err)
	}
	if opts.MinAudio <= 0 {
		opts.MinAudio = defaultMinAudio
	}
	if opts.MaxDroppedFrac <= 0 || opts.MaxDroppedFrac > 1 {
		opts.MaxDroppedFrac = 0.5
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{opts: opts, logger: logger}, nil
}

// job is one chapter plus its precomputed chunk list.
type job struct {
	chapter book.Chapter
	chunks  []string
	chars   int
}

// Run renders all chapters and blocks until the pool drains or ctx is
// cancelled. Results come back in ascending chapter index regardless
// of completion order. On cancellation partial results are discarded
// and ErrCancelled is returned alongside a cancelled outcome.
func (e *Engine) Run(ctx context.Context, chapters []book.Chapter) (*Outcome, error) {
	start := time.Now()

	jobs := make([]job, 0, len(chapters))
	totalChars := 0
	totalUnits := 0
	for i, ch := range chapters {
		chunks := ChunkParagraphs(ch.Paragraphs, ChunkSize(i == 0))
		chars := chunkStats(chunks)
		jobs = append(jobs, job{chapter: ch, chunks: chunks, chars: chars})
		totalChars += chars
		totalUnits += len(chunks)
	}

	tracker := NewTracker(totalChars)
	events := make(chan Event, eventBuffer)
	jobCh := make(chan job)

	var (
		mu      sync.Mutex
		results []book.AudioResult
		skipped []Skip
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(e.opts.Workers)
	for w := 1; w <= e.opts.Workers; w++ {
		go func(workerID int) {
			defer wg.Done()
			for j := range jobCh {
				res, skip := e.renderChapter(runCtx, workerID, j, events)
				mu.Lock()
				if res != nil {
					results = append(results, *res)
				}
				if skip != nil {
					skipped = append(skipped, *skip)
				}
				mu.Unlock()
			}
		}(w)
	}

	// Submission stops as soon as the context is cancelled; in-flight
	// jobs notice cancellation inside renderChapter.
	go func() {
		defer close(jobCh)
		for _, j := range jobs {
			select {
			case jobCh <- j:
			case <-runCtx.Done():
				return
			}
		}
	}()

	poolDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(poolDone)
	}()

	// Controller: single consumer draining the event channel, never
	// blocking indefinitely on one source.
	var workerErrors []WorkerError
	workerState := make(map[int]*WorkerStatus)
	chapterStarts := make(map[int]time.Time)
	chapterChars := make(map[int]int)
	completed := 0
	unitsDone := 0
	cancelled := false

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	running := true
	ctxDone := runCtx.Done()
	for running {
		select {
		case ev := <-events:
			e.handleEvent(ev, tracker, workerState, chapterStarts, chapterChars, &workerErrors, &completed, &unitsDone)
			if e.opts.OnEvent != nil {
				e.opts.OnEvent(ev)
			}
		case <-ctxDone:
			// Keep consuming events so abandoning workers never block
			// on a full channel; the pool-done case ends the loop.
			cancelled = true
			ctxDone = nil
		case <-poolDone:
			running = false
		case <-ticker.C:
			e.tick(tracker, workerState, completed, len(chapters), unitsDone, totalUnits)
		}
	}

	// Drain events emitted between the last poll and pool shutdown.
	for {
		select {
		case ev := <-events:
			e.handleEvent(ev, tracker, workerState, chapterStarts, chapterChars, &workerErrors, &completed, &unitsDone)
			if e.opts.OnEvent != nil {
				e.opts.OnEvent(ev)
			}
			continue
		default:
		}
		break
	}

	elapsed := time.Since(start)
	if cancelled || ctx.Err() != nil {
		e.logger.Warn("conversion cancelled",
			logging.Int("completed_chapters", completed),
			logging.Duration("elapsed", elapsed),
		)
		return &Outcome{State: StateCancelled, Elapsed: elapsed}, ErrCancelled
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].ChapterIndex < results[j].ChapterIndex
	})
	sort.Slice(skipped, func(i, j int) bool {
		return skipped[i].ChapterIndex < skipped[j].ChapterIndex
	})

	state := StateSucceeded
	if len(skipped) > 0 {
		state = StateSucceededSkips
	}
	e.logger.Info("conversion finished",
		logging.String("state", string(state)),
		logging.Int("chapters", len(results)),
		logging.Int("skipped", len(skipped)),
		logging.Duration("elapsed", elapsed),
	)
	return &Outcome{
		State:   state,
		Results: results,
		Skipped: skipped,
		Errors:  workerErrors,
		Elapsed: elapsed,
	}, nil
}

func (e *Engine) handleEvent(
	ev Event,
	tracker *Tracker,
	workerState map[int]*WorkerStatus,
	chapterStarts map[int]time.Time,
	chapterChars map[int]int,
	workerErrors *[]WorkerError,
	completed *int,
	unitsDone *int,
) {
	switch ev.Kind {
	case EventStart:
		workerState[ev.WorkerID] = &WorkerStatus{
			WorkerID:   ev.WorkerID,
			Title:      ev.Title,
			TotalUnits: ev.TotalUnits,
		}
		chapterStarts[ev.WorkerID] = time.Now()
		chapterChars[ev.WorkerID] = ev.TotalChars
	case EventProgress:
		tracker.Update(ev.UnitChars)
		*unitsDone += ev.UnitsAdvanced
		if st, ok := workerState[ev.WorkerID]; ok {
			st.CurrentUnit = ev.CurrentUnit
		}
	case EventDone:
		if startAt, ok := chapterStarts[ev.WorkerID]; ok {
			if chars := chapterChars[ev.WorkerID]; chars > 0 {
				tracker.ChapterComplete(chars, time.Since(startAt))
			}
			delete(chapterStarts, ev.WorkerID)
			delete(chapterChars, ev.WorkerID)
		}
		delete(workerState, ev.WorkerID)
		*completed++
	case EventError:
		*workerErrors = append(*workerErrors, WorkerError{
			WorkerID: ev.WorkerID,
			Title:    ev.Title,
			Message:  ev.Message,
			Detail:   ev.Detail,
		})
	case EventLog:
		e.logger.Debug(ev.Text, logging.Int("worker", ev.WorkerID))
	}
}

func (e *Engine) tick(tracker *Tracker, workerState map[int]*WorkerStatus, completed, totalChapters, unitsDone, totalUnits int) {
	if e.opts.OnTick == nil {
		return
	}
	workers := make([]WorkerStatus, 0, len(workerState))
	for _, st := range workerState {
		workers = append(workers, *st)
	}
	sort.Slice(workers, func(i, j int) bool { return workers[i].WorkerID < workers[j].WorkerID })
	e.opts.OnTick(Snapshot{
		Elapsed:           tracker.FormatElapsed(),
		ETA:               tracker.FormatETA(),
		Rate:              tracker.FormatRate(),
		CompletedChapters: completed,
		TotalChapters:     totalChapters,
		UnitsDone:         unitsDone,
		TotalUnits:        totalUnits,
		Workers:           workers,
	})
}

// renderChapter renders one chapter's chunks strictly in text order,
// retrying each chunk once and dropping it on the second failure. A
// chapter is abandoned outright only when too many chunks were dropped
// or the accumulated audio is below the duration floor.
func (e *Engine) renderChapter(ctx context.Context, workerID int, j job, events chan<- Event) (*book.AudioResult, *Skip) {
	ch := j.chapter

	// Structural chapters with nothing to narrate skip silently.
	if len(j.chunks) == 0 {
		events <- Event{Kind: EventStart, WorkerID: workerID, Title: ch.Title}
		events <- Event{Kind: EventDone, WorkerID: workerID}
		return nil, nil
	}

	events <- Event{
		Kind:       EventStart,
		WorkerID:   workerID,
		Title:      ch.Title,
		TotalUnits: len(j.chunks),
		TotalChars: j.chars,
	}

	var (
		samples    []int
		sampleRate int
		channels   int
		dropped    int
	)

	for i, chunk := range j.chunks {
		if ctx.Err() != nil {
			events <- Event{Kind: EventDone, WorkerID: workerID}
			return nil, nil
		}

		var pcm PCM
		var err error
		for attempt := 1; attempt <= renderAttempts; attempt++ {
			pcm, err = e.opts.Render(ctx, ch.Title, chunk, e.opts.Voice)
			if err == nil {
				break
			}
			if ctx.Err() != nil {
				events <- Event{Kind: EventDone, WorkerID: workerID}
				return nil, nil
			}
			events <- Event{
				Kind:     EventLog,
				WorkerID: workerID,
				Text:     fmt.Sprintf("chunk %d/%d attempt %d failed: %v", i+1, len(j.chunks), attempt, err),
			}
		}

		if err != nil {
			dropped++
		} else if decoded, decErr := pcmToSamples(pcm.Data); decErr != nil {
			dropped++
			events <- Event{Kind: EventLog, WorkerID: workerID, Text: decErr.Error()}
		} else {
			sampleRate = pcm.SampleRate
			channels = pcm.Channels
			samples = append(samples, decoded...)
			samples = append(samples, silenceSamples(e.opts.PauseLine.Milliseconds(), sampleRate, channels)...)
		}

		events <- Event{
			Kind:          EventProgress,
			WorkerID:      workerID,
			UnitsAdvanced: 1,
			CurrentUnit:   i + 1,
			TotalUnits:    len(j.chunks),
			UnitChars:     len(chunk),
		}
	}

	if dropped > 0 && float64(dropped) > e.opts.MaxDroppedFrac*float64(len(j.chunks)) {
		events <- Event{
			Kind:     EventError,
			WorkerID: workerID,
			Title:    ch.Title,
			Message:  fmt.Sprintf("dropped %d of %d chunks", dropped, len(j.chunks)),
			Detail:   "rendered audio discarded; chapter would be mostly silence",
		}
		events <- Event{Kind: EventDone, WorkerID: workerID}
		return nil, &Skip{ChapterIndex: ch.Index, Title: ch.Title, Reason: "too many dropped chunks"}
	}

	durationMS := samplesDurationMS(len(samples), sampleRate, channels)
	if durationMS < e.opts.MinAudio.Milliseconds() {
		events <- Event{
			Kind:     EventError,
			WorkerID: workerID,
			Title:    ch.Title,
			Message:  fmt.Sprintf("rendered audio too short (%dms)", durationMS),
			Detail:   "chapter produced less audio than the minimum duration floor",
		}
		events <- Event{Kind: EventDone, WorkerID: workerID}
		return nil, &Skip{ChapterIndex: ch.Index, Title: ch.Title, Reason: "audio below minimum duration"}
	}

	samples = append(samples, silenceSamples(e.opts.PauseChapter.Milliseconds(), sampleRate, channels)...)
	durationMS = samplesDurationMS(len(samples), sampleRate, channels)

	// Each worker writes only its own chapter-keyed file, so
	// concurrent writers never collide.
	path := filepath.Join(e.opts.WorkDir, fmt.Sprintf("ch_%04d.wav", ch.Index))
	if err := writeWAV(path, samples, sampleRate, channels); err != nil {
		events <- Event{
			Kind:     EventError,
			WorkerID: workerID,
			Title:    ch.Title,
			Message:  "failed to write chapter audio",
			Detail:   err.Error(),
		}
		events <- Event{Kind: EventDone, WorkerID: workerID}
		return nil, &Skip{ChapterIndex: ch.Index, Title: ch.Title, Reason: "could not write audio file"}
	}

	events <- Event{Kind: EventDone, WorkerID: workerID}
	return &book.AudioResult{
		ChapterIndex: ch.Index,
		Title:        ch.Title,
		Path:         path,
		DurationMS:   durationMS,
	}, nil
}
