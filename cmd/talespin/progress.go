package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"talespin/internal/logging"
	"talespin/internal/synth"
)

// progressReporter adapts engine tick snapshots to either an
// interactive terminal bar or sampled log lines, depending on whether
// stderr is a TTY.
type progressReporter interface {
	Tick(snap synth.Snapshot)
	Finish()
}

func newProgressReporter(logger *slog.Logger) progressReporter {
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return &barReporter{}
	}
	return &logReporter{
		logger:  logger,
		sampler: logging.NewProgressSampler(5),
	}
}

type barReporter struct {
	bar   *progressbar.ProgressBar
	total int
}

func (r *barReporter) Tick(snap synth.Snapshot) {
	if r.bar == nil || r.total != snap.TotalUnits {
		r.total = snap.TotalUnits
		r.bar = progressbar.NewOptions(snap.TotalUnits,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("converting"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer: "=", SaucerHead: ">", SaucerPadding: " ",
				BarStart: "[", BarEnd: "]",
			}),
		)
	}
	_ = r.bar.Set(snap.UnitsDone)
	desc := fmt.Sprintf("chapters %d/%d eta %s", snap.CompletedChapters, snap.TotalChapters, snap.ETA)
	if titles := activeTitles(snap); titles != "" {
		desc += " | " + titles
	}
	r.bar.Describe(desc)
}

func (r *barReporter) Finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
}

func activeTitles(snap synth.Snapshot) string {
	titles := make([]string, 0, len(snap.Workers))
	for _, w := range snap.Workers {
		titles = append(titles, truncateTitle(w.Title, 24))
	}
	return strings.Join(titles, ", ")
}

func truncateTitle(title string, limit int) string {
	runes := []rune(title)
	if len(runes) <= limit {
		return title
	}
	return string(runes[:limit-1]) + "…"
}

type logReporter struct {
	logger  *slog.Logger
	sampler *logging.ProgressSampler
}

func (r *logReporter) Tick(snap synth.Snapshot) {
	pct := 0
	if snap.TotalUnits > 0 {
		pct = snap.UnitsDone * 100 / snap.TotalUnits
	}
	if !r.sampler.ShouldLog(float64(pct), "convert") {
		return
	}
	r.logger.Info("conversion progress",
		logging.Int("percent", pct),
		logging.Int("chapters_done", snap.CompletedChapters),
		logging.Int("chapters_total", snap.TotalChapters),
		logging.String("eta", snap.ETA),
		logging.String("rate", snap.Rate))
}

func (r *logReporter) Finish() {}
