package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"talespin/internal/classify"
	"talespin/internal/deps"
	"talespin/internal/fileutil"
	"talespin/internal/filter"
	"talespin/internal/logging"
	"talespin/internal/reader"
	"talespin/internal/stitch"
	"talespin/internal/synth"
	"talespin/internal/voice"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var (
		flags      filterFlags
		voiceFlag  string
		workerFlag int
		outputFlag string
		formatFlag string
	)

	cmd := &cobra.Command{
		Use:   "convert <ebook>",
		Short: "Convert an ebook into an audiobook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.ensureLogger()

			format := strings.ToLower(strings.TrimSpace(formatFlag))
			if format == "" {
				format = cfg.Output.Format
			}
			switch format {
			case "m4b", "m4a", "mp3":
			default:
				return fmt.Errorf("unsupported output format %q (m4b, m4a, mp3)", format)
			}

			if err := deps.Check(cfg); err != nil {
				return err
			}

			bookPath, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve ebook path: %w", err)
			}

			registry := reader.NewRegistry(classify.New())
			rd, err := registry.Open(bookPath)
			if err != nil {
				return err
			}
			defer rd.Close()

			meta, err := rd.Metadata()
			if err != nil {
				return fmt.Errorf("read metadata: %w", err)
			}
			chapters, err := rd.Chapters(cfg.Convert.MinTextLen)
			if err != nil {
				return fmt.Errorf("extract chapters: %w", err)
			}
			if len(chapters) == 0 {
				return fmt.Errorf("%s contains no chapters", filepath.Base(bookPath))
			}

			chain, err := filter.New(filter.NewRegistry(), flags.operations(cfg.Convert.DefaultPreset))
			if err != nil {
				return err
			}
			kept := chain.Apply(chapters)
			if len(kept) == 0 {
				return fmt.Errorf("chapter filter removed every chapter; try --no-filter or 'talespin chapters' to inspect")
			}

			voiceToken := voiceFlag
			if voiceToken == "" {
				voiceToken = cfg.TTS.Voice
			}
			v, err := voice.Resolve(voiceToken)
			if err != nil {
				return err
			}

			workers := cfg.TTS.Workers
			if workerFlag > 0 {
				workers = workerFlag
			}

			renderer, err := synth.NewExecRenderer(cfg.TTS.Command, cfg.TTS.SampleRate, cfg.TTS.Channels)
			if err != nil {
				return err
			}

			runDir, err := fileutil.CreateRunDir(cfg.Paths.StagingDir)
			if err != nil {
				return err
			}
			defer runDir.Release()

			reporter := newProgressReporter(logger)
			engine, err := synth.New(synth.Options{
				Workers:        workers,
				Render:         renderer.Render,
				Voice:          v.Token,
				WorkDir:        runDir.Path,
				PauseLine:      time.Duration(cfg.TTS.PauseLineMS) * time.Millisecond,
				PauseChapter:   time.Duration(cfg.TTS.PauseChapterMS) * time.Millisecond,
				MaxDroppedFrac: float64(cfg.Convert.MaxDroppedPercent) / 100,
				OnTick:         reporter.Tick,
				Logger:         logger,
			})
			if err != nil {
				return err
			}

			logger.Info("starting conversion",
				logging.String(logging.FieldBook, meta.Title),
				logging.String(logging.FieldVoice, v.Name),
				logging.Int("chapters", len(kept)),
				logging.Int("workers", workers))

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			outcome, err := engine.Run(runCtx, kept)
			reporter.Finish()
			if errors.Is(err, synth.ErrCancelled) {
				fmt.Fprintln(cmd.ErrOrStderr(), "Conversion cancelled; no output written.")
				return err
			}
			if err != nil {
				return err
			}

			outPath := outputFlag
			if outPath == "" {
				outPath = stitch.OutputPath(cfg.Paths.OutputDir, meta.Title, format)
			}
			staged := filepath.Join(runDir.Path, "audiobook."+format)
			if err := stitch.Run(runCtx, outcome.Results, stitch.Options{
				FFmpeg:     cfg.FFmpegBinary(),
				WorkDir:    runDir.Path,
				Output:     staged,
				Format:     format,
				Bitrate:    cfg.Output.Bitrate,
				Meta:       meta,
				EmbedCover: cfg.Output.EmbedCover,
				Logger:     logger,
			}); err != nil {
				return err
			}
			if err := fileutil.MoveFile(staged, outPath); err != nil {
				return fmt.Errorf("move audiobook to %s: %w", outPath, err)
			}

			printConvertSummary(cmd, outcome, outPath)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&voiceFlag, "voice", "", "Voice name or path to a custom voice file")
	cmd.Flags().IntVar(&workerFlag, "workers", 0, "Concurrent synthesis workers (overrides config)")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Audiobook output path")
	cmd.Flags().StringVar(&formatFlag, "format", "", "Output format: m4b, m4a, or mp3")

	return cmd
}

func printConvertSummary(cmd *cobra.Command, outcome *synth.Outcome, outPath string) {
	out := cmd.OutOrStdout()

	var total int64
	for _, res := range outcome.Results {
		total += res.DurationMS
	}
	fmt.Fprintf(out, "Wrote %s (%d chapters, %s)\n",
		outPath, len(outcome.Results), formatRuntime(total))

	if info, err := os.Stat(outPath); err == nil {
		fmt.Fprintf(out, "Size: %s\n", humanize.Bytes(uint64(info.Size())))
	}

	if len(outcome.Skipped) > 0 {
		fmt.Fprintf(out, "\nSkipped %d chapter(s):\n", len(outcome.Skipped))
		rows := make([][]string, 0, len(outcome.Skipped))
		for _, skip := range outcome.Skipped {
			rows = append(rows, []string{
				fmt.Sprintf("%d", skip.ChapterIndex), skip.Title, skip.Reason,
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"#", "Chapter", "Reason"}, rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft}))
	}

	for _, we := range outcome.Errors {
		fmt.Fprintf(out, "Warning: %s: %s\n", we.Title, we.Message)
	}
}

func formatRuntime(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
