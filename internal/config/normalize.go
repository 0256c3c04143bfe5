package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTTS()
	c.normalizeConvert()
	c.normalizeOutput()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.VoicesDir) != "" {
		if c.Paths.VoicesDir, err = expandPath(c.Paths.VoicesDir); err != nil {
			return fmt.Errorf("paths.voices_dir: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeTTS() {
	c.TTS.Command = strings.TrimSpace(c.TTS.Command)
	if c.TTS.Command == "" {
		if value, ok := os.LookupEnv("TALESPIN_TTS_COMMAND"); ok {
			c.TTS.Command = strings.TrimSpace(value)
		}
	}
	c.TTS.Voice = strings.TrimSpace(c.TTS.Voice)
	if c.TTS.Voice == "" {
		c.TTS.Voice = defaultVoice
	}
	if c.TTS.SampleRate <= 0 {
		c.TTS.SampleRate = defaultSampleRate
	}
	if c.TTS.Channels <= 0 {
		c.TTS.Channels = defaultChannels
	}
	if c.TTS.Workers <= 0 {
		c.TTS.Workers = defaultWorkers
	}
	if c.TTS.PauseLineMS < 0 {
		c.TTS.PauseLineMS = defaultPauseLineMS
	}
	if c.TTS.PauseChapterMS < 0 {
		c.TTS.PauseChapterMS = defaultPauseChapterMS
	}
}

func (c *Config) normalizeConvert() {
	if c.Convert.MinTextLen <= 0 {
		c.Convert.MinTextLen = defaultMinTextLen
	}
	c.Convert.DefaultPreset = strings.ToLower(strings.TrimSpace(c.Convert.DefaultPreset))
	if c.Convert.DefaultPreset == "" {
		c.Convert.DefaultPreset = defaultPreset
	}
	if c.Convert.MaxDroppedPercent <= 0 {
		c.Convert.MaxDroppedPercent = defaultMaxDroppedPercent
	}
	if c.Convert.MaxScanDepth <= 0 {
		c.Convert.MaxScanDepth = defaultMaxScanDepth
	}
}

func (c *Config) normalizeOutput() {
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	if c.Output.Format == "" {
		c.Output.Format = defaultOutputFormat
	}
	c.Output.Bitrate = strings.ToLower(strings.TrimSpace(c.Output.Bitrate))
	if c.Output.Bitrate == "" {
		c.Output.Bitrate = defaultOutputBitrate
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
