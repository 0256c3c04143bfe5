package config

import (
	"errors"
	"fmt"
	"regexp"
)

var bitratePattern = regexp.MustCompile(`^\d+k?$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTTS(); err != nil {
		return err
	}
	if err := c.validateConvert(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTTS() error {
	if c.TTS.Command == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/talespin/config.toml"
		}
		return fmt.Errorf("tts.command is required. Set TALESPIN_TTS_COMMAND env var or edit %s (create with 'talespin config init')", defaultPath)
	}
	if c.TTS.Workers > 64 {
		return fmt.Errorf("tts.workers must be at most 64, got %d", c.TTS.Workers)
	}
	if c.TTS.Channels > 2 {
		return fmt.Errorf("tts.channels must be 1 or 2, got %d", c.TTS.Channels)
	}
	return nil
}

func (c *Config) validateConvert() error {
	if c.Convert.MaxDroppedPercent > 100 {
		return fmt.Errorf("convert.max_dropped_percent must be between 1 and 100, got %d", c.Convert.MaxDroppedPercent)
	}
	return nil
}

func (c *Config) validateOutput() error {
	switch c.Output.Format {
	case "m4b", "m4a", "mp3":
	default:
		return fmt.Errorf("output.format: unsupported value %q (m4b, m4a, mp3)", c.Output.Format)
	}
	if !bitratePattern.MatchString(c.Output.Bitrate) {
		return fmt.Errorf("output.bitrate: invalid value %q (e.g. 64k)", c.Output.Bitrate)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return errors.New("logging.level must be one of debug, info, warn, error")
	}
}
