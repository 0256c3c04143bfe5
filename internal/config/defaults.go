package config

const (
	defaultLibraryDir        = "~/books"
	defaultOutputDir         = "~/audiobooks"
	defaultStagingDir        = "~/.local/share/talespin/staging"
	defaultLogDir            = "~/.local/share/talespin/logs"
	defaultVoicesDir         = "~/.config/talespin/voices"
	defaultVoice             = "alba"
	defaultSampleRate        = 24000
	defaultChannels          = 1
	defaultWorkers           = 2
	defaultPauseLineMS       = 300
	defaultPauseChapterMS    = 1000
	defaultMinTextLen        = 50
	defaultPreset            = "content-only"
	defaultMaxDroppedPercent = 50
	defaultMaxScanDepth      = 10
	defaultOutputFormat      = "m4b"
	defaultOutputBitrate     = "64k"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			OutputDir:  defaultOutputDir,
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
			VoicesDir:  defaultVoicesDir,
		},
		TTS: TTS{
			Voice:          defaultVoice,
			SampleRate:     defaultSampleRate,
			Channels:       defaultChannels,
			Workers:        defaultWorkers,
			PauseLineMS:    defaultPauseLineMS,
			PauseChapterMS: defaultPauseChapterMS,
		},
		Convert: Convert{
			MinTextLen:        defaultMinTextLen,
			DefaultPreset:     defaultPreset,
			MaxDroppedPercent: defaultMaxDroppedPercent,
			MaxScanDepth:      defaultMaxScanDepth,
		},
		Output: Output{
			Format:     defaultOutputFormat,
			Bitrate:    defaultOutputBitrate,
			EmbedCover: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
