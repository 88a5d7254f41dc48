package config

const (
	defaultJobsDir        = "~/.local/share/explainer/jobs"
	defaultLogDir         = "~/.local/share/explainer/logs"
	defaultResolution     = "720p"
	defaultFrameRate      = 30
	defaultVideoPreset    = "h264-yuv420p"
	defaultAudioPreset    = "aac-128k"
	defaultFFmpegBinary   = "ffmpeg"
	defaultFFprobeBinary  = "ffprobe"
	defaultParallelism    = 1
	defaultProbeTimeout   = 10
	defaultSegmentTimeout = 300
	defaultConcatTimeout  = 600
	defaultKeepJobs       = 20
	defaultPublishPrefix  = "videos"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultRetentionDays  = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			JobsDir: defaultJobsDir,
			LogDir:  defaultLogDir,
		},
		Profile: Profile{
			Resolution:  defaultResolution,
			FrameRate:   defaultFrameRate,
			VideoPreset: defaultVideoPreset,
			AudioPreset: defaultAudioPreset,
		},
		FFmpeg: FFmpeg{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
		},
		Batch: Batch{
			Parallelism:    defaultParallelism,
			ProbeTimeout:   defaultProbeTimeout,
			SegmentTimeout: defaultSegmentTimeout,
			ConcatTimeout:  defaultConcatTimeout,
			KeepJobs:       defaultKeepJobs,
		},
		Publish: Publish{
			Prefix:     defaultPublishPrefix,
			PublicRead: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultRetentionDays,
		},
	}
}
