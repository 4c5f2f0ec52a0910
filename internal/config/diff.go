package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; anything touching
// provider construction or the database connection requires a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// PipelineChanged is true when any pipeline tuning knob changed.
	// Tuning values are read per episode run, so a reload takes effect on
	// the next processed episode.
	PipelineChanged bool
	NewPipeline     PipelineConfig
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Pipeline != new.Pipeline {
		d.PipelineChanged = true
		d.NewPipeline = new.Pipeline
	}

	return d
}
