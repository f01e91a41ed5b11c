package config

const (
	defaultStorageRoot             = "~/.local/share/syndicate/storage"
	defaultIntakeBucket            = "intake"
	defaultStateDir                = "~/.local/share/syndicate/state"
	defaultLogDir                  = "~/.local/share/syndicate/logs"
	defaultExecutionTimeoutMinutes = 60
	defaultPollIntervalSeconds     = 5
	defaultTranscoderTimeout       = 30
	defaultJobTemplate             = "Generic-Hd-Mp4-720p"
	defaultLogLevel                = "info"
	defaultLogFormat               = "console"
	defaultNtfyTimeout             = 10
)

// Default returns a Config populated with repository defaults. The partner
// set mirrors the reference deployment: ACE entitled, OtherProvider declared
// but not entitled.
func Default() Config {
	return Config{
		Storage: Storage{
			Root:         defaultStorageRoot,
			IntakeBucket: defaultIntakeBucket,
			StateDir:     defaultStateDir,
			LogDir:       defaultLogDir,
		},
		Workflow: Workflow{
			ExecutionTimeoutMinutes: defaultExecutionTimeoutMinutes,
			PollIntervalSeconds:     defaultPollIntervalSeconds,
		},
		Transcoder: Transcoder{
			JobTemplate:           defaultJobTemplate,
			RequestTimeoutSeconds: defaultTranscoderTimeout,
		},
		Partners: []Partner{
			{Name: "ACE", Entitled: true, OutputBucket: "partner-ace"},
			{Name: "OtherProvider", Entitled: false, OutputBucket: "partner-other"},
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeout,
		},
	}
}
