package config

const (
	defaultDataDir               = "~/.local/share/briefcast"
	defaultLogDir                = "~/.local/share/briefcast/logs"
	defaultCredentialsDir        = "~/.local/share/briefcast/credentials"
	defaultAPIBind               = "127.0.0.1:8787"
	defaultAgentBind             = "127.0.0.1:8788"
	defaultAPIBase               = "http://127.0.0.1:8787"
	defaultNotebookOrigin        = "https://notebooklm.google.com"
	defaultReplayTimeoutSeconds  = 300
	defaultAudioTimeoutSeconds   = 900
	defaultRequestTimeoutSeconds = 30
	defaultMaxItemsPerFeed       = 10
	defaultMaxPostsPerNewsletter = 3
	defaultTopicsBaseURL         = "https://api.perplexity.ai"
	defaultTopicsModel           = "sonar"
	defaultTopicsTimeoutSeconds  = 60
	defaultJobPollInterval       = 5
	defaultErrorRetryInterval    = 10
	defaultSchedulerInterval     = 60
	defaultNotifyRequestTimeout  = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:        defaultDataDir,
			LogDir:         defaultLogDir,
			CredentialsDir: defaultCredentialsDir,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Agent: Agent{
			Bind:    defaultAgentBind,
			APIBase: defaultAPIBase,
		},
		Notebook: Notebook{
			Origin:               defaultNotebookOrigin,
			ReplayTimeoutSeconds: defaultReplayTimeoutSeconds,
			AudioTimeoutSeconds:  defaultAudioTimeoutSeconds,
		},
		Collectors: Collectors{
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
			MaxItemsPerFeed:       defaultMaxItemsPerFeed,
			MaxPostsPerNewsletter: defaultMaxPostsPerNewsletter,
		},
		Topics: Topics{
			BaseURL:        defaultTopicsBaseURL,
			Model:          defaultTopicsModel,
			TimeoutSeconds: defaultTopicsTimeoutSeconds,
		},
		Workflow: Workflow{
			JobPollInterval:    defaultJobPollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			SchedulerInterval:  defaultSchedulerInterval,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Jobs:           true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
