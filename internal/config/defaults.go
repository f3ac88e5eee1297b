package config

const (
	defaultSubmitTool      = "submit_job"
	defaultStatusTool      = "get_status"
	defaultResultTool      = "get_result"
	defaultIDParam         = "request_id"
	defaultPollInterval    = 2
	defaultMaxPolls        = 300
	defaultRequestTimeout  = 60
	defaultDownloadTimeout = 300
	defaultOutputDir       = "~/Downloads/mcpjob"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// DefaultCompletedStatuses returns the status strings classified as success.
func DefaultCompletedStatuses() []string {
	return []string{"completed", "done", "success", "finished", "ready"}
}

// DefaultFailedStatuses returns the status strings classified as failure.
func DefaultFailedStatuses() []string {
	return []string{"failed", "error", "cancelled", "timeout"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Server: Server{
			RequestTimeout: defaultRequestTimeout,
		},
		Tools: Tools{
			Submit:  defaultSubmitTool,
			Status:  defaultStatusTool,
			Result:  defaultResultTool,
			IDParam: defaultIDParam,
		},
		Job: Job{
			PollInterval:      defaultPollInterval,
			MaxPolls:          defaultMaxPolls,
			CompletedStatuses: DefaultCompletedStatuses(),
			FailedStatuses:    DefaultFailedStatuses(),
		},
		Output: Output{
			Dir:             defaultOutputDir,
			DownloadTimeout: defaultDownloadTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
