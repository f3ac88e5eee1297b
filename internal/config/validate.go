package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateJob(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Endpoint == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/mcpjob/config.toml"
		}
		return fmt.Errorf("server.endpoint is required. Set MCPJOB_ENDPOINT env var or edit %s (create with 'mcpjob config init')", defaultPath)
	}
	parsed, err := url.Parse(c.Server.Endpoint)
	if err != nil {
		return fmt.Errorf("server.endpoint is not a valid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("server.endpoint must use http or https, got %q", c.Server.Endpoint)
	}
	if c.Server.RequestTimeout <= 0 {
		return errors.New("server.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateTools() error {
	if c.Tools.Submit == "" {
		return errors.New("tools.submit must be set")
	}
	if c.Tools.Status == "" {
		return errors.New("tools.status must be set")
	}
	if c.Tools.Result == "" {
		return errors.New("tools.result must be set")
	}
	if c.Tools.IDParam == "" {
		return errors.New("tools.id_param must be set")
	}
	return nil
}

func (c *Config) validateJob() error {
	if c.Job.PollInterval <= 0 {
		return errors.New("job.poll_interval must be positive (seconds)")
	}
	if c.Job.MaxPolls <= 0 {
		return errors.New("job.max_polls must be positive")
	}
	if len(c.Job.CompletedStatuses) == 0 {
		return errors.New("job.completed_statuses must include at least one status")
	}
	if len(c.Job.FailedStatuses) == 0 {
		return errors.New("job.failed_statuses must include at least one status")
	}
	failed := make(map[string]struct{}, len(c.Job.FailedStatuses))
	for _, status := range c.Job.FailedStatuses {
		failed[status] = struct{}{}
	}
	for _, status := range c.Job.CompletedStatuses {
		if _, ok := failed[status]; ok {
			return fmt.Errorf("status %q cannot be in both job.completed_statuses and job.failed_statuses", status)
		}
	}
	if c.Output.DownloadTimeout <= 0 {
		return errors.New("output.download_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "console", "json", "":
		return nil
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
}
