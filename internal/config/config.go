package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Server contains connection settings for the MCP tool server.
type Server struct {
	Endpoint       string            `toml:"endpoint"`
	Headers        map[string]string `toml:"headers"`
	RequestTimeout int               `toml:"request_timeout"`
}

// Tools names the remote tools driving the submit/status/result sequence.
type Tools struct {
	Submit  string `toml:"submit"`
	Status  string `toml:"status"`
	Result  string `toml:"result"`
	IDParam string `toml:"id_param"`
}

// Job contains submit arguments and poll loop tuning.
type Job struct {
	Arguments         map[string]any `toml:"arguments"`
	PollInterval      int            `toml:"poll_interval"`
	MaxPolls          int            `toml:"max_polls"`
	CompletedStatuses []string       `toml:"completed_statuses"`
	FailedStatuses    []string       `toml:"failed_statuses"`
}

// Output controls where downloaded artifacts land.
type Output struct {
	Dir             string `toml:"dir"`
	DownloadTimeout int    `toml:"download_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for mcpjob.
//
// Sections by subsystem:
//   - Server: endpoint URL, extra headers, HTTP timeout
//   - Tools: submit/status/result tool names and the id parameter key
//   - Job: submit arguments, poll interval and budget, status sets
//   - Output: artifact directory and download timeout
//   - Logging: log format and level
type Config struct {
	Server  Server  `toml:"server"`
	Tools   Tools   `toml:"tools"`
	Job     Job     `toml:"job"`
	Output  Output  `toml:"output"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/mcpjob/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mcpjob.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	c.Server.Endpoint = strings.TrimSpace(c.Server.Endpoint)
	if c.Server.Endpoint == "" {
		c.Server.Endpoint = strings.TrimSpace(os.Getenv("MCPJOB_ENDPOINT"))
	}

	c.Tools.Submit = strings.TrimSpace(c.Tools.Submit)
	c.Tools.Status = strings.TrimSpace(c.Tools.Status)
	c.Tools.Result = strings.TrimSpace(c.Tools.Result)
	c.Tools.IDParam = strings.TrimSpace(c.Tools.IDParam)
	if c.Tools.IDParam == "" {
		c.Tools.IDParam = defaultIDParam
	}

	if len(c.Job.CompletedStatuses) == 0 {
		c.Job.CompletedStatuses = DefaultCompletedStatuses()
	}
	if len(c.Job.FailedStatuses) == 0 {
		c.Job.FailedStatuses = DefaultFailedStatuses()
	}
	c.Job.CompletedStatuses = normalizeStatusSet(c.Job.CompletedStatuses)
	c.Job.FailedStatuses = normalizeStatusSet(c.Job.FailedStatuses)

	if strings.TrimSpace(c.Output.Dir) != "" {
		expanded, err := expandPath(c.Output.Dir)
		if err != nil {
			return err
		}
		c.Output.Dir = expanded
	}
	return nil
}

func normalizeStatusSet(values []string) []string {
	out := make([]string, 0, len(values))
	seen := map[string]struct{}{}
	for _, value := range values {
		trimmed := strings.ToLower(strings.TrimSpace(value))
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
