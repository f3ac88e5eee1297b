package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mcpjob/internal/config"
	"mcpjob/internal/download"
	"mcpjob/internal/logging"
	"mcpjob/internal/mcp"
	"mcpjob/internal/runner"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		submitTool string
		statusTool string
		resultTool string
		idParam    string

		argFlags    []string
		argsJSON    string
		headerFlags []string

		outputPath   string
		pollInterval int
		maxPolls     int
		jsonOut      bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Submit a job, poll until it finishes, and download the result",
		Long: `Submit one asynchronous job to the configured MCP tool server, poll the
status tool until the job reaches a terminal state, then fetch the result
and download the produced artifact.

Examples:
  mcpjob run --arg prompt="a watercolor lighthouse"
  mcpjob run --args-json '{"prompt": "hello", "steps": 30}' --output ./out
  mcpjob run --submit-tool generate --status-tool poll --result-tool fetch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			logger, err := logging.New(logging.Options{
				Level:       cfg.Logging.Level,
				Format:      cfg.Logging.Format,
				OutputPaths: []string{"stderr"},
			})
			if err != nil {
				return fmt.Errorf("setup logging: %w", err)
			}

			submitArgs, err := resolveSubmitArgs(cfg, argsJSON, argFlags)
			if err != nil {
				return err
			}

			headers, err := resolveHeaders(cfg, headerFlags)
			if err != nil {
				return err
			}

			session, err := mcp.New(mcp.Config{
				Endpoint:   cfg.Server.Endpoint,
				Headers:    headers,
				HTTPClient: &http.Client{Timeout: time.Duration(cfg.Server.RequestTimeout) * time.Second},
				Logger:     logger,
			})
			if err != nil {
				return fmt.Errorf("create session: %w", err)
			}

			saver := download.NewClient(&http.Client{Timeout: time.Duration(cfg.Output.DownloadTimeout) * time.Second})

			// The configured output.dir is always a directory; create it
			// up front so the downloader derives a filename inside it. A
			// --output override may name a file, so it is left alone.
			outputTarget := strings.TrimSpace(outputPath)
			if outputTarget == "" {
				outputTarget = strings.TrimSpace(cfg.Output.Dir)
				if outputTarget != "" {
					if err := os.MkdirAll(outputTarget, 0o755); err != nil {
						return fmt.Errorf("create output directory %s: %w", outputTarget, err)
					}
				}
			}

			runCfg := runner.Config{
				SubmitTool:        firstNonEmpty(submitTool, cfg.Tools.Submit),
				StatusTool:        firstNonEmpty(statusTool, cfg.Tools.Status),
				ResultTool:        firstNonEmpty(resultTool, cfg.Tools.Result),
				SubmitArgs:        submitArgs,
				IDParam:           firstNonEmpty(idParam, cfg.Tools.IDParam),
				PollInterval:      time.Duration(cfg.Job.PollInterval) * time.Second,
				MaxPolls:          cfg.Job.MaxPolls,
				CompletedStatuses: cfg.Job.CompletedStatuses,
				FailedStatuses:    cfg.Job.FailedStatuses,
				OutputPath:        outputTarget,
			}
			if pollInterval > 0 {
				runCfg.PollInterval = time.Duration(pollInterval) * time.Second
			}
			if maxPolls > 0 {
				runCfg.MaxPolls = maxPolls
			}

			job, err := runner.New(session, saver, runCfg, runner.WithLogger(logger))
			if err != nil {
				return err
			}

			result, err := job.Run(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, result)
			}
			renderRunResult(cmd, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&submitTool, "submit-tool", "", "Remote tool that submits the job")
	cmd.Flags().StringVar(&statusTool, "status-tool", "", "Remote tool that reports job status")
	cmd.Flags().StringVar(&resultTool, "result-tool", "", "Remote tool that returns the job result")
	cmd.Flags().StringVar(&idParam, "id-param", "", "Parameter name used to address the job (default: request_id)")
	cmd.Flags().StringArrayVar(&argFlags, "arg", nil, "Submit argument as key=value (repeatable)")
	cmd.Flags().StringVar(&argsJSON, "args-json", "", "Submit arguments as a JSON object")
	cmd.Flags().StringArrayVar(&headerFlags, "header", nil, "Extra header as \"Name: value\" (repeatable)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file or directory for the downloaded artifact")
	cmd.Flags().IntVar(&pollInterval, "poll-interval", 0, "Seconds between status polls")
	cmd.Flags().IntVar(&maxPolls, "max-polls", 0, "Maximum status polls before timing out")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the terminal result as JSON")

	return cmd
}

// resolveSubmitArgs layers config arguments, the --args-json object, and
// repeated --arg flags, in that order of increasing precedence.
func resolveSubmitArgs(cfg *config.Config, argsJSON string, argFlags []string) (map[string]any, error) {
	merged := mergeArgs(nil, cfg.Job.Arguments)

	if trimmed := strings.TrimSpace(argsJSON); trimmed != "" {
		var decoded map[string]any
		if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
			return nil, fmt.Errorf("parse --args-json: %w", err)
		}
		merged = mergeArgs(merged, decoded)
	}

	flagArgs, err := parseArgFlags(argFlags)
	if err != nil {
		return nil, err
	}
	return mergeArgs(merged, flagArgs), nil
}

func resolveHeaders(cfg *config.Config, headerFlags []string) (map[string]string, error) {
	flagHeaders, err := parseHeaderFlags(headerFlags)
	if err != nil {
		return nil, err
	}
	if len(flagHeaders) == 0 {
		return cfg.Server.Headers, nil
	}
	merged := make(map[string]string, len(cfg.Server.Headers)+len(flagHeaders))
	for name, value := range cfg.Server.Headers {
		merged[name] = value
	}
	for name, value := range flagHeaders {
		merged[name] = value
	}
	return merged, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
