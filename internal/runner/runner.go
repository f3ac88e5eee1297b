package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mcpjob/internal/extract"
	"mcpjob/internal/logging"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultMaxPolls     = 300
	defaultIDParam      = "request_id"
)

// ToolCaller is the slice of the protocol session the runner needs.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (map[string]any, error)
}

// Saver persists a downloadable artifact and reports the path written.
type Saver interface {
	Save(ctx context.Context, url, outputPath string) (string, error)
}

// Config captures one job's tool names, submit arguments, and poll tuning.
type Config struct {
	SubmitTool string
	StatusTool string
	ResultTool string

	SubmitArgs map[string]any
	IDParam    string

	PollInterval time.Duration
	MaxPolls     int

	CompletedStatuses []string
	FailedStatuses    []string

	OutputPath string
}

// Result is the terminal report of a successful job. DownloadURL and
// SavedPath stay empty when the job completed without a downloadable
// artifact; Note explains why.
type Result struct {
	RequestID   string `json:"request_id"`
	Status      string `json:"status"`
	DownloadURL string `json:"download_url,omitempty"`
	SavedPath   string `json:"saved_path,omitempty"`
	Note        string `json:"note,omitempty"`
}

// Option customizes the runner.
type Option func(*Runner)

// WithLogger overrides the default no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logging.NewComponentLogger(logger, "runner")
	}
}

// WithSleeper overrides how poll sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(r *Runner) {
		r.sleeper = sleeper
	}
}

// Runner drives one job through submit, poll, retrieve, and download.
type Runner struct {
	client  ToolCaller
	saver   Saver
	cfg     Config
	logger  *slog.Logger
	sleeper func(time.Duration)

	completed map[string]struct{}
	failed    map[string]struct{}
}

// New constructs a Runner. The saver may be nil when the caller never
// wants artifacts written (the job then always reports a note instead).
func New(client ToolCaller, saver Saver, cfg Config, opts ...Option) (*Runner, error) {
	if client == nil {
		return nil, errors.New("runner: tool caller is required")
	}
	if strings.TrimSpace(cfg.SubmitTool) == "" {
		return nil, errors.New("runner: submit tool name is required")
	}
	if strings.TrimSpace(cfg.StatusTool) == "" {
		return nil, errors.New("runner: status tool name is required")
	}
	if strings.TrimSpace(cfg.ResultTool) == "" {
		return nil, errors.New("runner: result tool name is required")
	}
	if cfg.IDParam == "" {
		cfg.IDParam = defaultIDParam
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MaxPolls <= 0 {
		cfg.MaxPolls = defaultMaxPolls
	}
	if len(cfg.CompletedStatuses) == 0 {
		cfg.CompletedStatuses = []string{"completed", "done", "success", "finished", "ready"}
	}
	if len(cfg.FailedStatuses) == 0 {
		cfg.FailedStatuses = []string{"failed", "error", "cancelled", "timeout"}
	}

	r := &Runner{
		client:    client,
		saver:     saver,
		cfg:       cfg,
		logger:    logging.NewNop(),
		completed: statusSet(cfg.CompletedStatuses),
		failed:    statusSet(cfg.FailedStatuses),
	}
	for _, opt := range opts {
		opt(r)
	}
	for status := range r.completed {
		if _, ok := r.failed[status]; ok {
			return nil, fmt.Errorf("runner: status %q is in both the completed and failed sets", status)
		}
	}
	return r, nil
}

func statusSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		trimmed := strings.ToLower(strings.TrimSpace(value))
		if trimmed != "" {
			set[trimmed] = struct{}{}
		}
	}
	return set
}

// Run executes the full submit, poll, retrieve, download sequence for one
// job and returns its terminal result. Poll and result calls reuse the
// identifier extracted from the submit response verbatim, strictly in
// sequence; there is at most one in-flight call per job.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	requestID, err := r.submit(ctx)
	if err != nil {
		return Result{}, err
	}

	status, snapshot, err := r.poll(ctx, requestID)
	if err != nil {
		return Result{}, err
	}

	return r.retrieve(ctx, requestID, status, snapshot)
}

func (r *Runner) submit(ctx context.Context) (string, error) {
	r.logger.Info("submitting job", logging.String(logging.FieldTool, r.cfg.SubmitTool))
	payload, err := r.client.CallTool(ctx, r.cfg.SubmitTool, r.cfg.SubmitArgs)
	if err != nil {
		return "", fmt.Errorf("submit job: %w", err)
	}
	requestID, err := extract.JobID(payload)
	if err != nil {
		return "", err
	}
	r.logger.Info("job submitted", logging.String(logging.FieldRequestID, requestID))
	return requestID, nil
}

func (r *Runner) poll(ctx context.Context, requestID string) (string, map[string]any, error) {
	args := map[string]any{r.cfg.IDParam: requestID}
	var snapshot map[string]any

	for attempt := 1; attempt <= r.cfg.MaxPolls; attempt++ {
		payload, err := r.client.CallTool(ctx, r.cfg.StatusTool, args)
		if err != nil {
			return "", nil, fmt.Errorf("poll status: %w", err)
		}

		var status string
		status, snapshot = extract.Status(payload)
		r.logger.Debug("job status",
			logging.String(logging.FieldRequestID, requestID),
			logging.String(logging.FieldStatus, status),
			logging.Int(logging.FieldAttempt, attempt),
		)

		if _, ok := r.completed[status]; ok {
			r.logger.Info("job completed",
				logging.String(logging.FieldRequestID, requestID),
				logging.Int(logging.FieldAttempt, attempt),
			)
			return status, snapshot, nil
		}
		if _, ok := r.failed[status]; ok {
			return "", nil, &JobFailedError{Status: status, Payload: snapshot}
		}

		if attempt < r.cfg.MaxPolls {
			if err := r.sleep(ctx); err != nil {
				return "", nil, err
			}
		}
	}

	return "", nil, &JobTimeoutError{Attempts: r.cfg.MaxPolls, MaxPolls: r.cfg.MaxPolls}
}

func (r *Runner) retrieve(ctx context.Context, requestID, status string, snapshot map[string]any) (Result, error) {
	result := Result{RequestID: requestID, Status: status}

	payload, err := r.client.CallTool(ctx, r.cfg.ResultTool, map[string]any{r.cfg.IDParam: requestID})
	if err != nil {
		return Result{}, fmt.Errorf("fetch result: %w", err)
	}

	url, ok := extract.URL(payload)
	if !ok {
		// The result tool may omit the URL even though the last status
		// snapshot carried one.
		url, ok = extract.URL(snapshot)
	}
	if !ok {
		result.Note = "job completed but no download URL was found in the response"
		r.logger.Warn("job completed without artifact", logging.String(logging.FieldRequestID, requestID))
		return result, nil
	}
	result.DownloadURL = url

	if r.saver == nil {
		result.Note = "download skipped: no output destination configured"
		return result, nil
	}

	saved, err := r.saver.Save(ctx, url, r.cfg.OutputPath)
	if err != nil {
		return Result{}, fmt.Errorf("download artifact: %w", err)
	}
	result.SavedPath = saved
	r.logger.Info("artifact saved",
		logging.String(logging.FieldRequestID, requestID),
		logging.String("path", saved),
	)
	return result, nil
}

func (r *Runner) sleep(ctx context.Context) error {
	if r.sleeper != nil {
		r.sleeper(r.cfg.PollInterval)
		return ctx.Err()
	}
	timer := time.NewTimer(r.cfg.PollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
