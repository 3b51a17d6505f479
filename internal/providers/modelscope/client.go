package modelscope

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"labassistant/internal/domain"
	"labassistant/internal/infra"
)

const (
	defaultBaseURL      = "https://api-inference.modelscope.cn"
	defaultModel        = "black-forest-labs/FLUX.1-Krea-dev"
	defaultMaxPolls     = 30
	defaultPollInterval = 10 * time.Second

	maxResponseBytes  = 1 << 20
	maxErrorBodyRunes = 512
)

// JobStatus is the normalized lifecycle of an asynchronous image job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
	// JobTimeout is never reported by the service; AwaitCompletion assigns it
	// once the poll budget is spent.
	JobTimeout JobStatus = "timeout"
)

// Terminal reports whether no further polling can change the status.
func (s JobStatus) Terminal() bool {
	return s == JobSucceeded || s == JobFailed || s == JobTimeout
}

// Job is the last observed state of a submitted image job.
type Job struct {
	ID        string
	Status    JobStatus
	ResultURL string
	Polls     int
}

// Err maps unsuccessful terminal states onto domain errors.
func (j Job) Err() error {
	switch j.Status {
	case JobFailed:
		return domain.ErrJobFailed
	case JobTimeout:
		return domain.ErrPollTimeout
	}
	return nil
}

// Options configures the ModelScope image client.
type Options struct {
	BaseURL        string
	Model          string
	MaxPolls       int
	PollInterval   time.Duration
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	Logger         *infra.Logger
}

// Client submits text-to-image jobs to the ModelScope async API and polls them.
type Client struct {
	baseURL      string
	model        string
	maxPolls     int
	pollInterval time.Duration
	httpClient   *http.Client
	logger       *infra.Logger
}

type submitRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type submitResponse struct {
	TaskID    string `json:"task_id"`
	RequestID string `json:"request_id"`
}

type taskResponse struct {
	TaskID       string   `json:"task_id"`
	TaskStatus   string   `json:"task_status"`
	OutputImages []string `json:"output_images"`
	RequestID    string   `json:"request_id"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Errors  struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// NewClient constructs a client with defaults for any zero option. A zero
// PollInterval is kept as-is so tests can poll without waiting.
func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("modelscope: invalid base url %q", opts.BaseURL)
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	maxPolls := opts.MaxPolls
	if maxPolls <= 0 {
		maxPolls = defaultMaxPolls
	}
	pollInterval := opts.PollInterval
	if pollInterval < 0 {
		pollInterval = defaultPollInterval
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Client{
		baseURL:      baseURL,
		model:        model,
		maxPolls:     maxPolls,
		pollInterval: pollInterval,
		httpClient:   httpClient,
		logger:       logger,
	}, nil
}

// Model returns the configured image model identifier.
func (c *Client) Model() string {
	return c.model
}

// Submit starts an asynchronous generation and returns the job id.
func (c *Client) Submit(ctx context.Context, credential, prompt string) (string, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return "", domain.ErrMissingCredential
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("modelscope: prompt is required: %w", domain.ErrInvalidInput)
	}
	body, err := json.Marshal(submitRequest{Model: c.model, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("modelscope: encode request: %w", err)
	}
	headers := http.Header{}
	headers.Set("X-ModelScope-Async-Mode", "true")

	var decoded submitResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/v1/images/generations", credential, headers, body, &decoded); err != nil {
		return "", err
	}
	jobID := strings.TrimSpace(decoded.TaskID)
	if jobID == "" {
		return "", fmt.Errorf("modelscope: %w: response has no task_id", domain.ErrUpstream)
	}
	c.logger.Debug().
		Str("model", c.model).
		Str("job_id", jobID).
		Str("request_id", decoded.RequestID).
		Msg("modelscope: job submitted")
	return jobID, nil
}

// Poll fetches the current status of a job once.
func (c *Client) Poll(ctx context.Context, credential, jobID string) (Job, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return Job{}, domain.ErrMissingCredential
	}
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return Job{}, fmt.Errorf("modelscope: job id is required: %w", domain.ErrInvalidInput)
	}
	headers := http.Header{}
	headers.Set("X-ModelScope-Task-Type", "image_generation")

	var decoded taskResponse
	endpoint := c.baseURL + "/v1/tasks/" + url.PathEscape(jobID)
	if err := c.do(ctx, http.MethodGet, endpoint, credential, headers, nil, &decoded); err != nil {
		return Job{ID: jobID, Status: JobPending}, err
	}
	return toJob(jobID, decoded), nil
}

// AwaitCompletion polls until the job is terminal or the poll budget is spent.
// It waits the poll interval between polls but not after the last one. An
// exhausted budget yields a Job with status JobTimeout and a nil error; errors
// are reserved for transport failures and cancellation.
func (c *Client) AwaitCompletion(ctx context.Context, credential, jobID string) (Job, error) {
	job := Job{ID: jobID, Status: JobPending}
	for poll := 1; poll <= c.maxPolls; poll++ {
		current, err := c.Poll(ctx, credential, jobID)
		current.Polls = poll
		if err != nil {
			return current, err
		}
		job = current
		c.logger.Debug().
			Str("job_id", jobID).
			Int("poll", poll).
			Str("status", string(job.Status)).
			Msg("modelscope: job polled")
		if job.Status.Terminal() {
			return job, nil
		}
		if poll == c.maxPolls {
			break
		}
		if err := wait(ctx, c.pollInterval); err != nil {
			return job, err
		}
	}
	job.Status = JobTimeout
	c.logger.Warn().
		Str("job_id", jobID).
		Int("polls", job.Polls).
		Err(domain.ErrPollTimeout).
		Msg("modelscope: job did not finish")
	return job, nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func toJob(jobID string, resp taskResponse) Job {
	job := Job{ID: jobID, Status: JobPending}
	switch strings.ToUpper(strings.TrimSpace(resp.TaskStatus)) {
	case "SUCCEED", "SUCCEEDED":
		job.Status = JobSucceeded
		for _, u := range resp.OutputImages {
			if trimmed := strings.TrimSpace(u); trimmed != "" {
				job.ResultURL = trimmed
				break
			}
		}
		// A success without an image is as useless as a failure.
		if job.ResultURL == "" {
			job.Status = JobFailed
		}
	case "FAILED", "FAIL", "CANCELED":
		job.Status = JobFailed
	}
	return job
}

func (c *Client) do(ctx context.Context, method, endpoint, credential string, headers http.Header, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("modelscope: build request: %w", err)
	}
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+credential)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("modelscope: %w", ctxErr)
		}
		return fmt.Errorf("modelscope: %w: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("modelscope: %w: read response: %v", domain.ErrUpstream, err)
	}
	if resp.StatusCode >= 300 {
		var detail errorResponse
		if err := json.Unmarshal(raw, &detail); err == nil {
			if msg := firstNonEmpty(detail.Message, detail.Errors.Message); msg != "" {
				return fmt.Errorf("modelscope: %w: status %d: %s", domain.ErrUpstream, resp.StatusCode, msg)
			}
		}
		return fmt.Errorf("modelscope: %w: status %d: %s", domain.ErrUpstream, resp.StatusCode, truncateForLog(strings.TrimSpace(string(raw)), maxErrorBodyRunes))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("modelscope: %w: decode response: %v", domain.ErrUpstream, err)
	}
	return nil
}

func truncateForLog(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
