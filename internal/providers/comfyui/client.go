// Package comfyui drives a self-hosted ComfyUI server through its
// submit, history-poll and view endpoints.
package comfyui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"imagesvc/internal/domain"
	"imagesvc/internal/infra"
	"imagesvc/internal/poller"
	"imagesvc/internal/storage"
)

// Backend names this generator in errors, logs and metrics.
const Backend = "comfyui"

const (
	submitTimeout  = 30 * time.Second
	historyTimeout = 30 * time.Second
	viewTimeout    = 60 * time.Second
	maxImageBytes  = 64 << 20
)

// Options configures the ComfyUI generator.
type Options struct {
	BaseURL      string
	Workflow     string
	PollInterval time.Duration
	Timeout      time.Duration
	Clock        poller.Clock
	HTTPClient   *http.Client
	Logger       *infra.Logger
}

// Generator submits a workflow, waits for it and downloads the first image.
type Generator struct {
	baseURL    string
	workflow   string
	interval   time.Duration
	timeout    time.Duration
	clock      poller.Clock
	httpClient *http.Client
	maxBytes   int64
	logger     *infra.Logger
}

func New(opts Options) *Generator {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Generator{
		baseURL:    strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		workflow:   opts.Workflow,
		interval:   opts.PollInterval,
		timeout:    opts.Timeout,
		clock:      opts.Clock,
		httpClient: httpClient,
		maxBytes:   maxImageBytes,
		logger:     infra.LoggerOrDiscard(opts.Logger),
	}
}

func (g *Generator) Name() string { return Backend }

// Configured reports whether both the server URL and workflow are set.
func (g *Generator) Configured() bool {
	return g != nil && g.baseURL != "" && strings.TrimSpace(g.workflow) != ""
}

// ImageRef is one image entry of an output node.
type ImageRef struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

type NodeOutput struct {
	Images []ImageRef `json:"images"`
}

// History is the /history entry of one job.
type History struct {
	Status  map[string]json.RawMessage `json:"status"`
	Outputs map[string]NodeOutput      `json:"outputs"`
}

// completedFlag reports an explicit status.completed == true.
func (e History) completedFlag() bool {
	var done bool
	if raw, ok := e.Status["completed"]; ok {
		_ = json.Unmarshal(raw, &done)
	}
	return done
}

func (e History) failure() (string, bool) {
	if raw, ok := e.Status["error"]; ok {
		return strings.TrimSpace(string(raw)), true
	}
	var statusStr string
	if raw, ok := e.Status["status_str"]; ok && json.Unmarshal(raw, &statusStr) == nil && statusStr == "error" {
		return "status_str=error", true
	}
	return "", false
}

// Generate runs one workflow end to end and returns the saved artifact path.
func (g *Generator) Generate(ctx context.Context, prompt, outputDir string) (string, error) {
	if !g.Configured() {
		return "", domain.NewGenerationError(Backend, domain.ErrConfiguration, errors.New("COMFYUI_URL and COMFYUI_WORKFLOW must be set"))
	}
	wf, err := ParseWorkflow(g.workflow)
	if err != nil {
		return "", domain.NewGenerationError(Backend, domain.ErrConfiguration, err)
	}
	nodeID, err := wf.InjectPrompt(prompt)
	if err != nil {
		return "", domain.NewGenerationError(Backend, domain.ErrConfiguration, err)
	}
	g.logger.Debug().Str("node", nodeID).Msg("comfyui: prompt injected")

	job, err := g.Submit(ctx, wf)
	if err != nil {
		return "", err
	}
	entry, err := g.Wait(ctx, job)
	if err != nil {
		return "", err
	}
	return g.Fetch(ctx, job, entry, outputDir)
}

// Submit posts the workflow and returns a pending job.
func (g *Generator) Submit(ctx context.Context, wf Workflow) (*domain.GenerationJob, error) {
	payload, err := json.Marshal(map[string]any{"prompt": wf, "client_id": uuid.NewString()})
	if err != nil {
		return nil, domain.NewGenerationError(Backend, domain.ErrSubmission, fmt.Errorf("encode workflow: %w", err))
	}
	body, status, err := g.do(ctx, http.MethodPost, g.baseURL+"/prompt", payload, submitTimeout)
	if err != nil {
		return nil, domain.NewGenerationError(Backend, domain.ErrSubmission, err)
	}
	if status < 200 || status >= 300 {
		return nil, domain.NewGenerationError(Backend, domain.ErrSubmission, fmt.Errorf("status %d: %s", status, truncate(body)))
	}
	var decoded struct {
		PromptID string `json:"prompt_id"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil || strings.TrimSpace(decoded.PromptID) == "" {
		return nil, domain.NewGenerationError(Backend, domain.ErrSubmission, errors.New("no prompt_id returned"))
	}
	job := domain.NewGenerationJob(decoded.PromptID, g.now())
	g.logger.Info().Str("job", job.JobID).Msg("comfyui: workflow submitted")
	return job, nil
}

// Wait polls the history endpoint until the job completes, fails or the
// configured timeout passes.
func (g *Generator) Wait(ctx context.Context, job *domain.GenerationJob) (History, error) {
	opts := poller.Options{
		Interval: g.interval,
		Timeout:  g.timeout,
		Clock:    g.clock,
		Name:     job.JobID,
		Logger:   g.logger,
	}
	entry, err := poller.Await(ctx, opts, func(ctx context.Context) (History, bool, error) {
		return g.pollHistory(ctx, job)
	})
	if err == nil {
		return entry, nil
	}
	if !job.Status.Terminal() {
		_ = job.Advance(domain.JobStatusFailed)
	}
	var genErr *domain.GenerationError
	switch {
	case errors.As(err, &genErr):
		return History{}, err
	case errors.Is(err, poller.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return History{}, domain.NewGenerationError(Backend, domain.ErrTimeout, fmt.Errorf("job %s: %w", job.JobID, err))
	default:
		return History{}, domain.NewGenerationError(Backend, domain.ErrExecution, err)
	}
}

func (g *Generator) pollHistory(ctx context.Context, job *domain.GenerationJob) (History, bool, error) {
	body, status, err := g.do(ctx, http.MethodGet, g.baseURL+"/history/"+url.PathEscape(job.JobID), nil, historyTimeout)
	if err != nil {
		if ctx.Err() != nil {
			return History{}, false, ctx.Err()
		}
		return History{}, false, poller.Retry(err)
	}
	if status < 200 || status >= 300 {
		return History{}, false, poller.Retry(fmt.Errorf("history status %d", status))
	}
	var history map[string]History
	if err := json.Unmarshal(body, &history); err != nil {
		return History{}, false, poller.Retry(fmt.Errorf("decode history: %w", err))
	}
	entry, ok := history[job.JobID]
	if !ok {
		return History{}, false, nil
	}
	if job.Status == domain.JobStatusPending {
		_ = job.Advance(domain.JobStatusRunning)
	}
	// An explicit error wins over partial outputs.
	if !entry.completedFlag() {
		if detail, failed := entry.failure(); failed {
			_ = job.Advance(domain.JobStatusFailed)
			return History{}, false, domain.NewGenerationError(Backend, domain.ErrExecution, fmt.Errorf("job %s: %s", job.JobID, detail))
		}
		if len(entry.Outputs) == 0 {
			return History{}, false, nil
		}
	}
	_ = job.Advance(domain.JobStatusCompleted)
	job.Outputs = artifactRefs(entry)
	return entry, true, nil
}

// Fetch downloads the first image of the first output node that has images.
func (g *Generator) Fetch(ctx context.Context, job *domain.GenerationJob, entry History, outputDir string) (string, error) {
	ref, ok := firstImage(entry)
	if !ok {
		return "", domain.NewGenerationError(Backend, domain.ErrFetch, fmt.Errorf("job %s: no images in outputs", job.JobID))
	}
	params := url.Values{}
	params.Set("filename", ref.Filename)
	if ref.Subfolder != "" {
		params.Set("subfolder", ref.Subfolder)
	}
	params.Set("type", "output")

	data, status, err := g.do(ctx, http.MethodGet, g.baseURL+"/view?"+params.Encode(), nil, viewTimeout)
	if err != nil {
		return "", domain.NewGenerationError(Backend, domain.ErrDownload, err)
	}
	if status < 200 || status >= 300 {
		return "", domain.NewGenerationError(Backend, domain.ErrDownload, fmt.Errorf("view %s: status %d", ref.Filename, status))
	}
	art, err := storage.SaveArtifact(ctx, outputDir, storage.ExtFromFilename(ref.Filename, "png"), data)
	if err != nil {
		return "", domain.NewGenerationError(Backend, domain.ErrDownload, err)
	}
	g.logger.Info().
		Str("job", job.JobID).
		Str("path", art.Path).
		Int("width", art.Dimensions.Width).
		Int("height", art.Dimensions.Height).
		Dur("elapsed", g.now().Sub(job.SubmittedAt)).
		Msg("comfyui: image saved")
	return art.Path, nil
}

func firstImage(entry History) (ImageRef, bool) {
	for _, id := range sortedNodeIDs(entry.Outputs) {
		for _, img := range entry.Outputs[id].Images {
			if strings.TrimSpace(img.Filename) != "" {
				return img, true
			}
		}
	}
	return ImageRef{}, false
}

func artifactRefs(entry History) []domain.ArtifactRef {
	var refs []domain.ArtifactRef
	for _, id := range sortedNodeIDs(entry.Outputs) {
		for _, img := range entry.Outputs[id].Images {
			refs = append(refs, domain.ArtifactRef{NodeID: id, Filename: img.Filename, Subfolder: img.Subfolder, Type: img.Type})
		}
	}
	return refs
}

func (g *Generator) do(ctx context.Context, method, endpoint string, payload []byte, timeout time.Duration) ([]byte, int, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, g.maxBytes+1))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if int64(len(body)) > g.maxBytes {
		return nil, resp.StatusCode, fmt.Errorf("response exceeds %d bytes", g.maxBytes)
	}
	return body, resp.StatusCode, nil
}

func (g *Generator) now() time.Time {
	if g.clock != nil {
		return g.clock.Now()
	}
	return time.Now()
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		return s[:200]
	}
	return s
}
