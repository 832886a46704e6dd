package generate

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"imagesvc/internal/domain"
	"imagesvc/internal/infra"
	"imagesvc/internal/infra/credentials"
	"imagesvc/internal/storage"
)

const (
	GeminiFlashImageModel = "gemini-2.5-flash-image-preview"
	NanoBananaProModel    = "gemini-3-pro-image-preview"
)

type GeminiOptions struct {
	// Name is reported in errors and metrics; defaults to the model.
	Name        string
	Model       string
	BaseURL     string
	Credentials credentials.Lookup
	HTTPClient  *http.Client
	// Timeout bounds one Generate call; defaults to two minutes.
	Timeout     time.Duration
	Logger      *infra.Logger
}

// GeminiGenerator writes the first inline image returned by generateContent.
type GeminiGenerator struct {
	name       string
	model      string
	baseURL    string
	creds      credentials.Lookup
	httpClient *http.Client
	timeout    time.Duration
	logger     *infra.Logger
}

func NewGeminiGenerator(opts GeminiOptions) *GeminiGenerator {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = generateTimeout
	}
	model := coalesce(opts.Model, GeminiFlashImageModel)
	return &GeminiGenerator{
		name:       coalesce(opts.Name, model),
		model:      model,
		baseURL:    strings.TrimRight(coalesce(opts.BaseURL, "https://generativelanguage.googleapis.com/v1beta"), "/"),
		creds:      opts.Credentials,
		httpClient: httpClient,
		timeout:    timeout,
		logger:     infra.LoggerOrDiscard(opts.Logger),
	}
}

func (g *GeminiGenerator) Name() string { return g.name }

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		ResponseModalities []string `json:"responseModalities"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt, outputDir string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	key := credentials.Resolve(ctx, g.creds, credentials.ProviderGemini, g.logger)
	if key == "" {
		return "", g.fail(domain.ErrConfiguration, errors.New("GOOGLE_API_KEY is not set"))
	}
	payload := geminiRequest{Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}}}
	payload.GenerationConfig.ResponseModalities = []string{"TEXT", "IMAGE"}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", g.fail(domain.ErrSubmission, fmt.Errorf("encode request: %w", err))
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, url.PathEscape(g.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", g.fail(domain.ErrSubmission, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", key)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", g.fail(domain.ErrSubmission, fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		var apiErr geminiErrorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", g.fail(domain.ErrSubmission, fmt.Errorf("status %d: %s", resp.StatusCode, apiErr.Error.Message))
		}
		return "", g.fail(domain.ErrSubmission, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))))
	}
	var decoded geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", g.fail(domain.ErrExecution, fmt.Errorf("decode response: %w", err))
	}

	inline := firstInlineImage(decoded)
	if inline == nil {
		return "", g.fail(domain.ErrExecution, fmt.Errorf("no image generated by %s", g.model))
	}
	data, err := base64.StdEncoding.DecodeString(inline.Data)
	if err != nil {
		return "", g.fail(domain.ErrFetch, fmt.Errorf("decode inline data: %w", err))
	}
	art, err := storage.SaveArtifact(ctx, outputDir, extForMime(inline.MimeType), data)
	if err != nil {
		return "", g.fail(domain.ErrFetch, err)
	}
	g.logger.Debug().Str("model", g.model).Str("path", art.Path).Msg("generate: gemini image saved")
	return art.Path, nil
}

func (g *GeminiGenerator) fail(kind, err error) error {
	return domain.NewGenerationError(g.name, kind, err)
}

func firstInlineImage(resp geminiResponse) *geminiInlineData {
	for _, c := range resp.Candidates {
		for _, part := range c.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				return part.InlineData
			}
		}
	}
	return nil
}

func extForMime(mime string) string {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "jpg"
	}
}

var _ Generator = (*GeminiGenerator)(nil)
