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
	"strings"
	"time"

	"imagesvc/internal/domain"
	"imagesvc/internal/infra"
	"imagesvc/internal/infra/credentials"
	"imagesvc/internal/storage"
)

const openAIImageSize = "1024x1024"

type OpenAIOptions struct {
	Model       string
	Quality     string
	BaseURL     string
	Credentials credentials.Lookup
	HTTPClient  *http.Client
	// Timeout bounds one Generate call; defaults to two minutes.
	Timeout     time.Duration
	Logger      *infra.Logger
}

// OpenAIGenerator calls the images/generations endpoint (dall-e-3, gpt-image-1.5).
type OpenAIGenerator struct {
	model      string
	quality    string
	baseURL    string
	creds      credentials.Lookup
	httpClient *http.Client
	timeout    time.Duration
	logger     *infra.Logger
}

func NewOpenAIGenerator(opts OpenAIOptions) *OpenAIGenerator {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = generateTimeout
	}
	return &OpenAIGenerator{
		model:      coalesce(opts.Model, string(KindDallE3)),
		quality:    opts.Quality,
		baseURL:    strings.TrimRight(coalesce(opts.BaseURL, "https://api.openai.com/v1"), "/"),
		creds:      opts.Credentials,
		httpClient: httpClient,
		timeout:    timeout,
		logger:     infra.LoggerOrDiscard(opts.Logger),
	}
}

func (o *OpenAIGenerator) Name() string { return o.model }

type openAIImageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Quality        string `json:"quality,omitempty"`
	Size           string `json:"size"`
	ResponseFormat string `json:"response_format,omitempty"`
}

type openAIImageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
		URL     string `json:"url"`
	} `json:"data"`
}

func (o *OpenAIGenerator) Generate(ctx context.Context, prompt, outputDir string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	key := credentials.Resolve(ctx, o.creds, credentials.ProviderOpenAI, o.logger)
	if key == "" {
		return "", o.fail(domain.ErrConfiguration, errors.New("OPENAI_API_KEY is not set"))
	}
	payload := openAIImageRequest{
		Model:   o.model,
		Prompt:  prompt,
		N:       1,
		Quality: o.quality,
		Size:    openAIImageSize,
	}
	// gpt-image models always answer with base64 and reject the parameter.
	if o.model == string(KindDallE3) {
		payload.ResponseFormat = "b64_json"
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", o.fail(domain.ErrSubmission, fmt.Errorf("encode request: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/images/generations", bytes.NewReader(body))
	if err != nil {
		return "", o.fail(domain.ErrSubmission, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", o.fail(domain.ErrSubmission, fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", o.fail(domain.ErrSubmission, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))))
	}
	var decoded openAIImageResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", o.fail(domain.ErrExecution, fmt.Errorf("decode response: %w", err))
	}
	if len(decoded.Data) == 0 {
		return "", o.fail(domain.ErrExecution, errors.New("no image returned"))
	}

	var data []byte
	switch first := decoded.Data[0]; {
	case first.B64JSON != "":
		data, err = base64.StdEncoding.DecodeString(first.B64JSON)
		if err != nil {
			return "", o.fail(domain.ErrFetch, fmt.Errorf("decode image: %w", err))
		}
	case first.URL != "":
		data, err = download(ctx, o.httpClient, first.URL)
		if err != nil {
			return "", o.fail(domain.ErrDownload, err)
		}
	default:
		return "", o.fail(domain.ErrExecution, errors.New("image payload is empty"))
	}

	art, err := storage.SaveArtifact(ctx, outputDir, "png", data)
	if err != nil {
		return "", o.fail(domain.ErrFetch, err)
	}
	o.logger.Debug().Str("model", o.model).Str("path", art.Path).Int("width", art.Dimensions.Width).Msg("generate: openai image saved")
	return art.Path, nil
}

func (o *OpenAIGenerator) fail(kind, err error) error {
	return domain.NewGenerationError(o.model, kind, err)
}

func download(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("download status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return data, nil
}

var _ Generator = (*OpenAIGenerator)(nil)
