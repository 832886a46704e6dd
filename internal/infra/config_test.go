package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("IMAGE_PROVIDER", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("COMFYUI_POLL_INTERVAL_SECONDS", "")
	t.Setenv("COMFYUI_TIMEOUT_SECONDS", "")
	t.Setenv("GENERATE_TIMEOUT_SECONDS", "")
	t.Setenv("DISABLE_IMAGE_GENERATION", "")
	t.Setenv("DALL_E_3_QUALITY", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ComfyUIPollInterval != 4*time.Second {
		t.Fatalf("poll interval = %s, want 4s", cfg.ComfyUIPollInterval)
	}
	if cfg.ComfyUITimeout != 300*time.Second {
		t.Fatalf("timeout = %s, want 300s", cfg.ComfyUITimeout)
	}
	if cfg.GenerateTimeout != 120*time.Second {
		t.Fatalf("generate timeout = %s, want 120s", cfg.GenerateTimeout)
	}
	if cfg.DisableImageGeneration {
		t.Fatalf("generation should be enabled by default")
	}
	if cfg.DallE3Quality != "standard" {
		t.Fatalf("dall-e-3 quality = %q, want standard", cfg.DallE3Quality)
	}
	if cfg.LLMProvider != "openai" {
		t.Fatalf("llm provider = %q, want openai", cfg.LLMProvider)
	}
	if len(cfg.ImageProvider) != 0 {
		t.Fatalf("image provider = %#v, want empty", cfg.ImageProvider)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Fatalf("cors origins = %#v, want [*]", cfg.CORSOrigins)
	}
}

func TestLoadConfigParsesProviderList(t *testing.T) {
	t.Setenv("IMAGE_PROVIDER", " ComfyUI , dall-e-3,, ")
	t.Setenv("COMFYUI_URL", "http://comfy.local:8188/")
	t.Setenv("DISABLE_IMAGE_GENERATION", "true")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	want := []string{"comfyui", "dall-e-3"}
	if len(cfg.ImageProvider) != len(want) {
		t.Fatalf("ImageProvider = %#v, want %#v", cfg.ImageProvider, want)
	}
	for i := range want {
		if cfg.ImageProvider[i] != want[i] {
			t.Fatalf("ImageProvider[%d] = %q, want %q", i, cfg.ImageProvider[i], want[i])
		}
	}
	if cfg.ComfyUIURL != "http://comfy.local:8188" {
		t.Fatalf("ComfyUIURL = %q, trailing slash should be trimmed", cfg.ComfyUIURL)
	}
	if !cfg.DisableImageGeneration {
		t.Fatalf("DisableImageGeneration should be true")
	}
}

func TestLoadConfigRejectsTimeoutShorterThanInterval(t *testing.T) {
	t.Setenv("COMFYUI_POLL_INTERVAL_SECONDS", "10")
	t.Setenv("COMFYUI_TIMEOUT_SECONDS", "5")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for timeout shorter than poll interval")
	}
}

func TestLoadConfigRejectsUnknownLLMProvider(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "llama")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for unsupported llm provider")
	}
}

func TestConfigWarnings(t *testing.T) {
	cfg := &Config{ComfyUIWorkflow: "{not json", DatabaseURL: "postgres://x"}
	warnings := cfg.Warnings()
	if len(warnings) != 1 {
		t.Fatalf("warnings = %#v, want one workflow warning", warnings)
	}
}
