package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

func TestFirstJSONObject(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{name: "plain", raw: `{"decision":"generate"}`, want: `{"decision":"generate"}`},
		{name: "prose", raw: `Sure! {"decision":"search","reason":"a {b}"} hope that helps`, want: `{"decision":"search","reason":"a {b}"}`},
		{name: "fence", raw: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "skip_invalid", raw: `{not json} then {"a":2}`, want: `{"a":2}`},
		{name: "first_of_two", raw: `{"a":1} {"a":2}`, want: `{"a":1}`},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := FirstJSONObject(tc.raw)
			if err != nil {
				t.Fatalf("FirstJSONObject error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFirstJSONObjectMissing(t *testing.T) {
	for _, raw := range []string{"", "no json here", "{unterminated"} {
		if _, err := FirstJSONObject(raw); !errors.Is(err, ErrNoJSON) {
			t.Fatalf("FirstJSONObject(%q) err = %v, want ErrNoJSON", raw, err)
		}
	}
}

func TestOpenAICompleterSendsMessages(t *testing.T) {
	var captured openAIChatRequest
	completer, err := NewOpenAICompleter(OpenAIOptions{
		APIKey: "sk-test",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.URL.Path != "/v1/chat/completions" {
				t.Fatalf("unexpected path %s", r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
				t.Fatalf("Authorization = %q", got)
			}
			if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			return jsonResponse(http.StatusOK, `{"choices":[{"message":{"content":" {\"decision\":\"search\"} "}}]}`), nil
		})},
	})
	if err != nil {
		t.Fatalf("NewOpenAICompleter: %v", err)
	}
	text, err := completer.Complete(context.Background(), Request{System: "sys", User: "hello", MaxTokens: 200})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != `{"decision":"search"}` {
		t.Fatalf("text = %q", text)
	}
	if captured.Model != defaultOpenAIModel || captured.MaxTokens != 200 {
		t.Fatalf("request = %#v", captured)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" || captured.Messages[1].Content != "hello" {
		t.Fatalf("messages = %#v", captured.Messages)
	}
}

func TestOpenAICompleterErrors(t *testing.T) {
	if _, err := NewOpenAICompleter(OpenAIOptions{}); err == nil {
		t.Fatal("expected error for missing api key")
	}
	completer, _ := NewOpenAICompleter(OpenAIOptions{
		APIKey: "k",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusTooManyRequests, `{"error":"slow down"}`), nil
		})},
	})
	_, err := completer.Complete(context.Background(), Request{User: "x"})
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected status error, got %v", err)
	}

	completer, _ = NewOpenAICompleter(OpenAIOptions{
		APIKey: "k",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{"choices":[]}`), nil
		})},
	})
	if _, err := completer.Complete(context.Background(), Request{User: "x"}); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestGeminiCompleter(t *testing.T) {
	var captured geminiRequest
	completer, err := NewGeminiCompleter(GeminiOptions{
		APIKey: "g-key",
		Model:  "gemini-test",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if !strings.HasSuffix(r.URL.Path, "/models/gemini-test:generateContent") {
				t.Fatalf("unexpected path %s", r.URL.Path)
			}
			if r.Header.Get("x-goog-api-key") != "g-key" {
				t.Fatalf("missing api key header")
			}
			if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			return jsonResponse(http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"{\"decision\":"},{"text":"\"generate\"}"}]}}]}`), nil
		})},
	})
	if err != nil {
		t.Fatalf("NewGeminiCompleter: %v", err)
	}
	text, err := completer.Complete(context.Background(), Request{System: "sys", User: "u", MaxTokens: 200})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != `{"decision":"generate"}` {
		t.Fatalf("text = %q", text)
	}
	if captured.SystemInstruction == nil || captured.SystemInstruction.Parts[0].Text != "sys" {
		t.Fatalf("system instruction not sent: %#v", captured.SystemInstruction)
	}
	if captured.GenerationConfig.MaxOutputTokens != 200 {
		t.Fatalf("max tokens = %d", captured.GenerationConfig.MaxOutputTokens)
	}
}
