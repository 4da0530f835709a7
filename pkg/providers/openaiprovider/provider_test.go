package openaiprovider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go/v3/option"
)

func newMockProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewProviderWithOptions("gpt-4o",
		option.WithAPIKey("test-key"),
		option.WithBaseURL(srv.URL),
		option.WithMaxRetries(0),
	)
}

func completionJSON(text string) string {
	return `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"model": "gpt-4o",
		"choices": [{
			"index": 0,
			"finish_reason": "stop",
			"message": {"role": "assistant", "content": ` + jsonString(text) + `}
		}]
	}`
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestSummarize_TextMode(t *testing.T) {
	var gotBody map[string]any
	p := newMockProvider(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, completionJSON("  這是摘要。 "))
	})

	got, err := p.Summarize(context.Background(), "分析這段文字", "")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if got != "這是摘要。" {
		t.Errorf("reply = %q, want trimmed 這是摘要。", got)
	}
	if gotBody["model"] != "gpt-4o" {
		t.Errorf("model = %v", gotBody["model"])
	}
	msgs := gotBody["messages"].([]any)
	if len(msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(msgs))
	}
	msg := msgs[0].(map[string]any)
	if msg["content"] != "分析這段文字" {
		t.Errorf("content = %v", msg["content"])
	}
}

func TestSummarize_VisionModeCarriesImageURL(t *testing.T) {
	var raw string
	p := newMockProvider(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		raw = string(body)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, completionJSON("圖片裡是一隻貓"))
	})

	got, err := p.Summarize(context.Background(), "描述這張圖", "https://bot.example.com/image/obj-1?auth=tok")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if got != "圖片裡是一隻貓" {
		t.Errorf("reply = %q", got)
	}
	if !strings.Contains(raw, "image_url") {
		t.Errorf("request missing image_url part: %s", raw)
	}
	if !strings.Contains(raw, "https://bot.example.com/image/obj-1?auth=tok") {
		t.Errorf("request missing signed URL: %s", raw)
	}
	if !strings.Contains(raw, "描述這張圖") {
		t.Errorf("request missing prompt text: %s", raw)
	}
}

func TestSummarize_EmptyChoices(t *testing.T) {
	p := newMockProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"chatcmpl-2","object":"chat.completion","choices":[]}`)
	})

	if _, err := p.Summarize(context.Background(), "hi", ""); err == nil {
		t.Error("expected error for empty choices")
	}
}

func TestSummarize_APIError(t *testing.T) {
	p := newMockProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"message":"rate limited"}}`)
	})

	if _, err := p.Summarize(context.Background(), "hi", ""); err == nil {
		t.Error("expected error for 429 response")
	}
}
