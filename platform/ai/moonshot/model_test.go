package moonshot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

func TestGenerateContentSendsSystemInstruction(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("missing bearer token")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  hola  "}}]}`))
	}))
	defer server.Close()

	m := NewModel(Config{APIKey: "key", BaseURL: server.URL + "/"})
	req := &model.LLMRequest{
		Config: &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Role: "user", Parts: []*genai.Part{{Text: "eres compositor"}}},
		},
		Contents: []*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: "escribe"}}}},
	}

	var text string
	for resp, err := range m.GenerateContent(context.Background(), req, false) {
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		text = resp.Content.Parts[0].Text
	}

	if text != "hola" {
		t.Fatalf("expected trimmed text, got %q", text)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "escribe" {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
}

func TestGenerateContentReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer server.Close()

	m := NewModel(Config{APIKey: "key", BaseURL: server.URL})
	for _, err := range m.GenerateContent(context.Background(), &model.LLMRequest{}, false) {
		if err == nil {
			t.Fatal("expected error for 429")
		}
	}
}
