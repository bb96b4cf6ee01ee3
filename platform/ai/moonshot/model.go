// Package moonshot adapts the Moonshot (Kimi) OpenAI-compatible chat API to the
// ADK model.LLM interface.
package moonshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"time"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

const (
	defaultBaseURL = "https://api.moonshot.ai/v1"
	defaultModel   = "kimi-k2-turbo-preview"
	defaultTimeout = 90 * time.Second
)

// Config for Kimi
type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	Timeout         time.Duration
	DisableThinking bool // kimi-k2.5 only; non-thinking mode uses a fixed temperature
}

// KimiModel adapts Moonshot to the ADK model.LLM interface
type KimiModel struct {
	config Config
	client *http.Client
}

func NewModel(cfg Config) *KimiModel {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &KimiModel{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (m *KimiModel) Name() string {
	return m.config.Model
}

// GenerateContent adapts ADK requests to Kimi's chat completions endpoint.
// Streaming is not supported; a single response is yielded.
func (m *KimiModel) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		resp, err := m.generate(ctx, req)
		yield(resp, err)
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string            `json:"model"`
	Messages    []chatMessage     `json:"messages"`
	Temperature *float64          `json:"temperature,omitempty"`
	Thinking    map[string]string `json:"thinking,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error interface{} `json:"error"`
}

func (m *KimiModel) generate(ctx context.Context, req *model.LLMRequest) (*model.LLMResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("kimi: nil request")
	}

	payload := chatRequest{
		Model:    m.config.Model,
		Messages: buildMessages(req),
	}
	if m.config.DisableThinking {
		payload.Thinking = map[string]string{"type": "disabled"}
	} else if req.Config != nil && req.Config.Temperature != nil {
		t := float64(*req.Config.Temperature)
		payload.Temperature = &t
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("kimi: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("kimi: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+m.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("kimi api error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode kimi response: %v", err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("kimi api error: %v", result.Error)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("kimi api error: empty choices")
	}

	parts := make([]*genai.Part, 0, 1)
	if text := strings.TrimSpace(result.Choices[0].Message.Content); text != "" {
		parts = append(parts, genai.NewPartFromText(text))
	}

	return &model.LLMResponse{
		Content: &genai.Content{
			Role:  genai.RoleModel,
			Parts: parts,
		},
	}, nil
}

// buildMessages flattens the system instruction and conversation into chat messages.
func buildMessages(req *model.LLMRequest) []chatMessage {
	messages := make([]chatMessage, 0, len(req.Contents)+1)
	if req.Config != nil && req.Config.SystemInstruction != nil {
		if text := contentText(req.Config.SystemInstruction); text != "" {
			messages = append(messages, chatMessage{Role: "system", Content: text})
		}
	}
	for _, content := range req.Contents {
		if content == nil {
			continue
		}
		text := contentText(content)
		if text == "" {
			continue
		}
		messages = append(messages, chatMessage{Role: roleForContent(content.Role), Content: text})
	}
	return messages
}

func roleForContent(role string) string {
	if role == "model" {
		return "assistant"
	}
	return "user"
}

func contentText(content *genai.Content) string {
	var builder strings.Builder
	for _, part := range content.Parts {
		if part == nil || strings.TrimSpace(part.Text) == "" {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(part.Text)
	}
	return strings.TrimSpace(builder.String())
}
