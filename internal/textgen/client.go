// Package textgen wraps the generative text API behind a single Complete call.
// Each distinct system role gets its own ADK agent, built once and cached. Runs
// for different calls proceed concurrently.
package textgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"nurture_backend/platform/ai/moonshot"
	"nurture_backend/platform/config"
	"nurture_backend/platform/sanitize"

	"github.com/google/uuid"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"
)

const appName = "nurture-textgen"

// ErrEmptyCompletion is returned when the model answered with no usable text.
var ErrEmptyCompletion = errors.New("text generation returned empty result")

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("text generation not configured")

// Completer is the narrow interface pipelines depend on.
type Completer interface {
	Complete(ctx context.Context, systemRole, prompt string) (string, error)
}

// Client implements Completer over the Moonshot model via ADK agents.
type Client struct {
	model          *moonshot.KimiModel
	sessionService session.Service
	timeout        time.Duration
	enabled        bool

	mu      sync.Mutex
	runners map[string]*runner.Runner
}

// New builds a client from configuration.
func New(cfg config.TextGenConfig) *Client {
	return &Client{
		model: moonshot.NewModel(moonshot.Config{
			APIKey:  cfg.GetMoonshotAPIKey(),
			BaseURL: cfg.GetMoonshotBaseURL(),
			Model:   cfg.GetMoonshotModel(),
			Timeout: cfg.GetTextGenTimeout(),
		}),
		sessionService: session.InMemoryService(),
		timeout:        cfg.GetTextGenTimeout(),
		enabled:        strings.TrimSpace(cfg.GetMoonshotAPIKey()) != "",
		runners:        make(map[string]*runner.Runner),
	}
}

// Complete runs prompt under systemRole and returns the cleaned completion.
func (c *Client) Complete(ctx context.Context, systemRole, prompt string) (string, error) {
	if !c.enabled {
		return "", ErrNotConfigured
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.mu.Lock()
	r, err := c.runnerFor(systemRole)
	c.mu.Unlock()
	if err != nil {
		return "", err
	}

	sessionID := uuid.New().String()
	userID := "textgen-" + sessionID
	if _, err := c.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   appName,
		UserID:    userID,
		SessionID: sessionID,
	}); err != nil {
		return "", fmt.Errorf("textgen: create session: %w", err)
	}
	defer func() {
		_ = c.sessionService.Delete(context.WithoutCancel(ctx), &session.DeleteRequest{
			AppName:   appName,
			UserID:    userID,
			SessionID: sessionID,
		})
	}()

	userMessage := &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{{Text: prompt}},
	}

	var output strings.Builder
	for event, err := range r.Run(ctx, userID, sessionID, userMessage, agent.RunConfig{StreamingMode: agent.StreamingModeNone}) {
		if err != nil {
			return "", fmt.Errorf("textgen: run failed: %w", err)
		}
		if event == nil || event.Content == nil {
			continue
		}
		for _, part := range event.Content.Parts {
			if part != nil {
				output.WriteString(part.Text)
			}
		}
	}

	text := sanitize.GeneratedText(output.String())
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

// runnerFor returns the cached runner for systemRole. Callers hold c.mu.
func (c *Client) runnerFor(systemRole string) (*runner.Runner, error) {
	if r, ok := c.runners[systemRole]; ok {
		return r, nil
	}

	adkAgent, err := llmagent.New(llmagent.Config{
		Name:        fmt.Sprintf("TextGenerator%d", len(c.runners)+1),
		Model:       c.model,
		Description: "Generates funnel copy, lyrics and music style prompts.",
		Instruction: systemRole,
	})
	if err != nil {
		return nil, fmt.Errorf("textgen: create agent: %w", err)
	}

	r, err := runner.New(runner.Config{
		AppName:        appName,
		Agent:          adkAgent,
		SessionService: c.sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("textgen: create runner: %w", err)
	}

	c.runners[systemRole] = r
	return r, nil
}
