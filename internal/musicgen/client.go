// Package musicgen is the client for the asynchronous music generation API.
// Submit starts a generation; completion arrives later on the callback endpoint.
package musicgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nurture_backend/platform/config"
)

const (
	submitPath     = "/api/v1/generate"
	requestTimeout = 30 * time.Second
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("music generation not configured")

// SubmitRequest is one generation request.
type SubmitRequest struct {
	Title       string
	Style       string
	Lyrics      string
	CallbackURL string
}

// Submitter is the narrow interface the music pipeline depends on.
type Submitter interface {
	Submit(ctx context.Context, req SubmitRequest) (string, error)
}

// Client talks to the music generation HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// New creates a client from configuration.
func New(cfg config.MusicGenConfig) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.GetMusicAPIURL(), "/"),
		apiKey:     cfg.GetMusicAPIKey(),
		model:      cfg.GetMusicModel(),
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

type generateRequest struct {
	CustomMode   bool   `json:"customMode"`
	Instrumental bool   `json:"instrumental"`
	Model        string `json:"model"`
	Prompt       string `json:"prompt"`
	Style        string `json:"style"`
	Title        string `json:"title"`
	CallBackURL  string `json:"callBackUrl"`
}

type generateResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		TaskID string `json:"taskId"`
	} `json:"data"`
}

// Submit starts a generation and returns the provider task id.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(generateRequest{
		CustomMode:   true,
		Instrumental: false,
		Model:        c.model,
		Prompt:       req.Lyrics,
		Style:        req.Style,
		Title:        req.Title,
		CallBackURL:  req.CallbackURL,
	})
	if err != nil {
		return "", fmt.Errorf("encode generate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+submitPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create generate request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send generate request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read generate response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("music api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed generateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	if parsed.Code != 0 && parsed.Code != http.StatusOK {
		return "", fmt.Errorf("music api error %d: %s", parsed.Code, parsed.Msg)
	}
	if strings.TrimSpace(parsed.Data.TaskID) == "" {
		return "", errors.New("music api returned no task id")
	}
	return parsed.Data.TaskID, nil
}
