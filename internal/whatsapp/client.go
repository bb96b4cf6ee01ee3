// Package whatsapp is the WhatsApp Cloud (Graph) API client: outbound text and
// media messages, inbound media resolution and phone number status.
package whatsapp

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

	"nurture_backend/platform/config"
	"nurture_backend/platform/logger"
	"nurture_backend/platform/phone"
)

const (
	requestTimeout  = 15 * time.Second
	downloadTimeout = 2 * time.Minute
)

// Payload is one outbound message. Exactly one field is set.
type Payload struct {
	Text     string
	AudioRef string
	VideoRef string
}

// Kind names the payload type.
func (p Payload) Kind() string {
	switch {
	case p.AudioRef != "":
		return "audio"
	case p.VideoRef != "":
		return "video"
	default:
		return "text"
	}
}

// Text builds a text payload.
func Text(body string) Payload { return Payload{Text: body} }

// Audio builds an audio payload from a URL or media id.
func Audio(ref string) Payload { return Payload{AudioRef: ref} }

// Video builds a video payload from a URL or media id.
func Video(ref string) Payload { return Payload{VideoRef: ref} }

// Sender sends a payload to a phone number.
type Sender interface {
	Send(ctx context.Context, phoneNumber string, payload Payload) error
}

// GraphError is a non-2xx Graph API answer.
type GraphError struct {
	Status  int
	Message string
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("whatsapp graph api returned %d: %s", e.Status, e.Message)
}

// Client talks to the Graph API for one business phone number.
type Client struct {
	graphURL      string
	token         string
	phoneNumberID string
	http          *http.Client
	download      *http.Client
	log           *logger.Logger
}

// NewClient creates a Graph API client.
func NewClient(cfg config.WhatsAppConfig, log *logger.Logger) *Client {
	return &Client{
		graphURL:      strings.TrimRight(cfg.GetWhatsAppGraphURL(), "/"),
		token:         cfg.GetWhatsAppToken(),
		phoneNumberID: cfg.GetWhatsAppPhoneNumberID(),
		http:          &http.Client{Timeout: requestTimeout},
		download:      &http.Client{Timeout: downloadTimeout},
		log:           log,
	}
}

type messageRequest struct {
	MessagingProduct string     `json:"messaging_product"`
	RecipientType    string     `json:"recipient_type"`
	To               string     `json:"to"`
	Type             string     `json:"type"`
	Text             *textBody  `json:"text,omitempty"`
	Audio            *mediaBody `json:"audio,omitempty"`
	Video            *mediaBody `json:"video,omitempty"`
}

type textBody struct {
	Body       string `json:"body"`
	PreviewURL bool   `json:"preview_url"`
}

type mediaBody struct {
	ID   string `json:"id,omitempty"`
	Link string `json:"link,omitempty"`
}

// Send delivers payload to phoneNumber after normalizing it.
func (c *Client) Send(ctx context.Context, phoneNumber string, payload Payload) error {
	to := phone.Normalize(phoneNumber)
	if to == "" {
		return fmt.Errorf("whatsapp: empty recipient")
	}

	req := messageRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             payload.Kind(),
	}
	switch payload.Kind() {
	case "audio":
		req.Audio = mediaRef(payload.AudioRef)
	case "video":
		req.Video = mediaRef(payload.VideoRef)
	default:
		if strings.TrimSpace(payload.Text) == "" {
			return fmt.Errorf("whatsapp: empty text message")
		}
		req.Text = &textBody{Body: payload.Text, PreviewURL: strings.Contains(payload.Text, "http")}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal whatsapp payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/messages", c.graphURL, c.phoneNumberID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	if err := c.do(httpReq, nil); err != nil {
		return err
	}

	c.log.Info("whatsapp message sent", "phone", to, "type", req.Type)
	return nil
}

// mediaRef sends URLs as link and anything else as a previously uploaded media id.
func mediaRef(ref string) *mediaBody {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return &mediaBody{Link: ref}
	}
	return &mediaBody{ID: ref}
}

// MediaInfo describes an inbound media object.
type MediaInfo struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	FileSize int64  `json:"file_size"`
}

// ResolveMedia looks up the temporary download URL of a media id.
func (c *Client) ResolveMedia(ctx context.Context, mediaID string) (MediaInfo, error) {
	endpoint := fmt.Sprintf("%s/%s", c.graphURL, url.PathEscape(mediaID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return MediaInfo{}, err
	}

	var info MediaInfo
	if err := c.do(httpReq, &info); err != nil {
		return MediaInfo{}, err
	}
	if info.URL == "" {
		return MediaInfo{}, fmt.Errorf("whatsapp: media %s has no url", mediaID)
	}
	return info, nil
}

// Download fetches a resolved media URL. The caller closes the body.
func (c *Client) Download(ctx context.Context, mediaURL string) (io.ReadCloser, string, int64, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, "", 0, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.download.Do(httpReq)
	if err != nil {
		return nil, "", 0, fmt.Errorf("whatsapp media download failed: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		return nil, "", 0, readGraphError(resp)
	}
	return resp.Body, resp.Header.Get("Content-Type"), resp.ContentLength, nil
}

// DisplayPhoneNumber returns the business number registered for the phone number id.
// A failure here means the token or phone number id is not usable.
func (c *Client) DisplayPhoneNumber(ctx context.Context) (string, error) {
	endpoint := fmt.Sprintf("%s/%s?fields=display_phone_number", c.graphURL, c.phoneNumberID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	var out struct {
		DisplayPhoneNumber string `json:"display_phone_number"`
	}
	if err := c.do(httpReq, &out); err != nil {
		return "", err
	}
	return out.DisplayPhoneNumber, nil
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		return readGraphError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode whatsapp response: %w", err)
	}
	return nil
}

func readGraphError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	message := strings.TrimSpace(string(data))
	if err := json.Unmarshal(data, &parsed); err == nil && parsed.Error.Message != "" {
		message = parsed.Error.Message
	}
	return &GraphError{Status: resp.StatusCode, Message: message}
}

// IsAuthError reports whether err is a Graph rejection of the token.
func IsAuthError(err error) bool {
	var graphErr *GraphError
	return errors.As(err, &graphErr) && (graphErr.Status == http.StatusUnauthorized || graphErr.Status == http.StatusForbidden)
}
