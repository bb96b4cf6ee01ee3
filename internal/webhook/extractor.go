package webhook

import (
	"strconv"
	"strings"
	"time"

	"nurture_backend/internal/leads"
)

// Media types stored on inbound messages.
const (
	MediaTypeText  = "text"
	MediaTypeImage = "image"
	MediaTypePDF   = "pdf"
	MediaTypeAudio = "audio"
	MediaTypeVideo = "video"
)

// Inbound is one extracted message plus the Meta media id still to be fetched.
type Inbound struct {
	Message leads.InboundMessage
	MediaID string
}

// ExtractMessages flattens a webhook payload into provider-neutral messages,
// attaching the sender's profile name from the contacts block.
func ExtractMessages(payload Payload, received time.Time) []Inbound {
	var out []Inbound
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			names := make(map[string]string, len(change.Value.Contacts))
			for _, contact := range change.Value.Contacts {
				names[contact.WaID] = strings.TrimSpace(contact.Profile.Name)
			}

			for _, msg := range change.Value.Messages {
				if strings.TrimSpace(msg.From) == "" {
					continue
				}
				in := Inbound{
					Message: leads.InboundMessage{
						From: msg.From,
						Name: names[msg.From],
						At:   messageTime(msg.Timestamp, received),
					},
				}
				in.Message.Text, in.Message.MediaType, in.MediaID = messageContent(msg)
				out = append(out, in)
			}
		}
	}
	return out
}

// messageContent returns text, media type and Meta media id for msg.
// Documents are stored as "pdf", matching what operators filter on.
func messageContent(msg Message) (string, string, string) {
	switch {
	case msg.Image != nil:
		return msg.Image.Caption, MediaTypeImage, msg.Image.ID
	case msg.Document != nil:
		return msg.Document.Caption, MediaTypePDF, msg.Document.ID
	case msg.Audio != nil:
		return "", MediaTypeAudio, msg.Audio.ID
	case msg.Video != nil:
		return msg.Video.Caption, MediaTypeVideo, msg.Video.ID
	case msg.Text != nil:
		return msg.Text.Body, textType(msg.Text.Body), ""
	case msg.Button != nil:
		return msg.Button.Text, textType(msg.Button.Text), ""
	case msg.Interactive != nil && msg.Interactive.ButtonReply != nil:
		return msg.Interactive.ButtonReply.Title, MediaTypeText, ""
	case msg.Interactive != nil && msg.Interactive.ListReply != nil:
		return msg.Interactive.ListReply.Title, MediaTypeText, ""
	default:
		return "", "", ""
	}
}

func textType(body string) string {
	if body == "" {
		return ""
	}
	return MediaTypeText
}

func messageTime(unix string, fallback time.Time) time.Time {
	seconds, err := strconv.ParseInt(strings.TrimSpace(unix), 10, 64)
	if err != nil || seconds <= 0 {
		return fallback
	}
	return time.Unix(seconds, 0).UTC()
}
