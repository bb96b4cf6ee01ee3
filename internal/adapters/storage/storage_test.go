package storage

import (
	"strings"
	"testing"
)

func TestObjectKeyKeepsFolderAndExtension(t *testing.T) {
	key := objectKey(FolderPreviews, "/tmp/work/preview.m4a")
	if !strings.HasPrefix(key, "tracks/previews/preview_") || !strings.HasSuffix(key, ".m4a") {
		t.Fatalf("unexpected key %q", key)
	}
	if objectKey(FolderChatAudio, "a.m4a") == objectKey(FolderChatAudio, "a.m4a") {
		t.Fatal("keys must be unique per upload")
	}
}

func TestPublicURLEscapesSegments(t *testing.T) {
	got := publicURL("https://cdn.example.com", "funnel-media", "chat-media/voz nota_1.ogg")
	want := "https://cdn.example.com/funnel-media/chat-media/voz%20nota_1.ogg"
	if got != want {
		t.Fatalf("publicURL = %q, want %q", got, want)
	}
}

func TestContentTypeRules(t *testing.T) {
	if !IsAllowedContentType("audio/ogg; codecs=opus") {
		t.Fatal("voice notes must be accepted")
	}
	if IsAllowedContentType("application/x-msdownload") {
		t.Fatal("executables must be rejected")
	}
	if ExtensionFor("image/jpeg") != ".jpg" || ExtensionFor("weird/type") != ".bin" {
		t.Fatal("unexpected extension mapping")
	}
}

func TestValidateSize(t *testing.T) {
	if err := validateSize(0, 10); err == nil {
		t.Fatal("empty file must be rejected")
	}
	if err := validateSize(11, 10); err == nil {
		t.Fatal("oversized file must be rejected")
	}
	if err := validateSize(10, 10); err != nil {
		t.Fatalf("file at limit rejected: %v", err)
	}
}
