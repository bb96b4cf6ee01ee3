package musicgen

import (
	"errors"
	"strings"
)

// CallbackTypeComplete marks the notification sent once all tracks are rendered.
const CallbackTypeComplete = "complete"

// Callback is the payload posted to the callback URL.
type Callback struct {
	Code int          `json:"code"`
	Msg  string       `json:"msg"`
	Data CallbackData `json:"data"`
}

// CallbackData carries the task id and rendered tracks.
type CallbackData struct {
	CallbackType string          `json:"callbackType"`
	TaskID       string          `json:"task_id"`
	Tracks       []CallbackTrack `json:"data"`
}

// CallbackTrack is one rendered track.
type CallbackTrack struct {
	ID       string  `json:"id"`
	AudioURL string  `json:"audio_url"`
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
}

// TrackReady is the resolved completion notification.
type TrackReady struct {
	TaskID   string `json:"taskId"`
	AudioURL string `json:"audioUrl"`
}

var (
	// ErrCallbackIncomplete means the callback is an intermediate stage and carries no final audio.
	ErrCallbackIncomplete = errors.New("callback is not a completion")
	// ErrCallbackInvalid means the callback lacks a task id or audio url.
	ErrCallbackInvalid = errors.New("callback missing task id or audio url")
)

// Resolve extracts the first finished track from a completion callback.
func (c Callback) Resolve() (TrackReady, error) {
	if !strings.EqualFold(c.Data.CallbackType, CallbackTypeComplete) {
		return TrackReady{}, ErrCallbackIncomplete
	}
	taskID := strings.TrimSpace(c.Data.TaskID)
	if taskID == "" {
		return TrackReady{}, ErrCallbackInvalid
	}
	for _, track := range c.Data.Tracks {
		if url := strings.TrimSpace(track.AudioURL); url != "" {
			return TrackReady{TaskID: taskID, AudioURL: url}, nil
		}
	}
	return TrackReady{}, ErrCallbackInvalid
}
