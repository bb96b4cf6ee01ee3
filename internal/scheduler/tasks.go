package scheduler

import (
	"encoding/json"
	"time"

	"nurture_backend/internal/musicgen"

	"github.com/hibiken/asynq"
)

const TaskMusicTrackReady = "music.track.ready"

const (
	trackReadyMaxRetry = 8
	trackReadyTimeout  = 10 * time.Minute
)

func NewTrackReadyTask(payload musicgen.TrackReady) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMusicTrackReady, data), nil
}

func ParseTrackReadyPayload(task *asynq.Task) (musicgen.TrackReady, error) {
	var payload musicgen.TrackReady
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return musicgen.TrackReady{}, err
	}
	return payload, nil
}
