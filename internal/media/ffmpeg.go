// Package media post-processes audio with the ffmpeg binary: transcoding to
// AAC/M4A, clipping previews and mixing in the watermark.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"nurture_backend/platform/config"
)

// ContentTypeM4A is the MIME type of every file produced here.
const ContentTypeM4A = "audio/mp4"

// Transcoder is the set of media operations the pipelines use.
type Transcoder interface {
	Transcode(ctx context.Context, input, output string) error
	Clip(ctx context.Context, input, output string, start, duration time.Duration) error
	Overlay(ctx context.Context, clip, watermark, output string, offset time.Duration) error
}

// runFunc executes one ffmpeg invocation.
type runFunc func(ctx context.Context, binary string, args []string) error

// FFmpeg implements Transcoder by shelling out to ffmpeg.
type FFmpeg struct {
	binary string
	run    runFunc
}

// NewFFmpeg returns a transcoder using the configured binary.
func NewFFmpeg(cfg config.MediaConfig) *FFmpeg {
	binary := cfg.GetFFmpegPath()
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpeg{binary: binary, run: execFFmpeg}
}

// Transcode converts any input media to AAC audio in an MP4 container.
func (f *FFmpeg) Transcode(ctx context.Context, input, output string) error {
	return f.run(ctx, f.binary, transcodeArgs(input, output))
}

// Clip cuts duration of audio starting at start into a lossless WAV.
func (f *FFmpeg) Clip(ctx context.Context, input, output string, start, duration time.Duration) error {
	if duration <= 0 {
		return fmt.Errorf("clip duration must be positive")
	}
	return f.run(ctx, f.binary, clipArgs(input, output, start, duration))
}

// Overlay mixes watermark under clip starting at offset, keeping the clip length,
// and encodes the result as AAC/M4A.
func (f *FFmpeg) Overlay(ctx context.Context, clip, watermark, output string, offset time.Duration) error {
	return f.run(ctx, f.binary, overlayArgs(clip, watermark, output, offset))
}

func transcodeArgs(input, output string) []string {
	return []string{"-y", "-i", input, "-vn", "-c:a", "aac", "-b:a", "128k", "-f", "mp4", output}
}

func clipArgs(input, output string, start, duration time.Duration) []string {
	return []string{
		"-y",
		"-ss", seconds(start),
		"-t", seconds(duration),
		"-i", input,
		"-vn", "-c:a", "pcm_s16le",
		output,
	}
}

func overlayArgs(clip, watermark, output string, offset time.Duration) []string {
	delayMs := strconv.FormatInt(offset.Milliseconds(), 10)
	filter := fmt.Sprintf("[1:a]adelay=%s|%s,volume=0.8[wm];[0:a][wm]amix=inputs=2:duration=first:dropout_transition=0:normalize=0[out]", delayMs, delayMs)
	return []string{
		"-y",
		"-i", clip,
		"-i", watermark,
		"-filter_complex", filter,
		"-map", "[out]",
		"-c:a", "aac", "-b:a", "128k",
		"-f", "mp4",
		output,
	}
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

func execFFmpeg(ctx context.Context, binary string, args []string) error {
	cmd := exec.CommandContext(ctx, binary, append([]string{"-hide_banner", "-loglevel", "error"}, args...)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 500 {
			msg = msg[len(msg)-500:]
		}
		return fmt.Errorf("ffmpeg failed: %w: %s", err, msg)
	}
	return nil
}

// Workspace is a scratch directory for one processing run.
type Workspace struct {
	Dir string
}

// NewWorkspace creates a scratch directory under base (os.TempDir when empty).
func NewWorkspace(base, prefix string) (*Workspace, error) {
	dir, err := os.MkdirTemp(base, prefix+"-*")
	if err != nil {
		return nil, fmt.Errorf("create media workspace: %w", err)
	}
	return &Workspace{Dir: dir}, nil
}

// Path returns a file path inside the workspace.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.Dir, name)
}

// Close removes the workspace and everything in it.
func (w *Workspace) Close() error {
	return os.RemoveAll(w.Dir)
}
