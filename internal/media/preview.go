package media

import (
	"context"
	"fmt"
	"time"

	"nurture_backend/platform/config"
)

// PreviewSpec fixes the shape of the watermarked preview clip.
type PreviewSpec struct {
	Watermark       string
	Duration        time.Duration
	WatermarkOffset time.Duration
}

// PreviewSpecFromConfig reads the preview settings.
func PreviewSpecFromConfig(cfg config.MediaConfig) PreviewSpec {
	return PreviewSpec{
		Watermark:       cfg.GetWatermarkPath(),
		Duration:        cfg.GetPreviewDuration(),
		WatermarkOffset: cfg.GetWatermarkOffset(),
	}
}

// BuildPreview clips the first spec.Duration of source and mixes the watermark in,
// writing an AAC/M4A file to output.
func BuildPreview(ctx context.Context, t Transcoder, ws *Workspace, source, output string, spec PreviewSpec) error {
	clip := ws.Path("preview-clip.wav")
	if err := t.Clip(ctx, source, clip, 0, spec.Duration); err != nil {
		return fmt.Errorf("clip preview: %w", err)
	}
	if spec.Watermark == "" {
		return t.Transcode(ctx, clip, output)
	}
	if err := t.Overlay(ctx, clip, spec.Watermark, output, spec.WatermarkOffset); err != nil {
		return fmt.Errorf("overlay watermark: %w", err)
	}
	return nil
}
