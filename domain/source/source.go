package source

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/soocke/weapon-watch/config"
	"github.com/soocke/weapon-watch/domain/detection"
)

// ErrSourceUnsupported is returned when a source kind is not compiled in.
var ErrSourceUnsupported = errors.New("video source not supported in this build")

// Open constructs the video source selected by cfg.Source.
func Open(cfg *config.Config, logger *slog.Logger) (detection.VideoSource, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	switch cfg.Source {
	case config.SourceCamera:
		src, err := openCamera(cfg.CameraIndex, logger)
		if err != nil {
			return nil, fmt.Errorf("open camera %d: %w", cfg.CameraIndex, err)
		}
		return src, nil
	case config.SourceFile:
		if cfg.VideoPath == "" {
			return nil, errors.New("open video file: no path configured")
		}
		src, err := openFile(cfg.VideoPath, cfg.LoopVideo, logger)
		if err != nil {
			return nil, fmt.Errorf("open video file %q: %w", cfg.VideoPath, err)
		}
		return src, nil
	case config.SourceScreen:
		var sel *image.Rectangle
		if cfg.SelectionW > 0 && cfg.SelectionH > 0 {
			r := image.Rect(cfg.SelectionX, cfg.SelectionY, cfg.SelectionX+cfg.SelectionW, cfg.SelectionY+cfg.SelectionH)
			sel = &r
		}
		fps := cfg.FPS
		if fps <= 0 {
			fps = defaultScreenFPS
		}
		s := NewScreenSource(logger, fps, func() *image.Rectangle { return sel })
		s.Start()
		return s, nil
	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Source)
	}
}
