//go:build !gocv

package source

import (
	"log/slog"

	"github.com/soocke/weapon-watch/domain/detection"
)

// Camera and file capture need OpenCV; build with -tags gocv to enable them.

func openCamera(int, *slog.Logger) (detection.VideoSource, error) {
	return nil, ErrSourceUnsupported
}

func openFile(string, bool, *slog.Logger) (detection.VideoSource, error) {
	return nil, ErrSourceUnsupported
}
