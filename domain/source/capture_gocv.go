//go:build gocv

package source

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/soocke/weapon-watch/domain/detection"
)

// captureSource reads frames from an OpenCV VideoCapture (camera or file).
type captureSource struct {
	mu     sync.Mutex
	vc     *gocv.VideoCapture
	mat    gocv.Mat
	fps    float64
	file   bool
	loop   bool
	seq    uint64
	closed bool
	logger *slog.Logger
}

func openCamera(index int, logger *slog.Logger) (detection.VideoSource, error) {
	vc, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, err
	}
	return newCaptureSource(vc, false, false, logger), nil
}

func openFile(path string, loop bool, logger *slog.Logger) (detection.VideoSource, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, err
	}
	return newCaptureSource(vc, true, loop, logger), nil
}

func newCaptureSource(vc *gocv.VideoCapture, file, loop bool, logger *slog.Logger) *captureSource {
	fps := vc.Get(gocv.VideoCaptureFPS)
	if logger != nil {
		logger.Info("video source opened", "fps", fps, "file", file, "loop", loop)
	}
	return &captureSource{vc: vc, mat: gocv.NewMat(), fps: fps, file: file, loop: loop, logger: logger}
}

func (s *captureSource) Read() (detection.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return detection.Frame{}, false
	}
	if ok := s.vc.Read(&s.mat); !ok || s.mat.Empty() {
		if s.file && s.loop {
			s.vc.Set(gocv.VideoCapturePosFrames, 0)
		}
		return detection.Frame{}, false
	}
	img, err := s.mat.ToImage()
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("frame conversion", "error", err)
		}
		return detection.Frame{}, false
	}
	s.seq++
	return detection.Frame{Image: img, CapturedAt: time.Now(), Sequence: s.seq}, true
}

func (s *captureSource) FPS() float64 { return s.fps }

func (s *captureSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return errors.Join(s.mat.Close(), s.vc.Close())
}
