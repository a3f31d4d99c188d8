package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/soocke/weapon-watch/domain/detection"
	"github.com/soocke/weapon-watch/ui/images"
)

const jpegQuality = 85

// SightengineConfig holds the check endpoint and credentials.
type SightengineConfig struct {
	Endpoint      string
	Models        string
	APIUser       string
	APISecret     string
	UploadMaxSide int
}

// Sightengine scores frames with the Sightengine image moderation API.
type Sightengine struct {
	cfg    SightengineConfig
	client *http.Client
	logger *slog.Logger
}

// NewSightengine returns a classifier; a nil client uses a 30s-timeout default.
func NewSightengine(cfg SightengineConfig, client *http.Client, logger *slog.Logger) *Sightengine {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Models == "" {
		cfg.Models = "wad"
	}
	return &Sightengine{cfg: cfg, client: client, logger: logger}
}

type sightengineResponse struct {
	Status string          `json:"status"`
	Weapon json.RawMessage `json:"weapon"`
	Error  *struct {
		Type    string `json:"type"`
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Classify uploads img as JPEG and returns the weapon score.
func (s *Sightengine) Classify(ctx context.Context, img image.Image) (detection.Result, error) {
	ctx, span := otel.Tracer("classify").Start(ctx, "sightengine.check")
	defer span.End()

	payload, err := images.EncodeJPEG(images.LimitSide(img, s.cfg.UploadMaxSide), jpegQuality)
	if err != nil {
		return detection.Result{}, fmt.Errorf("encode frame: %w", err)
	}
	span.SetAttributes(attribute.Int("upload.bytes", len(payload)))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range map[string]string{"models": s.cfg.Models, "api_user": s.cfg.APIUser, "api_secret": s.cfg.APISecret} {
		if err := mw.WriteField(k, v); err != nil {
			return detection.Result{}, fmt.Errorf("build request: %w", err)
		}
	}
	part, err := mw.CreateFormFile("media", "frame.jpg")
	if err != nil {
		return detection.Result{}, fmt.Errorf("build request: %w", err)
	}
	if _, err := part.Write(payload); err != nil {
		return detection.Result{}, fmt.Errorf("build request: %w", err)
	}
	if err := mw.Close(); err != nil {
		return detection.Result{}, fmt.Errorf("build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, &body)
	if err != nil {
		return detection.Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return detection.Result{}, fmt.Errorf("sightengine request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return detection.Result{}, fmt.Errorf("read response: %w", err)
	}
	if s.logger != nil {
		s.logger.Debug("sightengine response", "status", resp.StatusCode, "elapsed", time.Since(start))
	}

	var out sightengineResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return detection.Result{}, fmt.Errorf("decode response (http %d): %w", resp.StatusCode, err)
	}
	if out.Status != string(detection.StatusSuccess) {
		reason := fmt.Sprintf("http %d", resp.StatusCode)
		if out.Error != nil && out.Error.Message != "" {
			reason = out.Error.Message
		}
		return detection.Result{Status: detection.StatusFailure, Reason: reason}, nil
	}
	score, err := weaponScore(out.Weapon)
	if err != nil {
		return detection.Result{Status: detection.StatusFailure, Reason: err.Error()}, nil
	}
	span.SetAttributes(attribute.Float64("weapon.score", score))
	return detection.Result{Status: detection.StatusSuccess, Confidence: clamp01(score)}, nil
}

// weaponScore accepts the legacy numeric "weapon" field or the newer
// {"classes": {...}} object, taking the highest class probability.
func weaponScore(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("response has no weapon score")
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err == nil {
		return v, nil
	}
	var obj struct {
		Classes map[string]float64 `json:"classes"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return 0, fmt.Errorf("weapon score: %w", err)
	}
	best := 0.0
	for _, p := range obj.Classes {
		if p > best {
			best = p
		}
	}
	return best, nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
