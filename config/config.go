package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Video source kinds accepted by Config.Source.
const (
	SourceCamera = "camera"
	SourceFile   = "file"
	SourceScreen = "screen"
)

// Classifier kinds accepted by Config.Classifier.
const (
	ClassifierSightengine = "sightengine"
	ClassifierTemplate    = "template"
)

// Config holds runtime configuration for detection and app behavior.
// Fields are loaded from a JSON file, then overridden by WW_* environment
// variables. Secrets are env-only and never written back by Save.
type Config struct {
	Debug bool `json:"debug" env:"WW_DEBUG"`

	// Video source
	Source      string  `json:"source" env:"WW_SOURCE"`
	CameraIndex int     `json:"camera_index" env:"WW_CAMERA_INDEX"`
	VideoPath   string  `json:"video_path" env:"WW_VIDEO_PATH"`
	LoopVideo   bool    `json:"loop_video" env:"WW_LOOP_VIDEO"`
	FPS         float64 `json:"fps" env:"WW_FPS"` // 0 = use the source's reported rate

	// Screen source selection rectangle (empty = full screen)
	SelectionX int `json:"selection_x"`
	SelectionY int `json:"selection_y"`
	SelectionW int `json:"selection_w"`
	SelectionH int `json:"selection_h"`

	// Classification
	Classifier        string  `json:"classifier" env:"WW_CLASSIFIER"`
	Threshold         float64 `json:"threshold" env:"WW_THRESHOLD"`
	ClassifyTimeoutMs int     `json:"classify_timeout_ms" env:"WW_CLASSIFY_TIMEOUT_MS"`
	UploadMaxSide     int     `json:"upload_max_side" env:"WW_UPLOAD_MAX_SIDE"`

	SightengineURL    string `json:"sightengine_url" env:"WW_SIGHTENGINE_URL"`
	SightengineModels string `json:"sightengine_models" env:"WW_SIGHTENGINE_MODELS"`
	SightengineUser   string `json:"-" env:"WW_SIGHTENGINE_USER"`
	SightengineSecret string `json:"-" env:"WW_SIGHTENGINE_SECRET"`

	TemplatePath string  `json:"template_path" env:"WW_TEMPLATE_PATH"`
	MinScale     float64 `json:"min_scale"`
	MaxScale     float64 `json:"max_scale"`
	ScaleStep    float64 `json:"scale_step"`
	Stride       int     `json:"stride"`

	// Alerting
	AlertMessage string   `json:"alert_message" env:"WW_ALERT_MESSAGE"`
	AlertLabel   string   `json:"alert_label" env:"WW_ALERT_LABEL"`
	Destinations []string `json:"destinations" env:"WW_DESTINATIONS" envSeparator:","`

	SMTPHost     string `json:"smtp_host" env:"WW_SMTP_HOST"`
	SMTPPort     int    `json:"smtp_port" env:"WW_SMTP_PORT"`
	SMTPFrom     string `json:"smtp_from" env:"WW_SMTP_FROM"`
	SMTPUser     string `json:"-" env:"WW_SMTP_USER"`
	SMTPPassword string `json:"-" env:"WW_SMTP_PASSWORD"`

	TwilioFrom       string `json:"twilio_from" env:"WW_TWILIO_FROM"`
	TwilioAccountSID string `json:"-" env:"WW_TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `json:"-" env:"WW_TWILIO_AUTH_TOKEN"`

	AMQPURL      string `json:"-" env:"WW_AMQP_URL"`
	AMQPExchange string `json:"amqp_exchange" env:"WW_AMQP_EXCHANGE"`

	// Evidence archive (MinIO). Disabled when endpoint is empty.
	EvidenceEndpoint  string `json:"evidence_endpoint" env:"WW_EVIDENCE_ENDPOINT"`
	EvidenceBucket    string `json:"evidence_bucket" env:"WW_EVIDENCE_BUCKET"`
	EvidenceUseSSL    bool   `json:"evidence_use_ssl" env:"WW_EVIDENCE_USE_SSL"`
	EvidenceAccessKey string `json:"-" env:"WW_EVIDENCE_ACCESS_KEY"`
	EvidenceSecretKey string `json:"-" env:"WW_EVIDENCE_SECRET_KEY"`

	// Ops
	OpsAddr       string `json:"ops_addr" env:"WW_OPS_ADDR"` // empty disables the ops server
	OTLPEndpoint  string `json:"otlp_endpoint" env:"WW_OTLP_ENDPOINT"`
	DebugInterval int    `json:"debug_interval_seconds"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Debug:             false,
		Source:            SourceCamera,
		CameraIndex:       0,
		LoopVideo:         true,
		FPS:               0,
		Classifier:        ClassifierSightengine,
		Threshold:         0.10,
		ClassifyTimeoutMs: 10000,
		UploadMaxSide:     1024,
		SightengineURL:    "https://api.sightengine.com/1.0/check.json",
		SightengineModels: "wad",
		MinScale:          0.60,
		MaxScale:          1.40,
		ScaleStep:         0.10,
		Stride:            4,
		AlertMessage:      "Gun Detected! ACT IMMEDIATELY!",
		AlertLabel:        "Weapon detected! Call the proper authorities!",
		SMTPHost:          "smtp.gmail.com",
		SMTPPort:          587,
		AMQPExchange:      "weapon-watch.alerts",
		EvidenceBucket:    "weapon-evidence",
		DebugInterval:     5,
	}
}

// Validate clamps/normalizes values to safe ranges.
func (c *Config) Validate() error {
	switch c.Source {
	case SourceCamera, SourceFile, SourceScreen:
	default:
		c.Source = SourceCamera
	}
	if c.CameraIndex < 0 {
		c.CameraIndex = 0
	}
	if c.FPS < 0 || c.FPS > 240 {
		c.FPS = 0
	}
	switch c.Classifier {
	case ClassifierSightengine, ClassifierTemplate:
	default:
		c.Classifier = ClassifierSightengine
	}
	if c.Threshold <= 0 || c.Threshold > 1 {
		c.Threshold = 0.10
	}
	if c.ClassifyTimeoutMs <= 0 {
		c.ClassifyTimeoutMs = 10000
	}
	if c.UploadMaxSide < 64 {
		c.UploadMaxSide = 1024
	}
	if c.MinScale <= 0 {
		c.MinScale = 0.60
	}
	if c.MaxScale <= 0 || c.MaxScale < c.MinScale {
		c.MaxScale = c.MinScale + 0.80
	}
	if c.ScaleStep <= 0 {
		c.ScaleStep = 0.10
	}
	if c.Stride <= 0 {
		c.Stride = 4
	}
	if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
		c.SMTPPort = 587
	}
	if c.DebugInterval <= 0 {
		c.DebugInterval = 5
	}
	dst := c.Destinations[:0]
	for _, d := range c.Destinations {
		if d = strings.TrimSpace(d); d != "" {
			dst = append(dst, d)
		}
	}
	c.Destinations = dst
	return nil
}

// ClassifyTimeout returns the per-call classifier deadline.
func (c *Config) ClassifyTimeout() time.Duration {
	return time.Duration(c.ClassifyTimeoutMs) * time.Millisecond
}

// Load reads configuration from the given JSON file path and applies
// environment overrides. A missing file yields defaults (plus env). On a
// read or decode error it returns defaults plus env with the error.
func Load(path string) (*Config, error) {
	cfg, fileErr := loadFile(path)
	if fileErr != nil {
		cfg = DefaultConfig()
	}
	if err := env.Parse(cfg); err != nil {
		return cfg, errors.Join(fileErr, err)
	}
	_ = cfg.Validate()
	return cfg, fileErr
}

func loadFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to the given path in JSON format.
func (c *Config) Save(path string) error {
	_ = c.Validate()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}
