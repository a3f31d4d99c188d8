package classify

import (
	"fmt"
	"log/slog"

	"github.com/soocke/weapon-watch/config"
	"github.com/soocke/weapon-watch/domain/detection"
)

// Open constructs the classifier selected by cfg.Classifier.
func Open(cfg *config.Config, logger *slog.Logger) (detection.Classifier, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	switch cfg.Classifier {
	case config.ClassifierSightengine:
		if cfg.SightengineUser == "" || cfg.SightengineSecret == "" {
			return nil, fmt.Errorf("sightengine: WW_SIGHTENGINE_USER and WW_SIGHTENGINE_SECRET must be set")
		}
		return NewSightengine(SightengineConfig{
			Endpoint:      cfg.SightengineURL,
			Models:        cfg.SightengineModels,
			APIUser:       cfg.SightengineUser,
			APISecret:     cfg.SightengineSecret,
			UploadMaxSide: cfg.UploadMaxSide,
		}, nil, logger), nil
	case config.ClassifierTemplate:
		tmpl, err := LoadTemplate(cfg.TemplatePath)
		if err != nil {
			return nil, err
		}
		return NewTemplateClassifier(tmpl, TemplateOptions{
			MinScale:  cfg.MinScale,
			MaxScale:  cfg.MaxScale,
			ScaleStep: cfg.ScaleStep,
			Stride:    cfg.Stride,
		}), nil
	default:
		return nil, fmt.Errorf("unknown classifier %q", cfg.Classifier)
	}
}
