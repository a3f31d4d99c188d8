package app

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/soocke/weapon-watch/config"
	"github.com/soocke/weapon-watch/domain/classify"
	"github.com/soocke/weapon-watch/domain/detection"
	"github.com/soocke/weapon-watch/domain/source"
	"github.com/soocke/weapon-watch/evidence"
	"github.com/soocke/weapon-watch/notify"
	"github.com/soocke/weapon-watch/ui/model"
	"github.com/soocke/weapon-watch/ui/presenter"
)

const idleTick = 100 * time.Millisecond

// Views the container needs from whichever front end is running.
type Views interface {
	presenter.DetectorView
	presenter.StatusView
	presenter.SessionView
	Display() detection.DisplaySink
}

// AppContainer assembles models, collaborators and presenters. The Tk
// window and headless mode share it; only the Views differ.
type AppContainer struct {
	Config  *config.Config
	CfgPath string
	Logger  *slog.Logger

	Detector *model.DetectorModel
	Session  *model.SessionModel
	Status   *model.StatusModel

	Notifier      *notify.Multi
	Archiver      detection.Archiver
	closeNotifier func() error

	// Overridable for tests.
	OpenSource     func(*config.Config, *slog.Logger) (detection.VideoSource, error)
	OpenClassifier func(*config.Config, *slog.Logger) (detection.Classifier, error)

	views Views
	bound atomic.Pointer[presenter.DetectorPresenter] // read by the ops server

	DetectorPresenter *presenter.DetectorPresenter
	FramePresenter    *presenter.FramePresenter
	StatusPresenter   *presenter.StatusPresenter
	SessionPresenter  *presenter.SessionPresenter
	Loop              *presenter.Loop
}

// BuildContainer constructs models and long-lived collaborators. Presenters
// are wired by Bind once the views exist.
func BuildContainer(cfg *config.Config, cfgPath string, logger *slog.Logger) *AppContainer {
	if logger == nil {
		logger = slog.Default()
	}
	c := &AppContainer{
		Config:         cfg,
		CfgPath:        cfgPath,
		Logger:         logger,
		Detector:       &model.DetectorModel{},
		Session:        model.NewSessionModel(),
		Status:         model.NewStatusModel(),
		OpenSource:     source.Open,
		OpenClassifier: classify.Open,
	}
	c.Notifier, c.closeNotifier = notify.Open(cfg, logger)
	if cfg.EvidenceEndpoint != "" {
		if store, err := c.openEvidence(); err != nil {
			logger.Error("evidence archive disabled", "error", err)
		} else {
			c.Archiver = store
		}
	}
	return c
}

func (c *AppContainer) openEvidence() (*evidence.Store, error) {
	store, err := evidence.NewStore(evidence.StoreConfig{
		Endpoint:  c.Config.EvidenceEndpoint,
		AccessKey: c.Config.EvidenceAccessKey,
		SecretKey: c.Config.EvidenceSecretKey,
		UseSSL:    c.Config.EvidenceUseSSL,
		Bucket:    c.Config.EvidenceBucket,
	}, c.Logger)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// Bind wires presenters to views.
func (c *AppContainer) Bind(views Views, schedule func()) {
	c.views = views
	c.DetectorPresenter = presenter.NewDetectorPresenter(c.Detector, c.NewSession, views, c.Logger)
	c.FramePresenter = presenter.NewFramePresenter(c.DetectorPresenter, c.Logger)
	c.StatusPresenter = presenter.NewStatusPresenter(c.DetectorPresenter, c.Status, views)
	c.SessionPresenter = presenter.NewSessionPresenter(c.Session, c.DetectorPresenter, views)
	c.Loop = presenter.NewLoop(c.FramePresenter, c.StatusPresenter, c.SessionPresenter, schedule)
	c.bound.Store(c.DetectorPresenter)
}

// NewSession opens the configured source and classifier and starts a
// scheduler over them. Config is snapshotted so edits apply to the next
// session only.
func (c *AppContainer) NewSession() (presenter.DetectionSession, error) {
	snap := *c.Config
	snap.Destinations = append([]string(nil), c.Config.Destinations...)

	src, err := c.OpenSource(&snap, c.Logger)
	if err != nil {
		return nil, err
	}
	cls, err := c.OpenClassifier(&snap, c.Logger)
	if err != nil {
		return nil, errors.Join(err, src.Close())
	}
	var display detection.DisplaySink
	if c.views != nil {
		display = c.views.Display()
	}
	return detection.NewScheduler(src, cls, c.Notifier, display, c.Archiver, c.Logger, detection.Options{
		Threshold:       snap.Threshold,
		Destinations:    snap.Destinations,
		AlertLabel:      snap.AlertLabel,
		ClassifyTimeout: snap.ClassifyTimeout(),
		FPS:             snap.FPS,
	}), nil
}

// SessionStats reports the active session's stats for the ops server and the
// debug logger.
func (c *AppContainer) SessionStats() (detection.Stats, bool) {
	p := c.bound.Load()
	if p == nil {
		return detection.Stats{}, false
	}
	s := p.Active()
	if s == nil {
		return detection.Stats{}, false
	}
	return s.Stats(), true
}

// Interval is the loop period: the active session's frame interval, or
// idleTick when nothing runs.
func (c *AppContainer) Interval() time.Duration {
	if p := c.bound.Load(); p != nil {
		if s := p.Active(); s != nil {
			return s.Interval()
		}
	}
	return idleTick
}

// Close ends any running session and releases broker connections.
func (c *AppContainer) Close() error {
	var errs []error
	if p := c.bound.Load(); p != nil {
		errs = append(errs, p.Disable())
	}
	if c.closeNotifier != nil {
		errs = append(errs, c.closeNotifier())
	}
	return errors.Join(errs...)
}
