package cards

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/paycard/internal/notification"
	"github.com/congo-pay/paycard/internal/render"
)

var (
	// ErrRender marks failures before an artifact existed.
	ErrRender = errors.New("render failed")
	// ErrDelivery marks failures sending an artifact that was rendered.
	ErrDelivery = errors.New("delivery failed")
)

// Renderer produces the card image for a set of template fields at path.
type Renderer interface {
	Render(ctx context.Context, fields map[string]any, path string) (render.Artifact, error)
}

// Namer reserves a unique artifact path.
type Namer interface {
	Next() (string, error)
}

// Service runs the card pipeline: render, deliver, then always remove the artifact.
type Service struct {
	renderer Renderer
	notifier notification.Notifier
	namer    Namer
	logger   *slog.Logger
}

// NewService constructs the pipeline.
func NewService(renderer Renderer, notifier notification.Notifier, namer Namer, logger *slog.Logger) *Service {
	return &Service{renderer: renderer, notifier: notifier, namer: namer, logger: logger}
}

// Prepare validates req and reserves its artifact path.
func (s *Service) Prepare(req CardRequest) (Job, error) {
	if err := req.Validate(); err != nil {
		return Job{}, err
	}
	path, err := s.namer.Next()
	if err != nil {
		return Job{}, err
	}
	return Job{ID: uuid.NewString(), Request: req, FilePath: path}, nil
}

// Run renders and delivers one card. Once the artifact exists it is removed on every
// exit path, whether delivery succeeded, failed or panicked.
func (s *Service) Run(ctx context.Context, job Job) (Outcome, error) {
	start := time.Now()
	out := Outcome{JobID: job.ID, FilePath: job.FilePath}
	log := s.logger.With(slog.String("job_id", job.ID), slog.String("file_path", job.FilePath))

	art, err := s.renderer.Render(ctx, job.Request.TemplateFields(), job.FilePath)
	if err != nil {
		log.Error("render card", slog.Any("error", err))
		return out, fmt.Errorf("%w: %w", ErrRender, err)
	}
	defer s.cleanup(log, art.Path)

	out.FilePath = art.Path
	out.Degraded = art.Degraded

	res, err := s.notifier.Send(ctx, notification.Upload{
		Path:      art.Path,
		Recipient: job.Request.Recipient(),
	})
	if err != nil {
		log.Error("deliver card", slog.Any("error", err), slog.Duration("duration", time.Since(start)))
		return out, fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	out.Delivery = res

	if res.IsFault() {
		log.Warn("gateway reply was not a JSON object",
			slog.String("fault", res.Fault.Error),
			slog.Int("status", res.Fault.StatusCode),
			slog.Duration("duration", time.Since(start)),
		)
	} else {
		log.Info("card delivered",
			slog.Bool("degraded", art.Degraded),
			slog.Duration("duration", time.Since(start)),
		)
	}
	return out, nil
}

func (s *Service) cleanup(log *slog.Logger, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Error("remove artifact", slog.Any("error", err))
	}
}
