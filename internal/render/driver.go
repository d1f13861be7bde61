package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Artifact is a card image on disk, owned by the run that rendered it.
type Artifact struct {
	Path string
	// Degraded is set when the card region was not found and the full page was captured.
	Degraded bool
}

// Driver renders a named template and captures it into an image file.
type Driver struct {
	templates *TemplateRenderer
	capturer  Capturer
	name      string
	opts      CaptureOptions
	logger    *slog.Logger
}

// NewDriver wires the template set and capture engine for one template name.
func NewDriver(templates *TemplateRenderer, capturer Capturer, name string, opts CaptureOptions, logger *slog.Logger) (*Driver, error) {
	if templates == nil || capturer == nil {
		return nil, fmt.Errorf("templates and capturer are required")
	}
	if !templates.Has(name) {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	return &Driver{templates: templates, capturer: capturer, name: name, opts: opts, logger: logger}, nil
}

// Render writes the card for fields to path. On error nothing is left at path.
func (d *Driver) Render(ctx context.Context, fields map[string]any, path string) (Artifact, error) {
	start := time.Now()

	html, err := d.templates.Render(d.name, fields)
	if err != nil {
		return Artifact{}, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Artifact{}, fmt.Errorf("create output dir: %w", err)
	}

	shot, err := d.capturer.Capture(ctx, html, d.opts)
	if err != nil {
		return Artifact{}, fmt.Errorf("capture: %w", err)
	}
	if len(shot.PNG) == 0 {
		return Artifact{}, errors.New("capture: empty image")
	}

	if err := writeFile(path, shot.PNG); err != nil {
		return Artifact{}, err
	}

	art := Artifact{Path: path, Degraded: !shot.Cropped}
	if art.Degraded {
		d.logger.Warn("card element not found, captured full page",
			slog.String("file_path", path),
			slog.String("selector", d.opts.Selector),
		)
	} else {
		d.logger.Info("card rendered",
			slog.String("file_path", path),
			slog.Duration("duration", time.Since(start)),
		)
	}
	return art, nil
}

func writeFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("close artifact: %w", err)
	}
	return nil
}
