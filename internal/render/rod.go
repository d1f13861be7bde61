package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
)

// exitGrace bounds how long a closed browser may take to exit before it is killed.
const exitGrace = 3 * time.Second

// RodCapturer rasterises markup in a headless Chromium driven by rod.
// Every call launches its own browser and tears it down before returning,
// so no page state is shared between concurrent runs.
type RodCapturer struct {
	bin     string
	timeout time.Duration
	logger  *slog.Logger
}

// NewRodCapturer builds a capturer. An empty bin falls back to launcher.LookPath.
func NewRodCapturer(bin string, timeout time.Duration, logger *slog.Logger) *RodCapturer {
	if bin == "" {
		bin, _ = launcher.LookPath()
	}
	return &RodCapturer{bin: bin, timeout: timeout, logger: logger}
}

// Capture lays out html at opts and returns the element crop, or the full page when
// opts.Selector matches nothing.
func (c *RodCapturer) Capture(ctx context.Context, html string, opts CaptureOptions) (Capture, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	l := launcher.New().
		Context(ctx).
		Leakless(false).
		Headless(true).
		Set("disable-gpu").
		Set("no-sandbox").
		Set("hide-scrollbars")
	if c.bin != "" {
		l = l.Bin(c.bin)
	}

	u, err := l.Launch()
	if err != nil {
		c.abandon(l)
		return Capture{}, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}

	var browser *rod.Browser
	defer func() { c.release(l, browser) }()

	candidate := rod.New().ControlURL(u).Context(ctx)
	if err := candidate.Connect(); err != nil {
		return Capture{}, fmt.Errorf("%w: connect: %v", ErrCaptureUnavailable, err)
	}
	browser = candidate

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return Capture{}, fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             opts.Width,
		Height:            opts.Height,
		DeviceScaleFactor: opts.DeviceScale,
	}); err != nil {
		return Capture{}, fmt.Errorf("set viewport: %w", err)
	}

	if err := page.SetDocumentContent(html); err != nil {
		return Capture{}, fmt.Errorf("set content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return Capture{}, fmt.Errorf("wait load: %w", err)
	}

	if opts.Selector != "" {
		found, el, err := page.Has(opts.Selector)
		if err != nil {
			return Capture{}, fmt.Errorf("query %s: %w", opts.Selector, err)
		}
		if found {
			img, err := el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
			if err != nil {
				return Capture{}, fmt.Errorf("element screenshot: %w", err)
			}
			return Capture{PNG: img, Cropped: true}, nil
		}
	}

	img, err := page.Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return Capture{}, fmt.Errorf("page screenshot: %w", err)
	}
	return Capture{PNG: img, Cropped: false}, nil
}

// release asks a connected browser to quit, then kills it only if it is still
// running after exitGrace. Launcher.Kill sleeps before killing, so it stays off
// the normal path.
func (c *RodCapturer) release(l *launcher.Launcher, browser *rod.Browser) {
	if browser != nil {
		if err := browser.Close(); err != nil {
			c.debug("close browser", err)
		}
	}

	exited := make(chan struct{})
	go func() {
		l.Cleanup()
		close(exited)
	}()

	select {
	case <-exited:
		return
	case <-time.After(exitGrace):
	}

	l.Kill()
	select {
	case <-exited:
	case <-time.After(exitGrace):
		if c.logger != nil {
			c.logger.Warn("browser did not exit after kill", slog.Int("pid", l.PID()))
		}
	}
}

// abandon tidies up after a failed Launch. Cleanup waits for a process exit that
// never comes when the binary did not start, so the profile dir is removed directly.
func (c *RodCapturer) abandon(l *launcher.Launcher) {
	if l.PID() != 0 {
		if p, err := os.FindProcess(l.PID()); err == nil {
			_ = p.Kill()
		}
	}
	if dir := l.Get(flags.UserDataDir); dir != "" {
		if err := os.RemoveAll(dir); err != nil {
			c.debug("remove browser profile", err)
		}
	}
}

func (c *RodCapturer) debug(msg string, err error) {
	if c.logger != nil {
		c.logger.Debug(msg, slog.Any("error", err))
	}
}
