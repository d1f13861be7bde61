package render

import (
	"context"
	"errors"
)

// ErrCaptureUnavailable means the capture engine could not be started. Not retryable.
var ErrCaptureUnavailable = errors.New("capture engine unavailable")

// CaptureOptions fixes the layout the markup is rasterised at.
type CaptureOptions struct {
	Width       int
	Height      int
	DeviceScale float64
	// Selector locates the region to crop to. No match falls back to the full page.
	Selector string
}

// DefaultCaptureOptions is a large viewport at a high device scale so the
// card stays sharp as a chat thumbnail.
var DefaultCaptureOptions = CaptureOptions{
	Width:       1920,
	Height:      1080,
	DeviceScale: 5,
	Selector:    ".card",
}

// Capture is a rasterised document.
type Capture struct {
	PNG []byte
	// Cropped is false when Selector matched nothing and PNG holds the full page.
	Cropped bool
}

// Capturer turns markup into a PNG.
type Capturer interface {
	Capture(ctx context.Context, html string, opts CaptureOptions) (Capture, error)
}
