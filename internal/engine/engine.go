package engine

import (
	"context"
	"errors"
)

// ErrLiveCaptureUnsupported is returned by one-shot recognizers that cannot
// drive a continuous camera capture loop.
var ErrLiveCaptureUnsupported = errors.New("engine does not support live capture")

// ValidationStatus is the engine's per-field validation verdict.
type ValidationStatus int

const (
	ValidationNone ValidationStatus = iota
	ValidationPassed
	ValidationFailed
)

// PixelFormat selects the pixel layout of captured frames.
type PixelFormat int

const (
	PixelFormatGrayscale PixelFormat = iota
	PixelFormatRGBA
)

// Region is a scan region expressed as percentages of the visible viewport.
type Region struct {
	Left   int
	Top    int
	Right  int
	Bottom int
}

// Viewport is the visible camera area in pixels after cover-fit.
type Viewport struct {
	Width  int
	Height int
}

// ItemKind discriminates the members of a captured result batch.
type ItemKind int

const (
	KindOriginalImage ItemKind = iota
	KindTextLine
	KindParsedResult
)

// ResultItem is one member of a captured result batch.
type ResultItem interface {
	Kind() ItemKind
}

// OriginalImageItem carries the raw captured frame. The frame buffer is
// owned by the engine; consumers borrow it for the duration of one result
// cycle only.
type OriginalImageItem struct {
	Image []byte
}

func (OriginalImageItem) Kind() ItemKind { return KindOriginalImage }

// TextLineItem carries the recognized MRZ text, lines joined by '\n'.
type TextLineItem struct {
	Text string
}

func (TextLineItem) Kind() ItemKind { return KindTextLine }

// ParsedResultItem carries the engine's structured parse of a text line.
type ParsedResultItem struct {
	CodeType string
	Fields   ParsedFields
}

func (ParsedResultItem) Kind() ItemKind { return KindParsedResult }

// ParsedFields is the accessor contract over the engine's parsed-field set.
type ParsedFields interface {
	// FieldValue returns the normalized value for a field, or "" when the
	// field is absent.
	FieldValue(name string) string
	// FieldRawValue returns the value as read off the document, before any
	// engine normalization.
	FieldRawValue(name string) string
	// FieldValidity reports the engine's validation verdict for a field.
	FieldValidity(name string) ValidationStatus
}

// CapturedResult is one asynchronous delivery from the recognition engine.
type CapturedResult struct {
	Items []ResultItem
}

// ItemsOfKind filters a batch down to one item kind.
func (c CapturedResult) ItemsOfKind(kind ItemKind) []ResultItem {
	var out []ResultItem
	for _, item := range c.Items {
		if item.Kind() == kind {
			out = append(out, item)
		}
	}
	return out
}

// ResultReceiver is the callback contract used by the engine to deliver
// captured-item batches. Deliveries are serial; the engine never invokes a
// receiver concurrently with itself.
type ResultReceiver func(CapturedResult)

// Camera controls a capture device.
type Camera interface {
	Open(ctx context.Context) error
	Close() error
	Pause() error
	Resume(ctx context.Context) error
	IsOpen() bool
	IsPaused() bool
	SelectDevice(deviceID string) error
	SetResolution(width, height int) error
	SetPixelFormat(format PixelFormat) error
	SetScanRegion(region Region) error
	// VisibleRegion reports the on-screen viewport dimensions of the open
	// camera after cover-fit.
	VisibleRegion() (Viewport, error)
}

// Router drives the recognition pipeline.
type Router interface {
	// SetInput wires the camera as the pipeline's frame source.
	SetInput(camera Camera) error
	// InitSettings loads the capture template file.
	InitSettings(ctx context.Context, templatePath string) error
	// AddResultReceiver registers a callback for captured-item batches.
	AddResultReceiver(receiver ResultReceiver)
	// StartCapturing begins the continuous capture loop using the named
	// template.
	StartCapturing(ctx context.Context, templateName string) error
	StopCapturing() error
	// Capture runs one-shot recognition over an already-captured buffer.
	Capture(ctx context.Context, buffer []byte, templateName string) (CapturedResult, error)
}
