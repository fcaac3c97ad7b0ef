// Package tesseract recognizes machine-readable zones locally with the
// Tesseract OCR engine via gosseract. One-shot Capture only.
package tesseract

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/zombor/mrz-scanner/internal/engine"
	"github.com/zombor/mrz-scanner/internal/engine/mrzlines"
)

// mrzWhitelist restricts recognition to the OCR-B zone charset.
const mrzWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789<"

// Engine implements the engine.Router contract using Tesseract.
type Engine struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// New creates a Tesseract-backed recognizer. language defaults to eng; an
// OCR-B trained data set improves zone accuracy considerably.
func New(language string) (*Engine, error) {
	if language == "" {
		language = "eng"
	}

	client := gosseract.NewClient()
	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return nil, fmt.Errorf("setting tesseract language: %w", err)
	}
	if err := client.SetWhitelist(mrzWhitelist); err != nil {
		client.Close()
		return nil, fmt.Errorf("setting tesseract whitelist: %w", err)
	}

	return &Engine{client: client}, nil
}

// SetInput implements engine.Router.
func (e *Engine) SetInput(engine.Camera) error { return nil }

// InitSettings implements engine.Router.
func (e *Engine) InitSettings(context.Context, string) error { return nil }

// AddResultReceiver implements engine.Router.
func (e *Engine) AddResultReceiver(engine.ResultReceiver) {}

// StartCapturing implements engine.Router.
func (e *Engine) StartCapturing(context.Context, string) error {
	return engine.ErrLiveCaptureUnsupported
}

// StopCapturing implements engine.Router.
func (e *Engine) StopCapturing() error { return nil }

// Capture runs one-shot MRZ recognition over a PNG capture buffer. The
// client is not safe for concurrent use.
func (e *Engine) Capture(ctx context.Context, buffer []byte, templateName string) (engine.CapturedResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.client.SetImageFromBytes(buffer); err != nil {
		return engine.CapturedResult{}, fmt.Errorf("loading image: %w", err)
	}
	text, err := e.client.Text()
	if err != nil {
		return engine.CapturedResult{}, fmt.Errorf("running tesseract: %w", err)
	}

	result, err := mrzlines.Parse(text)
	if errors.Is(err, mrzlines.ErrNoMRZ) {
		return engine.CapturedResult{
			Items: []engine.ResultItem{engine.OriginalImageItem{Image: buffer}},
		}, nil
	}
	if err != nil {
		return engine.CapturedResult{}, fmt.Errorf("parsing MRZ text: %w", err)
	}

	return mrzlines.Batch(buffer, result), nil
}

// Close releases the Tesseract client.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client.Close()
}
