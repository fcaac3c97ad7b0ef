// Package gemini recognizes machine-readable zones with Google Gemini
// vision. It is a one-shot recognizer: Capture works on uploaded buffers,
// live camera capture is not supported.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/zombor/mrz-scanner/internal/engine"
	"github.com/zombor/mrz-scanner/internal/engine/mrzlines"
)

// mrzReadPrompt asks the model for the raw zone text only; all parsing and
// validation happens locally against the check digits.
const mrzReadPrompt = `You are reading the machine-readable zone (MRZ) of an identity document: the 2 or 3 lines of monospaced OCR-B text at the bottom of a passport, visa, or ID card, consisting only of the characters A-Z, 0-9, and '<'.

Transcribe the MRZ lines exactly as printed, one line of output per MRZ line.

Important:
- Output ONLY the MRZ lines, nothing else
- Preserve every '<' filler character
- Do not add spaces inside a line
- Do not use markdown code blocks
- If the image contains no MRZ, output the single word NONE`

// Engine implements the engine.Router contract using Gemini.
type Engine struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// New creates a Gemini-backed recognizer.
func New(apiKey string, modelName string) (*Engine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Engine{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

// SetInput implements engine.Router. One-shot recognizers have no frame
// source to wire.
func (e *Engine) SetInput(engine.Camera) error { return nil }

// InitSettings implements engine.Router. Template settings are local to
// this recognizer; there is nothing to load.
func (e *Engine) InitSettings(context.Context, string) error { return nil }

// AddResultReceiver implements engine.Router. One-shot captures return
// their batch directly, so the receiver is never invoked.
func (e *Engine) AddResultReceiver(engine.ResultReceiver) {}

// StartCapturing implements engine.Router.
func (e *Engine) StartCapturing(context.Context, string) error {
	return engine.ErrLiveCaptureUnsupported
}

// StopCapturing implements engine.Router.
func (e *Engine) StopCapturing() error { return nil }

// Capture runs one-shot MRZ recognition over a PNG capture buffer.
func (e *Engine) Capture(ctx context.Context, buffer []byte, templateName string) (engine.CapturedResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	parts := []genai.Part{
		genai.ImageData("png", buffer),
		genai.Text(mrzReadPrompt),
	}

	resp, err := e.model.GenerateContent(ctx, parts...)
	if err != nil {
		return engine.CapturedResult{}, fmt.Errorf("generating content: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return engine.CapturedResult{}, fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	text := strings.TrimSpace(responseText.String())
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	result, err := mrzlines.Parse(text)
	if errors.Is(err, mrzlines.ErrNoMRZ) {
		// An image-only batch: the session decides how to treat a frame
		// with no recognizable zone.
		return engine.CapturedResult{
			Items: []engine.ResultItem{engine.OriginalImageItem{Image: buffer}},
		}, nil
	}
	if err != nil {
		return engine.CapturedResult{}, fmt.Errorf("parsing MRZ text: %w", err)
	}

	return mrzlines.Batch(buffer, result), nil
}

// Close releases the Gemini client.
func (e *Engine) Close() error {
	return e.client.Close()
}
