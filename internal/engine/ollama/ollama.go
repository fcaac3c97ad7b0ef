// Package ollama recognizes machine-readable zones with a local Ollama
// vision model. Like the other one-shot recognizers it supports Capture
// only, not the live camera loop.
package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zombor/mrz-scanner/internal/engine"
	"github.com/zombor/mrz-scanner/internal/engine/mrzlines"
)

const mrzReadPrompt = `Read the machine-readable zone (MRZ) printed at the bottom of this identity document: 2 or 3 lines of monospaced text using only A-Z, 0-9, and '<'. Output ONLY those lines, exactly as printed, one per line, keeping every '<' character. No markdown, no commentary. If there is no MRZ, output the single word NONE.`

// Engine implements the engine.Router contract using Ollama.
type Engine struct {
	baseURL string
	model   string
	client  *http.Client
}

// New creates an Ollama-backed recognizer. llava and qwen2-vl class models
// work; smaller models misread '<' runs frequently.
func New(baseURL string, modelName string) (*Engine, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if modelName == "" {
		modelName = "llava"
	}

	return &Engine{
		baseURL: baseURL,
		model:   modelName,
		client: &http.Client{
			Timeout: 120 * time.Second, // vision models can be slow locally
		},
	}, nil
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream"`
	Images   []string  `json:"images,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Message message `json:"message"`
	Done    bool    `json:"done"`
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

// Capture runs one-shot MRZ recognition over a PNG capture buffer.
func (e *Engine) Capture(ctx context.Context, buffer []byte, templateName string) (engine.CapturedResult, error) {
	reqBody := chatRequest{
		Model:  e.model,
		Stream: false,
		Messages: []message{
			{
				Role:    "system",
				Content: "You are an expert at transcribing the machine-readable zone of identity documents exactly as printed.",
			},
			{
				Role:    "user",
				Content: mrzReadPrompt,
			},
		},
		Images: []string{base64.StdEncoding.EncodeToString(buffer)},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return engine.CapturedResult{}, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/api/chat", e.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return engine.CapturedResult{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return engine.CapturedResult{}, fmt.Errorf("calling ollama API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return engine.CapturedResult{}, fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return engine.CapturedResult{}, fmt.Errorf("decoding response: %w", err)
	}

	text := strings.TrimSpace(chatResp.Message.Content)
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

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

// Close implements the recognizer teardown contract; the HTTP client holds
// nothing to release.
func (e *Engine) Close() error { return nil }
