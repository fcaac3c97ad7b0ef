package scanner

import (
	"log/slog"

	"github.com/zombor/mrz-scanner/internal/engine"
	"github.com/zombor/mrz-scanner/internal/mrz"
)

// HeadlessViewPort is a ViewPort for deployments without a presentation
// surface, such as the upload-only HTTP server. User-facing notices are
// logged instead of rendered.
type HeadlessViewPort struct{}

func (HeadlessViewPort) AttachCamera(engine.Camera) error { return nil }
func (HeadlessViewPort) DetachCamera()                    {}

func (HeadlessViewPort) BindControls(ControlHandler, []ButtonConfig) error { return nil }
func (HeadlessViewPort) OnResize(func())                                   {}

func (HeadlessViewPort) ShowGuide(GuideRect) {}
func (HeadlessViewPort) HideGuide()          {}

func (HeadlessViewPort) SetSelection(map[mrz.DocumentType]bool) {}

func (HeadlessViewPort) Toast(message string) {
	slog.Info("scanner notice", "message", message)
}

func (HeadlessViewPort) Alert(message string) {
	slog.Warn("scanner alert", "message", message)
}

func (HeadlessViewPort) Beep() {}
