package scanner

import (
	"github.com/zombor/mrz-scanner/internal/engine"
	"github.com/zombor/mrz-scanner/internal/mrz"
)

// ControlHandler receives user-interface events from a ViewPort. The session
// controller implements it.
type ControlHandler interface {
	// CloseRequested is fired by the user-facing close control.
	CloseRequested()
	// DocTypeToggled is fired by the format selector.
	DocTypeToggled(t mrz.DocumentType)
	// FileSelected is fired by the load-image control with the picked file.
	FileSelected(name, contentType string, data []byte)
}

// ViewPort is the presentation surface the controller drives. It renders the
// camera region, the guide overlay, and the control bar, and it delivers UI
// events back through the bound ControlHandler. Implementations own all
// markup and styling concerns; the controller never reaches past this
// interface.
type ViewPort interface {
	// AttachCamera places the open camera's video surface into the view.
	AttachCamera(camera engine.Camera) error
	// DetachCamera removes the camera surface from the view.
	DetachCamera()

	// BindControls wires the control bar to a handler. Called at most once
	// per session, on first successful camera open.
	BindControls(handler ControlHandler, buttons []ButtonConfig) error
	// OnResize registers a callback for viewport size changes.
	OnResize(fn func())

	ShowGuide(rect GuideRect)
	HideGuide()

	// SetSelection updates the selection highlight of the format controls.
	SetSelection(enabled map[mrz.DocumentType]bool)

	// Toast shows a transient, non-blocking notice.
	Toast(message string)
	// Alert shows a blocking failure notice.
	Alert(message string)
	// Beep plays the audible capture cue.
	Beep()
}
