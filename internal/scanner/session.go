package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/zombor/mrz-scanner/internal/engine"
	"github.com/zombor/mrz-scanner/internal/imaging"
	"github.com/zombor/mrz-scanner/internal/mrz"
)

// sessionState tracks the controller through one scan attempt. Resolved is
// reachable from every state via cancel, error, or success.
type sessionState int

const (
	stateIdle sessionState = iota
	stateInitializing
	stateCameraOpen
	stateCapturing
	stateResultPending
	stateResolved
)

// resizeQuietPeriod is how long the viewport must hold still before the
// guide is recomputed.
const resizeQuietPeriod = 500 * time.Millisecond

// Controller owns one scan session: camera lifecycle, the capture loop, the
// result-receiver callback, and the settle-exactly-once completion.
type Controller struct {
	mu            sync.Mutex
	res           *Resources
	modes         *ModeManager
	cfg           Config
	state         sessionState
	initialized   bool
	controlsBound bool
	soundEnabled  bool
	pending       *completion
	resizeTimer   *time.Timer
	resizeQuiet   time.Duration
	now           func() time.Time
}

// NewController builds a controller over host-owned shared resources.
func NewController(res *Resources, modes *ModeManager, cfg Config) *Controller {
	return &Controller{
		res:          res,
		modes:        modes,
		cfg:          cfg.withDefaults(),
		soundEnabled: cfg.SoundEnabled,
		resizeQuiet:  resizeQuietPeriod,
		now:          time.Now,
	}
}

// CurrentMode reports the active scan mode.
func (c *Controller) CurrentMode() Mode {
	return c.modes.Mode()
}

// Launch runs one live-capture session: initialize, open the camera, start
// the capture loop, and block until a terminal outcome settles the session.
// Engine-level failures yield a StatusFailed result rather than an error;
// the returned error is reserved for precondition violations.
func (c *Controller) Launch(ctx context.Context) (Result, error) {
	if _, _, _, err := c.res.handles(); err != nil {
		return Result{}, err
	}

	pending, err := c.arm()
	if err != nil {
		return Result{}, err
	}

	if err := c.Initialize(ctx); err == nil {
		if err := c.openAndStart(ctx); err != nil {
			slog.Error("starting capture", "error", err)
			c.CloseCamera()
			c.settle(Result{Status: StatusFailed, Message: fmt.Sprintf("starting capture: %v", err)})
		}
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			c.CloseCamera()
			c.settle(Result{Status: StatusCancelled, Message: "scan cancelled"})
		case <-done:
		}
	}()

	result := pending.wait()
	close(done)
	return result, nil
}

// ScanImage runs one upload-only session over an already-captured file,
// bypassing the live camera.
func (c *Controller) ScanImage(ctx context.Context, name, contentType string, data []byte) (Result, error) {
	if _, _, _, err := c.res.handles(); err != nil {
		return Result{}, err
	}

	pending, err := c.arm()
	if err != nil {
		return Result{}, err
	}

	if err := c.Initialize(ctx); err == nil {
		c.UploadImage(ctx, name, contentType, data)
	}
	return pending.wait(), nil
}

// arm installs the single pending completion slot.
func (c *Controller) arm() (*completion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil {
		return nil, errors.New("scan session already in flight")
	}
	c.pending = newCompletion()
	return c.pending, nil
}

// Initialize wires the recognition pipeline: input source, template
// settings, and the single result receiver. Idempotent. A failure here
// terminates the session: the camera is force-closed and the session
// settles StatusFailed.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.initialized {
		c.mu.Unlock()
		return nil
	}
	c.state = stateInitializing
	c.mu.Unlock()

	camera, router, _, err := c.res.handles()
	if err != nil {
		return c.failInitialize(err)
	}
	if camera != nil {
		if err := router.SetInput(camera); err != nil {
			return c.failInitialize(fmt.Errorf("wiring camera input: %w", err))
		}
	}
	if err := router.InitSettings(ctx, c.cfg.TemplatePath); err != nil {
		return c.failInitialize(fmt.Errorf("loading template settings: %w", err))
	}
	router.AddResultReceiver(c.HandleCapturedResult)

	c.mu.Lock()
	c.initialized = true
	c.soundEnabled = c.cfg.SoundEnabled
	c.mu.Unlock()
	return nil
}

func (c *Controller) failInitialize(err error) error {
	slog.Error("scan session initialization failed", "error", err)
	if _, _, view, herr := c.res.handles(); herr == nil {
		view.Alert("The scanner failed to start. Please close and try again.")
	}
	c.CloseCamera()
	c.settle(Result{Status: StatusFailed, Message: fmt.Sprintf("initializing scanner: %v", err)})
	return err
}

// OpenCamera opens or resumes the capture device. The first successful open
// binds the UI controls and installs the debounced resize listener.
func (c *Controller) OpenCamera(ctx context.Context) error {
	camera, _, view, err := c.res.handles()
	if err != nil {
		return err
	}
	if camera == nil {
		return errors.New("no camera configured")
	}

	switch {
	case camera.IsPaused():
		if err := camera.Resume(ctx); err != nil {
			return fmt.Errorf("resuming camera: %w", err)
		}
	case !camera.IsOpen():
		if err := camera.Open(ctx); err != nil {
			return fmt.Errorf("opening camera: %w", err)
		}
	}
	if err := view.AttachCamera(camera); err != nil {
		return fmt.Errorf("attaching camera view: %w", err)
	}

	c.mu.Lock()
	bind := !c.controlsBound
	c.controlsBound = true
	c.state = stateCameraOpen
	c.mu.Unlock()

	if bind {
		if err := view.BindControls(c, c.cfg.ToolbarButtons); err != nil {
			return fmt.Errorf("binding controls: %w", err)
		}
		view.SetSelection(c.modes.Snapshot())
		view.OnResize(c.handleResize)
	}

	c.refreshGuide()
	return nil
}

func (c *Controller) openAndStart(ctx context.Context) error {
	if err := c.OpenCamera(ctx); err != nil {
		return err
	}

	camera, router, _, err := c.res.handles()
	if err != nil {
		return err
	}
	if err := camera.SetPixelFormat(engine.PixelFormatRGBA); err != nil {
		return fmt.Errorf("selecting pixel format: %w", err)
	}
	if err := router.StartCapturing(ctx, c.cfg.templateName(c.modes.Mode())); err != nil {
		return fmt.Errorf("starting recognition: %w", err)
	}

	c.mu.Lock()
	c.state = stateCapturing
	c.mu.Unlock()
	return nil
}

// guideDocType picks which format class sizes the guide. Enabled types are
// lexically ordered, so passport wins whenever it is enabled.
func (c *Controller) guideDocType() mrz.DocumentType {
	return c.modes.EnabledTypes()[0]
}

// refreshGuide recomputes the guide rectangle and scan region from the
// camera's current visible viewport.
func (c *Controller) refreshGuide() {
	camera, _, view, err := c.res.handles()
	if err != nil || camera == nil {
		return
	}
	vp, err := camera.VisibleRegion()
	if err != nil {
		slog.Warn("querying visible region", "error", err)
		return
	}
	rect := ComputeGuide(vp, c.guideDocType())
	if err := camera.SetScanRegion(rect.Region()); err != nil {
		slog.Warn("setting scan region", "error", err)
	}
	if c.cfg.ShowGuide {
		view.ShowGuide(rect)
	}
}

// handleResize hides the guide immediately and recomputes it after the
// viewport stops changing.
func (c *Controller) handleResize() {
	if _, _, view, err := c.res.handles(); err == nil {
		view.HideGuide()
	}
	c.mu.Lock()
	if c.resizeTimer != nil {
		c.resizeTimer.Stop()
	}
	c.resizeTimer = time.AfterFunc(c.resizeQuiet, c.refreshGuide)
	c.mu.Unlock()
}

// HandleCapturedResult is the single result receiver registered with the
// recognition engine. Batches carrying only the raw frame are ignored; the
// session keeps waiting. Errors on this path settle the session as failed
// and never propagate past the controller.
func (c *Controller) HandleCapturedResult(batch engine.CapturedResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("result handling panicked", "panic", r)
			c.CloseCamera()
			c.settle(Result{Status: StatusFailed, Message: fmt.Sprintf("processing scan result: %v", r)})
		}
	}()

	var (
		text   *engine.TextLineItem
		parsed *engine.ParsedResultItem
		frame  []byte
	)
	for _, item := range batch.Items {
		switch it := item.(type) {
		case engine.TextLineItem:
			if text == nil {
				text = &it
			}
		case engine.ParsedResultItem:
			if parsed == nil {
				parsed = &it
			}
		case engine.OriginalImageItem:
			if frame == nil {
				frame = it.Image
			}
		}
	}
	if text == nil || parsed == nil {
		return
	}

	c.mu.Lock()
	c.state = stateResultPending
	sound := c.soundEnabled
	c.mu.Unlock()

	if _, _, view, err := c.res.handles(); err == nil && sound {
		view.Beep()
	}

	data, err := mrz.ProcessMRZData(text.Text, parsed.CodeType, parsed.Fields, c.now())
	if err != nil {
		slog.Error("mapping scan result", "error", err)
		c.CloseCamera()
		c.settle(Result{Status: StatusFailed, Message: fmt.Sprintf("processing scan result: %v", err)})
		return
	}

	c.CloseCamera()
	result := Result{
		Status:        StatusSuccess,
		Message:       "scan completed",
		OriginalImage: frame,
		Data:          data,
	}
	c.res.publish(&result)
	c.settle(result)
}

// UploadImage feeds a user-selected file through one-shot recognition and
// then the same mapping/notify/settle path as the live callback. Non-image
// input settles this attempt as failed.
func (c *Controller) UploadImage(ctx context.Context, name, contentType string, data []byte) {
	contentType = imaging.DetectType(name, contentType, data)
	if !imaging.Supported(contentType) {
		slog.Warn("rejected upload", "name", name, "content_type", contentType)
		if _, _, view, err := c.res.handles(); err == nil {
			view.Toast("The selected file is not an image.")
		}
		c.settle(Result{Status: StatusFailed, Message: fmt.Sprintf("unsupported file type %q", contentType)})
		return
	}

	buffer, err := imaging.PrepareCapture(data, contentType)
	if err != nil {
		slog.Error("preparing upload", "name", name, "error", err)
		c.settle(Result{Status: StatusFailed, Message: fmt.Sprintf("reading image: %v", err)})
		return
	}

	_, router, _, err := c.res.handles()
	if err != nil {
		c.settle(Result{Status: StatusFailed, Message: err.Error()})
		return
	}
	batch, err := router.Capture(ctx, buffer, c.cfg.templateName(c.modes.Mode()))
	if err != nil {
		slog.Error("one-shot capture failed", "name", name, "error", err)
		c.CloseCamera()
		c.settle(Result{Status: StatusFailed, Message: fmt.Sprintf("recognizing image: %v", err)})
		return
	}

	c.HandleCapturedResult(batch)

	// One-shot capture delivers nothing further; an unsettled session here
	// means the image carried no recognizable zone.
	c.settle(Result{Status: StatusFailed, Message: "no machine-readable zone found in image"})
}

// CloseCamera stops the capture loop and detaches the camera view.
// Idempotent; always clears the resize debounce timer so it cannot fire
// against torn-down state.
func (c *Controller) CloseCamera() {
	c.mu.Lock()
	if c.resizeTimer != nil {
		c.resizeTimer.Stop()
		c.resizeTimer = nil
	}
	c.mu.Unlock()

	camera, router, view, err := c.res.handles()
	if err != nil {
		return
	}
	if err := router.StopCapturing(); err != nil && !errors.Is(err, engine.ErrLiveCaptureUnsupported) {
		slog.Warn("stopping capture", "error", err)
	}
	view.HideGuide()
	view.DetachCamera()
	if camera != nil && camera.IsOpen() {
		if err := camera.Close(); err != nil {
			slog.Warn("closing camera", "error", err)
		}
	}
}

// HandleCloseBtn is the user-facing cancellation path: close the camera,
// then settle the session as cancelled.
func (c *Controller) HandleCloseBtn() {
	c.CloseCamera()
	c.settle(Result{Status: StatusCancelled, Message: "scan cancelled"})
}

// ToggleScanDocType flips one format class. A last-type guard rejection
// surfaces as a toast and changes nothing; success refreshes mode, guide,
// and selection highlight, restarting the capture loop when one is running.
func (c *Controller) ToggleScanDocType(t mrz.DocumentType) {
	_, router, view, err := c.res.handles()
	if err != nil {
		return
	}

	if err := c.modes.SetEnabled(t, !c.modes.Enabled(t)); err != nil {
		if errors.Is(err, ErrLastEnabledType) {
			view.Toast("At least one document type must stay enabled.")
		} else {
			slog.Warn("toggling document type", "type", t, "error", err)
		}
		return
	}

	view.SetSelection(c.modes.Snapshot())
	c.refreshGuide()

	c.mu.Lock()
	capturing := c.state == stateCapturing
	c.mu.Unlock()
	if capturing {
		if err := router.StopCapturing(); err != nil {
			slog.Warn("stopping capture for mode change", "error", err)
		}
		if err := router.StartCapturing(context.Background(), c.cfg.templateName(c.modes.Mode())); err != nil {
			slog.Error("restarting capture after mode change", "error", err)
			c.settle(Result{Status: StatusFailed, Message: fmt.Sprintf("restarting capture: %v", err)})
		}
	}
}

// settle resolves the pending completion. No pending slot, or an already
// settled one, is a no-op, never a crash.
func (c *Controller) settle(r Result) {
	c.mu.Lock()
	pending := c.pending
	c.mu.Unlock()
	if pending == nil {
		return
	}
	if pending.settle(r) {
		c.mu.Lock()
		c.state = stateResolved
		c.mu.Unlock()
	}
}

// CloseRequested implements ControlHandler.
func (c *Controller) CloseRequested() { c.HandleCloseBtn() }

// DocTypeToggled implements ControlHandler.
func (c *Controller) DocTypeToggled(t mrz.DocumentType) { c.ToggleScanDocType(t) }

// FileSelected implements ControlHandler.
func (c *Controller) FileSelected(name, contentType string, data []byte) {
	c.UploadImage(context.Background(), name, contentType, data)
}
