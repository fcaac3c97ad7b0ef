package scanner

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/zombor/mrz-scanner/internal/engine"
)

// ErrScanInFlight is returned when a launch is attempted while another
// session is outstanding. Sessions are never queued.
var ErrScanInFlight = errors.New("a scan session is already in flight")

// Host is the outer façade: it owns the shared resources, wires
// configuration defaults, and admits exactly one scan session at a time.
// The host is the sole disposer of resources, and only after a session
// fully completes, so nothing is torn down mid-callback.
type Host struct {
	mu         sync.Mutex
	cfg        Config
	camera     engine.Camera
	router     engine.Router
	view       ViewPort
	onResult   func(*Result)
	modes      *ModeManager
	capturing  bool
	lastResult *Result
}

// NewHost builds a host around externally constructed engine handles. The
// camera may be nil for upload-only deployments.
func NewHost(cfg Config, camera engine.Camera, router engine.Router, view ViewPort) *Host {
	cfg = cfg.withDefaults()
	modes := NewModeManager()
	modes.InitFromConfig(cfg.DocTypes)
	return &Host{
		cfg:    cfg,
		camera: camera,
		router: router,
		view:   view,
		modes:  modes,
	}
}

// OnResult installs the result-update notification hook consumed by the
// display layer.
func (h *Host) OnResult(fn func(*Result)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onResult = fn
}

// Modes exposes the scan-mode state for UI queries.
func (h *Host) Modes() *ModeManager {
	return h.modes
}

// LastResult returns the most recent terminal result, if any.
func (h *Host) LastResult() *Result {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastResult
}

// Launch runs one live-capture session. A second launch while one is
// outstanding fails fast with ErrScanInFlight.
func (h *Host) Launch(ctx context.Context) (*Result, error) {
	return h.run(func(c *Controller) (Result, error) {
		return c.Launch(ctx)
	})
}

// ScanImage runs one upload-only session over a file the user selected.
func (h *Host) ScanImage(ctx context.Context, name, contentType string, data []byte) (*Result, error) {
	return h.run(func(c *Controller) (Result, error) {
		return c.ScanImage(ctx, name, contentType, data)
	})
}

func (h *Host) run(session func(*Controller) (Result, error)) (*Result, error) {
	h.mu.Lock()
	if h.capturing {
		h.mu.Unlock()
		return nil, ErrScanInFlight
	}
	if h.router == nil || h.view == nil {
		h.mu.Unlock()
		return nil, errors.New("scanner host is not configured")
	}
	h.capturing = true
	res := NewResources(h.camera, h.router, h.view, h.onResult)
	h.mu.Unlock()

	controller := NewController(res, h.modes, h.cfg)
	result, err := session(controller)

	// The session has reached a terminal outcome; tearing down here can no
	// longer race a result callback.
	res.dispose()
	h.mu.Lock()
	h.capturing = false
	if err == nil {
		h.lastResult = &result
	}
	h.mu.Unlock()

	if err != nil {
		slog.Error("scan session rejected", "error", err)
		return nil, err
	}
	slog.Info("scan session completed", "status", result.Status)
	return &result, nil
}
