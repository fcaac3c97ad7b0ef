package scanner

import (
	"errors"
	"sync"

	"github.com/zombor/mrz-scanner/internal/engine"
)

// ErrResourcesDisposed marks use of shared resources after the host tore
// them down.
var ErrResourcesDisposed = errors.New("shared resources have been disposed")

// Resources are the session-wide handles shared by reference between the
// host and the controller. The host is the sole owner and disposer; the
// controller calls methods on them but never tears them down.
type Resources struct {
	mu         sync.Mutex
	camera     engine.Camera
	router     engine.Router
	view       ViewPort
	lastResult *Result
	onResult   func(*Result)
	disposed   bool
}

// NewResources bundles the engine handles for one host.
func NewResources(camera engine.Camera, router engine.Router, view ViewPort, onResult func(*Result)) *Resources {
	return &Resources{camera: camera, router: router, view: view, onResult: onResult}
}

func (r *Resources) handles() (engine.Camera, engine.Router, ViewPort, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return nil, nil, nil, ErrResourcesDisposed
	}
	return r.camera, r.router, r.view, nil
}

// publish records the result and fires the update hook.
func (r *Resources) publish(result *Result) {
	r.mu.Lock()
	r.lastResult = result
	hook := r.onResult
	r.mu.Unlock()
	if hook != nil {
		hook(result)
	}
}

// LastResult returns the most recently published result, if any.
func (r *Resources) LastResult() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastResult
}

// dispose nulls out the engine handles. Subsequent use surfaces as
// ErrResourcesDisposed rather than a crash.
func (r *Resources) dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.camera = nil
	r.router = nil
	r.view = nil
	r.disposed = true
}
