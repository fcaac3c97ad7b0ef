package scanner

import (
	"sync"

	"github.com/zombor/mrz-scanner/internal/mrz"
)

// Status is the terminal outcome of a scan attempt.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Result is the discriminated outcome of one scan attempt. Data is present
// exactly when Status is StatusSuccess. OriginalImage is a borrowed
// reference to the engine-owned frame, valid for one result cycle.
type Result struct {
	Status        Status    `json:"status"`
	Message       string    `json:"message"`
	OriginalImage []byte    `json:"-"`
	Data          *mrz.Data `json:"data,omitempty"`
}

// completion is the single-slot pending outcome of a session. Whichever code
// path reaches a terminal state first settles it; every later settle is a
// no-op. This is the resolve-exactly-once invariant made explicit.
type completion struct {
	mu      sync.Mutex
	settled bool
	ch      chan Result
}

func newCompletion() *completion {
	return &completion{ch: make(chan Result, 1)}
}

// settle records the terminal result. Returns false when the slot was
// already settled.
func (c *completion) settle(r Result) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.settled {
		return false
	}
	c.settled = true
	c.ch <- r
	return true
}

// wait blocks until the slot settles.
func (c *completion) wait() Result {
	return <-c.ch
}

func (c *completion) isSettled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settled
}
