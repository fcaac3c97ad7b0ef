package history

import (
	"time"

	"github.com/zombor/mrz-scanner/internal/mrz"
	"github.com/zombor/mrz-scanner/internal/scanner"
)

// Record is one persisted scan outcome.
type Record struct {
	ID            string         `json:"id"`
	Status        scanner.Status `json:"status"`
	Message       string         `json:"message"`
	Data          *mrz.Data      `json:"data,omitempty"`
	FrameFilename string         `json:"frame_filename,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}
