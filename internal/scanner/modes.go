package scanner

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/zombor/mrz-scanner/internal/mrz"
)

// ErrLastEnabledType is returned when a toggle would leave no document type
// enabled.
var ErrLastEnabledType = errors.New("at least one document type must stay enabled")

// Mode identifies the exact set of document format classes a session will
// attempt to recognize.
type Mode string

const (
	ModeTD1            Mode = "td1"
	ModeTD2            Mode = "td2"
	ModeTD1TD2         Mode = "td1-td2"
	ModePassport       Mode = "passport"
	ModePassportTD1    Mode = "passport-td1"
	ModePassportTD2    Mode = "passport-td2"
	ModePassportTD1TD2 Mode = "passport-td1-td2"
)

// modesByKey maps the lexically sorted enabled-set to its mode. These seven
// entries cover every non-empty subset of the three format classes.
var modesByKey = map[string]Mode{
	"passport":         ModePassport,
	"passport,td1":     ModePassportTD1,
	"passport,td1,td2": ModePassportTD1TD2,
	"passport,td2":     ModePassportTD2,
	"td1":              ModeTD1,
	"td1,td2":          ModeTD1TD2,
	"td2":              ModeTD2,
}

// DefaultTemplateNames maps each mode to the capture template it starts the
// recognition pipeline with.
var DefaultTemplateNames = map[Mode]string{
	ModeTD1:            "ReadId-TD1",
	ModeTD2:            "ReadId-TD2",
	ModeTD1TD2:         "ReadId",
	ModePassport:       "ReadPassport",
	ModePassportTD1:    "ReadPassportAndId-TD1",
	ModePassportTD2:    "ReadPassportAndId-TD2",
	ModePassportTD1TD2: "ReadPassportAndId",
}

// ModeManager tracks which document format classes are enabled and derives
// the active scan mode. At least one class is always enabled.
type ModeManager struct {
	mu      sync.Mutex
	enabled map[mrz.DocumentType]bool
}

// NewModeManager returns a manager with all format classes enabled.
func NewModeManager() *ModeManager {
	return &ModeManager{
		enabled: map[mrz.DocumentType]bool{
			mrz.TD1:      true,
			mrz.TD2:      true,
			mrz.Passport: true,
		},
	}
}

// InitFromConfig enables exactly the requested classes. An empty or fully
// unrecognized request enables all of them; the at-least-one invariant is
// never violated by bad input.
func (m *ModeManager) InitFromConfig(types []mrz.DocumentType) {
	m.mu.Lock()
	defer m.mu.Unlock()

	requested := make(map[mrz.DocumentType]bool)
	for _, t := range types {
		if _, ok := m.enabled[t]; ok {
			requested[t] = true
		}
	}
	if len(requested) == 0 {
		for t := range m.enabled {
			m.enabled[t] = true
		}
		return
	}
	for t := range m.enabled {
		m.enabled[t] = requested[t]
	}
}

// SetEnabled toggles one format class. Disabling the last enabled class is
// rejected with ErrLastEnabledType and leaves the state unchanged.
func (m *ModeManager) SetEnabled(t mrz.DocumentType, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.enabled[t]; !ok {
		return fmt.Errorf("unknown document type: %q", t)
	}
	if !enabled && m.enabled[t] && m.enabledCount() == 1 {
		return ErrLastEnabledType
	}
	m.enabled[t] = enabled
	return nil
}

// Enabled reports whether one format class is enabled.
func (m *ModeManager) Enabled(t mrz.DocumentType) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled[t]
}

// EnabledTypes returns the enabled classes in lexical order.
func (m *ModeManager) EnabledTypes() []mrz.DocumentType {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabledTypes()
}

// Snapshot returns the full enabled map, for selection-highlight rendering.
func (m *ModeManager) Snapshot() map[mrz.DocumentType]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[mrz.DocumentType]bool, len(m.enabled))
	for t, on := range m.enabled {
		out[t] = on
	}
	return out
}

// Mode derives the scan mode from the current enabled set. The enabled set
// is never empty, so the lookup cannot miss; a miss is a programming error.
func (m *ModeManager) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, 3)
	for _, t := range m.enabledTypes() {
		keys = append(keys, string(t))
	}
	mode, ok := modesByKey[strings.Join(keys, ",")]
	if !ok {
		panic(fmt.Sprintf("scanner: no mode for enabled set %v", keys))
	}
	return mode
}

func (m *ModeManager) enabledCount() int {
	n := 0
	for _, on := range m.enabled {
		if on {
			n++
		}
	}
	return n
}

func (m *ModeManager) enabledTypes() []mrz.DocumentType {
	types := make([]mrz.DocumentType, 0, len(m.enabled))
	for t, on := range m.enabled {
		if on {
			types = append(types, t)
		}
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
