package scanner

import (
	"strings"

	"github.com/zombor/mrz-scanner/internal/mrz"
)

// trialLicense is the built-in evaluation token used when no license is
// configured or the configured value is itself a trial token.
const (
	trialLicensePrefix = "TRIAL-"
	trialLicense       = "TRIAL-MRZSCANNER-EVALUATION"
)

// ButtonConfig describes one custom toolbar button.
type ButtonConfig struct {
	Icon    string
	Label   string
	Class   string
	Visible bool
}

// Config is the recognized configuration surface of a scanner host.
type Config struct {
	// License is the recognition-engine license string. Empty or
	// trial-prefixed values fall back to the built-in trial token.
	License string

	// TemplatePath is the capture template settings file loaded at session
	// initialization.
	TemplatePath string

	// TemplateNames overrides the per-mode capture template names. Modes
	// absent from the map use DefaultTemplateNames.
	TemplateNames map[Mode]string

	// DocTypes is the initially enabled document-type subset. Empty enables
	// all types.
	DocTypes []mrz.DocumentType

	// Per-view show/hide toggles.
	ShowGuide          bool
	ShowUploadButton   bool
	ShowFormatSelector bool
	ShowSoundToggle    bool

	// SoundEnabled is the initial state of the audible capture cue.
	SoundEnabled bool

	// ToolbarButtons are custom control-bar button definitions.
	ToolbarButtons []ButtonConfig
}

// withDefaults resolves the license fallback and fills the template map.
func (c Config) withDefaults() Config {
	if c.License == "" || strings.HasPrefix(c.License, trialLicensePrefix) {
		c.License = trialLicense
	}
	names := make(map[Mode]string, len(DefaultTemplateNames))
	for mode, name := range DefaultTemplateNames {
		names[mode] = name
	}
	for mode, name := range c.TemplateNames {
		names[mode] = name
	}
	c.TemplateNames = names
	return c
}

// templateName resolves the capture template for a mode.
func (c Config) templateName(mode Mode) string {
	return c.TemplateNames[mode]
}
