// Package config provides configuration management for vmacro.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"vmacro/internal/hotkey"
	"vmacro/internal/playback"
)

// ErrInvalidConfig is wrapped by every Validate failure
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config represents the application configuration
type Config struct {
	// Screen bounds recorded coordinates are clamped to
	Screen ScreenConfig `yaml:"screen" json:"screen"`

	// Capture contains recording settings
	Capture CaptureConfig `yaml:"capture" json:"capture"`

	// Playback contains replay settings
	Playback PlaybackConfig `yaml:"playback" json:"playback"`

	// History contains run history settings
	History HistoryConfig `yaml:"history" json:"history"`
}

// ScreenConfig is the fallback screen size. Zero means detect it.
type ScreenConfig struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// CaptureConfig contains recording settings
type CaptureConfig struct {
	// CancelChord is the key combination that ends a recording (e.g. "Shift+Escape")
	CancelChord string `yaml:"cancel_chord" json:"cancel_chord"`

	// MaxMoveRate limits recorded mouse moves per second, 0 = unlimited
	MaxMoveRate float64 `yaml:"max_move_rate" json:"max_move_rate"`
}

// PlaybackConfig contains replay settings
type PlaybackConfig struct {
	// VerifyClickZones checks screen colors inside click zones
	VerifyClickZones bool `yaml:"verify_click_zones" json:"verify_click_zones"`

	// Tolerance is the per-channel color difference below which colors match
	Tolerance int `yaml:"tolerance" json:"tolerance"`

	// PausePollMS is how often a paused session checks for resume, in milliseconds
	PausePollMS int `yaml:"pause_poll_ms" json:"pause_poll_ms"`

	// OnFailure is "stop", "continue" or "fallback"
	OnFailure string `yaml:"on_failure" json:"on_failure"`

	// FallbackPath is the recording played when OnFailure is "fallback"
	FallbackPath string `yaml:"fallback_path,omitempty" json:"fallback_path,omitempty"`
}

// HistoryConfig contains run history settings
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// DefaultConfig returns a new Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Capture: CaptureConfig{
			CancelChord: "Shift+Escape",
		},
		Playback: PlaybackConfig{
			Tolerance:   playback.DefaultTolerance,
			PausePollMS: int(playback.DefaultPollInterval / time.Millisecond),
			OnFailure:   "stop",
		},
		History: HistoryConfig{
			Enabled: true,
		},
	}
}

// Validate checks the configuration for values the engine cannot use
func (c *Config) Validate() error {
	if c.Screen.Width < 0 || c.Screen.Height < 0 {
		return fmt.Errorf("%w: negative screen size %dx%d", ErrInvalidConfig, c.Screen.Width, c.Screen.Height)
	}
	if _, err := hotkey.ParseChord(c.Capture.CancelChord); err != nil {
		return fmt.Errorf("%w: capture.cancel_chord: %w", ErrInvalidConfig, err)
	}
	if c.Capture.MaxMoveRate < 0 {
		return fmt.Errorf("%w: capture.max_move_rate must not be negative", ErrInvalidConfig)
	}
	if c.Playback.Tolerance < 1 || c.Playback.Tolerance > 255 {
		return fmt.Errorf("%w: playback.tolerance %d outside 1..255", ErrInvalidConfig, c.Playback.Tolerance)
	}
	if c.Playback.PausePollMS <= 0 {
		return fmt.Errorf("%w: playback.pause_poll_ms must be positive", ErrInvalidConfig)
	}
	policy, err := playback.ParseFailurePolicy(c.Playback.OnFailure)
	if err != nil {
		return fmt.Errorf("%w: playback.on_failure: %w", ErrInvalidConfig, err)
	}
	if policy == playback.RunFallback && c.Playback.FallbackPath == "" {
		return fmt.Errorf("%w: playback.on_failure is fallback but fallback_path is empty", ErrInvalidConfig)
	}
	return nil
}

// PollInterval returns the pause poll interval
func (p PlaybackConfig) PollInterval() time.Duration {
	return time.Duration(p.PausePollMS) * time.Millisecond
}

// DBPath returns the history database path, defaulting to history.db in Dir
func (h HistoryConfig) DBPath() (string, error) {
	if h.Path != "" {
		return h.Path, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// Manager handles loading and saving configuration
type Manager struct {
	mu         sync.Mutex
	configPath string
	config     *Config
	onChanged  func()
}

// NewManager creates a configuration manager for the default config file
func NewManager() (*Manager, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return NewManagerAt(filepath.Join(dir, "config.yaml")), nil
}

// NewManagerAt creates a configuration manager for the file at path.
// The format follows the extension: .json, otherwise YAML.
func NewManagerAt(path string) *Manager {
	return &Manager{
		configPath: path,
		config:     DefaultConfig(),
	}
}

// Dir returns the vmacro configuration directory, creating it if needed
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, "vmacro")

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// Path returns the configuration file path
func (m *Manager) Path() string {
	return m.configPath
}

func (m *Manager) isJSON() bool {
	return strings.EqualFold(filepath.Ext(m.configPath), ".json")
}

// Load reads the configuration from disk. A missing file keeps the defaults.
func (m *Manager) Load() error {
	m.mu.Lock()

	data, err := os.ReadFile(m.configPath)
	if os.IsNotExist(err) {
		// No config file, use defaults
		m.mu.Unlock()
		return nil
	}
	if err != nil {
		m.mu.Unlock()
		return err
	}

	cfg := DefaultConfig()
	if m.isJSON() {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("config: parse %s: %w", m.configPath, err)
	}
	if err := cfg.Validate(); err != nil {
		m.mu.Unlock()
		return err
	}
	m.config = cfg
	onChanged := m.onChanged
	m.mu.Unlock()

	if onChanged != nil {
		onChanged()
	}
	return nil
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var data []byte
	var err error
	if m.isJSON() {
		data, err = json.MarshalIndent(m.config, "", "  ")
	} else {
		data, err = yaml.Marshal(m.config)
	}
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(m.configPath), 0755); err != nil {
		return err
	}
	log.Printf("Config: Saving configuration to %s (%d bytes)", m.configPath, len(data))
	return os.WriteFile(m.configPath, data, 0644)
}

// Get returns the current configuration
func (m *Manager) Get() *Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// Set validates and replaces the configuration
func (m *Manager) Set(config *Config) error {
	if err := config.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.config = config
	onChanged := m.onChanged
	m.mu.Unlock()
	if onChanged != nil {
		onChanged()
	}
	return nil
}

// RegisterChangeCallback registers a function to be called when config changes
func (m *Manager) RegisterChangeCallback(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChanged = fn
}
