// Package config persists the adapter selection made during setup.
//
// Configuration lives in a single yaml file under /etc/egpuctl. There is
// no automatic discovery and no fallback: if the file is missing the
// operator is told to run setup.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/zenithax-cc/egpuctl/internal/pci"
)

const (
	// DefaultDir is where the config file and the per-adapter xorg
	// artifacts live.
	DefaultDir = "/etc/egpuctl"

	fileName = "config.yaml"
)

// ErrNotConfigured reports a missing configuration file.
var ErrNotConfigured = errors.New("not configured, run 'egpuctl setup' first")

// Adapter records one graphics adapter chosen during setup.
type Adapter struct {
	// Bus is the adapter's bus address in kernel form ("01:00.0").
	Bus string `yaml:"bus" json:"bus"`

	// Driver is the kernel/display driver for this adapter.
	Driver string `yaml:"driver" json:"driver"`

	// Name is the human-readable device name from enumeration.
	Name string `yaml:"name" json:"name"`
}

// Address parses the recorded bus address.
func (a Adapter) Address() (pci.Address, error) {
	return pci.ParseKernelForm(a.Bus)
}

// Config is the persisted setup state.
type Config struct {
	External Adapter `yaml:"external" json:"external"`
	Internal Adapter `yaml:"internal" json:"internal"`

	// DisplayManager is the systemd unit of the display manager,
	// without the .service suffix ("gdm", "sddm", ...).
	DisplayManager string `yaml:"display_manager" json:"display_manager"`
}

// Load reads the configuration from dir. A missing file maps to
// ErrNotConfigured; a present but unparsable or incomplete file is
// surfaced as its own error.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, fileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w (%s missing)", ErrNotConfigured, path)
		}
		return nil, fmt.Errorf("read config %s failed: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s failed: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s invalid: %w", path, err)
	}

	return &cfg, nil
}

// Save writes the configuration to dir, creating it if needed.
func (c *Config) Save(dir string) error {
	if err := c.validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config directory %s failed: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config failed: %w", err)
	}

	path := filepath.Join(dir, fileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config %s failed: %w", path, err)
	}

	return nil
}

func (c *Config) validate() error {
	if _, err := c.External.Address(); err != nil {
		return fmt.Errorf("external adapter: %w", err)
	}
	if _, err := c.Internal.Address(); err != nil {
		return fmt.Errorf("internal adapter: %w", err)
	}
	if c.External.Driver == "" {
		return errors.New("external adapter has no driver")
	}
	if c.DisplayManager == "" {
		return errors.New("no display manager recorded")
	}
	return nil
}
