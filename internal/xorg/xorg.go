// Package xorg manages the per-adapter display server configuration
// artifacts and the symlink that selects the active one.
package xorg

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/zenithax-cc/egpuctl/internal/model"
	"github.com/zenithax-cc/egpuctl/internal/pci"
)

// DefaultLinkPath is the config snippet the display server actually
// reads. It points at one of the generated artifacts.
const DefaultLinkPath = "/etc/X11/xorg.conf.d/99-egpuctl.conf"

const (
	externalArtifact = "xorg.conf.egpu"
	internalArtifact = "xorg.conf.internal"
)

// deviceSection is the generated artifact body. BusID uses the decimal
// triplet notation with xorg's PCI prefix.
const deviceSection = `Section "Device"
    Identifier "Device0"
    Driver     "%s"
    BusID      "PCI:%s"
EndSection
`

var (
	driverLine = regexp.MustCompile(`Driver\s+"([^"]+)"`)
	busIDLine  = regexp.MustCompile(`BusID\s+"PCI:([0-9:]+)"`)
)

// Artifacts manages the artifact pair under Dir and the active symlink at
// LinkPath.
type Artifacts struct {
	Dir      string
	LinkPath string
}

func DefaultArtifacts(dir string) Artifacts {
	return Artifacts{Dir: dir, LinkPath: DefaultLinkPath}
}

func (a Artifacts) path(mode model.Mode) (string, error) {
	switch mode {
	case model.ModeExternal:
		return filepath.Join(a.Dir, externalArtifact), nil
	case model.ModeInternal:
		return filepath.Join(a.Dir, internalArtifact), nil
	}
	return "", fmt.Errorf("no artifact for mode %s", mode)
}

// Write renders the artifact for a mode.
func (a Artifacts) Write(mode model.Mode, driver string, addr pci.Address) error {
	path, err := a.path(mode)
	if err != nil {
		return err
	}

	content := fmt.Sprintf(deviceSection, driver, addr.DecimalTriplet())
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("write artifact %s failed: %w", path, err)
	}
	return nil
}

// Read extracts the driver name and bus address back out of an artifact.
func (a Artifacts) Read(mode model.Mode) (string, pci.Address, error) {
	path, err := a.path(mode)
	if err != nil {
		return "", pci.Address{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", pci.Address{}, fmt.Errorf("read artifact %s failed: %w", path, err)
	}
	text := string(data)

	driver := driverLine.FindStringSubmatch(text)
	if driver == nil {
		return "", pci.Address{}, fmt.Errorf("artifact %s has no Driver line", path)
	}

	busID := busIDLine.FindStringSubmatch(text)
	if busID == nil {
		return "", pci.Address{}, fmt.Errorf("artifact %s has no BusID line", path)
	}

	addr, err := pci.ParseDecimalTriplet(busID[1])
	if err != nil {
		return "", pci.Address{}, fmt.Errorf("artifact %s: %w", path, err)
	}

	return driver[1], addr, nil
}

// Exists reports whether the artifact for a mode is present.
func (a Artifacts) Exists(mode model.Mode) bool {
	path, err := a.path(mode)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Activate points the display server's config snippet at the artifact
// for the given mode. The symlink is replaced atomically via a rename so
// a crash never leaves the link missing.
func (a Artifacts) Activate(mode model.Mode) error {
	target, err := a.path(mode)
	if err != nil {
		return err
	}
	if _, err := os.Stat(target); err != nil {
		return fmt.Errorf("artifact for mode %s missing: %w", mode, err)
	}

	if err := os.MkdirAll(filepath.Dir(a.LinkPath), 0755); err != nil {
		return fmt.Errorf("create %s failed: %w", filepath.Dir(a.LinkPath), err)
	}

	tmp := a.LinkPath + ".tmp"
	if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Symlink(target, tmp); err != nil {
		return fmt.Errorf("create symlink failed: %w", err)
	}
	if err := os.Rename(tmp, a.LinkPath); err != nil {
		return fmt.Errorf("activate %s failed: %w", target, err)
	}

	return nil
}

// Active reports which mode the current symlink selects, or ModeAuto
// when no artifact is active.
func (a Artifacts) Active() model.Mode {
	target, err := os.Readlink(a.LinkPath)
	if err != nil {
		return model.ModeAuto
	}
	switch filepath.Base(target) {
	case externalArtifact:
		return model.ModeExternal
	case internalArtifact:
		return model.ModeInternal
	}
	return model.ModeAuto
}

// Deactivate removes the active symlink. Missing is fine.
func (a Artifacts) Deactivate() error {
	if err := os.Remove(a.LinkPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s failed: %w", a.LinkPath, err)
	}
	return nil
}

// RemoveArtifacts deletes both generated artifacts. Missing files are
// fine.
func (a Artifacts) RemoveArtifacts() error {
	var errs []error
	for _, name := range []string{externalArtifact, internalArtifact} {
		if err := os.Remove(filepath.Join(a.Dir, name)); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
