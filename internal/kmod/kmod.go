// Package kmod reads the kernel's loaded-module listing and drives module
// load/unload through modprobe.
package kmod

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/zenithax-cc/egpuctl/pkg/executor"
)

const procModules = "/proc/modules"

// Module is one row of /proc/modules.
type Module struct {
	Name   string
	Size   int64
	Refs   int
	UsedBy []string
}

// ExternalRefs is the number of users of a module that are not other
// loaded modules. The kernel counts module-to-module dependencies in the
// reference count (nvidia is always "used by" nvidia_modeset while both
// are loaded), so the raw count alone cannot distinguish "in use by a
// display server" from "in use by its own driver stack". References
// beyond the named dependents are open handles.
func (m Module) ExternalRefs() int {
	if n := m.Refs - len(m.UsedBy); n > 0 {
		return n
	}
	return 0
}

// Manager queries and manipulates kernel module state.
type Manager struct {
	// ProcModules is the path of the loaded-module listing, overridable
	// for tests.
	ProcModules string
}

func NewManager() *Manager {
	return &Manager{ProcModules: procModules}
}

// Loaded parses the loaded-module listing into a map keyed by module
// name.
func (m *Manager) Loaded() (map[string]Module, error) {
	data, err := os.ReadFile(m.ProcModules)
	if err != nil {
		return nil, fmt.Errorf("read %s failed: %w", m.ProcModules, err)
	}

	modules := make(map[string]Module)
	for _, line := range strings.Split(string(data), "\n") {
		mod, ok := parseModuleLine(line)
		if ok {
			modules[mod.Name] = mod
		}
	}

	return modules, nil
}

// parseModuleLine parses a line of the form
//
//	nvidia 62849024 10 nvidia_uvm,nvidia_modeset, Live 0x0000000000000000
//
// where the fourth field is "-" when nothing depends on the module.
func parseModuleLine(line string) (Module, bool) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return Module{}, false
	}

	size, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return Module{}, false
	}
	refs, err := strconv.Atoi(fields[2])
	if err != nil {
		return Module{}, false
	}

	var usedBy []string
	if fields[3] != "-" {
		for _, name := range strings.Split(strings.TrimSuffix(fields[3], ","), ",") {
			if name != "" {
				usedBy = append(usedBy, name)
			}
		}
	}

	return Module{
		Name:   fields[0],
		Size:   size,
		Refs:   refs,
		UsedBy: usedBy,
	}, true
}

// Unload removes the named modules in the given order. The caller is
// responsible for ordering dependents before the modules they depend on.
// Modules that are not loaded are skipped by modprobe itself.
func (m *Manager) Unload(ctx context.Context, names ...string) error {
	for _, name := range names {
		if _, err := executor.ExecuteWithContext(ctx, "modprobe", "--remove", name); err != nil {
			return fmt.Errorf("unload module %s failed: %w", name, err)
		}
	}
	return nil
}

// Load inserts the named modules.
func (m *Manager) Load(ctx context.Context, names ...string) error {
	for _, name := range names {
		if _, err := executor.ExecuteWithContext(ctx, "modprobe", name); err != nil {
			return fmt.Errorf("load module %s failed: %w", name, err)
		}
	}
	return nil
}

// ModulesFor returns the kernel modules implicated by a display driver,
// ordered dependents-first for unloading. The proprietary NVIDIA stack
// loads as four modules; open-source drivers are a single module named
// after the driver.
func ModulesFor(driver string) []string {
	if driver == "nvidia" {
		return []string{"nvidia_uvm", "nvidia_drm", "nvidia_modeset", "nvidia"}
	}
	return []string{driver}
}

// ReloadSet returns the modules to insert when rebinding a driver. The
// proprietary stack needs its DRM submodule loaded explicitly so the
// display server can find the device again.
func ReloadSet(driver string) []string {
	if driver == "nvidia" {
		return []string{"nvidia", "nvidia_drm"}
	}
	return []string{driver}
}
