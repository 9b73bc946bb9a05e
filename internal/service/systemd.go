// Package service controls system services through systemctl. The display
// manager and the boot-time re-detection unit are both managed here.
package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/zenithax-cc/egpuctl/pkg/executor"
	"github.com/zenithax-cc/egpuctl/pkg/utils"
)

// Controller is the service surface the removal orchestrator depends on.
type Controller interface {
	Start(ctx context.Context, unit string) error
	Stop(ctx context.Context, unit string) error
	IsActive(ctx context.Context, unit string) (bool, error)
}

// Systemd drives services via systemctl.
type Systemd struct{}

func (Systemd) run(ctx context.Context, args ...string) error {
	if out, err := executor.ExecuteWithContext(ctx, "systemctl", args...); err != nil {
		return fmt.Errorf("systemctl %v failed: %w: %s", args, err, out)
	}
	return nil
}

func (s Systemd) Start(ctx context.Context, unit string) error {
	return s.run(ctx, "start", unit)
}

func (s Systemd) Stop(ctx context.Context, unit string) error {
	return s.run(ctx, "stop", unit)
}

func (s Systemd) Restart(ctx context.Context, unit string) error {
	return s.run(ctx, "restart", unit)
}

func (s Systemd) Enable(ctx context.Context, unit string) error {
	return s.run(ctx, "enable", unit)
}

func (s Systemd) Disable(ctx context.Context, unit string) error {
	return s.run(ctx, "disable", unit)
}

// ActiveState reads the unit's ActiveState property. systemctl show exits
// zero even for unknown units, reporting "inactive".
func (s Systemd) ActiveState(ctx context.Context, unit string) (string, error) {
	out, err := executor.ExecuteWithContext(ctx, "systemctl", "show", "--property=ActiveState", unit)
	if err != nil {
		return "", fmt.Errorf("query %s state failed: %w", unit, err)
	}

	state, ok := utils.ParseKeyValue(string(out), "=")["ActiveState"]
	if !ok {
		return "", fmt.Errorf("no ActiveState in systemctl output for %s", unit)
	}
	return state, nil
}

// IsActive reports whether the unit has fully stopped. Transitional
// states (activating, deactivating) count as active: starting driver
// work while the display manager is mid-stop risks resource conflicts.
func (s Systemd) IsActive(ctx context.Context, unit string) (bool, error) {
	state, err := s.ActiveState(ctx, unit)
	if err != nil {
		return false, err
	}
	return state != "inactive" && state != "failed", nil
}

// WaitInactive polls the unit until it reports fully inactive. There is
// no attempt cap; the context bounds the wait.
func WaitInactive(ctx context.Context, c Controller, unit string, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}

	for {
		active, err := c.IsActive(ctx, unit)
		if err != nil {
			return err
		}
		if !active {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// InstallUnit writes a unit file and reloads the systemd daemon so the
// unit becomes visible.
func (s Systemd) InstallUnit(ctx context.Context, path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("write unit file %s failed: %w", path, err)
	}
	return s.run(ctx, "daemon-reload")
}

// RemoveUnit deletes a unit file and reloads the daemon. A missing unit
// file is not an error.
func (s Systemd) RemoveUnit(ctx context.Context, path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove unit file %s failed: %w", path, err)
	}
	return s.run(ctx, "daemon-reload")
}
