package gpu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/zenithax-cc/egpuctl/internal/kmod"
	"github.com/zenithax-cc/egpuctl/internal/model"
	"github.com/zenithax-cc/egpuctl/internal/pci"
	"github.com/zenithax-cc/egpuctl/internal/service"
	"github.com/zenithax-cc/egpuctl/pkg/utils"
)

// ErrDeviceNotPresent reports a removal attempted against an external
// adapter the presence poll cannot see. Nothing has been touched when
// this is returned.
var ErrDeviceNotPresent = errors.New("external adapter not present")

// ModuleManager is the kernel-module surface the orchestrator depends
// on. *kmod.Manager implements it; tests substitute a recorder.
type ModuleManager interface {
	Loaded() (map[string]kmod.Module, error)
	Unload(ctx context.Context, names ...string) error
	Load(ctx context.Context, names ...string) error
}

// Remover detaches the external adapter's driver so the adapter can be
// unplugged. The display manager is stopped for the duration and its
// restart is guaranteed: once the stop succeeds, the restart runs no
// matter how the unbind work ends.
type Remover struct {
	Services service.Controller
	Modules  ModuleManager
	Lister   pci.Lister

	// SysfsRoot is "/sys" in production, a synthetic tree in tests.
	SysfsRoot string

	// StopPollInterval is the delay between display manager state
	// checks while waiting for it to stop. Defaults to one second.
	StopPollInterval time.Duration

	// SettleDelay is the pause after a driver reload. Defaults to one
	// second.
	SettleDelay time.Duration

	Log *slog.Logger
}

// Remove runs the hot-removal sequence for the adapter at addr, driven
// by driver, serialized against the displayManager unit.
func (r *Remover) Remove(ctx context.Context, addr pci.Address, driver, displayManager string) (outcome model.RemovalOutcome, err error) {
	log := r.Log
	if log == nil {
		log = slog.Default()
	}
	sysfs := r.SysfsRoot
	if sysfs == "" {
		sysfs = "/sys"
	}
	settle := r.SettleDelay
	if settle <= 0 {
		settle = time.Second
	}

	present, err := pci.AwaitPresence(ctx, r.Lister, addr, 0, 0)
	if err != nil {
		return model.RemovalOutcome{}, err
	}
	if !present {
		return model.RemovalOutcome{}, fmt.Errorf("%w: %s", ErrDeviceNotPresent, addr)
	}

	// Stopping the display manager can tear down the session this
	// command was launched from, which delivers SIGHUP/SIGTERM here.
	// Shield the whole sequence so the guaranteed restart below runs.
	signal.Ignore(unix.SIGHUP, unix.SIGTERM)
	defer signal.Reset(unix.SIGHUP, unix.SIGTERM)

	log.Info("stopping display manager", "unit", displayManager)
	if err := r.Services.Stop(ctx, displayManager); err != nil {
		return model.RemovalOutcome{}, fmt.Errorf("stop display manager failed: %w", err)
	}

	// The stop above and this restart form an acquire/release pair
	// around the unbind work. The restart context is detached from
	// cancellation: an interrupted command must still restore the
	// display manager.
	defer func() {
		restartCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
		defer cancel()

		log.Info("restarting display manager", "unit", displayManager)
		if startErr := r.Services.Start(restartCtx, displayManager); startErr != nil {
			log.Error("restart display manager failed", "unit", displayManager, "err", startErr)
			if err == nil {
				err = startErr
			}
		}
	}()

	if err = service.WaitInactive(ctx, r.Services, displayManager, r.StopPollInterval); err != nil {
		return outcome, err
	}

	loaded, err := r.Modules.Loaded()
	if err != nil {
		return outcome, err
	}

	implicated := kmod.ModulesFor(driver)
	for _, name := range implicated {
		mod, ok := loaded[name]
		if ok && mod.ExternalRefs() > 0 {
			log.Warn("driver module has active users", "module", name, "refs", mod.Refs)
			return model.RemovalOutcome{Failure: model.FailureDriverBusy}, nil
		}
	}

	var toUnload []string
	for _, name := range implicated {
		if _, ok := loaded[name]; ok {
			toUnload = append(toUnload, name)
		}
	}
	if err = r.Modules.Unload(ctx, toUnload...); err != nil {
		return outcome, err
	}

	removed, err := r.removeDeviceNodes(sysfs, addr, log)
	if err != nil {
		return outcome, err
	}
	if removed == 0 {
		log.Warn("no device nodes found for removal", "address", addr)
		return model.RemovalOutcome{Failure: model.FailureDeviceNodeMissing}, nil
	}

	if driverHasDevices(sysfs, driver) {
		log.Info("driver still bound, reloading", "driver", driver)
		if err = r.Modules.Load(ctx, kmod.ReloadSet(driver)...); err != nil {
			return outcome, err
		}
		if err = sleepContext(ctx, settle); err != nil {
			return outcome, err
		}
	}

	log.Info("external adapter detached", "address", addr)
	return model.RemovalOutcome{Succeeded: true}, nil
}

// removeDeviceNodes writes the removal trigger for every device on the
// adapter's bus (the GPU itself plus companion functions such as the
// HDMI audio controller). A node that vanished on its own is skipped.
// Returns the number of triggers written.
func (r *Remover) removeDeviceNodes(sysfs string, addr pci.Address, log *slog.Logger) (int, error) {
	devicesDir := filepath.Join(sysfs, "bus/pci/devices")
	entries, err := os.ReadDir(devicesDir)
	if err != nil {
		return 0, fmt.Errorf("read %s failed: %w", devicesDir, err)
	}

	busPrefix := fmt.Sprintf("%02x:", addr.Bus)
	written := 0
	for _, entry := range entries {
		if !strings.HasPrefix(pci.StripDomain(entry.Name()), busPrefix) {
			continue
		}

		removePath := filepath.Join(devicesDir, entry.Name(), "remove")
		if err := utils.WriteSysfsFile(removePath, "1"); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return written, fmt.Errorf("trigger removal of %s failed: %w", entry.Name(), err)
		}

		log.Debug("device removal triggered", "slot", entry.Name())
		written++
	}

	return written, nil
}

// driverHasDevices reports whether the kernel still shows devices bound
// to the driver after the removal triggers fired.
func driverHasDevices(sysfs, driver string) bool {
	driverDir := filepath.Join(sysfs, "bus/pci/drivers", driver)
	entries, err := os.ReadDir(driverDir)
	if err != nil {
		return false
	}

	for _, entry := range entries {
		if strings.Contains(entry.Name(), ":") {
			return true
		}
	}
	return false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
