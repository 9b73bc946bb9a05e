package xorg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zenithax-cc/egpuctl/internal/model"
	"github.com/zenithax-cc/egpuctl/internal/pci"
)

func testArtifacts(t *testing.T) Artifacts {
	t.Helper()
	root := t.TempDir()
	return Artifacts{
		Dir:      root,
		LinkPath: filepath.Join(root, "xorg.conf.d", "99-egpuctl.conf"),
	}
}

func TestWriteReadArtifact(t *testing.T) {
	artifacts := testArtifacts(t)
	addr := pci.Address{Bus: 1}

	if err := artifacts.Write(model.ModeExternal, "nvidia", addr); err != nil {
		t.Fatal(err)
	}

	driver, got, err := artifacts.Read(model.ModeExternal)
	if err != nil {
		t.Fatal(err)
	}
	if driver != "nvidia" {
		t.Errorf("driver = %q, want nvidia", driver)
	}
	if got != addr {
		t.Errorf("address = %s, want %s", got, addr)
	}

	// The artifact embeds the decimal triplet with xorg's PCI prefix.
	data, err := os.ReadFile(filepath.Join(artifacts.Dir, "xorg.conf.egpu"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `BusID      "PCI:1:0:0"`) {
		t.Errorf("artifact missing decimal BusID:\n%s", data)
	}
}

func TestWriteRejectsAutoMode(t *testing.T) {
	artifacts := testArtifacts(t)
	if err := artifacts.Write(model.ModeAuto, "nvidia", pci.Address{}); err == nil {
		t.Fatal("expected an error for ModeAuto")
	}
}

func TestActivateAndActive(t *testing.T) {
	artifacts := testArtifacts(t)
	if err := artifacts.Write(model.ModeExternal, "nvidia", pci.Address{Bus: 1}); err != nil {
		t.Fatal(err)
	}
	if err := artifacts.Write(model.ModeInternal, "modesetting", pci.Address{Device: 2}); err != nil {
		t.Fatal(err)
	}

	if got := artifacts.Active(); got != model.ModeAuto {
		t.Errorf("Active() before activation = %s, want auto (none)", got)
	}

	if err := artifacts.Activate(model.ModeExternal); err != nil {
		t.Fatal(err)
	}
	if got := artifacts.Active(); got != model.ModeExternal {
		t.Errorf("Active() = %s, want egpu", got)
	}

	// Repointing replaces the existing link.
	if err := artifacts.Activate(model.ModeInternal); err != nil {
		t.Fatal(err)
	}
	if got := artifacts.Active(); got != model.ModeInternal {
		t.Errorf("Active() = %s, want internal", got)
	}

	target, err := os.Readlink(artifacts.LinkPath)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(target) != "xorg.conf.internal" {
		t.Errorf("link target = %s", target)
	}
}

func TestActivateMissingArtifact(t *testing.T) {
	artifacts := testArtifacts(t)
	if err := artifacts.Activate(model.ModeExternal); err == nil {
		t.Fatal("expected an error activating a missing artifact")
	}
}

func TestExists(t *testing.T) {
	artifacts := testArtifacts(t)
	if artifacts.Exists(model.ModeExternal) {
		t.Error("Exists() true before write")
	}
	if err := artifacts.Write(model.ModeExternal, "amdgpu", pci.Address{Bus: 1}); err != nil {
		t.Fatal(err)
	}
	if !artifacts.Exists(model.ModeExternal) {
		t.Error("Exists() false after write")
	}
}

func TestDeactivateAndRemove(t *testing.T) {
	artifacts := testArtifacts(t)
	if err := artifacts.Write(model.ModeExternal, "amdgpu", pci.Address{Bus: 1}); err != nil {
		t.Fatal(err)
	}
	if err := artifacts.Activate(model.ModeExternal); err != nil {
		t.Fatal(err)
	}

	if err := artifacts.Deactivate(); err != nil {
		t.Fatal(err)
	}
	// Idempotent: a second deactivate finds nothing and succeeds.
	if err := artifacts.Deactivate(); err != nil {
		t.Fatal(err)
	}

	if err := artifacts.RemoveArtifacts(); err != nil {
		t.Fatal(err)
	}
	if artifacts.Exists(model.ModeExternal) {
		t.Error("artifact survives RemoveArtifacts")
	}
}
