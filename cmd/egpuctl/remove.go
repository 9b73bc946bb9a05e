package main

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/zenithax-cc/egpuctl/internal/config"
	"github.com/zenithax-cc/egpuctl/internal/gpu"
	"github.com/zenithax-cc/egpuctl/internal/kmod"
	"github.com/zenithax-cc/egpuctl/internal/model"
	"github.com/zenithax-cc/egpuctl/internal/pci"
	"github.com/zenithax-cc/egpuctl/internal/service"
	"github.com/zenithax-cc/egpuctl/internal/xorg"
	"github.com/zenithax-cc/egpuctl/pkg/logger"
)

func runRemove(args []string) error {
	flags := pflag.NewFlagSet("remove", pflag.ContinueOnError)
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The generated artifact is the authority on what the display server
	// was actually configured with; fall back to the recorded setup
	// choices when it is gone.
	artifacts := xorg.DefaultArtifacts(config.DefaultDir)
	driver, addr, err := artifacts.Read(model.ModeExternal)
	if err != nil {
		driver = cfg.External.Driver
		if addr, err = cfg.External.Address(); err != nil {
			return err
		}
	}

	remover := &gpu.Remover{
		Services: service.Systemd{},
		Modules:  kmod.NewManager(),
		Lister:   pci.LspciLister{},
		Log:      logger.GetLogger(),
	}

	outcome, err := remover.Remove(context.Background(), addr, driver, cfg.DisplayManager)
	if err != nil {
		return err
	}

	switch {
	case outcome.Succeeded:
		fmt.Println("external adapter detached, safe to unplug")
		return nil
	case outcome.Failure == model.FailureDriverBusy:
		return fmt.Errorf("driver %s is still in use; close applications using the eGPU and retry (display manager restarted)", driver)
	case outcome.Failure == model.FailureDeviceNodeMissing:
		return fmt.Errorf("no device node found for %s; the adapter may already be gone (display manager restarted)", addr)
	}

	return fmt.Errorf("removal failed: %s", outcome.Failure)
}
