package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/zenithax-cc/egpuctl/internal/config"
	"github.com/zenithax-cc/egpuctl/internal/gpu"
	"github.com/zenithax-cc/egpuctl/internal/model"
	"github.com/zenithax-cc/egpuctl/internal/pci"
	"github.com/zenithax-cc/egpuctl/internal/xorg"
)

func runSwitch(args []string) error {
	flags := pflag.NewFlagSet("switch", pflag.ContinueOnError)
	override := flags.Bool("override", false, "keep egpu mode even when every output reports disconnected")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if flags.NArg() != 1 {
		return fmt.Errorf("switch requires exactly one mode argument (auto, egpu or internal)")
	}
	requested, err := model.ParseMode(flags.Arg(0))
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	return switchMode(context.Background(), cfg, requested, *override)
}

func switchMode(ctx context.Context, cfg *config.Config, requested model.Mode, override bool) error {
	externalAddr, err := cfg.External.Address()
	if err != nil {
		return err
	}

	lister := pci.LspciLister{}
	present, err := pci.AwaitPresence(ctx, lister, externalAddr, 0, 0)
	if err != nil {
		return err
	}

	// Connector state only matters for open-source drivers: the
	// proprietary driver reports output presence reliably through eGPU
	// enclosures, the others may not.
	var connectivity *model.Connectivity
	if cfg.External.Driver != gpu.ProprietaryDriver && present {
		conn, err := gpu.ScanConnectivity("/sys", externalAddr)
		if err != nil {
			slog.Warn("connector scan failed, skipping output check", "err", err)
		} else {
			connectivity = &conn
		}
	}

	artifacts := xorg.DefaultArtifacts(config.DefaultDir)
	decision, err := gpu.Resolve(gpu.ResolveInput{
		Requested:        requested,
		Override:         override,
		HardwarePresent:  present,
		ExternalDriver:   cfg.External.Driver,
		Connectivity:     connectivity,
		ExternalArtifact: artifacts.Exists(model.ModeExternal),
		InternalArtifact: artifacts.Exists(model.ModeInternal),
	})
	if err != nil {
		return err
	}

	if err := artifacts.Activate(decision.Mode); err != nil {
		return err
	}

	slog.Info("switched display configuration",
		"mode", decision.Mode, "reason", decision.Reason.String())
	fmt.Printf("now using %s graphics (%s)\n", decision.Mode, decision.Reason)
	fmt.Printf("restart the display manager to apply: systemctl restart %s\n", cfg.DisplayManager)

	return nil
}
