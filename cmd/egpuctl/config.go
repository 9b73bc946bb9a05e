package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/zenithax-cc/egpuctl/internal/config"
	"github.com/zenithax-cc/egpuctl/internal/model"
	"github.com/zenithax-cc/egpuctl/internal/pci"
	"github.com/zenithax-cc/egpuctl/internal/xorg"
)

type configReport struct {
	Config  *config.Config `json:"config"`
	Active  string         `json:"active_mode"`
	Devices []deviceEntry  `json:"detected_devices"`
}

type deviceEntry struct {
	Bus   string `json:"bus"`
	BusID string `json:"bus_id"`
	Name  string `json:"name"`
}

func runConfig(args []string) error {
	flags := pflag.NewFlagSet("config", pflag.ContinueOnError)
	asJSON := flags.Bool("json", false, "machine-readable output")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	catalog, err := pci.ListDisplayDevices(context.Background(), pci.LspciLister{})
	if err != nil {
		return err
	}

	artifacts := xorg.DefaultArtifacts(config.DefaultDir)
	active := "none"
	if mode := artifacts.Active(); mode != model.ModeAuto {
		active = mode.String()
	}

	report := configReport{Config: cfg, Active: active}
	for _, record := range sortedRecords(catalog) {
		report.Devices = append(report.Devices, deviceEntry{
			Bus:   record.Address.KernelForm(),
			BusID: record.Address.DecimalTriplet(),
			Name:  record.Name,
		})
	}

	if *asJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("external adapter: %s  driver=%s  (%s)\n", cfg.External.Bus, cfg.External.Driver, cfg.External.Name)
	fmt.Printf("internal adapter: %s  driver=%s  (%s)\n", cfg.Internal.Bus, cfg.Internal.Driver, cfg.Internal.Name)
	fmt.Printf("display manager:  %s\n", cfg.DisplayManager)
	fmt.Printf("active mode:      %s\n", active)
	fmt.Println("detected display adapters:")
	for _, device := range report.Devices {
		fmt.Printf("  %s  %s\n", device.Bus, device.Name)
	}

	return nil
}
