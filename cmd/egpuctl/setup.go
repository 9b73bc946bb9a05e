package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/zenithax-cc/egpuctl/internal/config"
	"github.com/zenithax-cc/egpuctl/internal/model"
	"github.com/zenithax-cc/egpuctl/internal/pci"
	"github.com/zenithax-cc/egpuctl/internal/service"
	"github.com/zenithax-cc/egpuctl/internal/xorg"
)

const (
	unitPath = "/etc/systemd/system/egpuctl.service"
	unitName = "egpuctl.service"

	displayManagerLink = "/etc/systemd/system/display-manager.service"
)

// redetectUnit re-resolves the mode on every boot, before the display
// manager starts, so unplugging the eGPU while powered off does not
// leave the host configured for absent hardware.
const redetectUnit = `[Unit]
Description=eGPU mode re-detection
Before=display-manager.service
After=basic.target

[Service]
Type=oneshot
ExecStart=/usr/local/bin/egpuctl switch auto

[Install]
WantedBy=multi-user.target
`

func runSetup(args []string) error {
	flags := pflag.NewFlagSet("setup", pflag.ContinueOnError)
	if err := flags.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()

	catalog, err := pci.ListDisplayDevices(ctx, pci.LspciLister{})
	if err != nil {
		return err
	}
	if len(catalog) < 2 {
		return fmt.Errorf("found %d display adapter(s); setup needs the eGPU attached alongside the internal adapter", len(catalog))
	}

	records := sortedRecords(catalog)
	fmt.Println("detected display adapters:")
	for i, record := range records {
		fmt.Printf("  %d) %s  %s\n", i+1, record.Address, record.Name)
	}

	in := bufio.NewScanner(os.Stdin)

	external, err := pickRecord(in, records, "number of the EXTERNAL adapter (eGPU)")
	if err != nil {
		return err
	}
	internal, err := pickRecord(in, records, "number of the INTERNAL adapter")
	if err != nil {
		return err
	}
	if external.Address == internal.Address {
		return fmt.Errorf("external and internal adapter cannot be the same device")
	}

	externalDriver, err := prompt(in, "driver for the external adapter [nvidia]", "nvidia")
	if err != nil {
		return err
	}
	internalDriver, err := prompt(in, "driver for the internal adapter [modesetting]", "modesetting")
	if err != nil {
		return err
	}

	displayManager, err := resolveDisplayManager(in)
	if err != nil {
		return err
	}

	cfg := &config.Config{
		External: config.Adapter{
			Bus:    external.Address.KernelForm(),
			Driver: externalDriver,
			Name:   external.Name,
		},
		Internal: config.Adapter{
			Bus:    internal.Address.KernelForm(),
			Driver: internalDriver,
			Name:   internal.Name,
		},
		DisplayManager: displayManager,
	}
	if err := cfg.Save(config.DefaultDir); err != nil {
		return err
	}

	artifacts := xorg.DefaultArtifacts(config.DefaultDir)
	if err := artifacts.Write(model.ModeExternal, externalDriver, external.Address); err != nil {
		return err
	}
	if err := artifacts.Write(model.ModeInternal, internalDriver, internal.Address); err != nil {
		return err
	}

	systemd := service.Systemd{}
	if err := systemd.InstallUnit(ctx, unitPath, redetectUnit); err != nil {
		return err
	}
	if err := systemd.Enable(ctx, unitName); err != nil {
		return err
	}

	fmt.Println("setup complete; run 'egpuctl switch auto' or reboot to apply")
	return nil
}

func sortedRecords(catalog pci.Catalog) []pci.Record {
	records := make([]pci.Record, 0, len(catalog))
	for _, record := range catalog {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Address.KernelForm() < records[j].Address.KernelForm()
	})
	return records
}

func pickRecord(in *bufio.Scanner, records []pci.Record, label string) (pci.Record, error) {
	answer, err := prompt(in, label, "")
	if err != nil {
		return pci.Record{}, err
	}

	index, err := strconv.Atoi(answer)
	if err != nil || index < 1 || index > len(records) {
		return pci.Record{}, fmt.Errorf("invalid selection %q (expected 1-%d)", answer, len(records))
	}
	return records[index-1], nil
}

func prompt(in *bufio.Scanner, label, fallback string) (string, error) {
	fmt.Printf("%s: ", label)
	if !in.Scan() {
		return "", fmt.Errorf("input closed")
	}

	answer := strings.TrimSpace(in.Text())
	if answer == "" {
		if fallback == "" {
			return "", fmt.Errorf("no value given")
		}
		return fallback, nil
	}
	return answer, nil
}

// resolveDisplayManager reads the display-manager alias symlink that
// distributions point at the active display manager unit. When the link
// is absent the operator is asked.
func resolveDisplayManager(in *bufio.Scanner) (string, error) {
	if target, err := os.Readlink(displayManagerLink); err == nil {
		name := strings.TrimSuffix(filepath.Base(target), ".service")
		fmt.Printf("detected display manager: %s\n", name)
		return name, nil
	}

	return prompt(in, "display manager service name (gdm, sddm, lightdm, ...)", "")
}
