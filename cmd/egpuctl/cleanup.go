package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/zenithax-cc/egpuctl/internal/config"
	"github.com/zenithax-cc/egpuctl/internal/service"
	"github.com/zenithax-cc/egpuctl/internal/xorg"
)

func runCleanup(args []string) error {
	flags := pflag.NewFlagSet("cleanup", pflag.ContinueOnError)
	hard := flags.Bool("hard", false, "also remove the configuration and the boot-time service")
	if err := flags.Parse(args); err != nil {
		return err
	}

	artifacts := xorg.DefaultArtifacts(config.DefaultDir)
	if err := artifacts.Deactivate(); err != nil {
		return err
	}
	if err := artifacts.RemoveArtifacts(); err != nil {
		return err
	}
	fmt.Println("removed generated xorg configuration")

	if !*hard {
		return nil
	}

	ctx := context.Background()
	systemd := service.Systemd{}
	if err := systemd.Disable(ctx, unitName); err != nil {
		// The unit may never have been enabled; keep going.
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	if err := systemd.RemoveUnit(ctx, unitPath); err != nil {
		return err
	}

	if err := os.RemoveAll(config.DefaultDir); err != nil {
		return fmt.Errorf("remove %s failed: %w", config.DefaultDir, err)
	}
	fmt.Println("removed configuration and boot-time service")

	return nil
}
