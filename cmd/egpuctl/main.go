// Command egpuctl switches a Linux host between its internal graphics
// adapter and an external (hot-pluggable) one, and safely detaches the
// external adapter's driver before unplugging.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/zenithax-cc/egpuctl/internal/config"
	"github.com/zenithax-cc/egpuctl/pkg/logger"
)

const usageText = `usage: egpuctl <command> [options]

commands:
  setup                              interactive adapter and driver selection
  switch <auto|egpu|internal>        switch the active adapter
      --override                     keep egpu mode even when no output is connected
  config                             show configuration and detected adapters
      --json                         machine-readable output
  cleanup                            remove generated xorg configuration
      --hard                         also remove config and the boot service
  remove                             detach the external adapter for hot removal

all commands require root.`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, usageText)
		return fmt.Errorf("no command given")
	}

	command, rest := args[0], args[1:]

	switch command {
	case "help", "-h", "--help":
		fmt.Println(usageText)
		return nil
	}

	if err := requireRoot(); err != nil {
		return err
	}

	if _, err := logger.InitLogger(&logger.LogConfig{Level: slog.LevelInfo}); err != nil {
		return err
	}

	switch command {
	case "setup":
		return runSetup(rest)
	case "switch":
		return runSwitch(rest)
	case "config":
		return runConfig(rest)
	case "cleanup":
		return runCleanup(rest)
	case "remove":
		return runRemove(rest)
	}

	fmt.Fprintln(os.Stderr, usageText)
	return fmt.Errorf("unknown command %q", command)
}

func requireRoot() error {
	if os.Geteuid() != 0 {
		return fmt.Errorf("egpuctl manipulates drivers and services and must run as root")
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	return config.Load(config.DefaultDir)
}
