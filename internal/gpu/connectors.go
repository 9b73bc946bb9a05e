package gpu

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zenithax-cc/egpuctl/internal/model"
	"github.com/zenithax-cc/egpuctl/internal/pci"
	"github.com/zenithax-cc/egpuctl/pkg/utils"
)

// ScanConnectivity counts the DRM connector status files under the
// device's card directory and how many report "disconnected". The exact
// connector names vary by driver (card1-DP-1, card0-eDP-1, ...), so the
// scan walks every connector entry of every card rather than assuming a
// naming scheme. Individual unreadable status files are skipped.
func ScanConnectivity(sysfsRoot string, addr pci.Address) (model.Connectivity, error) {
	drmDir := filepath.Join(sysfsRoot, "bus/pci/devices", "0000:"+addr.KernelForm(), "drm")
	entries, err := os.ReadDir(drmDir)
	if err != nil {
		return model.Connectivity{}, fmt.Errorf("read %s failed: %w", drmDir, err)
	}

	var conn model.Connectivity
	for _, entry := range entries {
		card := entry.Name()
		if !isCardDevice(card) {
			continue
		}

		cardDir := filepath.Join(drmDir, card)
		connectors, err := os.ReadDir(cardDir)
		if err != nil {
			continue
		}

		for _, connector := range connectors {
			if !strings.HasPrefix(connector.Name(), card+"-") {
				continue
			}

			status, err := utils.ReadSysfsFile(filepath.Join(cardDir, connector.Name(), "status"))
			if err != nil {
				continue
			}

			conn.Outputs++
			if status == "disconnected" {
				conn.Disconnected++
			}
		}
	}

	return conn, nil
}

// isCardDevice matches DRM card entries (card0, card1, ...) but not
// connectors (card0-DP-1) or render nodes (renderD128).
func isCardDevice(name string) bool {
	suffix, found := strings.CutPrefix(name, "card")
	if !found || suffix == "" {
		return false
	}
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
