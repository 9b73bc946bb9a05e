package pci

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zenithax-cc/egpuctl/pkg/executor"
)

// PCI class codes for display adapters.
const (
	classVGA = "0300"
	class3D  = "0302"
)

// Lister supplies the raw display-device listing, one device per line in
// "<slot> <free-text name>" form. The production implementation shells out
// to lspci; tests substitute scripted listings.
type Lister interface {
	DisplayDevices(ctx context.Context) ([]string, error)
}

// Record describes one enumerated display adapter.
type Record struct {
	Address Address
	Name    string
}

// Catalog maps bus addresses to device records. A catalog is built fresh
// on every enumeration and never cached: hot-plug changes the hardware
// between invocations.
type Catalog map[Address]Record

// LspciLister queries lspci for the VGA and 3D controller classes.
type LspciLister struct{}

func (LspciLister) DisplayDevices(ctx context.Context) ([]string, error) {
	var lines []string
	for _, class := range []string{classVGA, class3D} {
		out, err := executor.ExecuteWithContext(ctx, "lspci", "-D", "-d", "::"+class)
		if err != nil {
			return nil, fmt.Errorf("list class %s devices failed: %w", class, err)
		}

		for _, line := range strings.Split(string(out), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, line)
			}
		}
	}

	return lines, nil
}

// ListDisplayDevices enumerates display-class devices into a catalog.
// Lines that fail to parse are skipped: partial enumeration is more
// useful than none, the caller only needs to see the adapters that do
// parse.
func ListDisplayDevices(ctx context.Context, lister Lister) (Catalog, error) {
	lines, err := lister.DisplayDevices(ctx)
	if err != nil {
		return nil, err
	}

	catalog := make(Catalog, len(lines))
	for _, line := range lines {
		record, err := parseDeviceLine(line)
		if err != nil {
			slog.Debug("skipping unparsable device line", "line", line, "err", err)
			continue
		}
		catalog[record.Address] = record
	}

	return catalog, nil
}

func parseDeviceLine(line string) (Record, error) {
	slot, name, found := strings.Cut(strings.TrimSpace(line), " ")
	if !found {
		return Record{}, fmt.Errorf("%w: no name field in %q", ErrInvalidFormat, line)
	}

	address, err := ParseKernelForm(StripDomain(slot))
	if err != nil {
		return Record{}, err
	}

	return Record{Address: address, Name: strings.TrimSpace(name)}, nil
}

// StripDomain drops the four-digit PCI domain prefix from a slot string,
// turning "0000:01:00.0" into "01:00.0". Slots without a domain prefix
// pass through unchanged.
func StripDomain(slot string) string {
	if domain, rest, found := strings.Cut(slot, ":"); found && len(domain) == 4 {
		return rest
	}
	return slot
}
