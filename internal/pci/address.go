package pci

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidFormat reports a bus address that does not match the expected
// textual shape or whose fields fall outside the PCI encoding ranges.
var ErrInvalidFormat = errors.New("invalid bus address")

// Address identifies a PCI function by bus, device and function number.
// The domain/segment prefix is not part of the identity; callers strip it
// before parsing (this host has a single PCI domain).
type Address struct {
	Bus      uint8
	Device   uint8
	Function uint8
}

// Kernel enumeration form: two hex digits, two hex digits, one hex digit.
var kernelForm = regexp.MustCompile(`^([0-9a-fA-F]{2}):([0-9a-fA-F]{2})\.([0-9a-fA-F])$`)

// ParseKernelForm parses a bus address in the kernel's "XX:YY.Z"
// hexadecimal notation. The shape is strict: exactly two digits for bus
// and device and one for function, so zero padding survives a round trip.
func ParseKernelForm(text string) (Address, error) {
	m := kernelForm.FindStringSubmatch(text)
	if m == nil {
		return Address{}, fmt.Errorf("%w: %q is not of the form XX:YY.Z", ErrInvalidFormat, text)
	}

	bus, _ := strconv.ParseUint(m[1], 16, 16)
	device, _ := strconv.ParseUint(m[2], 16, 16)
	function, _ := strconv.ParseUint(m[3], 16, 16)

	return newAddress(text, bus, device, function)
}

// ParseDecimalTriplet parses the "B:D:F" decimal notation used inside
// display server configuration text.
func ParseDecimalTriplet(text string) (Address, error) {
	parts := strings.Split(text, ":")
	if len(parts) != 3 {
		return Address{}, fmt.Errorf("%w: %q is not a decimal triplet", ErrInvalidFormat, text)
	}

	var fields [3]uint64
	for i, part := range parts {
		value, err := strconv.ParseUint(part, 10, 16)
		if err != nil {
			return Address{}, fmt.Errorf("%w: %q field %d is not a decimal integer", ErrInvalidFormat, text, i)
		}
		fields[i] = value
	}

	return newAddress(text, fields[0], fields[1], fields[2])
}

// newAddress enforces the PCI field bounds: bus 0-255, device 0-31,
// function 0-7. Out-of-range values are rejected, never truncated.
func newAddress(text string, bus, device, function uint64) (Address, error) {
	if bus > 255 || device > 31 || function > 7 {
		return Address{}, fmt.Errorf("%w: %q exceeds bus/device/function bounds", ErrInvalidFormat, text)
	}

	return Address{
		Bus:      uint8(bus),
		Device:   uint8(device),
		Function: uint8(function),
	}, nil
}

// KernelForm renders the address in the kernel's zero-padded hexadecimal
// notation. The padding width is load-bearing: sysfs path matching
// depends on it.
func (a Address) KernelForm() string {
	return fmt.Sprintf("%02x:%02x.%x", a.Bus, a.Device, a.Function)
}

// DecimalTriplet renders the address as unpadded decimal fields for
// embedding in display server configuration text.
func (a Address) DecimalTriplet() string {
	return fmt.Sprintf("%d:%d:%d", a.Bus, a.Device, a.Function)
}

func (a Address) String() string {
	return a.KernelForm()
}
