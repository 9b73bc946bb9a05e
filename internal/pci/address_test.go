package pci

import (
	"errors"
	"testing"
)

func TestKernelFormRoundTrip(t *testing.T) {
	for _, text := range []string{"00:00.0", "01:00.0", "0a:1f.7", "ff:00.1", "c3:05.3"} {
		addr, err := ParseKernelForm(text)
		if err != nil {
			t.Fatalf("ParseKernelForm(%q): %v", text, err)
		}
		if got := addr.KernelForm(); got != text {
			t.Errorf("round trip of %q produced %q", text, got)
		}
	}
}

func TestDecimalTripletRoundTrip(t *testing.T) {
	for _, text := range []string{"0:0:0", "1:0:0", "255:31:7", "10:5:3"} {
		addr, err := ParseDecimalTriplet(text)
		if err != nil {
			t.Fatalf("ParseDecimalTriplet(%q): %v", text, err)
		}
		if got := addr.DecimalTriplet(); got != text {
			t.Errorf("round trip of %q produced %q", text, got)
		}
	}
}

func TestCrossFormEquivalence(t *testing.T) {
	addr, err := ParseKernelForm("01:00.0")
	if err != nil {
		t.Fatal(err)
	}
	if got := addr.DecimalTriplet(); got != "1:0:0" {
		t.Errorf("DecimalTriplet() = %q, want 1:0:0", got)
	}

	addr, err = ParseDecimalTriplet("1:0:0")
	if err != nil {
		t.Fatal(err)
	}
	if got := addr.KernelForm(); got != "01:00.0" {
		t.Errorf("KernelForm() = %q, want 01:00.0", got)
	}
}

func TestParseKernelFormRejectsMalformed(t *testing.T) {
	for _, text := range []string{
		"",
		"01:00",
		"01.00.0",
		"1:00.0",      // bus needs two digits
		"01:0.0",      // device needs two digits
		"01:00.00",    // function needs one digit
		"0000:01:00.0", // domain prefix is the caller's job to strip
		"zz:00.0",
		"01:00.0 ",
	} {
		if _, err := ParseKernelForm(text); !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("ParseKernelForm(%q) err = %v, want ErrInvalidFormat", text, err)
		}
	}
}

func TestBoundsRejection(t *testing.T) {
	// Kernel form: device and function hex fields can encode values the
	// PCI spec does not allow.
	for _, text := range []string{"00:20.0", "00:ff.0", "00:00.8", "00:00.f"} {
		if _, err := ParseKernelForm(text); !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("ParseKernelForm(%q) err = %v, want ErrInvalidFormat", text, err)
		}
	}

	for _, text := range []string{"256:0:0", "0:32:0", "0:0:8", "99999:0:0"} {
		if _, err := ParseDecimalTriplet(text); !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("ParseDecimalTriplet(%q) err = %v, want ErrInvalidFormat", text, err)
		}
	}
}

func TestParseDecimalTripletRejectsMalformed(t *testing.T) {
	for _, text := range []string{"", "1:0", "1:0:0:0", "1:0:a", "1::0", "-1:0:0"} {
		if _, err := ParseDecimalTriplet(text); !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("ParseDecimalTriplet(%q) err = %v, want ErrInvalidFormat", text, err)
		}
	}
}

func TestStripDomain(t *testing.T) {
	cases := map[string]string{
		"0000:01:00.0": "01:00.0",
		"01:00.0":      "01:00.0",
		"0002:c3:00.1": "c3:00.1",
	}
	for in, want := range cases {
		if got := StripDomain(in); got != want {
			t.Errorf("StripDomain(%q) = %q, want %q", in, got, want)
		}
	}
}
