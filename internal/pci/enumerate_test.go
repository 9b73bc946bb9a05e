package pci

import (
	"context"
	"errors"
	"testing"
)

// scriptedLister returns one canned listing per call, repeating the last
// one once the script runs out.
type scriptedLister struct {
	script [][]string
	calls  int
}

func (s *scriptedLister) DisplayDevices(ctx context.Context) ([]string, error) {
	index := s.calls
	if index >= len(s.script) {
		index = len(s.script) - 1
	}
	s.calls++
	return s.script[index], nil
}

func staticLister(lines ...string) *scriptedLister {
	return &scriptedLister{script: [][]string{lines}}
}

func TestListDisplayDevices(t *testing.T) {
	lister := staticLister(
		"0000:00:02.0 VGA compatible controller: Intel Corporation UHD Graphics 630",
		"0000:01:00.0 3D controller: NVIDIA Corporation GP104 [GeForce GTX 1080]",
	)

	catalog, err := ListDisplayDevices(context.Background(), lister)
	if err != nil {
		t.Fatal(err)
	}
	if len(catalog) != 2 {
		t.Fatalf("catalog has %d entries, want 2", len(catalog))
	}

	internal := Address{Bus: 0x00, Device: 0x02, Function: 0}
	record, ok := catalog[internal]
	if !ok {
		t.Fatalf("catalog missing %s", internal)
	}
	if record.Name != "VGA compatible controller: Intel Corporation UHD Graphics 630" {
		t.Errorf("unexpected name %q", record.Name)
	}

	external := Address{Bus: 0x01, Device: 0x00, Function: 0}
	if _, ok := catalog[external]; !ok {
		t.Fatalf("catalog missing %s", external)
	}
}

func TestListDisplayDevicesSkipsMalformedLines(t *testing.T) {
	lister := staticLister(
		"garbage",
		"zz:yy.q Not A Device",
		"0000:01:00.0 3D controller: NVIDIA Corporation GP104",
	)

	catalog, err := ListDisplayDevices(context.Background(), lister)
	if err != nil {
		t.Fatal(err)
	}
	if len(catalog) != 1 {
		t.Fatalf("catalog has %d entries, want 1 (malformed lines skipped)", len(catalog))
	}
}

func TestListDisplayDevicesWithoutDomainPrefix(t *testing.T) {
	lister := staticLister("01:00.0 VGA compatible controller: AMD Navi 10")

	catalog, err := ListDisplayDevices(context.Background(), lister)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := catalog[Address{Bus: 1}]; !ok {
		t.Fatalf("catalog missing 01:00.0: %v", catalog)
	}
}

type failingLister struct{ err error }

func (f failingLister) DisplayDevices(ctx context.Context) ([]string, error) {
	return nil, f.err
}

func TestListDisplayDevicesPropagatesListerError(t *testing.T) {
	want := errors.New("lspci exploded")
	if _, err := ListDisplayDevices(context.Background(), failingLister{err: want}); !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
}
