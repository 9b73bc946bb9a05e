package pci

import (
	"context"
	"testing"
	"time"
)

func TestAwaitPresenceFindsDeviceOnLaterAttempt(t *testing.T) {
	target := Address{Bus: 1}
	empty := []string{"0000:00:02.0 VGA compatible controller: Intel UHD 630"}
	withTarget := append(empty, "0000:01:00.0 3D controller: NVIDIA GP104")

	// The device appears on the fourth listing.
	lister := &scriptedLister{script: [][]string{empty, empty, empty, withTarget}}

	present, err := AwaitPresence(context.Background(), lister, target, 6, time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if !present {
		t.Fatal("device not reported present")
	}
	if lister.calls != 4 {
		t.Errorf("poller made %d attempts, want 4", lister.calls)
	}
}

func TestAwaitPresenceExhaustsBudget(t *testing.T) {
	target := Address{Bus: 1}
	empty := []string{"0000:00:02.0 VGA compatible controller: Intel UHD 630"}
	withTarget := append(empty, "0000:01:00.0 3D controller: NVIDIA GP104")

	lister := &scriptedLister{script: [][]string{empty, empty, empty, withTarget}}

	present, err := AwaitPresence(context.Background(), lister, target, 3, time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if present {
		t.Fatal("device reported present inside a 3-attempt budget")
	}
	if lister.calls != 3 {
		t.Errorf("poller made %d attempts, want 3", lister.calls)
	}
}

func TestAwaitPresenceRequiresExactlyOneMatch(t *testing.T) {
	target := Address{Bus: 1}
	duplicated := []string{
		"0000:01:00.0 3D controller: NVIDIA GP104",
		"0001:01:00.0 3D controller: NVIDIA GP104",
	}

	present, err := AwaitPresence(context.Background(), staticLister(duplicated...), target, 1, time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if present {
		t.Fatal("ambiguous listing (two matches) must not count as present")
	}
}

func TestAwaitPresenceHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	empty := staticLister("0000:00:02.0 VGA compatible controller: Intel UHD 630")
	if _, err := AwaitPresence(ctx, empty, Address{Bus: 1}, 6, time.Hour); err == nil {
		t.Fatal("expected context error")
	}
}
