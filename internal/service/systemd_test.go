package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

// countdownController reports a unit active for a fixed number of polls.
type countdownController struct {
	Controller
	remaining int
	polls     int
}

func (c *countdownController) IsActive(ctx context.Context, unit string) (bool, error) {
	c.polls++
	if c.remaining > 0 {
		c.remaining--
		return true, nil
	}
	return false, nil
}

func TestWaitInactive(t *testing.T) {
	controller := &countdownController{remaining: 3}
	if err := WaitInactive(context.Background(), controller, "gdm", time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if controller.polls != 4 {
		t.Errorf("polled %d times, want 4", controller.polls)
	}
}

func TestWaitInactiveImmediate(t *testing.T) {
	controller := &countdownController{}
	if err := WaitInactive(context.Background(), controller, "gdm", time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if controller.polls != 1 {
		t.Errorf("polled %d times, want 1", controller.polls)
	}
}

func TestWaitInactiveHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stuck := &countdownController{remaining: 1 << 30}
	err := WaitInactive(ctx, stuck, "gdm", time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
