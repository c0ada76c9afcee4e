package tracking

import (
	"context"
	"errors"
	"testing"
	"time"
)

var created = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestCompute_Labels(t *testing.T) {
	cases := []struct {
		elapsed   time.Duration
		remaining int
		label     string
	}{
		{0, 600, LabelPreparing},
		{4*time.Minute + 59*time.Second, 301, LabelPreparing},
		{5 * time.Minute, 300, LabelOnTheWay},
		{9*time.Minute + 59*time.Second, 1, LabelOnTheWay},
		{9*time.Minute + 59*time.Second + 500*time.Millisecond, 1, LabelOnTheWay},
		{10 * time.Minute, 0, LabelDelivered},
		{2 * time.Hour, 0, LabelDelivered},
	}
	for _, tc := range cases {
		snap := Compute(created, 10, created.Add(tc.elapsed))
		if snap.RemainingSeconds != tc.remaining {
			t.Errorf("elapsed %v: remaining got %d, want %d", tc.elapsed, snap.RemainingSeconds, tc.remaining)
		}
		if snap.Label != tc.label {
			t.Errorf("elapsed %v: label got %q, want %q", tc.elapsed, snap.Label, tc.label)
		}
	}
}

func TestCompute_DefaultMinutes(t *testing.T) {
	snap := Compute(created, 0, created)
	if snap.TotalSeconds != DefaultMinutes*60 {
		t.Errorf("total: got %d, want %d", snap.TotalSeconds, DefaultMinutes*60)
	}
	if !snap.Deadline.Equal(created.Add(DefaultMinutes * time.Minute)) {
		t.Errorf("deadline: got %v", snap.Deadline)
	}
}

func TestCompute_ClockSkewCapsAtTotal(t *testing.T) {
	snap := Compute(created, 1, created.Add(-time.Hour))
	if snap.RemainingSeconds != 60 {
		t.Errorf("remaining: got %d, want 60", snap.RemainingSeconds)
	}
	if snap.Progress != 0 {
		t.Errorf("progress: got %v, want 0", snap.Progress)
	}
}

func TestCountdown_DeliveredOnlyAtZero(t *testing.T) {
	c := New(created, 1, created)
	for i := 0; i < 59; i++ {
		snap := c.Tick()
		if snap.Label == LabelDelivered {
			t.Fatalf("tick %d: delivered with %d seconds left", i+1, snap.RemainingSeconds)
		}
		if c.Done() {
			t.Fatalf("tick %d: done too early", i+1)
		}
	}
	snap := c.Tick()
	if snap.RemainingSeconds != 0 || snap.Label != LabelDelivered {
		t.Fatalf("final tick: got %d %q, want 0 Delivered", snap.RemainingSeconds, snap.Label)
	}
	if snap.Progress != 1 {
		t.Errorf("progress: got %v, want 1", snap.Progress)
	}

	// Further ticks stay at zero.
	if snap := c.Tick(); snap.RemainingSeconds != 0 {
		t.Errorf("after done: got %d, want 0", snap.RemainingSeconds)
	}
}

func TestCountdown_Run(t *testing.T) {
	c := New(created, 1, created.Add(57*time.Second))

	var seen []int
	err := c.Run(context.Background(), time.Millisecond, func(s Snapshot) error {
		seen = append(seen, s.RemainingSeconds)
		return nil
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []int{3, 2, 1, 0}
	if len(seen) != len(want) {
		t.Fatalf("snapshots: got %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("snapshots: got %v, want %v", seen, want)
		}
	}
}

func TestCountdown_RunCancelled(t *testing.T) {
	c := New(created, 5, created)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := c.Run(ctx, time.Millisecond, func(s Snapshot) error {
		calls++
		if calls == 3 {
			cancel()
		}
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("run: got %v, want context.Canceled", err)
	}
}

func TestCountdown_RunStopsOnCallbackError(t *testing.T) {
	c := New(created, 5, created)
	boom := errors.New("client gone")

	err := c.Run(context.Background(), time.Millisecond, func(s Snapshot) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("run: got %v, want %v", err, boom)
	}
}
