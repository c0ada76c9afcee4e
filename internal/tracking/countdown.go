// Package tracking computes the guest-facing order countdown. The countdown
// is cosmetic: it runs from the order's creation time and estimated
// preparation minutes and is not tied to the kitchen status.
package tracking

import (
	"context"
	"sync"
	"time"
)

// DefaultMinutes applies when an order carries no estimate.
const DefaultMinutes = 20

const (
	LabelPreparing = "Preparing"
	LabelOnTheWay  = "On the way"
	LabelDelivered = "Delivered"
	LabelCancelled = "Cancelled"
)

type Snapshot struct {
	Deadline         time.Time `json:"deadline"`
	TotalSeconds     int       `json:"total_seconds"`
	RemainingSeconds int       `json:"remaining_seconds"`
	Progress         float64   `json:"progress"`
	Label            string    `json:"label"`
}

// LabelFor maps the remaining seconds to the displayed label: the first half
// of the estimate is "Preparing", the second half "On the way", and zero is
// "Delivered".
func LabelFor(remaining, total int) string {
	switch {
	case remaining <= 0:
		return LabelDelivered
	case remaining*2 <= total:
		return LabelOnTheWay
	default:
		return LabelPreparing
	}
}

// Compute returns the countdown state at now.
func Compute(createdAt time.Time, estimatedMinutes int, now time.Time) Snapshot {
	c := New(createdAt, estimatedMinutes, now)
	return c.Snapshot()
}

// Countdown decrements once per Tick. It is safe for concurrent use.
type Countdown struct {
	mu        sync.Mutex
	deadline  time.Time
	total     int
	remaining int
}

func New(createdAt time.Time, estimatedMinutes int, now time.Time) *Countdown {
	if estimatedMinutes <= 0 {
		estimatedMinutes = DefaultMinutes
	}
	total := estimatedMinutes * 60
	deadline := createdAt.Add(time.Duration(total) * time.Second)

	left := deadline.Sub(now)
	remaining := int(left / time.Second)
	if left%time.Second > 0 {
		remaining++
	}
	if remaining < 0 {
		remaining = 0
	}
	if remaining > total {
		remaining = total
	}
	return &Countdown{deadline: deadline, total: total, remaining: remaining}
}

func (c *Countdown) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Countdown) snapshotLocked() Snapshot {
	progress := 1.0
	if c.total > 0 {
		progress = float64(c.total-c.remaining) / float64(c.total)
	}
	return Snapshot{
		Deadline:         c.deadline,
		TotalSeconds:     c.total,
		RemainingSeconds: c.remaining,
		Progress:         progress,
		Label:            LabelFor(c.remaining, c.total),
	}
}

// Tick removes one second, never going below zero.
func (c *Countdown) Tick() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remaining > 0 {
		c.remaining--
	}
	return c.snapshotLocked()
}

func (c *Countdown) Done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining == 0
}

// Run emits the current snapshot, then ticks every interval until the
// countdown reaches zero or ctx ends. fn returning an error stops the run.
func (c *Countdown) Run(ctx context.Context, interval time.Duration, fn func(Snapshot) error) error {
	if err := fn(c.Snapshot()); err != nil {
		return err
	}
	if c.Done() {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			snap := c.Tick()
			if err := fn(snap); err != nil {
				return err
			}
			if snap.RemainingSeconds == 0 {
				return nil
			}
		}
	}
}
