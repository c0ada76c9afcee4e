package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestStore(ttl time.Duration) (*Store, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 5, 1, 19, 0, 0, 0, time.UTC)}
	s := NewStore(ttl, 0)
	s.now = clock.now
	return s, clock
}

func mustCreate(t *testing.T, s *Store) Cart {
	t.Helper()
	c, err := s.Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return c
}

func dish(name, price string) Item {
	return Item{MenuItemID: uuid.New(), Name: name, UnitPrice: decimal.RequireFromString(price), PrepMinutes: 10}
}

func TestStore_AddItemMergesQuantities(t *testing.T) {
	s, _ := newTestStore(time.Hour)
	c := mustCreate(t, s)
	soup := dish("Tom Yum", "45000")

	if _, err := s.AddItem(c.ID, soup, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	got, err := s.AddItem(c.ID, soup, 2)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(got.Items) != 1 {
		t.Fatalf("lines: got %d, want 1", len(got.Items))
	}
	if got.Items[0].Quantity != 3 {
		t.Errorf("quantity: got %d, want 3", got.Items[0].Quantity)
	}
	if !got.Total().Equal(decimal.RequireFromString("135000")) {
		t.Errorf("total: got %s, want 135000", got.Total())
	}
}

func TestStore_TotalsAndCount(t *testing.T) {
	s, _ := newTestStore(time.Hour)
	c := mustCreate(t, s)
	s.AddItem(c.ID, dish("Nasi Goreng", "35000.50"), 2)
	got, _ := s.AddItem(c.ID, dish("Iced Tea", "8000"), 3)

	if got.Count() != 5 {
		t.Errorf("count: got %d, want 5", got.Count())
	}
	if got.Total().StringFixed(2) != "95001.00" {
		t.Errorf("total: got %s, want 95001.00", got.Total().StringFixed(2))
	}
}

func TestStore_SetQuantityAndRemove(t *testing.T) {
	s, _ := newTestStore(time.Hour)
	c := mustCreate(t, s)
	tea := dish("Iced Tea", "8000")
	s.AddItem(c.ID, tea, 1)

	got, err := s.SetQuantity(c.ID, tea.MenuItemID, 4)
	if err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if got.Items[0].Quantity != 4 {
		t.Errorf("quantity: got %d, want 4", got.Items[0].Quantity)
	}

	got, err = s.SetQuantity(c.ID, tea.MenuItemID, 0)
	if err != nil {
		t.Fatalf("set quantity 0: %v", err)
	}
	if len(got.Items) != 0 {
		t.Errorf("lines after zero: got %d, want 0", len(got.Items))
	}

	if _, err := s.RemoveItem(c.ID, tea.MenuItemID); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("remove missing: got %v, want ErrItemNotFound", err)
	}
}

func TestStore_InvalidQuantity(t *testing.T) {
	s, _ := newTestStore(time.Hour)
	c := mustCreate(t, s)
	tea := dish("Iced Tea", "8000")

	if _, err := s.AddItem(c.ID, tea, 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("add 0: got %v", err)
	}
	s.AddItem(c.ID, tea, 98)
	if _, err := s.AddItem(c.ID, tea, 2); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("merge over max: got %v", err)
	}
	if _, err := s.SetQuantity(c.ID, tea.MenuItemID, -1); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("set -1: got %v", err)
	}
}

func TestStore_ReturnsCopies(t *testing.T) {
	s, _ := newTestStore(time.Hour)
	c := mustCreate(t, s)
	got, _ := s.AddItem(c.ID, dish("Iced Tea", "8000"), 1)
	got.Items[0].Quantity = 50

	again, _ := s.Get(c.ID)
	if again.Items[0].Quantity != 1 {
		t.Errorf("stored quantity mutated through copy: %d", again.Items[0].Quantity)
	}
}

func TestStore_ExpiryAndSweep(t *testing.T) {
	s, clock := newTestStore(30 * time.Minute)
	stale := mustCreate(t, s)
	clock.t = clock.t.Add(20 * time.Minute)
	fresh := mustCreate(t, s)

	clock.t = clock.t.Add(15 * time.Minute)
	if _, err := s.Get(stale.ID); !errors.Is(err, ErrCartNotFound) {
		t.Errorf("stale get: got %v, want ErrCartNotFound", err)
	}
	if _, err := s.Get(fresh.ID); err != nil {
		t.Errorf("fresh get: %v", err)
	}

	clock.t = clock.t.Add(time.Hour)
	if n := s.Sweep(clock.t); n != 1 {
		t.Errorf("sweep: got %d, want 1", n)
	}
	if s.Len() != 0 {
		t.Errorf("len: got %d, want 0", s.Len())
	}
}

func TestStore_DeleteAndClear(t *testing.T) {
	s, _ := newTestStore(0)
	c := mustCreate(t, s)
	s.AddItem(c.ID, dish("Brownie", "18000"), 2)

	cleared, err := s.Clear(c.ID)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(cleared.Items) != 0 {
		t.Errorf("items after clear: %d", len(cleared.Items))
	}
	if err := s.Delete(c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(c.ID); !errors.Is(err, ErrCartNotFound) {
		t.Errorf("second delete: got %v, want ErrCartNotFound", err)
	}
}

func TestStore_RunSweeperStopsOnCancel(t *testing.T) {
	s, _ := newTestStore(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunSweeper(ctx, time.Millisecond, nil)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestStore_CreateRespectsLimit(t *testing.T) {
	s, clock := newTestStore(30 * time.Minute)
	s.limit = 2

	first := mustCreate(t, s)
	mustCreate(t, s)
	if _, err := s.Create(); !errors.Is(err, ErrTooManyCarts) {
		t.Fatalf("third cart: got %v, want ErrTooManyCarts", err)
	}
	if s.Len() != 2 {
		t.Errorf("len: got %d, want 2", s.Len())
	}

	// Freeing a slot lets the next cart in.
	if err := s.Delete(first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	mustCreate(t, s)

	// Expired carts are reclaimed on demand, without waiting for the sweeper.
	clock.t = clock.t.Add(time.Hour)
	mustCreate(t, s)
	if s.Len() != 1 {
		t.Errorf("len after reclaim: got %d, want 1", s.Len())
	}
}

func TestStore_NoLimit(t *testing.T) {
	s, _ := newTestStore(time.Hour)
	for i := 0; i < 500; i++ {
		mustCreate(t, s)
	}
	if s.Len() != 500 {
		t.Errorf("len: got %d, want 500", s.Len())
	}
}
