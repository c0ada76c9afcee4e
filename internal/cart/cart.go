// Package cart keeps guest shopping carts in process memory. Carts live for
// the session only and expire after a period of inactivity.
package cart

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxQuantity caps a single cart line.
const MaxQuantity = 99

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrItemNotFound    = errors.New("item not in cart")
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 99")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrTooManyCarts    = errors.New("too many open carts, try again later")
)

// Item is a cart line. Name and price are snapshotted when the item is added.
type Item struct {
	MenuItemID  uuid.UUID       `json:"menu_item_id"`
	Name        string          `json:"name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	PrepMinutes int             `json:"prep_minutes"`
	Quantity    int             `json:"quantity"`
}

func (i Item) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Cart struct {
	ID        uuid.UUID `json:"id"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// Count is the number of units across all lines.
func (c Cart) Count() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

func (c *Cart) clone() Cart {
	out := *c
	out.Items = slices.Clone(c.Items)
	if out.Items == nil {
		out.Items = []Item{}
	}
	return out
}

func (c *Cart) indexOf(menuItemID uuid.UUID) int {
	return slices.IndexFunc(c.Items, func(it Item) bool { return it.MenuItemID == menuItemID })
}

// Store is safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	carts map[uuid.UUID]*Cart
	ttl   time.Duration
	limit int
	now   func() time.Time
}

// NewStore creates a Store holding at most limit live carts. A limit of zero
// or less means no cap.
func NewStore(ttl time.Duration, limit int) *Store {
	return &Store{
		carts: make(map[uuid.UUID]*Cart),
		ttl:   ttl,
		limit: limit,
		now:   time.Now,
	}
}

// Create opens an empty cart. When the store is full, expired carts are
// dropped first and ErrTooManyCarts is returned if that frees nothing.
func (s *Store) Create() (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.limit > 0 && len(s.carts) >= s.limit {
		s.sweepLocked(now)
		if len(s.carts) >= s.limit {
			return Cart{}, ErrTooManyCarts
		}
	}
	c := &Cart{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
	s.carts[c.ID] = c
	return c.clone(), nil
}

func (s *Store) Get(id uuid.UUID) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.lookupLocked(id)
	if err != nil {
		return Cart{}, err
	}
	return c.clone(), nil
}

// AddItem adds qty units of item, merging with an existing line for the
// same menu item. The stored snapshot is refreshed with item's name and price.
func (s *Store) AddItem(id uuid.UUID, item Item, qty int) (Cart, error) {
	if qty <= 0 || qty > MaxQuantity {
		return Cart{}, ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.lookupLocked(id)
	if err != nil {
		return Cart{}, err
	}

	if i := c.indexOf(item.MenuItemID); i >= 0 {
		merged := c.Items[i].Quantity + qty
		if merged > MaxQuantity {
			return Cart{}, ErrInvalidQuantity
		}
		item.Quantity = merged
		c.Items[i] = item
	} else {
		item.Quantity = qty
		c.Items = append(c.Items, item)
	}
	c.UpdatedAt = s.now()
	return c.clone(), nil
}

// SetQuantity replaces a line's quantity. Zero removes the line.
func (s *Store) SetQuantity(id, menuItemID uuid.UUID, qty int) (Cart, error) {
	if qty < 0 || qty > MaxQuantity {
		return Cart{}, ErrInvalidQuantity
	}
	if qty == 0 {
		return s.RemoveItem(id, menuItemID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.lookupLocked(id)
	if err != nil {
		return Cart{}, err
	}
	i := c.indexOf(menuItemID)
	if i < 0 {
		return Cart{}, ErrItemNotFound
	}
	c.Items[i].Quantity = qty
	c.UpdatedAt = s.now()
	return c.clone(), nil
}

func (s *Store) RemoveItem(id, menuItemID uuid.UUID) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.lookupLocked(id)
	if err != nil {
		return Cart{}, err
	}
	i := c.indexOf(menuItemID)
	if i < 0 {
		return Cart{}, ErrItemNotFound
	}
	c.Items = slices.Delete(c.Items, i, i+1)
	c.UpdatedAt = s.now()
	return c.clone(), nil
}

func (s *Store) Clear(id uuid.UUID) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.lookupLocked(id)
	if err != nil {
		return Cart{}, err
	}
	c.Items = nil
	c.UpdatedAt = s.now()
	return c.clone(), nil
}

func (s *Store) Delete(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookupLocked(id); err != nil {
		return err
	}
	delete(s.carts, id)
	return nil
}

// Sweep drops carts idle for longer than the TTL and returns how many went.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(now)
}

func (s *Store) sweepLocked(now time.Time) int {
	n := 0
	for id, c := range s.carts {
		if s.expired(c, now) {
			delete(s.carts, id)
			n++
		}
	}
	return n
}

// Len reports the number of live carts.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.carts)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration, onSweep func(removed int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(s.now()); n > 0 && onSweep != nil {
				onSweep(n)
			}
		}
	}
}

func (s *Store) lookupLocked(id uuid.UUID) (*Cart, error) {
	c, ok := s.carts[id]
	if !ok {
		return nil, ErrCartNotFound
	}
	if s.expired(c, s.now()) {
		delete(s.carts, id)
		return nil, ErrCartNotFound
	}
	return c, nil
}

func (s *Store) expired(c *Cart, now time.Time) bool {
	return s.ttl > 0 && now.Sub(c.UpdatedAt) > s.ttl
}
