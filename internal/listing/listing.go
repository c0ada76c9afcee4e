// Package listing filters, sorts and pages the small catalogues served by the
// browse endpoints (rooms, menu items). Catalogues are loaded whole and
// shaped in memory.
package listing

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

var ErrUnknownSort = errors.New("unknown sort key")

// Predicate keeps an item when it returns true.
type Predicate[T any] func(T) bool

// Filter returns the items matching every predicate. Nil predicates are skipped.
func Filter[T any](items []T, preds ...Predicate[T]) []T {
	out := make([]T, 0, len(items))
next:
	for _, it := range items {
		for _, p := range preds {
			if p != nil && !p(it) {
				continue next
			}
		}
		out = append(out, it)
	}
	return out
}

// Sorter maps a sort key (as accepted in ?sort=) to a comparison.
type Sorter[T any] map[string]func(a, b T) int

// Sort returns a stably sorted copy. An empty key keeps the input order.
func (s Sorter[T]) Sort(items []T, key string) ([]T, error) {
	out := slices.Clone(items)
	if key == "" {
		return out, nil
	}
	cmp, ok := s[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSort, key)
	}
	slices.SortStableFunc(out, cmp)
	return out, nil
}

// Keys lists the accepted sort keys in sorted order.
func (s Sorter[T]) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Page is a limit/offset window.
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// MaxOffset keeps offsets inside the int4 range Postgres accepts.
const MaxOffset = math.MaxInt32

// ParsePage reads limit and offset from q. Invalid values fall back to the
// defaults, limit is capped at max and offset at MaxOffset.
func ParsePage(q url.Values, defaultLimit, max int) Page {
	if max > math.MaxInt32 {
		max = math.MaxInt32
	}
	p := Page{Limit: defaultLimit}
	if s := q.Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			p.Limit = v
		}
	}
	if p.Limit > max {
		p.Limit = max
	}
	if s := q.Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			p.Offset = min(v, MaxOffset)
		}
	}
	return p
}

// Paginate returns the window of items described by p.
func Paginate[T any](items []T, p Page) []T {
	if p.Offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if p.Limit > 0 && p.Offset+p.Limit < end {
		end = p.Offset + p.Limit
	}
	return items[p.Offset:end]
}

// MatchesQuery reports whether any field contains q, ignoring case.
// An empty q matches everything.
func MatchesQuery(q string, fields ...string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}
