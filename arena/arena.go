// Package arena provides a generational-index store: values live in a dense
// slice, removed indices go on a LIFO free list, and every handle carries
// the generation of the entry it was issued for so stale handles are caught.
package arena

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalid is returned for the zero handle or an index never issued.
	ErrInvalid = errors.New("invalid handle")
	// ErrStale is returned for a handle whose entry has been removed.
	ErrStale = errors.New("stale handle")
)

// Handle addresses one entry. The zero Handle is never issued.
type Handle struct {
	Index uint32
	Gen   uint32
}

// IsZero reports whether h is the zero handle.
func (h Handle) IsZero() bool { return h.Gen == 0 }

func (h Handle) String() string {
	return fmt.Sprintf("%d@%d", h.Index, h.Gen)
}

type entry[T any] struct {
	gen  uint32
	live bool
	val  T
}

// Arena is not safe for concurrent mutation.
type Arena[T any] struct {
	entries []entry[T]
	free    []uint32 // stack; last element is reused first
	live    int
}

// Insert stores v, reusing the most recently freed index if any.
func (a *Arena[T]) Insert(v T) Handle {
	a.live++
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		e := &a.entries[idx]
		e.live = true
		e.val = v
		return Handle{Index: idx, Gen: e.gen}
	}
	a.entries = append(a.entries, entry[T]{gen: 1, live: true, val: v})
	return Handle{Index: uint32(len(a.entries) - 1), Gen: 1}
}

func (a *Arena[T]) lookup(h Handle) (*entry[T], error) {
	if h.Gen == 0 || int(h.Index) >= len(a.entries) {
		return nil, fmt.Errorf("%v: %w", h, ErrInvalid)
	}
	e := &a.entries[h.Index]
	if !e.live || e.gen != h.Gen {
		return nil, fmt.Errorf("%v: %w", h, ErrStale)
	}
	return e, nil
}

// Get returns a pointer to the value at h. The pointer is invalidated by the
// next Insert.
func (a *Arena[T]) Get(h Handle) (*T, error) {
	e, err := a.lookup(h)
	if err != nil {
		return nil, err
	}
	return &e.val, nil
}

// Remove frees h and returns its value. The index is pushed on the free list
// and its generation bumped so h and its copies go stale.
func (a *Arena[T]) Remove(h Handle) (T, error) {
	var zero T
	e, err := a.lookup(h)
	if err != nil {
		return zero, err
	}
	v := e.val
	e.val = zero
	e.live = false
	e.gen++
	if e.gen == 0 {
		e.gen = 1
	}
	a.free = append(a.free, h.Index)
	a.live--
	return v, nil
}

// Len returns the number of live entries.
func (a *Arena[T]) Len() int { return a.live }

// At returns the live entry at index i, if any.
func (a *Arena[T]) At(i int) (Handle, *T, bool) {
	if i < 0 || i >= len(a.entries) || !a.entries[i].live {
		return Handle{}, nil, false
	}
	e := &a.entries[i]
	return Handle{Index: uint32(i), Gen: e.gen}, &e.val, true
}

// Each calls fn for every live entry in ascending index order.
// fn must not insert or remove.
func (a *Arena[T]) Each(fn func(Handle, *T)) {
	for i := range a.entries {
		e := &a.entries[i]
		if e.live {
			fn(Handle{Index: uint32(i), Gen: e.gen}, &e.val)
		}
	}
}

// FreeList returns the free indices, next to be reused first.
func (a *Arena[T]) FreeList() []uint32 {
	out := make([]uint32, len(a.free))
	for i, idx := range a.free {
		out[len(a.free)-1-i] = idx
	}
	return out
}
