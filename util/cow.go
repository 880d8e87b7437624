package util

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
)

// CopyOnWrite is a set of observers that may be mutated while it is being iterated.
// Each mutation publishes a fresh slice, so a Snapshot taken at the start of a
// broadcast is never disturbed by Add or Remove calls made during it.
// The zero value is ready to use.
//
// Items are compared with ==. When T is an interface type every item must
// hold a comparable dynamic value, typically a pointer.
type CopyOnWrite[T comparable] struct {
	mu    sync.Mutex // serializes writers
	items atomic.Pointer[[]T]
}

// Add appends item. Adding an item that is already present is a no-op.
// It panics if item holds a value that cannot be compared.
func (c *CopyOnWrite[T]) Add(item T) {
	if !isComparable(item) {
		panic(fmt.Sprintf("util: CopyOnWrite item of non-comparable type %T", any(item)))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.Snapshot()
	for _, existing := range current {
		if existing == item {
			return
		}
	}

	next := make([]T, len(current), len(current)+1)
	copy(next, current)
	next = append(next, item)
	c.items.Store(&next)
}

// Remove deletes item and reports whether it was present.
func (c *CopyOnWrite[T]) Remove(item T) bool {
	if !isComparable(item) {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.Snapshot()
	for i, existing := range current {
		if existing != item {
			continue
		}

		next := make([]T, 0, len(current)-1)
		next = append(next, current[:i]...)
		next = append(next, current[i+1:]...)
		c.items.Store(&next)
		return true
	}

	return false
}

// Snapshot returns the items as of this call. The slice must not be modified.
func (c *CopyOnWrite[T]) Snapshot() []T {
	if p := c.items.Load(); p != nil {
		return *p
	}
	return nil
}

// Len returns the number of items currently registered.
func (c *CopyOnWrite[T]) Len() int {
	return len(c.Snapshot())
}

// isComparable reports whether == on item cannot panic. Interface type
// arguments satisfy comparable even when their dynamic value does not.
func isComparable[T comparable](item T) bool {
	v := reflect.ValueOf(any(item))
	return !v.IsValid() || v.Comparable()
}
