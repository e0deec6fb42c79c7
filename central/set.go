package central

import (
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
)

// Set is a copy-on-write set. Writers swap in a new slice, so iteration works
// on a snapshot and may run concurrently with Add and Remove.
type Set[T any] struct {
	items atomic.Pointer[[]T]
	equal func(a, b T) bool
}

func NewSet[T any](equal func(a, b T) bool) *Set[T] {
	return &Set[T]{equal: equal}
}

func NewComparableSet[T comparable]() *Set[T] {
	return NewSet(func(a, b T) bool { return a == b })
}

func (s *Set[T]) Snapshot() []T {
	if p := s.items.Load(); p != nil {
		return *p
	}
	return nil
}

func (s *Set[T]) Len() int {
	return len(s.Snapshot())
}

func (s *Set[T]) index(items []T, v T) int {
	return slices.IndexFunc(items, func(item T) bool { return s.equal(item, v) })
}

// Add reports whether v was not already present.
func (s *Set[T]) Add(v T) bool {
	for {
		old := s.items.Load()
		var cur []T
		if old != nil {
			cur = *old
		}
		if s.index(cur, v) >= 0 {
			return false
		}
		next := append(slices.Clip(cur), v)
		if s.items.CompareAndSwap(old, &next) {
			return true
		}
	}
}

// Remove reports whether v was present.
func (s *Set[T]) Remove(v T) bool {
	for {
		old := s.items.Load()
		if old == nil {
			return false
		}
		i := s.index(*old, v)
		if i < 0 {
			return false
		}
		next := slices.Delete(slices.Clone(*old), i, i+1)
		if s.items.CompareAndSwap(old, &next) {
			return true
		}
	}
}

// Find returns the first element accepted by match.
func (s *Set[T]) Find(match func(T) bool) (T, bool) {
	var zero T
	for _, item := range s.Snapshot() {
		if match(item) {
			return item, true
		}
	}
	return zero, false
}

func (s *Set[T]) Clear() {
	s.items.Store(nil)
}

// Broadcast calls fn for each element of a snapshot. A panicking call is
// logged and does not stop delivery to the rest.
func (s *Set[T]) Broadcast(fn func(T)) {
	items := s.Snapshot()
	slog.Debug("broadcasting", "listeners", len(items))
	for _, item := range items {
		invoke(item, fn)
	}
}

func invoke[T any](item T, fn func(T)) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("listener failed", "listener", fmt.Sprintf("%T", item), "panic", r)
		}
	}()
	fn(item)
}
