package models

import "sort"

// Navigator queries an Index and remembers where the previous query landed.
// Forward playback usually moves at most one item per query, so the cached
// bounds are probed before falling back to binary search. Results are always
// the same as Index.Visit.
//
// A Navigator is not safe for concurrent use. Several navigators may share
// one Index.
type Navigator[T Timing] struct {
	index *Index[T]

	// Bounds of the last query: items[:lastUpper] begin at or before
	// lastPosition and items[:lastLower] all ended before it.
	lastUpper    int
	lastLower    int
	lastPosition int64
}

func NewNavigator[T Timing](index *Index[T]) *Navigator[T] {
	n := &Navigator[T]{index: index}
	n.Reset()
	return n
}

func (n *Navigator[T]) Index() *Index[T] {
	return n.index
}

func (n *Navigator[T]) Reset() {
	n.lastUpper = 0
	n.lastLower = 0
	n.lastPosition = -1
}

func (n *Navigator[T]) remember(position int64, upper, lower int) {
	n.lastPosition = position
	n.lastUpper = upper
	n.lastLower = lower
}

// bounds returns the same values as Index.upper and Index.lower.
func (n *Navigator[T]) bounds(position int64) (int, int) {
	x := n.index
	size := len(x.items)
	if n.lastPosition < 0 || position < n.lastPosition {
		k := x.upper(position)
		return k, x.lower(position, k)
	}

	k := n.lastUpper
	switch {
	case k >= size || x.items[k].GetBegin() > position:
	case k+1 >= size || x.items[k+1].GetBegin() > position:
		k++
	default:
		from := k + 2
		k = from + sort.Search(size-from, func(i int) bool { return x.items[from+i].GetBegin() > position })
	}

	lo := min(n.lastLower, k)
	switch {
	case lo >= k || x.maxEnd[lo] >= position:
	case lo+1 >= k || x.maxEnd[lo+1] >= position:
		lo++
	default:
		from := lo + 2
		lo = from + sort.Search(k-from, func(i int) bool { return x.maxEnd[from+i] >= position })
	}
	return k, lo
}

// FindAt calls action for every item containing position and returns the
// number of matches.
func (n *Navigator[T]) FindAt(position int64, action func(T)) int {
	x := n.index
	size := len(x.items)
	if size == 0 {
		return 0
	}
	if position < x.items[0].GetBegin() {
		n.remember(position, 0, 0)
		return 0
	}
	if position > x.maxEnd[size-1] {
		n.remember(position, size, size)
		return 0
	}
	if size < LinearScanThreshold {
		count := x.visitLinear(position, action)
		n.remember(position, x.upper(position), 0)
		return count
	}
	k, lo := n.bounds(position)
	n.remember(position, k, lo)
	return x.visitRange(position, lo, k, action)
}

// FindAtOrPrevious is FindAt with the FindLastEnded fallback.
func (n *Navigator[T]) FindAtOrPrevious(position int64, action func(T)) int {
	if count := n.FindAt(position, action); count > 0 {
		return count
	}
	if len(n.index.items) == 0 {
		return 0
	}
	if item, ok := n.index.lastEnded(position, n.lastUpper); ok {
		action(item)
		return 1
	}
	return 0
}

func (n *Navigator[T]) Lookup(position int64) []T {
	var result []T
	n.FindAt(position, func(item T) { result = append(result, item) })
	return result
}

func (n *Navigator[T]) LookupOrPrevious(position int64) []T {
	var result []T
	n.FindAtOrPrevious(position, func(item T) { result = append(result, item) })
	return result
}
