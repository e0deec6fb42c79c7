package models

import "sort"

// Below this size a plain scan beats binary search.
const LinearScanThreshold = 50

// Index answers position queries over items sorted ascending by begin.
// Items may overlap or nest; every item containing a position is reported.
// The items must not be mutated once indexed.
type Index[T Timing] struct {
	items []T
	// maxEnd[i] is the greatest end among items[:i+1] and maxIdx[i] the first
	// item holding it. No item before the first i with maxEnd[i] >= p can
	// contain p.
	maxEnd []int64
	maxIdx []int
}

func NewIndex[T Timing](items []T) *Index[T] {
	idx := &Index[T]{
		items:  items,
		maxEnd: make([]int64, len(items)),
		maxIdx: make([]int, len(items)),
	}
	for i, item := range items {
		if i == 0 || item.GetEnd() > idx.maxEnd[i-1] {
			idx.maxEnd[i] = item.GetEnd()
			idx.maxIdx[i] = i
		} else {
			idx.maxEnd[i] = idx.maxEnd[i-1]
			idx.maxIdx[i] = idx.maxIdx[i-1]
		}
	}
	return idx
}

func (x *Index[T]) Len() int {
	return len(x.items)
}

func (x *Index[T]) Items() []T {
	return x.items
}

// MaxEnd is the latest end of any item, or -1 when empty.
func (x *Index[T]) MaxEnd() int64 {
	if len(x.items) == 0 {
		return -1
	}
	return x.maxEnd[len(x.items)-1]
}

func (x *Index[T]) outOfRange(position int64) bool {
	n := len(x.items)
	return n == 0 || position < x.items[0].GetBegin() || position > x.maxEnd[n-1]
}

// upper is the number of items with begin <= position.
func (x *Index[T]) upper(position int64) int {
	return sort.Search(len(x.items), func(i int) bool { return x.items[i].GetBegin() > position })
}

// lower is the first index below k whose running max end reaches position.
func (x *Index[T]) lower(position int64, k int) int {
	return sort.Search(k, func(i int) bool { return x.maxEnd[i] >= position })
}

func (x *Index[T]) visitRange(position int64, lo, hi int, action func(T)) int {
	count := 0
	for i := lo; i < hi; i++ {
		if item := x.items[i]; item.GetEnd() >= position {
			action(item)
			count++
		}
	}
	return count
}

func (x *Index[T]) visitLinear(position int64, action func(T)) int {
	count := 0
	for _, item := range x.items {
		if item.GetBegin() > position {
			break
		}
		if item.GetEnd() >= position {
			action(item)
			count++
		}
	}
	return count
}

func (x *Index[T]) visitBinary(position int64, action func(T)) int {
	k := x.upper(position)
	return x.visitRange(position, x.lower(position, k), k, action)
}

// Visit calls action for every item containing position, in index order, and
// returns how many there were.
func (x *Index[T]) Visit(position int64, action func(T)) int {
	if x.outOfRange(position) {
		return 0
	}
	if len(x.items) < LinearScanThreshold {
		return x.visitLinear(position, action)
	}
	return x.visitBinary(position, action)
}

// FindActive returns every item with begin <= position <= end.
func (x *Index[T]) FindActive(position int64) []T {
	var result []T
	x.Visit(position, func(item T) { result = append(result, item) })
	return result
}

// FindActiveOrPrevious falls back to the item that ended last before position
// when nothing is active, so gaps keep showing the previous line.
func (x *Index[T]) FindActiveOrPrevious(position int64) []T {
	if result := x.FindActive(position); len(result) > 0 {
		return result
	}
	if item, ok := x.FindLastEnded(position); ok {
		return []T{item}
	}
	return nil
}

// FindLastEnded returns the item with the greatest end below position. Ties
// go to the earliest such item.
func (x *Index[T]) FindLastEnded(position int64) (T, bool) {
	var zero T
	k := x.upper(position)
	lo := x.lower(position, k)
	best := -1
	if lo > 0 {
		best = x.maxIdx[lo-1]
	}
	for i := lo; i < k; i++ {
		if end := x.items[i].GetEnd(); end < position && (best == -1 || end > x.items[best].GetEnd()) {
			best = i
		}
	}
	if best == -1 {
		return zero, false
	}
	return x.items[best], true
}

// lastEnded is FindLastEnded for positions where nothing is active.
func (x *Index[T]) lastEnded(position int64, k int) (T, bool) {
	var zero T
	if k == 0 || x.maxEnd[k-1] >= position {
		return zero, false
	}
	return x.items[x.maxIdx[k-1]], true
}

// FindPrevious returns the item with the greatest begin below position. This
// is ordering by begin, unlike FindLastEnded.
func (x *Index[T]) FindPrevious(position int64) (T, bool) {
	var zero T
	i := sort.Search(len(x.items), func(i int) bool { return x.items[i].GetBegin() >= position })
	if i == 0 {
		return zero, false
	}
	return x.items[i-1], true
}

// FilterByRange returns the items lying entirely inside [start, end].
func (x *Index[T]) FilterByRange(start, end int64) []T {
	return FilterByRange(x.items, start, end)
}

// FindActive scans items without building an index.
func FindActive[T Timing](items []T, position int64) []T {
	var result []T
	for _, item := range items {
		if item.GetBegin() > position {
			break
		}
		if item.GetEnd() >= position {
			result = append(result, item)
		}
	}
	return result
}

func FindActiveOrPrevious[T Timing](items []T, position int64) []T {
	if result := FindActive(items, position); len(result) > 0 {
		return result
	}
	last := -1
	for i, item := range items {
		if item.GetEnd() < position && (last == -1 || item.GetEnd() > items[last].GetEnd()) {
			last = i
		}
	}
	if last == -1 {
		return nil
	}
	return []T{items[last]}
}

func FilterByRange[T Timing](items []T, start, end int64) []T {
	var result []T
	for _, item := range items {
		if item.GetBegin() > end {
			break
		}
		if item.GetBegin() >= start && item.GetEnd() <= end {
			result = append(result, item)
		}
	}
	return result
}
