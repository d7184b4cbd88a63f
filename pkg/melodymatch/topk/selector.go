// Package topk keeps the k highest scoring items of a stream.
package topk

import "container/heap"

// Item is a scored value held by a Selector.
type Item[T any] struct {
	Score float64
	Value T
}

type minHeap[T any] []Item[T]

func (h minHeap[T]) Len() int           { return len(h) }
func (h minHeap[T]) Less(i, j int) bool { return h[i].Score < h[j].Score }
func (h minHeap[T]) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *minHeap[T]) Push(x any) {
	*h = append(*h, x.(Item[T]))
}

func (h *minHeap[T]) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	var zero Item[T]
	old[n-1] = zero
	*h = old[:n-1]
	return x
}

// Selector is a fixed-capacity min-heap that retains the highest scores seen.
//
// Once full, an item is admitted only if its score is strictly greater than
// the current minimum. Ties at the minimum are dropped, so among items sharing
// the threshold score the first ones inserted win.
//
// A Selector is not safe for concurrent use.
type Selector[T any] struct {
	capacity int
	items    minHeap[T]
}

// maxPrealloc bounds the up-front allocation; larger selectors grow on demand.
const maxPrealloc = 1024

// New returns a Selector holding at most capacity items. Capacities below 1
// are clamped to 1.
func New[T any](capacity int) *Selector[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Selector[T]{
		capacity: capacity,
		items:    make(minHeap[T], 0, min(capacity, maxPrealloc)),
	}
}

// Insert offers an item to the selector.
func (s *Selector[T]) Insert(score float64, value T) {
	if len(s.items) < s.capacity {
		heap.Push(&s.items, Item[T]{Score: score, Value: value})
		return
	}
	if score > s.items[0].Score {
		s.items[0] = Item[T]{Score: score, Value: value}
		heap.Fix(&s.items, 0)
	}
}

// PeekMin returns the lowest retained item without removing it.
func (s *Selector[T]) PeekMin() (Item[T], bool) {
	if len(s.items) == 0 {
		return Item[T]{}, false
	}
	return s.items[0], true
}

// DrainAscending removes every item, returning them lowest score first.
func (s *Selector[T]) DrainAscending() []Item[T] {
	out := make([]Item[T], 0, len(s.items))
	for len(s.items) > 0 {
		out = append(out, heap.Pop(&s.items).(Item[T]))
	}
	return out
}

// DrainDescending removes every item, returning them highest score first.
func (s *Selector[T]) DrainDescending() []Item[T] {
	out := s.DrainAscending()
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Len returns the number of retained items.
func (s *Selector[T]) Len() int {
	return len(s.items)
}

// Cap returns the selector capacity.
func (s *Selector[T]) Cap() int {
	return s.capacity
}
