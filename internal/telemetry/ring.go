package telemetry

// Ring is a fixed-capacity history; pushing into a full ring evicts the
// oldest entry.
type Ring[T any] struct {
	items    []T
	head     int
	size     int
	capacity int
}

func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{items: make([]T, capacity), capacity: capacity}
}

func (r *Ring[T]) Push(v T) {
	if r.size < r.capacity {
		r.items[(r.head+r.size)%r.capacity] = v
		r.size++
		return
	}
	r.items[r.head] = v
	r.head = (r.head + 1) % r.capacity
}

// Get returns the i-th entry, oldest first.
func (r *Ring[T]) Get(i int) (T, bool) {
	var zero T
	if i < 0 || i >= r.size {
		return zero, false
	}
	return r.items[(r.head+i)%r.capacity], true
}

func (r *Ring[T]) Len() int { return r.size }

func (r *Ring[T]) Cap() int { return r.capacity }

// Snapshot copies the contents, oldest first.
func (r *Ring[T]) Snapshot() []T {
	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.items[(r.head+i)%r.capacity]
	}
	return out
}

// SetCapacity resizes the ring, keeping the oldest entries that still fit.
func (r *Ring[T]) SetCapacity(capacity int) {
	if capacity < 1 {
		capacity = 1
	}
	kept := r.Snapshot()
	if len(kept) > capacity {
		kept = kept[:capacity]
	}
	r.items = make([]T, capacity)
	copy(r.items, kept)
	r.head = 0
	r.size = len(kept)
	r.capacity = capacity
}

func (r *Ring[T]) Clear() {
	r.items = make([]T, r.capacity)
	r.head = 0
	r.size = 0
}
