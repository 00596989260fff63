package roadnet

import (
	"iter"
	"slices"
)

// Arena stores entities under stable identities.
// Identities are allocated monotonically and never reused: removing an entity
// invalidates its own identity only, and a stale identity always yields "not found".
type Arena[K ~int64, V any] struct {
	items map[K]V
	last  K
}

// Insert allocates a new identity and stores the value produced by build for it
func (a *Arena[K, V]) Insert(build func(id K) V) K {
	if a.items == nil {
		a.items = make(map[K]V)
	}
	a.last++
	id := a.last
	a.items[id] = build(id)
	return id
}

// Get returns entity by its identity
func (a *Arena[K, V]) Get(id K) (V, bool) {
	v, ok := a.items[id]
	return v, ok
}

// Contains checks if identity is alive
func (a *Arena[K, V]) Contains(id K) bool {
	_, ok := a.items[id]
	return ok
}

// Remove deletes entity and returns it
func (a *Arena[K, V]) Remove(id K) (V, bool) {
	v, ok := a.items[id]
	if ok {
		delete(a.items, id)
	}
	return v, ok
}

// Len returns number of alive entities
func (a *Arena[K, V]) Len() int {
	return len(a.items)
}

// Keys returns alive identities in ascending order
func (a *Arena[K, V]) Keys() []K {
	keys := make([]K, 0, len(a.items))
	for k := range a.items {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// All iterates over entities in ascending order of identities
func (a *Arena[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, k := range a.Keys() {
			if !yield(k, a.items[k]) {
				return
			}
		}
	}
}

type (
	IntersectionID int64
	RoadID         int64
	LaneID         int64
	BuildingID     int64
)

type (
	Intersections = Arena[IntersectionID, *Intersection]
	Roads         = Arena[RoadID, *Road]
	Lanes         = Arena[LaneID, *Lane]
	Buildings     = Arena[BuildingID, *Building]
)
