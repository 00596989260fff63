package roadnet

import (
	"github.com/pkg/errors"
)

var (
	// ErrGeometry is returned when terrain sampling fails or when a road would be left
	// without a strictly positive drivable length. Operations failing with it never mutate the map.
	ErrGeometry = errors.New("geometry error")
	// ErrTopology marks references to entities that are no longer present in the store.
	ErrTopology = errors.New("topology inconsistency")
	// ErrNotFound is returned for stale or unknown identities
	ErrNotFound = errors.New("entity not found")
	// ErrInvalidRequest is returned for mutation requests which can not be resolved to a connection
	ErrInvalidRequest = errors.New("invalid request")
)

// IsGeometryError reports whether err was caused by a geometry failure
func IsGeometryError(err error) bool {
	return errors.Is(err, ErrGeometry)
}
