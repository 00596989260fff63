package roadnet

import (
	"cmp"
	"math"
	"slices"

	"github.com/LdDl/ch"
	"github.com/pkg/errors"
)

// Router answers shortest path queries between intersections over roads carrying vehicle lanes.
// It is a snapshot: rebuild it after the map changes
type Router struct {
	graph ch.Graph
	known map[int64]struct{}
}

// NewRouter builds contraction hierarchies over the current vehicle graph of the map.
// Edge weight is the drivable length of the road
func NewRouter(m *Map) (*Router, error) {
	router := &Router{known: make(map[int64]struct{})}
	weights := make(map[[2]int64]float64)
	for id, inter := range m.intersections.All() {
		source := int64(id)
		if err := router.vertex(source); err != nil {
			return nil, err
		}
		for _, road := range inter.VehicleExits(&m.roads, &m.lanes) {
			other, _ := road.OtherEnd(id)
			key := [2]int64{source, int64(other)}
			cost := math.Max(road.DrivableLength(), epsilon)
			if prev, ok := weights[key]; !ok || cost < prev {
				weights[key] = cost
			}
		}
	}
	keys := make([][2]int64, 0, len(weights))
	for key := range weights {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, func(a, b [2]int64) int {
		if a[0] != b[0] {
			return cmp.Compare(a[0], b[0])
		}
		return cmp.Compare(a[1], b[1])
	})
	for _, key := range keys {
		cost := weights[key]
		if err := router.vertex(key[1]); err != nil {
			return nil, err
		}
		if err := router.graph.AddEdge(key[0], key[1], cost); err != nil {
			return nil, errors.Wrap(err, "Can not wrap Source and Target vertices as Edge")
		}
	}
	router.graph.PrepareContractionHierarchies()
	return router, nil
}

func (router *Router) vertex(label int64) error {
	if _, ok := router.known[label]; ok {
		return nil
	}
	if err := router.graph.CreateVertex(label); err != nil {
		return errors.Wrapf(err, "Can not create vertex %d", label)
	}
	router.known[label] = struct{}{}
	return nil
}

// ShortestPath returns path cost and intersections along it
func (router *Router) ShortestPath(from, to IntersectionID) (float64, []IntersectionID, error) {
	_, okFrom := router.known[int64(from)]
	_, okTo := router.known[int64(to)]
	if !okFrom || !okTo {
		return 0, nil, errors.Wrapf(ErrNotFound, "intersections %d -> %d", from, to)
	}
	if from == to {
		return 0, []IntersectionID{from}, nil
	}
	cost, path := router.graph.ShortestPath(int64(from), int64(to))
	if cost < 0 || len(path) == 0 {
		return 0, nil, errors.Wrapf(ErrNotFound, "no path %d -> %d", from, to)
	}
	out := make([]IntersectionID, len(path))
	for i, v := range path {
		out[i] = IntersectionID(v)
	}
	return cost, out, nil
}
