package roadnet

import (
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

func TestCommandQueueAppliesOnce(t *testing.T) {
	m := newTestMap()
	q := &CommandQueue{}
	req := NewConnectionRequest(GroundProject(r3.Vector{X: 0}), GroundProject(r3.Vector{X: 100}), nil, drivingPattern(1))
	q.Push(req)
	q.Push(req)
	if q.Len() != 2 {
		t.Fatalf("Queue must hold 2 requests, but got %d", q.Len())
	}
	results := q.Apply(m)
	if len(results) != 1 {
		t.Fatalf("Duplicated request must be applied once, but got %d results", len(results))
	}
	if results[0].Err != nil {
		t.Fatal(results[0].Err)
	}
	q.Push(req)
	if results := q.Apply(m); len(results) != 0 {
		t.Errorf("Already applied request must be skipped, but got %+v", results)
	}
	if m.Roads().Len() != 1 {
		t.Errorf("Map must contain exactly one road, but got %d", m.Roads().Len())
	}
}

func TestCommandQueueOrder(t *testing.T) {
	m := newTestMap()
	q := &CommandQueue{}
	first := NewConnectionRequest(GroundProject(r3.Vector{X: 0}), GroundProject(r3.Vector{X: 100}), nil, drivingPattern(1))
	// Second request is too short and is rejected without affecting the first one
	second := NewConnectionRequest(GroundProject(r3.Vector{X: 0, Y: 200}), GroundProject(r3.Vector{X: 5, Y: 200}), nil, drivingPattern(1))
	q.Push(first)
	q.Push(second)
	results := q.Apply(m)
	if len(results) != 2 {
		t.Fatalf("Both requests must be reported, but got %d", len(results))
	}
	if results[0].Request.ID != first.ID || results[1].Request.ID != second.ID {
		t.Errorf("Requests must be applied in submission order")
	}
	if results[0].Err != nil {
		t.Errorf("First request must succeed, but got %v", results[0].Err)
	}
	if !IsGeometryError(results[1].Err) {
		t.Errorf("Second request must fail with geometry error, but got %v", results[1].Err)
	}
}

func TestNewConnectionRequestCopiesElbow(t *testing.T) {
	elbow := r2.Point{X: 5, Y: 5}
	req := NewConnectionRequest(GroundProject(r3.Vector{}), GroundProject(r3.Vector{X: 10}), &elbow, drivingPattern(1))
	elbow.X = 100
	if req.Inter == nil || req.Inter.X != 5 {
		t.Errorf("Request must keep its own copy of the elbow point, but got %v", req.Inter)
	}
	other := NewConnectionRequest(req.From, req.To, nil, req.Pattern)
	if other.ID == req.ID {
		t.Errorf("Every request must get a fresh identity")
	}
}
