package roadnet

import (
	"log/slog"

	"github.com/golang/geo/r2"
	"github.com/google/uuid"
)

// ConnectionRequest asks the map to connect two projections, optionally through an elbow point
type ConnectionRequest struct {
	ID      uuid.UUID
	From    MapProject
	To      MapProject
	Inter   *r2.Point
	Pattern LanePattern
}

// NewConnectionRequest creates request with a fresh identity
func NewConnectionRequest(from, to MapProject, inter *r2.Point, pattern LanePattern) ConnectionRequest {
	req := ConnectionRequest{ID: uuid.New(), From: from, To: to, Pattern: pattern}
	if inter != nil {
		p := *inter
		req.Inter = &p
	}
	return req
}

// CommandResult reports outcome of an applied request
type CommandResult struct {
	Request ConnectionRequest
	Road    RoadID
	Err     error
}

// CommandQueue decouples interactive previews from map mutations.
// Requests are applied in submission order and each of them at most once
type CommandQueue struct {
	pending []ConnectionRequest
	applied map[uuid.UUID]struct{}
}

// Push enqueues request
func (q *CommandQueue) Push(req ConnectionRequest) {
	q.pending = append(q.pending, req)
}

// Len returns number of pending requests
func (q *CommandQueue) Len() int {
	return len(q.pending)
}

// Apply drains the queue into the map
func (q *CommandQueue) Apply(m *Map) []CommandResult {
	if q.applied == nil {
		q.applied = make(map[uuid.UUID]struct{})
	}
	pending := q.pending
	q.pending = nil
	results := make([]CommandResult, 0, len(pending))
	for _, req := range pending {
		if _, ok := q.applied[req.ID]; ok {
			m.logger.Warn("request was already applied", slog.String("request", req.ID.String()))
			continue
		}
		q.applied[req.ID] = struct{}{}
		road, err := m.MakeConnection(req.From, req.To, req.Inter, req.Pattern)
		if err != nil {
			m.logger.Info("connection rejected", slog.String("request", req.ID.String()), slog.String("error", err.Error()))
		} else {
			m.logger.Debug("connection built", slog.String("request", req.ID.String()), slog.Int64("road", int64(road)))
		}
		results = append(results, CommandResult{Request: req, Road: road, Err: err})
	}
	return results
}
