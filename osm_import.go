package roadnet

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang/geo/r2"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"github.com/pkg/errors"
)

const (
	earthRadius = 6370.986884258304
	pi180       = math.Pi / 180.0
)

type OSMScanner interface {
	Scan() bool
	Close() error
	Err() error
	Object() osm.Object
}

// OSMImportConfig filters and places imported ways
type OSMImportConfig struct {
	// Tags lists accepted 'highway' values. Empty list accepts every known one
	Tags []string `yaml:"tags"`
	// Rail imports 'railway=rail' ways as tracks
	Rail bool `yaml:"rail"`
	// Origin is lon/lat of the local (0, 0). Zero value means the first imported node
	Origin orb.Point `yaml:"origin"`
	// Verbose prints progress to stdout
	Verbose bool `yaml:"-"`
}

// CheckTag reports whether given highway value should be imported
func (cfg *OSMImportConfig) CheckTag(tag string) bool {
	if len(cfg.Tags) == 0 {
		return getHighwayType(tag) != 0
	}
	for i := range cfg.Tags {
		if cfg.Tags[i] == tag {
			return true
		}
	}
	return false
}

// OSMImportStats summarizes import
type OSMImportStats struct {
	Ways          int
	Intersections int
	Roads         int
	Skipped       int
}

type osmWay struct {
	ID      osm.WayID
	Nodes   []osm.NodeID
	Highway HighwayType
	Oneway  bool
	Reverse bool
}

// ImportOSMFile reads *.osm, *.xml or *.osm.pbf file into the map
func (m *Map) ImportOSMFile(filename string, cfg OSMImportConfig) (OSMImportStats, error) {
	if cfg.Verbose {
		fmt.Printf("Opening file: '%s'...\n", filename)
	}
	file, err := os.Open(filename)
	if err != nil {
		return OSMImportStats{}, err
	}
	defer file.Close()
	format := filepath.Ext(filename)
	if strings.HasSuffix(filename, ".osm.pbf") {
		format = ".pbf"
	}
	return m.ImportOSM(file, format, cfg)
}

func newOSMScanner(r io.Reader, format string) (OSMScanner, error) {
	switch format {
	case ".osm", ".xml":
		return osmxml.New(context.Background(), r), nil
	case ".pbf":
		return osmpbf.New(context.Background(), r, 4), nil
	}
	return nil, fmt.Errorf("File extension '%s' is not handled yet", format)
}

// ImportOSM builds roads from OSM ways. Ways are split at nodes shared with other ways.
// Segments which can not be built (too short for their interfaces, out of terrain) are skipped and counted
func (m *Map) ImportOSM(r io.ReadSeeker, format string, cfg OSMImportConfig) (OSMImportStats, error) {
	stats := OSMImportStats{}

	if cfg.Verbose {
		fmt.Printf("\tProcessing ways... ")
	}
	st := time.Now()
	ways := []osmWay{}
	nodesSeen := make(map[osm.NodeID]int)
	{
		scannerWays, err := newOSMScanner(r, format)
		if err != nil {
			return stats, err
		}
		for scannerWays.Scan() {
			obj := scannerWays.Object()
			if obj.ObjectID().Type() != "way" {
				continue
			}
			way := obj.(*osm.Way)
			prepared, ok := prepareWay(way, &cfg)
			if !ok {
				continue
			}
			for i, node := range prepared.Nodes {
				nodesSeen[node]++
				if i == 0 || i == len(prepared.Nodes)-1 {
					// Way ends always become intersections
					nodesSeen[node]++
				}
			}
			ways = append(ways, prepared)
		}
		err = scannerWays.Err()
		scannerWays.Close()
		if err != nil {
			return stats, errors.Wrap(err, "Can't scan ways")
		}
	}
	stats.Ways = len(ways)
	if cfg.Verbose {
		fmt.Printf("Done in %v\n", time.Since(st))
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return stats, errors.Wrap(err, "Can't repeat seeking after ways scanning")
	}

	if cfg.Verbose {
		fmt.Printf("\tProcessing nodes... ")
	}
	st = time.Now()
	nodes := make(map[osm.NodeID]orb.Point)
	{
		scannerNodes, err := newOSMScanner(r, format)
		if err != nil {
			return stats, err
		}
		for scannerNodes.Scan() {
			obj := scannerNodes.Object()
			if obj.ObjectID().Type() != "node" {
				continue
			}
			node := obj.(*osm.Node)
			if _, ok := nodesSeen[node.ID]; !ok {
				continue
			}
			nodes[node.ID] = orb.Point{node.Lon, node.Lat}
		}
		err = scannerNodes.Err()
		scannerNodes.Close()
		if err != nil {
			return stats, errors.Wrap(err, "Can't scan nodes")
		}
	}
	if cfg.Verbose {
		fmt.Printf("Done in %v\n", time.Since(st))
	}

	if cfg.Verbose {
		fmt.Printf("\tBuilding roads... ")
	}
	st = time.Now()
	origin := cfg.Origin
	projector := func(p orb.Point) r2.Point {
		if origin == (orb.Point{}) {
			origin = p
		}
		return localPosition(origin, p)
	}
	inters := make(map[osm.NodeID]IntersectionID)
	intersectionAt := func(id osm.NodeID) (IntersectionID, error) {
		if inter, ok := inters[id]; ok {
			return inter, nil
		}
		p := projector(nodes[id])
		h, ok := m.terrain.Height(toOrb(p))
		if !ok {
			return 0, errors.Wrapf(ErrGeometry, "no terrain data under node %d", id)
		}
		inter, err := m.AddIntersection(withZ(p, h))
		if err != nil {
			return 0, err
		}
		inters[id] = inter
		stats.Intersections++
		return inter, nil
	}

	for _, way := range ways {
		pattern := way.Highway.Preset()
		pattern.OneWay = way.Oneway
		nodeIDs := way.Nodes
		if way.Reverse {
			nodeIDs = reversedNodes(nodeIDs)
		}
		start := 0
		for i := 1; i < len(nodeIDs); i++ {
			if nodesSeen[nodeIDs[i]] < 2 && i != len(nodeIDs)-1 {
				continue
			}
			if err := m.importSegment(nodeIDs[start:i+1], nodes, projector, intersectionAt, pattern.Build()); err != nil {
				stats.Skipped++
				m.logger.Warn("osm segment skipped", "way", int64(way.ID), "error", err.Error())
			} else {
				stats.Roads++
			}
			start = i
		}
	}
	if cfg.Verbose {
		fmt.Printf("Done in %v\n", time.Since(st))
	}
	return stats, nil
}

func (m *Map) importSegment(segment []osm.NodeID, nodes map[osm.NodeID]orb.Point, projector func(orb.Point) r2.Point, intersectionAt func(osm.NodeID) (IntersectionID, error), pattern LanePattern) error {
	for _, id := range segment {
		if _, ok := nodes[id]; !ok {
			return errors.Wrapf(ErrNotFound, "node %d", id)
		}
	}
	first, last := segment[0], segment[len(segment)-1]
	if first == last {
		return errors.Wrap(ErrInvalidRequest, "closed segment")
	}
	src, err := intersectionAt(first)
	if err != nil {
		return err
	}
	dst, err := intersectionAt(last)
	if err != nil {
		return err
	}
	interior := make([]r2.Point, 0, len(segment)-2)
	for _, id := range segment[1 : len(segment)-1] {
		interior = append(interior, projector(nodes[id]))
	}
	_, err = m.Connect(src, dst, pattern, PolylineSegment(interior))
	return err
}

func prepareWay(way *osm.Way, cfg *OSMImportConfig) (osmWay, bool) {
	prepared := osmWay{ID: way.ID}
	if highway := way.Tags.Find("highway"); highway != "" && cfg.CheckTag(highway) {
		prepared.Highway = getHighwayType(highway)
	} else if cfg.Rail && way.Tags.Find("railway") == "rail" {
		prepared.Highway = HIGHWAY_RAIL
	}
	if prepared.Highway == 0 || len(way.Nodes) < 2 {
		return prepared, false
	}
	switch way.Tags.Find("oneway") {
	case "yes", "1":
		prepared.Oneway = true
	case "-1":
		prepared.Oneway = true
		prepared.Reverse = true
	case "":
		prepared.Oneway = way.Tags.Find("junction") == "roundabout"
	}
	prepared.Nodes = make([]osm.NodeID, 0, len(way.Nodes))
	for _, node := range way.Nodes {
		prepared.Nodes = append(prepared.Nodes, node.ID)
	}
	return prepared, true
}

func reversedNodes(ids []osm.NodeID) []osm.NodeID {
	out := make([]osm.NodeID, len(ids))
	for i, id := range ids {
		out[len(ids)-1-i] = id
	}
	return out
}

// localPosition projects lon/lat onto a plane tangent at origin. Units are meters
func localPosition(origin, p orb.Point) r2.Point {
	r := earthRadius * 1000
	return r2.Point{
		X: r * (p[0] - origin[0]) * pi180 * math.Cos(origin[1]*pi180),
		Y: r * (p[1] - origin[1]) * pi180,
	}
}
