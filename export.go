package roadnet

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	geojson "github.com/paulmach/go.geojson"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/pkg/errors"
)

// ExportToCSV writes intersections, roads, lanes and turns into four ';' separated files next to fname
func (m *Map) ExportToCSV(fname string) error {
	fnameParts := strings.Split(fname, ".csv")
	targets := []struct {
		suffix string
		write  func(io.Writer) error
	}{
		{"_intersections.csv", m.WriteIntersectionsCSV},
		{"_roads.csv", m.WriteRoadsCSV},
		{"_lanes.csv", m.WriteLanesCSV},
		{"_turns.csv", m.WriteTurnsCSV},
	}
	for _, target := range targets {
		file, err := os.Create(fnameParts[0] + target.suffix)
		if err != nil {
			return errors.Wrap(err, "Can't create file")
		}
		err = target.write(file)
		file.Close()
		if err != nil {
			return errors.Wrapf(err, "Can't export %s", strings.TrimSuffix(strings.TrimPrefix(target.suffix, "_"), ".csv"))
		}
	}
	return nil
}

func newCSVWriter(w io.Writer, header []string) (*csv.Writer, error) {
	writer := csv.NewWriter(w)
	writer.Comma = ';'
	if err := writer.Write(header); err != nil {
		return nil, errors.Wrap(err, "Can't write header")
	}
	return writer, nil
}

func lineString(pl Polyline3) orb.LineString {
	return pl.XY()
}

// WriteIntersectionsCSV writes one row per intersection
func (m *Map) WriteIntersectionsCSV(w io.Writer) error {
	writer, err := newCSVWriter(w, []string{"id", "roads", "turns", "roundabout", "light_policy", "z", "geom"})
	if err != nil {
		return err
	}
	for id, inter := range m.intersections.All() {
		roads := make([]string, len(inter.Roads))
		for i, roadID := range inter.Roads {
			roads[i] = fmt.Sprintf("%d", roadID)
		}
		err = writer.Write([]string{
			fmt.Sprintf("%d", id),
			strings.Join(roads, ","),
			fmt.Sprintf("%d", len(inter.Turns())),
			fmt.Sprintf("%t", inter.IsRoundabout()),
			fmt.Sprintf("%s", inter.Light),
			fmt.Sprintf("%f", inter.Pos.Z),
			wkt.MarshalString(toOrb(xy(inter.Pos))),
		})
		if err != nil {
			return errors.Wrap(err, "Can't write intersection")
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteRoadsCSV writes one row per road
func (m *Map) WriteRoadsCSV(w io.Writer) error {
	writer, err := newCSVWriter(w, []string{"id", "source_intersection", "target_intersection", "segment", "width", "lanes_forward", "lanes_backward", "source_interface", "target_interface", "length", "geom"})
	if err != nil {
		return err
	}
	for id, road := range m.roads.All() {
		err = writer.Write([]string{
			fmt.Sprintf("%d", id),
			fmt.Sprintf("%d", road.Src),
			fmt.Sprintf("%d", road.Dst),
			fmt.Sprintf("%s", road.Segment.Type),
			fmt.Sprintf("%f", road.Width),
			fmt.Sprintf("%d", len(road.forward)),
			fmt.Sprintf("%d", len(road.backward)),
			fmt.Sprintf("%f", road.InterfaceFrom(road.Src)),
			fmt.Sprintf("%f", road.InterfaceFrom(road.Dst)),
			fmt.Sprintf("%f", road.Length()),
			wkt.MarshalString(lineString(road.Points)),
		})
		if err != nil {
			return errors.Wrap(err, "Can't write road")
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteLanesCSV writes one row per lane
func (m *Map) WriteLanesCSV(w io.Writer) error {
	writer, err := newCSVWriter(w, []string{"id", "road_id", "kind", "direction", "source_intersection", "target_intersection", "control", "width", "geom"})
	if err != nil {
		return err
	}
	for id, lane := range m.lanes.All() {
		control := "none"
		if lane.Control != 0 {
			control = lane.Control.String()
		}
		err = writer.Write([]string{
			fmt.Sprintf("%d", id),
			fmt.Sprintf("%d", lane.Parent),
			fmt.Sprintf("%s", lane.Kind),
			fmt.Sprintf("%s", lane.Direction),
			fmt.Sprintf("%d", lane.Src),
			fmt.Sprintf("%d", lane.Dst),
			control,
			fmt.Sprintf("%f", lane.Width),
			wkt.MarshalString(lineString(lane.Points)),
		})
		if err != nil {
			return errors.Wrap(err, "Can't write lane")
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteTurnsCSV writes one row per turn of every intersection
func (m *Map) WriteTurnsCSV(w io.Writer) error {
	writer, err := newCSVWriter(w, []string{"intersection_id", "source_lane", "target_lane", "bidirectional", "kind", "direction", "geom"})
	if err != nil {
		return err
	}
	for id, inter := range m.intersections.All() {
		for _, turn := range inter.Turns() {
			direction := "none"
			if turn.Direction != 0 {
				direction = turn.Direction.String()
			}
			err = writer.Write([]string{
				fmt.Sprintf("%d", id),
				fmt.Sprintf("%d", turn.ID.Src),
				fmt.Sprintf("%d", turn.ID.Dst),
				fmt.Sprintf("%t", turn.ID.Bidirectional),
				fmt.Sprintf("%s", turn.Kind),
				direction,
				wkt.MarshalString(lineString(turn.Points)),
			})
			if err != nil {
				return errors.Wrap(err, "Can't write turn")
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

func coords(pl Polyline3) [][]float64 {
	out := make([][]float64, len(pl))
	for i, p := range pl {
		out[i] = []float64{p.X, p.Y, p.Z}
	}
	return out
}

// ExportGeoJSON returns the network as a feature collection of intersections, roads and lanes
func (m *Map) ExportGeoJSON(withLanes bool) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for id, inter := range m.intersections.All() {
		f := geojson.NewPointFeature([]float64{inter.Pos.X, inter.Pos.Y, inter.Pos.Z})
		f.ID = int64(id)
		f.SetProperty("type", "intersection")
		f.SetProperty("roads", len(inter.Roads))
		f.SetProperty("turns", len(inter.Turns()))
		f.SetProperty("radius", inter.BoundingCircleRadius(&m.roads))
		fc.AddFeature(f)
	}
	for id, road := range m.roads.All() {
		f := geojson.NewLineStringFeature(coords(road.Points))
		f.ID = int64(id)
		f.SetProperty("type", "road")
		f.SetProperty("src", int64(road.Src))
		f.SetProperty("dst", int64(road.Dst))
		f.SetProperty("width", road.Width)
		f.SetProperty("segment", road.Segment.Type.String())
		fc.AddFeature(f)
	}
	if withLanes {
		for id, lane := range m.lanes.All() {
			f := geojson.NewLineStringFeature(coords(lane.Points))
			f.ID = int64(id)
			f.SetProperty("type", "lane")
			f.SetProperty("road", int64(lane.Parent))
			f.SetProperty("kind", lane.Kind.String())
			fc.AddFeature(f)
		}
	}
	b, err := fc.MarshalJSON()
	if err != nil {
		return nil, errors.Wrap(err, "Can't convert network to geojson format")
	}
	return b, nil
}
