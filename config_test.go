package roadnet

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(""))
	if err != nil {
		t.Fatal(err)
	}
	def := DefaultConfig()
	if cfg.Bound() != def.Bound() {
		t.Errorf("World must be %v, but got %v", def.Bound(), cfg.Bound())
	}
	if cfg.Pattern != DefaultLanePatternBuilder() {
		t.Errorf("Pattern must be %+v, but got %+v", DefaultLanePatternBuilder(), cfg.Pattern)
	}
	if !cfg.TurnPolicy.LeftTurns || cfg.TurnPolicy.BackTurns {
		t.Errorf("Turn policy must be default, but got %+v", cfg.TurnPolicy)
	}
	level, err := cfg.Level()
	if err != nil {
		t.Fatal(err)
	}
	if level != slog.LevelInfo {
		t.Errorf("Log level must be info, but got %s", level)
	}
}

func TestParseConfig(t *testing.T) {
	data := []byte(`
world:
  min: [-500, -400]
  max: [500, 400]
  z: 12
turn_policy:
  left_turns: false
  roundabout:
    radius: 20
pattern:
  n_lanes: 2
  one_way: true
build:
  snap_to_grid: true
osm:
  tags: [primary, secondary]
  rail: true
log_level: debug
`)
	cfg, err := ParseConfig(data)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Bound() != (orb.Bound{Min: orb.Point{-500, -400}, Max: orb.Point{500, 400}}) {
		t.Errorf("Unexpected world: %v", cfg.Bound())
	}
	if cfg.TurnPolicy.LeftTurns || cfg.TurnPolicy.Roundabout == nil || cfg.TurnPolicy.Roundabout.Radius != 20 {
		t.Errorf("Unexpected turn policy: %+v", cfg.TurnPolicy)
	}
	if cfg.Pattern.NLanes != 2 || !cfg.Pattern.OneWay || !cfg.Pattern.Sidewalks {
		t.Errorf("Pattern must override lanes and keep sidewalks, but got %+v", cfg.Pattern)
	}
	if !cfg.Build.SnapToGrid || !cfg.Build.SnapToAngle {
		t.Errorf("Unexpected build settings: %+v", cfg.Build)
	}
	if len(cfg.OSM.Tags) != 2 || !cfg.OSM.Rail || !cfg.OSM.CheckTag("secondary") || cfg.OSM.CheckTag("residential") {
		t.Errorf("Unexpected osm settings: %+v", cfg.OSM)
	}
	level, _ := cfg.Level()
	if level != slog.LevelDebug {
		t.Errorf("Log level must be debug, but got %s", level)
	}

	rb := cfg.NewRoadBuild()
	if !rb.SnapToGrid || !rb.SnapToAngle {
		t.Errorf("Road build must take snapping settings")
	}

	m := NewMap(cfg.MapOptions(nil)...)
	h, ok := m.Terrain().Height(orb.Point{0, 0})
	if !ok || h != 12 {
		t.Errorf("Terrain must be flat at 12, but got %f (%t)", h, ok)
	}
	if _, ok := m.Terrain().Height(orb.Point{600, 0}); ok {
		t.Errorf("Terrain must end at world bound")
	}
}

func TestParseConfigInvalid(t *testing.T) {
	cases := []string{
		"world: {min: [10, 10], max: [0, 20]}",
		"pattern: {n_lanes: 0}",
		"turn_policy: {roundabout: {radius: 0}}",
		"log_level: loud",
	}
	for _, c := range cases {
		_, err := ParseConfig([]byte(c))
		if errors.Cause(err) != ErrInvalidRequest {
			t.Errorf("Config '%s' must be rejected as invalid request, but got %v", c, err)
		}
	}
	if _, err := ParseConfig([]byte("world: [")); err == nil {
		t.Errorf("Malformed YAML must be rejected")
	}
	if _, err := ParseConfig([]byte("pattern: {n_lanes: 0, rail: true}")); err != nil {
		t.Errorf("Rail pattern does not need lanes: %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "roadnet.yaml")
	if err := os.WriteFile(fname, []byte("log_level: warn\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(fname)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("Log level must be 'warn', but got '%s'", cfg.LogLevel)
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("Missing file must be reported")
	}
}
