package roadnet

import (
	"log/slog"
	"os"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the YAML representation of map and tool settings
type Config struct {
	World      WorldConfig        `yaml:"world"`
	TurnPolicy TurnPolicy         `yaml:"turn_policy"`
	Pattern    LanePatternBuilder `yaml:"pattern"`
	Build      BuildConfig        `yaml:"build"`
	OSM        OSMImportConfig    `yaml:"osm"`
	LogLevel   string             `yaml:"log_level"`
}

type WorldConfig struct {
	Min orb.Point `yaml:"min"`
	Max orb.Point `yaml:"max"`
	// Z is the height of flat terrain
	Z float64 `yaml:"z"`
}

type BuildConfig struct {
	SnapToGrid  bool `yaml:"snap_to_grid"`
	SnapToAngle bool `yaml:"snap_to_angle"`
}

// DefaultConfig mirrors NewMap defaults
func DefaultConfig() Config {
	return Config{
		World: WorldConfig{
			Min: DefaultWorldBound.Min,
			Max: DefaultWorldBound.Max,
		},
		TurnPolicy: DefaultTurnPolicy(),
		Pattern:    DefaultLanePatternBuilder(),
		Build:      BuildConfig{SnapToAngle: true},
		LogLevel:   "info",
	}
}

// LoadConfig reads YAML file. Missing keys keep default values
func LoadConfig(fname string) (Config, error) {
	data, err := os.ReadFile(fname)
	if err != nil {
		return Config{}, errors.Wrap(err, "Can't read configuration file")
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "Can't parse configuration")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	if cfg.World.Min[0] >= cfg.World.Max[0] || cfg.World.Min[1] >= cfg.World.Max[1] {
		return errors.Wrapf(ErrInvalidRequest, "empty world bound %v - %v", cfg.World.Min, cfg.World.Max)
	}
	if !cfg.Pattern.Rail && cfg.Pattern.NLanes < 1 {
		return errors.Wrapf(ErrInvalidRequest, "pattern must have at least one lane, got %d", cfg.Pattern.NLanes)
	}
	if cfg.TurnPolicy.Roundabout != nil && cfg.TurnPolicy.Roundabout.Radius <= 0 {
		return errors.Wrapf(ErrInvalidRequest, "roundabout radius must be positive, got %f", cfg.TurnPolicy.Roundabout.Radius)
	}
	if _, err := cfg.Level(); err != nil {
		return err
	}
	return nil
}

func (cfg *Config) Level() (slog.Level, error) {
	var level slog.Level
	if cfg.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return level, errors.Wrapf(ErrInvalidRequest, "log level '%s'", cfg.LogLevel)
	}
	return level, nil
}

func (cfg *Config) Bound() orb.Bound {
	return orb.Bound{Min: cfg.World.Min, Max: cfg.World.Max}
}

// MapOptions converts configuration into NewMap options
func (cfg *Config) MapOptions(logger *slog.Logger) []func(*Map) {
	bound := cfg.Bound()
	options := []func(*Map){
		WithWorldBound(bound),
		WithTerrain(FlatTerrain{Bound: bound, Z: cfg.World.Z}),
		WithTurnPolicy(cfg.TurnPolicy),
	}
	if logger != nil {
		options = append(options, WithLogger(logger))
	}
	return options
}

// NewRoadBuild creates road build validator with configured pattern and snapping
func (cfg *Config) NewRoadBuild() *RoadBuild {
	rb := NewRoadBuild(cfg.Pattern)
	rb.SnapToGrid = cfg.Build.SnapToGrid
	rb.SnapToAngle = cfg.Build.SnapToAngle
	return rb
}
