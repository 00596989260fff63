package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/LdDl/roadnet"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	configFile string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "roadnet",
		Short:         "Road network topology and geometry tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML configuration file. Defaults are used when empty")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", true, "Print progress")

	rootCmd.AddCommand(importCmd(), routeCmd(), gridCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func loadConfig() (roadnet.Config, *slog.Logger, error) {
	cfg := roadnet.DefaultConfig()
	if configFile != "" {
		var err error
		cfg, err = roadnet.LoadConfig(configFile)
		if err != nil {
			return cfg, nil, err
		}
	}
	level, err := cfg.Level()
	if err != nil {
		return cfg, nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return cfg, logger, nil
}

func importMap(osmFileName string, tags string) (*roadnet.Map, roadnet.Config, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, cfg, err
	}
	if tags != "" {
		cfg.OSM.Tags = strings.Split(tags, ",")
	}
	cfg.OSM.Verbose = verbose
	m := roadnet.NewMap(cfg.MapOptions(logger)...)
	stats, err := m.ImportOSMFile(osmFileName, cfg.OSM)
	if err != nil {
		return nil, cfg, errors.Wrap(err, "Can't import OSM file")
	}
	if verbose {
		fmt.Printf("Imported ways: %d, intersections: %d, roads: %d, skipped segments: %d\n", stats.Ways, stats.Intersections, stats.Roads, stats.Skipped)
		fmt.Println(m)
	}
	return m, cfg, nil
}

func export(m *roadnet.Map, out, geojsonOut string) error {
	if out != "" {
		st := time.Now()
		if err := m.ExportToCSV(out); err != nil {
			return err
		}
		if verbose {
			fmt.Printf("CSV files prepared in %v\n", time.Since(st))
		}
	}
	if geojsonOut != "" {
		data, err := m.ExportGeoJSON(true)
		if err != nil {
			return err
		}
		if err := os.WriteFile(geojsonOut, data, 0644); err != nil {
			return errors.Wrap(err, "Can't write GeoJSON file")
		}
	}
	return nil
}

func importCmd() *cobra.Command {
	var osmFileName, tags, out, geojsonOut string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Build road network from *.osm or *.osm.pbf file",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := importMap(osmFileName, tags)
			if err != nil {
				return err
			}
			return export(m, out, geojsonOut)
		},
	}
	cmd.Flags().StringVar(&osmFileName, "file", "my_graph.osm.pbf", "Filename of *.osm or *.osm.pbf file")
	cmd.Flags().StringVar(&tags, "tags", "", "Set of needed highway tags (separated by commas). Overrides configuration")
	cmd.Flags().StringVar(&out, "out", "my_graph.csv", "Prefix of 'Comma-Separated Values' (CSV) files. E.g.: 'map.csv' produces 'map_intersections.csv', 'map_roads.csv', 'map_lanes.csv', 'map_turns.csv'")
	cmd.Flags().StringVar(&geojsonOut, "geojson", "", "Optional GeoJSON output file")
	return cmd
}

func routeCmd() *cobra.Command {
	var osmFileName, tags string
	var from, to int64
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Find shortest path between two intersections of imported network",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := importMap(osmFileName, tags)
			if err != nil {
				return err
			}
			st := time.Now()
			router, err := roadnet.NewRouter(m)
			if err != nil {
				return err
			}
			if verbose {
				fmt.Printf("Done contraction process in %v\n", time.Since(st))
			}
			cost, path, err := router.ShortestPath(roadnet.IntersectionID(from), roadnet.IntersectionID(to))
			if err != nil {
				return err
			}
			fmt.Printf("Cost: %f\nPath: %v\n", cost, path)
			return nil
		},
	}
	cmd.Flags().StringVar(&osmFileName, "file", "my_graph.osm.pbf", "Filename of *.osm or *.osm.pbf file")
	cmd.Flags().StringVar(&tags, "tags", "", "Set of needed highway tags (separated by commas)")
	cmd.Flags().Int64Var(&from, "from", 1, "Source intersection")
	cmd.Flags().Int64Var(&to, "to", 2, "Target intersection")
	return cmd
}

func gridCmd() *cobra.Command {
	var rows, cols int
	var spacing float64
	var out, geojsonOut string
	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Draw a grid of roads through the road build tool",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			m := roadnet.NewMap(cfg.MapOptions(logger)...)
			rb := cfg.NewRoadBuild()
			q := &roadnet.CommandQueue{}
			point := func(i, j int) r3.Vector {
				return r3.Vector{X: float64(i) * spacing, Y: float64(j) * spacing, Z: cfg.World.Z}
			}
			built, rejected := 0, 0
			draw := func(a, b r3.Vector) {
				rb.Reset()
				for _, pos := range []r3.Vector{a, b} {
					rb.Update(m, roadnet.TOOL_ROADBUILD, roadnet.Input{Cursor: &pos, CameraHeight: 100, Select: true}, q)
				}
				for _, res := range q.Apply(m) {
					if res.Err != nil {
						rejected++
						logger.Warn("grid road rejected", "error", res.Err.Error())
						continue
					}
					built++
				}
			}
			st := time.Now()
			for i := 0; i < cols; i++ {
				for j := 0; j < rows; j++ {
					if i+1 < cols {
						draw(point(i, j), point(i+1, j))
					}
					if j+1 < rows {
						draw(point(i, j), point(i, j+1))
					}
				}
			}
			if verbose {
				fmt.Printf("Grid built in %v: roads %d, rejected %d\n", time.Since(st), built, rejected)
				fmt.Println(m)
			}
			return export(m, out, geojsonOut)
		},
	}
	cmd.Flags().IntVar(&rows, "rows", 4, "Number of intersection rows")
	cmd.Flags().IntVar(&cols, "cols", 4, "Number of intersection columns")
	cmd.Flags().Float64Var(&spacing, "spacing", 100, "Distance between neighbouring intersections")
	cmd.Flags().StringVar(&out, "out", "grid.csv", "Prefix of CSV files")
	cmd.Flags().StringVar(&geojsonOut, "geojson", "", "Optional GeoJSON output file")
	return cmd
}
