package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mazerl/grid_world"
	"mazerl/maze_gen"
	"mazerl/mazes"

	"github.com/spf13/cobra"
)

var (
	genTier     string
	numMazes    int
	genSeed     int64
	genStrategy string
	saveAs      string
	exportFile  string
	showPath    bool
)

func init() {
	genCmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate mazes of a given difficulty",
		Long: `Generate one or more mazes aimed at a difficulty tier and print them.

Examples:
  mazerl gen --tier hard
  mazerl gen -n 3 --tier easy --path
  mazerl gen --strategy kruskal --seed 7 --save kruskal-7
  mazerl gen --tier medium --output maze.json`,
		RunE: runGen,
	}

	genCmd.Flags().StringVarP(&genTier, "tier", "t", "medium", "Difficulty: easy, medium or hard")
	genCmd.Flags().IntVarP(&numMazes, "number", "n", 1, "Number of mazes to generate")
	genCmd.Flags().Int64Var(&genSeed, "seed", 0, "Random seed; zero uses the config seed or the clock")
	genCmd.Flags().StringVar(&genStrategy, "strategy", "", "Only use this construction strategy")
	genCmd.Flags().StringVar(&saveAs, "save", "", "Save to the configured store under this name; numbered when n > 1")
	genCmd.Flags().StringVarP(&exportFile, "output", "o", "", "Export file (e.g., maze.json); numbered when n > 1")
	genCmd.Flags().BoolVar(&showPath, "path", false, "Draw the shortest route")

	rootCmd.AddCommand(genCmd)
}

// numbered appends the 1-based index to name when more than one maze is made.
func numbered(name string, i int) string {
	if numMazes <= 1 {
		return name
	}
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), i+1, ext)
}

func runGen(cmd *cobra.Command, args []string) error {
	target, err := grid_world.ParseTier(genTier)
	if err != nil {
		return err
	}
	if numMazes < 1 {
		return fmt.Errorf("number of mazes must be at least 1, got %d", numMazes)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	opts := []maze_gen.Option{
		maze_gen.WithMaxAttempts(cfg.Generation.MaxAttempts),
		maze_gen.WithCloseMatchAfter(cfg.Generation.CloseMatchAfter),
		maze_gen.WithLogger(logger),
	}
	seed := genSeed
	if seed == 0 {
		seed = cfg.Generation.Seed
	}
	if seed != 0 {
		opts = append(opts, maze_gen.WithSeed(seed))
	}
	if genStrategy != "" {
		strategy, ok := maze_gen.StrategyByName(genStrategy)
		if !ok {
			return fmt.Errorf("unknown strategy %q", genStrategy)
		}
		opts = append(opts, maze_gen.WithStrategies(strategy))
	}
	gen := maze_gen.New(opts...)

	var store mazes.Store
	if saveAs != "" {
		if store, err = mazes.Open(cmd.Context(), cfg.Store); err != nil {
			return fmt.Errorf("open %s store: %w", cfg.Store.Kind, err)
		}
		defer store.Close()
	}

	for i := 0; i < numMazes; i++ {
		res := gen.Generate(target)

		how := res.Strategy
		if res.Fallback {
			how = "fallback " + how
		}
		fmt.Printf("Maze #%d: %s, path length %d (%s, %d attempts)\n",
			i+1, res.Tier, res.PathLength, how, res.Attempts)
		if start, ok := res.Grid.Start(); ok {
			open := res.Grid.Count(grid_world.Path) + 2
			fmt.Printf("%d of %d open cells reachable from the start\n",
				grid_world.Reachable(res.Grid, start).Size(), open)
		}
		var trail []grid_world.Position
		if showPath {
			trail, _ = grid_world.ShortestPath(res.Grid)
		}
		grid_world.ShowGrid(os.Stdout, res.Grid, trail)
		fmt.Println()

		rec := mazes.NewRecord(numbered(saveAs, i), res.Grid)
		if store != nil {
			if rec, err = save(cmd.Context(), store, rec); err != nil {
				return err
			}
			fmt.Printf("Saved as %q\n", rec.Name)
		}
		if exportFile != "" {
			filename, err := writeExport(numbered(exportFile, i), rec)
			if err != nil {
				return err
			}
			fmt.Printf("Exported to %s\n", filename)
		}
	}
	return nil
}

func save(ctx context.Context, store mazes.Store, rec mazes.Record) (mazes.Record, error) {
	saved, err := store.Save(ctx, rec)
	if err != nil {
		return rec, fmt.Errorf("save %q: %w", rec.Name, err)
	}
	return saved, nil
}

// writeExport writes rec as a json document, adding the .json extension when
// missing, and returns the file name used.
func writeExport(filename string, rec mazes.Record) (string, error) {
	if filepath.Ext(filename) != ".json" {
		filename += ".json"
	}
	data, err := mazes.Export(rec)
	if err != nil {
		return "", err
	}
	if err = os.WriteFile(filename, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return filename, nil
}
