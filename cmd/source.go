package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"mazerl/config"
	"mazerl/grid_world"
	"mazerl/mazes"
)

// mazeSource picks the maze a command works on: an exported file, a maze
// saved in the configured store, or the built-in default.
type mazeSource struct {
	file string
	name string
}

func (src mazeSource) load(ctx context.Context, cfg *config.AppConfig) (mazes.Record, error) {
	switch {
	case src.file != "" && src.name != "":
		return mazes.Record{}, errors.New("use either --maze or --load, not both")
	case src.file != "":
		data, err := os.ReadFile(src.file)
		if err != nil {
			return mazes.Record{}, err
		}
		return mazes.Import(src.file, data)
	case src.name != "":
		store, err := mazes.Open(ctx, cfg.Store)
		if err != nil {
			return mazes.Record{}, fmt.Errorf("open %s store: %w", cfg.Store.Kind, err)
		}
		defer store.Close()
		return store.Load(ctx, src.name)
	}
	return mazes.NewRecord("default", grid_world.Default()), nil
}

// policyFile is how policies are written to disk: the flat row-major action
// list the training service returns, null for cells without an action.
type policyFile struct {
	Policy []*int `json:"policy"`
}

func readPolicy(filename string) (grid_world.Policy, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return grid_world.NewPolicy(), err
	}
	var pf policyFile
	if err = json.Unmarshal(data, &pf); err != nil {
		return grid_world.NewPolicy(), fmt.Errorf("read policy %s: %w", filename, err)
	}
	return grid_world.PolicyFromFlat(pf.Policy, grid_world.Rows, grid_world.Cols)
}

func writePolicy(filename string, pol grid_world.Policy) error {
	data, err := json.MarshalIndent(policyFile{Policy: pol.Flat()}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0o644)
}
