package cmd

import (
	"errors"
	"fmt"
	"os"

	"mazerl/grid_world"
	"mazerl/simulation"
	"mazerl/trainer"

	"github.com/spf13/cobra"
)

var (
	simMaze     mazeSource
	policyPath  string
	policyJob   string
	simEpisodes int
	simGamma    float64
	showArrows  bool
)

func init() {
	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a policy through a maze and explain the outcome",
		Long: `Run a trained policy from the start cell until it reaches the goal or
fails, then print the route taken and, for a failure, the likely cause.

The policy comes from a json file written by "mazerl train --policy-out" or
from a finished job on the training service.

Examples:
  mazerl simulate --policy policy.json
  mazerl simulate --maze maze.json --job 3f2a --arrows
  mazerl simulate --load classic --policy policy.json --episodes 200`,
		RunE: runSimulate,
	}

	simulateCmd.Flags().StringVar(&simMaze.file, "maze", "", "Exported maze file; the default maze when unset")
	simulateCmd.Flags().StringVar(&simMaze.name, "load", "", "Name of a maze in the configured store")
	simulateCmd.Flags().StringVar(&policyPath, "policy", "", "Policy json file")
	simulateCmd.Flags().StringVar(&policyJob, "job", "", "Training job id to fetch the policy from")
	simulateCmd.Flags().IntVar(&simEpisodes, "episodes", 0, "Episodes the policy was trained for, for diagnostics")
	simulateCmd.Flags().Float64Var(&simGamma, "gamma", 0, "Discount the policy was trained with, for diagnostics")
	simulateCmd.Flags().BoolVar(&showArrows, "arrows", false, "Also print the policy as arrows")

	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if (policyPath == "") == (policyJob == "") {
		return errors.New("give exactly one of --policy or --job")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rec, err := simMaze.load(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	var pol grid_world.Policy
	if policyPath != "" {
		pol, err = readPolicy(policyPath)
	} else {
		client := trainer.NewClient(cfg.Training.ServiceURL, trainer.WithLogger(newLogger()))
		var resp *trainer.PolicyResponse
		if resp, err = client.Policy(cmd.Context(), policyJob); err == nil {
			pol, err = grid_world.PolicyFromFlat(resp.Policy, grid_world.Rows, grid_world.Cols)
		}
	}
	if err != nil {
		return err
	}

	_, length, _ := grid_world.Measure(rec.Grid)
	dctx := simulation.Context{Tier: rec.Tier, PathLength: length}
	if hp, err := cfg.Training.Hyperparams(rec.Tier); err == nil {
		dctx.Alpha, dctx.Gamma, dctx.Epsilon, dctx.Episodes = hp.Alpha, hp.Gamma, hp.Epsilon, hp.Episodes
	}
	if simEpisodes > 0 {
		dctx.Episodes = simEpisodes
	}
	if simGamma > 0 {
		dctx.Gamma = simGamma
	}

	res := simulation.Run(rec.Grid, pol, dctx)
	report(rec.Grid, pol, res)
	return nil
}

// report prints a finished run: the maze with the route taken, the outcome,
// and the diagnostic for a failure.
func report(g grid_world.Grid, pol grid_world.Policy, res simulation.Result) {
	if showArrows {
		grid_world.ShowPolicy(os.Stdout, g, pol)
		fmt.Println()
	}
	grid_world.ShowGrid(os.Stdout, g, res.Trace)
	fmt.Println()
	fmt.Printf("Policy covers %.0f%% of open cells\n", pol.Coverage(&g)*100)
	fmt.Println(simulation.Summary(res))
	if res.Diagnostic != "" {
		fmt.Println(res.Diagnostic)
	}
}
