package cmd

import (
	"fmt"
	"sort"

	"mazerl/grid_world"
	"mazerl/simulation"
	"mazerl/trainer"

	"github.com/spf13/cobra"
)

var (
	trainMaze      mazeSource
	algorithm      string
	trainEpisodes  int
	policyOut      string
	compareAll     bool
	skipSimulation bool
)

func init() {
	trainCmd := &cobra.Command{
		Use:   "train",
		Short: "Train a policy on the training service",
		Long: `Send a maze to the training service, follow the job until it finishes,
then run the learned policy through the maze.

Hyperparameters come from the preset for the algorithm and the maze's tier,
overridden by training.hyperParams in the config.

Examples:
  mazerl train --algorithm sarsa
  mazerl train --load classic --episodes 3000 --policy-out policy.json
  mazerl train --maze maze.json --compare`,
		RunE: runTrain,
	}

	trainCmd.Flags().StringVar(&trainMaze.file, "maze", "", "Exported maze file; the default maze when unset")
	trainCmd.Flags().StringVar(&trainMaze.name, "load", "", "Name of a maze in the configured store")
	trainCmd.Flags().StringVarP(&algorithm, "algorithm", "a", "", "q_learning, sarsa or monte_carlo; the config algorithm when unset")
	trainCmd.Flags().IntVarP(&trainEpisodes, "episodes", "e", 0, "Episodes, overriding the preset")
	trainCmd.Flags().StringVarP(&policyOut, "policy-out", "o", "", "Write the learned policy to this json file")
	trainCmd.Flags().BoolVar(&compareAll, "compare", false, "Start one job per algorithm and print their ids")
	trainCmd.Flags().BoolVar(&skipSimulation, "no-simulate", false, "Do not run the learned policy")

	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if algorithm != "" {
		cfg.Training.Algorithm = algorithm
	}
	rec, err := trainMaze.load(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	hp, err := cfg.Training.Hyperparams(rec.Tier)
	if err != nil {
		return err
	}
	if trainEpisodes > 0 {
		hp.Episodes = trainEpisodes
	}

	ctx := cmd.Context()
	client := trainer.NewClient(cfg.Training.ServiceURL, trainer.WithLogger(newLogger()))
	req := trainer.NewTrainRequest(rec.Grid, hp)

	if compareAll {
		cmp, err := client.Compare(ctx, req)
		if err != nil {
			return err
		}
		fmt.Printf("Comparison %s (%s)\n", cmp.ComparisonID, cmp.Status)
		names := make([]string, 0, len(cmp.JobIDs))
		for name := range cmp.JobIDs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %-12s %s\n", name, cmp.JobIDs[name])
		}
		return nil
	}

	jobID, err := client.Train(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("Training job %s: %s on a %s maze\n", jobID, hp, rec.Tier)

	lastProgress := -1
	status, err := client.Await(ctx, jobID, cfg.Training.PollInterval, func(st *trainer.Status) {
		if st.Progress != lastProgress {
			lastProgress = st.Progress
			fmt.Printf("  episode %d/%d (%d%%)\n", st.Episode, st.Episodes, st.Progress)
		}
	})
	if err != nil {
		return err
	}

	pol, err := status.PolicyGrid(grid_world.Rows, grid_world.Cols)
	if err != nil {
		return err
	}
	if metrics, err := client.Metrics(ctx, jobID); err == nil && metrics.SuccessRate != nil {
		fmt.Printf("Training success rate: %.1f%%\n", *metrics.SuccessRate*100)
	}
	if policyOut != "" {
		if err = writePolicy(policyOut, pol); err != nil {
			return err
		}
		fmt.Printf("Policy written to %s\n", policyOut)
	}
	if skipSimulation {
		return nil
	}

	_, length, _ := grid_world.Measure(rec.Grid)
	res := simulation.Run(rec.Grid, pol, simulation.Context{
		Alpha:      hp.Alpha,
		Gamma:      hp.Gamma,
		Epsilon:    hp.Epsilon,
		Episodes:   hp.Episodes,
		Tier:       rec.Tier,
		PathLength: length,
	})
	fmt.Println()
	report(rec.Grid, pol, res)
	return nil
}
