/*
mazerl generates grid mazes of a chosen difficulty, hands them to an external
reinforcement learning service for training, and replays the learned policy
one step at a time in the browser or the terminal. When a policy fails to
reach the goal the run is classified (wall, loop, edge, step limit) and
explained in terms of the hyperparameters it was trained with.
*/

package main

import (
	"os"

	"mazerl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
