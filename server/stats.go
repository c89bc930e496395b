package server

import (
	"mazerl/atomic_float"
	"mazerl/simulation"
)

// runStats totals simulation outcomes since the server started.
type runStats struct {
	runs  atomic_float.AtomicFloat64
	goals atomic_float.AtomicFloat64
	// goalSteps sums the moves of successful runs only.
	goalSteps atomic_float.AtomicFloat64
}

type statsResponse struct {
	Runs        int     `json:"runs"`
	Goals       int     `json:"goals"`
	SuccessRate float64 `json:"success_rate"`
	AvgSteps    float64 `json:"avg_steps"`
}

func (rs *runStats) record(res simulation.Result) {
	rs.runs.AtomicAdd(1)
	if res.Outcome == simulation.GoalReached {
		rs.goals.AtomicAdd(1)
		rs.goalSteps.AtomicAdd(float64(res.Trace.Moves()))
	}
}

// snapshot reads each total separately, so a run recorded concurrently may
// be counted in one total and not yet in another.
func (rs *runStats) snapshot() statsResponse {
	runs := rs.runs.AtomicRead()
	goals := rs.goals.AtomicRead()
	resp := statsResponse{Runs: int(runs), Goals: int(goals)}
	if runs > 0 {
		resp.SuccessRate = goals / runs
	}
	if goals > 0 {
		resp.AvgSteps = rs.goalSteps.AtomicRead() / goals
	}
	return resp
}
