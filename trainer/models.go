package trainer

import (
	"errors"

	"mazerl/config"
	"mazerl/grid_world"
)

var (
	// ErrJobNotFound is returned when the service does not know the job id,
	// for example after a reset.
	ErrJobNotFound = errors.New("trainer: job not found")
	// ErrJobFailed is returned when the service reports the job errored.
	ErrJobFailed = errors.New("trainer: training job failed")
	// ErrPolicyUnavailable is returned when a status carries no policy yet.
	ErrPolicyUnavailable = errors.New("trainer: policy unavailable")
)

// TrainRequest is the body of POST /train.
type TrainRequest struct {
	Algorithm    string  `json:"algorithm"`
	Episodes     int     `json:"episodes"`
	Alpha        float64 `json:"alpha"`
	Gamma        float64 `json:"gamma"`
	Epsilon      float64 `json:"epsilon"`
	MaxSteps     int     `json:"max_steps"`
	MCMethod     string  `json:"mc_method"`
	EpsilonDecay float64 `json:"epsilon_decay"`
	MinEpsilon   float64 `json:"min_epsilon"`
	// Maze is the grid flattened row-major, Rows x Cols cell codes.
	Maze []int `json:"maze"`
	Rows int   `json:"rows"`
	Cols int   `json:"cols"`
}

// NewTrainRequest builds the request for training on g with hp.
func NewTrainRequest(g grid_world.Grid, hp config.Hyperparams) TrainRequest {
	return TrainRequest{
		Algorithm:    hp.Algorithm,
		Episodes:     hp.Episodes,
		Alpha:        hp.Alpha,
		Gamma:        hp.Gamma,
		Epsilon:      hp.Epsilon,
		MaxSteps:     hp.MaxSteps,
		MCMethod:     hp.MCMethod,
		EpsilonDecay: hp.EpsilonDecay,
		MinEpsilon:   hp.MinEpsilon,
		Maze:         g.Flatten(),
		Rows:         grid_world.Rows,
		Cols:         grid_world.Cols,
	}
}

// JobState is the lifecycle of a training job on the service.
type JobState string

const (
	Queued   JobState = "queued"
	Running  JobState = "running"
	Finished JobState = "finished"
	Failed   JobState = "error"
)

// Status is the body of GET /status/{id}. Optional fields are nil until the
// service has produced them.
type Status struct {
	Status      JobState    `json:"status"`
	Progress    int         `json:"progress"`
	Episode     int         `json:"episode"`
	Episodes    int         `json:"episodes"`
	AvgReward   *float64    `json:"avg_reward"`
	SuccessRate *float64    `json:"success_rate"`
	Policy      []*int      `json:"policy"`
	QTable      [][]float64 `json:"q_table"`
	// Logs holds the most recent episode rewards.
	Logs []float64 `json:"logs"`
	// Error is set instead of everything else when the job is unknown.
	Error string `json:"error,omitempty"`
}

// Done reports whether the job has stopped, successfully or not.
func (st *Status) Done() bool {
	return st.Status == Finished || st.Status == Failed
}

// PolicyGrid reshapes the flat policy into a grid_world.Policy.
func (st *Status) PolicyGrid(rows, cols int) (grid_world.Policy, error) {
	if st.Policy == nil {
		return grid_world.NewPolicy(), ErrPolicyUnavailable
	}
	return grid_world.PolicyFromFlat(st.Policy, rows, cols)
}

// PolicyResponse is the body of GET /policy/{id}.
type PolicyResponse struct {
	Status JobState    `json:"status"`
	Policy []*int      `json:"policy"`
	QTable [][]float64 `json:"q_table"`
	Error  string      `json:"error,omitempty"`
}

// Metrics is the body of GET /metrics/{id}: training curves and summary
// statistics for a finished job.
type Metrics struct {
	Status                JobState             `json:"status"`
	DetailedMetrics       map[string]float64   `json:"detailed_metrics"`
	QValueHistory         map[string][]float64 `json:"q_value_history"`
	EpisodeReturnsHistory []float64            `json:"episode_returns_history"`
	EpisodeLengthsHistory []float64            `json:"episode_lengths_history"`
	LossHistory           []float64            `json:"loss_history"`
	SuccessRate           *float64             `json:"success_rate"`
	AvgReward             *float64             `json:"avg_reward"`
	Error                 string               `json:"error,omitempty"`
}

// Comparison is the body of POST /compare: one job per algorithm, all on
// the same maze and parameters.
type Comparison struct {
	ComparisonID string            `json:"comparison_id"`
	Algorithms   []string          `json:"algorithms"`
	JobIDs       map[string]string `json:"job_ids"`
	Status       string            `json:"status"`
}

type trainResponse struct {
	JobID string `json:"job_id"`
}
