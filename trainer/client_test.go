package trainer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"mazerl/config"
	"mazerl/grid_world"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeService mimics the training service: a job advances one stage per
// status poll and finishes with a policy holding one action at the start.
type fakeService struct {
	mu       sync.Mutex
	polls    int
	finalize JobState
	last     TrainRequest
	resets   int
}

func (fs *fakeService) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/train", func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		defer fs.mu.Unlock()
		if err := json.NewDecoder(r.Body).Decode(&fs.last); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"job_id": "job-1"})
	})
	mux.HandleFunc("/status/", func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		defer fs.mu.Unlock()
		if strings.TrimPrefix(r.URL.Path, "/status/") != "job-1" {
			json.NewEncoder(w).Encode(map[string]string{"error": "job not found"})
			return
		}
		fs.polls++
		st := map[string]interface{}{
			"status":   "running",
			"progress": fs.polls * 30,
			"episode":  fs.polls * 30,
			"episodes": 100,
			"policy":   nil,
		}
		if fs.polls == 1 {
			st["status"] = "queued"
		}
		if fs.polls >= 3 {
			st["status"] = string(fs.finalize)
			st["progress"] = 100
			st["episode"] = 100
			st["avg_reward"] = 12.5
			policy := make([]interface{}, grid_world.Rows*grid_world.Cols)
			policy[1] = int(grid_world.Down)
			st["policy"] = policy
		}
		json.NewEncoder(w).Encode(st)
	})
	mux.HandleFunc("/reset", func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		defer fs.mu.Unlock()
		fs.resets++
		json.NewEncoder(w).Encode(map[string]string{"status": "reset"})
	})
	return mux
}

func TestTrainAndAwait(t *testing.T) {
	fs := &fakeService{finalize: Finished}
	srv := httptest.NewServer(fs.handler())
	defer srv.Close()

	client := NewClient(srv.URL + "/")
	hp, err := config.OptimalHyperparams(config.QLearning, grid_world.Medium)
	require.NoError(t, err)

	id, err := client.Train(context.Background(), NewTrainRequest(grid_world.Default(), hp))
	require.NoError(t, err)
	assert.Equal(t, "job-1", id)

	fs.mu.Lock()
	assert.Equal(t, "q_learning", fs.last.Algorithm)
	assert.Equal(t, 1000, fs.last.Episodes)
	assert.Equal(t, grid_world.MaxSteps, fs.last.MaxSteps)
	assert.Len(t, fs.last.Maze, grid_world.Rows*grid_world.Cols)
	assert.Equal(t, grid_world.Rows, fs.last.Rows)
	assert.Equal(t, grid_world.Cols, fs.last.Cols)
	fs.mu.Unlock()

	var seen []JobState
	st, err := client.Await(context.Background(), id, time.Millisecond, func(s *Status) {
		seen = append(seen, s.Status)
	})
	require.NoError(t, err)
	assert.Equal(t, []JobState{Queued, Running, Finished}, seen)
	assert.True(t, st.Done())
	require.NotNil(t, st.AvgReward)
	assert.Equal(t, 12.5, *st.AvgReward)
	assert.Nil(t, st.SuccessRate)

	pol, err := st.PolicyGrid(grid_world.Rows, grid_world.Cols)
	require.NoError(t, err)
	assert.Equal(t, 1, pol.Len())
	a, ok := pol.Lookup(grid_world.StartCorner)
	assert.True(t, ok)
	assert.Equal(t, grid_world.Down, a)
}

func TestAwaitFailedJob(t *testing.T) {
	fs := &fakeService{finalize: Failed}
	srv := httptest.NewServer(fs.handler())
	defer srv.Close()

	client := NewClient(srv.URL)
	st, err := client.Await(context.Background(), "job-1", time.Millisecond, nil)
	assert.True(t, errors.Is(err, ErrJobFailed))
	require.NotNil(t, st)
	assert.Equal(t, Failed, st.Status)
}

func TestAwaitCancelled(t *testing.T) {
	fs := &fakeService{finalize: Finished}
	srv := httptest.NewServer(fs.handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	client := NewClient(srv.URL)
	_, err := client.Await(ctx, "job-1", time.Hour, func(*Status) { cancel() })
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestUnknownJob(t *testing.T) {
	srv := httptest.NewServer((&fakeService{}).handler())
	defer srv.Close()

	_, err := NewClient(srv.URL).Status(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrJobNotFound))
}

func TestReset(t *testing.T) {
	fs := &fakeService{}
	srv := httptest.NewServer(fs.handler())
	defer srv.Close()

	require.NoError(t, NewClient(srv.URL).Reset(context.Background()))
	fs.mu.Lock()
	defer fs.mu.Unlock()
	assert.Equal(t, 1, fs.resets)
}

func TestServiceErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Train(context.Background(), TrainRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "boom")
}

func TestPolicyUnavailable(t *testing.T) {
	st := &Status{Status: Running}
	_, err := st.PolicyGrid(grid_world.Rows, grid_world.Cols)
	assert.True(t, errors.Is(err, ErrPolicyUnavailable))
	assert.False(t, st.Done())
}
