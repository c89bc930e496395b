// trainer talks to the external training service: it submits a maze and
// hyperparameters, polls the job, and hands back the learned policy.
package trainer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	channerics "github.com/niceyeti/channerics/channels"
)

const (
	defaultTimeout      = 10 * time.Second
	DefaultPollInterval = time.Second
	// Bodies larger than this are not read; a full q-table is well under it.
	maxResponseBytes = 16 << 20
)

type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithLogger(logger *log.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Train submits a job and returns its id.
func (c *Client) Train(ctx context.Context, req TrainRequest) (string, error) {
	var resp trainResponse
	if err := c.do(ctx, http.MethodPost, "/train", req, &resp); err != nil {
		return "", err
	}
	if resp.JobID == "" {
		return "", fmt.Errorf("trainer: train: empty job id")
	}
	c.logger.Printf("started %s job %s (%d episodes)", req.Algorithm, resp.JobID, req.Episodes)
	return resp.JobID, nil
}

// Compare submits one job per algorithm on the same maze.
func (c *Client) Compare(ctx context.Context, req TrainRequest) (*Comparison, error) {
	cmp := &Comparison{}
	if err := c.do(ctx, http.MethodPost, "/compare", req, cmp); err != nil {
		return nil, err
	}
	return cmp, nil
}

func (c *Client) Status(ctx context.Context, jobID string) (*Status, error) {
	st := &Status{}
	if err := c.do(ctx, http.MethodGet, "/status/"+jobID, nil, st); err != nil {
		return nil, err
	}
	if st.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return st, nil
}

func (c *Client) Policy(ctx context.Context, jobID string) (*PolicyResponse, error) {
	pr := &PolicyResponse{}
	if err := c.do(ctx, http.MethodGet, "/policy/"+jobID, nil, pr); err != nil {
		return nil, err
	}
	if pr.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return pr, nil
}

func (c *Client) Metrics(ctx context.Context, jobID string) (*Metrics, error) {
	m := &Metrics{}
	if err := c.do(ctx, http.MethodGet, "/metrics/"+jobID, nil, m); err != nil {
		return nil, err
	}
	if m.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return m, nil
}

// Reset clears every job on the service.
func (c *Client) Reset(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/reset", nil, nil)
}

// Await polls the job every interval until it finishes, fails, or ctx is
// done. onProgress, if set, sees every status including the last.
func (c *Client) Await(
	ctx context.Context,
	jobID string,
	interval time.Duration,
	onProgress func(*Status),
) (*Status, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	poll := func() (*Status, error) {
		st, err := c.Status(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if onProgress != nil {
			onProgress(st)
		}
		return st, nil
	}

	st, err := poll()
	ticks := channerics.NewTicker(ctx.Done(), interval)
	for err == nil && !st.Done() {
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-ticks:
		}
		st, err = poll()
	}
	if err != nil {
		return nil, err
	}
	if st.Status == Failed {
		return st, fmt.Errorf("%w: %s", ErrJobFailed, jobID)
	}
	c.logger.Printf("job %s finished at episode %d/%d", jobID, st.Episode, st.Episodes)
	return st, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("trainer: %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("trainer: %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("trainer: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("trainer: %s %s: %s: %s", method, path, resp.Status, bytes.TrimSpace(msg))
	}
	if out == nil {
		return nil
	}
	if err = json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("trainer: %s %s: decode: %w", method, path, err)
	}
	return nil
}
