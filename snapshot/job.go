package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/factiva-io/factiva-analytics-go/internal/request"
)

// Job states reported by the snapshot and stream services.
const (
	StateCreated    = "JOB_CREATED"
	StateQueued     = "JOB_QUEUED"
	StateValidating = "JOB_VALIDATING"
	StateRunning    = "JOB_STATE_RUNNING"
	StateDone       = "JOB_STATE_DONE"
	StateFailed     = "JOB_STATE_FAILED"
	StateCancelled  = "JOB_STATE_CANCELLED"
)

// DefaultPollInterval is the spacing between job status requests while
// waiting for a terminal state.
const DefaultPollInterval = 10 * time.Second

// Job carries the identity and last known state of a submitted snapshot job.
type Job struct {
	ID     string
	Link   string
	State  string
	Errors []request.APIError
}

// ExpectedState reports whether the service returned a state this client
// knows how to handle.
func ExpectedState(state string) bool {
	switch state {
	case StateCreated, StateQueued, StateValidating, StateRunning, StateDone, StateFailed, StateCancelled:
		return true
	}
	return false
}

func terminalState(state string) bool {
	return state == StateDone || state == StateFailed
}

// waitForCompletion re-runs update with the given spacing until the observed
// state is terminal. An unexpected state aborts the wait.
func waitForCompletion(ctx context.Context, interval time.Duration, state func() string, update func(context.Context) error) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	for !terminalState(state()) {
		if !ExpectedState(state()) {
			return fmt.Errorf("unexpected job state %q", state())
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
		if err := update(ctx); err != nil {
			return err
		}
	}
	return nil
}

// jobEnvelope is the response shape shared by the snapshot submit and status
// endpoints.
type jobEnvelope struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			CurrentState string `json:"current_state"`
			Counts       int64  `json:"counts"`
			Files        []struct {
				URI string `json:"uri"`
			} `json:"files"`
			Results []map[string]any `json:"results"`
		} `json:"attributes"`
	} `json:"data"`
	Links struct {
		Self string `json:"self"`
	} `json:"links"`
	Errors []request.APIError `json:"errors"`
}
