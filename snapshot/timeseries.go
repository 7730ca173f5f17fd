package snapshot

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/factiva-io/factiva-analytics-go/auth"
	"github.com/factiva-io/factiva-analytics-go/internal/logger"
	"github.com/factiva-io/factiva-analytics-go/internal/request"
)

// TimeSeries runs the analytics endpoint: document volumes matching a query,
// bucketed over time.
type TimeSeries struct {
	UserKey *auth.UserKey
	Query   TimeSeriesQuery
	Job     Job

	// Rows is filled once the job reaches JOB_STATE_DONE. Each row carries
	// the bucket key (named after the query's date field) and a count,
	// plus a source code when grouping was requested.
	Rows []map[string]any

	PollInterval time.Duration

	client  *request.Client
	baseURL string
	logger  zerolog.Logger
}

// NewTimeSeries builds a TimeSeries for the given query. A nil key is
// resolved from the environment.
func NewTimeSeries(key *auth.UserKey, query TimeSeriesQuery) (*TimeSeries, error) {
	key, err := resolveKey(key)
	if err != nil {
		return nil, err
	}
	log := logger.New()
	return &TimeSeries{
		UserKey:      key,
		Query:        query,
		PollInterval: DefaultPollInterval,
		client:       request.New(log),
		baseURL:      request.APIHost,
		logger:       log,
	}, nil
}

// ResumeTimeSeries attaches to an existing analytics job by its UUID-shaped
// id and refreshes its state.
func ResumeTimeSeries(ctx context.Context, key *auth.UserKey, jobID string) (*TimeSeries, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, fmt.Errorf("invalid analytics job id %q: %w", jobID, err)
	}
	ts, err := NewTimeSeries(key, TimeSeriesQuery{})
	if err != nil {
		return nil, err
	}
	ts.Job.ID = jobID
	if err := ts.Update(ctx); err != nil {
		return nil, err
	}
	return ts, nil
}

// Submit starts the analytics job and records its id and initial state.
func (t *TimeSeries) Submit(ctx context.Context) error {
	payload, err := t.Query.payload()
	if err != nil {
		return err
	}

	t.logger.Debug().Msg("submitting analytics job")
	endpoint := t.baseURL + request.SnapshotsBasePath + request.AnalyticsSuffix
	resp, err := t.client.Post(ctx, endpoint, request.UserKeyHeaders(t.UserKey.Key()), payload)
	if err != nil {
		return err
	}

	switch resp.StatusCode {
	case http.StatusCreated:
	case http.StatusBadRequest:
		return fmt.Errorf("invalid query: %s", resp.ErrorDetail())
	default:
		return fmt.Errorf("unexpected analytics submission response HTTP %d: %s", resp.StatusCode, resp.ErrorDetail())
	}

	var envelope jobEnvelope
	if err := resp.Decode(&envelope); err != nil {
		return err
	}
	t.Job = Job{
		ID:    envelope.Data.ID,
		Link:  envelope.Links.Self,
		State: envelope.Data.Attributes.CurrentState,
	}
	t.logger.Info().Str("job_id", t.Job.ID).Str("state", t.Job.State).Msg("analytics job submitted")
	return nil
}

// Update refreshes the job state, filling Rows once done.
func (t *TimeSeries) Update(ctx context.Context) error {
	if t.Job.ID == "" {
		return fmt.Errorf("analytics job has not been submitted and no job id was set")
	}

	endpoint := fmt.Sprintf("%s%s/%s%s", t.baseURL, request.SnapshotsBasePath, t.Job.ID, request.AnalyticsSuffix)
	resp, err := t.client.Get(ctx, endpoint, request.UserKeyHeaders(t.UserKey.Key()), nil)
	if err != nil {
		return err
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return fmt.Errorf("analytics job %s does not exist", t.Job.ID)
	case http.StatusBadRequest:
		return fmt.Errorf("bad request: %s", resp.ErrorDetail())
	default:
		return fmt.Errorf("unexpected analytics status response HTTP %d: %s", resp.StatusCode, resp.ErrorDetail())
	}

	var envelope jobEnvelope
	if err := resp.Decode(&envelope); err != nil {
		return err
	}
	t.Job.State = envelope.Data.Attributes.CurrentState
	t.Job.Link = envelope.Links.Self
	t.Job.Errors = envelope.Errors
	if t.Job.State == StateDone {
		t.Rows = envelope.Data.Attributes.Results
	}
	return nil
}

// Process submits the job and waits until it reaches a terminal state.
func (t *TimeSeries) Process(ctx context.Context) error {
	if err := t.Submit(ctx); err != nil {
		return err
	}
	if err := t.Update(ctx); err != nil {
		return err
	}
	return waitForCompletion(ctx, t.PollInterval, func() string { return t.Job.State }, t.Update)
}

func (t *TimeSeries) String() string {
	return fmt.Sprintf("TimeSeries(job_id: %s, state: %s, rows: %d)", t.Job.ID, t.Job.State, len(t.Rows))
}
