package snapshot

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/factiva-io/factiva-analytics-go/auth"
	"github.com/factiva-io/factiva-analytics-go/internal/logger"
	"github.com/factiva-io/factiva-analytics-go/internal/request"
)

// MaxSamples is the service cap on returned sample articles per request.
const MaxSamples = 100

// Explain estimates the document volume matching a query before committing
// to a full extraction.
type Explain struct {
	UserKey *auth.UserKey
	Query   Query
	Job     Job

	// VolumeEstimate is filled once the job reaches JOB_STATE_DONE.
	VolumeEstimate int64

	PollInterval time.Duration

	client  *request.Client
	baseURL string
	logger  zerolog.Logger
}

// SampleArticle is the metadata of one randomly selected matching article.
type SampleArticle struct {
	AN                   string `json:"an"`
	CompanyCodes         string `json:"company_codes"`
	CompanyCodesAbout    string `json:"company_codes_about"`
	CompanyCodesOccur    string `json:"company_codes_occur"`
	IndustryCodes        string `json:"industry_codes"`
	IngestionDatetime    string `json:"ingestion_datetime"`
	ModificationDatetime string `json:"modification_datetime"`
	PublicationDatetime  string `json:"publication_datetime"`
	PublisherName        string `json:"publisher_name"`
	RegionCodes          string `json:"region_codes"`
	RegionOfOrigin       string `json:"region_of_origin"`
	SourceCode           string `json:"source_code"`
	SourceName           string `json:"source_name"`
	SubjectCodes         string `json:"subject_codes"`
	Title                string `json:"title"`
	WordCount            int    `json:"word_count"`
}

// NewExplain builds an Explain for the given query. A nil key is resolved
// from the environment.
func NewExplain(key *auth.UserKey, query Query) (*Explain, error) {
	key, err := resolveKey(key)
	if err != nil {
		return nil, err
	}
	log := logger.New()
	return &Explain{
		UserKey:      key,
		Query:        query,
		PollInterval: DefaultPollInterval,
		client:       request.New(log),
		baseURL:      request.APIHost,
		logger:       log,
	}, nil
}

// ResumeExplain attaches to an existing explain job by its UUID-shaped id and
// refreshes its state.
func ResumeExplain(ctx context.Context, key *auth.UserKey, jobID string) (*Explain, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, fmt.Errorf("invalid explain job id %q: %w", jobID, err)
	}
	e, err := NewExplain(key, Query{})
	if err != nil {
		return nil, err
	}
	e.Job.ID = jobID
	if err := e.Update(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

func resolveKey(key *auth.UserKey) (*auth.UserKey, error) {
	if key != nil {
		return key, nil
	}
	return auth.NewUserKey("")
}

// Submit starts the explain job and records its id and initial state.
func (e *Explain) Submit(ctx context.Context) error {
	payload, err := e.Query.payload()
	if err != nil {
		return err
	}

	e.logger.Debug().Msg("submitting explain job")
	endpoint := e.baseURL + request.SnapshotsBasePath + request.ExplainSuffix
	resp, err := e.client.Post(ctx, endpoint, request.UserKeyHeaders(e.UserKey.Key()), payload)
	if err != nil {
		return err
	}

	switch resp.StatusCode {
	case http.StatusCreated:
	case http.StatusBadRequest:
		return fmt.Errorf("invalid query: %s", resp.ErrorDetail())
	default:
		return fmt.Errorf("unexpected explain submission response HTTP %d: %s", resp.StatusCode, resp.ErrorDetail())
	}

	var envelope jobEnvelope
	if err := resp.Decode(&envelope); err != nil {
		return err
	}
	e.Job = Job{
		ID:    envelope.Data.ID,
		Link:  envelope.Links.Self,
		State: envelope.Data.Attributes.CurrentState,
	}
	e.logger.Info().Str("job_id", e.Job.ID).Str("state", e.Job.State).Msg("explain job submitted")
	return nil
}

// Update refreshes the job state, filling VolumeEstimate once done.
func (e *Explain) Update(ctx context.Context) error {
	if e.Job.ID == "" {
		return fmt.Errorf("explain job has not been submitted and no job id was set")
	}

	endpoint := fmt.Sprintf("%s%s/%s%s", e.baseURL, request.SnapshotsBasePath, e.Job.ID, request.ExplainSuffix)
	resp, err := e.client.Get(ctx, endpoint, request.UserKeyHeaders(e.UserKey.Key()), nil)
	if err != nil {
		return err
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return fmt.Errorf("explain job %s does not exist", e.Job.ID)
	case http.StatusBadRequest:
		return fmt.Errorf("bad request: %s", resp.ErrorDetail())
	default:
		return fmt.Errorf("unexpected explain status response HTTP %d: %s", resp.StatusCode, resp.ErrorDetail())
	}

	var envelope jobEnvelope
	if err := resp.Decode(&envelope); err != nil {
		return err
	}
	e.Job.State = envelope.Data.Attributes.CurrentState
	e.Job.Link = envelope.Links.Self
	e.Job.Errors = envelope.Errors
	if e.Job.State == StateDone {
		e.VolumeEstimate = envelope.Data.Attributes.Counts
	}
	return nil
}

// Samples fetches up to n sample article metadata rows for a completed job.
func (e *Explain) Samples(ctx context.Context, n int) ([]SampleArticle, error) {
	if e.Job.ID == "" {
		return nil, fmt.Errorf("explain job has not been submitted and no job id was set")
	}
	if n < 1 || n > MaxSamples {
		return nil, fmt.Errorf("num_samples must be between 1 and %d, got %d", MaxSamples, n)
	}

	params := url.Values{}
	params.Set("num_samples", strconv.Itoa(n))
	endpoint := fmt.Sprintf("%s%s%s/%s", e.baseURL, request.ExtractionsBasePath, request.ExtractionsSamplesSuffix, e.Job.ID)
	resp, err := e.client.Get(ctx, endpoint, request.UserKeyHeaders(e.UserKey.Key()), params)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("explain job %s does not exist", e.Job.ID)
	case http.StatusBadRequest:
		return nil, fmt.Errorf("bad request: %s", resp.ErrorDetail())
	default:
		return nil, fmt.Errorf("unexpected samples response HTTP %d: %s", resp.StatusCode, resp.ErrorDetail())
	}

	var envelope struct {
		Data struct {
			Attributes struct {
				Sample []SampleArticle `json:"sample"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := resp.Decode(&envelope); err != nil {
		return nil, err
	}
	return envelope.Data.Attributes.Sample, nil
}

// Process submits the job and waits until it reaches a terminal state. The
// caller inspects Job.State and Job.Errors to distinguish done from failed.
func (e *Explain) Process(ctx context.Context) error {
	if err := e.Submit(ctx); err != nil {
		return err
	}
	if err := e.Update(ctx); err != nil {
		return err
	}
	return waitForCompletion(ctx, e.PollInterval, func() string { return e.Job.State }, e.Update)
}

func (e *Explain) String() string {
	estimate := "<NotCalculated>"
	if e.Job.State == StateDone {
		estimate = strconv.FormatInt(e.VolumeEstimate, 10)
	}
	return fmt.Sprintf("Explain(job_id: %s, state: %s, volume_estimate: %s)", e.Job.ID, e.Job.State, estimate)
}
