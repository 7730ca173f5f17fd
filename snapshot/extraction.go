package snapshot

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/factiva-io/factiva-analytics-go/auth"
	"github.com/factiva-io/factiva-analytics-go/internal/logger"
	"github.com/factiva-io/factiva-analytics-go/internal/request"
)

const (
	extractionIDPrefix = "dj-synhub-extraction-"
	fullJobIDLength    = 64
	shortJobIDLength   = 10
)

// Extraction runs a snapshot extraction: a bulk export of the documents
// matching a query into downloadable files.
type Extraction struct {
	UserKey *auth.UserKey
	Query   ExtractionQuery
	Job     Job

	// ShortID is the unique trailing portion of the job id.
	ShortID string
	// Files holds the downloadable file URIs once the job is done.
	Files []string

	PollInterval time.Duration

	client  *request.Client
	baseURL string
	logger  zerolog.Logger
}

// NewExtraction builds an Extraction for the given query. A nil key is
// resolved from the environment.
func NewExtraction(key *auth.UserKey, query ExtractionQuery) (*Extraction, error) {
	key, err := resolveKey(key)
	if err != nil {
		return nil, err
	}
	log := logger.New()
	return &Extraction{
		UserKey:      key,
		Query:        query,
		PollInterval: DefaultPollInterval,
		client:       request.New(log),
		baseURL:      request.APIHost,
		logger:       log,
	}, nil
}

// ResumeExtraction attaches to an existing extraction by its 10-character
// short id or 64-character full id, then refreshes its state.
func ResumeExtraction(ctx context.Context, key *auth.UserKey, jobID string) (*Extraction, error) {
	x, err := NewExtraction(key, ExtractionQuery{})
	if err != nil {
		return nil, err
	}

	switch len(jobID) {
	case fullJobIDLength:
		x.Job.ID = jobID
		x.ShortID = jobID[strings.LastIndex(jobID, "-")+1:]
	case shortJobIDLength:
		x.Job.ID = extractionIDPrefix + strings.ToLower(x.UserKey.Key()) + "-" + jobID
		x.ShortID = jobID
	default:
		return nil, fmt.Errorf("unexpected extraction job id %q: want a %d-character short id or %d-character full id",
			jobID, shortJobIDLength, fullJobIDLength)
	}

	if err := x.Update(ctx); err != nil {
		return nil, err
	}
	return x, nil
}

// Submit starts the extraction job and records its id and initial state.
func (x *Extraction) Submit(ctx context.Context) error {
	payload, err := x.Query.payload()
	if err != nil {
		return err
	}

	x.logger.Debug().Msg("submitting extraction job")
	endpoint := x.baseURL + request.SnapshotsBasePath
	resp, err := x.client.Post(ctx, endpoint, request.UserKeyHeaders(x.UserKey.Key()), payload)
	if err != nil {
		return err
	}

	switch resp.StatusCode {
	case http.StatusCreated:
	case http.StatusBadRequest:
		return fmt.Errorf("invalid query: %s", resp.ErrorDetail())
	default:
		return fmt.Errorf("unexpected extraction submission response HTTP %d: %s", resp.StatusCode, resp.ErrorDetail())
	}

	var envelope jobEnvelope
	if err := resp.Decode(&envelope); err != nil {
		return err
	}
	x.Job = Job{
		ID:    envelope.Data.ID,
		Link:  envelope.Links.Self,
		State: envelope.Data.Attributes.CurrentState,
	}
	x.ShortID = x.Job.ID[strings.LastIndex(x.Job.ID, "-")+1:]
	x.logger.Info().Str("short_id", x.ShortID).Str("state", x.Job.State).Msg("extraction job submitted")
	return nil
}

// Update refreshes the job state, filling Files once done.
func (x *Extraction) Update(ctx context.Context) error {
	if x.Job.ID == "" {
		return fmt.Errorf("extraction job has not been submitted and no job id was set")
	}

	endpoint := fmt.Sprintf("%s%s/%s", x.baseURL, request.SnapshotsBasePath, x.Job.ID)
	resp, err := x.client.Get(ctx, endpoint, request.UserKeyHeaders(x.UserKey.Key()), nil)
	if err != nil {
		return err
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return fmt.Errorf("extraction job does not exist for the provided user key")
	case http.StatusBadRequest:
		return fmt.Errorf("bad request: %s", resp.ErrorDetail())
	default:
		return fmt.Errorf("unexpected extraction status response HTTP %d: %s", resp.StatusCode, resp.ErrorDetail())
	}

	var envelope jobEnvelope
	if err := resp.Decode(&envelope); err != nil {
		return err
	}
	x.Job.State = envelope.Data.Attributes.CurrentState
	x.Job.Link = envelope.Links.Self
	x.Job.Errors = envelope.Errors
	if x.Job.State == StateDone {
		files := make([]string, 0, len(envelope.Data.Attributes.Files))
		for _, f := range envelope.Data.Attributes.Files {
			files = append(files, f.URI)
		}
		x.Files = files
	}
	return nil
}

// DownloadFiles fetches every result file into dir. An empty dir defaults to
// a folder named after the job short id under the working directory. Returns
// the local paths written.
func (x *Extraction) DownloadFiles(ctx context.Context, dir string) ([]string, error) {
	if x.Job.ID == "" {
		return nil, fmt.Errorf("extraction job has not been submitted and no job id was set")
	}
	if len(x.Files) == 0 {
		return nil, fmt.Errorf("extraction job %s has no files available for download", x.ShortID)
	}

	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(wd, x.ShortID)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}

	headers := request.UserKeyHeaders(x.UserKey.Key())
	paths := make([]string, 0, len(x.Files))
	for _, fileURI := range x.Files {
		name := fileURI[strings.LastIndex(fileURI, "/")+1:]
		path, err := x.client.Download(ctx, fileURI, headers, filepath.Join(dir, name))
		if err != nil {
			return paths, fmt.Errorf("failed to download %s: %w", name, err)
		}
		x.logger.Info().Str("file", path).Msg("extraction file downloaded")
		paths = append(paths, path)
	}
	return paths, nil
}

// Process submits the job, waits for a terminal state and downloads the
// result files into dir when the job is done.
func (x *Extraction) Process(ctx context.Context, dir string) error {
	if err := x.Submit(ctx); err != nil {
		return err
	}
	if err := x.Update(ctx); err != nil {
		return err
	}
	if err := waitForCompletion(ctx, x.PollInterval, func() string { return x.Job.State }, x.Update); err != nil {
		return err
	}
	if x.Job.State != StateDone {
		return fmt.Errorf("extraction job %s finished in state %s", x.ShortID, x.Job.State)
	}
	_, err := x.DownloadFiles(ctx, dir)
	return err
}

func (x *Extraction) String() string {
	return fmt.Sprintf("Extraction(short_id: %s, state: %s, files: %d)", x.ShortID, x.Job.State, len(x.Files))
}
