// Package stream manages Factiva Analytics streaming instances: long-lived
// server-side queries whose matching articles are delivered to subscription
// queues.
package stream

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/factiva-io/factiva-analytics-go/auth"
	"github.com/factiva-io/factiva-analytics-go/internal/config"
	"github.com/factiva-io/factiva-analytics-go/internal/logger"
	"github.com/factiva-io/factiva-analytics-go/internal/request"
)

// Stream job statuses reported by the service.
const (
	StatusRunning   = "JOB_STATE_RUNNING"
	StatusFailed    = "JOB_STATE_FAILED"
	StatusCancelled = "JOB_STATE_CANCELLED"
)

const (
	streamIDPrefix      = "dj-synhub-stream-"
	fullStreamIDLength  = 60
	shortStreamIDLength = 10
)

// DefaultPollInterval is the spacing between status requests while waiting
// for a newly created stream to start running.
const DefaultPollInterval = 10 * time.Second

// Instance is one streaming instance owned by the account.
type Instance struct {
	UserKey *auth.UserKey

	// Where is the selection criteria the stream was created with. Empty for
	// resumed instances; the service does not report it back.
	Where string

	ID            string
	ShortID       string
	JobStatus     string
	Subscriptions []Subscription

	PollInterval time.Duration

	client  *request.Client
	baseURL string
	logger  zerolog.Logger
}

// NewInstance builds an Instance for the given selection criteria, falling
// back to the FACTIVA_WHERE environment variable when empty. A nil key is
// resolved from the environment.
func NewInstance(key *auth.UserKey, where string) (*Instance, error) {
	key, err := resolveKey(key)
	if err != nil {
		return nil, err
	}
	resolved, err := config.Resolve(where, config.EnvWhere)
	if err != nil {
		return nil, fmt.Errorf("where clause: %w", err)
	}
	log := logger.New()
	return &Instance{
		UserKey:      key,
		Where:        resolved,
		PollInterval: DefaultPollInterval,
		client:       request.New(log),
		baseURL:      request.APIHost,
		logger:       log,
	}, nil
}

// ResumeInstance attaches to an existing stream by its 10-character short id
// or 60-character full id, then refreshes its status.
func ResumeInstance(ctx context.Context, key *auth.UserKey, streamID string) (*Instance, error) {
	key, err := resolveKey(key)
	if err != nil {
		return nil, err
	}
	log := logger.New()
	s := &Instance{
		UserKey:      key,
		PollInterval: DefaultPollInterval,
		client:       request.New(log),
		baseURL:      request.APIHost,
		logger:       log,
	}

	switch len(streamID) {
	case fullStreamIDLength:
		s.ID = streamID
		s.ShortID = streamID[strings.LastIndex(streamID, "-")+1:]
	case shortStreamIDLength:
		s.ID = streamIDPrefix + strings.ToLower(key.Key()) + "-" + streamID
		s.ShortID = streamID
	default:
		return nil, fmt.Errorf("unexpected stream id %q: want a %d-character short id or %d-character full id",
			streamID, shortStreamIDLength, fullStreamIDLength)
	}

	if err := s.Status(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func resolveKey(key *auth.UserKey) (*auth.UserKey, error) {
	if key != nil {
		return key, nil
	}
	return auth.NewUserKey("")
}

type streamEnvelope struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			JobStatus string `json:"job_status"`
		} `json:"attributes"`
		Relationships struct {
			Subscriptions struct {
				Data []struct {
					ID string `json:"id"`
				} `json:"data"`
			} `json:"subscriptions"`
		} `json:"relationships"`
	} `json:"data"`
	Errors []request.APIError `json:"errors"`
}

func (s *Instance) applyEnvelope(envelope streamEnvelope) {
	s.ID = envelope.Data.ID
	s.ShortID = s.ID[strings.LastIndex(s.ID, "-")+1:]
	s.JobStatus = envelope.Data.Attributes.JobStatus

	subs := make([]Subscription, 0, len(envelope.Data.Relationships.Subscriptions.Data))
	for _, sub := range envelope.Data.Relationships.Subscriptions.Data {
		subs = append(subs, Subscription{ID: sub.ID, ShortID: subscriptionShortID(sub.ID)})
	}
	s.Subscriptions = subs
}

// Create submits the stream to the service and waits until it is running.
// A stream that ends up failed or cancelled during the wait is an error.
func (s *Instance) Create(ctx context.Context) error {
	if s.Where == "" {
		return fmt.Errorf("stream has an empty where clause")
	}

	payload := map[string]any{
		"data": map[string]any{
			"attributes": map[string]any{"where": s.Where},
			"type":       "stream",
		},
	}

	s.logger.Debug().Msg("creating stream instance")
	resp, err := s.client.Post(ctx, s.baseURL+request.StreamsBasePath, request.UserKeyHeaders(s.UserKey.Key()), payload)
	if err != nil {
		return err
	}

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusOK:
	case http.StatusBadRequest:
		return fmt.Errorf("invalid query: %s", resp.ErrorDetail())
	case http.StatusForbidden:
		return fmt.Errorf("stream limit reached: %s", resp.ErrorDetail())
	default:
		return fmt.Errorf("unexpected stream creation response HTTP %d: %s", resp.StatusCode, resp.ErrorDetail())
	}

	var envelope streamEnvelope
	if err := resp.Decode(&envelope); err != nil {
		return err
	}
	s.applyEnvelope(envelope)
	s.logger.Info().Str("short_id", s.ShortID).Str("status", s.JobStatus).Msg("stream instance created")

	return s.waitUntilRunning(ctx)
}

func (s *Instance) waitUntilRunning(ctx context.Context) error {
	interval := s.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	for s.JobStatus != StatusRunning {
		if s.JobStatus == StatusFailed || s.JobStatus == StatusCancelled {
			return fmt.Errorf("stream %s entered status %s before running", s.ShortID, s.JobStatus)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
		if err := s.Status(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Status refreshes the stream's job status and subscription list.
func (s *Instance) Status(ctx context.Context) error {
	if s.ID == "" {
		return fmt.Errorf("stream has not been created and no stream id was set")
	}

	endpoint := fmt.Sprintf("%s%s/%s", s.baseURL, request.StreamsBasePath, s.ID)
	resp, err := s.client.Get(ctx, endpoint, request.UserKeyHeaders(s.UserKey.Key()), nil)
	if err != nil {
		return err
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return fmt.Errorf("stream %s does not exist for the provided user key", s.ShortID)
	default:
		return fmt.Errorf("unexpected stream status response HTTP %d: %s", resp.StatusCode, resp.ErrorDetail())
	}

	var envelope streamEnvelope
	if err := resp.Decode(&envelope); err != nil {
		return err
	}
	s.applyEnvelope(envelope)
	return nil
}

// Delete cancels the stream on the service side.
func (s *Instance) Delete(ctx context.Context) error {
	if s.ID == "" {
		return fmt.Errorf("stream has not been created and no stream id was set")
	}

	endpoint := fmt.Sprintf("%s%s/%s", s.baseURL, request.StreamsBasePath, s.ID)
	resp, err := s.client.Delete(ctx, endpoint, request.UserKeyHeaders(s.UserKey.Key()))
	if err != nil {
		return err
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
	case http.StatusNotFound:
		return fmt.Errorf("stream %s does not exist for the provided user key", s.ShortID)
	default:
		return fmt.Errorf("unexpected stream deletion response HTTP %d: %s", resp.StatusCode, resp.ErrorDetail())
	}

	s.JobStatus = StatusCancelled
	s.logger.Info().Str("short_id", s.ShortID).Msg("stream instance deleted")
	return nil
}

// AddSubscription attaches a new delivery queue to the stream and returns it.
func (s *Instance) AddSubscription(ctx context.Context) (Subscription, error) {
	if s.ID == "" {
		return Subscription{}, fmt.Errorf("stream has not been created and no stream id was set")
	}

	payload := map[string]any{
		"data": map[string]any{"type": "subscription"},
	}
	endpoint := fmt.Sprintf("%s%s/%s/subscriptions", s.baseURL, request.StreamsBasePath, s.ID)
	resp, err := s.client.Post(ctx, endpoint, request.UserKeyHeaders(s.UserKey.Key()), payload)
	if err != nil {
		return Subscription{}, err
	}

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusOK:
	case http.StatusForbidden:
		return Subscription{}, fmt.Errorf("subscription limit reached: %s", resp.ErrorDetail())
	default:
		return Subscription{}, fmt.Errorf("unexpected subscription creation response HTTP %d: %s", resp.StatusCode, resp.ErrorDetail())
	}

	var envelope struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := resp.Decode(&envelope); err != nil {
		return Subscription{}, err
	}
	if len(envelope.Data) == 0 {
		return Subscription{}, fmt.Errorf("subscription creation response carried no subscription id")
	}

	sub := Subscription{ID: envelope.Data[0].ID, ShortID: subscriptionShortID(envelope.Data[0].ID)}
	s.Subscriptions = append(s.Subscriptions, sub)
	s.logger.Info().Str("subscription", sub.ShortID).Msg("stream subscription created")
	return sub, nil
}

// RemoveSubscription detaches a delivery queue from the stream.
func (s *Instance) RemoveSubscription(ctx context.Context, sub Subscription) error {
	if s.ID == "" {
		return fmt.Errorf("stream has not been created and no stream id was set")
	}

	endpoint := fmt.Sprintf("%s%s/%s/subscriptions/%s", s.baseURL, request.StreamsBasePath, s.ID, sub.ID)
	resp, err := s.client.Delete(ctx, endpoint, request.UserKeyHeaders(s.UserKey.Key()))
	if err != nil {
		return err
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
	case http.StatusNotFound:
		return fmt.Errorf("subscription %s does not exist on stream %s", sub.ShortID, s.ShortID)
	default:
		return fmt.Errorf("unexpected subscription deletion response HTTP %d: %s", resp.StatusCode, resp.ErrorDetail())
	}

	kept := s.Subscriptions[:0]
	for _, existing := range s.Subscriptions {
		if existing.ID != sub.ID {
			kept = append(kept, existing)
		}
	}
	s.Subscriptions = kept
	return nil
}

func (s *Instance) String() string {
	return fmt.Sprintf("Instance(short_id: %s, status: %s, subscriptions: %d)", s.ShortID, s.JobStatus, len(s.Subscriptions))
}
