package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factiva-io/factiva-analytics-go/auth"
	"github.com/factiva-io/factiva-analytics-go/internal/config"
)

const (
	testKey           = "abcd1234abcd1234abcd1234abcd1234"
	testStreamShortID = "km2ttf7e2v"
)

var (
	testStreamID       = streamIDPrefix + testKey + "-" + testStreamShortID
	testSubscriptionID = testStreamID + "-filtered-abc123"
)

func testUserKey(t *testing.T) *auth.UserKey {
	t.Helper()
	key, err := auth.NewUserKey(testKey)
	require.NoError(t, err)
	return key
}

func newTestInstance(t *testing.T, serverURL string) *Instance {
	t.Helper()
	s, err := NewInstance(testUserKey(t), "language_code = 'en'")
	require.NoError(t, err)
	s.baseURL = serverURL
	s.PollInterval = 1
	return s
}

func TestStreamIDLengths(t *testing.T) {
	require.Len(t, testStreamID, fullStreamIDLength)
	require.Len(t, testSubscriptionID, subscriptionIDLength)
}

func TestCreateWaitsUntilRunning(t *testing.T) {
	statuses := []string{"JOB_QUEUED", "JOB_VALIDATING", "JOB_STATE_RUNNING"}
	var polls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			assert.Equal(t, "/alpha/streams", r.URL.Path)
			assert.Equal(t, testKey, r.Header.Get("user-key"))

			var payload map[string]map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "stream", payload["data"]["type"])
			attrs := payload["data"]["attributes"].(map[string]any)
			assert.Equal(t, "language_code = 'en'", attrs["where"])

			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"data":{"id":"` + testStreamID + `","attributes":{"job_status":"JOB_QUEUED"}}}`))
			return
		}

		status := statuses[polls]
		if polls < len(statuses)-1 {
			polls++
		}
		w.Write([]byte(`{"data":{"id":"` + testStreamID + `","attributes":{"job_status":"` + status + `"},
			"relationships":{"subscriptions":{"data":[{"id":"` + testSubscriptionID + `"}]}}}}`))
	}))
	defer server.Close()

	s := newTestInstance(t, server.URL)
	require.NoError(t, s.Create(context.Background()))
	assert.Equal(t, testStreamID, s.ID)
	assert.Equal(t, testStreamShortID, s.ShortID)
	assert.Equal(t, StatusRunning, s.JobStatus)
	require.Len(t, s.Subscriptions, 1)
	assert.Equal(t, testStreamShortID+"-filtered-abc123", s.Subscriptions[0].ShortID)
}

func TestCreateFailedStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"data":{"id":"` + testStreamID + `","attributes":{"job_status":"JOB_QUEUED"}}}`))
			return
		}
		w.Write([]byte(`{"data":{"id":"` + testStreamID + `","attributes":{"job_status":"JOB_STATE_FAILED"}}}`))
	}))
	defer server.Close()

	s := newTestInstance(t, server.URL)
	err := s.Create(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JOB_STATE_FAILED")
}

func TestCreateStreamLimitReached(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"errors":[{"title":"Forbidden","detail":"Too many streams"}]}`))
	}))
	defer server.Close()

	s := newTestInstance(t, server.URL)
	err := s.Create(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stream limit reached")
	assert.Contains(t, err.Error(), "Too many streams")
}

func TestStatusUnknownStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	s := newTestInstance(t, server.URL)
	s.ID = testStreamID
	s.ShortID = testStreamShortID
	err := s.Status(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestDelete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/alpha/streams/"+testStreamID, r.URL.Path)
		w.Write([]byte(`{"data":{"id":"` + testStreamID + `","attributes":{"job_status":"JOB_STATE_CANCELLED"}}}`))
	}))
	defer server.Close()

	s := newTestInstance(t, server.URL)
	s.ID = testStreamID
	s.ShortID = testStreamShortID
	require.NoError(t, s.Delete(context.Background()))
	assert.Equal(t, StatusCancelled, s.JobStatus)
}

func TestAddAndRemoveSubscription(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			assert.Equal(t, "/alpha/streams/"+testStreamID+"/subscriptions", r.URL.Path)
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"data":[{"id":"` + testSubscriptionID + `"}]}`))
		case http.MethodDelete:
			assert.Equal(t, "/alpha/streams/"+testStreamID+"/subscriptions/"+testSubscriptionID, r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer server.Close()

	s := newTestInstance(t, server.URL)
	s.ID = testStreamID
	s.ShortID = testStreamShortID

	sub, err := s.AddSubscription(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testSubscriptionID, sub.ID)
	require.Len(t, s.Subscriptions, 1)

	require.NoError(t, s.RemoveSubscription(context.Background(), sub))
	assert.Empty(t, s.Subscriptions)
}

func TestResumeInstanceRejectsBadID(t *testing.T) {
	_, err := ResumeInstance(context.Background(), testUserKey(t), "bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected stream id")
}

func TestNewInstanceMissingWhere(t *testing.T) {
	t.Setenv(config.EnvWhere, "")
	_, err := NewInstance(testUserKey(t), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.EnvWhere)
}
