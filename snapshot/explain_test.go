package snapshot

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
	testKey          = "abcd1234abcd1234abcd1234abcd1234"
	testExplainJobID = "12345678-90ab-cdef-1234-567890abcdef"
)

func testUserKey(t *testing.T) *auth.UserKey {
	t.Helper()
	key, err := auth.NewUserKey(testKey)
	require.NoError(t, err)
	return key
}

func newTestExplain(t *testing.T, serverURL string) *Explain {
	t.Helper()
	e, err := NewExplain(testUserKey(t), Query{Where: "language_code = 'en'"})
	require.NoError(t, err)
	e.baseURL = serverURL
	e.PollInterval = 1 // immediate polling in tests
	return e
}

func TestExplainSubmit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/alpha/extractions/documents/_explain", r.URL.Path)
		assert.Equal(t, testKey, r.Header.Get("user-key"))

		var payload map[string]map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "language_code = 'en'", payload["query"]["where"])

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{
			"data":{"id":"` + testExplainJobID + `","attributes":{"current_state":"JOB_CREATED"}},
			"links":{"self":"https://api.dowjones.com/alpha/extractions/documents/` + testExplainJobID + `/_explain"}
		}`))
	}))
	defer server.Close()

	e := newTestExplain(t, server.URL)
	require.NoError(t, e.Submit(context.Background()))
	assert.Equal(t, testExplainJobID, e.Job.ID)
	assert.Equal(t, StateCreated, e.Job.State)
	assert.NotEmpty(t, e.Job.Link)
}

func TestExplainSubmitInvalidQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errors":[{"title":"Bad Request","detail":"unknown column nope"}]}`))
	}))
	defer server.Close()

	e := newTestExplain(t, server.URL)
	err := e.Submit(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid query")
	assert.Contains(t, err.Error(), "unknown column nope")
}

func TestExplainProcessPollsToDone(t *testing.T) {
	states := []string{"JOB_QUEUED", "JOB_STATE_RUNNING", "JOB_STATE_DONE"}
	var updates int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"data":{"id":"` + testExplainJobID + `","attributes":{"current_state":"JOB_CREATED"}}}`))
			return
		}

		state := states[updates]
		if updates < len(states)-1 {
			updates++
		}
		body := map[string]any{
			"data": map[string]any{
				"id":         testExplainJobID,
				"attributes": map[string]any{"current_state": state, "counts": 113456},
			},
		}
		json.NewEncoder(w).Encode(body)
	}))
	defer server.Close()

	e := newTestExplain(t, server.URL)
	require.NoError(t, e.Process(context.Background()))
	assert.Equal(t, StateDone, e.Job.State)
	assert.Equal(t, int64(113456), e.VolumeEstimate)
}

func TestExplainUpdateUnknownJob(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	e := newTestExplain(t, server.URL)
	e.Job.ID = testExplainJobID
	err := e.Update(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestExplainUpdateWithoutJobID(t *testing.T) {
	e := newTestExplain(t, "http://unused")
	err := e.Update(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not been submitted")
}

func TestExplainSamples(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/alpha/extractions/samples/"+testExplainJobID, r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("num_samples"))
		w.Write([]byte(`{"data":{"attributes":{"sample":[
			{"an":"WSJO000020221229eict000jh","title":"Europe Taps Data Centers","source_code":"WSJO","word_count":1123},
			{"an":"NYTF000020221229eict000ab","title":"Second Article","source_code":"NYTF","word_count":431}
		]}}}`))
	}))
	defer server.Close()

	e := newTestExplain(t, server.URL)
	e.Job.ID = testExplainJobID

	samples, err := e.Samples(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, "WSJO000020221229eict000jh", samples[0].AN)
	assert.Equal(t, "WSJO", samples[0].SourceCode)
	assert.Equal(t, 1123, samples[0].WordCount)
}

func TestExplainSamplesBounds(t *testing.T) {
	e := newTestExplain(t, "http://unused")
	e.Job.ID = testExplainJobID

	_, err := e.Samples(context.Background(), 0)
	require.Error(t, err)
	_, err = e.Samples(context.Background(), MaxSamples+1)
	require.Error(t, err)
}

func TestResumeExplainRejectsBadID(t *testing.T) {
	t.Setenv(config.EnvUserKey, testKey)
	_, err := ResumeExplain(context.Background(), nil, "not-a-uuid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid explain job id")
}
