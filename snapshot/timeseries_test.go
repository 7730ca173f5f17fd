package snapshot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAnalyticsJobID = "fedcba98-7654-3210-fedc-ba9876543210"

func newTestTimeSeries(t *testing.T, serverURL string) *TimeSeries {
	t.Helper()
	ts, err := NewTimeSeries(testUserKey(t), TimeSeriesQuery{
		Query:     Query{Where: "language_code = 'en'"},
		Frequency: FrequencyDay,
	})
	require.NoError(t, err)
	ts.baseURL = serverURL
	ts.PollInterval = 1
	return ts
}

func TestTimeSeriesSubmit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/alpha/extractions/documents/_analytics", r.URL.Path)
		assert.Equal(t, testKey, r.Header.Get("user-key"))

		var payload map[string]map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "day", payload["query"]["frequency"])

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":"` + testAnalyticsJobID + `","attributes":{"current_state":"JOB_VALIDATING"}}}`))
	}))
	defer server.Close()

	ts := newTestTimeSeries(t, server.URL)
	require.NoError(t, ts.Submit(context.Background()))
	assert.Equal(t, testAnalyticsJobID, ts.Job.ID)
	assert.Equal(t, StateValidating, ts.Job.State)
}

func TestTimeSeriesProcessCollectsRows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"data":{"id":"` + testAnalyticsJobID + `","attributes":{"current_state":"JOB_CREATED"}}}`))
			return
		}
		assert.Equal(t, "/alpha/extractions/documents/"+testAnalyticsJobID+"/_analytics", r.URL.Path)
		w.Write([]byte(`{"data":{"id":"` + testAnalyticsJobID + `","attributes":{
			"current_state":"JOB_STATE_DONE",
			"results":[
				{"publication_datetime":"2022-01","count":15000},
				{"publication_datetime":"2022-02","count":17250}
			]
		}}}`))
	}))
	defer server.Close()

	ts := newTestTimeSeries(t, server.URL)
	require.NoError(t, ts.Process(context.Background()))
	assert.Equal(t, StateDone, ts.Job.State)
	require.Len(t, ts.Rows, 2)
	assert.Equal(t, "2022-01", ts.Rows[0]["publication_datetime"])
	assert.Equal(t, float64(15000), ts.Rows[0]["count"])
}

func TestTimeSeriesUpdateWithoutJobID(t *testing.T) {
	ts := newTestTimeSeries(t, "http://unused")
	err := ts.Update(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not been submitted")
}

func TestResumeTimeSeriesRejectsBadID(t *testing.T) {
	_, err := ResumeTimeSeries(context.Background(), testUserKey(t), "not-a-uuid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid analytics job id")
}
