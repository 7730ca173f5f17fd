package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Attribute names mirror the account endpoint's most complete known response.
const accountStatsBody = `{
  "data": {
    "id": "abcd1234abcd1234abcd1234abcd1234",
    "type": "account_with_contract_limits",
    "attributes": {
      "name": "Company Corp",
      "products": "DNA",
      "max_allowed_concurrent_extracts": 10,
      "max_allowed_document_extracts": 2500000,
      "max_allowed_extracts": 5,
      "cnt_curr_ext": 1,
      "current_downloaded_amount": 427567508,
      "tot_document_extracts": 1595383,
      "tot_extracts": 4,
      "tot_topics": 2,
      "tot_subscriptions": 3,
      "enabled_company_identifiers": [
        {"id": 4, "name": "isin"},
        {"id": 3, "name": "cusip"}
      ]
    }
  }
}`

func newTestAccount(t *testing.T, serverURL string) *AccountInfo {
	t.Helper()
	key, err := NewUserKey(dummyKey)
	require.NoError(t, err)
	acct, err := NewAccountInfo(key)
	require.NoError(t, err)
	acct.baseURL = serverURL
	return acct
}

func TestStats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/alpha/accounts/"+dummyKey, r.URL.Path)
		w.Write([]byte(accountStatsBody))
	}))
	defer server.Close()

	acct := newTestAccount(t, server.URL)
	require.NoError(t, acct.Stats(context.Background()))

	assert.Equal(t, "Company Corp", acct.Name)
	assert.Equal(t, "account_with_contract_limits", acct.Type)
	assert.Equal(t, "DNA", acct.ActiveProduct)
	assert.Equal(t, 10, acct.MaxAllowedConcurrentExtractions)
	assert.Equal(t, int64(427567508), acct.TotalDownloadedBytes)
	assert.Equal(t, 2, acct.TotalStreamInstances)
	assert.Equal(t, 3, acct.TotalStreamSubscriptions)
	assert.Equal(t, 1, acct.RemainingExtractions())
	assert.Equal(t, 2500000-1595383, acct.RemainingDocuments())
	require.Len(t, acct.EnabledCompanyIdentifiers, 2)
	assert.Equal(t, "isin", acct.EnabledCompanyIdentifiers[0].Name)
}

func TestStatsForbidden(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	acct := newTestAccount(t, server.URL)
	err := acct.Stats(context.Background())
	assert.ErrorIs(t, err, ErrInactiveUserKey)
}

func TestExtractionsFiltersUpdates(t *testing.T) {
	body := `{"data":[
	  {"id":"dj-synhub-extraction-` + dummyKey + `-abc123defg","attributes":{"current_state":"JOB_STATE_DONE","format":"avro"}},
	  {"id":"dj-synhub-extraction-` + dummyKey + `-abc123defg-update-xyz987","attributes":{"current_state":"JOB_STATE_DONE","format":"avro"}}
	]}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/alpha/extractions", r.URL.Path)
		w.Write([]byte(body))
	}))
	defer server.Close()

	acct := newTestAccount(t, server.URL)

	items, err := acct.Extractions(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "abc123defg", items[0].ShortID)
	assert.Equal(t, "JOB_STATE_DONE", items[0].State)
	assert.Equal(t, "avro", items[0].Format)

	withUpdates, err := acct.Extractions(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, withUpdates, 2)
	assert.Equal(t, "xyz987", withUpdates[1].UpdateID)
}

func TestStreamsRunningFilter(t *testing.T) {
	body := `{"data":[
	  {"id":"dj-synhub-stream-` + dummyKey + `-aaaaaaaaaa",
	   "attributes":{"job_status":"JOB_STATE_RUNNING"},
	   "relationships":{"subscriptions":{"data":[{"id":"dj-synhub-sc-` + dummyKey + `-aaaaaaaaaa-filtered-abc"}]}}},
	  {"id":"dj-synhub-stream-` + dummyKey + `-bbbbbbbbbb",
	   "attributes":{"job_status":"JOB_STATE_CANCELLED"},
	   "relationships":{"subscriptions":{"data":[]}}}
	]}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/alpha/streams", r.URL.Path)
		w.Write([]byte(body))
	}))
	defer server.Close()

	acct := newTestAccount(t, server.URL)

	all, err := acct.Streams(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "aaaaaaaaaa", all[0].ShortID)
	assert.Equal(t, "stream", all[0].StreamType)
	require.Len(t, all[0].Subscriptions, 1)
	assert.Equal(t, "aaaaaaaaaa-filtered-abc", all[0].Subscriptions[0])

	running, err := acct.Streams(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, running, 1)
	assert.Equal(t, "JOB_STATE_RUNNING", running[0].JobStatus)
}

func TestStreamsNotFoundIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	acct := newTestAccount(t, server.URL)
	items, err := acct.Streams(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, items)
}
