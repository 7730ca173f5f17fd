package snapshot

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factiva-io/factiva-analytics-go/internal/config"
)

func TestNewQueryResolution(t *testing.T) {
	t.Setenv(config.EnvWhere, "language_code = 'en'")

	q, err := NewQuery("")
	require.NoError(t, err)
	assert.Equal(t, "language_code = 'en'", q.Where)

	q, err = NewQuery("source_code = 'WSJO'")
	require.NoError(t, err)
	assert.Equal(t, "source_code = 'WSJO'", q.Where)
}

func TestNewQueryMissingWhere(t *testing.T) {
	t.Setenv(config.EnvWhere, "")

	_, err := NewQuery("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.EnvWhere)
}

func TestQueryPayload(t *testing.T) {
	q := Query{
		Where:    "language_code = 'en'",
		Includes: map[string][]string{"subject_codes": {"c151", "c152"}},
	}

	payload, err := q.payload()
	require.NoError(t, err)

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"query":{
		"where":"language_code = 'en'",
		"includes":{"subject_codes":["c151","c152"]}
	}}`, string(raw))
}

func TestExtractionQueryPayloadDefaults(t *testing.T) {
	q := ExtractionQuery{Query: Query{Where: "w"}}

	payload, err := q.payload()
	require.NoError(t, err)
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	// Default format is avro; a zero limit is omitted.
	assert.JSONEq(t, `{"query":{"where":"w","format":"avro"}}`, string(raw))
}

func TestExtractionQueryPayloadWithLimit(t *testing.T) {
	q := ExtractionQuery{Query: Query{Where: "w"}, Format: FormatCSV, Limit: 100}

	payload, err := q.payload()
	require.NoError(t, err)
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"query":{"where":"w","format":"csv","limit":100}}`, string(raw))
}

func TestExtractionQueryRejectsBadFormat(t *testing.T) {
	q := ExtractionQuery{Query: Query{Where: "w"}, Format: "parquet"}
	_, err := q.payload()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parquet")
}

func TestExtractionQueryRejectsNegativeLimit(t *testing.T) {
	q := ExtractionQuery{Query: Query{Where: "w"}, Limit: -1}
	_, err := q.payload()
	require.Error(t, err)
}

func TestTimeSeriesQueryPayloadDefaults(t *testing.T) {
	q := TimeSeriesQuery{Query: Query{Where: "w"}}

	payload, err := q.payload()
	require.NoError(t, err)
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"query":{
		"where":"w",
		"frequency":"month",
		"date_field":"publication_datetime",
		"group_by_source_code":false
	}}`, string(raw))
}

func TestTimeSeriesQueryRejectsBadFrequency(t *testing.T) {
	q := TimeSeriesQuery{Query: Query{Where: "w"}, Frequency: "week"}
	_, err := q.payload()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "week")
}

func TestPayloadRejectsEmptyWhere(t *testing.T) {
	_, err := Query{}.payload()
	require.Error(t, err)
	_, err = ExtractionQuery{}.payload()
	require.Error(t, err)
	_, err = TimeSeriesQuery{}.payload()
	require.Error(t, err)
}
