// Package snapshot implements the Factiva Analytics snapshot services:
// explain (volume estimates and samples), time series analytics and
// document extractions.
package snapshot

import (
	"fmt"

	"github.com/factiva-io/factiva-analytics-go/internal/config"
)

// Extraction file formats accepted by the service.
const (
	FormatAvro = "avro"
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// Query is the selection criteria shared by all snapshot operations. Where is
// the SQL-like predicate; the maps carry bulk include/exclude values and list
// references keyed by column name.
type Query struct {
	Where        string
	Includes     map[string][]string
	Excludes     map[string][]string
	IncludeLists map[string][]string
	ExcludeLists map[string][]string
}

// NewQuery builds a Query from the given where clause, falling back to the
// FACTIVA_WHERE environment variable when empty.
func NewQuery(where string) (Query, error) {
	resolved, err := config.Resolve(where, config.EnvWhere)
	if err != nil {
		return Query{}, fmt.Errorf("where clause: %w", err)
	}
	return Query{Where: resolved}, nil
}

type queryBody struct {
	Where        string              `json:"where"`
	Includes     map[string][]string `json:"includes,omitempty"`
	Excludes     map[string][]string `json:"excludes,omitempty"`
	IncludeLists map[string][]string `json:"includesList,omitempty"`
	ExcludeLists map[string][]string `json:"excludesList,omitempty"`

	// Extraction-only fields.
	Limit  int    `json:"limit,omitempty"`
	Format string `json:"format,omitempty"`

	// Time-series-only fields.
	Frequency         string `json:"frequency,omitempty"`
	DateField         string `json:"date_field,omitempty"`
	GroupBySourceCode *bool  `json:"group_by_source_code,omitempty"`
	Top               int    `json:"top,omitempty"`
}

type queryPayload struct {
	Query queryBody `json:"query"`
}

func (q Query) body() queryBody {
	return queryBody{
		Where:        q.Where,
		Includes:     q.Includes,
		Excludes:     q.Excludes,
		IncludeLists: q.IncludeLists,
		ExcludeLists: q.ExcludeLists,
	}
}

func (q Query) payload() (queryPayload, error) {
	if q.Where == "" {
		return queryPayload{}, fmt.Errorf("query has an empty where clause")
	}
	return queryPayload{Query: q.body()}, nil
}

// ExtractionQuery extends Query with the output format and an optional
// article limit for extraction jobs.
type ExtractionQuery struct {
	Query
	Format string
	Limit  int
}

// NewExtractionQuery builds an ExtractionQuery with the default avro format,
// resolving the where clause like NewQuery.
func NewExtractionQuery(where string) (ExtractionQuery, error) {
	q, err := NewQuery(where)
	if err != nil {
		return ExtractionQuery{}, err
	}
	return ExtractionQuery{Query: q, Format: FormatAvro}, nil
}

func (q ExtractionQuery) payload() (queryPayload, error) {
	if q.Where == "" {
		return queryPayload{}, fmt.Errorf("query has an empty where clause")
	}
	if q.Limit < 0 {
		return queryPayload{}, fmt.Errorf("limit value is not valid or not positive: %d", q.Limit)
	}
	switch q.Format {
	case FormatAvro, FormatCSV, FormatJSON:
	case "":
		q.Format = FormatAvro
	default:
		return queryPayload{}, fmt.Errorf("unexpected file format %q: want avro, csv or json", q.Format)
	}

	body := q.body()
	body.Limit = q.Limit
	body.Format = q.Format
	return queryPayload{Query: body}, nil
}

// Time series bucketing frequencies.
const (
	FrequencyDay   = "day"
	FrequencyMonth = "month"
	FrequencyYear  = "year"
)

// DefaultDateField is the article date used for time series bucketing unless
// overridden.
const DefaultDateField = "publication_datetime"

// TimeSeriesQuery extends Query with the bucketing controls of the analytics
// endpoint.
type TimeSeriesQuery struct {
	Query
	Frequency         string
	DateField         string
	GroupBySourceCode bool
	Top               int
}

// NewTimeSeriesQuery builds a TimeSeriesQuery with monthly buckets over the
// publication date, resolving the where clause like NewQuery.
func NewTimeSeriesQuery(where string) (TimeSeriesQuery, error) {
	q, err := NewQuery(where)
	if err != nil {
		return TimeSeriesQuery{}, err
	}
	return TimeSeriesQuery{Query: q, Frequency: FrequencyMonth, DateField: DefaultDateField}, nil
}

func (q TimeSeriesQuery) payload() (queryPayload, error) {
	if q.Where == "" {
		return queryPayload{}, fmt.Errorf("query has an empty where clause")
	}
	switch q.Frequency {
	case FrequencyDay, FrequencyMonth, FrequencyYear:
	case "":
		q.Frequency = FrequencyMonth
	default:
		return queryPayload{}, fmt.Errorf("unexpected frequency %q: want day, month or year", q.Frequency)
	}
	if q.DateField == "" {
		q.DateField = DefaultDateField
	}

	body := q.body()
	body.Frequency = q.Frequency
	body.DateField = q.DateField
	body.GroupBySourceCode = &q.GroupBySourceCode
	body.Top = q.Top
	return queryPayload{Query: body}, nil
}
