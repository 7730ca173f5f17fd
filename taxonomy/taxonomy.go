// Package taxonomy exposes the Factiva taxonomy endpoints: the code
// dictionaries (subjects, regions, industries, companies, executives) used in
// query where clauses.
package taxonomy

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/factiva-io/factiva-analytics-go/auth"
	"github.com/factiva-io/factiva-analytics-go/internal/logger"
	"github.com/factiva-io/factiva-analytics-go/internal/request"
)

// Category identifies one taxonomy dictionary. The subject, region and
// industry values point at the full-hierarchy datasets; the simple variants
// the service also offers are subsets of these.
type Category string

const (
	NewsSubjects Category = "hierarchySubject"
	Regions      Category = "hierarchyRegion"
	Industries   Category = "hierarchyIndustry"
	Companies    Category = "companies"
	Executives   Category = "executives"
)

// Download file formats accepted by the taxonomy endpoints.
const (
	FormatCSV  = "csv"
	FormatAvro = "avro"
)

// Code is one taxonomy entry. DirectParent is empty for hierarchy roots and
// for flat categories.
type Code struct {
	Code         string
	Descriptor   string
	Description  string
	DirectParent string
}

// Taxonomy requests taxonomy dictionaries on behalf of a user key. Fetched
// categories are cached on the instance.
type Taxonomy struct {
	UserKey *auth.UserKey

	client  *request.Client
	baseURL string
	logger  zerolog.Logger

	mu    sync.Mutex
	cache map[Category][]Code
}

// New builds a Taxonomy for the given key. A nil key is resolved from the
// environment.
func New(key *auth.UserKey) (*Taxonomy, error) {
	if key == nil {
		var err error
		key, err = auth.NewUserKey("")
		if err != nil {
			return nil, err
		}
	}
	log := logger.New()
	return &Taxonomy{
		UserKey: key,
		client:  request.New(log),
		baseURL: request.APIHost,
		logger:  log,
		cache:   map[Category][]Code{},
	}, nil
}

// Codes fetches every code in the given category. The executives dataset is
// only available as a raw download; use Download for it.
func (t *Taxonomy) Codes(ctx context.Context, category Category) ([]Code, error) {
	if category == Executives {
		return nil, fmt.Errorf("the executives category is not supported for this operation, use Download instead")
	}

	t.mu.Lock()
	cached, ok := t.cache[category]
	t.mu.Unlock()
	if ok {
		return cached, nil
	}

	t.logger.Debug().Str("category", string(category)).Msg("requesting taxonomy codes")
	endpoint := fmt.Sprintf("%s%s/%s/%s", t.baseURL, request.TaxonomyBasePath, category, FormatCSV)
	resp, err := t.client.Get(ctx, endpoint, request.UserKeyHeaders(t.UserKey.Key()), nil)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusForbidden:
		return nil, auth.ErrInactiveUserKey
	default:
		return nil, fmt.Errorf("unexpected taxonomy response HTTP %d: %s", resp.StatusCode, resp.ErrorDetail())
	}

	codes, err := parseCodes(strings.NewReader(string(resp.Body)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s taxonomy: %w", category, err)
	}

	t.mu.Lock()
	t.cache[category] = codes
	t.mu.Unlock()
	return codes, nil
}

// parseCodes reads a taxonomy CSV. Column names vary per category, so the
// header is normalized before mapping; codes are upper-cased like every other
// code surface in the SDK.
func parseCodes(r io.Reader) ([]Code, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("missing csv header: %w", err)
	}

	columns := map[string]int{}
	for i, name := range header {
		columns[normalizeColumn(name)] = i
	}
	if _, ok := columns["code"]; !ok {
		return nil, fmt.Errorf("csv header has no code column")
	}

	field := func(record []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return record[idx]
	}

	var codes []Code
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		entry := Code{
			Code:         strings.ToUpper(field(record, "code")),
			Descriptor:   field(record, "descriptor"),
			Description:  field(record, "description"),
			DirectParent: field(record, "direct_parent"),
		}
		// Flat categories carry the display name in the description column.
		if entry.Descriptor == "" {
			entry.Descriptor = entry.Description
			entry.Description = ""
		}
		codes = append(codes, entry)
	}
	return codes, nil
}

func normalizeColumn(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	return strings.ReplaceAll(name, " ", "_")
}

// Download fetches the raw category file in the given format into dir,
// defaulting to the working directory, and returns the written path.
func (t *Taxonomy) Download(ctx context.Context, category Category, dir, format string) (string, error) {
	format = strings.ToLower(format)
	if format != FormatCSV && format != FormatAvro {
		return "", fmt.Errorf("unexpected file format %q: want csv or avro", format)
	}
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dir = wd
	}

	endpoint := fmt.Sprintf("%s%s/%s/%s", t.baseURL, request.TaxonomyBasePath, category, format)
	dest := filepath.Join(dir, fmt.Sprintf("%s.%s", category, format))
	path, err := t.client.Download(ctx, endpoint, request.UserKeyHeaders(t.UserKey.Key()), dest)
	if err != nil {
		return "", err
	}
	t.logger.Info().Str("file", path).Msg("taxonomy file downloaded")
	return path, nil
}

func (t *Taxonomy) String() string {
	return fmt.Sprintf("Taxonomy(user_key: %s)", t.UserKey)
}
