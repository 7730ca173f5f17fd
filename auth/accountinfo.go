package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/factiva-io/factiva-analytics-go/internal/logger"
	"github.com/factiva-io/factiva-analytics-go/internal/request"
)

// AccountInfo exposes the account limits and usage attached to a user key,
// plus the account's historical extractions and streams.
type AccountInfo struct {
	UserKey *UserKey

	Name                            string
	Type                            string
	ActiveProduct                   string
	MaxAllowedConcurrentExtractions int
	MaxAllowedExtractedDocuments    int
	MaxAllowedExtractions           int
	CurrentlyRunningExtractions     int
	TotalDownloadedBytes            int64
	TotalExtractedDocuments         int
	TotalExtractions                int
	TotalStreamInstances            int
	TotalStreamSubscriptions        int
	EnabledCompanyIdentifiers       []CompanyIdentifier

	client  *request.Client
	baseURL string
	logger  zerolog.Logger
}

// CompanyIdentifier is one company coding scheme enabled for the account.
type CompanyIdentifier struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ExtractionListItem is one historical extraction as reported by the account
// listing endpoint.
type ExtractionListItem struct {
	ID       string
	ShortID  string
	UpdateID string
	State    string
	Format   string
}

// StreamListItem is one stream instance as reported by the account listing
// endpoint.
type StreamListItem struct {
	ID            string
	ShortID       string
	StreamType    string
	JobStatus     string
	Subscriptions []string
}

// NewAccountInfo wraps the given key. A nil key is resolved from the
// environment.
func NewAccountInfo(key *UserKey) (*AccountInfo, error) {
	if key == nil {
		var err error
		key, err = NewUserKey("")
		if err != nil {
			return nil, err
		}
	}
	log := logger.New()
	return &AccountInfo{
		UserKey: key,
		client:  request.New(log),
		baseURL: request.APIHost,
		logger:  log,
	}, nil
}

type accountEnvelope struct {
	Data struct {
		Type       string `json:"type"`
		Attributes struct {
			Name                         string              `json:"name"`
			Products                     string              `json:"products"`
			MaxAllowedConcurrentExtracts int                 `json:"max_allowed_concurrent_extracts"`
			MaxAllowedDocumentExtracts   int                 `json:"max_allowed_document_extracts"`
			MaxAllowedExtracts           int                 `json:"max_allowed_extracts"`
			CntCurrExt                   int                 `json:"cnt_curr_ext"`
			CurrentDownloadedAmount      int64               `json:"current_downloaded_amount"`
			TotDocumentExtracts          int                 `json:"tot_document_extracts"`
			TotExtracts                  int                 `json:"tot_extracts"`
			TotTopics                    int                 `json:"tot_topics"`
			TotSubscriptions             int                 `json:"tot_subscriptions"`
			EnabledCompanyIdentifiers    []CompanyIdentifier `json:"enabled_company_identifiers"`
		} `json:"attributes"`
	} `json:"data"`
}

// Stats requests the account details and fills the receiver's fields. This
// call can take several seconds on the vendor side.
func (a *AccountInfo) Stats(ctx context.Context) error {
	a.logger.Debug().Msg("requesting account stats")
	endpoint := fmt.Sprintf("%s%s/%s", a.baseURL, request.AccountBasePath, a.UserKey.Key())
	resp, err := a.client.Get(ctx, endpoint, request.UserKeyHeaders(a.UserKey.Key()), nil)
	if err != nil {
		return err
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusForbidden:
		return ErrInactiveUserKey
	default:
		return fmt.Errorf("unexpected account information response HTTP %d: %s", resp.StatusCode, resp.ErrorDetail())
	}

	var envelope accountEnvelope
	if err := resp.Decode(&envelope); err != nil {
		return err
	}

	attrs := envelope.Data.Attributes
	a.Name = attrs.Name
	a.Type = envelope.Data.Type
	a.ActiveProduct = attrs.Products
	a.MaxAllowedConcurrentExtractions = attrs.MaxAllowedConcurrentExtracts
	a.MaxAllowedExtractedDocuments = attrs.MaxAllowedDocumentExtracts
	a.MaxAllowedExtractions = attrs.MaxAllowedExtracts
	a.CurrentlyRunningExtractions = attrs.CntCurrExt
	a.TotalDownloadedBytes = attrs.CurrentDownloadedAmount
	a.TotalExtractedDocuments = attrs.TotDocumentExtracts
	a.TotalExtractions = attrs.TotExtracts
	a.TotalStreamInstances = attrs.TotTopics
	a.TotalStreamSubscriptions = attrs.TotSubscriptions
	a.EnabledCompanyIdentifiers = attrs.EnabledCompanyIdentifiers
	return nil
}

// RemainingExtractions derives how many extraction jobs the account can still
// run under its contract.
func (a *AccountInfo) RemainingExtractions() int {
	return a.MaxAllowedExtractions - a.TotalExtractions
}

// RemainingDocuments derives how many documents the account can still
// extract.
func (a *AccountInfo) RemainingDocuments() int {
	return a.MaxAllowedExtractedDocuments - a.TotalExtractedDocuments
}

type listEnvelope struct {
	Data []struct {
		ID         string `json:"id"`
		Attributes struct {
			CurrentState string `json:"current_state"`
			Format       string `json:"format"`
			JobStatus    string `json:"job_status"`
		} `json:"attributes"`
		Relationships struct {
			Subscriptions struct {
				Data []struct {
					ID string `json:"id"`
				} `json:"data"`
			} `json:"subscriptions"`
		} `json:"relationships"`
	} `json:"data"`
}

// Extractions lists the account's historical extraction jobs. Update jobs are
// filtered out unless includeUpdates is set.
func (a *AccountInfo) Extractions(ctx context.Context, includeUpdates bool) ([]ExtractionListItem, error) {
	a.logger.Debug().Msg("requesting extraction list")
	resp, err := a.client.Get(ctx, a.baseURL+request.ExtractionsBasePath, request.UserKeyHeaders(a.UserKey.Key()), nil)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusForbidden:
		return nil, ErrInactiveUserKey
	default:
		return nil, fmt.Errorf("unexpected extraction list response HTTP %d: %s", resp.StatusCode, resp.ErrorDetail())
	}

	var envelope listEnvelope
	if err := resp.Decode(&envelope); err != nil {
		return nil, err
	}

	items := make([]ExtractionListItem, 0, len(envelope.Data))
	for _, entry := range envelope.Data {
		item := ExtractionListItem{
			ID:       entry.ID,
			ShortID:  idToken(entry.ID, 4),
			UpdateID: idToken(entry.ID, 6),
			State:    entry.Attributes.CurrentState,
			Format:   entry.Attributes.Format,
		}
		if item.UpdateID != "" && !includeUpdates {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// Streams lists the account's stream instances. With runningOnly, only
// streams in the running state are returned.
func (a *AccountInfo) Streams(ctx context.Context, runningOnly bool) ([]StreamListItem, error) {
	a.logger.Debug().Msg("requesting stream list")
	resp, err := a.client.Get(ctx, a.baseURL+request.StreamsBasePath, request.UserKeyHeaders(a.UserKey.Key()), nil)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, nil
	case http.StatusForbidden:
		return nil, ErrInactiveUserKey
	default:
		return nil, fmt.Errorf("unexpected stream list response HTTP %d: %s", resp.StatusCode, resp.ErrorDetail())
	}

	var envelope listEnvelope
	if err := resp.Decode(&envelope); err != nil {
		return nil, err
	}

	items := make([]StreamListItem, 0, len(envelope.Data))
	for _, entry := range envelope.Data {
		item := StreamListItem{
			ID:         entry.ID,
			ShortID:    idToken(entry.ID, 4),
			StreamType: idToken(entry.ID, 2),
			JobStatus:  entry.Attributes.JobStatus,
		}
		for _, sub := range entry.Relationships.Subscriptions.Data {
			item.Subscriptions = append(item.Subscriptions, subscriptionShortID(sub.ID))
		}
		if runningOnly && item.JobStatus != "JOB_STATE_RUNNING" {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// idToken returns the nth dash-separated token of a vendor object id, or ""
// when the id has fewer tokens. Vendor ids look like
// dj-synhub-extraction-<key>-<short>[-update-<updateid>].
func idToken(id string, n int) string {
	parts := strings.Split(id, "-")
	if n >= len(parts) {
		return ""
	}
	return parts[n]
}

// subscriptionShortID keeps the last three tokens of a subscription id, which
// identify it uniquely within the account.
func subscriptionShortID(id string) string {
	parts := strings.Split(id, "-")
	if len(parts) < 3 {
		return id
	}
	return strings.Join(parts[len(parts)-3:], "-")
}

func (a *AccountInfo) String() string {
	return fmt.Sprintf("AccountInfo(user_key: %s, name: %s, product: %s, extractions: %d/%d, documents: %d/%d)",
		a.UserKey, printable(a.Name), printable(a.ActiveProduct),
		a.TotalExtractions, a.MaxAllowedExtractions,
		a.TotalExtractedDocuments, a.MaxAllowedExtractedDocuments)
}

func printable(s string) string {
	if s == "" {
		return "<NotLoaded>"
	}
	return s
}
