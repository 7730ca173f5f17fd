// Package article implements the Factiva Article Retrieval service: fetching
// single licensed articles for display, authenticated with an OAuth bearer
// token.
package article

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/factiva-io/factiva-analytics-go/auth"
	"github.com/factiva-io/factiva-analytics-go/internal/logger"
	"github.com/factiva-io/factiva-analytics-go/internal/request"
)

// ANLength is the fixed length of a Factiva accession number, the article
// unique identifier. e.g. WSJO000020221229eict000jh
const ANLength = 25

const drnPrefix = "drn:archive.newsarticle."

// TokenSource yields a valid OAuth bearer token. *auth.OAuthUser implements
// it.
type TokenSource interface {
	JWT(ctx context.Context) (string, error)
}

// Retrieval fetches articles using an OAuth service-account credential.
type Retrieval struct {
	User TokenSource

	client  *request.Client
	baseURL string
	logger  zerolog.Logger
}

// NewRetrieval builds a Retrieval around the given credential. A nil user is
// resolved from the environment.
func NewRetrieval(user TokenSource) (*Retrieval, error) {
	if user == nil {
		oauthUser, err := auth.NewOAuthUser("", "", "")
		if err != nil {
			return nil, err
		}
		user = oauthUser
	}
	log := logger.New()
	return &Retrieval{
		User:    user,
		client:  request.New(log),
		baseURL: request.APIHost,
		logger:  log,
	}, nil
}

// Article fetches a single article by its accession number. A vendor 500
// carrying an errors array means the credential is not licensed for the
// requested content.
func (r *Retrieval) Article(ctx context.Context, an string) (*Article, error) {
	if len(an) != ANLength {
		return nil, fmt.Errorf("invalid article id %q: want a %d-character accession number", an, ANLength)
	}

	token, err := r.User.JWT(ctx)
	if err != nil {
		return nil, err
	}

	r.logger.Debug().Str("an", an).Msg("retrieving article")
	endpoint := r.baseURL + request.ContentBasePath + "/" + drnPrefix + an
	resp, err := r.client.Get(ctx, endpoint, request.BearerHeaders(token), nil)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("article retrieval authentication failed: %s", resp.ErrorDetail())
	case http.StatusInternalServerError:
		if errs := resp.APIErrors(); len(errs) > 0 {
			return nil, fmt.Errorf("no permission for the requested content: %s", errs[0].Title)
		}
		fallthrough
	default:
		return nil, fmt.Errorf("unexpected article retrieval response HTTP %d: %s", resp.StatusCode, resp.ErrorDetail())
	}

	return parseArticle(resp)
}

func (r *Retrieval) String() string {
	return fmt.Sprintf("Retrieval(user: %s)", r.User)
}
