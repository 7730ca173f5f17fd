// Package request is the HTTP layer shared by every Factiva Analytics
// service. It owns header construction, the SDK User-Agent, JSON decoding of
// the vendor's JSON:API-style envelopes and file downloads.
package request

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Version is the SDK release identifier carried in the User-Agent header.
const Version = "0.1.0"

// APIHost is the Factiva Analytics API origin.
const APIHost = "https://api.dowjones.com"

// Service base paths under APIHost.
const (
	AccountBasePath          = "/alpha/accounts"
	SnapshotsBasePath        = "/alpha/extractions/documents"
	ExtractionsBasePath      = "/alpha/extractions"
	ExtractionsSamplesSuffix = "/samples"
	ExplainSuffix            = "/_explain"
	AnalyticsSuffix          = "/_analytics"
	StreamsBasePath          = "/alpha/streams"
	TaxonomyBasePath         = "/alpha/taxonomy"
	StreamCredentialsPath    = "/alpha/accounts/streaming-credentials"
	ContentBasePath          = "/content"
)

// Client wraps an http.Client with the header and logging conventions shared
// by all Factiva endpoints.
type Client struct {
	httpClient *http.Client
	logger     zerolog.Logger
}

// New creates a request client with a sane timeout for the vendor's
// occasionally slow account and job endpoints.
func New(logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}
}

// UserKeyHeaders builds the headers for key-authenticated endpoints.
func UserKeyHeaders(key string) http.Header {
	h := http.Header{}
	h.Set("user-key", key)
	h.Set("Content-Type", "application/json")
	h.Set("User-Agent", userAgent(key))
	return h
}

// BearerHeaders builds the headers for OAuth-authenticated endpoints.
func BearerHeaders(token string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	h.Set("User-Agent", userAgent(""))
	return h
}

func userAgent(key string) string {
	vsum := "f4c71v4f4c71v4f4c71v4f4c71v4f4c7"
	if key != "" {
		sum := md5.Sum([]byte(key))
		vsum = hex.EncodeToString(sum[:])
	}
	return fmt.Sprintf("RDL-Go-%s-%s", Version, vsum)
}

// Response carries the status code and raw body of an API call so callers can
// branch on vendor status semantics.
type Response struct {
	StatusCode int
	Body       []byte
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("unexpected API response body: %w", err)
	}
	return nil
}

// APIError is a single entry of the vendor's errors array.
type APIError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (e APIError) Error() string {
	if e.Detail == "" {
		return e.Title
	}
	return fmt.Sprintf("%s: %s", e.Title, e.Detail)
}

// APIErrors extracts the errors array from the response body, if any.
func (r *Response) APIErrors() []APIError {
	var envelope struct {
		Errors []APIError `json:"errors"`
	}
	if err := json.Unmarshal(r.Body, &envelope); err != nil {
		return nil
	}
	return envelope.Errors
}

// ErrorDetail returns the first vendor error detail, falling back to the raw
// body when the errors array is absent.
func (r *Response) ErrorDetail() string {
	if errs := r.APIErrors(); len(errs) > 0 {
		return errs[0].Error()
	}
	return string(r.Body)
}

// Get performs a GET request with optional query string parameters.
func (c *Client) Get(ctx context.Context, endpoint string, headers http.Header, params url.Values) (*Response, error) {
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}
	return c.do(ctx, http.MethodGet, endpoint, headers, nil)
}

// Post performs a POST request with a JSON-encoded payload.
func (c *Client) Post(ctx context.Context, endpoint string, headers http.Header, payload any) (*Response, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request payload: %w", err)
		}
	}
	return c.do(ctx, http.MethodPost, endpoint, headers, body)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, endpoint string, headers http.Header) (*Response, error) {
	return c.do(ctx, http.MethodDelete, endpoint, headers, nil)
}

func (c *Client) do(ctx context.Context, method, endpoint string, headers http.Header, body []byte) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	for name, values := range headers {
		for _, value := range values {
			req.Header.Set(name, value)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read API response: %w", err)
	}

	evt := c.logger.Debug().
		Str("method", method).
		Str("url", endpoint).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start))
	if resp.StatusCode >= 400 {
		evt = c.logger.Error().
			Str("method", method).
			Str("url", endpoint).
			Int("status", resp.StatusCode).
			Str("body", string(respBody))
	}
	evt.Msg("api request")

	return &Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}

// Download fetches fileURL and writes it to destPath, creating parent
// directories as needed. Returns the written path.
func (c *Client) Download(ctx context.Context, fileURL string, headers http.Header, destPath string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", err
	}
	for name, values := range headers {
		for _, value := range values {
			req.Header.Set(name, value)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("download returned HTTP %d: %s", resp.StatusCode, string(body))
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o750); err != nil {
		return "", err
	}
	out, err := os.Create(destPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", destPath, err)
	}
	return destPath, nil
}
