package types

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// PageRequest describes one paginated listing page to fetch.
type PageRequest struct {
	// URL is the target page URL, already carrying the page query parameter.
	URL *url.URL

	// Page is the 1-based page number within the run.
	Page int

	// Method is the HTTP method. Defaults to GET.
	Method string

	// Headers are custom HTTP headers to send.
	Headers http.Header

	// Timeout overrides the global request timeout for this request.
	Timeout time.Duration

	// RetryCount tracks the current retry attempt.
	RetryCount int

	// FetcherType selects "http" or "browser".
	FetcherType string

	// Meta stores fetcher-specific hints (wait_selector, cookies...).
	Meta map[string]any

	// CreatedAt is when this request was created.
	CreatedAt time.Time
}

// NewPageRequest builds a request for page n of a paginated listing index.
// The page number is attached via the given query parameter name.
func NewPageRequest(baseURL, pageParam string, page int) (*PageRequest, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", baseURL, err)
	}
	if page > 1 && pageParam != "" {
		q := u.Query()
		q.Set(pageParam, fmt.Sprintf("%d", page))
		u.RawQuery = q.Encode()
	}

	return &PageRequest{
		URL:         u,
		Page:        page,
		Method:      http.MethodGet,
		Headers:     make(http.Header),
		FetcherType: "http",
		Meta:        make(map[string]any),
		CreatedAt:   time.Now(),
	}, nil
}

// URLString returns the string form of the request URL.
func (r *PageRequest) URLString() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.String()
}

// Domain returns the hostname of the request URL.
func (r *PageRequest) Domain() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.Hostname()
}
