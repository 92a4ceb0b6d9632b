package types

import (
	"bytes"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// PageResponse is the result of fetching one listing page.
type PageResponse struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Headers are the response HTTP headers.
	Headers http.Header

	// Body is the raw response body.
	Body []byte

	// Request references the original page request.
	Request *PageRequest

	// FinalURL is the URL after any redirects.
	FinalURL string

	// Doc is the parsed document, lazily loaded.
	Doc *goquery.Document

	// FetchDuration is how long the fetch took.
	FetchDuration time.Duration

	// FetchedAt is when the response was received.
	FetchedAt time.Time

	// Meta stores arbitrary metadata (cookies, render hints).
	Meta map[string]any
}

// NewPageResponse creates a PageResponse from an http.Response body.
func NewPageResponse(req *PageRequest, httpResp *http.Response, body []byte, duration time.Duration) *PageResponse {
	return &PageResponse{
		StatusCode:    httpResp.StatusCode,
		Headers:       httpResp.Header,
		Body:          body,
		Request:       req,
		FinalURL:      httpResp.Request.URL.String(),
		FetchDuration: duration,
		FetchedAt:     time.Now(),
		Meta:          make(map[string]any),
	}
}

// NewBrowserPageResponse creates a PageResponse from rendered browser output.
func NewBrowserPageResponse(req *PageRequest, statusCode int, body []byte, finalURL string, duration time.Duration) *PageResponse {
	return &PageResponse{
		StatusCode:    statusCode,
		Headers:       make(http.Header),
		Body:          body,
		Request:       req,
		FinalURL:      finalURL,
		FetchDuration: duration,
		FetchedAt:     time.Now(),
		Meta:          make(map[string]any),
	}
}

// Document returns the parsed goquery document, lazily initializing it.
func (r *PageResponse) Document() (*goquery.Document, error) {
	if r.Doc != nil {
		return r.Doc, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
	if err != nil {
		return nil, err
	}
	r.Doc = doc
	return doc, nil
}

// IsSuccess returns true if the response status is 2xx.
func (r *PageResponse) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
