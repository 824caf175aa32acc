package release

import (
	"io"
	"net/http"
	"net/url"
	"strings"
)

// HTTPFetcher abstracts HTTP calls for testability
type HTTPFetcher interface {
	Do(req *http.Request) (*http.Response, error)
}

// RealHTTPFetcher wraps http.Client for production use
type RealHTTPFetcher struct {
	client *http.Client
}

// NewRealHTTPFetcher creates a production HTTP fetcher
func NewRealHTTPFetcher(client *http.Client) HTTPFetcher {
	return &RealHTTPFetcher{client: client}
}

func (f *RealHTTPFetcher) Do(req *http.Request) (*http.Response, error) {
	return f.client.Do(req)
}

// MockHTTPFetcher simulates HTTP responses for testing
type MockHTTPFetcher struct {
	responses map[string]*http.Response
	errors    map[string]error
	calls     map[string]int
}

// NewMockHTTPFetcher creates a mock HTTP fetcher
func NewMockHTTPFetcher() *MockHTTPFetcher {
	return &MockHTTPFetcher{
		responses: make(map[string]*http.Response),
		errors:    make(map[string]error),
		calls:     make(map[string]int),
	}
}

// AddResponse registers a mock response for a URL
func (m *MockHTTPFetcher) AddResponse(urlStr string, statusCode int, body string) {
	m.AddResponseWithHeaders(urlStr, statusCode, body, nil)
}

// AddResponseWithHeaders registers a mock response with custom headers
func (m *MockHTTPFetcher) AddResponseWithHeaders(urlStr string, statusCode int, body string, headers map[string]string) {
	parsedURL, _ := url.Parse(urlStr)
	header := make(http.Header)
	for k, v := range headers {
		header.Set(k, v)
	}
	m.responses[urlStr] = &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     header,
		Request: &http.Request{
			URL: parsedURL,
		},
	}
}

// AddError registers a mock error for a URL
func (m *MockHTTPFetcher) AddError(urlStr string, err error) {
	m.errors[urlStr] = err
}

// Calls returns how many times a URL was requested
func (m *MockHTTPFetcher) Calls(urlStr string) int {
	return m.calls[urlStr]
}

func (m *MockHTTPFetcher) Do(req *http.Request) (*http.Response, error) {
	urlStr := req.URL.String()
	m.calls[urlStr]++
	if err, ok := m.errors[urlStr]; ok {
		return nil, err
	}
	if resp, ok := m.responses[urlStr]; ok {
		// Re-arm the body so repeated fetches of the same URL work
		if buf, err := io.ReadAll(resp.Body); err == nil {
			resp.Body = io.NopCloser(strings.NewReader(string(buf)))
			fresh := *resp
			fresh.Body = io.NopCloser(strings.NewReader(string(buf)))
			return &fresh, nil
		}
		return resp, nil
	}
	// Return 404 for unknown URLs
	return &http.Response{
		StatusCode: 404,
		Body:       io.NopCloser(strings.NewReader("Not Found")),
		Header:     make(http.Header),
	}, nil
}
