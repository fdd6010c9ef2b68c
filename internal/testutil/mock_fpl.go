// Package testutil provides testing utilities for the FPL scraper.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/dylan-130/FPLscraper/pkg/standings"
)

// MockPageResponse defines one scripted response for a standings page.
type MockPageResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockFPL is a configurable mock FPL standings server. Responses are
// scripted per page: each request consumes the next entry in the page's
// script and the final entry repeats once the script is exhausted.
// Unscripted pages answer 200 with deterministic entries derived from
// the page number.
type MockFPL struct {
	server  *httptest.Server
	mu      sync.Mutex
	scripts map[int][]MockPageResponse
	calls   map[int]int

	// Tracking
	RequestCount  int
	inFlight      int
	maxConcurrent int
}

// NewMockFPL creates a mock standings server.
func NewMockFPL() *MockFPL {
	mock := &MockFPL{
		scripts: make(map[int][]MockPageResponse),
		calls:   make(map[int]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// URL returns the mock server URL, usable as the fetcher's BaseURL.
func (m *MockFPL) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockFPL) Close() {
	m.server.Close()
}

// SetPageScript scripts the response sequence for a page.
func (m *MockFPL) SetPageScript(page int, responses ...MockPageResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[page] = responses
}

// PageCalls returns how many requests were made for a page.
func (m *MockFPL) PageCalls(page int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[page]
}

// GetRequestCount returns the total number of requests served.
func (m *MockFPL) GetRequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.RequestCount
}

// MaxConcurrent returns the highest number of requests that were in
// flight at the same time.
func (m *MockFPL) MaxConcurrent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxConcurrent
}

// Reset clears all scripts and tracking counters.
func (m *MockFPL) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts = make(map[int][]MockPageResponse)
	m.calls = make(map[int]int)
	m.RequestCount = 0
	m.maxConcurrent = 0
}

func (m *MockFPL) handle(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page_standings"))

	m.mu.Lock()
	m.RequestCount++
	idx := m.calls[page]
	m.calls[page]++
	m.inFlight++
	if m.inFlight > m.maxConcurrent {
		m.maxConcurrent = m.inFlight
	}
	script := m.scripts[page]
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if len(script) == 0 {
		writeResponse(w, NewStandingsResponse(DefaultEntries(page)...))
		return
	}
	if idx >= len(script) {
		idx = len(script) - 1
	}
	writeResponse(w, script[idx])
}

func writeResponse(w http.ResponseWriter, resp MockPageResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// DefaultEntries returns two deterministic standings entries for a page,
// so unscripted pages produce countable output lines.
func DefaultEntries(page int) []standings.Entry {
	return []standings.Entry{
		{PlayerName: fmt.Sprintf("Manager %d-1", page), EntryName: fmt.Sprintf("Team %d-1", page), Entry: int64(page*100 + 1)},
		{PlayerName: fmt.Sprintf("Manager %d-2", page), EntryName: fmt.Sprintf("Team %d-2", page), Entry: int64(page*100 + 2)},
	}
}

// StandingsBody builds a valid standings page body for the given entries.
func StandingsBody(entries ...standings.Entry) string {
	body, err := json.Marshal(map[string]any{
		"standings": map[string]any{
			"results": entries,
		},
	})
	if err != nil {
		panic(err)
	}
	return string(body)
}

// NewStandingsResponse creates a 200 response carrying the given entries.
func NewStandingsResponse(entries ...standings.Entry) MockPageResponse {
	return MockPageResponse{
		StatusCode: http.StatusOK,
		Body:       StandingsBody(entries...),
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockPageResponse {
	return MockPageResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"detail": "Request was throttled."}`,
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockPageResponse {
	return MockPageResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"detail": "Internal server error"}`,
	}
}

// NewMalformedResponse creates the 200 response the API sends for pages
// past the end of a league: valid JSON without standings.results.
func NewMalformedResponse() MockPageResponse {
	return MockPageResponse{
		StatusCode: http.StatusOK,
		Body:       `{"detail": "Not found."}`,
	}
}

// NewInvalidJSONResponse creates a 200 response whose body is not JSON.
func NewInvalidJSONResponse() MockPageResponse {
	return MockPageResponse{
		StatusCode: http.StatusOK,
		Headers:    map[string]string{"Content-Type": "text/html"},
		Body:       `<html><body>502 Bad Gateway</body></html>`,
	}
}
