package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/naka-gawa/github-feedback/internal/apperr"
	"github.com/naka-gawa/github-feedback/internal/domain"
	"github.com/stretchr/testify/mock"
)

var testNow = time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC)

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestCollector(f *routeFetcher) *Collector {
	return NewCollector(f, CollectorOptions{Now: func() time.Time { return testNow }}, discardLogger())
}

// routeFetcher serves canned JSON bodies keyed by path plus the parameters
// that select data. Unknown routes answer 404.
type routeFetcher struct {
	mu     sync.Mutex
	bodies map[string]string
	errs   map[string]error
	calls  map[string]int
}

func newRouteFetcher() *routeFetcher {
	return &routeFetcher{
		bodies: make(map[string]string),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

// route builds a routing key from a path and key/value pairs.
func route(path string, kv ...string) string {
	params := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		params.Set(kv[i], kv[i+1])
	}
	return routeKey(path, params)
}

func routeKey(path string, params url.Values) string {
	q := url.Values{}
	for _, k := range []string{"sha", "path", "author", "creator"} {
		if v := params.Get(k); v != "" {
			q.Set(k, v)
		}
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

func (f *routeFetcher) on(key, body string) *routeFetcher {
	f.bodies[key] = body
	return f
}

func (f *routeFetcher) fail(key string, status int) *routeFetcher {
	f.errs[key] = apperr.NewHTTP("GET "+key, status, errors.New(http.StatusText(status)))
	return f
}

func (f *routeFetcher) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *routeFetcher) Get(ctx context.Context, path string, params url.Values, v any) error {
	key := routeKey(path, params)
	f.mu.Lock()
	f.calls[key]++
	body, ok := f.bodies[key]
	err := f.errs[key]
	f.mu.Unlock()

	if err != nil {
		return err
	}
	if page := params.Get("page"); page != "" && page != "1" {
		body = "[]"
	} else if !ok {
		return apperr.NewHTTP("GET "+key, http.StatusNotFound, errors.New("no route"))
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return apperr.New(apperr.KindValidation, "GET "+key, err)
	}
	return nil
}

// mockAnalyzer is a mock implementation of the Analyzer interface.
type mockAnalyzer struct {
	mock.Mock
}

func (m *mockAnalyzer) Analyze(ctx context.Context, kind string, items any) (*domain.Analysis, error) {
	args := m.Called(ctx, kind, items)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Analysis), args.Error(1)
}

// mockFinder is a mock implementation of gateway.ContributionFinder.
type mockFinder struct {
	mock.Mock
}

func (m *mockFinder) DiscoverContributedRepositories(ctx context.Context, from, to time.Time) (*domain.ContributionSummary, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ContributionSummary), args.Error(1)
}

// Fixtures for repository o/r. The window used with testNow and one month
// starts on 2025-05-31.
const (
	commitsJSON = `[
		{"sha":"c1","author":{"login":"alice","type":"User"},"commit":{"message":"fix: parser","author":{"name":"Alice","date":"2025-06-20T00:00:00Z"}}},
		{"sha":"c2","author":{"login":"dependabot[bot]","type":"Bot"},"commit":{"message":"chore: bump","author":{"name":"dependabot","date":"2025-06-19T00:00:00Z"}}}
	]`
	pullsJSON = `[
		{"number":1,"title":"Add feature","html_url":"https://github.com/o/r/pull/1","state":"open","user":{"login":"alice","type":"User"},"created_at":"2025-06-20T00:00:00Z","head":{"ref":"feature"},"base":{"ref":"main"}},
		{"number":2,"title":"Bump deps","user":{"login":"dependabot[bot]","type":"Bot"},"created_at":"2025-06-10T00:00:00Z","head":{"ref":"deps"},"base":{"ref":"main"}},
		{"number":3,"title":"Old change","user":{"login":"alice","type":"User"},"created_at":"2025-01-01T00:00:00Z","head":{"ref":"old"},"base":{"ref":"main"}}
	]`
	reviews1JSON = `[
		{"id":1,"user":{"login":"bob","type":"User"},"body":"Looks good","state":"APPROVED","submitted_at":"2025-06-21T00:00:00Z"},
		{"id":2,"user":{"login":"ci[bot]","type":"Bot"},"body":"Automated check","state":"COMMENTED","submitted_at":"2025-06-21T00:00:00Z"},
		{"id":3,"user":{"login":"carol","type":"User"},"body":"","state":"COMMENTED","submitted_at":"2025-05-01T00:00:00Z"}
	]`
	reviews2JSON = `[
		{"id":4,"user":{"login":"dave","type":"User"},"body":"  nit  ","state":"COMMENTED","submitted_at":"2025-06-11T00:00:00Z"}
	]`
	issuesJSON = `[
		{"number":10,"title":"Crash on start","user":{"login":"alice","type":"User"},"state":"open","created_at":"2025-06-15T00:00:00Z"},
		{"number":11,"title":"A pull request","user":{"login":"alice","type":"User"},"pull_request":{"url":"https://api.github.com/repos/o/r/pulls/11"}},
		{"number":12,"title":"Dependency dashboard","user":{"login":"renovate[bot]","type":"Bot"}}
	]`
)

// repoFixture serves the standard o/r fixtures.
func repoFixture() *routeFetcher {
	return newRouteFetcher().
		on("repos/o/r/commits", commitsJSON).
		on("repos/o/r/pulls", pullsJSON).
		on("repos/o/r/pulls/1/reviews", reviews1JSON).
		on("repos/o/r/pulls/2/reviews", reviews2JSON).
		on("repos/o/r/issues", issuesJSON)
}
