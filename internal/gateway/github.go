// Package gateway provides a gateway to the GitHub API,
// abstracting away the underlying REST and GraphQL clients.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v84/github"
	"github.com/naka-gawa/github-feedback/internal/apperr"
	"github.com/naka-gawa/github-feedback/internal/domain"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
)

// Fetcher issues a GET against a REST path relative to the API root and
// decodes the JSON body into v. Every returned error is an *apperr.Error.
type Fetcher interface {
	Get(ctx context.Context, path string, params url.Values, v any) error
}

// ContributionFinder discovers the repositories the authenticated user
// committed to within a time range.
type ContributionFinder interface {
	DiscoverContributedRepositories(ctx context.Context, from, to time.Time) (*domain.ContributionSummary, error)
}

// GitHubGateway is the concrete implementation of Fetcher and ContributionFinder.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	logger        *log.Logger
}

// contributionsQuery lists the viewer's commit contributions grouped by repository.
type contributionsQuery struct {
	Viewer struct {
		Login                   string
		ContributionsCollection struct {
			CommitContributionsByRepository []struct {
				Repository struct {
					NameWithOwner string
					IsPrivate     bool
				}
				Contributions struct {
					TotalCount int
				}
			} `graphql:"commitContributionsByRepository(maxRepositories: 100)"`
		} `graphql:"contributionsCollection(from: $from, to: $to)"`
	}
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
// An empty apiURL targets github.com; anything else is treated as a GitHub
// Enterprise root.
func NewGitHubGateway(token, apiURL string, logger *log.Logger) (*GitHubGateway, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(1*time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		},
	}

	restClient := github.NewClient(httpClient)
	graphqlClient := githubv4.NewClient(httpClient)
	if apiURL != "" && !isPublicAPI(apiURL) {
		restClient, err = restClient.WithEnterpriseURLs(apiURL, apiURL)
		if err != nil {
			return nil, fmt.Errorf("failed to configure API URL %q: %w", apiURL, err)
		}
		graphqlClient = githubv4.NewEnterpriseClient(graphqlEndpoint(restClient.BaseURL), httpClient)
	}

	return &GitHubGateway{
		restClient:    restClient,
		graphqlClient: graphqlClient,
		logger:        logger,
	}, nil
}

func isPublicAPI(apiURL string) bool {
	return strings.TrimSuffix(apiURL, "/") == "https://api.github.com"
}

// graphqlEndpoint turns an Enterprise REST root (https://host/api/v3/) into
// the matching GraphQL endpoint (https://host/api/graphql).
func graphqlEndpoint(restBase *url.URL) string {
	u := *restBase
	u.Path = strings.TrimSuffix(strings.TrimSuffix(u.Path, "/"), "/v3") + "/graphql"
	return u.String()
}

// Get implements Fetcher.
func (g *GitHubGateway) Get(ctx context.Context, path string, params url.Values, v any) error {
	u := strings.TrimPrefix(path, "/")
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	op := "GET " + u

	req, err := g.restClient.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return apperr.New(apperr.KindValidation, op, fmt.Errorf("failed to build request: %w", err))
	}
	g.logger.Printf("  %s", op)
	resp, err := g.restClient.Do(ctx, req, v)
	return classify(op, resp, err)
}

// classify converts a go-github failure into the closed error taxonomy.
func classify(op string, resp *github.Response, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return apperr.New(apperr.KindCanceled, op, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.New(apperr.KindTimeout, op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperr.New(apperr.KindTimeout, op, err)
	}

	if resp != nil && resp.Response != nil {
		status := resp.StatusCode
		switch {
		case status >= 200 && status < 300:
			// The request succeeded but the body was not the expected shape.
			return apperr.New(apperr.KindValidation, op, err)
		case status == http.StatusUnauthorized:
			return apperr.NewHTTP(op, status, fmt.Errorf("GitHub API rejected the provided token: %w", err))
		default:
			return apperr.NewHTTP(op, status, err)
		}
	}
	return apperr.NewHTTP(op, 0, err)
}

// DiscoverContributedRepositories implements ContributionFinder using the
// GraphQL contributions collection, which covers at most one year.
func (g *GitHubGateway) DiscoverContributedRepositories(ctx context.Context, from, to time.Time) (*domain.ContributionSummary, error) {
	g.logger.Printf("Discovering repositories contributed to between %s and %s...", from.Format(time.DateOnly), to.Format(time.DateOnly))
	variables := map[string]interface{}{
		"from": githubv4.DateTime{Time: from},
		"to":   githubv4.DateTime{Time: to},
	}
	var q contributionsQuery
	if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
		return nil, classifyGraphQL("query contributionsCollection", err)
	}

	summary := &domain.ContributionSummary{Login: q.Viewer.Login}
	for _, c := range q.Viewer.ContributionsCollection.CommitContributionsByRepository {
		summary.Repositories = append(summary.Repositories, domain.RepositoryContribution{
			NameWithOwner: c.Repository.NameWithOwner,
			Commits:       c.Contributions.TotalCount,
			IsPrivate:     c.Repository.IsPrivate,
		})
	}
	g.logger.Printf("Found %d repositories for %s.", len(summary.Repositories), summary.Login)
	return summary, nil
}

// classifyGraphQL maps GraphQL client errors. The client reports non-200
// responses only through the error text.
func classifyGraphQL(op string, err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return apperr.New(apperr.KindCanceled, op, err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperr.New(apperr.KindTimeout, op, err)
	case strings.Contains(err.Error(), "401 Unauthorized"):
		return apperr.NewHTTP(op, http.StatusUnauthorized, err)
	}
	return apperr.NewHTTP(op, 0, err)
}
