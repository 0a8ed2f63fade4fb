package gateway

import (
	"context"
	"net/url"
	"strconv"
)

const (
	// DefaultPerPage is the largest page size the REST API accepts.
	DefaultPerPage = 100
	// DefaultMaxPages bounds a single scan to 10,000 records at the default page size.
	DefaultMaxPages = 100
)

// Paginate fetches successive pages of a list endpoint. See PaginateLimit.
func Paginate[T any](ctx context.Context, f Fetcher, path string, params url.Values, perPage int, earlyStop func(T) bool) ([]T, error) {
	return PaginateLimit(ctx, f, path, params, perPage, DefaultMaxPages, earlyStop)
}

// PaginateLimit requests page 1, 2, ... of path merged with params until a
// page is empty, a page is shorter than perPage, or maxPages is reached.
//
// When earlyStop is non-nil and returns true for an item, the items before it
// are kept and no further page is requested. This is only correct for
// endpoints sorted so that every later item would also match, e.g. pulls
// sorted by created desc with a "created before window start" predicate.
//
// Errors from f are returned as is.
func PaginateLimit[T any](ctx context.Context, f Fetcher, path string, params url.Values, perPage, maxPages int, earlyStop func(T) bool) ([]T, error) {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	var all []T
	for page := 1; page <= maxPages; page++ {
		q := url.Values{}
		for k, v := range params {
			q[k] = append([]string(nil), v...)
		}
		q.Set("page", strconv.Itoa(page))
		q.Set("per_page", strconv.Itoa(perPage))

		var items []T
		if err := f.Get(ctx, path, q, &items); err != nil {
			return nil, err
		}
		if len(items) == 0 {
			break
		}
		if earlyStop != nil {
			for i, item := range items {
				if earlyStop(item) {
					return append(all, items[:i]...), nil
				}
			}
		}
		all = append(all, items...)
		if len(items) < perPage {
			break
		}
	}
	return all, nil
}
