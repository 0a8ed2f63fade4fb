package gateway

import (
	"context"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/naka-gawa/github-feedback/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID        int
	CreatedAt time.Time
}

// pageFetcher serves pages[i] for page i+1 and records what was asked for.
type pageFetcher struct {
	pages     [][]record
	failPage  int
	requested []int
	params    []url.Values
}

func (f *pageFetcher) Get(_ context.Context, _ string, params url.Values, v any) error {
	page, _ := strconv.Atoi(params.Get("page"))
	f.requested = append(f.requested, page)
	f.params = append(f.params, params)
	if page == f.failPage {
		return apperr.NewHTTP("GET test", 502, nil)
	}
	out := v.(*[]record)
	if page <= len(f.pages) {
		*out = f.pages[page-1]
	}
	return nil
}

func records(from, to int, created time.Time) []record {
	var out []record
	for i := from; i <= to; i++ {
		out = append(out, record{ID: i, CreatedAt: created.Add(-time.Duration(i) * time.Hour)})
	}
	return out
}

func TestPaginate_StopsOnShortPage(t *testing.T) {
	now := time.Now()
	f := &pageFetcher{pages: [][]record{records(1, 3, now), records(4, 5, now)}}

	got, err := Paginate[record](context.Background(), f, "items", url.Values{"state": {"all"}}, 3, nil)
	require.NoError(t, err)
	assert.Len(t, got, 5)
	assert.Equal(t, []int{1, 2}, f.requested)
	assert.Equal(t, "all", f.params[0].Get("state"))
	assert.Equal(t, "3", f.params[0].Get("per_page"))
}

func TestPaginate_StopsOnEmptyPage(t *testing.T) {
	now := time.Now()
	f := &pageFetcher{pages: [][]record{records(1, 2, now)}}

	got, err := Paginate[record](context.Background(), f, "items", nil, 2, nil)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, []int{1, 2}, f.requested)
}

func TestPaginate_EarlyStop(t *testing.T) {
	now := time.Now()
	// IDs descend in creation time by one hour each.
	f := &pageFetcher{pages: [][]record{records(1, 3, now), records(4, 6, now), records(7, 9, now)}}
	since := now.Add(-4*time.Hour - 30*time.Minute)

	got, err := Paginate(context.Background(), f, "items", nil, 3, func(r record) bool {
		return r.CreatedAt.Before(since)
	})
	require.NoError(t, err)

	var ids []int
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []int{1, 2, 3, 4}, ids)
	assert.Equal(t, []int{1, 2}, f.requested, "no page after the one holding the first out-of-range record")
}

func TestPaginate_EarlyStopOnFirstItem(t *testing.T) {
	now := time.Now()
	f := &pageFetcher{pages: [][]record{records(1, 3, now)}}

	got, err := Paginate(context.Background(), f, "items", nil, 3, func(record) bool { return true })
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, []int{1}, f.requested)
}

func TestPaginateLimit_MaxPages(t *testing.T) {
	now := time.Now()
	f := &pageFetcher{pages: [][]record{records(1, 2, now), records(3, 4, now), records(5, 6, now)}}

	got, err := PaginateLimit[record](context.Background(), f, "items", nil, 2, 2, nil)
	require.NoError(t, err)
	assert.Len(t, got, 4)
	assert.Equal(t, []int{1, 2}, f.requested)
}

func TestPaginate_PropagatesError(t *testing.T) {
	now := time.Now()
	f := &pageFetcher{pages: [][]record{records(1, 2, now), records(3, 4, now)}, failPage: 2}

	got, err := Paginate[record](context.Background(), f, "items", nil, 2, nil)
	require.Error(t, err)
	assert.Nil(t, got)
	assert.Equal(t, apperr.KindHTTP, apperr.KindOf(err))
}
