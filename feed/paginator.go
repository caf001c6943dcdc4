package feed

import (
	"context"
	"fmt"
)

// FetchFunc loads the page identified by cursor.
type FetchFunc func(ctx context.Context, cursor string) (PostFeedPage, error)

// Accumulator is the running list behind a "load more" listing. Values are
// never mutated in place: LoadMore returns a new Accumulator, so a caller can
// drop a failed attempt and retry from the previous value.
type Accumulator struct {
	Items  []PostSummary
	Cursor string
}

// HasMore reports whether another page can be loaded.
func (a Accumulator) HasMore() bool {
	return a.Cursor != ""
}

// Initialize starts an accumulator from the first fetched page.
func Initialize(page PostFeedPage) Accumulator {
	items := make([]PostSummary, len(page.Items))
	copy(items, page.Items)
	return Accumulator{Items: items, Cursor: page.NextCursor}
}

// LoadMore fetches the page after acc and appends it. With no cursor it
// returns acc without calling fetch. On a fetch error acc is returned as is,
// together with the unmodified error.
//
// Items are appended in fetch order and are not deduplicated.
func LoadMore(ctx context.Context, acc Accumulator, fetch FetchFunc) (Accumulator, error) {
	if !acc.HasMore() {
		return acc, nil
	}
	page, err := fetch(ctx, acc.Cursor)
	if err != nil {
		return acc, err
	}
	items := make([]PostSummary, 0, len(acc.Items)+len(page.Items))
	items = append(items, acc.Items...)
	items = append(items, page.Items...)
	return Accumulator{Items: items, Cursor: page.NextCursor}, nil
}

// Collect drains a feed starting at first. A page that hands back the cursor
// it was fetched with is reported as ErrMalformedPage.
func Collect(ctx context.Context, first PostFeedPage, fetch FetchFunc) (Accumulator, error) {
	acc := Initialize(first)
	for acc.HasMore() {
		prev := acc.Cursor
		next, err := LoadMore(ctx, acc, fetch)
		if err != nil {
			return acc, err
		}
		if next.Cursor == prev {
			return acc, fmt.Errorf("%w: cursor %q did not advance", ErrMalformedPage, prev)
		}
		acc = next
	}
	return acc, nil
}
