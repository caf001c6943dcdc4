package spacetraveling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/labstack/gommon/log"
	"github.com/samber/lo"

	"github.com/eringen/spacetraveling/feed"
)

// SyncResult counts what Sync changed in the store.
type SyncResult struct {
	Saved   int
	Deleted int
}

// syncBackOff bounds the retries of a single source call during a sync.
func syncBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = time.Minute
	return backoff.WithContext(b, ctx)
}

// retrySource retries op while the source reports itself unavailable. Any
// other error ends the retries.
func retrySource[T any](ctx context.Context, op func() (T, error)) (T, error) {
	return backoff.RetryNotifyWithData[T](func() (T, error) {
		v, err := op()
		if err != nil && !errors.Is(err, feed.ErrSourceUnavailable) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, syncBackOff(ctx), func(err error, d time.Duration) {
		log.Warnf("sync: %v, retrying in %s", err, d)
	})
}

// Sync copies every post of src into store and removes the posts src no
// longer has.
func Sync(ctx context.Context, src feed.ContentSource, store *Store) (SyncResult, error) {
	var res SyncResult
	slugs, err := retrySource(ctx, func() ([]string, error) {
		return src.ListAllSlugs(ctx)
	})
	if err != nil {
		return res, fmt.Errorf("spacetraveling: listing slugs: %w", err)
	}

	for _, slug := range slugs {
		post, err := retrySource(ctx, func() (feed.PostBody, error) {
			return src.GetPostBySlug(ctx, slug)
		})
		if err != nil {
			return res, fmt.Errorf("spacetraveling: fetching %s: %w", slug, err)
		}
		if err := store.SavePost(ctx, post); err != nil {
			return res, fmt.Errorf("spacetraveling: saving %s: %w", slug, err)
		}
		res.Saved++
	}

	local, err := store.ListAllSlugs(ctx)
	if err != nil {
		return res, err
	}
	stale, _ := lo.Difference(local, slugs)
	for _, slug := range stale {
		if err := store.DeletePost(ctx, slug); err != nil {
			return res, fmt.Errorf("spacetraveling: deleting %s: %w", slug, err)
		}
		log.Infof("sync: removed %s", slug)
		res.Deleted++
	}
	return res, nil
}
