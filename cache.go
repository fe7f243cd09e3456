package clubsite

import (
	"context"
	"sync"
	"time"
)

// listCache is an in-memory TTL cache of one backend list.
type listCache[T any] struct {
	mu      sync.RWMutex
	items   []T
	loaded  bool
	fetched time.Time
	ttl     time.Duration
	fetch   func(context.Context) ([]T, error)
}

func newListCache[T any](ttl time.Duration, fetch func(context.Context) ([]T, error)) *listCache[T] {
	return &listCache[T]{ttl: ttl, fetch: fetch}
}

func (c *listCache[T]) valid() bool {
	return c.loaded && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *listCache[T]) Invalidate() {
	c.mu.Lock()
	c.items = nil
	c.loaded = false
	c.mu.Unlock()
}

// Get returns the cached list, reloading it when stale. It tries a read
// lock first and only takes the write lock if a reload is needed.
func (c *listCache[T]) Get(ctx context.Context) ([]T, error) {
	c.mu.RLock()
	if c.valid() {
		items := c.items
		c.mu.RUnlock()
		return items, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid() {
		return c.items, nil
	}
	items, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.items = items
	c.loaded = true
	c.fetched = time.Now()
	return items, nil
}

// ContentCache holds the public content lists: published posts, events in
// date order and approved testimonials. Admin writes invalidate it.
type ContentCache struct {
	posts        *listCache[BlogPost]
	events       *listCache[Event]
	testimonials *listCache[Testimonial]
}

// NewContentCache creates a ContentCache reading from b.
func NewContentCache(b Backend, ttl time.Duration) *ContentCache {
	return &ContentCache{
		posts: newListCache(ttl, func(ctx context.Context) ([]BlogPost, error) {
			return b.ListBlogPosts(ctx, PostFilter{PublishedOnly: true})
		}),
		events: newListCache(ttl, func(ctx context.Context) ([]Event, error) {
			return b.ListEvents(ctx, EventFilter{Order: ByEventDate})
		}),
		testimonials: newListCache(ttl, func(ctx context.Context) ([]Testimonial, error) {
			return b.ListTestimonials(ctx, TestimonialFilter{ApprovedOnly: true})
		}),
	}
}

// PublishedPosts returns published posts, newest first.
func (c *ContentCache) PublishedPosts(ctx context.Context) ([]BlogPost, error) {
	return c.posts.Get(ctx)
}

// GetPost returns a single published post by id from the cache.
func (c *ContentCache) GetPost(ctx context.Context, id string) (BlogPost, error) {
	posts, err := c.posts.Get(ctx)
	if err != nil {
		return BlogPost{}, err
	}
	for _, p := range posts {
		if p.ID == id {
			return p, nil
		}
	}
	return BlogPost{}, ErrNotFound
}

// Events returns all events ordered by date, undated last.
func (c *ContentCache) Events(ctx context.Context) ([]Event, error) {
	return c.events.Get(ctx)
}

// ApprovedTestimonials returns approved testimonials, newest first.
func (c *ContentCache) ApprovedTestimonials(ctx context.Context) ([]Testimonial, error) {
	return c.testimonials.Get(ctx)
}

func (c *ContentCache) InvalidatePosts()        { c.posts.Invalidate() }
func (c *ContentCache) InvalidateEvents()       { c.events.Invalidate() }
func (c *ContentCache) InvalidateTestimonials() { c.testimonials.Invalidate() }

// Invalidate clears every list.
func (c *ContentCache) Invalidate() {
	c.InvalidatePosts()
	c.InvalidateEvents()
	c.InvalidateTestimonials()
}

// SplitEvents partitions a date-ordered list into upcoming/ongoing and
// completed/cancelled events, preserving order.
func SplitEvents(events []Event) (upcoming, past []Event) {
	for _, e := range events {
		if e.IsPast() {
			past = append(past, e)
		} else {
			upcoming = append(upcoming, e)
		}
	}
	return upcoming, past
}
