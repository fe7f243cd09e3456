package clubsite

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique key (account email) is taken.
	ErrDuplicate = errors.New("already exists")
)

// PostFilter selects blog posts. Results are ordered newest first.
type PostFilter struct {
	PublishedOnly bool
	Limit         int
}

// EventOrder selects the sort order of an event listing.
type EventOrder int

const (
	// ByEventDate sorts by event date ascending, undated events last.
	ByEventDate EventOrder = iota
	// ByCreated sorts by creation time, newest first.
	ByCreated
)

// EventFilter selects events.
type EventFilter struct {
	Status string
	Order  EventOrder
	Limit  int
}

// TestimonialFilter selects testimonials. Results are ordered newest first.
type TestimonialFilter struct {
	ApprovedOnly bool
	Limit        int
}

// Backend is the storage collaborator behind every data operation. Store
// (SQLite) and pgstore.Store (Postgres / Supabase) implement it.
type Backend interface {
	ListBlogPosts(ctx context.Context, f PostFilter) ([]BlogPost, error)
	GetBlogPost(ctx context.Context, id string) (BlogPost, error)
	CreateBlogPost(ctx context.Context, p *BlogPost) error
	UpdateBlogPost(ctx context.Context, p *BlogPost) error
	DeleteBlogPost(ctx context.Context, id string) error

	ListEvents(ctx context.Context, f EventFilter) ([]Event, error)
	GetEvent(ctx context.Context, id string) (Event, error)
	CreateEvent(ctx context.Context, e *Event) error
	UpdateEvent(ctx context.Context, e *Event) error
	DeleteEvent(ctx context.Context, id string) error

	ListTestimonials(ctx context.Context, f TestimonialFilter) ([]Testimonial, error)
	// CreateTestimonial always stores the testimonial unapproved.
	CreateTestimonial(ctx context.Context, t *Testimonial) error
	SetTestimonialApproved(ctx context.Context, id string, approved bool) error
	DeleteTestimonial(ctx context.Context, id string) error

	Counts(ctx context.Context) (Counts, error)

	CreateAccount(ctx context.Context, acc *Account) error
	GetAccountByEmail(ctx context.Context, email string) (Account, error)

	ListImages(ctx context.Context) ([]Image, error)
	SaveImage(ctx context.Context, img Image) error
	DeleteImage(ctx context.Context, filename string) error

	Close() error
}
