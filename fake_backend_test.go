package clubsite

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"
)

var errBackendDown = errors.New("backend unavailable")

// fakeBackend is an in-memory Backend that counts calls per method and can
// be told to fail.
type fakeBackend struct {
	mu           sync.Mutex
	calls        map[string]int
	failLists    bool
	failWrites   bool
	seq          int
	posts        map[string]BlogPost
	events       map[string]Event
	testimonials map[string]Testimonial
	accounts     map[string]Account
	images       map[string]Image
}

var _ Backend = (*fakeBackend)(nil)

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		calls:        make(map[string]int),
		posts:        make(map[string]BlogPost),
		events:       make(map[string]Event),
		testimonials: make(map[string]Testimonial),
		accounts:     make(map[string]Account),
		images:       make(map[string]Image),
	}
}

func (f *fakeBackend) called(name string) {
	f.calls[name]++
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeBackend) nextID() string {
	f.seq++
	return "id-" + strconv.Itoa(f.seq)
}

// stamp hands out strictly increasing creation times.
func (f *fakeBackend) stamp() time.Time {
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(f.seq) * time.Minute)
}

func (f *fakeBackend) ListBlogPosts(_ context.Context, flt PostFilter) ([]BlogPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called("ListBlogPosts")
	if f.failLists {
		return nil, errBackendDown
	}
	var out []BlogPost
	for _, p := range f.posts {
		if flt.PublishedOnly && !p.Published {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if flt.Limit > 0 && len(out) > flt.Limit {
		out = out[:flt.Limit]
	}
	return out, nil
}

func (f *fakeBackend) GetBlogPost(_ context.Context, id string) (BlogPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called("GetBlogPost")
	p, ok := f.posts[id]
	if !ok {
		return BlogPost{}, ErrNotFound
	}
	return p, nil
}

func (f *fakeBackend) CreateBlogPost(_ context.Context, p *BlogPost) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called("CreateBlogPost")
	if f.failWrites {
		return errBackendDown
	}
	if p.ID == "" {
		p.ID = f.nextID()
	}
	if p.Category == "" {
		p.Category = DefaultCategory
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = f.stamp()
	}
	f.posts[p.ID] = *p
	return nil
}

func (f *fakeBackend) UpdateBlogPost(_ context.Context, p *BlogPost) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called("UpdateBlogPost")
	if f.failWrites {
		return errBackendDown
	}
	old, ok := f.posts[p.ID]
	if !ok {
		return ErrNotFound
	}
	p.CreatedAt = old.CreatedAt
	f.posts[p.ID] = *p
	return nil
}

func (f *fakeBackend) DeleteBlogPost(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called("DeleteBlogPost")
	if _, ok := f.posts[id]; !ok {
		return ErrNotFound
	}
	delete(f.posts, id)
	return nil
}

func (f *fakeBackend) ListEvents(_ context.Context, flt EventFilter) ([]Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called("ListEvents")
	if f.failLists {
		return nil, errBackendDown
	}
	var out []Event
	for _, e := range f.events {
		if flt.Status != "" && e.Status != flt.Status {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if flt.Order == ByCreated {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		a, b := out[i].EventDate, out[j].EventDate
		switch {
		case a == nil && b == nil:
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.Before(*b)
	})
	if flt.Limit > 0 && len(out) > flt.Limit {
		out = out[:flt.Limit]
	}
	return out, nil
}

func (f *fakeBackend) GetEvent(_ context.Context, id string) (Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called("GetEvent")
	e, ok := f.events[id]
	if !ok {
		return Event{}, ErrNotFound
	}
	return e, nil
}

func (f *fakeBackend) CreateEvent(_ context.Context, e *Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called("CreateEvent")
	if f.failWrites {
		return errBackendDown
	}
	if e.ID == "" {
		e.ID = f.nextID()
	}
	if e.Status == "" {
		e.Status = StatusUpcoming
	}
	e.CurrentParticipants = 0
	if e.CreatedAt.IsZero() {
		e.CreatedAt = f.stamp()
	}
	f.events[e.ID] = *e
	return nil
}

func (f *fakeBackend) UpdateEvent(_ context.Context, e *Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called("UpdateEvent")
	if f.failWrites {
		return errBackendDown
	}
	old, ok := f.events[e.ID]
	if !ok {
		return ErrNotFound
	}
	e.CreatedAt = old.CreatedAt
	e.CurrentParticipants = old.CurrentParticipants
	f.events[e.ID] = *e
	return nil
}

func (f *fakeBackend) DeleteEvent(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called("DeleteEvent")
	if _, ok := f.events[id]; !ok {
		return ErrNotFound
	}
	delete(f.events, id)
	return nil
}

func (f *fakeBackend) ListTestimonials(_ context.Context, flt TestimonialFilter) ([]Testimonial, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called("ListTestimonials")
	if f.failLists {
		return nil, errBackendDown
	}
	var out []Testimonial
	for _, t := range f.testimonials {
		if flt.ApprovedOnly && !t.Approved {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if flt.Limit > 0 && len(out) > flt.Limit {
		out = out[:flt.Limit]
	}
	return out, nil
}

func (f *fakeBackend) CreateTestimonial(_ context.Context, t *Testimonial) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called("CreateTestimonial")
	if f.failWrites {
		return errBackendDown
	}
	if t.ID == "" {
		t.ID = f.nextID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = f.stamp()
	}
	// Record what the caller asked for so tests can check it.
	f.testimonials[t.ID] = *t
	return nil
}

func (f *fakeBackend) SetTestimonialApproved(_ context.Context, id string, approved bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called("SetTestimonialApproved")
	if f.failWrites {
		return errBackendDown
	}
	t, ok := f.testimonials[id]
	if !ok {
		return ErrNotFound
	}
	t.Approved = approved
	f.testimonials[id] = t
	return nil
}

func (f *fakeBackend) DeleteTestimonial(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called("DeleteTestimonial")
	if _, ok := f.testimonials[id]; !ok {
		return ErrNotFound
	}
	delete(f.testimonials, id)
	return nil
}

func (f *fakeBackend) Counts(_ context.Context) (Counts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called("Counts")
	if f.failLists {
		return Counts{}, errBackendDown
	}
	var c Counts
	for _, p := range f.posts {
		c.BlogPosts++
		if p.Published {
			c.PublishedPosts++
		}
	}
	for _, e := range f.events {
		c.Events++
		if !e.IsPast() {
			c.UpcomingEvents++
		}
	}
	for _, t := range f.testimonials {
		c.Testimonials++
		if !t.Approved {
			c.PendingTestimonials++
		}
	}
	return c, nil
}

func (f *fakeBackend) CreateAccount(_ context.Context, acc *Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called("CreateAccount")
	acc.Email = normalizeEmail(acc.Email)
	if _, ok := f.accounts[acc.Email]; ok {
		return ErrDuplicate
	}
	if acc.ID == "" {
		acc.ID = f.nextID()
	}
	if acc.Role == "" {
		acc.Role = RoleMember
	}
	f.accounts[acc.Email] = *acc
	return nil
}

func (f *fakeBackend) GetAccountByEmail(_ context.Context, email string) (Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called("GetAccountByEmail")
	acc, ok := f.accounts[normalizeEmail(email)]
	if !ok {
		return Account{}, ErrNotFound
	}
	return acc, nil
}

func (f *fakeBackend) ListImages(_ context.Context) ([]Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called("ListImages")
	var out []Image
	for _, img := range f.images {
		out = append(out, img)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out, nil
}

func (f *fakeBackend) SaveImage(_ context.Context, img Image) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called("SaveImage")
	if f.failWrites {
		return errBackendDown
	}
	f.images[img.Filename] = img
	return nil
}

func (f *fakeBackend) DeleteImage(_ context.Context, filename string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called("DeleteImage")
	delete(f.images, filename)
	return nil
}

func (f *fakeBackend) Close() error { return nil }
