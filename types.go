package clubsite

import "time"

// Event statuses accepted by the events table.
const (
	StatusUpcoming  = "upcoming"
	StatusOngoing   = "ongoing"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Account roles.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// DefaultCategory is assigned to blog posts created without one.
const DefaultCategory = "announcement"

// BlogPost is a club announcement or article. Content is markdown.
type BlogPost struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Author           string    `json:"author"`
	Content          string    `json:"content"`
	Excerpt          string    `json:"excerpt,omitempty"`
	Category         string    `json:"category"`
	FeaturedImageURL string    `json:"featured_image_url,omitempty"`
	InstagramPostURL string    `json:"instagram_post_url,omitempty"`
	Published        bool      `json:"published"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Link returns the public URL path of the post.
func (p BlogPost) Link() string {
	return "/blog/" + p.ID + "/"
}

// Event is a club competition, workshop or meetup. A nil EventDate means
// the date has not been announced yet.
type Event struct {
	ID                   string     `json:"id"`
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	EventDate            *time.Time `json:"event_date,omitempty"`
	Venue                string     `json:"venue,omitempty"`
	EventType            string     `json:"event_type"`
	Status               string     `json:"status"`
	MaxParticipants      int        `json:"max_participants"`
	CurrentParticipants  int        `json:"current_participants"`
	FeaturedImageURL     string     `json:"featured_image_url,omitempty"`
	RegistrationLink     string     `json:"registration_link,omitempty"`
	RegistrationDeadline *time.Time `json:"registration_deadline,omitempty"`
	ResultsURL           string     `json:"results_url,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// IsPast reports whether the event is finished or called off.
func (e Event) IsPast() bool {
	return e.Status == StatusCompleted || e.Status == StatusCancelled
}

// RegistrationOpen reports whether visitors can still sign up at now.
func (e Event) RegistrationOpen(now time.Time) bool {
	if e.RegistrationLink == "" || e.IsPast() {
		return false
	}
	if e.RegistrationDeadline != nil && now.After(*e.RegistrationDeadline) {
		return false
	}
	return e.MaxParticipants == 0 || e.CurrentParticipants < e.MaxParticipants
}

// Testimonial is visitor feedback. It is only shown publicly once approved.
type Testimonial struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Position  string    `json:"position,omitempty"`
	Feedback  string    `json:"feedback"`
	Rating    int       `json:"rating"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"created_at"`
}

// Account is a signed-up user. Only RoleAdmin may use the admin panel.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// Image is an uploaded featured image.
type Image struct {
	Filename     string
	OriginalName string
	URL          string
	Width        int
	Height       int
	Size         int
	UploadedAt   time.Time
}

// Counts backs the admin dashboard stat cards.
type Counts struct {
	BlogPosts           int
	PublishedPosts      int
	Events              int
	UpcomingEvents      int
	Testimonials        int
	PendingTestimonials int
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string
}
