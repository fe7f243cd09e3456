package pgstore

import (
	"time"

	"github.com/google/uuid"

	"github.com/warpclub/clubsite"
)

type blogPost struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title            string    `gorm:"type:text;not null"`
	Author           string    `gorm:"type:text;not null"`
	Content          string    `gorm:"type:text;not null"`
	Excerpt          string    `gorm:"type:text"`
	Category         string    `gorm:"type:text;not null"`
	FeaturedImageURL string    `gorm:"type:text"`
	InstagramPostURL string    `gorm:"type:text"`
	Published        bool      `gorm:"not null;index:idx_blog_posts_published,priority:1"`
	CreatedAt        time.Time `gorm:"type:timestamptz;not null;index:idx_blog_posts_published,priority:2"`
	UpdatedAt        time.Time `gorm:"type:timestamptz;not null"`
}

func (blogPost) TableName() string { return "blog_posts" }

type event struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Title                string     `gorm:"type:text;not null"`
	Description          string     `gorm:"type:text;not null"`
	EventDate            *time.Time `gorm:"type:timestamptz;index"`
	Venue                string     `gorm:"type:text"`
	EventType            string     `gorm:"type:text;not null"`
	Status               string     `gorm:"type:text;not null;check:chk_events_status,status IN ('upcoming','ongoing','completed','cancelled')"`
	MaxParticipants      int        `gorm:"not null;check:chk_events_max_participants,max_participants >= 0"`
	CurrentParticipants  int        `gorm:"not null"`
	FeaturedImageURL     string     `gorm:"type:text"`
	RegistrationLink     string     `gorm:"type:text"`
	RegistrationDeadline *time.Time `gorm:"type:timestamptz"`
	ResultsURL           string     `gorm:"type:text"`
	CreatedAt            time.Time  `gorm:"type:timestamptz;not null"`
	UpdatedAt            time.Time  `gorm:"type:timestamptz;not null"`
}

func (event) TableName() string { return "events" }

type testimonial struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"type:text;not null"`
	Email     string    `gorm:"type:text"`
	Position  string    `gorm:"type:text"`
	Feedback  string    `gorm:"type:text;not null"`
	Rating    int       `gorm:"not null;check:chk_testimonials_rating,rating BETWEEN 0 AND 5"`
	Approved  bool      `gorm:"not null;index:idx_testimonials_approved,priority:1"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null;index:idx_testimonials_approved,priority:2"`
}

func (testimonial) TableName() string { return "testimonials" }

type account struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email        string    `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string    `gorm:"type:text;not null"`
	Role         string    `gorm:"type:text;not null;check:chk_accounts_role,role IN ('admin','member')"`
	CreatedAt    time.Time `gorm:"type:timestamptz;not null"`
}

func (account) TableName() string { return "accounts" }

type image struct {
	Filename     string    `gorm:"type:text;primaryKey"`
	OriginalName string    `gorm:"type:text;not null"`
	URL          string    `gorm:"type:text;not null"`
	Width        int       `gorm:"not null"`
	Height       int       `gorm:"not null"`
	Size         int       `gorm:"not null"`
	UploadedAt   time.Time `gorm:"type:timestamptz;not null"`
}

func (image) TableName() string { return "images" }

// models lists every table AutoMigrate manages.
var models = []any{&blogPost{}, &event{}, &testimonial{}, &account{}, &image{}}

func (m blogPost) domain() clubsite.BlogPost {
	return clubsite.BlogPost{
		ID:               m.ID.String(),
		Title:            m.Title,
		Author:           m.Author,
		Content:          m.Content,
		Excerpt:          m.Excerpt,
		Category:         m.Category,
		FeaturedImageURL: m.FeaturedImageURL,
		InstagramPostURL: m.InstagramPostURL,
		Published:        m.Published,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func fromBlogPost(id uuid.UUID, p *clubsite.BlogPost) blogPost {
	return blogPost{
		ID:               id,
		Title:            p.Title,
		Author:           p.Author,
		Content:          p.Content,
		Excerpt:          p.Excerpt,
		Category:         p.Category,
		FeaturedImageURL: p.FeaturedImageURL,
		InstagramPostURL: p.InstagramPostURL,
		Published:        p.Published,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func (m event) domain() clubsite.Event {
	return clubsite.Event{
		ID:                   m.ID.String(),
		Title:                m.Title,
		Description:          m.Description,
		EventDate:            m.EventDate,
		Venue:                m.Venue,
		EventType:            m.EventType,
		Status:               m.Status,
		MaxParticipants:      m.MaxParticipants,
		CurrentParticipants:  m.CurrentParticipants,
		FeaturedImageURL:     m.FeaturedImageURL,
		RegistrationLink:     m.RegistrationLink,
		RegistrationDeadline: m.RegistrationDeadline,
		ResultsURL:           m.ResultsURL,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

func fromEvent(id uuid.UUID, e *clubsite.Event) event {
	return event{
		ID:                   id,
		Title:                e.Title,
		Description:          e.Description,
		EventDate:            e.EventDate,
		Venue:                e.Venue,
		EventType:            e.EventType,
		Status:               e.Status,
		MaxParticipants:      e.MaxParticipants,
		CurrentParticipants:  e.CurrentParticipants,
		FeaturedImageURL:     e.FeaturedImageURL,
		RegistrationLink:     e.RegistrationLink,
		RegistrationDeadline: e.RegistrationDeadline,
		ResultsURL:           e.ResultsURL,
		CreatedAt:            e.CreatedAt,
		UpdatedAt:            e.UpdatedAt,
	}
}

func (m testimonial) domain() clubsite.Testimonial {
	return clubsite.Testimonial{
		ID:        m.ID.String(),
		Name:      m.Name,
		Email:     m.Email,
		Position:  m.Position,
		Feedback:  m.Feedback,
		Rating:    m.Rating,
		Approved:  m.Approved,
		CreatedAt: m.CreatedAt,
	}
}

func (m account) domain() clubsite.Account {
	return clubsite.Account{
		ID:           m.ID.String(),
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         m.Role,
		CreatedAt:    m.CreatedAt,
	}
}

func (m image) domain() clubsite.Image {
	return clubsite.Image{
		Filename:     m.Filename,
		OriginalName: m.OriginalName,
		URL:          m.URL,
		Width:        m.Width,
		Height:       m.Height,
		Size:         m.Size,
		UploadedAt:   m.UploadedAt,
	}
}

func mapSlice[M any, T any](rows []M, fn func(M) T) []T {
	if len(rows) == 0 {
		return nil
	}
	out := make([]T, len(rows))
	for i, r := range rows {
		out[i] = fn(r)
	}
	return out
}
