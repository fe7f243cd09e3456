// Package seed loads starter content into a clubsite.Backend.
//
// A seed directory looks like:
//
//	posts/*.md          blog posts with YAML front matter
//	events.yaml         a list of events
//	testimonials.yaml   a list of testimonials
//
// Every part is optional. Applying a bundle twice does not duplicate
// records: posts and events are matched by title, testimonials by name and
// feedback text.
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/warpclub/clubsite"
)

// DefaultAuthor is used for posts whose front matter has no author.
const DefaultAuthor = "WarP Team"

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Bundle is parsed seed content ready to apply.
type Bundle struct {
	Posts        []clubsite.BlogPost
	Events       []clubsite.Event
	Testimonials []clubsite.Testimonial
}

type postMatter struct {
	Title     string `yaml:"title"`
	Author    string `yaml:"author"`
	Category  string `yaml:"category"`
	Excerpt   string `yaml:"excerpt"`
	Image     string `yaml:"image"`
	Instagram string `yaml:"instagram"`
	Published *bool  `yaml:"published"`
	Date      string `yaml:"date"`
}

type eventEntry struct {
	Title                string `yaml:"title" validate:"required"`
	Description          string `yaml:"description" validate:"required"`
	Date                 string `yaml:"date"`
	Venue                string `yaml:"venue"`
	Type                 string `yaml:"type" validate:"required"`
	Status               string `yaml:"status" validate:"omitempty,oneof=upcoming ongoing completed cancelled"`
	MaxParticipants      int    `yaml:"max_participants" validate:"gte=0"`
	Image                string `yaml:"image"`
	RegistrationLink     string `yaml:"registration_link" validate:"omitempty,url"`
	RegistrationDeadline string `yaml:"registration_deadline"`
	ResultsURL           string `yaml:"results_url" validate:"omitempty,url"`
}

type testimonialEntry struct {
	Name     string `yaml:"name" validate:"required"`
	Email    string `yaml:"email" validate:"omitempty,email"`
	Position string `yaml:"position"`
	Feedback string `yaml:"feedback" validate:"required"`
	Rating   int    `yaml:"rating" validate:"gte=0,lte=5"`
	Approved bool   `yaml:"approved"`
}

// Load reads a seed directory.
func Load(fsys fs.FS) (Bundle, error) {
	var b Bundle
	var err error
	if b.Posts, err = LoadPosts(fsys, "posts"); err != nil {
		return Bundle{}, err
	}
	if b.Events, err = LoadEvents(fsys, "events.yaml"); err != nil {
		return Bundle{}, err
	}
	if b.Testimonials, err = LoadTestimonials(fsys, "testimonials.yaml"); err != nil {
		return Bundle{}, err
	}
	return b, nil
}

// LoadPosts parses every .md file in dir, sorted by file name. A missing
// dir yields no posts.
func LoadPosts(fsys fs.FS, dir string) ([]clubsite.BlogPost, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var posts []clubsite.BlogPost
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(path.Ext(e.Name()), ".md") {
			continue
		}
		name := path.Join(dir, e.Name())
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		p, err := parsePost(e.Name(), data)
		if err != nil {
			return nil, fmt.Errorf("seed: %s: %w", name, err)
		}
		posts = append(posts, p)
	}
	return posts, nil
}

func parsePost(filename string, data []byte) (clubsite.BlogPost, error) {
	var m postMatter
	body, err := frontmatter.Parse(bytes.NewReader(data), &m)
	if err != nil {
		return clubsite.BlogPost{}, err
	}
	content := strings.TrimSpace(string(body))
	if content == "" {
		return clubsite.BlogPost{}, errors.New("post has no content")
	}
	title := strings.TrimSpace(m.Title)
	if title == "" {
		base := strings.TrimSuffix(filename, path.Ext(filename))
		title = cases.Title(language.English).String(strings.NewReplacer("-", " ", "_", " ").Replace(base))
	}
	p := clubsite.BlogPost{
		Title:            title,
		Author:           strings.TrimSpace(m.Author),
		Content:          content,
		Excerpt:          strings.TrimSpace(m.Excerpt),
		Category:         strings.ToLower(strings.TrimSpace(m.Category)),
		FeaturedImageURL: m.Image,
		InstagramPostURL: m.Instagram,
		Published:        m.Published == nil || *m.Published,
	}
	if p.Author == "" {
		p.Author = DefaultAuthor
	}
	if m.Date != "" {
		d, err := parseDate(m.Date)
		if err != nil {
			return clubsite.BlogPost{}, err
		}
		p.CreatedAt = *d
	}
	return p, nil
}

// LoadEvents parses an events YAML list. A missing file yields no events.
func LoadEvents(fsys fs.FS, name string) ([]clubsite.Event, error) {
	var entries []eventEntry
	if err := readYAML(fsys, name, &entries); err != nil {
		return nil, err
	}
	var events []clubsite.Event
	for i, en := range entries {
		if err := validate.Struct(en); err != nil {
			return nil, fmt.Errorf("seed: %s entry %d: %w", name, i+1, err)
		}
		date, err := parseDate(en.Date)
		if err != nil {
			return nil, fmt.Errorf("seed: %s entry %d: %w", name, i+1, err)
		}
		deadline, err := parseDate(en.RegistrationDeadline)
		if err != nil {
			return nil, fmt.Errorf("seed: %s entry %d: %w", name, i+1, err)
		}
		status := en.Status
		if status == "" {
			status = clubsite.StatusUpcoming
		}
		events = append(events, clubsite.Event{
			Title:                en.Title,
			Description:          en.Description,
			EventDate:            date,
			Venue:                en.Venue,
			EventType:            en.Type,
			Status:               status,
			MaxParticipants:      en.MaxParticipants,
			FeaturedImageURL:     en.Image,
			RegistrationLink:     en.RegistrationLink,
			RegistrationDeadline: deadline,
			ResultsURL:           en.ResultsURL,
		})
	}
	return events, nil
}

// LoadTestimonials parses a testimonials YAML list. A missing file yields none.
func LoadTestimonials(fsys fs.FS, name string) ([]clubsite.Testimonial, error) {
	var entries []testimonialEntry
	if err := readYAML(fsys, name, &entries); err != nil {
		return nil, err
	}
	var out []clubsite.Testimonial
	for i, en := range entries {
		if err := validate.Struct(en); err != nil {
			return nil, fmt.Errorf("seed: %s entry %d: %w", name, i+1, err)
		}
		out = append(out, clubsite.Testimonial{
			Name:     en.Name,
			Email:    en.Email,
			Position: en.Position,
			Feedback: en.Feedback,
			Rating:   en.Rating,
			Approved: en.Approved,
		})
	}
	return out, nil
}

func readYAML(fsys fs.FS, name string, v any) error {
	data, err := fs.ReadFile(fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("seed: %s: %w", name, err)
	}
	return nil
}

func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognised date %q (want YYYY-MM-DD or YYYY-MM-DDTHH:MM)", s)
}

// Result counts what Apply wrote and skipped.
type Result struct {
	Posts        int
	Events       int
	Testimonials int
	Skipped      int
}

// Apply writes b to the backend, skipping records that already exist.
func Apply(ctx context.Context, backend clubsite.Backend, b Bundle, log zerolog.Logger) (Result, error) {
	var res Result

	posts, err := backend.ListBlogPosts(ctx, clubsite.PostFilter{})
	if err != nil {
		return res, fmt.Errorf("seed: list posts: %w", err)
	}
	havePost := make(map[string]bool, len(posts))
	for _, p := range posts {
		havePost[strings.ToLower(p.Title)] = true
	}
	for _, p := range b.Posts {
		if havePost[strings.ToLower(p.Title)] {
			res.Skipped++
			continue
		}
		if err := backend.CreateBlogPost(ctx, &p); err != nil {
			return res, fmt.Errorf("seed: post %q: %w", p.Title, err)
		}
		havePost[strings.ToLower(p.Title)] = true
		res.Posts++
		log.Debug().Str("id", p.ID).Str("title", p.Title).Msg("seeded post")
	}

	events, err := backend.ListEvents(ctx, clubsite.EventFilter{})
	if err != nil {
		return res, fmt.Errorf("seed: list events: %w", err)
	}
	haveEvent := make(map[string]bool, len(events))
	for _, e := range events {
		haveEvent[strings.ToLower(e.Title)] = true
	}
	for _, e := range b.Events {
		if haveEvent[strings.ToLower(e.Title)] {
			res.Skipped++
			continue
		}
		if err := backend.CreateEvent(ctx, &e); err != nil {
			return res, fmt.Errorf("seed: event %q: %w", e.Title, err)
		}
		haveEvent[strings.ToLower(e.Title)] = true
		res.Events++
		log.Debug().Str("id", e.ID).Str("title", e.Title).Msg("seeded event")
	}

	testimonials, err := backend.ListTestimonials(ctx, clubsite.TestimonialFilter{})
	if err != nil {
		return res, fmt.Errorf("seed: list testimonials: %w", err)
	}
	haveTestimonial := make(map[string]bool, len(testimonials))
	for _, t := range testimonials {
		haveTestimonial[t.Name+"\x00"+t.Feedback] = true
	}
	for _, t := range b.Testimonials {
		key := t.Name + "\x00" + t.Feedback
		if haveTestimonial[key] {
			res.Skipped++
			continue
		}
		approved := t.Approved
		if err := backend.CreateTestimonial(ctx, &t); err != nil {
			return res, fmt.Errorf("seed: testimonial from %q: %w", t.Name, err)
		}
		if approved {
			if err := backend.SetTestimonialApproved(ctx, t.ID, true); err != nil {
				return res, fmt.Errorf("seed: approve testimonial from %q: %w", t.Name, err)
			}
		}
		haveTestimonial[key] = true
		res.Testimonials++
	}

	log.Info().Int("posts", res.Posts).Int("events", res.Events).
		Int("testimonials", res.Testimonials).Int("skipped", res.Skipped).Msg("seed applied")
	return res, nil
}
