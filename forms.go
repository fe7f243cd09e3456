package clubsite

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// FeedbackForm is a visitor testimonial submission.
type FeedbackForm struct {
	Name     string `form:"name" validate:"required,max=100"`
	Email    string `form:"email" validate:"omitempty,email,max=200"`
	Position string `form:"position" validate:"max=100"`
	Feedback string `form:"feedback" validate:"required,max=2000"`
	Rating   int    `form:"rating" validate:"min=0,max=5"`
	Next     string `form:"next"`
}

func (f *FeedbackForm) trim() {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Position = strings.TrimSpace(f.Position)
	f.Feedback = strings.TrimSpace(f.Feedback)
}

// PostForm is the admin blog post editor.
type PostForm struct {
	ID               string `form:"id"`
	Title            string `form:"title" validate:"required,max=200"`
	Author           string `form:"author" validate:"required,max=100"`
	Content          string `form:"content" validate:"required"`
	Excerpt          string `form:"excerpt" validate:"max=500"`
	Category         string `form:"category" validate:"max=50"`
	FeaturedImageURL string `form:"featured_image_url" validate:"omitempty,uri"`
	InstagramPostURL string `form:"instagram_post_url" validate:"omitempty,url"`
	Published        bool   `form:"published"`
}

func postFormFrom(p BlogPost) PostForm {
	return PostForm{
		ID:               p.ID,
		Title:            p.Title,
		Author:           p.Author,
		Content:          p.Content,
		Excerpt:          p.Excerpt,
		Category:         p.Category,
		FeaturedImageURL: p.FeaturedImageURL,
		InstagramPostURL: p.InstagramPostURL,
		Published:        p.Published,
	}
}

func (f *PostForm) trim() {
	f.ID = strings.TrimSpace(f.ID)
	f.Title = strings.TrimSpace(f.Title)
	f.Author = strings.TrimSpace(f.Author)
	f.Excerpt = strings.TrimSpace(f.Excerpt)
	f.Category = strings.ToLower(strings.TrimSpace(f.Category))
	f.FeaturedImageURL = strings.TrimSpace(f.FeaturedImageURL)
	f.InstagramPostURL = strings.TrimSpace(f.InstagramPostURL)
}

func (f PostForm) post() BlogPost {
	return BlogPost{
		ID:               f.ID,
		Title:            f.Title,
		Author:           f.Author,
		Content:          f.Content,
		Excerpt:          f.Excerpt,
		Category:         f.Category,
		FeaturedImageURL: f.FeaturedImageURL,
		InstagramPostURL: f.InstagramPostURL,
		Published:        f.Published,
	}
}

// EventForm is the admin event editor. Dates use the datetime-local format.
type EventForm struct {
	ID                   string `form:"id"`
	Title                string `form:"title" validate:"required,max=200"`
	Description          string `form:"description" validate:"required"`
	EventType            string `form:"event_type" validate:"required,max=50"`
	EventDate            string `form:"event_date"`
	Venue                string `form:"venue" validate:"max=200"`
	Status               string `form:"status" validate:"omitempty,oneof=upcoming ongoing completed cancelled"`
	MaxParticipants      int    `form:"max_participants" validate:"min=0"`
	FeaturedImageURL     string `form:"featured_image_url" validate:"omitempty,uri"`
	RegistrationLink     string `form:"registration_link" validate:"omitempty,url"`
	RegistrationDeadline string `form:"registration_deadline"`
	ResultsURL           string `form:"results_url" validate:"omitempty,url"`
}

// formDateLayout matches <input type="datetime-local">.
const formDateLayout = "2006-01-02T15:04"

func formDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(formDateLayout)
}

// parseFormDate accepts datetime-local values or a bare date. Empty means unset.
func parseFormDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{formDateLayout, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q", s)
}

func eventFormFrom(e Event) EventForm {
	return EventForm{
		ID:                   e.ID,
		Title:                e.Title,
		Description:          e.Description,
		EventType:            e.EventType,
		EventDate:            formDate(e.EventDate),
		Venue:                e.Venue,
		Status:               e.Status,
		MaxParticipants:      e.MaxParticipants,
		FeaturedImageURL:     e.FeaturedImageURL,
		RegistrationLink:     e.RegistrationLink,
		RegistrationDeadline: formDate(e.RegistrationDeadline),
		ResultsURL:           e.ResultsURL,
	}
}

func (f *EventForm) trim() {
	f.ID = strings.TrimSpace(f.ID)
	f.Title = strings.TrimSpace(f.Title)
	f.EventType = strings.TrimSpace(f.EventType)
	f.Venue = strings.TrimSpace(f.Venue)
	f.Status = strings.TrimSpace(f.Status)
	f.FeaturedImageURL = strings.TrimSpace(f.FeaturedImageURL)
	f.RegistrationLink = strings.TrimSpace(f.RegistrationLink)
	f.ResultsURL = strings.TrimSpace(f.ResultsURL)
}

// event converts the form, collecting date errors keyed by field.
func (f EventForm) event() (Event, map[string]string) {
	errs := map[string]string{}
	date, err := parseFormDate(f.EventDate)
	if err != nil {
		errs["event_date"] = "Enter a valid date."
	}
	deadline, err := parseFormDate(f.RegistrationDeadline)
	if err != nil {
		errs["registration_deadline"] = "Enter a valid date."
	}
	return Event{
		ID:                   f.ID,
		Title:                f.Title,
		Description:          f.Description,
		EventType:            f.EventType,
		EventDate:            date,
		Venue:                f.Venue,
		Status:               f.Status,
		MaxParticipants:      f.MaxParticipants,
		FeaturedImageURL:     f.FeaturedImageURL,
		RegistrationLink:     f.RegistrationLink,
		RegistrationDeadline: deadline,
		ResultsURL:           f.ResultsURL,
	}, errs
}

// ContactForm is the public contact page.
type ContactForm struct {
	Name    string `form:"name" validate:"required,max=100"`
	Email   string `form:"email" validate:"required,email"`
	Subject string `form:"subject" validate:"required,max=200"`
	Message string `form:"message" validate:"required,max=5000"`
}

func (f *ContactForm) trim() {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Subject = strings.TrimSpace(f.Subject)
	f.Message = strings.TrimSpace(f.Message)
}

// AuthForm is used for both sign-in and sign-up.
type AuthForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required,min=6,max=72"`
	Next     string `form:"next"`
}

// formValidator adapts validator to echo.Validator.
type formValidator struct {
	v *validator.Validate
}

func newFormValidator() *formValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("form"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return &formValidator{v: v}
}

func (fv *formValidator) Validate(i any) error {
	return fv.v.Struct(i)
}

// fieldErrors maps validation failures to user-facing messages keyed by form
// field name. Non-validation errors yield nil.
func fieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "url", "uri":
		return "Enter a valid URL."
	case "oneof":
		return "Choose one of: " + strings.ReplaceAll(fe.Param(), " ", ", ") + "."
	case "min":
		if fe.Kind() == reflect.String {
			return "Must be at least " + fe.Param() + " characters."
		}
		return "Must be " + fe.Param() + " or more."
	case "max":
		if fe.Kind() == reflect.String {
			return "Must be at most " + fe.Param() + " characters."
		}
		return "Must be " + fe.Param() + " or less."
	default:
		return "Invalid value."
	}
}
