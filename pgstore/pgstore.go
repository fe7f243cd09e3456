// Package pgstore is a clubsite.Backend on Postgres through GORM. It works
// against a hosted Supabase database as well as a plain Postgres server.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/warpclub/clubsite"
)

// Config locates the database. DSN wins when set; otherwise the
// connection string is built from the individual fields.
type Config struct {
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string // default "require", as Supabase expects

	AutoMigrate bool
	SlowQuery   time.Duration
}

// ConnString returns the connection string GORM's postgres driver gets.
func (c Config) ConnString() (string, error) {
	if c.DSN != "" {
		return c.DSN, nil
	}
	if c.Host == "" || c.User == "" || c.Name == "" {
		return "", errors.New("pgstore: host, user and database name are required")
	}
	port := c.Port
	if port == 0 {
		port = 5432
	}
	ssl := c.SSLMode
	if ssl == "" {
		ssl = "require"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + strconv.Itoa(port),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {ssl}}.Encode(),
	}
	return u.String(), nil
}

// Store implements clubsite.Backend.
type Store struct {
	db *gorm.DB
}

var _ clubsite.Backend = (*Store)(nil)

// Open connects, pings and optionally migrates the schema.
func Open(ctx context.Context, cfg Config, log zerolog.Logger) (*Store, error) {
	dsn, err := cfg.ConnString()
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), gormConfig(log, cfg.SlowQuery))
	if err != nil {
		return nil, fmt.Errorf("pgstore: open: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("pgstore: open: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pgstore: ping: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	s := New(db)
	if cfg.AutoMigrate {
		if err := s.Migrate(ctx); err != nil {
			sqlDB.Close()
			return nil, err
		}
	}
	return s, nil
}

func gormConfig(log zerolog.Logger, slow time.Duration) *gorm.Config {
	return &gorm.Config{
		Logger:         newLogger(log, slow),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
}

// New wraps an already opened GORM handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the tables.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(models...); err != nil {
		return fmt.Errorf("pgstore: migrate: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// parseID maps malformed ids to ErrNotFound; they can never match a row.
func parseID(id string) (uuid.UUID, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("id %q: %w", id, clubsite.ErrNotFound)
	}
	return u, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return clubsite.ErrNotFound
	}
	return err
}

func affected(tx *gorm.DB) error {
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return clubsite.ErrNotFound
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ListBlogPosts returns posts newest first.
func (s *Store) ListBlogPosts(ctx context.Context, f clubsite.PostFilter) ([]clubsite.BlogPost, error) {
	q := s.db.WithContext(ctx).Model(&blogPost{})
	if f.PublishedOnly {
		q = q.Where("published = ?", true)
	}
	q = q.Order("created_at DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var rows []blogPost
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return mapSlice(rows, blogPost.domain), nil
}

// GetBlogPost returns a post regardless of published status.
func (s *Store) GetBlogPost(ctx context.Context, id string) (clubsite.BlogPost, error) {
	uid, err := parseID(id)
	if err != nil {
		return clubsite.BlogPost{}, err
	}
	var row blogPost
	if err := s.db.WithContext(ctx).First(&row, "id = ?", uid).Error; err != nil {
		return clubsite.BlogPost{}, notFound(err)
	}
	return row.domain(), nil
}

// CreateBlogPost inserts p and fills in its id and timestamps.
func (s *Store) CreateBlogPost(ctx context.Context, p *clubsite.BlogPost) error {
	uid := uuid.New()
	if p.ID != "" {
		var err error
		if uid, err = uuid.Parse(p.ID); err != nil {
			return fmt.Errorf("pgstore: post id %q is not a uuid", p.ID)
		}
	}
	if p.Category == "" {
		p.Category = clubsite.DefaultCategory
	}
	row := fromBlogPost(uid, p)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	*p = row.domain()
	return nil
}

// UpdateBlogPost overwrites the editable fields of the post with p.ID.
func (s *Store) UpdateBlogPost(ctx context.Context, p *clubsite.BlogPost) error {
	uid, err := parseID(p.ID)
	if err != nil {
		return err
	}
	if p.Category == "" {
		p.Category = clubsite.DefaultCategory
	}
	p.UpdatedAt = time.Now().UTC()
	return affected(s.db.WithContext(ctx).Model(&blogPost{}).Where("id = ?", uid).Updates(map[string]any{
		"title":              p.Title,
		"author":             p.Author,
		"content":            p.Content,
		"excerpt":            p.Excerpt,
		"category":           p.Category,
		"featured_image_url": p.FeaturedImageURL,
		"instagram_post_url": p.InstagramPostURL,
		"published":          p.Published,
		"updated_at":         p.UpdatedAt,
	}))
}

// DeleteBlogPost removes a post.
func (s *Store) DeleteBlogPost(ctx context.Context, id string) error {
	uid, err := parseID(id)
	if err != nil {
		return err
	}
	return affected(s.db.WithContext(ctx).Delete(&blogPost{}, "id = ?", uid))
}

// ListEvents returns events in the order requested by f.
func (s *Store) ListEvents(ctx context.Context, f clubsite.EventFilter) ([]clubsite.Event, error) {
	q := s.db.WithContext(ctx).Model(&event{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	switch f.Order {
	case clubsite.ByCreated:
		q = q.Order("created_at DESC")
	default:
		q = q.Order("event_date ASC NULLS LAST").Order("created_at ASC")
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var rows []event
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return mapSlice(rows, event.domain), nil
}

// GetEvent returns an event by id.
func (s *Store) GetEvent(ctx context.Context, id string) (clubsite.Event, error) {
	uid, err := parseID(id)
	if err != nil {
		return clubsite.Event{}, err
	}
	var row event
	if err := s.db.WithContext(ctx).First(&row, "id = ?", uid).Error; err != nil {
		return clubsite.Event{}, notFound(err)
	}
	return row.domain(), nil
}

// CreateEvent inserts e with zero current participants.
func (s *Store) CreateEvent(ctx context.Context, e *clubsite.Event) error {
	uid := uuid.New()
	if e.ID != "" {
		var err error
		if uid, err = uuid.Parse(e.ID); err != nil {
			return fmt.Errorf("pgstore: event id %q is not a uuid", e.ID)
		}
	}
	if e.Status == "" {
		e.Status = clubsite.StatusUpcoming
	}
	e.CurrentParticipants = 0
	row := fromEvent(uid, e)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	*e = row.domain()
	return nil
}

// UpdateEvent overwrites the editable fields of the event with e.ID.
// current_participants is left untouched.
func (s *Store) UpdateEvent(ctx context.Context, e *clubsite.Event) error {
	uid, err := parseID(e.ID)
	if err != nil {
		return err
	}
	if e.Status == "" {
		e.Status = clubsite.StatusUpcoming
	}
	e.UpdatedAt = time.Now().UTC()
	return affected(s.db.WithContext(ctx).Model(&event{}).Where("id = ?", uid).Updates(map[string]any{
		"title":                 e.Title,
		"description":           e.Description,
		"event_date":            e.EventDate,
		"venue":                 e.Venue,
		"event_type":            e.EventType,
		"status":                e.Status,
		"max_participants":      e.MaxParticipants,
		"featured_image_url":    e.FeaturedImageURL,
		"registration_link":     e.RegistrationLink,
		"registration_deadline": e.RegistrationDeadline,
		"results_url":           e.ResultsURL,
		"updated_at":            e.UpdatedAt,
	}))
}

// DeleteEvent removes an event.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	uid, err := parseID(id)
	if err != nil {
		return err
	}
	return affected(s.db.WithContext(ctx).Delete(&event{}, "id = ?", uid))
}

// ListTestimonials returns testimonials newest first.
func (s *Store) ListTestimonials(ctx context.Context, f clubsite.TestimonialFilter) ([]clubsite.Testimonial, error) {
	q := s.db.WithContext(ctx).Model(&testimonial{})
	if f.ApprovedOnly {
		q = q.Where("approved = ?", true)
	}
	q = q.Order("created_at DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var rows []testimonial
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return mapSlice(rows, testimonial.domain), nil
}

// CreateTestimonial inserts t as unapproved whatever t.Approved says.
func (s *Store) CreateTestimonial(ctx context.Context, t *clubsite.Testimonial) error {
	row := testimonial{
		ID:        uuid.New(),
		Name:      t.Name,
		Email:     t.Email,
		Position:  t.Position,
		Feedback:  t.Feedback,
		Rating:    t.Rating,
		CreatedAt: t.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	*t = row.domain()
	return nil
}

// SetTestimonialApproved approves (true) or archives (false) a testimonial.
func (s *Store) SetTestimonialApproved(ctx context.Context, id string, approved bool) error {
	uid, err := parseID(id)
	if err != nil {
		return err
	}
	return affected(s.db.WithContext(ctx).Model(&testimonial{}).Where("id = ?", uid).Update("approved", approved))
}

// DeleteTestimonial removes a testimonial.
func (s *Store) DeleteTestimonial(ctx context.Context, id string) error {
	uid, err := parseID(id)
	if err != nil {
		return err
	}
	return affected(s.db.WithContext(ctx).Delete(&testimonial{}, "id = ?", uid))
}

// Counts returns the admin dashboard totals.
func (s *Store) Counts(ctx context.Context) (clubsite.Counts, error) {
	db := s.db.WithContext(ctx)
	counts := []struct {
		model any
		where string
		args  []any
	}{
		{&blogPost{}, "", nil},
		{&blogPost{}, "published = ?", []any{true}},
		{&event{}, "", nil},
		{&event{}, "status IN ?", []any{[]string{clubsite.StatusUpcoming, clubsite.StatusOngoing}}},
		{&testimonial{}, "", nil},
		{&testimonial{}, "approved = ?", []any{false}},
	}
	var c clubsite.Counts
	dsts := []*int{&c.BlogPosts, &c.PublishedPosts, &c.Events, &c.UpcomingEvents, &c.Testimonials, &c.PendingTestimonials}
	for i, q := range counts {
		tx := db.Model(q.model)
		if q.where != "" {
			tx = tx.Where(q.where, q.args...)
		}
		var n int64
		if err := tx.Count(&n).Error; err != nil {
			return clubsite.Counts{}, err
		}
		*dsts[i] = int(n)
	}
	return c, nil
}

// CreateAccount inserts acc with its email lower-cased.
func (s *Store) CreateAccount(ctx context.Context, acc *clubsite.Account) error {
	if acc.Role == "" {
		acc.Role = clubsite.RoleMember
	}
	row := account{
		ID:           uuid.New(),
		Email:        normalizeEmail(acc.Email),
		PasswordHash: acc.PasswordHash,
		Role:         acc.Role,
		CreatedAt:    acc.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("account %s: %w", row.Email, clubsite.ErrDuplicate)
		}
		return err
	}
	*acc = row.domain()
	return nil
}

// GetAccountByEmail looks an account up by case-insensitive email.
func (s *Store) GetAccountByEmail(ctx context.Context, email string) (clubsite.Account, error) {
	var row account
	if err := s.db.WithContext(ctx).First(&row, "email = ?", normalizeEmail(email)).Error; err != nil {
		return clubsite.Account{}, notFound(err)
	}
	return row.domain(), nil
}

// ListImages returns uploaded images, newest first.
func (s *Store) ListImages(ctx context.Context) ([]clubsite.Image, error) {
	var rows []image
	if err := s.db.WithContext(ctx).Order("uploaded_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return mapSlice(rows, image.domain), nil
}

// SaveImage upserts image metadata keyed by filename.
func (s *Store) SaveImage(ctx context.Context, img clubsite.Image) error {
	if img.UploadedAt.IsZero() {
		img.UploadedAt = time.Now().UTC()
	}
	row := image{
		Filename:     img.Filename,
		OriginalName: img.OriginalName,
		URL:          img.URL,
		Width:        img.Width,
		Height:       img.Height,
		Size:         img.Size,
		UploadedAt:   img.UploadedAt,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

// DeleteImage removes image metadata. Missing rows are not an error.
func (s *Store) DeleteImage(ctx context.Context, filename string) error {
	return s.db.WithContext(ctx).Delete(&image{}, "filename = ?", filename).Error
}
