package clubsite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// tsLayout is fixed width so stored timestamps sort lexically.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is the embedded SQLite Backend.
type Store struct {
	db *sql.DB
}

var _ Backend = (*Store)(nil)

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and creates the schema.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets readers proceed during writes; busy_timeout makes writers
	// wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA foreign_keys=ON;
		PRAGMA cache_size=-8000;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS blog_posts (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    author TEXT NOT NULL,
    content TEXT NOT NULL,
    excerpt TEXT,
    category TEXT NOT NULL DEFAULT 'announcement',
    featured_image_url TEXT,
    instagram_post_url TEXT,
    published INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_blog_posts_published ON blog_posts(published, created_at);

CREATE TABLE IF NOT EXISTS events (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT NOT NULL,
    event_date TEXT,
    venue TEXT,
    event_type TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'upcoming'
        CHECK (status IN ('upcoming', 'ongoing', 'completed', 'cancelled')),
    max_participants INTEGER NOT NULL DEFAULT 0 CHECK (max_participants >= 0),
    current_participants INTEGER NOT NULL DEFAULT 0,
    featured_image_url TEXT,
    registration_link TEXT,
    registration_deadline TEXT,
    results_url TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_date ON events(event_date);

CREATE TABLE IF NOT EXISTS testimonials (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT,
    position TEXT,
    feedback TEXT NOT NULL,
    rating INTEGER NOT NULL DEFAULT 0 CHECK (rating BETWEEN 0 AND 5),
    approved INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_testimonials_approved ON testimonials(approved, created_at);

CREATE TABLE IF NOT EXISTS accounts (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'member' CHECK (role IN ('admin', 'member')),
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS images (
    filename TEXT PRIMARY KEY,
    original_name TEXT NOT NULL,
    url TEXT NOT NULL,
    width INTEGER NOT NULL,
    height INTEGER NOT NULL,
    size INTEGER NOT NULL,
    uploaded_at TEXT NOT NULL
);
`)
	return err
}

func formatTS(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

func parseTS(s string) time.Time {
	t, err := time.Parse(tsLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullTS(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTS(*t), Valid: true}
}

func tsPtr(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTS(ns.String)
	return &t
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func checkAffected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

const postColumns = `id, title, author, content, excerpt, category, featured_image_url, instagram_post_url, published, created_at, updated_at`

func scanPost(sc scanner) (BlogPost, error) {
	var p BlogPost
	var excerpt, image, instagram sql.NullString
	var published int
	var created, updated string
	if err := sc.Scan(&p.ID, &p.Title, &p.Author, &p.Content, &excerpt, &p.Category,
		&image, &instagram, &published, &created, &updated); err != nil {
		return BlogPost{}, err
	}
	p.Excerpt = excerpt.String
	p.FeaturedImageURL = image.String
	p.InstagramPostURL = instagram.String
	p.Published = published == 1
	p.CreatedAt = parseTS(created)
	p.UpdatedAt = parseTS(updated)
	return p, nil
}

// ListBlogPosts returns posts ordered by created_at descending.
func (s *Store) ListBlogPosts(ctx context.Context, f PostFilter) ([]BlogPost, error) {
	q := `SELECT ` + postColumns + ` FROM blog_posts`
	var args []any
	if f.PublishedOnly {
		q += ` WHERE published = 1`
	}
	q += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []BlogPost
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// GetBlogPost returns a post by id regardless of published status.
func (s *Store) GetBlogPost(ctx context.Context, id string) (BlogPost, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM blog_posts WHERE id = ?`, id)
	p, err := scanPost(row)
	if err != nil {
		return BlogPost{}, notFound(err)
	}
	return p, nil
}

// CreateBlogPost inserts p, assigning its id and timestamps.
func (s *Store) CreateBlogPost(ctx context.Context, p *BlogPost) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Category == "" {
		p.Category = DefaultCategory
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `INSERT INTO blog_posts (`+postColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Author, p.Content, nullStr(p.Excerpt), p.Category,
		nullStr(p.FeaturedImageURL), nullStr(p.InstagramPostURL), boolInt(p.Published),
		formatTS(p.CreatedAt), formatTS(p.UpdatedAt))
	return err
}

// UpdateBlogPost overwrites the editable fields of the post with p.ID.
func (s *Store) UpdateBlogPost(ctx context.Context, p *BlogPost) error {
	if p.Category == "" {
		p.Category = DefaultCategory
	}
	p.UpdatedAt = time.Now().UTC()
	return checkAffected(s.db.ExecContext(ctx, `UPDATE blog_posts SET title = ?, author = ?, content = ?, excerpt = ?, category = ?,
		featured_image_url = ?, instagram_post_url = ?, published = ?, updated_at = ? WHERE id = ?`,
		p.Title, p.Author, p.Content, nullStr(p.Excerpt), p.Category,
		nullStr(p.FeaturedImageURL), nullStr(p.InstagramPostURL), boolInt(p.Published),
		formatTS(p.UpdatedAt), p.ID))
}

// DeleteBlogPost removes a post by id.
func (s *Store) DeleteBlogPost(ctx context.Context, id string) error {
	return checkAffected(s.db.ExecContext(ctx, `DELETE FROM blog_posts WHERE id = ?`, id))
}

const eventColumns = `id, title, description, event_date, venue, event_type, status, max_participants, current_participants,
	featured_image_url, registration_link, registration_deadline, results_url, created_at, updated_at`

func scanEvent(sc scanner) (Event, error) {
	var e Event
	var date, venue, image, link, deadline, results sql.NullString
	var created, updated string
	if err := sc.Scan(&e.ID, &e.Title, &e.Description, &date, &venue, &e.EventType, &e.Status,
		&e.MaxParticipants, &e.CurrentParticipants, &image, &link, &deadline, &results,
		&created, &updated); err != nil {
		return Event{}, err
	}
	e.EventDate = tsPtr(date)
	e.Venue = venue.String
	e.FeaturedImageURL = image.String
	e.RegistrationLink = link.String
	e.RegistrationDeadline = tsPtr(deadline)
	e.ResultsURL = results.String
	e.CreatedAt = parseTS(created)
	e.UpdatedAt = parseTS(updated)
	return e, nil
}

// ListEvents returns events in the order requested by f.
func (s *Store) ListEvents(ctx context.Context, f EventFilter) ([]Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events`
	var args []any
	if f.Status != "" {
		q += ` WHERE status = ?`
		args = append(args, f.Status)
	}
	switch f.Order {
	case ByCreated:
		q += ` ORDER BY created_at DESC`
	default:
		q += ` ORDER BY event_date IS NULL, event_date ASC, created_at ASC`
	}
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetEvent returns an event by id.
func (s *Store) GetEvent(ctx context.Context, id string) (Event, error) {
	e, err := scanEvent(s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	if err != nil {
		return Event{}, notFound(err)
	}
	return e, nil
}

// CreateEvent inserts e with zero current participants.
func (s *Store) CreateEvent(ctx context.Context, e *Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Status == "" {
		e.Status = StatusUpcoming
	}
	e.CurrentParticipants = 0
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `INSERT INTO events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Title, e.Description, nullTS(e.EventDate), nullStr(e.Venue), e.EventType, e.Status,
		e.MaxParticipants, e.CurrentParticipants, nullStr(e.FeaturedImageURL), nullStr(e.RegistrationLink),
		nullTS(e.RegistrationDeadline), nullStr(e.ResultsURL), formatTS(e.CreatedAt), formatTS(e.UpdatedAt))
	return err
}

// UpdateEvent overwrites the editable fields of the event with e.ID.
// current_participants is left untouched.
func (s *Store) UpdateEvent(ctx context.Context, e *Event) error {
	if e.Status == "" {
		e.Status = StatusUpcoming
	}
	e.UpdatedAt = time.Now().UTC()
	return checkAffected(s.db.ExecContext(ctx, `UPDATE events SET title = ?, description = ?, event_date = ?, venue = ?,
		event_type = ?, status = ?, max_participants = ?, featured_image_url = ?, registration_link = ?,
		registration_deadline = ?, results_url = ?, updated_at = ? WHERE id = ?`,
		e.Title, e.Description, nullTS(e.EventDate), nullStr(e.Venue), e.EventType, e.Status,
		e.MaxParticipants, nullStr(e.FeaturedImageURL), nullStr(e.RegistrationLink),
		nullTS(e.RegistrationDeadline), nullStr(e.ResultsURL), formatTS(e.UpdatedAt), e.ID))
}

// DeleteEvent removes an event by id.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	return checkAffected(s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id))
}

// ListTestimonials returns testimonials ordered by created_at descending.
func (s *Store) ListTestimonials(ctx context.Context, f TestimonialFilter) ([]Testimonial, error) {
	q := `SELECT id, name, email, position, feedback, rating, approved, created_at FROM testimonials`
	var args []any
	if f.ApprovedOnly {
		q += ` WHERE approved = 1`
	}
	q += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Testimonial
	for rows.Next() {
		var t Testimonial
		var email, position sql.NullString
		var approved int
		var created string
		if err := rows.Scan(&t.ID, &t.Name, &email, &position, &t.Feedback, &t.Rating, &approved, &created); err != nil {
			return nil, err
		}
		t.Email = email.String
		t.Position = position.String
		t.Approved = approved == 1
		t.CreatedAt = parseTS(created)
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreateTestimonial inserts t as unapproved whatever t.Approved says.
func (s *Store) CreateTestimonial(ctx context.Context, t *Testimonial) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.Approved = false
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO testimonials (id, name, email, position, feedback, rating, approved, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?)`,
		t.ID, t.Name, nullStr(t.Email), nullStr(t.Position), t.Feedback, t.Rating, formatTS(t.CreatedAt))
	return err
}

// SetTestimonialApproved approves (true) or archives (false) a testimonial.
func (s *Store) SetTestimonialApproved(ctx context.Context, id string, approved bool) error {
	return checkAffected(s.db.ExecContext(ctx, `UPDATE testimonials SET approved = ? WHERE id = ?`, boolInt(approved), id))
}

// DeleteTestimonial removes a testimonial by id.
func (s *Store) DeleteTestimonial(ctx context.Context, id string) error {
	return checkAffected(s.db.ExecContext(ctx, `DELETE FROM testimonials WHERE id = ?`, id))
}

// Counts returns the admin dashboard totals.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM blog_posts),
		(SELECT COUNT(*) FROM blog_posts WHERE published = 1),
		(SELECT COUNT(*) FROM events),
		(SELECT COUNT(*) FROM events WHERE status IN ('upcoming', 'ongoing')),
		(SELECT COUNT(*) FROM testimonials),
		(SELECT COUNT(*) FROM testimonials WHERE approved = 0)`).
		Scan(&c.BlogPosts, &c.PublishedPosts, &c.Events, &c.UpcomingEvents, &c.Testimonials, &c.PendingTestimonials)
	return c, err
}

// CreateAccount inserts acc. The email is stored lower-cased.
func (s *Store) CreateAccount(ctx context.Context, acc *Account) error {
	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}
	if acc.Role == "" {
		acc.Role = RoleMember
	}
	acc.Email = normalizeEmail(acc.Email)
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO accounts (id, email, password_hash, role, created_at) VALUES (?, ?, ?, ?, ?)`,
		acc.ID, acc.Email, acc.PasswordHash, acc.Role, formatTS(acc.CreatedAt))
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "unique") {
		return fmt.Errorf("account %s: %w", acc.Email, ErrDuplicate)
	}
	return err
}

// GetAccountByEmail looks an account up by (case-insensitive) email.
func (s *Store) GetAccountByEmail(ctx context.Context, email string) (Account, error) {
	var acc Account
	var created string
	err := s.db.QueryRowContext(ctx, `SELECT id, email, password_hash, role, created_at FROM accounts WHERE email = ?`,
		normalizeEmail(email)).Scan(&acc.ID, &acc.Email, &acc.PasswordHash, &acc.Role, &created)
	if err != nil {
		return Account{}, notFound(err)
	}
	acc.CreatedAt = parseTS(created)
	return acc, nil
}

// ListImages returns uploaded images, newest first.
func (s *Store) ListImages(ctx context.Context) ([]Image, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT filename, original_name, url, width, height, size, uploaded_at FROM images ORDER BY uploaded_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []Image
	for rows.Next() {
		var img Image
		var uploaded string
		if err := rows.Scan(&img.Filename, &img.OriginalName, &img.URL, &img.Width, &img.Height, &img.Size, &uploaded); err != nil {
			return nil, err
		}
		img.UploadedAt = parseTS(uploaded)
		images = append(images, img)
	}
	return images, rows.Err()
}

// SaveImage upserts image metadata.
func (s *Store) SaveImage(ctx context.Context, img Image) error {
	if img.UploadedAt.IsZero() {
		img.UploadedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO images (filename, original_name, url, width, height, size, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		img.Filename, img.OriginalName, img.URL, img.Width, img.Height, img.Size, formatTS(img.UploadedAt))
	return err
}

// DeleteImage removes image metadata by filename.
func (s *Store) DeleteImage(ctx context.Context, filename string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM images WHERE filename = ?`, filename)
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
