package analytics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// timestamps are stored as UTC text so strftime can bucket them.
const tsLayout = "2006-01-02 15:04:05"

// Store provides database operations for analytics.
type Store struct {
	db   *sql.DB
	salt string
}

// NewStore creates a new analytics store. The hashing salt is generated on
// first use and persisted, so visitor IDs stay stable across restarts.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open analytics db: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := s.loadSalt(); err != nil {
		db.Close()
		return nil, fmt.Errorf("load salt: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Salt returns the secret mixed into IP and visitor hashes.
func (s *Store) Salt() string {
	return s.salt
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS visits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			visitor_id TEXT NOT NULL,
			ip_hash TEXT NOT NULL,
			browser TEXT NOT NULL,
			os TEXT NOT NULL,
			device TEXT NOT NULL,
			path TEXT NOT NULL,
			referrer TEXT NOT NULL DEFAULT '',
			timestamp TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS bot_visits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			bot_name TEXT NOT NULL,
			ip_hash TEXT NOT NULL,
			user_agent TEXT NOT NULL,
			path TEXT NOT NULL,
			timestamp TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_visits_timestamp ON visits(timestamp);
		CREATE INDEX IF NOT EXISTS idx_visits_visitor_id ON visits(visitor_id);
		CREATE INDEX IF NOT EXISTS idx_visits_path ON visits(path);
		CREATE INDEX IF NOT EXISTS idx_bot_visits_timestamp ON bot_visits(timestamp);

		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	return err
}

// currentSchemaVersion is the latest schema version. Increment when adding migrations.
const currentSchemaVersion = 1

func (s *Store) migrate() error {
	ctx := context.Background()
	verStr, err := s.GetSetting(ctx, "schema_version")
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	version := 0
	if verStr != "" {
		version, err = strconv.Atoi(verStr)
		if err != nil {
			return fmt.Errorf("parse schema version %q: %w", verStr, err)
		}
	}
	if version < currentSchemaVersion {
		version = currentSchemaVersion
	}
	return s.SetSetting(ctx, "schema_version", strconv.Itoa(version))
}

func (s *Store) loadSalt() error {
	ctx := context.Background()
	salt, err := s.GetSetting(ctx, "salt")
	if err != nil {
		return err
	}
	if salt == "" {
		if salt, err = newSalt(); err != nil {
			return err
		}
		if err := s.SetSetting(ctx, "salt", salt); err != nil {
			return err
		}
	}
	s.salt = salt
	return nil
}

// GetSetting retrieves a setting value by key. Returns empty string if not found.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var val string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return val, err
}

// SetSetting stores a setting value by key (upsert).
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// SaveVisit stores a new visit in the database.
func (s *Store) SaveVisit(ctx context.Context, v *Visit) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO visits (visitor_id, ip_hash, browser, os, device, path, referrer, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		v.VisitorID, v.IPHash, v.Browser, v.OS, v.Device, v.Path, v.Referrer,
		v.Timestamp.UTC().Format(tsLayout))
	return err
}

// SaveBotVisit stores a new bot visit in the database.
func (s *Store) SaveBotVisit(ctx context.Context, bv *BotVisit) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bot_visits (bot_name, ip_hash, user_agent, path, timestamp)
		 VALUES (?, ?, ?, ?, ?)`,
		bv.BotName, bv.IPHash, bv.UserAgent, bv.Path, bv.Timestamp.UTC().Format(tsLayout))
	return err
}

func (s *Store) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

// dimension runs a two-column name/count query.
func (s *Store) dimension(ctx context.Context, query string, args ...any) ([]DimensionStat, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []DimensionStat{}
	for rows.Next() {
		var d DimensionStat
		if err := rows.Scan(&d.Name, &d.Count); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// bucketFormat returns the strftime pattern used to group views.
func bucketFormat(hourly, monthly bool) string {
	switch {
	case hourly:
		return "%H:00"
	case monthly:
		return "%Y-%m"
	default:
		return "%Y-%m-%d"
	}
}

// GetStats returns aggregated statistics for the given time period. The
// queries run concurrently and the first error wins.
func (s *Store) GetStats(ctx context.Context, from, to time.Time, hourly, monthly bool) (*Stats, error) {
	f, t := from.UTC().Format(tsLayout), to.UTC().Format(tsLayout)
	stats := &Stats{
		Period:        from.Format("2006-01-02") + " to " + to.Format("2006-01-02"),
		TopPages:      []PageStat{},
		BrowserStats:  []DimensionStat{},
		DeviceStats:   []DimensionStat{},
		ReferrerStats: []DimensionStat{},
		DailyViews:    []DailyView{},
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	var firstErr error

	setErr := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	run := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				setErr(fmt.Errorf("%s: %w", name, err))
			}
		}()
	}

	run("count views", func() error {
		n, err := s.count(ctx, `SELECT COUNT(*) FROM visits WHERE timestamp >= ? AND timestamp < ?`, f, t)
		mu.Lock()
		stats.TotalViews = n
		mu.Unlock()
		return err
	})

	run("count unique visitors", func() error {
		n, err := s.count(ctx, `SELECT COUNT(DISTINCT visitor_id) FROM visits WHERE timestamp >= ? AND timestamp < ?`, f, t)
		mu.Lock()
		stats.UniqueVisitors = n
		mu.Unlock()
		return err
	})

	run("count bot visits", func() error {
		n, err := s.count(ctx, `SELECT COUNT(*) FROM bot_visits WHERE timestamp >= ? AND timestamp < ?`, f, t)
		mu.Lock()
		stats.BotVisits = n
		mu.Unlock()
		return err
	})

	run("top pages", func() error {
		rows, err := s.dimension(ctx,
			`SELECT path, COUNT(*) AS views FROM visits
			 WHERE timestamp >= ? AND timestamp < ?
			 GROUP BY path ORDER BY views DESC, path LIMIT 10`, f, t)
		if err != nil {
			return err
		}
		pages := make([]PageStat, len(rows))
		for i, r := range rows {
			pages[i] = PageStat{Path: r.Name, Views: r.Count}
		}
		mu.Lock()
		stats.TopPages = pages
		mu.Unlock()
		return nil
	})

	for _, d := range []struct {
		name, column string
		dst          *[]DimensionStat
	}{
		{"browser stats", "browser", &stats.BrowserStats},
		{"device stats", "device", &stats.DeviceStats},
		{"referrer stats", "referrer", &stats.ReferrerStats},
	} {
		run(d.name, func() error {
			rows, err := s.dimension(ctx,
				`SELECT `+d.column+` AS name, COUNT(*) AS n FROM visits
				 WHERE timestamp >= ? AND timestamp < ?
				 GROUP BY name ORDER BY n DESC, name LIMIT 10`, f, t)
			if err != nil {
				return err
			}
			mu.Lock()
			*d.dst = rows
			mu.Unlock()
			return nil
		})
	}

	run("views over time", func() error {
		rows, err := s.dimension(ctx,
			`SELECT strftime('`+bucketFormat(hourly, monthly)+`', timestamp) AS bucket, COUNT(*)
			 FROM visits WHERE timestamp >= ? AND timestamp < ?
			 GROUP BY bucket ORDER BY MIN(timestamp)`, f, t)
		if err != nil {
			return err
		}
		views := make([]DailyView, len(rows))
		for i, r := range rows {
			views[i] = DailyView{Date: r.Name, Views: r.Count}
		}
		mu.Lock()
		stats.DailyViews = views
		mu.Unlock()
		return nil
	})

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return stats, nil
}

// CleanupOldVisits removes visits and bot visits older than the retention period.
func (s *Store) CleanupOldVisits(ctx context.Context, retentionDays int) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Format(tsLayout)
	if _, err := s.db.ExecContext(ctx, `DELETE FROM visits WHERE timestamp < ?`, cutoff); err != nil {
		return fmt.Errorf("cleanup visits: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM bot_visits WHERE timestamp < ?`, cutoff); err != nil {
		return fmt.Errorf("cleanup bot_visits: %w", err)
	}
	return nil
}

// StartCleanupScheduler runs periodic cleanup of old data. Returns a stop function.
func (s *Store) StartCleanupScheduler(retentionDays int, interval time.Duration, log zerolog.Logger) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := s.CleanupOldVisits(context.Background(), retentionDays); err != nil {
					log.Error().Err(err).Msg("analytics cleanup failed")
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

// GetRealtimeVisitors returns the number of unique visitors in the last 5 minutes.
func (s *Store) GetRealtimeVisitors(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-5 * time.Minute).Format(tsLayout)
	return s.count(ctx, `SELECT COUNT(DISTINCT visitor_id) FROM visits WHERE timestamp >= ?`, cutoff)
}
