package analytics

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Recorder writes visits from a single background goroutine so request
// handlers never wait on the analytics database.
type Recorder struct {
	store   *Store
	log     zerolog.Logger
	host    string
	limiter *rateLimiter

	ch        chan any
	done      chan struct{}
	closeOnce sync.Once
	dropped   int
	mu        sync.Mutex
}

// NewRecorder starts a recorder with a queue of size buffer. Referrers from
// host are treated as direct traffic.
func NewRecorder(store *Store, host string, buffer int, log zerolog.Logger) *Recorder {
	if buffer <= 0 {
		buffer = 256
	}
	r := &Recorder{
		store:   store,
		log:     log,
		host:    host,
		limiter: newRateLimiter(60, time.Minute),
		ch:      make(chan any, buffer),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Recorder) run() {
	defer close(r.done)
	for item := range r.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		var err error
		switch v := item.(type) {
		case *Visit:
			err = r.store.SaveVisit(ctx, v)
		case *BotVisit:
			err = r.store.SaveBotVisit(ctx, v)
		}
		cancel()
		if err != nil {
			r.log.Error().Err(err).Msg("failed to save visit")
		}
	}
}

// enqueue never blocks; when the queue is full the visit is dropped.
func (r *Recorder) enqueue(item any) bool {
	select {
	case r.ch <- item:
		return true
	default:
		r.mu.Lock()
		r.dropped++
		r.mu.Unlock()
		return false
	}
}

// Dropped reports how many visits were discarded because the queue was full.
func (r *Recorder) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Close stops accepting visits and waits for the queue to drain.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		close(r.ch)
		r.limiter.stop()
	})
	<-r.done
}

// Record classifies a request and queues it. It returns false if the
// request was not recorded (Do-Not-Track, rate limited or queue full).
func (r *Recorder) Record(ip, userAgent, path, referrer string, dnt bool) bool {
	if dnt {
		return false
	}
	if !r.limiter.allow(ip) {
		return false
	}
	salt := r.store.Salt()
	now := time.Now().UTC()

	if IsBot(userAgent) {
		if len(userAgent) > 512 {
			userAgent = userAgent[:512]
		}
		return r.enqueue(&BotVisit{
			BotName:   ExtractBotName(userAgent),
			IPHash:    HashIP(salt, ip),
			UserAgent: userAgent,
			Path:      path,
			Timestamp: now,
		})
	}

	browser, os, device := ParseUserAgent(userAgent)
	return r.enqueue(&Visit{
		VisitorID: GenerateVisitorID(salt, ip, userAgent),
		IPHash:    HashIP(salt, ip),
		Browser:   browser,
		OS:        os,
		Device:    device,
		Path:      path,
		Referrer:  CleanReferrer(referrer, r.host),
		Timestamp: now,
	})
}

var skipPrefixes = []string{"/assets/", "/public/", "/admin", "/api/", "/auth/"}

// Trackable reports whether a path counts as a public page view.
func Trackable(path string) bool {
	for _, p := range skipPrefixes {
		if strings.HasPrefix(path, p) {
			return false
		}
	}
	switch path {
	case "/feed.xml", "/sitemap.xml", "/robots.txt", "/favicon.ico":
		return false
	}
	return true
}

// Middleware records successful GET page views after the handler ran.
func (r *Recorder) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			req := c.Request()
			if req.Method != http.MethodGet || !Trackable(req.URL.Path) {
				return err
			}
			if err != nil || c.Response().Status >= 400 {
				return err
			}
			// Fragment requests from the load-more script are not page views.
			if req.URL.Query().Get("partial") != "" {
				return err
			}
			r.Record(c.RealIP(), req.UserAgent(), req.URL.Path, req.Referer(), req.Header.Get("DNT") == "1")
			return err
		}
	}
}
