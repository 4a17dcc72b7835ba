// internal/eventfeed/service.go
// Background import of events published by partner offices as RSS/Atom
// feeds. Imported rows land in the events table as drafts so an editor
// reviews them before they reach the public agenda.
package eventfeed

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"vitrine/internal/store"
)

type Service struct {
	db      *store.Store
	logger  *log.Logger
	fetcher *Fetcher
	done    chan struct{}
}

func NewService(db *store.Store, logger *log.Logger) *Service {
	return &Service{
		db:      db,
		logger:  logger,
		fetcher: NewFetcher(db, logger),
		done:    make(chan struct{}),
	}
}

func (s *Service) Start() {
	go s.importLoop()
}

func (s *Service) Stop() {
	close(s.done)
}

func (s *Service) getImportInterval() time.Duration {
	seconds, err := s.db.GetSettingInt(context.Background(), "import_interval")
	if err != nil {
		s.logger.Printf("eventfeed: error reading import interval, using default: %v", err)
		return time.Hour
	}

	interval := time.Duration(seconds) * time.Second
	if interval < time.Minute {
		interval = time.Minute
	}
	return interval
}

func (s *Service) importLoop() {
	s.logger.Printf("eventfeed: starting import loop")

	interval := s.getImportInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Pick up interval changes made in the admin settings.
			newInterval := s.getImportInterval()
			if newInterval != interval {
				s.logger.Printf("eventfeed: import interval changed from %v to %v", interval, newInterval)
				ticker.Reset(newInterval)
				interval = newInterval
			}

			if err := s.ImportAll(context.Background()); err != nil {
				s.logger.Printf("eventfeed: scheduled import failed: %v", err)
			}

		case <-s.done:
			s.logger.Printf("eventfeed: shutting down")
			return
		}
	}
}

// ImportAll fetches every registered partner feed once.
func (s *Service) ImportAll(ctx context.Context) error {
	return s.fetcher.ImportAll(ctx)
}

// AddFeed validates a partner feed URL, registers it and imports it once.
func (s *Service) AddFeed(ctx context.Context, url string) error {
	title, err := s.fetcher.Probe(ctx, url)
	if err != nil {
		return fmt.Errorf("feed validation failed: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO partner_feeds (url, title, status) VALUES (?, ?, 'active')",
		url, title,
	)
	if err != nil {
		return err
	}

	if err := s.fetcher.ImportOne(ctx, url); err != nil {
		// Registration stands even if the first import fails.
		s.logger.Printf("eventfeed: initial import of %s failed: %v", url, err)
	}
	return nil
}

// DeleteFeed unregisters a partner feed. Already-imported events stay.
func (s *Service) DeleteFeed(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM partner_feeds WHERE id = ?", id)
	return err
}

// PartnerFeed is one registered partner feed, as listed in the admin.
type PartnerFeed struct {
	ID          int64     `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Status      string    `json:"status"`
	ErrorCount  int       `json:"errorCount"`
	LastError   string    `json:"lastError,omitempty"`
	LastFetched time.Time `json:"lastFetched,omitempty"`
}

// ListFeeds returns every registered partner feed.
func (s *Service) ListFeeds(ctx context.Context) ([]PartnerFeed, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, url, COALESCE(title, ''), COALESCE(status, 'pending'),
               COALESCE(error_count, 0), COALESCE(last_error, ''), last_fetched
        FROM partner_feeds
        ORDER BY title
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var feeds []PartnerFeed
	for rows.Next() {
		var f PartnerFeed
		var lastFetched sql.NullTime
		if err := rows.Scan(&f.ID, &f.URL, &f.Title, &f.Status,
			&f.ErrorCount, &f.LastError, &lastFetched); err != nil {
			return nil, err
		}
		if lastFetched.Valid {
			f.LastFetched = lastFetched.Time
		}
		feeds = append(feeds, f)
	}
	return feeds, rows.Err()
}
