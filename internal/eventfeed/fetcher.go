// internal/eventfeed/fetcher.go
package eventfeed

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"vitrine/internal/store"
)

type Fetcher struct {
	db     *store.Store
	logger *log.Logger
	parser *gofeed.Parser
	client *http.Client
}

func NewFetcher(db *store.Store, logger *log.Logger) *Fetcher {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
	}
	return &Fetcher{
		db:     db,
		logger: logger,
		parser: gofeed.NewParser(),
		client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("stopped after 5 redirects")
				}
				return nil
			},
		},
	}
}

// Probe fetches a feed URL once and returns its title, validating that
// the URL actually serves a parsable feed.
func (f *Fetcher) Probe(ctx context.Context, url string) (string, error) {
	parsed, err := f.fetch(ctx, url)
	if err != nil {
		return "", err
	}
	return parsed.Title, nil
}

// ImportAll walks every active partner feed and imports its items.
// A failing feed is recorded on its row and skipped; the import as a
// whole keeps going.
func (f *Fetcher) ImportAll(ctx context.Context) error {
	rows, err := f.db.QueryContext(ctx,
		"SELECT id, url FROM partner_feeds WHERE status != 'deleted'")
	if err != nil {
		return fmt.Errorf("error querying partner feeds: %w", err)
	}
	defer rows.Close()

	type partnerRow struct {
		id  int64
		url string
	}
	var feeds []partnerRow
	for rows.Next() {
		var p partnerRow
		if err := rows.Scan(&p.id, &p.url); err != nil {
			f.logger.Printf("eventfeed: error scanning partner feed: %v", err)
			continue
		}
		feeds = append(feeds, p)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, p := range feeds {
		if err := f.importFeed(ctx, p.id, p.url); err != nil {
			f.logger.Printf("eventfeed: import of %s failed: %v", p.url, err)
			f.markFeedStatus(ctx, p.id, "error", err.Error())
			continue
		}
		f.markFeedStatus(ctx, p.id, "active", "")
	}

	return nil
}

// ImportOne imports a single feed by URL, looking up its row id.
func (f *Fetcher) ImportOne(ctx context.Context, url string) error {
	var id int64
	err := f.db.QueryRowContext(ctx,
		"SELECT id FROM partner_feeds WHERE url = ?", url).Scan(&id)
	if err != nil {
		return fmt.Errorf("partner feed %s not registered: %w", url, err)
	}
	if err := f.importFeed(ctx, id, url); err != nil {
		f.markFeedStatus(ctx, id, "error", err.Error())
		return err
	}
	f.markFeedStatus(ctx, id, "active", "")
	return nil
}

func (f *Fetcher) fetch(ctx context.Context, url string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("User-Agent", "vitrine/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	parsed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error parsing feed: %w", err)
	}
	return parsed, nil
}

func (f *Fetcher) importFeed(ctx context.Context, feedID int64, url string) error {
	parsed, err := f.fetch(ctx, url)
	if err != nil {
		return err
	}

	imported := 0
	for _, item := range parsed.Items {
		if item.Title == "" {
			continue
		}
		guid := item.GUID
		if guid == "" {
			guid = item.Link
		}
		if guid == "" {
			continue
		}

		// Already-imported events are left alone so curated edits
		// survive re-imports.
		existing, err := f.db.Select(ctx, "events", store.Filter{"source_guid": guid}, store.Order{})
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			continue
		}

		rec := store.Record{
			"id":          uuid.NewString(),
			"title":       item.Title,
			"type":        "imported",
			"status":      "draft",
			"summary":     item.Description,
			"organizer":   parsed.Title,
			"source_guid": guid,
		}
		if item.PublishedParsed != nil {
			rec["start_date"] = item.PublishedParsed.UTC().Format("2006-01-02")
		}
		if item.Image != nil {
			rec["featured_image"] = item.Image.URL
		}

		if err := f.db.Insert(ctx, "events", rec); err != nil {
			return fmt.Errorf("error inserting event %q: %w", item.Title, err)
		}
		imported++
	}

	f.logger.Printf("eventfeed: imported %d new events from %s", imported, url)

	_, err = f.db.ExecContext(ctx,
		"UPDATE partner_feeds SET last_fetched = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		feedID)
	return err
}

func (f *Fetcher) markFeedStatus(ctx context.Context, feedID int64, status, errMsg string) {
	_, err := f.db.ExecContext(ctx,
		`UPDATE partner_feeds SET
		status = ?,
		error_count = CASE WHEN ? = 'error' THEN error_count + 1 ELSE 0 END,
		last_error = CASE WHEN ? = 'error' THEN ? ELSE NULL END,
		updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		status, status, status, errMsg, feedID,
	)
	if err != nil {
		f.logger.Printf("eventfeed: error updating feed %d status: %v", feedID, err)
	}
}
