// internal/geocode/geocode.go
// Thin client for a Nominatim-style geocoding endpoint. Resolution is
// best-effort: when the service cannot place an address the caller gets
// the configured fallback coordinate (the tourism office's location).
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Client resolves free-text addresses to coordinates.
type Client struct {
	baseURL  string
	fallback Coordinate
	http     *http.Client
	logger   *log.Logger
}

// NewClient builds a geocoding client. baseURL points at a search
// endpoint accepting ?q= and &format=json; fallback is returned whenever
// resolution fails.
func NewClient(baseURL string, fallback Coordinate, logger *log.Logger) *Client {
	return &Client{
		baseURL:  baseURL,
		fallback: fallback,
		http:     &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
	}
}

// nominatim search result; only the fields we read.
type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Resolve geocodes an address. The second return value reports whether
// the service produced a real match; when false the coordinate is the
// fallback.
func (c *Client) Resolve(ctx context.Context, address string) (Coordinate, bool) {
	if address == "" || c.baseURL == "" {
		return c.fallback, false
	}

	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		c.logger.Printf("geocode: building request for %q: %v", address, err)
		return c.fallback, false
	}
	req.Header.Set("User-Agent", "vitrine/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Printf("geocode: request for %q failed: %v", address, err)
		return c.fallback, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Printf("geocode: %q returned status %d", address, resp.StatusCode)
		return c.fallback, false
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		c.logger.Printf("geocode: decoding response for %q: %v", address, err)
		return c.fallback, false
	}
	if len(results) == 0 {
		return c.fallback, false
	}

	lat, latErr := strconv.ParseFloat(results[0].Lat, 64)
	lng, lngErr := strconv.ParseFloat(results[0].Lon, 64)
	if latErr != nil || lngErr != nil {
		c.logger.Printf("geocode: unparsable coordinates for %q", address)
		return c.fallback, false
	}

	return Coordinate{Lat: lat, Lng: lng}, true
}

// Fallback returns the configured default coordinate.
func (c *Client) Fallback() Coordinate { return c.fallback }

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}
