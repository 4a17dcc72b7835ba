// internal/server/csrf.go
package server

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"
)

var (
	ErrTokenMissing = errors.New("CSRF token missing")
	ErrTokenInvalid = errors.New("CSRF token invalid")
)

// CSRFConfig holds configuration for CSRF protection
type CSRFConfig struct {
	Cookie    string
	Header    string
	Secure    bool
	Expiry    time.Duration
	FieldName string
}

// DefaultCSRFConfig returns the default CSRF configuration
func DefaultCSRFConfig() CSRFConfig {
	return CSRFConfig{
		Cookie:    "csrf_token",
		Header:    "X-CSRF-Token",
		Secure:    true, // Will be overridden by server config
		Expiry:    24 * time.Hour,
		FieldName: "csrf_token",
	}
}

// CSRF manages CSRF token generation and validation
type CSRF struct {
	config CSRFConfig

	mu     sync.Mutex
	tokens map[string]time.Time
}

// NewCSRF creates a new CSRF instance
func NewCSRF(config CSRFConfig) *CSRF {
	c := &CSRF{
		config: config,
		tokens: make(map[string]time.Time),
	}
	go c.startCleanupLoop()
	return c
}

func (c *CSRF) generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// getOrCreateToken reuses a valid cookie token or mints a new one.
func (c *CSRF) getOrCreateToken(w http.ResponseWriter, r *http.Request) (string, error) {
	cookie, err := r.Cookie(c.config.Cookie)
	if err == nil && cookie.Value != "" {
		c.mu.Lock()
		_, ok := c.tokens[cookie.Value]
		c.mu.Unlock()
		if ok {
			return cookie.Value, nil
		}
	}

	token, err := c.generateToken()
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.tokens[token] = time.Now().Add(c.config.Expiry)
	c.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     c.config.Cookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.config.Secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(c.config.Expiry.Seconds()),
	})

	return token, nil
}

// Token gets or creates a CSRF token and returns it
func (c *CSRF) Token(w http.ResponseWriter, r *http.Request) string {
	token, _ := c.getOrCreateToken(w, r)
	return token
}

// validateRequest checks the submitted token against the cookie and the store.
func (c *CSRF) validateRequest(r *http.Request) error {
	token := r.Header.Get(c.config.Header)
	if token == "" {
		if err := r.ParseForm(); err == nil {
			token = r.FormValue(c.config.FieldName)
		}
	}
	if token == "" {
		return ErrTokenMissing
	}

	cookie, err := r.Cookie(c.config.Cookie)
	if err != nil {
		return ErrTokenMissing
	}
	if token != cookie.Value {
		return ErrTokenInvalid
	}

	c.mu.Lock()
	expiry, ok := c.tokens[token]
	if ok && expiry.Before(time.Now()) {
		delete(c.tokens, token)
		ok = false
	}
	c.mu.Unlock()
	if !ok {
		return ErrTokenInvalid
	}

	return nil
}

// GetMeta renders the token as a meta tag for JS clients.
func (c *CSRF) GetMeta(token string) template.HTML {
	return template.HTML(fmt.Sprintf(`<meta name="csrf-token" content="%s">`, token))
}

// Validate rejects the request with a 403 when the token is missing or stale.
func (c *CSRF) Validate(w http.ResponseWriter, r *http.Request) bool {
	if err := c.validateRequest(r); err != nil {
		http.Error(w, "CSRF validation failed", http.StatusForbidden)
		return false
	}
	return true
}

func (c *CSRF) cleanup() {
	now := time.Now()
	c.mu.Lock()
	for token, expiry := range c.tokens {
		if expiry.Before(now) {
			delete(c.tokens, token)
		}
	}
	c.mu.Unlock()
}

func (c *CSRF) startCleanupLoop() {
	ticker := time.NewTicker(6 * time.Hour)
	for range ticker.C {
		c.cleanup()
	}
}
