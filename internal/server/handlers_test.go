package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"vitrine/internal/content"
	"vitrine/internal/eventfeed"
	"vitrine/internal/store"
)

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "test.db"), store.DefaultConfig())
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := log.New(io.Discard, "", 0)
	contentSvc := content.NewService(st, logger)
	feedSvc := eventfeed.NewService(st, logger)

	srv, err := NewServer(st, logger, contentSvc, feedSvc, nil, Config{
		DataPath: dir,
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	return srv, srv.Routes()
}

// loginTestClient creates an admin user, authenticates, and returns the
// session cookie plus a CSRF token/cookie pair for mutating requests.
func loginTestClient(t *testing.T, srv *Server) (session, csrfCookie *http.Cookie, csrfToken string) {
	t.Helper()
	if err := srv.auth.CreateUser(srv.store.DB, "admin", "correct horse"); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	sess, err := srv.auth.Authenticate(srv.store.DB, "admin", "correct horse")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	session = &http.Cookie{Name: "session", Value: sess.ID}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/login", nil)
	csrfToken = srv.csrf.Token(rec, req)
	csrfCookie = &http.Cookie{Name: "csrf_token", Value: csrfToken}
	return session, csrfCookie, csrfToken
}

func TestHealthz(t *testing.T) {
	_, handler := newTestServer(t)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestIndexRenders(t *testing.T) {
	_, handler := newTestServer(t)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestUnknownPathIs404(t *testing.T) {
	_, handler := newTestServer(t)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/no-such-page", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestCategoryPages(t *testing.T) {
	_, handler := newTestServer(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/c/dining", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET /c/dining status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/c/casino", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /c/casino status = %d, want 404", rec.Code)
	}
}

func TestAdminRequiresAuth(t *testing.T) {
	_, handler := newTestServer(t)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/admin/login" {
		t.Errorf("Location = %q, want /admin/login", loc)
	}
}

func TestSetupRedirectsWhenUsersExist(t *testing.T) {
	srv, handler := newTestServer(t)
	loginTestClient(t, srv)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/setup", nil))
	if rec.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want 303", rec.Code)
	}
}

func TestLoginFlow(t *testing.T) {
	srv, handler := newTestServer(t)
	session, csrfCookie, csrfToken := loginTestClient(t, srv)

	t.Run("wrong password is rejected", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{"username": "admin", "password": "nope"})
		req := httptest.NewRequest(http.MethodPost, "/admin/login", bytes.NewReader(body))
		req.AddCookie(csrfCookie)
		req.Header.Set("X-CSRF-Token", csrfToken)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("valid login sets a session cookie", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{"username": "admin", "password": "correct horse"})
		req := httptest.NewRequest(http.MethodPost, "/admin/login", bytes.NewReader(body))
		req.AddCookie(csrfCookie)
		req.Header.Set("X-CSRF-Token", csrfToken)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		found := false
		for _, c := range rec.Result().Cookies() {
			if c.Name == "session" && c.Value != "" {
				found = true
			}
		}
		if !found {
			t.Error("no session cookie in response")
		}
	})

	t.Run("missing CSRF token is forbidden", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{"username": "admin", "password": "correct horse"})
		req := httptest.NewRequest(http.MethodPost, "/admin/login", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("dashboard loads with session cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.AddCookie(session)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})
}

func TestItemAPIRoundTrip(t *testing.T) {
	srv, handler := newTestServer(t)
	session, csrfCookie, csrfToken := loginTestClient(t, srv)

	do := func(method, url string, payload interface{}) *httptest.ResponseRecorder {
		var body io.Reader
		if payload != nil {
			b, _ := json.Marshal(payload)
			body = bytes.NewReader(b)
		}
		req := httptest.NewRequest(method, url, body)
		req.AddCookie(session)
		req.AddCookie(csrfCookie)
		req.Header.Set("X-CSRF-Token", csrfToken)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodPost, "/admin/api/items/dining", map[string]interface{}{
		"values": map[string]interface{}{
			"name":        "La Table du Marché",
			"description": "Cuisine de saison.",
			"type":        "restaurant",
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created itemResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decoding create response: %v", err)
	}
	if created.Item.ID == "" {
		t.Fatal("created item has no id")
	}
	if created.Item.Name != "La Table du Marché" {
		t.Errorf("Name = %q", created.Item.Name)
	}

	rec = do(http.MethodGet, "/admin/api/items/dining/"+created.Item.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = do(http.MethodPut, "/admin/api/items/dining/"+created.Item.ID, map[string]interface{}{
		"changes": map[string]interface{}{"description": "Cuisine du terroir."},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var updated itemResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decoding update response: %v", err)
	}
	if updated.Item.Description != "Cuisine du terroir." {
		t.Errorf("Description = %q", updated.Item.Description)
	}
	if len(updated.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", updated.Warnings)
	}

	rec = do(http.MethodPut, "/admin/api/items/dining/"+created.Item.ID+"/status", map[string]string{
		"status": "published",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status change status = %d", rec.Code)
	}

	rec = do(http.MethodGet, "/admin/api/items/dining", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var items []content.Item
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decoding list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(items))
	}

	// Published item is now visible on the public page.
	pub := httptest.NewRecorder()
	handler.ServeHTTP(pub, httptest.NewRequest(http.MethodGet, "/item/dining/"+created.Item.ID, nil))
	if pub.Code != http.StatusOK {
		t.Errorf("public item page status = %d, want 200", pub.Code)
	}

	rec = do(http.MethodDelete, "/admin/api/items/dining/"+created.Item.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = do(http.MethodGet, "/admin/api/items/dining/"+created.Item.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestTeamStatusChangeRejected(t *testing.T) {
	srv, handler := newTestServer(t)
	session, csrfCookie, csrfToken := loginTestClient(t, srv)

	do := func(method, url string, payload interface{}) *httptest.ResponseRecorder {
		var body io.Reader
		if payload != nil {
			b, _ := json.Marshal(payload)
			body = bytes.NewReader(b)
		}
		req := httptest.NewRequest(method, url, body)
		req.AddCookie(session)
		req.AddCookie(csrfCookie)
		req.Header.Set("X-CSRF-Token", csrfToken)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodPost, "/admin/api/items/team", map[string]interface{}{
		"values": map[string]interface{}{"name": "Anne Delpech", "role": "Accueil"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created itemResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decoding create response: %v", err)
	}

	rec = do(http.MethodPut, "/admin/api/items/team/"+created.Item.ID+"/status", map[string]string{
		"status": "draft",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status change status = %d, want 400", rec.Code)
	}
}

func TestItemAPIRejectsUnknownCategory(t *testing.T) {
	srv, handler := newTestServer(t)
	session, _, _ := loginTestClient(t, srv)

	req := httptest.NewRequest(http.MethodGet, "/admin/api/items/casino", nil)
	req.AddCookie(session)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestFieldsAPI(t *testing.T) {
	srv, handler := newTestServer(t)
	session, _, _ := loginTestClient(t, srv)

	req := httptest.NewRequest(http.MethodGet, "/admin/api/fields/accommodations", nil)
	req.AddCookie(session)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var fields []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &fields); err != nil {
		t.Fatalf("decoding fields: %v", err)
	}
	if len(fields) == 0 {
		t.Error("no fields returned")
	}
}

func TestSettingsUpdate(t *testing.T) {
	srv, handler := newTestServer(t)
	session, csrfCookie, csrfToken := loginTestClient(t, srv)

	post := func(payload map[string]string) *httptest.ResponseRecorder {
		b, _ := json.Marshal(payload)
		req := httptest.NewRequest(http.MethodPost, "/admin/settings", bytes.NewReader(b))
		req.AddCookie(session)
		req.AddCookie(csrfCookie)
		req.Header.Set("X-CSRF-Token", csrfToken)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	rec := post(map[string]string{"site_title": "Office de Tourisme de Vézac"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	title, err := srv.store.GetSetting(context.Background(), "site_title")
	if err != nil || title != "Office de Tourisme de Vézac" {
		t.Errorf("site_title = %q, err = %v", title, err)
	}

	if rec := post(map[string]string{"bogus_key": "x"}); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown key status = %d, want 400", rec.Code)
	}

	if rec := post(map[string]string{"tracking_code": "<script>alert(1)</script>"}); rec.Code != http.StatusBadRequest {
		t.Errorf("inline script status = %d, want 400", rec.Code)
	}

	rec = post(map[string]string{"tracking_code": `<script src="https://stats.example.org/t.js" async></script>`})
	if rec.Code != http.StatusOK {
		t.Errorf("external script status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestTrackingCodeSanitizer(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		want    string
	}{
		{
			name:  "external script",
			input: `<script src="https://stats.example.org/t.js"></script>`,
			want:  `<script src="https://stats.example.org/t.js"></script>`,
		},
		{
			name:  "tracking pixel",
			input: `<img src="https://stats.example.org/p.gif" width="1" height="1">`,
			want:  `<img src="https://stats.example.org/p.gif" width="1" height="1">`,
		},
		{
			name:    "inline script",
			input:   `<script>alert(1)</script>`,
			wantErr: true,
		},
		{
			name:    "relative src",
			input:   `<script src="/evil.js"></script>`,
			wantErr: true,
		},
		{
			name:  "stray markup is dropped",
			input: `<div>hi</div><img src="https://stats.example.org/p.gif">`,
			want:  `<img src="https://stats.example.org/p.gif">`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validateTrackingCode(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("validateTrackingCode(%q) = %q, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("validateTrackingCode(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	got := summarize("<p>Un <b>petit</b> village au bord de la Dordogne.</p>", 200)
	if got != "Un petit village au bord de la Dordogne." {
		t.Errorf("summarize() = %q", got)
	}

	long := strings.Repeat("mot ", 100)
	short := summarize(long, 20)
	if len(short) > 24 || !strings.HasSuffix(short, "...") {
		t.Errorf("truncated = %q", short)
	}
}
