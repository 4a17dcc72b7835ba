// internal/server/server.go
package server

import (
	"context"
	"html/template"
	"log"
	"net/http"
	"path/filepath"

	"vitrine/internal/auth"
	"vitrine/internal/content"
	"vitrine/internal/eventfeed"
	"vitrine/internal/geocode"
	"vitrine/internal/store"
)

type Config struct {
	UseHTTPS       bool
	ProductionMode bool
	DataPath       string
}

type Server struct {
	store    *store.Store
	logger   *log.Logger
	auth     *auth.Service
	content  *content.Service
	feeds    *eventfeed.Service
	geocoder *geocode.Client
	csrf     *CSRF
	config   Config

	templates map[string]*template.Template
}

func NewServer(
	st *store.Store,
	logger *log.Logger,
	contentSvc *content.Service,
	feedSvc *eventfeed.Service,
	geocoder *geocode.Client,
	config Config,
) (*Server, error) {
	csrfConfig := DefaultCSRFConfig()
	csrfConfig.Secure = config.UseHTTPS

	s := &Server{
		store:    st,
		logger:   logger,
		auth:     auth.NewService(),
		content:  contentSvc,
		feeds:    feedSvc,
		geocoder: geocoder,
		csrf:     NewCSRF(csrfConfig),
		config:   config,
	}

	if err := s.loadTemplates(); err != nil {
		return nil, err
	}
	if err := s.extractStaticAssets(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	uploads := http.FileServer(http.Dir(filepath.Join(s.config.DataPath, "static")))
	mux.Handle("/static/", http.StripPrefix("/static/", uploads))

	// Public site
	mux.HandleFunc("/c/", s.handleCategoryPage)
	mux.HandleFunc("/item/", s.handleItemPage)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/setup", s.handleSetup)
	mux.HandleFunc("/setup/", s.handleSetup)

	// Admin
	mux.HandleFunc("/admin/login", s.handleLogin)
	mux.HandleFunc("/admin/login/", s.handleLogin)
	mux.HandleFunc("/admin/logout", s.requireAuth(s.handleLogout))
	mux.HandleFunc("/admin/change-password", s.requireAuth(s.handleChangePassword))
	mux.HandleFunc("/admin/settings", s.requireAuth(s.handleSettings))
	mux.HandleFunc("/admin/items/", s.requireAuth(s.handleItemsPage))
	mux.HandleFunc("/admin/upload-image", s.requireAuth(s.handleImageUpload))
	mux.HandleFunc("/admin/api/items/", s.requireAuth(s.handleItemAPI))
	mux.HandleFunc("/admin/api/fields/", s.requireAuth(s.handleFieldsAPI))
	mux.HandleFunc("/admin/api/stats", s.requireAuth(s.handleStatsAPI))
	mux.HandleFunc("/admin/api/partner-feeds", s.requireAuth(s.handlePartnerFeeds))
	mux.HandleFunc("/admin/api/partner-feeds/", s.requireAuth(s.handlePartnerFeeds))
	mux.HandleFunc("/admin", s.requireAuth(s.handleAdmin))
	mux.HandleFunc("/admin/", s.requireAuth(s.handleAdmin))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			s.handle404(w, r)
			return
		}
		s.handleIndex(w, r)
	})

	return mux
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("session")
		if err != nil {
			http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
			return
		}
		session, err := s.auth.ValidateSession(s.store.DB, cookie.Value)
		if err != nil {
			http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
			return
		}
		ctx := context.WithValue(r.Context(), contextKeyUserID, session.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

func (s *Server) handle404(w http.ResponseWriter, r *http.Request) {
	s.logger.Printf("404 for path: %s", r.URL.Path)
	w.WriteHeader(http.StatusNotFound)
	if err := s.renderTemplate(w, r, "404.html", nil); err != nil {
		http.Error(w, "404 Page Not Found", http.StatusNotFound)
	}
}

func (s *Server) Start(addr string) error {
	s.logger.Printf("Starting server on %s", addr)
	return http.ListenAndServe(addr, s.Routes())
}
