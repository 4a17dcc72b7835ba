package auth

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"vitrine/internal/store"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open(dbPath, store.DefaultConfig())
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s.DB
}

func TestCreateUserAndAuthenticate(t *testing.T) {
	db := newTestDB(t)
	svc := NewService()

	if err := svc.CreateUser(db, "admin", "correct horse"); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	has, err := svc.HasUsers(db)
	if err != nil {
		t.Fatalf("HasUsers() error = %v", err)
	}
	if !has {
		t.Error("HasUsers() = false after CreateUser")
	}

	session, err := svc.Authenticate(db, "admin", "correct horse")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if session.ID == "" || session.UserID == 0 {
		t.Errorf("session = %+v", session)
	}
	if session.IsExpired() {
		t.Error("fresh session is already expired")
	}

	if _, err := svc.Authenticate(db, "admin", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Authenticate(wrong password) error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Authenticate(db, "nobody", "correct horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Authenticate(unknown user) error = %v, want ErrInvalidCredentials", err)
	}
}

func TestCreateUserRejectsShortPassword(t *testing.T) {
	db := newTestDB(t)
	svc := NewService()
	if err := svc.CreateUser(db, "admin", "short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("CreateUser(short) error = %v, want ErrPasswordTooShort", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	db := newTestDB(t)
	svc := NewService()
	if err := svc.CreateUser(db, "admin", "correct horse"); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	session, err := svc.Authenticate(db, "admin", "correct horse")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	got, err := svc.ValidateSession(db, session.ID)
	if err != nil {
		t.Fatalf("ValidateSession() error = %v", err)
	}
	if got.UserID != session.UserID {
		t.Errorf("UserID = %d, want %d", got.UserID, session.UserID)
	}

	if _, err := svc.ValidateSession(db, "bogus"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("ValidateSession(bogus) error = %v, want ErrSessionNotFound", err)
	}

	if err := svc.InvalidateSession(db, session.ID); err != nil {
		t.Fatalf("InvalidateSession() error = %v", err)
	}
	if _, err := svc.ValidateSession(db, session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("ValidateSession() after invalidate error = %v, want ErrSessionNotFound", err)
	}
}

func TestExpiredSessionsAreRejectedAndCleaned(t *testing.T) {
	db := newTestDB(t)
	svc := NewService()
	if err := svc.CreateUser(db, "admin", "correct horse"); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	session, err := svc.Authenticate(db, "admin", "correct horse")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	// Age the session past its lifetime.
	if _, err := db.Exec("UPDATE sessions SET expires_at = ? WHERE id = ?",
		time.Now().Add(-time.Hour), session.ID); err != nil {
		t.Fatalf("aging session: %v", err)
	}

	if _, err := svc.ValidateSession(db, session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("ValidateSession(expired) error = %v, want ErrSessionNotFound", err)
	}

	if err := svc.CleanExpiredSessions(db); err != nil {
		t.Fatalf("CleanExpiredSessions() error = %v", err)
	}
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&count); err != nil {
		t.Fatalf("counting sessions: %v", err)
	}
	if count != 0 {
		t.Errorf("%d sessions remain after cleanup, want 0", count)
	}
}

func TestUpdatePassword(t *testing.T) {
	db := newTestDB(t)
	svc := NewService()
	if err := svc.CreateUser(db, "admin", "correct horse"); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	session, err := svc.Authenticate(db, "admin", "correct horse")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	if err := svc.UpdatePassword(db, session.UserID, "tiny"); !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("UpdatePassword(short) error = %v, want ErrPasswordTooShort", err)
	}

	if err := svc.UpdatePassword(db, session.UserID, "battery staple"); err != nil {
		t.Fatalf("UpdatePassword() error = %v", err)
	}
	if _, err := svc.Authenticate(db, "admin", "correct horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Error("old password still works after update")
	}
	if _, err := svc.Authenticate(db, "admin", "battery staple"); err != nil {
		t.Errorf("Authenticate(new password) error = %v", err)
	}
}
