package diagapi

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"
)

const (
	sessionName    = "dnlinkd_session"
	sessionUserKey = "username"
)

// sessionStore gates the diagnostics API's mutating routes behind a
// cookie session, adapted from the gateway's web UI auth layer.
type sessionStore struct {
	store    *sessions.CookieStore
	user     string
	passHash string // bcrypt
}

// newSessionStore creates a session store with the given secret (base64,
// decoded to the cookie-store key) and the single operator account
// allowed to use the diagnostics API's mutating routes.
func newSessionStore(secret, user, passHash string) *sessionStore {
	var key []byte
	if secret != "" {
		key, _ = base64.StdEncoding.DecodeString(secret)
	}
	if len(key) < 32 {
		key = make([]byte, 32)
		rand.Read(key)
	}

	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &sessionStore{store: store, user: user, passHash: passHash}
}

func (s *sessionStore) get(r *http.Request) *sessions.Session {
	session, _ := s.store.Get(r, sessionName)
	return session
}

func (s *sessionStore) loggedIn(r *http.Request) bool {
	session := s.get(r)
	u, ok := session.Values[sessionUserKey].(string)
	return ok && u != ""
}

func (s *sessionStore) login(w http.ResponseWriter, r *http.Request, username, password string) bool {
	if username != s.user || bcrypt.CompareHashAndPassword([]byte(s.passHash), []byte(password)) != nil {
		return false
	}
	session := s.get(r)
	session.Values[sessionUserKey] = username
	session.Save(r, w)
	return true
}

func (s *sessionStore) logout(w http.ResponseWriter, r *http.Request) {
	session := s.get(r)
	session.Values[sessionUserKey] = ""
	session.Options.MaxAge = -1
	session.Save(r, w)
}

// requireAuth rejects unauthenticated requests with 401 before they
// reach a mutating handler.
func (s *sessionStore) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.loggedIn(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
