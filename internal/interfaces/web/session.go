package web

import (
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

const (
	sessionName   = "mealsched_session"
	sessionMaxAge = 7 * 24 * time.Hour
)

// SessionManager keeps the logged-in operator in a signed and encrypted
// cookie. There is no server-side session table.
type SessionManager struct {
	sc     *securecookie.SecureCookie
	secure bool
}

func NewSessionManager(hashKey, blockKey []byte) *SessionManager {
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(sessionMaxAge / time.Second))
	return &SessionManager{sc: sc}
}

func (s *SessionManager) SetOperator(w http.ResponseWriter, r *http.Request, operatorID, username string) error {
	value := map[string]string{"oid": operatorID, "name": username}
	encoded, err := s.sc.Encode(sessionName, value)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name: sessionName, Value: encoded, Path: "/",
		MaxAge:   int(sessionMaxAge / time.Second),
		HttpOnly: true, SameSite: http.SameSiteLaxMode, Secure: r.TLS != nil,
	})
	return nil
}

func (s *SessionManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name: sessionName, Value: "", Path: "/", MaxAge: -1,
		HttpOnly: true, SameSite: http.SameSiteLaxMode,
	})
}

// Operator returns the operator id and username stored in the request's
// session cookie.
func (s *SessionManager) Operator(r *http.Request) (id, username string, ok bool) {
	c, err := r.Cookie(sessionName)
	if err != nil {
		return "", "", false
	}
	value := map[string]string{}
	if err := s.sc.Decode(sessionName, c.Value, &value); err != nil {
		return "", "", false
	}
	if value["oid"] == "" {
		return "", "", false
	}
	return value["oid"], value["name"], true
}
