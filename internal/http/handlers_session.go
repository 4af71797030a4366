package httpx

import (
	"net/http"
	"time"

	domainauth "github.com/fakehospital/portal/internal/domain/auth"
)

type sessionResponse struct {
	Authenticated bool                    `json:"authenticated"`
	User          *domainauth.SessionUser `json:"user,omitempty"`
	AccessToken   string                  `json:"accessToken,omitempty"`
	ExpiresAt     *time.Time              `json:"expiresAt,omitempty"`
}

// SessionInfo returns the augmented session for the caller, or
// {"authenticated":false} when there is none. It sits behind OptionalSession.
// GET /api/session.
func SessionInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	sess, ok := GetSessionFromContext(r.Context())
	if !ok {
		WriteJSON(w, http.StatusOK, sessionResponse{})
		return
	}
	user := sess.User
	expires := sess.ExpiresAt
	WriteJSON(w, http.StatusOK, sessionResponse{
		Authenticated: true,
		User:          &user,
		AccessToken:   sess.AccessToken,
		ExpiresAt:     &expires,
	})
}
