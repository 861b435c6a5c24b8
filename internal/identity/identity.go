package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session is the authenticated caller state stored by the IAM service.
// The reservation service only reads sessions, it never creates them.
type Session struct {
	ID             string    `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	AccessToken    string    `json:"access_token"`
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
	Status         string    `json:"status"`
}

// Session status values written by the IAM service
const (
	SessionStatusActive  = "active"
	SessionStatusExpired = "expired"
	SessionStatusRevoked = "revoked"
)

// IsValid reports whether the session can still be used
func (s *Session) IsValid() bool {
	if s.Status != SessionStatusActive {
		return false
	}
	return time.Now().Before(s.ExpiresAt)
}

// IsAdmin reports whether the session belongs to an operator
func (s *Session) IsAdmin() bool {
	return s.Role == "admin"
}

// Provider validates caller sessions
type Provider interface {
	ValidateSession(ctx context.Context, sessionID, accessToken string) (*Session, error)
}
