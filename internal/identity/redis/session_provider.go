package redis

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/rentloop/reservation-service/internal/identity"
	"github.com/rentloop/reservation-service/internal/platform/errors"
)

// SessionProvider validates sessions against the shared Redis store
// written by the IAM service
type SessionProvider struct {
	client *goredis.Client
}

// NewSessionProvider creates a Redis-backed session provider
func NewSessionProvider(client *goredis.Client) identity.Provider {
	return &SessionProvider{client: client}
}

// ValidateSession looks up a session by ID and checks its token and expiry
func (p *SessionProvider) ValidateSession(ctx context.Context, sessionID, accessToken string) (*identity.Session, error) {
	sessionKey := fmt.Sprintf("session:%s", sessionID)

	sessionData, err := p.client.Get(ctx, sessionKey).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, errors.NewValidation("session not found or expired")
		}
		return nil, errors.Wrap(err, "failed to get session")
	}

	var session identity.Session
	if err := json.Unmarshal([]byte(sessionData), &session); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal session")
	}

	if !session.IsValid() {
		return nil, errors.NewValidation("session is no longer valid")
	}

	if session.AccessToken != accessToken {
		return nil, errors.NewValidation("invalid access token")
	}

	return &session, nil
}
