package account

import (
	"context"
	"time"

	"github.com/dentscan/dentclaim/cache"
	mw "github.com/dentscan/dentclaim/middleware"
	"github.com/dentscan/dentclaim/model"
)

// Sessions issues JWTs and records them in the cache so they can be
// revoked before expiry.
type Sessions struct {
	cache  cache.Cache
	secret string
}

func NewSessions(c cache.Cache, secret string) *Sessions {
	return &Sessions{cache: c, secret: secret}
}

// Start signs a token for subject and stores its session for ttl.
func (s *Sessions) Start(ctx context.Context, subject string, role model.Role, ttl time.Duration) (string, error) {
	token, err := mw.GenerateToken(subject, role, s.secret, ttl)
	if err != nil {
		return "", err
	}
	if err := s.cache.Set(ctx, mw.SessionKey(token), subject, ttl); err != nil {
		return "", err
	}
	return token, nil
}

// End revokes token. Ending an unknown session is not an error.
func (s *Sessions) End(ctx context.Context, token string) error {
	return s.cache.Del(ctx, mw.SessionKey(token))
}
