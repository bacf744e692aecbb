package pos

import (
	"context"
	"fmt"
	"sync"

	"github.com/gofiber/fiber/v2/log"
)

// SessionCache holds live provider sessions in memory, keyed by tenant
// and provider. Tokens are never written to disk or the database; a
// process restart simply re-authenticates on first use.
type SessionCache struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionCache() *SessionCache {
	return &SessionCache{sessions: make(map[string]*Session)}
}

func sessionKey(tenantID string, provider Provider) string {
	return fmt.Sprintf("%s:%s", tenantID, provider)
}

// ForTenant returns a usable session for the tenant, reusing the cached
// one when it is still fresh, refreshing it when expired, and falling
// back to a full re-authentication when refresh fails or yields an
// expired session.
func (c *SessionCache) ForTenant(ctx context.Context, adapter Adapter, tenantID string, creds Credentials) (*Session, error) {
	key := sessionKey(tenantID, adapter.Provider())

	c.mu.RLock()
	cached := c.sessions[key]
	c.mu.RUnlock()

	if cached != nil && !cached.Expired() {
		return cached, nil
	}

	if cached != nil {
		refreshed, err := adapter.Refresh(ctx, cached, creds)
		if err == nil && refreshed != nil && !refreshed.Expired() {
			c.put(key, refreshed)
			return refreshed, nil
		}
		if err != nil {
			log.Warnf("[POS] session refresh failed for %s, re-authenticating: %v", key, err)
		}
	}

	session, err := adapter.Authenticate(ctx, creds)
	if err != nil {
		return nil, err
	}
	c.put(key, session)
	return session, nil
}

func (c *SessionCache) put(key string, session *Session) {
	c.mu.Lock()
	c.sessions[key] = session
	c.mu.Unlock()
}

// Invalidate drops a cached session, forcing re-authentication on the
// next call. Used after a 401 from the provider.
func (c *SessionCache) Invalidate(tenantID string, provider Provider) {
	c.mu.Lock()
	delete(c.sessions, sessionKey(tenantID, provider))
	c.mu.Unlock()
}
