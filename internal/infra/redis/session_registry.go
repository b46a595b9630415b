package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"quizhub/internal/app"
)

// SessionRegistry decorates an in-process registry with Redis liveness markers.
// Notes:
//   - Session state itself stays in process memory; the engine's broadcast
//     fan-out needs in-process channels anyway.
//   - Redis keys let other instances (or an ops dashboard) see which codes are
//     live, and give codes a hard TTL independent of the janitor.
//   - For true distribution you'd pair this with a pub/sub projector that fans
//     out snapshots across instances.
type SessionRegistry struct {
	inner  app.SessionRegistry
	client *redis.Client
	ttl    time.Duration
}

func NewSessionRegistry(inner app.SessionRegistry, client *redis.Client, ttl time.Duration) *SessionRegistry {
	return &SessionRegistry{inner: inner, client: client, ttl: ttl}
}

func (r *SessionRegistry) Put(code string, session *app.Session) bool {
	if !r.inner.Put(code, session) {
		return false
	}
	// best-effort liveness marker
	_ = r.client.Set(context.Background(), r.key(code), session.ID(), r.ttl).Err()
	return true
}

func (r *SessionRegistry) Get(code string) (*app.Session, bool) {
	session, ok := r.inner.Get(code)
	if ok {
		// Activity refreshes the marker so busy sessions never expire in Redis.
		_ = r.client.Expire(context.Background(), r.key(code), r.ttl).Err()
	}
	return session, ok
}

func (r *SessionRegistry) Delete(code string) {
	r.inner.Delete(code)
	_ = r.client.Del(context.Background(), r.key(code)).Err()
}

func (r *SessionRegistry) Codes() []string {
	return r.inner.Codes()
}

func (r *SessionRegistry) key(code string) string {
	return "session:live:" + code
}
