package session

import (
	"sync"
	"time"

	"doqulio-chat/internal/pkg/logger"

	"github.com/patrickmn/go-cache"
)

// Registry hands out one Store per user and forgets it after the user has been idle for the TTL.
type Registry struct {
	mu       sync.Mutex
	cache    *cache.Cache
	ttl      time.Duration
	backend  Backend
	logger   logger.ILogger
	language string

	observers []Observer
}

// NewRegistry creates a registry. A cleanup interval of 0 disables the background janitor.
func NewRegistry(backend Backend, ttl, cleanupInterval time.Duration, log logger.ILogger) *Registry {
	if log == nil {
		log = logger.NewNopLogger()
	}
	r := &Registry{
		cache:   cache.New(ttl, cleanupInterval),
		ttl:     ttl,
		backend: backend,
		logger:  log,
	}
	r.cache.OnEvicted(func(userId string, _ interface{}) {
		r.logger.Info("SessionRegistry", "Chat state released", map[string]interface{}{"user_id": userId})
	})
	return r
}

// SetDefaultLanguage sets the target language new stores start with.
func (r *Registry) SetDefaultLanguage(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.language = name
}

// Observe attaches o to every store created from now on.
func (r *Registry) Observe(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, o)
}

// ForUser returns the user's store, creating it on first use, and refreshes its idle timer.
func (r *Registry) ForUser(userId string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	if x, found := r.cache.Get(userId); found {
		store := x.(*Store)
		r.cache.Set(userId, store, r.ttl)
		return store
	}

	opts := []Option{WithLogger(r.logger), WithTargetLanguage(r.language)}
	for _, o := range r.observers {
		opts = append(opts, WithObserver(o))
	}
	store := NewStore(userId, r.backend, opts...)
	r.cache.Set(userId, store, r.ttl)

	r.logger.Info("SessionRegistry", "Chat state created", map[string]interface{}{"user_id": userId})
	return store
}

// Lookup returns the user's store without creating one. Unlike ForUser it
// does not count as activity: the idle timer is left as it is.
func (r *Registry) Lookup(userId string) (*Store, bool) {
	if x, found := r.cache.Get(userId); found {
		return x.(*Store), true
	}
	return nil, false
}

// Forget drops the user's store, e.g. on logout.
func (r *Registry) Forget(userId string) {
	r.cache.Delete(userId)
}

func (r *Registry) Count() int {
	return r.cache.ItemCount()
}
