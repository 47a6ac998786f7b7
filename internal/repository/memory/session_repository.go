package memory

import (
	"doqulio-chat/internal/entity"

	"github.com/patrickmn/go-cache"
)

// SessionRepository keeps the chat sessions of one store, newest first.
// It is not safe for concurrent use; the owning store serialises access.
type SessionRepository struct {
	cache *cache.Cache
	order []string
}

func NewSessionRepository() *SessionRepository {
	// Sessions live as long as their store, so nothing expires and no janitor runs.
	c := cache.New(cache.NoExpiration, 0)
	return &SessionRepository{
		cache: c,
	}
}

func (r *SessionRepository) Save(session *entity.ChatSession) {
	if _, found := r.cache.Get(session.Id); !found {
		r.order = append([]string{session.Id}, r.order...)
	}
	r.cache.Set(session.Id, session, cache.NoExpiration)
}

func (r *SessionRepository) Get(sessionID string) (*entity.ChatSession, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*entity.ChatSession), true
	}
	return nil, false
}

// Delete removes the session and reports whether it existed.
func (r *SessionRepository) Delete(sessionID string) bool {
	if _, found := r.cache.Get(sessionID); !found {
		return false
	}
	r.cache.Delete(sessionID)
	for i, id := range r.order {
		if id == sessionID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func (r *SessionRepository) First() (*entity.ChatSession, bool) {
	if len(r.order) == 0 {
		return nil, false
	}
	return r.Get(r.order[0])
}

// List returns the sessions in display order.
func (r *SessionRepository) List() []*entity.ChatSession {
	out := make([]*entity.ChatSession, 0, len(r.order))
	for _, id := range r.order {
		if s, ok := r.Get(id); ok {
			out = append(out, s)
		}
	}
	return out
}

func (r *SessionRepository) Count() int {
	return len(r.order)
}
