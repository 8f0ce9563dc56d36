package memory

import (
	"hash/fnv"
	"sync"

	"github.com/ant-retail/attendance-bot/internal/core/domain"
)

const sessionShards = 32

type sessionShard struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

// SessionStore holds dialogue sessions in process memory. Identities are
// spread over fixed shards with their own lock, so users never contend on a
// single global mutex.
type SessionStore struct {
	shards [sessionShards]*sessionShard
}

func NewSessionStore() *SessionStore {
	s := &SessionStore{}
	for i := range s.shards {
		s.shards[i] = &sessionShard{sessions: make(map[string]domain.Session)}
	}
	return s
}

func (s *SessionStore) Get(identity string) (domain.Session, bool) {
	sh := s.shard(identity)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	sess, ok := sh.sessions[identity]
	return sess, ok
}

// Reset discards any existing session of identity and stores an empty one.
func (s *SessionStore) Reset(identity string) domain.Session {
	sess := domain.NewSession(identity)
	s.Save(sess)
	return sess
}

func (s *SessionStore) Save(sess domain.Session) {
	sh := s.shard(sess.Identity)
	sh.mu.Lock()
	sh.sessions[sess.Identity] = sess
	sh.mu.Unlock()
}

// Len returns the number of stored sessions.
func (s *SessionStore) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return n
}

func (s *SessionStore) shard(identity string) *sessionShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(identity))
	return s.shards[h.Sum32()%sessionShards]
}
