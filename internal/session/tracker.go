package session

import (
	"hash/fnv"
	"sync"
	"time"
)

const shardCount = 32

// Tracker records per-identity last-activity timestamps and flags sessions
// idle past the timeout. State is process-local; a restart simply starts
// everyone fresh.
//
// The map is sharded by identity so concurrent traffic for different users
// does not contend on one lock.
type Tracker struct {
	idleTimeout time.Duration
	shards      [shardCount]trackerShard

	// now is swappable for tests.
	now func() time.Time
}

type trackerShard struct {
	mu         sync.Mutex
	lastActive map[string]time.Time
}

func NewTracker(idleTimeout time.Duration) *Tracker {
	t := &Tracker{
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
	for i := range t.shards {
		t.shards[i].lastActive = make(map[string]time.Time)
	}
	return t
}

func (t *Tracker) shard(identity string) *trackerShard {
	h := fnv.New32a()
	h.Write([]byte(identity))
	return &t.shards[h.Sum32()%shardCount]
}

// Touch records activity for the identity. It returns true when the previous
// activity was longer ago than the idle timeout; in that case the entry is
// purged and the next Touch behaves as first contact. An empty identity is a
// no-op.
func (t *Tracker) Touch(identity string) (expired bool) {
	if identity == "" {
		return false
	}

	now := t.now()
	s := t.shard(identity)
	s.mu.Lock()
	defer s.mu.Unlock()

	last, ok := s.lastActive[identity]
	if ok && now.Sub(last) > t.idleTimeout {
		delete(s.lastActive, identity)
		return true
	}

	s.lastActive[identity] = now
	return false
}

// PurgeIdle drops every entry idle past the timeout and returns how many were
// removed. Called by the background cleanup job so abandoned sessions do not
// accumulate.
func (t *Tracker) PurgeIdle() int {
	now := t.now()
	purged := 0
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.Lock()
		for identity, last := range s.lastActive {
			if now.Sub(last) > t.idleTimeout {
				delete(s.lastActive, identity)
				purged++
			}
		}
		s.mu.Unlock()
	}
	return purged
}
