package chat

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fitcoach/api-server-go/internal/completion"
	"github.com/fitcoach/api-server-go/internal/model"
)

const shardCount = 32

// ErrSessionExpired signals that the conversation hit its absolute lifetime.
// The transcript is discarded; the caller should re-submit, which starts a
// fresh session.
var ErrSessionExpired = errors.New("chat session expired")

const systemPrompt = "You are a fitness coach and expert data analyst."

const summarizeInstruction = "Summarize the conversation above in a few paragraphs. " +
	"Preserve the user's goals, constraints, preferences, and any commitments made, " +
	"so the conversation can continue from the summary alone."

// Store holds one Conversation per identity, sharded so chat traffic for
// different users never contends on the same lock.
type Store struct {
	completer     completion.Completer
	lifetime      time.Duration
	sizeThreshold int
	shards        [shardCount]storeShard

	// now is swappable for tests.
	now func() time.Time
}

type storeShard struct {
	mu            sync.Mutex
	conversations map[string]*conversation
}

// conversation is the per-identity session state. Uninitialized until the
// first reply, Active afterwards, and reset back to Uninitialized when the
// absolute lifetime elapses.
type conversation struct {
	mu          sync.Mutex
	active      bool
	startedAt   time.Time
	turns       []model.ChatMessage
	context     string
	contextSent bool
	// compacting is set while a summarization pass has the lock released so
	// a concurrent turn does not start a second pass over the same turns.
	compacting bool
	// epoch increments on every reset so a reply in flight across an unlock
	// window can detect that the session it started in is gone.
	epoch uint64
}

func NewStore(completer completion.Completer, lifetime time.Duration, sizeThreshold int) *Store {
	s := &Store{
		completer:     completer,
		lifetime:      lifetime,
		sizeThreshold: sizeThreshold,
		now:           time.Now,
	}
	for i := range s.shards {
		s.shards[i].conversations = make(map[string]*conversation)
	}
	return s
}

func (s *Store) shard(identity string) *storeShard {
	h := fnv.New32a()
	h.Write([]byte(identity))
	return &s.shards[h.Sum32()%shardCount]
}

func (s *Store) get(identity string) *conversation {
	sh := s.shard(identity)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	conv, ok := sh.conversations[identity]
	if !ok {
		conv = &conversation{}
		sh.conversations[identity] = conv
	}
	return conv
}

func (c *conversation) reset() {
	c.active = false
	c.startedAt = time.Time{}
	c.turns = nil
	c.context = ""
	c.contextSent = false
	c.epoch++
}

func serializedSize(turns []model.ChatMessage) int {
	data, err := json.Marshal(turns)
	if err != nil {
		return 0
	}
	return len(data)
}

// Reply runs one chat turn for the identity: it lazily starts a session with
// the given initial context, summarizes the transcript when it has grown past
// the size threshold, asks the completion service for a response, and appends
// the user message and the reply to the transcript as one atomic update.
//
// The per-conversation lock is released while the completion call is in
// flight so a slow upstream cannot pin the session, and the completion call
// itself is cancellable through ctx.
func (s *Store) Reply(ctx context.Context, identity, initialContext, userMessage string) (string, error) {
	conv := s.get(identity)
	conv.mu.Lock()

	now := s.now()
	if conv.active && now.Sub(conv.startedAt) > s.lifetime {
		conv.reset()
		conv.mu.Unlock()
		return "", ErrSessionExpired
	}

	if !conv.active {
		conv.active = true
		conv.startedAt = now
		conv.context = initialContext
	}

	if serializedSize(conv.turns) > s.sizeThreshold && !conv.compacting {
		s.compactLocked(ctx, conv)
	}

	includeContext := !conv.contextSent && conv.context != ""
	if includeContext {
		// Claimed before the unlock so a concurrent first turn for the same
		// identity does not send the context a second time.
		conv.contextSent = true
	}

	prompt := make([]model.ChatMessage, 0, len(conv.turns)+3)
	prompt = append(prompt, model.ChatMessage{Role: model.RoleSystem, Content: systemPrompt})
	if includeContext {
		prompt = append(prompt, model.ChatMessage{Role: model.RoleAssistant, Content: conv.context})
	}
	prompt = append(prompt, conv.turns...)
	prompt = append(prompt, model.ChatMessage{Role: model.RoleUser, Content: userMessage})

	epoch := conv.epoch
	conv.mu.Unlock()

	reply, err := s.completer.Complete(ctx, prompt)

	conv.mu.Lock()
	defer conv.mu.Unlock()

	if err != nil {
		if includeContext && conv.epoch == epoch {
			conv.contextSent = false
		}
		return "", err
	}

	// The session may have been reset while the lock was released. The reply
	// is still returned, but there is no transcript left to append it to.
	if conv.epoch != epoch {
		return reply, nil
	}

	conv.turns = append(conv.turns,
		model.ChatMessage{Role: model.RoleUser, Content: userMessage},
		model.ChatMessage{Role: model.RoleAssistant, Content: reply},
	)

	return reply, nil
}

// compactLocked shrinks the transcript, preferring a summarization pass and
// falling back to truncation when the completion service fails. Called with
// conv.mu held; the lock is released during the completion call.
func (s *Store) compactLocked(ctx context.Context, conv *conversation) {
	transcript := make([]model.ChatMessage, len(conv.turns))
	copy(transcript, conv.turns)
	epoch := conv.epoch
	conv.compacting = true
	conv.mu.Unlock()

	prompt := make([]model.ChatMessage, 0, len(transcript)+2)
	prompt = append(prompt, model.ChatMessage{Role: model.RoleSystem, Content: systemPrompt})
	prompt = append(prompt, transcript...)
	prompt = append(prompt, model.ChatMessage{Role: model.RoleUser, Content: summarizeInstruction})

	summary, err := s.completer.Complete(ctx, prompt)

	conv.mu.Lock()
	conv.compacting = false
	if conv.epoch != epoch {
		return
	}

	// The transcript only grows while the lock is released (the compacting
	// flag bars a second pass and resets bump the epoch), so anything past
	// the snapshot is a concurrent turn that must survive the compaction.
	appended := conv.turns[len(transcript):]

	if err != nil {
		log.Warn().Err(err).Int("turns", len(conv.turns)).Msg("summarization failed, truncating transcript")
		kept := make([]model.ChatMessage, 0, len(transcript)-len(transcript)/2+len(appended))
		kept = append(kept, transcript[len(transcript)/2:]...)
		kept = append(kept, appended...)
		conv.turns = kept
		return
	}

	compacted := make([]model.ChatMessage, 0, 1+len(appended))
	compacted = append(compacted, model.ChatMessage{
		Role:    model.RoleSystem,
		Content: "Summary of the conversation so far: " + summary,
	})
	compacted = append(compacted, appended...)
	conv.turns = compacted
	log.Debug().Int("summarized_turns", len(transcript)).Msg("transcript summarized")
}

// PurgeExpired discards every conversation past its absolute lifetime and
// returns how many were dropped. Called by the background cleanup job.
func (s *Store) PurgeExpired() int {
	now := s.now()
	purged := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for identity, conv := range sh.conversations {
			conv.mu.Lock()
			expired := conv.active && now.Sub(conv.startedAt) > s.lifetime
			if expired {
				conv.reset()
			}
			conv.mu.Unlock()
			if expired {
				delete(sh.conversations, identity)
				purged++
			}
		}
		sh.mu.Unlock()
	}
	return purged
}
