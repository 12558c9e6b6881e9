// Package chat owns the lifecycle of conversations, contacts, and messages
// for a single local user. All state lives in the Service; mutation replaces
// immutable snapshots of the collections, so a reader holding a previous
// snapshot never observes a partial update.
package chat

import (
	"context"
	"sync"
	"time"

	"github.com/securechat/securechat/internal/bus"
	"github.com/securechat/securechat/internal/config"
	"github.com/securechat/securechat/internal/notify"
	"github.com/securechat/securechat/internal/profile"
	"github.com/securechat/securechat/internal/seal"
	"github.com/securechat/securechat/internal/store"
	"go.uber.org/zap"
)

// Service is the chat state manager. It is constructed once per profile and
// handed to consumers by reference; its lifecycle is explicit: Start loads
// the persisted collections, Close cancels every outstanding timer.
type Service struct {
	user     *profile.User
	cfg      *config.Config
	store    *store.Store
	bus      *bus.Bus
	logger   *zap.Logger
	cipher   seal.Cipher
	notifier notify.Notifier
	saver    *saver

	mu            sync.Mutex
	contacts      []Contact
	conversations []Conversation
	activeID      string
	timers        map[string]*msgTimer
	typing        map[string]*typingEntry
	typingGen     uint64
	closed        bool
}

// NewService creates a chat service. user may be nil, in which case every
// operation requiring an identity degrades to a graceful no-op.
func NewService(user *profile.User, cfg *config.Config, st *store.Store, b *bus.Bus, cipher seal.Cipher, notifier notify.Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cipher == nil {
		cipher = seal.Plain{}
	}
	return &Service{
		user:     user,
		cfg:      cfg,
		store:    st,
		bus:      b,
		logger:   logger,
		cipher:   cipher,
		notifier: notifier,
		saver:    newSaver(st, logger, cfg.SaveCooldown()),
		timers:   make(map[string]*msgTimer),
		typing:   make(map[string]*typingEntry),
	}
}

// Start loads the persisted collections, seeds demo contacts on first run if
// configured, and re-arms auto-delete timers for ephemeral messages that
// survived a restart (overdue ones are swept immediately).
func (s *Service) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.store.Load(store.KeyContacts, &s.contacts) {
		s.contacts = nil
		if s.cfg.SeedDemoContacts {
			s.contacts = seedContacts()
			s.saver.save(store.KeyContacts, s.contacts)
			s.logger.Info("seeded demo contacts", zap.Int("count", len(s.contacts)))
		}
	}
	if !s.store.Load(store.KeyConversations, &s.conversations) {
		s.conversations = nil
	}

	swept, armed := s.sweepEphemeralLocked()
	s.logger.Info("chat service started",
		zap.Int("contacts", len(s.contacts)),
		zap.Int("conversations", len(s.conversations)),
		zap.Int("expired_swept", swept),
		zap.Int("timers_armed", armed))
	return nil
}

// Close tears the service down: it stops every auto-delete and typing timer
// and rejects late timer callbacks. Idempotent.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, entry := range s.timers {
		entry.timer.Stop()
		delete(s.timers, id)
	}
	for id, entry := range s.typing {
		entry.timer.Stop()
		delete(s.typing, id)
	}
	s.logger.Info("chat service closed")
}

// sweepEphemeralLocked walks the loaded conversations and handles ephemeral
// messages whose timers were lost with the previous process: overdue ones
// are removed, pending ones get a fresh timer for the remaining delay.
func (s *Service) sweepEphemeralLocked() (swept, armed int) {
	now := time.Now()
	for _, conv := range s.conversations {
		var expired []string
		for _, m := range conv.Messages {
			if !m.AutoDelete {
				continue
			}
			deadline := m.Timestamp.Add(m.DeleteDelay())
			if !deadline.After(now) {
				expired = append(expired, m.ID)
				continue
			}
			s.armTimerLocked(conv.ID, m.ID, deadline.Sub(now))
			armed++
		}
		for _, id := range expired {
			s.removeMessageLocked(conv.ID, id)
			swept++
		}
	}
	if swept > 0 {
		s.saver.save(store.KeyConversations, s.conversations)
		s.refreshActiveLocked()
	}
	return swept, armed
}

// Contacts returns a snapshot of the contact collection.
func (s *Service) Contacts() []Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Contact(nil), s.contacts...)
}

// Conversations returns the current conversation snapshot. The returned
// slice and everything reachable from it are never mutated in place.
func (s *Service) Conversations() []Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Conversation(nil), s.conversations...)
}

// ActiveConversation returns the latest snapshot of the conversation
// currently being viewed, or nil when none is active.
func (s *Service) ActiveConversation() *Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv := s.findConversationLocked(s.activeID); conv != nil {
		cp := *conv
		return &cp
	}
	return nil
}

// DecryptContent opens a message's content through the encryption delegate.
// Non-encrypted messages pass through unchanged.
func (s *Service) DecryptContent(m Message) (string, error) {
	if !m.Encrypted {
		return m.Content, nil
	}
	plaintext, err := s.cipher.Decrypt(m.Content)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func (s *Service) findConversationLocked(id string) *Conversation {
	if id == "" {
		return nil
	}
	for i := range s.conversations {
		if s.conversations[i].ID == id {
			return &s.conversations[i]
		}
	}
	return nil
}

// replaceConversationLocked swaps in a rewritten copy of one conversation,
// leaving the previous snapshot untouched for readers that captured it.
func (s *Service) replaceConversationLocked(id string, fn func(Conversation) Conversation) bool {
	for i := range s.conversations {
		if s.conversations[i].ID == id {
			next := make([]Conversation, len(s.conversations))
			copy(next, s.conversations)
			next[i] = fn(next[i].clone())
			s.conversations = next
			return true
		}
	}
	return false
}

// refreshActiveLocked re-points the active reference at the current snapshot
// after a mutation, clearing it when the conversation no longer exists. The
// conversation list and the active reference always change together, under
// the same lock acquisition.
func (s *Service) refreshActiveLocked() {
	if s.activeID == "" {
		return
	}
	if s.findConversationLocked(s.activeID) == nil {
		s.activeID = ""
	}
}

func (s *Service) publish(kind string, payload any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(bus.Event{Kind: kind, Timestamp: time.Now(), Payload: payload})
}

func (s *Service) notify(title, description string, severity notify.Severity) {
	if s.notifier != nil {
		s.notifier.Notify(title, description, severity)
	}
}
