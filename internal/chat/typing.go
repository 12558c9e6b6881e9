package chat

import (
	"time"

	"github.com/securechat/securechat/internal/bus"
)

// typingEntry tracks who is typing in one conversation. gen guards expiry:
// each SetTyping(true) bumps the generation, and an expiry callback only
// clears the entry if its generation is still current, so a later call's
// indicator is never cut short by an earlier call's timer.
type typingEntry struct {
	userID string
	gen    uint64
	timer  *time.Timer
}

// SetTyping sets or clears the typing indicator for a conversation. A set
// indicator auto-clears after the configured expiry unless refreshed.
// Typing state is transient: it is never persisted and vanishes on restart.
func (s *Service) SetTyping(chatID string, isTyping bool) {
	if s.user == nil || chatID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	if !isTyping {
		if entry, ok := s.typing[chatID]; ok {
			entry.timer.Stop()
			delete(s.typing, chatID)
			s.publish(bus.KindTypingChanged, bus.TypingChange{ChatID: chatID})
		}
		return
	}

	if prev, ok := s.typing[chatID]; ok {
		prev.timer.Stop()
	}
	s.typingGen++
	gen := s.typingGen
	entry := &typingEntry{userID: s.user.ID, gen: gen}
	entry.timer = time.AfterFunc(s.cfg.TypingExpiry(), func() {
		s.expireTyping(chatID, gen)
	})
	s.typing[chatID] = entry
	s.publish(bus.KindTypingChanged, bus.TypingChange{ChatID: chatID, UserID: s.user.ID})
}

// expireTyping clears a typing indicator when its timer elapses, unless a
// newer SetTyping call superseded it.
func (s *Service) expireTyping(chatID string, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	entry, ok := s.typing[chatID]
	if !ok || entry.gen != gen {
		return
	}
	delete(s.typing, chatID)
	s.publish(bus.KindTypingChanged, bus.TypingChange{ChatID: chatID})
}

// TypingUser returns the id of the user currently typing in a conversation,
// or empty when nobody is.
func (s *Service) TypingUser(chatID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.typing[chatID]; ok {
		return entry.userID
	}
	return ""
}
