package chat

import (
	"time"

	"github.com/google/uuid"
	"github.com/securechat/securechat/internal/bus"
	"github.com/securechat/securechat/internal/store"
	"go.uber.org/zap"
)

// AddContact creates a contact from the supplied profile data. Username is
// required; identity, timestamps, and defaults are assigned here regardless
// of what the caller filled in. Returns nil when the precondition fails.
func (s *Service) AddContact(c Contact) *Contact {
	if c.Username == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	c.ID = uuid.NewString()
	c.CreatedAt = now
	c.LastSeen = now
	c.Status = StatusOffline
	c.IsFavorite = false
	c.IsBlocked = false
	// Placeholder until a real key exchange happens out of band.
	c.PublicKey = "key-" + uuid.NewString()

	next := make([]Contact, len(s.contacts), len(s.contacts)+1)
	copy(next, s.contacts)
	s.contacts = append(next, c)
	s.saver.save(store.KeyContacts, s.contacts)

	s.publish(bus.KindContactAdded, c.ID)
	return &c
}

// UpdateContact merges the non-nil fields of upd into the contact. Unknown
// ids are a silent no-op.
func (s *Service) UpdateContact(id string, upd ContactUpdate) {
	if id == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.contacts {
		if s.contacts[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	next := make([]Contact, len(s.contacts))
	copy(next, s.contacts)
	next[idx] = upd.apply(next[idx])
	s.contacts = next
	s.saver.save(store.KeyContacts, s.contacts)

	s.publish(bus.KindContactUpdated, id)
}

// DeleteContact removes a contact and cascades: every conversation
// containing the contact is dropped, every pending auto-delete timer in
// those conversations is cancelled, and the active reference is cleared if
// it pointed at a removed conversation.
func (s *Service) DeleteContact(id string) {
	if id == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for i := range s.contacts {
		if s.contacts[i].ID == id {
			found = true
			break
		}
	}
	if !found {
		return
	}

	// Cancel timers before the conversations disappear, so no callback can
	// fire against a dropped conversation.
	cancelled := 0
	var removedChats []string
	for _, conv := range s.conversations {
		if !conv.HasParticipant(id) {
			continue
		}
		removedChats = append(removedChats, conv.ID)
		for _, m := range conv.Messages {
			if s.cancelTimerLocked(m.ID) {
				cancelled++
			}
		}
	}

	contacts := make([]Contact, 0, len(s.contacts)-1)
	for _, c := range s.contacts {
		if c.ID != id {
			contacts = append(contacts, c)
		}
	}
	s.contacts = contacts
	s.saver.save(store.KeyContacts, s.contacts)

	if len(removedChats) > 0 {
		conversations := make([]Conversation, 0, len(s.conversations))
		for _, conv := range s.conversations {
			if !conv.HasParticipant(id) {
				conversations = append(conversations, conv)
			}
		}
		s.conversations = conversations
		s.saver.save(store.KeyConversations, s.conversations)
		s.refreshActiveLocked()
	}

	s.logger.Info("contact deleted",
		zap.String("contact_id", id),
		zap.Int("conversations_removed", len(removedChats)),
		zap.Int("timers_cancelled", cancelled))

	s.publish(bus.KindContactRemoved, id)
	for _, chatID := range removedChats {
		s.publish(bus.KindChatRemoved, chatID)
	}
}

// BlockContact marks a contact as blocked.
func (s *Service) BlockContact(id string) {
	blocked := true
	s.UpdateContact(id, ContactUpdate{IsBlocked: &blocked})
}

// UnblockContact clears a contact's blocked flag.
func (s *Service) UnblockContact(id string) {
	blocked := false
	s.UpdateContact(id, ContactUpdate{IsBlocked: &blocked})
}

// FavoriteContact toggles a contact's favorite flag.
func (s *Service) FavoriteContact(id string) {
	s.mu.Lock()
	var toggled *bool
	for i := range s.contacts {
		if s.contacts[i].ID == id {
			v := !s.contacts[i].IsFavorite
			toggled = &v
			break
		}
	}
	s.mu.Unlock()

	if toggled != nil {
		s.UpdateContact(id, ContactUpdate{IsFavorite: toggled})
	}
}

// seedContacts returns the illustrative first-run contact list. The ids are
// deterministic so a fresh profile is reproducible.
func seedContacts() []Contact {
	now := time.Now()
	return []Contact{
		{
			ID:        "demo-1",
			Username:  "Alice Cooper",
			Avatar:    "A",
			Status:    StatusOnline,
			LastSeen:  now,
			PublicKey: "demo-key-1",
			Email:     "alice@example.com",
			Phone:     "+1234567890",
			CreatedAt: now,
		},
		{
			ID:         "demo-2",
			Username:   "Bob Wilson",
			Avatar:     "B",
			Status:     StatusAway,
			LastSeen:   now.Add(-5 * time.Minute),
			PublicKey:  "demo-key-2",
			Email:      "bob@example.com",
			Phone:      "+1234567891",
			IsFavorite: true,
			CreatedAt:  now,
		},
		{
			ID:        "demo-3",
			Username:  "Carol Smith",
			Avatar:    "C",
			Status:    StatusOffline,
			LastSeen:  now.Add(-time.Hour),
			PublicKey: "demo-key-3",
			Email:     "carol@example.com",
			Phone:     "+1234567892",
			CreatedAt: now,
		},
	}
}
