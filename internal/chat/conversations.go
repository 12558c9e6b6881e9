package chat

import (
	"time"

	"github.com/google/uuid"
	"github.com/securechat/securechat/internal/bus"
	"github.com/securechat/securechat/internal/store"
	"go.uber.org/zap"
)

// CreateConversation opens a thread with a contact and makes it active. If a
// private conversation for the {current user, contact} pair already exists
// it is returned and activated instead of creating a duplicate. Returns nil
// when there is no current user or the contact is unknown.
func (s *Service) CreateConversation(contactID string, typ ConversationType) *Conversation {
	if s.user == nil || contactID == "" {
		return nil
	}
	if typ == "" {
		typ = TypePrivate
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	known := false
	for i := range s.contacts {
		if s.contacts[i].ID == contactID {
			known = true
			break
		}
	}
	if !known {
		return nil
	}

	// Dedupe on the unordered participant pair. Two near-simultaneous
	// creations resolve here: the loser gets the winner's conversation.
	for i := range s.conversations {
		conv := s.conversations[i]
		if conv.HasParticipant(contactID) && conv.HasParticipant(s.user.ID) {
			s.activeID = conv.ID
			s.publish(bus.KindChatActivated, conv.ID)
			cp := conv
			return &cp
		}
	}

	now := time.Now()
	conv := Conversation{
		ID:           uuid.NewString(),
		Type:         typ,
		Participants: []string{s.user.ID, contactID},
		Messages:     []Message{},
		CreatedAt:    now,
		LastActivity: now,
		Settings: Settings{
			AutoDelete:    s.cfg.AutoDelete,
			DeleteTimerMs: s.cfg.DeleteTimerMs,
			Encryption:    s.cfg.Encryption,
		},
	}

	next := make([]Conversation, len(s.conversations), len(s.conversations)+1)
	copy(next, s.conversations)
	s.conversations = append(next, conv)
	s.saver.save(store.KeyConversations, s.conversations)
	s.activeID = conv.ID

	s.logger.Info("conversation created",
		zap.String("chat_id", conv.ID),
		zap.String("contact_id", contactID))
	s.publish(bus.KindChatCreated, conv.ID)

	cp := conv
	return &cp
}

// SetActive designates the conversation being viewed. An empty id clears the
// active reference; an unknown id is a no-op returning nil.
func (s *Service) SetActive(id string) *Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		s.activeID = ""
		s.publish(bus.KindChatActivated, "")
		return nil
	}
	conv := s.findConversationLocked(id)
	if conv == nil {
		return nil
	}
	s.activeID = id
	s.publish(bus.KindChatActivated, id)
	cp := *conv
	return &cp
}
