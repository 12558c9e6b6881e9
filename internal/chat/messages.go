package chat

import (
	"time"

	"github.com/google/uuid"
	"github.com/securechat/securechat/internal/bus"
	"github.com/securechat/securechat/internal/notify"
	"github.com/securechat/securechat/internal/store"
	"go.uber.org/zap"
)

// msgTimer is one entry in the auto-delete registry. state is StateArmed
// while the delete timer is pending and StateDeleting between the timer
// firing and the grace interval elapsing. Entries are keyed by message id so
// cancellation is O(1) even when a cascade cancels in bulk.
type msgTimer struct {
	timer  *time.Timer
	state  LifecycleState
	chatID string
}

// Append adds a message at the tail of a conversation and, if the
// conversation's settings ask for it, schedules its auto-delete. The
// conversation snapshot and the active reference are both refreshed before
// the call returns. Returns nil when there is no current user, the
// conversation is unknown, or content is empty.
func (s *Service) Append(chatID, content string, typ MessageType, meta Metadata) *Message {
	if s.user == nil || chatID == "" || content == "" {
		return nil
	}
	if typ == "" {
		typ = MessageText
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.findConversationLocked(chatID)
	if conv == nil {
		return nil
	}

	stored := content
	if conv.Settings.Encryption {
		sealed, err := s.cipher.Encrypt([]byte(content))
		if err != nil {
			s.logger.Error("failed to encrypt message", zap.String("chat_id", chatID), zap.Error(err))
			s.notify("Error", "Failed to send message", notify.SeverityError)
			return nil
		}
		stored = sealed
	}

	now := time.Now()
	msg := Message{
		ID:           uuid.NewString(),
		ChatID:       chatID,
		SenderID:     s.user.ID,
		SenderName:   s.user.Username,
		SenderAvatar: s.user.Avatar,
		Content:      stored,
		Type:         typ,
		Metadata:     meta,
		Timestamp:    now,
		Encrypted:    conv.Settings.Encryption,
		Read:         false,
		AutoDelete:   conv.Settings.AutoDelete,
		DeleteTimer:  conv.Settings.DeleteTimerMs,
		Reactions:    []Reaction{},
		EditHistory:  []EditRevision{},
	}

	s.replaceConversationLocked(chatID, func(c Conversation) Conversation {
		c.Messages = append(c.Messages, msg)
		c.LastActivity = now
		return c
	})
	s.saver.save(store.KeyConversations, s.conversations)
	s.refreshActiveLocked()
	s.publish(bus.KindMessageAppended, bus.MessageRef{ChatID: chatID, MessageID: msg.ID})

	if msg.AutoDelete {
		s.armTimerLocked(chatID, msg.ID, msg.DeleteDelay())
	}

	return &msg
}

// AppendVoice adds a voice message. The payload itself stays with the
// capture collaborator; the core records only the opaque reference and the
// clip's shape.
func (s *Service) AppendVoice(chatID, payloadRef, contentType string, durationSec float64, sizeBytes int64) *Message {
	return s.Append(chatID, payloadRef, MessageVoice, Metadata{
		DurationSec: durationSec,
		SizeBytes:   sizeBytes,
		ContentType: contentType,
		PayloadRef:  payloadRef,
	})
}

// Edit replaces a message's content, pushing the previous content onto its
// edit history. Editing cancels any pending auto-delete for the message:
// an edited message is exempt from its previously scheduled deletion.
// Missing arguments or an unknown message are a silent no-op.
func (s *Service) Edit(chatID, messageID, newContent string) {
	if chatID == "" || messageID == "" || newContent == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.findConversationLocked(chatID)
	if conv == nil {
		return
	}
	var current *Message
	for i := range conv.Messages {
		if conv.Messages[i].ID == messageID {
			current = &conv.Messages[i]
			break
		}
	}
	if current == nil {
		return
	}

	s.cancelTimerLocked(messageID)

	stored := newContent
	if current.Encrypted {
		sealed, err := s.cipher.Encrypt([]byte(newContent))
		if err != nil {
			s.logger.Error("failed to encrypt edit", zap.String("message_id", messageID), zap.Error(err))
			s.notify("Error", "Failed to edit message", notify.SeverityError)
			return
		}
		stored = sealed
	}

	now := time.Now()
	s.replaceConversationLocked(chatID, func(c Conversation) Conversation {
		for i := range c.Messages {
			if c.Messages[i].ID != messageID {
				continue
			}
			m := c.Messages[i]
			m.EditHistory = append(m.EditHistory, EditRevision{Content: m.Content, Timestamp: now})
			m.Content = stored
			m.IsEdited = true
			m.EditedAt = &now
			c.Messages[i] = m
			break
		}
		return c
	})
	s.saver.save(store.KeyConversations, s.conversations)
	s.refreshActiveLocked()
	s.publish(bus.KindMessageEdited, bus.MessageRef{ChatID: chatID, MessageID: messageID})
	s.notify("Message Edited", "Your message has been updated", notify.SeverityInfo)
}

// MarkRead sets a message's read flag. The flag is monotonic: once read, a
// message never becomes unread, and repeated calls change nothing. The
// redundant persistence write for an already-read message is skipped.
func (s *Service) MarkRead(chatID, messageID string) {
	if chatID == "" || messageID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.findConversationLocked(chatID)
	if conv == nil {
		return
	}
	for i := range conv.Messages {
		if conv.Messages[i].ID == messageID {
			if conv.Messages[i].Read {
				return
			}
			break
		}
	}

	changed := false
	s.replaceConversationLocked(chatID, func(c Conversation) Conversation {
		for i := range c.Messages {
			if c.Messages[i].ID == messageID && !c.Messages[i].Read {
				m := c.Messages[i]
				m.Read = true
				c.Messages[i] = m
				changed = true
				break
			}
		}
		return c
	})
	if !changed {
		return
	}
	s.saver.save(store.KeyConversations, s.conversations)
	s.refreshActiveLocked()
	s.publish(bus.KindMessageRead, bus.MessageRef{ChatID: chatID, MessageID: messageID})
}

// Delete removes a message immediately. Any pending auto-delete timer is
// cancelled and its deletion-in-flight marker cleared; if a racing
// auto-delete already removed the message this degrades to a no-op. A
// deleted message stays deleted: a late-firing timer finds nothing.
func (s *Service) Delete(chatID, messageID string) {
	if chatID == "" || messageID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelTimerLocked(messageID)

	if !s.removeMessageLocked(chatID, messageID) {
		return
	}
	s.saver.save(store.KeyConversations, s.conversations)
	s.refreshActiveLocked()
	s.publish(bus.KindMessageDeleted, bus.MessageRef{ChatID: chatID, MessageID: messageID})
}

// DeletingMessages returns the ids currently in the deletion-in-flight set:
// messages whose auto-delete fired but whose grace interval has not yet
// elapsed. The set is derived from the timer registry, so it is exactly
// consistent with the in-flight grace timers.
func (s *Service) DeletingMessages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, entry := range s.timers {
		if entry.state == StateDeleting {
			ids = append(ids, id)
		}
	}
	return ids
}

// armTimerLocked schedules the auto-delete for a message. A previous entry
// for the same id is replaced.
func (s *Service) armTimerLocked(chatID, messageID string, delay time.Duration) {
	if prev, ok := s.timers[messageID]; ok {
		prev.timer.Stop()
	}
	entry := &msgTimer{state: StateArmed, chatID: chatID}
	entry.timer = time.AfterFunc(delay, func() {
		s.beginAutoDelete(messageID)
	})
	s.timers[messageID] = entry
}

// cancelTimerLocked stops and discards the timer entry for a message,
// whichever phase it is in. Reports whether an entry existed.
func (s *Service) cancelTimerLocked(messageID string) bool {
	entry, ok := s.timers[messageID]
	if !ok {
		return false
	}
	entry.timer.Stop()
	delete(s.timers, messageID)
	return true
}

// beginAutoDelete is phase 1 of the two-phase delete: the message becomes
// observable as deletion-in-flight, no data is removed yet, and the grace
// timer for phase 2 is armed.
func (s *Service) beginAutoDelete(messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	entry, ok := s.timers[messageID]
	if !ok || entry.state != StateArmed {
		// Cancelled (edit, manual delete, cascade) between firing and
		// acquiring the lock.
		return
	}
	next, err := transition(entry.state, StateDeleting)
	if err != nil {
		s.logger.Warn("skipping auto-delete", zap.String("message_id", messageID), zap.Error(err))
		return
	}
	entry.state = next
	entry.timer = time.AfterFunc(s.cfg.DeleteGrace(), func() {
		s.finishAutoDelete(messageID)
	})
	s.publish(bus.KindMessageDeleting, bus.MessageRef{ChatID: entry.chatID, MessageID: messageID})
}

// finishAutoDelete is phase 2: the message is removed from its conversation
// and the in-flight marker cleared. If the message or its conversation is
// already gone this is a benign no-op.
func (s *Service) finishAutoDelete(messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	entry, ok := s.timers[messageID]
	if !ok || entry.state != StateDeleting {
		return
	}
	chatID := entry.chatID
	delete(s.timers, messageID)

	if !s.removeMessageLocked(chatID, messageID) {
		s.logger.Debug("stale auto-delete, message already gone",
			zap.String("chat_id", chatID),
			zap.String("message_id", messageID))
		return
	}
	s.saver.save(store.KeyConversations, s.conversations)
	s.refreshActiveLocked()
	s.publish(bus.KindMessageDeleted, bus.MessageRef{ChatID: chatID, MessageID: messageID})
}

// removeMessageLocked drops a message from its conversation's sequence.
// Reports whether the message was present.
func (s *Service) removeMessageLocked(chatID, messageID string) bool {
	removed := false
	s.replaceConversationLocked(chatID, func(c Conversation) Conversation {
		msgs := make([]Message, 0, len(c.Messages))
		for _, m := range c.Messages {
			if m.ID == messageID {
				removed = true
				continue
			}
			msgs = append(msgs, m)
		}
		c.Messages = msgs
		return c
	})
	return removed
}
