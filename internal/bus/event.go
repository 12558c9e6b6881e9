package bus

import "time"

// Event kinds published by the chat core. Subscribers filter by namespace
// prefix, e.g. "message." receives every message lifecycle event.
const (
	KindContactAdded   = "contact.added"
	KindContactUpdated = "contact.updated"
	KindContactRemoved = "contact.removed"

	KindChatCreated   = "chat.created"
	KindChatRemoved   = "chat.removed"
	KindChatActivated = "chat.activated"

	KindMessageAppended = "message.appended"
	KindMessageEdited   = "message.edited"
	KindMessageRead     = "message.read"
	KindMessageDeleting = "message.deleting"
	KindMessageDeleted  = "message.deleted"

	KindTypingChanged = "typing.changed"

	KindNotifyToast = "notify.toast"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// MessageRef identifies a message within a conversation. It is the payload
// for every message.* event.
type MessageRef struct {
	ChatID    string
	MessageID string
}

// TypingChange is the payload for typing.changed events. UserID is empty
// when the indicator was cleared.
type TypingChange struct {
	ChatID string
	UserID string
}
