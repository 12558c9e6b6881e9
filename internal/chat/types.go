package chat

import "time"

// ContactStatus is a contact's presence status.
type ContactStatus string

const (
	StatusOnline  ContactStatus = "online"
	StatusAway    ContactStatus = "away"
	StatusOffline ContactStatus = "offline"
)

// Contact is an entry in the local address book. Identity is ID, immutable
// once created; all mutation goes through the registry operations.
type Contact struct {
	ID         string        `json:"id"`
	Username   string        `json:"username"`
	Avatar     string        `json:"avatar"`
	Status     ContactStatus `json:"status"`
	LastSeen   time.Time     `json:"lastSeen"`
	PublicKey  string        `json:"publicKey"`
	Email      string        `json:"email"`
	Phone      string        `json:"phone"`
	IsFavorite bool          `json:"isFavorite"`
	IsBlocked  bool          `json:"isBlocked"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// ContactUpdate carries the fields of a partial contact update. Nil fields
// are left unchanged.
type ContactUpdate struct {
	Username   *string
	Avatar     *string
	Status     *ContactStatus
	LastSeen   *time.Time
	PublicKey  *string
	Email      *string
	Phone      *string
	IsFavorite *bool
	IsBlocked  *bool
}

func (u ContactUpdate) apply(c Contact) Contact {
	if u.Username != nil {
		c.Username = *u.Username
	}
	if u.Avatar != nil {
		c.Avatar = *u.Avatar
	}
	if u.Status != nil {
		c.Status = *u.Status
	}
	if u.LastSeen != nil {
		c.LastSeen = *u.LastSeen
	}
	if u.PublicKey != nil {
		c.PublicKey = *u.PublicKey
	}
	if u.Email != nil {
		c.Email = *u.Email
	}
	if u.Phone != nil {
		c.Phone = *u.Phone
	}
	if u.IsFavorite != nil {
		c.IsFavorite = *u.IsFavorite
	}
	if u.IsBlocked != nil {
		c.IsBlocked = *u.IsBlocked
	}
	return c
}

// ConversationType distinguishes direct threads from group threads.
type ConversationType string

const (
	TypePrivate ConversationType = "private"
	TypeGroup   ConversationType = "group"
)

// Settings are the per-conversation defaults inherited by new messages.
type Settings struct {
	AutoDelete    bool  `json:"autoDelete"`
	DeleteTimerMs int64 `json:"deleteTimer"`
	Encryption    bool  `json:"encryption"`
}

// DeleteTimer returns the auto-delete delay as a duration.
func (s Settings) DeleteTimer() time.Duration {
	return time.Duration(s.DeleteTimerMs) * time.Millisecond
}

// Conversation is a thread between a fixed participant set holding an
// ordered message sequence (insertion order, never re-sorted).
type Conversation struct {
	ID           string           `json:"id"`
	Type         ConversationType `json:"type"`
	Participants []string         `json:"participants"`
	Messages     []Message        `json:"messages"`
	CreatedAt    time.Time        `json:"createdAt"`
	LastActivity time.Time        `json:"lastActivity"`
	Settings     Settings         `json:"settings"`
}

// HasParticipant reports whether id is in the participant set.
func (c Conversation) HasParticipant(id string) bool {
	for _, p := range c.Participants {
		if p == id {
			return true
		}
	}
	return false
}

// clone returns a copy whose slices are detached from the receiver, so the
// copy can be mutated without disturbing snapshots held by readers.
func (c Conversation) clone() Conversation {
	c.Participants = append([]string(nil), c.Participants...)
	c.Messages = append([]Message(nil), c.Messages...)
	return c
}

// MessageType is the content type of a message.
type MessageType string

const (
	MessageText  MessageType = "text"
	MessageVoice MessageType = "voice"
	MessageImage MessageType = "image"
	MessageFile  MessageType = "file"
)

// Metadata carries the optional structured fields of a message. Media
// payloads stay opaque: the capture collaborator hands the core a reference
// and a content type, nothing more.
type Metadata struct {
	DurationSec float64 `json:"duration,omitempty"`
	SizeBytes   int64   `json:"size,omitempty"`
	ContentType string  `json:"contentType,omitempty"`
	FileName    string  `json:"fileName,omitempty"`
	PayloadRef  string  `json:"payloadRef,omitempty"`
}

// Reaction is a single emoji reaction on a message.
type Reaction struct {
	UserID    string    `json:"userId"`
	Emoji     string    `json:"emoji"`
	ReactedAt time.Time `json:"reactedAt"`
}

// EditRevision is a superseded content value kept in a message's edit
// history.
type EditRevision struct {
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Message is a single entry in a conversation. Identity is ID, globally
// unique and never reused.
type Message struct {
	ID           string         `json:"id"`
	ChatID       string         `json:"chatId"`
	SenderID     string         `json:"senderId"`
	SenderName   string         `json:"senderName"`
	SenderAvatar string         `json:"senderAvatar"`
	Content      string         `json:"content"`
	Type         MessageType    `json:"type"`
	Metadata     Metadata       `json:"metadata"`
	Timestamp    time.Time      `json:"timestamp"`
	Encrypted    bool           `json:"encrypted"`
	Read         bool           `json:"read"`
	AutoDelete   bool           `json:"autoDelete"`
	DeleteTimer  int64          `json:"deleteTimer"`
	Reactions    []Reaction     `json:"reactions"`
	IsEdited     bool           `json:"isEdited"`
	EditHistory  []EditRevision `json:"editHistory"`
	EditedAt     *time.Time     `json:"editedAt,omitempty"`
}

// DeleteDelay returns the message's auto-delete delay as a duration.
func (m Message) DeleteDelay() time.Duration {
	return time.Duration(m.DeleteTimer) * time.Millisecond
}
