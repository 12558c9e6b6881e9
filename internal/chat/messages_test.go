package chat

import (
	"context"
	"crypto/rand"
	"testing"
	"time"

	"github.com/securechat/securechat/internal/bus"
	"github.com/securechat/securechat/internal/config"
	"github.com/securechat/securechat/internal/notify"
	"github.com/securechat/securechat/internal/seal"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 3 * time.Second
	tick    = 5 * time.Millisecond
)

func TestAppendThenRead(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.AutoDelete = false })
	_, chatID := f.addContactAndConversation()

	before := f.conversation(chatID).LastActivity
	msg := f.svc.Append(chatID, "first", MessageText, Metadata{})
	require.NotNil(t, msg)
	second := f.svc.Append(chatID, "second", MessageText, Metadata{})
	require.NotNil(t, second)

	conv := f.conversation(chatID)
	require.Len(t, conv.Messages, 2)
	tail := conv.Messages[1]
	require.Equal(t, second.ID, tail.ID, "new message must be at the tail")
	require.False(t, tail.Read)
	require.False(t, tail.IsEdited)
	require.Empty(t, tail.EditHistory)
	require.Equal(t, f.user.ID, tail.SenderID)
	require.Equal(t, f.user.Username, tail.SenderName)
	require.False(t, conv.LastActivity.Before(before))
}

func TestAppendPreconditions(t *testing.T) {
	f := newFixture(t, nil)
	_, chatID := f.addContactAndConversation()

	require.Nil(t, f.svc.Append(chatID, "", MessageText, Metadata{}), "empty content")
	require.Nil(t, f.svc.Append("missing", "hello", MessageText, Metadata{}), "unknown conversation")
	require.Nil(t, f.svc.Append("", "hello", MessageText, Metadata{}), "missing chat id")

	anon := NewService(nil, f.cfg, f.st, f.bus, seal.Plain{}, notify.New(f.bus, nil), nil)
	require.NoError(t, anon.Start(context.Background()))
	defer anon.Close()
	require.Nil(t, anon.Append(chatID, "hello", MessageText, Metadata{}), "no current user")
}

func TestAppendInheritsConversationSettings(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.AutoDelete = true
		c.DeleteTimerMs = 10000 // far enough away not to fire during the test
	})
	_, chatID := f.addContactAndConversation()

	msg := f.svc.Append(chatID, "hello", MessageText, Metadata{})
	require.NotNil(t, msg)
	require.True(t, msg.AutoDelete)
	require.Equal(t, int64(10000), msg.DeleteTimer)
	require.Equal(t, 1, f.timerCount())
}

func TestAppendWithoutAutoDelete(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.AutoDelete = false })
	_, chatID := f.addContactAndConversation()

	msg := f.svc.Append(chatID, "durable", MessageText, Metadata{})
	require.NotNil(t, msg)
	require.False(t, msg.AutoDelete)
	require.Equal(t, 0, f.timerCount())

	time.Sleep(200 * time.Millisecond)
	require.NotNil(t, f.message(chatID, msg.ID), "non-ephemeral message must persist")
}

// Two-phase delete visibility: after the delete timer fires the id shows up
// in the deletion-in-flight set while the message is still present; after
// the grace interval both are gone.
func TestAutoDeleteTwoPhase(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.DeleteTimerMs = 60
		c.DeleteGraceMs = 400 // long grace so phase 1 is comfortably observable
	})
	_, chatID := f.addContactAndConversation()

	msg := f.svc.Append(chatID, "ephemeral", MessageText, Metadata{})
	require.NotNil(t, msg)

	// Phase 1: in-flight marker set, message still present.
	require.Eventually(t, func() bool {
		for _, id := range f.svc.DeletingMessages() {
			if id == msg.ID {
				return true
			}
		}
		return false
	}, waitFor, tick, "message never entered the deletion-in-flight set")
	require.NotNil(t, f.message(chatID, msg.ID), "message must still exist during the grace interval")

	// Phase 2: message removed, marker cleared, timer discarded.
	require.Eventually(t, func() bool {
		return f.message(chatID, msg.ID) == nil
	}, waitFor, tick, "message never removed")
	require.Empty(t, f.svc.DeletingMessages())
	require.Equal(t, 0, f.timerCount())
}

func TestAutoDeletePublishesEventSequence(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.DeleteTimerMs = 40
		c.DeleteGraceMs = 40
	})
	_, chatID := f.addContactAndConversation()

	ch, unsub := f.bus.Subscribe("message.", 32)
	defer unsub()

	msg := f.svc.Append(chatID, "ephemeral", MessageText, Metadata{})
	require.NotNil(t, msg)

	want := []string{bus.KindMessageAppended, bus.KindMessageDeleting, bus.KindMessageDeleted}
	for _, kind := range want {
		select {
		case evt := <-ch:
			require.Equal(t, kind, evt.Kind)
			ref, ok := evt.Payload.(bus.MessageRef)
			require.True(t, ok)
			require.Equal(t, msg.ID, ref.MessageID)
			require.Equal(t, chatID, ref.ChatID)
		case <-time.After(waitFor):
			t.Fatalf("timed out waiting for %s", kind)
		}
	}
}

// Manual delete at t<T wins the race: the message is gone immediately and
// the original timer firing later must not resurrect it or error.
func TestManualDeleteBeatsAutoDelete(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.DeleteTimerMs = 100
		c.DeleteGraceMs = 20
	})
	_, chatID := f.addContactAndConversation()

	msg := f.svc.Append(chatID, "ephemeral", MessageText, Metadata{})
	require.NotNil(t, msg)

	f.svc.Delete(chatID, msg.ID)
	require.Nil(t, f.message(chatID, msg.ID))
	require.Equal(t, 0, f.timerCount())
	require.Empty(t, f.svc.DeletingMessages())

	// Past the original T and grace: still gone, nothing fired.
	time.Sleep(250 * time.Millisecond)
	require.Nil(t, f.message(chatID, msg.ID))
	require.Empty(t, f.svc.DeletingMessages())
	require.NotNil(t, f.conversation(chatID), "conversation itself survives")
}

func TestManualDeleteAfterAutoDeleteIsNoop(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.DeleteTimerMs = 40
		c.DeleteGraceMs = 20
	})
	_, chatID := f.addContactAndConversation()

	msg := f.svc.Append(chatID, "ephemeral", MessageText, Metadata{})
	require.NotNil(t, msg)

	require.Eventually(t, func() bool {
		return f.message(chatID, msg.ID) == nil
	}, waitFor, tick)

	// The loser of the race degrades to a no-op.
	f.svc.Delete(chatID, msg.ID)
	require.Nil(t, f.message(chatID, msg.ID))
	require.Equal(t, 0, f.timerCount())
}

// Editing before the timer fires exempts the message from its scheduled
// deletion entirely.
func TestEditExemptsFromAutoDelete(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.DeleteTimerMs = 80
		c.DeleteGraceMs = 20
	})
	_, chatID := f.addContactAndConversation()

	msg := f.svc.Append(chatID, "original", MessageText, Metadata{})
	require.NotNil(t, msg)

	f.svc.Edit(chatID, msg.ID, "revised")
	require.Equal(t, 0, f.timerCount(), "edit must cancel the pending timer")

	time.Sleep(250 * time.Millisecond)
	got := f.message(chatID, msg.ID)
	require.NotNil(t, got, "edited message must outlive its original delete schedule")
	require.Equal(t, "revised", got.Content)
	require.True(t, got.IsEdited)
	require.NotNil(t, got.EditedAt)
	require.Len(t, got.EditHistory, 1)
	require.Equal(t, "original", got.EditHistory[0].Content)
}

func TestEditAppendsHistoryInOrder(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.AutoDelete = false })
	_, chatID := f.addContactAndConversation()

	msg := f.svc.Append(chatID, "v1", MessageText, Metadata{})
	f.svc.Edit(chatID, msg.ID, "v2")
	f.svc.Edit(chatID, msg.ID, "v3")

	got := f.message(chatID, msg.ID)
	require.Equal(t, "v3", got.Content)
	require.Len(t, got.EditHistory, 2)
	require.Equal(t, "v1", got.EditHistory[0].Content)
	require.Equal(t, "v2", got.EditHistory[1].Content)
}

func TestEditMissingArgsNoop(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.AutoDelete = false })
	_, chatID := f.addContactAndConversation()
	msg := f.svc.Append(chatID, "keep", MessageText, Metadata{})

	f.svc.Edit("", msg.ID, "x")
	f.svc.Edit(chatID, "", "x")
	f.svc.Edit(chatID, msg.ID, "")
	f.svc.Edit(chatID, "missing", "x")

	got := f.message(chatID, msg.ID)
	require.Equal(t, "keep", got.Content)
	require.False(t, got.IsEdited)
}

func TestMarkReadIdempotent(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.AutoDelete = false })
	_, chatID := f.addContactAndConversation()
	msg := f.svc.Append(chatID, "hello", MessageText, Metadata{})

	f.svc.MarkRead(chatID, msg.ID)
	once := f.message(chatID, msg.ID)
	require.True(t, once.Read)

	f.svc.MarkRead(chatID, msg.ID)
	twice := f.message(chatID, msg.ID)
	require.Equal(t, *once, *twice, "second MarkRead must change nothing")
}

func TestMessageOrderIsInsertionOrder(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.AutoDelete = false })
	_, chatID := f.addContactAndConversation()

	a := f.svc.Append(chatID, "a", MessageText, Metadata{})
	b := f.svc.Append(chatID, "b", MessageText, Metadata{})
	c := f.svc.Append(chatID, "c", MessageText, Metadata{})

	// Editing and reading must not re-sort the sequence.
	f.svc.Edit(chatID, a.ID, "a2")
	f.svc.MarkRead(chatID, b.ID)

	conv := f.conversation(chatID)
	require.Equal(t, []string{a.ID, b.ID, c.ID},
		[]string{conv.Messages[0].ID, conv.Messages[1].ID, conv.Messages[2].ID})
}

func TestAppendVoiceCarriesOpaquePayload(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.AutoDelete = false })
	_, chatID := f.addContactAndConversation()

	msg := f.svc.AppendVoice(chatID, "blob:abc123", "audio/webm", 2.5, 4096)
	require.NotNil(t, msg)
	require.Equal(t, MessageVoice, msg.Type)
	require.Equal(t, "blob:abc123", msg.Metadata.PayloadRef)
	require.Equal(t, "audio/webm", msg.Metadata.ContentType)
	require.Equal(t, 2.5, msg.Metadata.DurationSec)
	require.Equal(t, int64(4096), msg.Metadata.SizeBytes)
}

func TestEncryptedContentRoundTrip(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	cipher, err := seal.NewSecretBox(key)
	require.NoError(t, err)

	f := newFixture(t, func(c *config.Config) {
		c.AutoDelete = false
		c.Encryption = true
	})
	svc := NewService(f.user, f.cfg, f.st, f.bus, cipher, notify.New(f.bus, nil), nil)
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Close()

	c := svc.AddContact(Contact{Username: "Bob"})
	conv := svc.CreateConversation(c.ID, TypePrivate)
	require.NotNil(t, conv)

	msg := svc.Append(conv.ID, "secret hello", MessageText, Metadata{})
	require.NotNil(t, msg)
	require.True(t, msg.Encrypted)
	require.NotEqual(t, "secret hello", msg.Content, "content at rest must be sealed")

	plain, err := svc.DecryptContent(*msg)
	require.NoError(t, err)
	require.Equal(t, "secret hello", plain)
}

// Closing the service cancels outstanding timers: nothing mutates state
// afterwards even when the original deadlines pass.
func TestCloseCancelsOutstandingTimers(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.DeleteTimerMs = 80
		c.DeleteGraceMs = 20
	})
	_, chatID := f.addContactAndConversation()

	msg := f.svc.Append(chatID, "ephemeral", MessageText, Metadata{})
	require.NotNil(t, msg)
	require.Equal(t, 1, f.timerCount())

	f.svc.Close()
	require.Equal(t, 0, f.timerCount())

	time.Sleep(200 * time.Millisecond)
	require.NotNil(t, f.message(chatID, msg.ID), "closed service must not delete anything")
}

// Ephemeral messages whose timers died with the process are handled at the
// next start: overdue ones are swept, pending ones re-armed for the
// remaining delay.
func TestRestartSweepsOverdueEphemeral(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.DeleteTimerMs = 50
		c.DeleteGraceMs = 20
	})
	_, chatID := f.addContactAndConversation()

	// Let the creation save's cooldown lapse so the append is persisted.
	time.Sleep(20 * time.Millisecond)
	msg := f.svc.Append(chatID, "ephemeral", MessageText, Metadata{})
	require.NotNil(t, msg)

	f.svc.Close()
	time.Sleep(100 * time.Millisecond) // past the deadline while no process owns it
	f.svc = f.newService(f.user)

	require.Nil(t, f.message(chatID, msg.ID), "overdue ephemeral message must be swept at start")
	require.Equal(t, 0, f.timerCount())
}

func TestRestartRearmsPendingEphemeral(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.DeleteTimerMs = 10000
		c.DeleteGraceMs = 20
	})
	_, chatID := f.addContactAndConversation()

	time.Sleep(20 * time.Millisecond)
	msg := f.svc.Append(chatID, "ephemeral", MessageText, Metadata{})
	require.NotNil(t, msg)

	f.restart()

	require.NotNil(t, f.message(chatID, msg.ID), "pending ephemeral message survives restart")
	require.Equal(t, 1, f.timerCount(), "its timer must be re-armed")
}
