package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Fixed collection keys. Each key maps to a single JSON document holding the
// whole collection; writes are last-write-wins at key granularity.
const (
	KeyConversations = "conversations"
	KeyContacts      = "contacts"
)

// docVersion is the current envelope format version. Documents with a
// different version are treated as absent rather than guessed at.
const docVersion = 1

type envelope struct {
	Version int             `json:"version"`
	Items   json.RawMessage `json:"items"`
}

// Load reads the collection under key into items. It returns false when the
// key is absent, the document fails to decode, or the envelope version is
// unknown; decode failures are logged, never raised, so a corrupt document
// degrades to a first-run state.
func (s *Store) Load(key string, items any) bool {
	var doc []byte
	err := s.QueryRow(`SELECT doc FROM collections WHERE key = ?`, key).Scan(&doc)
	if err == sql.ErrNoRows {
		return false
	}
	if err != nil {
		s.logger.Error("failed to read collection", zap.String("key", key), zap.Error(err))
		return false
	}

	var env envelope
	if err := json.Unmarshal(doc, &env); err != nil {
		s.logger.Error("corrupt collection document", zap.String("key", key), zap.Error(err))
		return false
	}
	if env.Version != docVersion {
		s.logger.Warn("unknown collection document version",
			zap.String("key", key),
			zap.Int("version", env.Version),
			zap.Int("supported", docVersion))
		return false
	}
	if err := json.Unmarshal(env.Items, items); err != nil {
		s.logger.Error("corrupt collection items", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Save serializes items and writes them under key, replacing any previous
// document. On failure the previous document is left in place and the
// caller's in-memory state is untouched.
func (s *Store) Save(key string, items any) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	doc, err := json.Marshal(envelope{Version: docVersion, Items: raw})
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", key, err)
	}

	now := time.Now().UnixMilli()
	_, err = s.Exec(`
		INSERT INTO collections (key, doc, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			doc = excluded.doc,
			updated_at = excluded.updated_at`,
		key, doc, now)
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
