package chat

import (
	"sync"
	"time"

	"github.com/securechat/securechat/internal/store"
	"go.uber.org/zap"
)

// saver serializes persistence writes per collection key. While a write is
// within the cooldown window, further writes to the same key are dropped
// rather than queued: the in-memory collections stay authoritative and every
// mutating operation retries persistence as part of its own call, so the
// suppression only delays flushing, it never loses state. This keeps bursts
// of mutation (many auto-deletes firing close together) from turning into
// write storms.
type saver struct {
	store    *store.Store
	logger   *zap.Logger
	cooldown time.Duration

	mu       sync.Mutex
	inflight map[string]bool
}

func newSaver(st *store.Store, logger *zap.Logger, cooldown time.Duration) *saver {
	return &saver{
		store:    st,
		logger:   logger,
		cooldown: cooldown,
		inflight: make(map[string]bool),
	}
}

// save writes items under key unless a write for the same key is still in
// its cooldown window. Write failures are logged and swallowed; the caller's
// in-memory state is already updated and must not be rolled back.
func (sv *saver) save(key string, items any) {
	sv.mu.Lock()
	if sv.inflight[key] {
		sv.mu.Unlock()
		sv.logger.Debug("save suppressed during cooldown", zap.String("key", key))
		return
	}
	sv.inflight[key] = true
	sv.mu.Unlock()

	if err := sv.store.Save(key, items); err != nil {
		sv.logger.Error("failed to persist collection", zap.String("key", key), zap.Error(err))
	}

	time.AfterFunc(sv.cooldown, func() {
		sv.mu.Lock()
		delete(sv.inflight, key)
		sv.mu.Unlock()
	})
}
