// Package app composes the chat service and its collaborators into an fx
// application with explicit lifecycle: construction happens once per
// profile, teardown cancels every outstanding timer before releasing the
// profile lock.
package app

import (
	"context"
	"encoding/hex"

	"github.com/securechat/securechat/internal/bus"
	"github.com/securechat/securechat/internal/chat"
	"github.com/securechat/securechat/internal/config"
	"github.com/securechat/securechat/internal/lock"
	"github.com/securechat/securechat/internal/logging"
	"github.com/securechat/securechat/internal/notify"
	"github.com/securechat/securechat/internal/profile"
	"github.com/securechat/securechat/internal/seal"
	"github.com/securechat/securechat/internal/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	ProfileName string
}

// Module returns the fx module composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("securechat",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideConfig,
			provideBus,
			provideLock,
			provideStore,
			provideUser,
			provideCipher,
			provideNotifier,
			provideService,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(profile.LogPath(p.ProfileName), p.ProfileName)
}

func provideConfig() *config.Config {
	return config.LoadOrDefault(profile.ConfigPath())
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDir(p.ProfileName); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.ProfileName))
	l, err := lock.Acquire(profile.Dir(p.ProfileName))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

func provideStore(p Params, logger *zap.Logger) (*store.Store, error) {
	dbPath := profile.DBPath(p.ProfileName)
	st, err := store.Open(dbPath, logger)
	if err != nil {
		return nil, err
	}
	result, err := st.Migrate()
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return st, nil
}

func provideUser(p Params, logger *zap.Logger) (*profile.User, error) {
	u, err := profile.LoadUser(profile.UserPath(p.ProfileName))
	if err != nil {
		return nil, err
	}
	if u == nil {
		logger.Warn("no profile identity found, identity-requiring operations are disabled")
	}
	return u, nil
}

func provideCipher(u *profile.User, logger *zap.Logger) seal.Cipher {
	if u == nil || u.SecretKey == "" {
		return seal.Plain{}
	}
	key, err := hex.DecodeString(u.SecretKey)
	if err != nil {
		logger.Warn("malformed secret key, falling back to passthrough", zap.Error(err))
		return seal.Plain{}
	}
	sb, err := seal.NewSecretBox(key)
	if err != nil {
		logger.Warn("unusable secret key, falling back to passthrough", zap.Error(err))
		return seal.Plain{}
	}
	return sb
}

func provideNotifier(b *bus.Bus, logger *zap.Logger) notify.Notifier {
	return notify.New(b, logger)
}

func provideService(u *profile.User, cfg *config.Config, st *store.Store, b *bus.Bus, cipher seal.Cipher, notifier notify.Notifier, logger *zap.Logger) *chat.Service {
	return chat.NewService(u, cfg, st, b, cipher, notifier, logger)
}

func registerLifecycle(lc fx.Lifecycle, svc *chat.Service, st *store.Store, b *bus.Bus, lk *lock.Lock, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return svc.Start(ctx)
		},
		OnStop: func(_ context.Context) error {
			svc.Close()
			b.Close()
			if err := st.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("securechat stopped")
			return nil
		},
	})
}
