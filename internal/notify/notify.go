// Package notify carries user-facing notifications out of the chat core.
// The core treats it as a side-effecting external collaborator; the default
// implementation logs and republishes on the event bus for a renderer to
// turn into toasts.
package notify

import (
	"time"

	"github.com/securechat/securechat/internal/bus"
	"go.uber.org/zap"
)

// Severity classifies a notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notifier is the notification contract consumed by the chat core.
type Notifier interface {
	Notify(title, description string, severity Severity)
}

// Toast is the bus payload for notify.toast events.
type Toast struct {
	Title       string
	Description string
	Severity    Severity
}

// Toaster is the default Notifier: it logs the notification and publishes a
// notify.toast event.
type Toaster struct {
	bus    *bus.Bus
	logger *zap.Logger
}

// New creates a Toaster.
func New(b *bus.Bus, logger *zap.Logger) *Toaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Toaster{bus: b, logger: logger}
}

func (t *Toaster) Notify(title, description string, severity Severity) {
	fields := []zap.Field{
		zap.String("title", title),
		zap.String("description", description),
	}
	switch severity {
	case SeverityError:
		t.logger.Error("notification", fields...)
	case SeverityWarning:
		t.logger.Warn("notification", fields...)
	default:
		t.logger.Info("notification", fields...)
	}

	if t.bus != nil {
		t.bus.Publish(bus.Event{
			Kind:      bus.KindNotifyToast,
			Timestamp: time.Now(),
			Payload:   Toast{Title: title, Description: description, Severity: severity},
		})
	}
}
