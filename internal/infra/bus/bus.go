package bus

import (
	"sync"

	"go.uber.org/zap"

	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/domain"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/port"
)

// PreferenceBus is the in-process channel carrying preference-change
// notifications to the prayer scheduler. Publish never blocks: when the
// buffer is full the event is dropped, which is safe because the scheduler's
// periodic re-scan reconciles any missed change.
type PreferenceBus struct {
	mu     sync.Mutex
	ch     chan domain.PreferencesChangedEvent
	closed bool
	logger *zap.Logger
}

// New constructs a PreferenceBus with the supplied buffer capacity.
func New(capacity int, logger *zap.Logger) *PreferenceBus {
	if capacity <= 0 {
		capacity = 256
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PreferenceBus{
		ch:     make(chan domain.PreferencesChangedEvent, capacity),
		logger: logger,
	}
}

// Publish offers an event to the subscriber without blocking the caller.
func (b *PreferenceBus) Publish(event domain.PreferencesChangedEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	select {
	case b.ch <- event:
	default:
		b.logger.Warn("preference bus full, dropping event",
			zap.String("user_id", event.UserID))
	}
}

// Subscribe returns the receive side of the bus. The channel closes when
// the bus shuts down.
func (b *PreferenceBus) Subscribe() <-chan domain.PreferencesChangedEvent {
	return b.ch
}

// Close shuts the bus down; further publishes are ignored.
func (b *PreferenceBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.ch)
}

var _ port.PreferenceBus = (*PreferenceBus)(nil)
