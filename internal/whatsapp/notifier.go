package whatsapp

import (
	"fmt"
	"sync"

	"github.com/user/hero-dispatch/internal/interfaces"
	"github.com/user/hero-dispatch/internal/types"
	"go.uber.org/zap"
)

const notifierQueueSize = 64

// Notifier forwards selected engine events to the dispatcher's phone
type Notifier struct {
	sender    interfaces.MessageSender
	botPhone  string
	recipient string
	logger    *zap.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan string
	wg     sync.WaitGroup
}

var _ interfaces.EventSink = (*Notifier)(nil)

// NewNotifier starts a notifier sending from botPhone to recipient
func NewNotifier(sender interfaces.MessageSender, botPhone, recipient string, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &Notifier{
		sender:    sender,
		botPhone:  botPhone,
		recipient: recipient,
		logger:    logger,
		queue:     make(chan string, notifierQueueSize),
	}
	n.wg.Add(1)
	go n.loop()
	return n
}

// Publish formats the event and queues it; uninteresting events are ignored
func (n *Notifier) Publish(event types.GameEvent) {
	text := formatNotification(event)
	if text == "" {
		return
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return
	}
	select {
	case n.queue <- text:
	default:
		n.logger.Warn("Notification queue full, dropping message", zap.String("kind", string(event.Kind)))
	}
}

// Close stops the sender after the queue drains
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	close(n.queue)
	n.mu.Unlock()
	n.wg.Wait()
}

func (n *Notifier) loop() {
	defer n.wg.Done()
	for text := range n.queue {
		if _, err := n.sender.SendMessage(n.botPhone, n.recipient, text); err != nil {
			n.logger.Error("Failed to send notification",
				zap.String("recipient", n.recipient),
				zap.Error(err))
		}
	}
}

func formatNotification(event types.GameEvent) string {
	switch event.Kind {
	case types.EventMissionSpawned:
		return fmt.Sprintf("📟 New call: %s [%s]", event.Message, shortID(event.MissionID))
	case types.EventMissionResolved:
		if success, _ := event.Data["success"].(bool); success {
			return fmt.Sprintf("✅ %s", event.Message)
		}
		return fmt.Sprintf("❌ %s", event.Message)
	case types.EventMissionExpired:
		return fmt.Sprintf("⌛ %s", event.Message)
	case types.EventHeroLevelUp:
		return fmt.Sprintf("⬆️ %s", event.Message)
	case types.EventShiftEnded:
		return fmt.Sprintf("🏁 %s", event.Message)
	case types.EventDayStarted:
		return fmt.Sprintf("🌅 %s", event.Message)
	}
	return ""
}
