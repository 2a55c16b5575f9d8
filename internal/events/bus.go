package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/syllogismos/codex/internal/logger"
)

var (
	// ErrBusClosed 表示事件总线已关闭。
	ErrBusClosed = errors.New("event bus closed")
	// ErrEventDropped 表示事件被慢消费者丢弃。
	ErrEventDropped = errors.New("event dropped by slow subscriber")
)

// Bus 把引擎生命周期事件广播给所有订阅者。发布是非阻塞的：
// 订阅者跟不上时丢事件，不拖慢审批流程。
type Bus struct {
	mu     sync.Mutex
	subs   []chan Event
	buffer int
	closed bool
	log    *logger.LogEntry
}

// NewBus 创建事件总线，buffer 是每个订阅者的缓存大小。
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{buffer: buffer}
}

// SetLogger 让总线把每个发布的事件同时写入日志，作为审计轨迹。
func (b *Bus) SetLogger(entry *logger.LogEntry) {
	b.mu.Lock()
	b.log = entry
	b.mu.Unlock()
}

// Subscribe 订阅事件流。通道会在 Close 时关闭。
func (b *Bus) Subscribe() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}
	ch := make(chan Event, b.buffer)
	b.subs = append(b.subs, ch)
	return ch
}

// Publish 发布事件到所有订阅者。若存在丢弃，则返回 ErrEventDropped。
func (b *Bus) Publish(ctx context.Context, event Event) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBusClosed
	}
	subs := append([]chan Event{}, b.subs...)
	log := b.log
	b.mu.Unlock()

	logPublish(log, event)

	dropped := false
	for _, ch := range subs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ch <- event:
		default:
			dropped = true
		}
	}
	if dropped {
		return ErrEventDropped
	}
	return nil
}

// Close 关闭总线和所有订阅通道。
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, ch := range subs {
		close(ch)
	}
}

// SubscriberCount 返回当前订阅者数量。
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func logPublish(log *logger.LogEntry, event Event) {
	if log == nil {
		return
	}
	fields := logger.Fields{
		"event_id": event.ID,
		"type":     event.Type,
	}
	if event.RequestID != "" {
		fields["request_id"] = event.RequestID
	}
	if len(event.Command) > 0 {
		fields["command"] = strings.Join(event.Command, " ")
	}
	if payload := encodeFields(event.Fields); payload != "" {
		fields["payload"] = payload
	}
	log.WithFields(fields).Info("engine event")
}

func encodeFields(fields map[string]string) string {
	if len(fields) == 0 {
		return ""
	}
	data, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}
