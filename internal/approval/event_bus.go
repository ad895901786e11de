package approval

import (
	"sync"
	"time"
)

// ApprovalEvent 描述一次审批状态变化，推送给相关用户
type ApprovalEvent struct {
	ApprovalID      string    `json:"approvalId"`
	QuotationID     string    `json:"quotationId"`
	QuotationNumber string    `json:"quotationNumber"`
	Level           int       `json:"level"`
	Status          string    `json:"status"`
	ActorID         string    `json:"actorId"`
	Comment         string    `json:"comment,omitempty"`
	OccurredAt      time.Time `json:"occurredAt"`
}

// EventBusConfig 控制事件总线行为
type EventBusConfig struct {
	BufferSize int
}

// EventBus 按用户维度分发审批事件的本地总线
type EventBus struct {
	mu     sync.RWMutex
	subs   map[string]map[uint64]chan ApprovalEvent
	seq    uint64
	buffer int
}

// NewEventBus 创建事件总线
func NewEventBus(cfg *EventBusConfig) *EventBus {
	buffer := 8
	if cfg != nil && cfg.BufferSize > 0 {
		buffer = cfg.BufferSize
	}
	return &EventBus{
		subs:   make(map[string]map[uint64]chan ApprovalEvent),
		buffer: buffer,
	}
}

// Publish 将事件推送给指定用户的所有订阅者
// 发送期间持有读锁，避免与取消订阅时的 close 并发
func (b *EventBus) Publish(userID string, evt ApprovalEvent) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[userID] {
		select {
		case ch <- evt:
		default:
			// 接收方处理慢则丢弃，保持非阻塞
		}
	}
}

// Subscribe 订阅指定用户的审批事件
func (b *EventBus) Subscribe(userID string) (<-chan ApprovalEvent, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan ApprovalEvent, b.buffer)
	b.mu.Lock()
	b.seq++
	id := b.seq
	if _, ok := b.subs[userID]; !ok {
		b.subs[userID] = make(map[uint64]chan ApprovalEvent)
	}
	b.subs[userID][id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.removeListener(userID, id)
	}
	return ch, cancel
}

func (b *EventBus) removeListener(userID string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if listeners, ok := b.subs[userID]; ok {
		if ch, exists := listeners[id]; exists {
			delete(listeners, id)
			close(ch)
		}
		if len(listeners) == 0 {
			delete(b.subs, userID)
		}
	}
}
