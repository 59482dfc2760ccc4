package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/yungbote/studyforge-backend/internal/realtime"
)

// memoryBus delivers messages in-process, for single-instance deployments and tests.
type memoryBus struct {
	mu        sync.RWMutex
	listeners map[int]func(realtime.Message)
	next      int
	closed    bool
}

func NewMemoryBus() Bus {
	return &memoryBus{listeners: make(map[int]func(realtime.Message))}
}

func (b *memoryBus) Publish(ctx context.Context, msg realtime.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("memory bus closed")
	}
	for _, fn := range b.listeners {
		fn(msg)
	}
	return nil
}

func (b *memoryBus) StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("memory bus closed")
	}
	id := b.next
	b.next++
	b.listeners[id] = onMsg
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}()
	return nil
}

func (b *memoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.listeners = make(map[int]func(realtime.Message))
	return nil
}
