// Package queuetest provides an in-memory queue.Broker for tests.
package queuetest

import (
	"chatview/backend/internal/errs"
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryBroker is a queue.Broker backed by maps. Receive never blocks.
// The Fail* fields inject errors into the matching operation.
type MemoryBroker struct {
	mu       sync.Mutex
	declared map[string]bool
	queues   map[string][][]byte

	FailDeclare error
	FailDelete  error
	FailSend    error
	FailReceive error
	FailExists  error

	// FailReceiveAfter lets that many receives succeed before FailReceive applies.
	FailReceiveAfter int
	received         int
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		declared: make(map[string]bool),
		queues:   make(map[string][][]byte),
	}
}

func (b *MemoryBroker) Declare(_ context.Context, queue string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailDeclare != nil {
		return b.FailDeclare
	}
	b.declared[queue] = true
	return nil
}

func (b *MemoryBroker) Delete(_ context.Context, queue string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailDelete != nil {
		return b.FailDelete
	}
	delete(b.declared, queue)
	delete(b.queues, queue)
	return nil
}

func (b *MemoryBroker) Purge(_ context.Context, queue string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.queues, queue)
	return nil
}

func (b *MemoryBroker) Send(_ context.Context, queue string, body []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailSend != nil {
		return b.FailSend
	}
	if !b.declared[queue] {
		return fmt.Errorf("%s: %w", queue, errs.ErrQueueNotDeclared)
	}
	b.queues[queue] = append(b.queues[queue], append([]byte(nil), body...))
	return nil
}

func (b *MemoryBroker) Receive(_ context.Context, queue string, _ time.Duration) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailReceive != nil && b.received >= b.FailReceiveAfter {
		return nil, false, b.FailReceive
	}
	b.received++
	q := b.queues[queue]
	if len(q) == 0 {
		return nil, false, nil
	}
	b.queues[queue] = q[1:]
	return q[0], true, nil
}

func (b *MemoryBroker) Exists(_ context.Context, queue string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailExists != nil {
		return false, b.FailExists
	}
	return b.declared[queue], nil
}

// Len returns the number of pending entries in queue.
func (b *MemoryBroker) Len(queue string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queues[queue])
}

// Push appends raw bytes to queue, bypassing the declared check.
func (b *MemoryBroker) Push(queue string, body []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queues[queue] = append(b.queues[queue], body)
}
