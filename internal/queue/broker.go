// Package queue owns the durable per-member queues: one FIFO queue per
// (chatview, member) pair, provisioned on join and deleted on leave.
package queue

import (
	"context"
	"time"
)

// Broker is the durable-queue primitive the Manager runs on.
type Broker interface {
	// Declare creates the queue if it does not exist.
	Declare(ctx context.Context, queue string) error
	// Delete removes the queue and any backlog. Deleting a missing queue is not an error.
	Delete(ctx context.Context, queue string) error
	// Purge drops the backlog but keeps the queue.
	Purge(ctx context.Context, queue string) error
	// Send appends body to a declared queue.
	Send(ctx context.Context, queue string, body []byte) error
	// Receive pops the oldest entry, waiting up to timeout. ok is false when
	// the queue stayed empty for the whole wait.
	Receive(ctx context.Context, queue string, timeout time.Duration) (body []byte, ok bool, err error)
	// Exists reports whether the queue is declared.
	Exists(ctx context.Context, queue string) (bool, error)
}
