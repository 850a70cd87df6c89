package storage

import (
	"chatview/backend/internal/logging"
	"context"
	"errors"
	"fmt"
)

// Outbox collects side effects that must only run after the owning
// transaction has committed (queue provisioning, notifications).
type Outbox struct {
	tasks []outboxTask
}

type outboxTask struct {
	name     string
	required bool
	fn       func(ctx context.Context) error
}

// Add registers a task whose failure is reported by Drain.
func (o *Outbox) Add(name string, fn func(ctx context.Context) error) {
	o.tasks = append(o.tasks, outboxTask{name: name, required: true, fn: fn})
}

// AddBestEffort registers a task whose failure is only logged.
func (o *Outbox) AddBestEffort(name string, fn func(ctx context.Context) error) {
	o.tasks = append(o.tasks, outboxTask{name: name, fn: fn})
}

// Len returns the number of pending tasks.
func (o *Outbox) Len() int { return len(o.tasks) }

// Drain runs every pending task in registration order and empties the outbox.
// Each task runs even if an earlier one failed.
func (o *Outbox) Drain(ctx context.Context) error {
	l := logging.Ctx(ctx)
	tasks := o.tasks
	o.tasks = nil

	var errList []error
	for _, t := range tasks {
		err := t.fn(ctx)
		if err == nil {
			continue
		}
		if t.required {
			errList = append(errList, fmt.Errorf("%s: %w", t.name, err))
			continue
		}
		l.Warn().Err(err).Str("task", t.name).Msg("best-effort post-commit task failed")
	}
	return errors.Join(errList...)
}

// Transact runs fn in a transaction and drains the outbox only after the
// commit succeeded. A rolled back transaction discards the outbox.
func Transact(ctx context.Context, s Storage, fn func(tx Storage, ob *Outbox) error) error {
	ob := &Outbox{}
	if err := s.WithTx(ctx, func(tx Storage) error {
		return fn(tx, ob)
	}); err != nil {
		return err
	}
	return ob.Drain(ctx)
}
