package queue

import (
	"chatview/backend/internal/errs"
	"chatview/backend/internal/logging"
	"chatview/backend/internal/models"
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Manager provisions, feeds and drains per-member queues.
type Manager struct {
	broker      Broker
	readTimeout time.Duration
}

// NewManager creates a Manager. readTimeout bounds each receive while
// draining; an empty receive ends the drain.
func NewManager(b Broker, readTimeout time.Duration) *Manager {
	return &Manager{broker: b, readTimeout: readTimeout}
}

// Provision declares the member's queue. Failures are returned: a member
// without a queue cannot receive offline messages.
func (m *Manager) Provision(ctx context.Context, chatViewID, userID string) error {
	name := Name(chatViewID, userID)
	if err := m.broker.Declare(ctx, name); err != nil {
		return fmt.Errorf("%w: declare %s: %w", errs.ErrBroker, name, err)
	}
	logging.Ctx(ctx).Debug().Str(logging.FieldQueue, name).Msg("queue provisioned")
	return nil
}

// Deprovision deletes the member's queue and whatever backlog it holds.
// Failures are logged only.
func (m *Manager) Deprovision(ctx context.Context, chatViewID, userID string) {
	name := Name(chatViewID, userID)
	if err := m.broker.Delete(ctx, name); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str(logging.FieldQueue, name).Msg("failed to delete queue")
		return
	}
	logging.Ctx(ctx).Debug().Str(logging.FieldQueue, name).Msg("queue deleted")
}

// Enqueue serializes payload onto the member's queue.
func (m *Manager) Enqueue(ctx context.Context, chatViewID, userID string, payload models.DeliveryPayload) error {
	name := Name(chatViewID, userID)
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload for %s: %w", name, err)
	}
	if err := m.broker.Send(ctx, name, body); err != nil {
		return fmt.Errorf("%w: send to %s: %w", errs.ErrBroker, name, err)
	}
	return nil
}

// DrainAndReturn empties the member's queue and returns its payloads in FIFO
// order. Entries that fail to decode are logged and skipped. A broker failure
// after the first entry ends the drain early without an error.
func (m *Manager) DrainAndReturn(ctx context.Context, chatViewID, userID string) ([]models.DeliveryPayload, error) {
	name := Name(chatViewID, userID)
	l := logging.Ctx(ctx)

	payloads := make([]models.DeliveryPayload, 0)
	for {
		body, ok, err := m.broker.Receive(ctx, name, m.readTimeout)
		if err != nil {
			if len(payloads) > 0 {
				// Entries already received are gone from the queue; hand them
				// over and leave the rest for the next drain.
				l.Warn().Err(err).Str(logging.FieldQueue, name).Int("received", len(payloads)).Msg("drain interrupted")
				return payloads, nil
			}
			return nil, fmt.Errorf("%w: receive from %s: %w", errs.ErrBroker, name, err)
		}
		if !ok {
			return payloads, nil
		}

		var p models.DeliveryPayload
		if err := json.Unmarshal(body, &p); err != nil {
			l.Warn().Err(err).Str(logging.FieldQueue, name).Msg("dropping undecodable queue entry")
			continue
		}
		payloads = append(payloads, p)
	}
}

// DrainAndDiscard empties the member's queue without decoding it. It runs
// after a full history fetch so nothing queued meanwhile is delivered twice.
// It returns the number of entries dropped; failures are logged only.
func (m *Manager) DrainAndDiscard(ctx context.Context, chatViewID, userID string) int {
	name := Name(chatViewID, userID)
	dropped := 0
	for {
		_, ok, err := m.broker.Receive(ctx, name, m.readTimeout)
		if err != nil {
			logging.Ctx(ctx).Error().Err(err).Str(logging.FieldQueue, name).Msg("failed to drain queue")
			return dropped
		}
		if !ok {
			return dropped
		}
		dropped++
	}
}

// Purge drops the backlog in one call. Failures are logged and reported as false.
func (m *Manager) Purge(ctx context.Context, chatViewID, userID string) bool {
	name := Name(chatViewID, userID)
	if err := m.broker.Purge(ctx, name); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str(logging.FieldQueue, name).Msg("failed to purge queue")
		return false
	}
	return true
}

// Exists never fails: any broker error reads as "no queue".
func (m *Manager) Exists(ctx context.Context, chatViewID, userID string) bool {
	ok, err := m.broker.Exists(ctx, Name(chatViewID, userID))
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str(logging.FieldQueue, Name(chatViewID, userID)).Msg("queue existence probe failed")
		return false
	}
	return ok
}
