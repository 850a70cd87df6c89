// Package membership owns chatview creation and member add/remove. Database
// changes and queue provisioning are separate steps: queue work runs from the
// transaction outbox after commit, and a crash in between can leave them out
// of step.
package membership

import (
	"chatview/backend/internal/errs"
	"chatview/backend/internal/logging"
	"chatview/backend/internal/models"
	"chatview/backend/internal/storage"
	"context"
	"fmt"
	"strings"
)

// Queues is the part of the queue manager membership changes drive.
type Queues interface {
	Provision(ctx context.Context, chatViewID, userID string) error
	Deprovision(ctx context.Context, chatViewID, userID string)
}

// Notifier receives the membership-added signal.
type Notifier interface {
	NotifyMembershipAdded(ctx context.Context, userID string, cv *models.ChatView)
}

type Manager struct {
	store    storage.Storage
	queues   Queues
	notifier Notifier
}

func NewManager(s storage.Storage, q Queues, n Notifier) *Manager {
	return &Manager{store: s, queues: q, notifier: n}
}

// SetNotifier replaces the membership-added signal consumer.
func (m *Manager) SetNotifier(n Notifier) {
	m.notifier = n
}

// CreateChatView creates a chatview whose first member is the creator, then
// adds every other requested member. A member that cannot be added is logged
// and skipped.
func (m *Manager) CreateChatView(ctx context.Context, name, creatorID string, memberIDs []string) (*models.ChatView, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: chatview name is empty", errs.ErrValidation)
	}

	var cv *models.ChatView
	err := storage.Transact(ctx, m.store, func(tx storage.Storage, ob *storage.Outbox) error {
		creator, err := tx.FindUser(ctx, creatorID)
		if err != nil {
			return err
		}

		cv = &models.ChatView{Name: name, Members: []models.User{*creator}}
		if err := tx.CreateChatView(ctx, cv); err != nil {
			return err
		}

		m.afterJoin(ob, cv, creatorID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create chatview %q: %w", name, err)
	}

	logging.Ctx(ctx).Info().
		Str(logging.FieldChatViewID, cv.ID).
		Str(logging.FieldUserID, creatorID).
		Msg("chatview created")

	seen := map[string]bool{creatorID: true}
	for _, id := range memberIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		m.AddMemberNoValidation(ctx, cv.ID, id)
	}

	loaded, err := m.store.FindChatViewWithMembers(ctx, cv.ID)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str(logging.FieldChatViewID, cv.ID).Msg("failed to reload chatview")
		return cv, nil
	}
	return loaded, nil
}

// AddMember adds userID on behalf of requesterID, who must already be a member.
func (m *Manager) AddMember(ctx context.Context, chatViewID, userID, requesterID string) error {
	ok, err := m.IsMember(ctx, chatViewID, requesterID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("user %s adding to chatview %s: %w", requesterID, chatViewID, errs.ErrForbidden)
	}

	m.AddMemberNoValidation(ctx, chatViewID, userID)
	return nil
}

// AddMemberNoValidation adds userID without an authorization check. It is
// best effort: every failure is logged and swallowed.
func (m *Manager) AddMemberNoValidation(ctx context.Context, chatViewID, userID string) {
	l := logging.Ctx(ctx).With().
		Str(logging.FieldChatViewID, chatViewID).
		Str(logging.FieldMemberID, userID).
		Logger()

	existing := false
	err := storage.Transact(ctx, m.store, func(tx storage.Storage, ob *storage.Outbox) error {
		cv, err := tx.FindChatViewWithMembers(ctx, chatViewID)
		if err != nil {
			return err
		}
		if cv.HasMember(userID) {
			existing = true
			return nil
		}
		user, err := tx.FindUser(ctx, userID)
		if err != nil {
			return err
		}
		if err := tx.AddMember(ctx, chatViewID, user); err != nil {
			return err
		}

		m.afterJoin(ob, cv, userID)
		return nil
	})
	if err != nil {
		l.Error().Err(err).Msg("failed to add member")
		return
	}
	if existing {
		l.Debug().Msg("already a member")
		return
	}
	l.Info().Msg("member added")
}

// RemoveMember drops userID from the chatview and deletes the member's queue.
// Any backlog still in the queue is lost; the history remains available.
func (m *Manager) RemoveMember(ctx context.Context, chatViewID, userID string) error {
	err := storage.Transact(ctx, m.store, func(tx storage.Storage, ob *storage.Outbox) error {
		if _, err := tx.FindChatViewWithMembers(ctx, chatViewID); err != nil {
			return err
		}
		if err := tx.RemoveMember(ctx, chatViewID, userID); err != nil {
			return err
		}

		ob.AddBestEffort("deprovision queue", func(ctx context.Context) error {
			m.queues.Deprovision(ctx, chatViewID, userID)
			return nil
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("remove %s from chatview %s: %w", userID, chatViewID, err)
	}

	logging.Ctx(ctx).Info().
		Str(logging.FieldChatViewID, chatViewID).
		Str(logging.FieldMemberID, userID).
		Msg("member removed")
	return nil
}

// IsMember is the authorization gate for posting, viewing and draining.
func (m *Manager) IsMember(ctx context.Context, chatViewID, userID string) (bool, error) {
	cv, err := m.store.FindChatViewWithMembers(ctx, chatViewID)
	if err != nil {
		return false, err
	}
	return cv.HasMember(userID), nil
}

func (m *Manager) MemberIDs(ctx context.Context, chatViewID string) ([]string, error) {
	cv, err := m.store.FindChatViewWithMembers(ctx, chatViewID)
	if err != nil {
		return nil, err
	}
	return cv.MemberIDs(), nil
}

// ChatViewsFor lists the chatviews userID belongs to.
func (m *Manager) ChatViewsFor(ctx context.Context, userID string) ([]models.ChatView, error) {
	return m.store.FindChatViewsByMember(ctx, userID)
}

// afterJoin registers the post-commit effects of a join: the queue must be
// provisioned, the notification is best effort.
func (m *Manager) afterJoin(ob *storage.Outbox, cv *models.ChatView, userID string) {
	ob.Add("provision queue", func(ctx context.Context) error {
		return m.queues.Provision(ctx, cv.ID, userID)
	})
	ob.AddBestEffort("notify membership added", func(ctx context.Context) error {
		if m.notifier != nil {
			m.notifier.NotifyMembershipAdded(ctx, userID, cv)
		}
		return nil
	})
}
