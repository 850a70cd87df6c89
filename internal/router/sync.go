package router

import (
	"chatview/backend/internal/errs"
	"chatview/backend/internal/logging"
	"chatview/backend/internal/models"
	"context"
	"fmt"
)

// HistoryFor returns every message of the chatview, oldest first.
func (r *Router) HistoryFor(ctx context.Context, chatViewID string) ([]models.Message, error) {
	return r.store.FindMessagesByChatView(ctx, chatViewID)
}

// FullSync returns the whole history as payloads and then empties the
// caller's queue, so nothing that raced into the queue is seen twice.
func (r *Router) FullSync(ctx context.Context, chatViewID, userID string) ([]models.DeliveryPayload, error) {
	cv, err := r.gate(ctx, chatViewID, userID)
	if err != nil {
		return nil, err
	}

	history, err := r.HistoryFor(ctx, chatViewID)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(cv.Members))
	for _, u := range cv.Members {
		names[u.ID] = u.Name()
	}

	payloads := make([]models.DeliveryPayload, 0, len(history))
	for i := range history {
		payloads = append(payloads, models.NewDeliveryPayload(&history[i], r.senderName(ctx, names, history[i].SenderID)))
	}

	dropped := r.queues.DrainAndDiscard(ctx, chatViewID, userID)
	logging.Ctx(ctx).Debug().
		Str(logging.FieldChatViewID, chatViewID).
		Str(logging.FieldUserID, userID).
		Int("messages", len(payloads)).
		Int("discarded", dropped).
		Msg("full sync")
	return payloads, nil
}

// IncrementalSync returns what was queued for the caller while offline.
func (r *Router) IncrementalSync(ctx context.Context, chatViewID, userID string) ([]models.DeliveryPayload, error) {
	if _, err := r.gate(ctx, chatViewID, userID); err != nil {
		return nil, err
	}
	return r.queues.DrainAndReturn(ctx, chatViewID, userID)
}

func (r *Router) gate(ctx context.Context, chatViewID, userID string) (*models.ChatView, error) {
	cv, err := r.store.FindChatViewWithMembers(ctx, chatViewID)
	if err != nil {
		return nil, err
	}
	if !cv.HasMember(userID) {
		return nil, fmt.Errorf("user %s reading chatview %s: %w", userID, chatViewID, errs.ErrForbidden)
	}
	return cv, nil
}

// senderName resolves names of senders that have since left the chatview.
func (r *Router) senderName(ctx context.Context, names map[string]string, senderID string) string {
	if name, ok := names[senderID]; ok {
		return name
	}
	name := senderID
	if u, err := r.store.FindUser(ctx, senderID); err == nil {
		name = u.Name()
	}
	names[senderID] = name
	return name
}
