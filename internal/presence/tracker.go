// Package presence tracks which users are connected and on which transport
// session. One session per user: a new connect replaces the previous one.
package presence

import (
	"chatview/backend/internal/errs"
	"chatview/backend/internal/logging"
	"chatview/backend/internal/storage"
	"context"
	"errors"
	"time"
)

// Tracker is the presence store used for routing decisions.
type Tracker struct {
	store storage.Storage
	now   func() time.Time
}

func NewTracker(s storage.Storage) *Tracker {
	return &Tracker{store: s, now: func() time.Time { return time.Now().UTC() }}
}

// SetOnline records sessionID as the user's current session and returns the
// connection token that a later SetOfflineBySession must present.
func (t *Tracker) SetOnline(ctx context.Context, userID, sessionID string) (uint64, error) {
	token, err := t.store.UpsertPresenceOnline(ctx, userID, sessionID, t.now())
	if err != nil {
		return 0, err
	}
	logging.Ctx(ctx).Debug().
		Str(logging.FieldUserID, userID).
		Str(logging.FieldSessionID, sessionID).
		Uint64("token", token).
		Msg("presence online")
	return token, nil
}

// SetOffline clears presence for userID whatever session is stored.
func (t *Tracker) SetOffline(ctx context.Context, userID string) error {
	return t.store.ClearPresence(ctx, userID, t.now())
}

// SetOfflineBySession clears presence only if sessionID with token is still
// the user's current session. It returns false for a stale disconnect.
func (t *Tracker) SetOfflineBySession(ctx context.Context, sessionID string, token uint64) (bool, error) {
	cleared, err := t.store.ClearPresenceIfCurrent(ctx, sessionID, token, t.now())
	if err != nil {
		return false, err
	}
	if !cleared {
		logging.Ctx(ctx).Debug().
			Str(logging.FieldSessionID, sessionID).
			Uint64("token", token).
			Msg("stale disconnect ignored")
	}
	return cleared, nil
}

// IsOnline reports the routing decision for userID. Unknown users are offline.
func (t *Tracker) IsOnline(ctx context.Context, userID string) (bool, error) {
	p, err := t.store.FindPresence(ctx, userID)
	if errors.Is(err, errs.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return p.Online, nil
}

func (t *Tracker) SessionIDFor(ctx context.Context, userID string) (string, error) {
	p, err := t.store.FindPresence(ctx, userID)
	if err != nil {
		return "", err
	}
	if !p.Online || p.SessionID == "" {
		return "", errs.ErrNotFound
	}
	return p.SessionID, nil
}

func (t *Tracker) UserIDForSession(ctx context.Context, sessionID string) (string, error) {
	p, err := t.store.FindPresenceBySession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return p.UserID, nil
}
