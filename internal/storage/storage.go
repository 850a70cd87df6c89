package storage

import (
	"chatview/backend/internal/errs"
	"chatview/backend/internal/models"
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Storage is the persistence gateway used by the chatview core. Every method
// is scoped to one row identity (chatview id, user id, session id).
type Storage interface {
	// WithTx runs fn inside a single database transaction. fn receives a
	// Storage bound to that transaction.
	WithTx(ctx context.Context, fn func(tx Storage) error) error

	SaveUser(ctx context.Context, user *models.User) error
	FindUser(ctx context.Context, id string) (*models.User, error)

	CreateChatView(ctx context.Context, cv *models.ChatView) error
	FindChatViewWithMembers(ctx context.Context, id string) (*models.ChatView, error)
	FindChatViewsByMember(ctx context.Context, userID string) ([]models.ChatView, error)
	AddMember(ctx context.Context, chatViewID string, user *models.User) error
	RemoveMember(ctx context.Context, chatViewID, userID string) error

	SaveMessage(ctx context.Context, msg *models.Message) error
	FindMessagesByChatView(ctx context.Context, chatViewID string) ([]models.Message, error)

	UpsertPresenceOnline(ctx context.Context, userID, sessionID string, at time.Time) (uint64, error)
	ClearPresence(ctx context.Context, userID string, at time.Time) error
	ClearPresenceIfCurrent(ctx context.Context, sessionID string, token uint64, at time.Time) (bool, error)
	FindPresence(ctx context.Context, userID string) (*models.Presence, error)
	FindPresenceBySession(ctx context.Context, sessionID string) (*models.Presence, error)
}

// Service implements Storage on top of gorm.
type Service struct {
	DB *gorm.DB
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

func (s *Service) WithTx(ctx context.Context, fn func(tx Storage) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Service{DB: tx})
	})
}

// SaveUser inserts or updates a user.
func (s *Service) SaveUser(ctx context.Context, user *models.User) error {
	return s.DB.WithContext(ctx).Save(user).Error
}

func (s *Service) FindUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %s: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateChatView inserts the chatview together with its initial members.
func (s *Service) CreateChatView(ctx context.Context, cv *models.ChatView) error {
	return s.DB.WithContext(ctx).Create(cv).Error
}

// FindChatViewWithMembers loads a chatview with its member set eagerly.
func (s *Service) FindChatViewWithMembers(ctx context.Context, id string) (*models.ChatView, error) {
	var cv models.ChatView
	err := s.DB.WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("username asc") }).
		First(&cv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("chatview %s: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &cv, nil
}

// FindChatViewsByMember returns the chatviews userID belongs to, oldest first.
func (s *Service) FindChatViewsByMember(ctx context.Context, userID string) ([]models.ChatView, error) {
	var views []models.ChatView
	err := s.DB.WithContext(ctx).
		Joins("JOIN chatview_members ON chatview_members.chat_view_id = chat_views.id").
		Where("chatview_members.user_id = ?", userID).
		Order("chat_views.created_at asc").
		Find(&views).Error
	if err != nil {
		return nil, err
	}
	return views, nil
}

// AddMember links user to the chatview. Adding an existing member is a no-op.
func (s *Service) AddMember(ctx context.Context, chatViewID string, user *models.User) error {
	cv := &models.ChatView{ID: chatViewID}
	return s.DB.WithContext(ctx).Model(cv).Association("Members").Append(user)
}

func (s *Service) RemoveMember(ctx context.Context, chatViewID, userID string) error {
	cv := &models.ChatView{ID: chatViewID}
	return s.DB.WithContext(ctx).Model(cv).Association("Members").Delete(&models.User{ID: userID})
}

// SaveMessage inserts a new message. Messages are never updated.
func (s *Service) SaveMessage(ctx context.Context, msg *models.Message) error {
	return s.DB.WithContext(ctx).Create(msg).Error
}

// FindMessagesByChatView returns the full history in ascending creation order.
func (s *Service) FindMessagesByChatView(ctx context.Context, chatViewID string) ([]models.Message, error) {
	var history []models.Message
	if err := s.DB.WithContext(ctx).
		Where("chat_view_id = ?", chatViewID).
		Order("created_at asc").
		Order("id asc").
		Find(&history).Error; err != nil {
		return nil, err
	}
	return history, nil
}

// UpsertPresenceOnline marks the user online on sessionID and returns the new
// connection token. The token grows by one on every call for the same user.
func (s *Service) UpsertPresenceOnline(ctx context.Context, userID, sessionID string, at time.Time) (uint64, error) {
	var token uint64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p := models.Presence{UserID: userID, Online: true, SessionID: sessionID, Token: 1, LastSeen: at}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"online":     true,
				"session_id": sessionID,
				"last_seen":  at,
				"token":      gorm.Expr("presences.token + 1"),
			}),
		}).Create(&p).Error
		if err != nil {
			return err
		}

		var stored models.Presence
		if err := tx.First(&stored, "user_id = ?", userID).Error; err != nil {
			return err
		}
		token = stored.Token
		return nil
	})
	return token, err
}

// ClearPresence marks the user offline regardless of session.
func (s *Service) ClearPresence(ctx context.Context, userID string, at time.Time) error {
	res := s.DB.WithContext(ctx).Model(&models.Presence{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{"online": false, "session_id": "", "last_seen": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("presence %s: %w", userID, errs.ErrNotFound)
	}
	return nil
}

// ClearPresenceIfCurrent marks the owner of sessionID offline only if the
// stored session and token still match. It reports whether a row changed.
func (s *Service) ClearPresenceIfCurrent(ctx context.Context, sessionID string, token uint64, at time.Time) (bool, error) {
	res := s.DB.WithContext(ctx).Model(&models.Presence{}).
		Where("session_id = ? AND token = ?", sessionID, token).
		Updates(map[string]interface{}{"online": false, "session_id": "", "last_seen": at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Service) FindPresence(ctx context.Context, userID string) (*models.Presence, error) {
	var p models.Presence
	err := s.DB.WithContext(ctx).First(&p, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("presence %s: %w", userID, errs.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Service) FindPresenceBySession(ctx context.Context, sessionID string) (*models.Presence, error) {
	var p models.Presence
	if sessionID == "" {
		return nil, fmt.Errorf("empty session: %w", errs.ErrNotFound)
	}
	err := s.DB.WithContext(ctx).First(&p, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("session %s: %w", sessionID, errs.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
