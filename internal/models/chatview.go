package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatView is a named group conversation with a member set and a message history.
type ChatView struct {
	// ID is the chatview UUID.
	ID string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	// Name is the display name of the chatview.
	Name string `gorm:"type:text;not null" json:"name"`
	// Members are the users currently in the chatview.
	Members []User `gorm:"many2many:chatview_members;joinForeignKey:ChatViewID;joinReferences:UserID" json:"members,omitempty"`
	// Messages are loaded only when explicitly preloaded.
	Messages  []Message `gorm:"foreignKey:ChatViewID" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// BeforeCreate assigns a UUID when the chatview has none.
func (c *ChatView) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// HasMember reports whether userID is in the loaded member set.
func (c *ChatView) HasMember(userID string) bool {
	return c.Member(userID) != nil
}

// Member returns the loaded member with the given id, or nil.
func (c *ChatView) Member(userID string) *User {
	for i := range c.Members {
		if c.Members[i].ID == userID {
			return &c.Members[i]
		}
	}
	return nil
}

// MemberIDs returns the ids of the loaded member set.
func (c *ChatView) MemberIDs() []string {
	ids := make([]string, 0, len(c.Members))
	for _, m := range c.Members {
		ids = append(ids, m.ID)
	}
	return ids
}
