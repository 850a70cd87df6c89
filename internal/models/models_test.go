package models_test

import (
	"chatview/backend/internal/models"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserBeforeCreate_GeneratesUUID(t *testing.T) {
	user := &models.User{Username: "alice"}

	require.NoError(t, user.BeforeCreate(nil))

	_, err := uuid.Parse(user.ID)
	assert.NoError(t, err, "User ID must be a valid UUID")
}

func TestUserBeforeCreate_KeepsExistingID(t *testing.T) {
	user := &models.User{ID: "fixed", Username: "bob"}
	require.NoError(t, user.BeforeCreate(nil))
	assert.Equal(t, "fixed", user.ID)
}

func TestUserName_FallsBackToUsername(t *testing.T) {
	assert.Equal(t, "alice", (&models.User{Username: "alice"}).Name())
	assert.Equal(t, "Alice A.", (&models.User{Username: "alice", DisplayName: "Alice A."}).Name())
}

func TestMessageBeforeCreate_NormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	msg := &models.Message{Text: "hi", CreatedAt: time.Date(2026, 1, 2, 15, 0, 0, 0, loc)}

	require.NoError(t, msg.BeforeCreate(nil))

	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, time.UTC, msg.CreatedAt.Location())
	assert.Equal(t, 12, msg.CreatedAt.Hour())
}

func TestChatViewMembership(t *testing.T) {
	cv := &models.ChatView{Members: []models.User{{ID: "a", Username: "alice"}, {ID: "b", Username: "bob"}}}

	assert.True(t, cv.HasMember("a"))
	assert.False(t, cv.HasMember("c"))
	assert.Equal(t, []string{"a", "b"}, cv.MemberIDs())
	assert.Equal(t, "bob", cv.Member("b").Username)
}

func TestDeliveryPayload_WireShape(t *testing.T) {
	created := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	msg := &models.Message{Text: "hi", SenderID: "a", ChatViewID: "c1", CreatedAt: created}

	data, err := json.Marshal(models.NewDeliveryPayload(msg, "alice"))
	require.NoError(t, err)

	assert.JSONEq(t, `{"text":"hi","senderName":"alice","senderId":"a","chatViewId":"c1","createdAt":"2026-03-04T05:06:07Z"}`, string(data))
}
