package chathub_test

import (
	"chatview/backend/internal/identity"
	"chatview/backend/internal/models"
	"chatview/backend/internal/router"
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockClient struct {
	userID    string
	sessionID string
	token     uint64
	send      chan models.OutboundFrame

	mu     sync.Mutex
	closed bool
}

func newMockClient(userID, sessionID string) *MockClient {
	return &MockClient{
		userID:    userID,
		sessionID: sessionID,
		send:      make(chan models.OutboundFrame, 10),
	}
}

func (c *MockClient) GetUserID() string                           { return c.userID }
func (c *MockClient) GetSessionID() string                        { return c.sessionID }
func (c *MockClient) ConnectionToken() uint64                     { return c.token }
func (c *MockClient) SetConnectionToken(t uint64)                 { c.token = t }
func (c *MockClient) GetSendChannel() chan<- models.OutboundFrame { return c.send }
func (c *MockClient) Run()                                        {}

func (c *MockClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *MockClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// next returns the next frame written to the client, if any.
func (c *MockClient) next() (models.OutboundFrame, bool) {
	select {
	case f, ok := <-c.send:
		return f, ok
	default:
		return models.OutboundFrame{}, false
	}
}

type MockPresence struct {
	mock.Mock
}

func (m *MockPresence) SetOnline(ctx context.Context, userID, sessionID string) (uint64, error) {
	args := m.Called(userID, sessionID)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockPresence) SetOfflineBySession(ctx context.Context, sessionID string, token uint64) (bool, error) {
	args := m.Called(sessionID, token)
	return args.Bool(0), args.Error(1)
}

func (m *MockPresence) IsOnline(ctx context.Context, userID string) (bool, error) {
	args := m.Called(userID)
	return args.Bool(0), args.Error(1)
}

type MockMembers struct {
	mock.Mock
}

func (m *MockMembers) IsMember(ctx context.Context, chatViewID, userID string) (bool, error) {
	args := m.Called(chatViewID, userID)
	return args.Bool(0), args.Error(1)
}

type MockPoster struct {
	mock.Mock
}

func (m *MockPoster) PostMessage(ctx context.Context, text, chatViewID string, timestamp time.Time, principal identity.Principal) (*router.PostResult, error) {
	args := m.Called(text, chatViewID, timestamp, principal)
	res, _ := args.Get(0).(*router.PostResult)
	return res, args.Error(1)
}

type MockRelay struct {
	mock.Mock
}

func (m *MockRelay) Publish(ctx context.Context, userID string, frame models.OutboundFrame) error {
	return m.Called(userID, frame).Error(0)
}
