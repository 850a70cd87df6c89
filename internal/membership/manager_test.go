package membership_test

import (
	"chatview/backend/internal/errs"
	"chatview/backend/internal/membership"
	"chatview/backend/internal/models"
	"chatview/backend/internal/queue"
	"chatview/backend/internal/queue/queuetest"
	"chatview/backend/internal/storage"
	"chatview/backend/internal/storage/storagetest"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockNotifier records membership-added signals.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyMembershipAdded(ctx context.Context, userID string, cv *models.ChatView) {
	m.Called(userID, cv.ID)
}

type fixture struct {
	store    *storage.Service
	broker   *queuetest.MemoryBroker
	queues   *queue.Manager
	notifier *MockNotifier
	manager  *membership.Manager
}

func newFixture(t *testing.T, users ...string) *fixture {
	t.Helper()
	s := storagetest.NewSQLite(t)
	storagetest.SeedUsers(t, s, users...)

	b := queuetest.NewMemoryBroker()
	q := queue.NewManager(b, time.Millisecond)
	n := new(MockNotifier)
	n.On("NotifyMembershipAdded", mock.Anything, mock.Anything).Return()

	return &fixture{store: s, broker: b, queues: q, notifier: n, manager: membership.NewManager(s, q, n)}
}

func TestCreateChatView_CreatorIsMemberWithQueue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "alice", "bob", "carol")

	cv, err := f.manager.CreateChatView(ctx, "general", "alice", []string{"bob", "alice", "carol", "bob"})
	require.NoError(t, err)

	assert.Equal(t, "general", cv.Name)
	assert.ElementsMatch(t, []string{"alice", "bob", "carol"}, cv.MemberIDs())

	ok, err := f.manager.IsMember(ctx, cv.ID, "alice")
	require.NoError(t, err)
	assert.True(t, ok, "creator is a member immediately after creation")

	for _, id := range []string{"alice", "bob", "carol"} {
		assert.True(t, f.queues.Exists(ctx, cv.ID, id), "queue for %s", id)
	}
	f.notifier.AssertNumberOfCalls(t, "NotifyMembershipAdded", 3)
	f.notifier.AssertCalled(t, "NotifyMembershipAdded", "alice", cv.ID)
}

func TestCreateChatView_SkipsUnknownMembers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "alice", "bob")

	cv, err := f.manager.CreateChatView(ctx, "team", "alice", []string{"ghost", "bob"})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"alice", "bob"}, cv.MemberIDs())
	assert.False(t, f.queues.Exists(ctx, cv.ID, "ghost"))
}

func TestCreateChatView_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "alice")

	_, err := f.manager.CreateChatView(ctx, "   ", "alice", nil)
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = f.manager.CreateChatView(ctx, "x", "nobody", nil)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestCreateChatView_ProvisionFailurePropagates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "alice")
	f.broker.FailDeclare = errors.New("broker down")

	_, err := f.manager.CreateChatView(ctx, "x", "alice", nil)

	assert.ErrorIs(t, err, errs.ErrBroker)
}

func TestAddMember_RequiresRequesterMembership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "alice", "bob", "mallory")
	cv, err := f.manager.CreateChatView(ctx, "c", "alice", nil)
	require.NoError(t, err)

	err = f.manager.AddMember(ctx, cv.ID, "mallory", "mallory")
	assert.ErrorIs(t, err, errs.ErrForbidden)

	ok, err := f.manager.IsMember(ctx, cv.ID, "mallory")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, f.manager.AddMember(ctx, cv.ID, "bob", "alice"))
	ok, err = f.manager.IsMember(ctx, cv.ID, "bob")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, f.queues.Exists(ctx, cv.ID, "bob"))

	err = f.manager.AddMember(ctx, "missing", "bob", "alice")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestAddMemberNoValidation_SwallowsFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "alice", "bob")
	cv, err := f.manager.CreateChatView(ctx, "c", "alice", nil)
	require.NoError(t, err)

	assert.NotPanics(t, func() { f.manager.AddMemberNoValidation(ctx, "missing", "bob") })
	assert.NotPanics(t, func() { f.manager.AddMemberNoValidation(ctx, cv.ID, "ghost") })

	ids, err := f.manager.MemberIDs(ctx, cv.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, ids)
}

func TestAddMemberNoValidation_ExistingMemberIsNotNotifiedAgain(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "alice", "bob")
	cv, err := f.manager.CreateChatView(ctx, "c", "alice", nil)
	require.NoError(t, err)

	f.manager.AddMemberNoValidation(ctx, cv.ID, "bob")
	f.manager.AddMemberNoValidation(ctx, cv.ID, "bob")
	f.manager.AddMemberNoValidation(ctx, cv.ID, "alice")

	ids, err := f.manager.MemberIDs(ctx, cv.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, ids)

	f.notifier.AssertNumberOfCalls(t, "NotifyMembershipAdded", 2)
	f.notifier.AssertCalled(t, "NotifyMembershipAdded", "bob", cv.ID)
}

func TestRemoveMember_DeletesQueue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "alice", "bob")
	cv, err := f.manager.CreateChatView(ctx, "c", "alice", []string{"bob"})
	require.NoError(t, err)
	require.True(t, f.queues.Exists(ctx, cv.ID, "bob"))

	require.NoError(t, f.manager.RemoveMember(ctx, cv.ID, "bob"))

	ok, err := f.manager.IsMember(ctx, cv.ID, "bob")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, f.queues.Exists(ctx, cv.ID, "bob"))

	// second deprovision does not raise
	assert.NotPanics(t, func() { f.queues.Deprovision(ctx, cv.ID, "bob") })
}

func TestRemoveMember_DeleteFailureIsNotPropagated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "alice", "bob")
	cv, err := f.manager.CreateChatView(ctx, "c", "alice", []string{"bob"})
	require.NoError(t, err)
	f.broker.FailDelete = errors.New("broker down")

	require.NoError(t, f.manager.RemoveMember(ctx, cv.ID, "bob"))

	ok, err := f.manager.IsMember(ctx, cv.ID, "bob")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemoveMember_NotFound(t *testing.T) {
	f := newFixture(t, "alice")
	err := f.manager.RemoveMember(context.Background(), "missing", "alice")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestMembershipQueries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "alice", "bob")
	first, err := f.manager.CreateChatView(ctx, "first", "alice", []string{"bob"})
	require.NoError(t, err)
	_, err = f.manager.CreateChatView(ctx, "second", "alice", nil)
	require.NoError(t, err)

	ids, err := f.manager.MemberIDs(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, ids)

	views, err := f.manager.ChatViewsFor(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, first.ID, views[0].ID)

	_, err = f.manager.IsMember(ctx, "missing", "alice")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
