// Package repotest holds behaviour checks shared by every message.Repository
// implementation.
package repotest

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kirky-X/xlink/internal/domain/device"
	"github.com/Kirky-X/xlink/internal/domain/group"
	"github.com/Kirky-X/xlink/internal/domain/message"
)

// NewMessage builds a pending text message created at the given time.
func NewMessage(t *testing.T, text string, p message.Priority, created time.Time) *message.Message {
	t.Helper()
	m, err := message.NewText(device.NewID(), device.NewID(), text, p)
	require.NoError(t, err)
	m.CreatedAt = created
	m.UpdatedAt = created
	return m
}

// Run exercises the repository contract against repositories created by newRepo.
func Run(t *testing.T, newRepo func(t *testing.T) message.Repository) {
	t.Run("SaveAndGet", func(t *testing.T) { testSaveAndGet(t, newRepo(t)) })
	t.Run("GetUnknown", func(t *testing.T) { testGetUnknown(t, newRepo(t)) })
	t.Run("PendingOrder", func(t *testing.T) { testPendingOrder(t, newRepo(t)) })
	t.Run("UpdateStatus", func(t *testing.T) { testUpdateStatus(t, newRepo(t)) })
	t.Run("GetSentPaged", func(t *testing.T) { testGetSentPaged(t, newRepo(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newRepo(t)) })
	t.Run("DeleteOlderThan", func(t *testing.T) { testDeleteOlderThan(t, newRepo(t)) })
}

func testSaveAndGet(t *testing.T, repo message.Repository) {
	ctx := context.Background()
	m := NewMessage(t, "hello", message.PriorityHigh, time.Now())
	m.InGroup(group.NewID())
	require.NoError(t, repo.Save(ctx, m))

	got, err := repo.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)
	assert.Equal(t, m.Sender, got.Sender)
	assert.Equal(t, m.Recipient, got.Recipient)
	assert.Equal(t, "hello", got.Payload.Text)
	assert.Equal(t, message.KindText, got.Payload.Kind)
	assert.Equal(t, message.PriorityHigh, got.Priority)
	assert.Equal(t, message.StatusPending, got.Status)
	require.NotNil(t, got.GroupID)
	assert.Equal(t, *m.GroupID, *got.GroupID)
	assert.True(t, m.CreatedAt.Equal(got.CreatedAt))
}

func testGetUnknown(t *testing.T, repo message.Repository) {
	_, err := repo.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, message.ErrNotFound)
}

func testPendingOrder(t *testing.T, repo message.Repository) {
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	oldLow := NewMessage(t, "old low", message.PriorityLow, base)
	newCrit := NewMessage(t, "new critical", message.PriorityCritical, base.Add(3*time.Minute))
	oldCrit := NewMessage(t, "old critical", message.PriorityCritical, base.Add(time.Minute))
	normal := NewMessage(t, "normal", message.PriorityNormal, base.Add(2*time.Minute))
	sent := NewMessage(t, "sent", message.PriorityCritical, base)
	sent.MarkSent(device.ChannelMemory)

	for _, m := range []*message.Message{oldLow, newCrit, oldCrit, normal, sent} {
		require.NoError(t, repo.Save(ctx, m))
	}

	got, err := repo.GetPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, oldCrit.ID, got[0].ID)
	assert.Equal(t, newCrit.ID, got[1].ID)
	assert.Equal(t, normal.ID, got[2].ID)
	assert.Equal(t, oldLow.ID, got[3].ID)

	got, err = repo.GetPending(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func testUpdateStatus(t *testing.T, repo message.Repository) {
	ctx := context.Background()
	m := NewMessage(t, "payload", message.PriorityNormal, time.Now())
	require.NoError(t, repo.Save(ctx, m))

	m.RecordFailure("link down")
	require.NoError(t, repo.UpdateStatus(ctx, m))
	got, err := repo.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Attempts)
	assert.Equal(t, "link down", got.LastError)
	assert.Equal(t, message.StatusPending, got.Status)

	m.MarkSent(device.ChannelLan)
	require.NoError(t, repo.UpdateStatus(ctx, m))
	got, err = repo.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, message.StatusSent, got.Status)
	assert.Equal(t, device.ChannelLan, got.Channel)
	require.NotNil(t, got.SentAt)
	assert.Empty(t, got.LastError)

	pending, err := repo.GetPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func testGetSentPaged(t *testing.T, repo message.Repository) {
	ctx := context.Background()
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		m := NewMessage(t, "m", message.PriorityNormal, time.Now())
		require.NoError(t, repo.Save(ctx, m))
		m.MarkSent(device.ChannelMemory)
		sentAt := time.Now().Add(time.Duration(i) * time.Second)
		m.SentAt = &sentAt
		require.NoError(t, repo.UpdateStatus(ctx, m))
		ids = append(ids, m.ID)
	}
	require.NoError(t, repo.Save(ctx, NewMessage(t, "pending", message.PriorityNormal, time.Now())))

	page, total, err := repo.GetSent(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.Equal(t, ids[2], page[0].ID)
	assert.Equal(t, ids[1], page[1].ID)

	page, _, err = repo.GetSent(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[0], page[0].ID)

	page, _, err = repo.GetSent(ctx, 5, 2)
	require.NoError(t, err)
	assert.Empty(t, page)

	// Offsets past the int range are an empty page, not a panic.
	page, total, err = repo.GetSent(ctx, math.MaxInt/10, 20)
	require.NoError(t, err)
	assert.Empty(t, page)
	assert.Equal(t, int64(3), total)
}

func testDelete(t *testing.T, repo message.Repository) {
	ctx := context.Background()
	m := NewMessage(t, "gone", message.PriorityNormal, time.Now())
	require.NoError(t, repo.Save(ctx, m))
	require.NoError(t, repo.Delete(ctx, m.ID))
	_, err := repo.Get(ctx, m.ID)
	assert.ErrorIs(t, err, message.ErrNotFound)
	assert.NoError(t, repo.Delete(ctx, uuid.New()))
}

func testDeleteOlderThan(t *testing.T, repo message.Repository) {
	ctx := context.Background()
	old := time.Now().Add(-48 * time.Hour)

	oldSent := NewMessage(t, "old sent", message.PriorityNormal, old)
	oldSent.MarkSent(device.ChannelMemory)
	oldFailed := NewMessage(t, "old failed", message.PriorityNormal, old)
	oldFailed.MarkFailed("gave up")
	oldPending := NewMessage(t, "old pending", message.PriorityNormal, old)
	fresh := NewMessage(t, "fresh", message.PriorityNormal, time.Now())
	fresh.MarkSent(device.ChannelMemory)

	for _, m := range []*message.Message{oldSent, oldFailed, oldPending, fresh} {
		require.NoError(t, repo.Save(ctx, m))
	}

	n, err := repo.DeleteOlderThan(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = repo.Get(ctx, oldPending.ID)
	assert.NoError(t, err)
	_, err = repo.Get(ctx, fresh.ID)
	assert.NoError(t, err)
	_, err = repo.Get(ctx, oldSent.ID)
	assert.ErrorIs(t, err, message.ErrNotFound)
}
