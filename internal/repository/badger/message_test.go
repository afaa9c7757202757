package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kirky-X/xlink/internal/domain/message"
	"github.com/Kirky-X/xlink/internal/repository/repotest"
)

func TestRepository(t *testing.T) {
	repotest.Run(t, func(t *testing.T) message.Repository {
		repo, err := Open("")
		require.NoError(t, err)
		t.Cleanup(func() { _ = repo.Close() })
		return repo
	})
}

func TestPendingSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	repo, err := Open(dir)
	require.NoError(t, err)
	m := repotest.NewMessage(t, "queued while offline", message.PriorityCritical, time.Now())
	require.NoError(t, repo.Save(ctx, m))
	require.NoError(t, repo.Close())

	repo, err = Open(dir)
	require.NoError(t, err)
	defer repo.Close()

	pending, err := repo.GetPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, m.ID, pending[0].ID)
	assert.Equal(t, "queued while offline", pending[0].Payload.Text)
	assert.Equal(t, message.PriorityCritical, pending[0].Priority)
}
