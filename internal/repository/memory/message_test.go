package memory

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
	repotest.Run(t, func(t *testing.T) message.Repository { return NewRepository() })
}

func TestRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	m := repotest.NewMessage(t, "original", message.PriorityNormal, time.Now())
	require.NoError(t, repo.Save(ctx, m))

	m.Payload.Text = "changed by caller"
	got, err := repo.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", got.Payload.Text)

	got.Status = message.StatusFailed
	again, err := repo.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, message.StatusPending, again.Status)
}
