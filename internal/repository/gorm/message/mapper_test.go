package messagegorm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kirky-X/xlink/internal/domain/device"
	"github.com/Kirky-X/xlink/internal/domain/group"
	"github.com/Kirky-X/xlink/internal/domain/message"
)

func TestMapperText(t *testing.T) {
	m, err := message.NewText(device.NewID(), device.NewID(), "hi there", message.PriorityHigh)
	require.NoError(t, err)
	m.InGroup(group.NewID())
	m.MarkSent(device.ChannelInternet)

	model, err := fromDomain(m)
	require.NoError(t, err)
	assert.Empty(t, model.Frame)
	assert.Equal(t, "hi there", model.Content)
	assert.Equal(t, int32(2), model.Priority)
	require.NotNil(t, model.GroupID)

	back, err := toDomain(model)
	require.NoError(t, err)
	assert.Equal(t, m.ID, back.ID)
	assert.Equal(t, m.Sender, back.Sender)
	assert.Equal(t, m.Recipient, back.Recipient)
	assert.Equal(t, *m.GroupID, *back.GroupID)
	assert.Equal(t, message.StatusSent, back.Status)
	assert.Equal(t, device.ChannelInternet, back.Channel)
}

func TestMapperInviteUsesFrame(t *testing.T) {
	owner := device.NewID()
	inv := &message.Invite{GroupID: group.NewID(), Name: "team", Owner: owner, Members: []device.ID{owner, device.NewID()}}
	m := message.NewControl(owner, device.NewID(), message.Payload{Kind: message.KindGroupInvite, Invite: inv}, message.PriorityNormal)
	m.CreatedAt = time.Now().Truncate(time.Microsecond)

	model, err := fromDomain(m)
	require.NoError(t, err)
	assert.NotEmpty(t, model.Frame)

	back, err := toDomain(model)
	require.NoError(t, err)
	require.NotNil(t, back.Payload.Invite)
	assert.Equal(t, "team", back.Payload.Invite.Name)
	assert.Equal(t, inv.Members, back.Payload.Invite.Members)
}
