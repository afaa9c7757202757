package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kirky-X/xlink/internal/channel"
	"github.com/Kirky-X/xlink/internal/domain/device"
	"github.com/Kirky-X/xlink/internal/domain/group"
	"github.com/Kirky-X/xlink/internal/domain/message"
	"github.com/Kirky-X/xlink/internal/request"
)

func newMessage(t *testing.T) *message.Message {
	t.Helper()
	m, err := message.NewText(device.NewID(), device.NewID(), "hello relay", message.PriorityHigh)
	require.NoError(t, err)
	return m
}

func TestSendPostsJSON(t *testing.T) {
	var got request.WebhookRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.Header.Get(AuthHeader))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"message":"Accepted","messageId":"relay-1"}`))
	}))
	defer srv.Close()

	ch := New(srv.URL, "secret")
	m := newMessage(t)
	require.NoError(t, ch.Send(context.Background(), m))

	assert.Equal(t, m.ID.String(), got.ID)
	assert.Equal(t, m.Recipient.String(), got.To)
	assert.Equal(t, "hello relay", got.Content)
	assert.Equal(t, int32(message.PriorityHigh), got.Priority)
}

func TestSendRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"messageId":"ok"}`))
	}))
	defer srv.Close()

	ch := New(srv.URL, "")
	ch.retryDelay = time.Millisecond

	require.NoError(t, ch.Send(context.Background(), newMessage(t)))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestSendGivesUpAsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ch := New(srv.URL, "")
	ch.retryDelay = time.Millisecond

	err := ch.Send(context.Background(), newMessage(t))
	assert.ErrorIs(t, err, channel.ErrUnavailable)
}

func TestSendClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	ch := New(srv.URL, "")
	err := ch.Send(context.Background(), newMessage(t))
	require.Error(t, err)
	assert.NotErrorIs(t, err, channel.ErrUnavailable)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSendMissingMessageID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}))
	defer srv.Close()

	err := New(srv.URL, "").Send(context.Background(), newMessage(t))
	assert.ErrorContains(t, err, "missing messageId")
}

func TestStateCachesHealth(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := New(srv.URL, "")
	st, err := ch.State(context.Background(), device.NewID())
	require.NoError(t, err)
	assert.True(t, st.Available)

	_, err = ch.State(context.Background(), device.NewID())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestStateUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	st, err := New(url, "").State(context.Background(), device.NewID())
	require.NoError(t, err)
	assert.False(t, st.Available)
}

type recorder struct{ got *message.Message }

func (r *recorder) HandleMessage(_ context.Context, m *message.Message) error {
	r.got = m
	return nil
}

func TestReceiveHandsMessageToHandler(t *testing.T) {
	ch := New("http://relay.invalid", "")
	rec := &recorder{}
	require.NoError(t, ch.Start(context.Background(), rec))

	m := newMessage(t).InGroup(group.NewID())
	req, err := ToRequest(m)
	require.NoError(t, err)
	require.NoError(t, ch.Receive(context.Background(), req))

	require.NotNil(t, rec.got)
	assert.Equal(t, m.ID, rec.got.ID)
	assert.Equal(t, *m.GroupID, *rec.got.GroupID)
	assert.Equal(t, m.Payload.Text, rec.got.Payload.Text)
}

func TestReceiveInviteFrame(t *testing.T) {
	ch := New("http://relay.invalid", "")
	rec := &recorder{}
	require.NoError(t, ch.Start(context.Background(), rec))

	owner := device.NewID()
	m := message.NewControl(owner, device.NewID(), message.Payload{
		Kind:   message.KindGroupInvite,
		Invite: &message.Invite{GroupID: group.NewID(), Name: "g", Owner: owner, Members: []device.ID{owner}},
	}, message.PriorityNormal)

	req, err := ToRequest(m)
	require.NoError(t, err)
	require.NotEmpty(t, req.Frame)
	require.NoError(t, ch.Receive(context.Background(), req))
	require.NotNil(t, rec.got.Payload.Invite)
	assert.Equal(t, "g", rec.got.Payload.Invite.Name)
}

func TestReceiveRejectsBadPayload(t *testing.T) {
	ch := New("http://relay.invalid", "")
	require.NoError(t, ch.Start(context.Background(), &recorder{}))

	err := ch.Receive(context.Background(), request.WebhookRequest{ID: "x"})
	assert.ErrorIs(t, err, ErrBadPayload)
}

func TestClosedChannel(t *testing.T) {
	ch := New("http://relay.invalid", "")
	require.NoError(t, ch.Close())

	assert.ErrorIs(t, ch.Send(context.Background(), newMessage(t)), channel.ErrClosed)
	assert.ErrorIs(t, ch.Receive(context.Background(), request.WebhookRequest{}), channel.ErrClosed)
}
