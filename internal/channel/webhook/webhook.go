// Package webhook reaches devices through an HTTP relay. Outbound messages
// are POSTed to the relay, inbound ones arrive through Receive, which the
// gateway's relay endpoint calls.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/avast/retry-go"

	"github.com/Kirky-X/xlink/internal/channel"
	"github.com/Kirky-X/xlink/internal/domain/device"
	"github.com/Kirky-X/xlink/internal/domain/message"
	"github.com/Kirky-X/xlink/internal/request"
	"github.com/Kirky-X/xlink/internal/response"
)

// AuthHeader carries the relay key.
const AuthHeader = "x-xlink-auth-key"

const (
	requestTimeout = 5 * time.Second
	healthTimeout  = 2 * time.Second
	healthTTL      = 5 * time.Second
	sendAttempts   = 3
)

var _ channel.Channel = (*Channel)(nil)

// Channel is a relay-backed transport.
type Channel struct {
	endpoint   string
	authKey    string
	httpClient *http.Client
	retryDelay time.Duration

	mu        sync.RWMutex
	handler   channel.Handler
	closed    bool
	health    device.ChannelState
	checkedAt time.Time
}

// New creates a Channel posting to endpoint with the given auth key.
func New(endpoint, authKey string) *Channel {
	return &Channel{
		endpoint: endpoint,
		authKey:  authKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		retryDelay: 100 * time.Millisecond,
		health:     device.UnknownState(),
	}
}

func (c *Channel) Type() device.ChannelType { return device.ChannelInternet }

// withTimeout wraps the context with a timeout if it doesn't already have one.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

// transientError marks failures worth another attempt.
type transientError struct{ err error }

func (e transientError) Error() string { return e.err.Error() }
func (e transientError) Unwrap() error { return e.err }

func isTransient(err error) bool {
	var t transientError
	return errors.As(err, &t)
}

// Send posts m to the relay, retrying transport errors and 5xx answers.
func (c *Channel) Send(ctx context.Context, m *message.Message) error {
	if c.isClosed() {
		return channel.ErrClosed
	}

	ctx, cancel := withTimeout(ctx, requestTimeout)
	defer cancel()

	payload, err := ToRequest(m)
	if err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	err = retry.Do(
		func() error { return c.post(ctx, body) },
		retry.Context(ctx),
		retry.Attempts(sendAttempts),
		retry.Delay(c.retryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransient),
	)
	if err != nil {
		c.markDown()
		var t transientError
		if errors.As(err, &t) {
			return fmt.Errorf("%w: %v", channel.ErrUnavailable, t.err)
		}
		return err
	}
	return nil
}

func (c *Channel) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.authKey != "" {
		req.Header.Set(AuthHeader, c.authKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return fmt.Errorf("webhook request timeout or canceled: %w", err)
		}
		return transientError{fmt.Errorf("webhook request failed: %w", err)}
	}
	defer resp.Body.Close()

	rawBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return transientError{fmt.Errorf("failed to read webhook response: %w", err)}
	}

	if resp.StatusCode >= 500 {
		return transientError{fmt.Errorf("webhook returned status %d", resp.StatusCode)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned non-2xx status: %d", resp.StatusCode)
	}

	var parsed response.WebhookResponse
	if err := json.Unmarshal(rawBytes, &parsed); err != nil {
		return fmt.Errorf("failed to parse webhook response: %w", err)
	}
	if parsed.MessageID == "" {
		return fmt.Errorf("webhook response missing messageId")
	}
	return nil
}

// Health performs a GET against the relay endpoint.
func (c *Channel) Health(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("health: failed to create request: %w", err)
	}
	if c.authKey != "" {
		req.Header.Set(AuthHeader, c.authKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return fmt.Errorf("health: request timeout or canceled: %w", err)
		}
		return fmt.Errorf("health: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("health: non-2xx status: %d", resp.StatusCode)
	}
	return nil
}

// State reports the relay's health. The relay reaches every device, so the
// result does not depend on target. Results are cached for a few seconds.
func (c *Channel) State(ctx context.Context, _ device.ID) (device.ChannelState, error) {
	if c.isClosed() {
		return device.UnknownState(), channel.ErrClosed
	}

	c.mu.RLock()
	st, fresh := c.health, time.Since(c.checkedAt) < healthTTL
	c.mu.RUnlock()
	if fresh {
		return st, nil
	}

	start := time.Now()
	err := c.Health(ctx)
	rtt := time.Since(start)

	st = device.ChannelState{
		Available: err == nil,
		RTTMillis: uint32(rtt / time.Millisecond),
		Network:   device.NetworkEthernet,
	}
	if err != nil {
		st.PacketLoss = 1
	}

	c.mu.Lock()
	c.health, c.checkedAt = st, time.Now()
	c.mu.Unlock()
	return st, nil
}

func (c *Channel) markDown() {
	c.mu.Lock()
	c.health = device.UnknownState()
	c.checkedAt = time.Now()
	c.mu.Unlock()
}

func (c *Channel) Start(_ context.Context, h channel.Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return channel.ErrClosed
	}
	c.handler = h
	return nil
}

// Receive hands an inbound relay payload to the registered handler.
func (c *Channel) Receive(ctx context.Context, req request.WebhookRequest) error {
	c.mu.RLock()
	h, closed := c.handler, c.closed
	c.mu.RUnlock()
	if closed || h == nil {
		return channel.ErrClosed
	}

	m, err := FromRequest(req)
	if err != nil {
		return err
	}
	return h.HandleMessage(ctx, m)
}

func (c *Channel) Close() error {
	c.mu.Lock()
	c.closed = true
	c.handler = nil
	c.mu.Unlock()
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Channel) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
