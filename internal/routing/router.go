package routing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Kirky-X/xlink/internal/capability"
	"github.com/Kirky-X/xlink/internal/channel"
	"github.com/Kirky-X/xlink/internal/domain/device"
	"github.com/Kirky-X/xlink/internal/domain/message"
)

// ErrNoRoute is returned when no registered channel can reach the target.
var ErrNoRoute = errors.New("no route to device")

const (
	// historySize is how many past choices per target feed the prediction.
	historySize = 10
	// predictionFloor is the score a predicted channel needs to be reused
	// without comparing against the others first.
	predictionFloor = 0.6
	// DefaultCheckTTL is how long a link state is trusted before the
	// channel is asked again.
	DefaultCheckTTL = 10 * time.Second
)

// Candidate is a usable channel and its score for one message.
type Candidate struct {
	Channel channel.Channel
	Score   float64
}

type Option func(*Router)

// WithCheckTTL sets how long link states are trusted. Zero means check on
// every send.
func WithCheckTTL(d time.Duration) Option {
	return func(r *Router) { r.checkTTL = d }
}

// WithTrafficThreshold logs a warning every time a channel's accumulated
// traffic is at or above limit bytes.
func WithTrafficThreshold(ct device.ChannelType, limit uint64) Option {
	return func(r *Router) { r.thresholds[ct] = limit }
}

type Router struct {
	caps     *capability.Manager
	log      zerolog.Logger
	checkTTL time.Duration

	mu         sync.RWMutex
	channels   map[device.ChannelType]channel.Channel
	order      []device.ChannelType
	history    map[device.ID][]device.ChannelType
	traffic    map[device.ChannelType]uint64
	thresholds map[device.ChannelType]uint64
}

func New(caps *capability.Manager, log zerolog.Logger, opts ...Option) *Router {
	r := &Router{
		caps:       caps,
		log:        log,
		checkTTL:   DefaultCheckTTL,
		channels:   make(map[device.ChannelType]channel.Channel),
		history:    make(map[device.ID][]device.ChannelType),
		traffic:    make(map[device.ChannelType]uint64),
		thresholds: make(map[device.ChannelType]uint64),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a channel. A second channel of the same type replaces the first.
func (r *Router) Register(ch channel.Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.channels[ch.Type()]; !ok {
		r.order = append(r.order, ch.Type())
	}
	r.channels[ch.Type()] = ch
}

func (r *Router) Channel(ct device.ChannelType) (channel.Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[ct]
	return ch, ok
}

// Channels returns the registered channels in registration order.
func (r *Router) Channels() []channel.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]channel.Channel, 0, len(r.order))
	for _, ct := range r.order {
		out = append(out, r.channels[ct])
	}
	return out
}

// Rank returns every usable channel towards m.Recipient, best first.
// A channel that was picked most often for this target recently is moved to
// the front when its score is good enough.
func (r *Router) Rank(ctx context.Context, m *message.Message) ([]Candidate, error) {
	local := r.caps.Local()
	chans := r.Channels()

	cands := make([]Candidate, 0, len(chans))
	down := 0
	for _, ch := range chans {
		st, ok := r.state(ctx, ch, m.Recipient)
		if !ok {
			continue
		}
		if !st.Available {
			down++
		}
		score := Score(ch.Type(), st, local, m.Priority)
		r.log.Debug().
			Str("channel", string(ch.Type())).
			Float64("score", score).
			Msg("channel scored")
		if score > 0 {
			cands = append(cands, Candidate{Channel: ch, Score: score})
		}
	}
	if len(cands) == 0 {
		if down > 0 {
			return nil, fmt.Errorf("%w: %d channel(s) down: %w", ErrNoRoute, down, channel.ErrUnavailable)
		}
		return nil, ErrNoRoute
	}

	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Score > cands[j].Score })

	if predicted, ok := r.predict(m.Recipient); ok {
		for i, c := range cands {
			if c.Channel.Type() == predicted && c.Score > predictionFloor {
				copy(cands[1:i+1], cands[:i])
				cands[0] = c
				break
			}
		}
	}
	return cands, nil
}

// Select returns the best channel and records the choice.
func (r *Router) Select(ctx context.Context, m *message.Message) (channel.Channel, error) {
	cands, err := r.Rank(ctx, m)
	if err != nil {
		return nil, err
	}
	ch := cands[0].Channel
	r.Record(m, ch.Type())
	return ch, nil
}

// state returns the known link state, asking the channel when it is
// missing or stale.
func (r *Router) state(ctx context.Context, ch channel.Channel, target device.ID) (device.ChannelState, bool) {
	e, ok := r.caps.Lookup(target, ch.Type())
	if ok && r.checkTTL > 0 && time.Since(e.UpdatedAt) < r.checkTTL {
		return e.State, true
	}

	st, err := ch.State(ctx, target)
	if err != nil {
		if ok {
			return e.State, true
		}
		return device.ChannelState{}, false
	}
	if ok && !st.Available {
		st.FailureCount = e.State.FailureCount
	}
	r.caps.UpdateState(target, ch.Type(), st)
	return st, true
}

// Record notes that m went out over ct.
func (r *Router) Record(m *message.Message, ct device.ChannelType) {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := r.traffic[ct] + uint64(m.Payload.Size())
	r.traffic[ct] = total
	if limit, ok := r.thresholds[ct]; ok && total >= limit {
		r.log.Warn().
			Str("channel", string(ct)).
			Uint64("bytes", total).
			Uint64("threshold", limit).
			Msg("traffic threshold exceeded")
	}

	h := append(r.history[m.Recipient], ct)
	if len(h) > historySize {
		h = h[len(h)-historySize:]
	}
	r.history[m.Recipient] = h
}

// predict returns the channel used most often for target, the most recent
// one winning ties.
func (r *Router) predict(target device.ID) (device.ChannelType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h := r.history[target]
	if len(h) == 0 {
		return "", false
	}
	counts := make(map[device.ChannelType]int, len(h))
	var best device.ChannelType
	bestCount := 0
	for _, ct := range h {
		counts[ct]++
		if counts[ct] >= bestCount {
			best, bestCount = ct, counts[ct]
		}
	}
	return best, true
}

// TrafficStats returns bytes routed per channel.
func (r *Router) TrafficStats() map[device.ChannelType]uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[device.ChannelType]uint64, len(r.traffic))
	for k, v := range r.traffic {
		out[k] = v
	}
	return out
}

// Clear drops traffic counters and route history.
func (r *Router) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.traffic = make(map[device.ChannelType]uint64)
	r.history = make(map[device.ID][]device.ChannelType)
}
