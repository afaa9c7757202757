// Package heartbeat keeps link states fresh by pinging known devices on
// every channel that reaches them.
package heartbeat

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Kirky-X/xlink/internal/capability"
	"github.com/Kirky-X/xlink/internal/channel"
	"github.com/Kirky-X/xlink/internal/domain/device"
	"github.com/Kirky-X/xlink/internal/domain/message"
	"github.com/Kirky-X/xlink/internal/metrics"
	"github.com/Kirky-X/xlink/internal/privacy"
	"github.com/Kirky-X/xlink/internal/routing"
)

const (
	NearMinInterval   = 1 * time.Second
	NearMaxInterval   = 5 * time.Second
	RemoteMinInterval = 30 * time.Second
	RemoteMaxInterval = 60 * time.Second

	// DefaultTick is how often due pings are looked for.
	DefaultTick = time.Second
	// pingTimeout bounds a single ping send.
	pingTimeout = 2 * time.Second
	// pongTimeout is how long a ping may stay unanswered before the link
	// is charged with a failure.
	pongTimeout = 5 * time.Second
)

// Interval returns how long to wait between pings over a link in state st.
// Near links are pinged every 1-5s, remote ones every 30-60s.
func Interval(st device.ChannelState) time.Duration {
	distance := st.DistanceM
	if distance <= 0 {
		distance = 20
	}
	signal := st.SignalDBm
	if signal == 0 {
		signal = -100
	}

	if distance <= 10 || signal >= -60 || st.RTTMillis < 100 {
		factor := clamp(distance/10)*0.7 +
			clamp(float64(signal+100)/40)*0.15 +
			clamp(float64(st.RTTMillis)/200)*0.15
		return scale(NearMinInterval, NearMaxInterval, factor)
	}

	var network float64
	switch st.Network {
	case device.NetworkBluetooth:
		network = 0.3
	case device.NetworkWiFi:
		network = 0.5
	case device.NetworkEthernet:
		network = 1
	default:
		network = 0.8
	}
	factor := (network + clamp(float64(st.RTTMillis)/1000)) / 2
	return scale(RemoteMinInterval, RemoteMaxInterval, factor)
}

func clamp(v float64) float64 {
	return max(0, min(1, v))
}

func scale(lo, hi time.Duration, factor float64) time.Duration {
	ms := float64(lo.Milliseconds()) + float64((hi-lo).Milliseconds())*factor
	return time.Duration(math.Round(ms)) * time.Millisecond
}

type link struct {
	id device.ID
	ch device.ChannelType
}

type ping struct {
	link
	sentAt time.Time
}

type Config struct {
	Self    device.ID
	Caps    *capability.Manager
	Router  *routing.Router
	Metrics *metrics.Metrics
	Anon    *privacy.Anonymizer
	Log     zerolog.Logger
	// Tick defaults to DefaultTick.
	Tick time.Duration
}

// Manager sends pings and turns pongs into link measurements.
type Manager struct {
	self    device.ID
	caps    *capability.Manager
	router  *routing.Router
	metrics *metrics.Metrics
	anon    *privacy.Anonymizer
	log     zerolog.Logger
	tick    time.Duration
	now     func() time.Time

	mu          sync.Mutex
	lastPing    map[link]time.Time
	outstanding map[uuid.UUID]ping
	cancel      context.CancelFunc
	done        chan struct{}
}

func New(cfg Config) *Manager {
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	if cfg.Anon == nil {
		cfg.Anon = privacy.Disabled()
	}
	return &Manager{
		self:        cfg.Self,
		caps:        cfg.Caps,
		router:      cfg.Router,
		metrics:     cfg.Metrics,
		anon:        cfg.Anon,
		log:         cfg.Log,
		tick:        cfg.Tick,
		now:         time.Now,
		lastPing:    make(map[link]time.Time),
		outstanding: make(map[uuid.UUID]ping),
	}
}

// Start runs the ping loop until Stop or ctx is done. Calling Start on a
// running manager does nothing.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.loop(ctx, m.done)
	m.log.Info().Dur("tick", m.tick).Msg("heartbeat started")
}

// Stop halts the loop and waits for it. It is safe to call repeatedly.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	m.log.Info().Msg("heartbeat stopped")
}

func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}

func (m *Manager) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Tick charges links whose pings went unanswered, then pings every link
// whose interval elapsed and reports how many pings were sent. Targets a
// store-and-forward channel reports absent are skipped.
func (m *Manager) Tick(ctx context.Context) int {
	now := m.now()
	for _, l := range m.expire(now) {
		m.fail(l, "pong timeout")
	}

	sent := 0
	for _, id := range m.caps.RemoteDevices() {
		for ct, st := range m.caps.States(id) {
			ch, ok := m.router.Channel(ct)
			if !ok {
				continue
			}
			if p, ok := ch.(channel.Presence); ok && !p.Present(id) {
				continue
			}
			l := link{id, ct}
			if !m.due(l, st, now) {
				continue
			}

			p := message.NewControl(m.self, id, message.Payload{Kind: message.KindPing, Timestamp: now.UnixMilli()}, message.PriorityLow)
			m.track(p.ID, l, now)

			pctx, cancel := context.WithTimeout(ctx, pingTimeout)
			err := ch.Send(pctx, p)
			cancel()
			if err != nil {
				m.untrack(p.ID)
				m.log.Debug().Err(err).Str("device", m.anon.Device(id)).Str("channel", string(ct)).Msg("ping failed")
				m.fail(l, "ping not sent")
				continue
			}
			sent++
		}
	}
	return sent
}

func (m *Manager) fail(l link, reason string) {
	if down := m.caps.MarkFailure(l.id, l.ch); down {
		m.log.Warn().Str("device", m.anon.Device(l.id)).Str("channel", string(l.ch)).Str("reason", reason).Msg("link marked unavailable")
	}
}

func (m *Manager) due(l link, st device.ChannelState, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	last := st.LastHeartbeat
	if p, ok := m.lastPing[l]; ok && p.After(last) {
		last = p
	}
	return now.Sub(last) >= Interval(st)
}

func (m *Manager) track(id uuid.UUID, l link, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastPing[l] = now
	m.outstanding[id] = ping{link: l, sentAt: now}
}

func (m *Manager) untrack(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.outstanding, id)
}

// expire drops pings older than pongTimeout and returns their links.
func (m *Manager) expire(now time.Time) []link {
	m.mu.Lock()
	defer m.mu.Unlock()
	var timedOut []link
	for id, p := range m.outstanding {
		if now.Sub(p.sentAt) > pongTimeout {
			delete(m.outstanding, id)
			timedOut = append(timedOut, p.link)
		}
	}
	return timedOut
}

// ObservePong records the round trip of an answered ping. The RTT is
// smoothed with the previous measurement (70/30).
func (m *Manager) ObservePong(pong *message.Message) {
	now := m.now()

	m.mu.Lock()
	p, ok := m.outstanding[pong.Payload.AckFor]
	delete(m.outstanding, pong.Payload.AckFor)
	m.mu.Unlock()

	l := link{pong.Sender, pong.Channel}
	var rtt time.Duration
	switch {
	case ok:
		l = p.link
		rtt = now.Sub(p.sentAt)
	case pong.Payload.Timestamp > 0:
		rtt = now.Sub(time.UnixMilli(pong.Payload.Timestamp))
	default:
		return
	}
	rtt = max(rtt, 0)

	if prev, known := m.caps.State(l.id, l.ch); known && prev.RTTMillis > 0 && prev.RTTMillis != device.UnknownState().RTTMillis {
		smoothed := (time.Duration(prev.RTTMillis)*time.Millisecond*7 + rtt*3) / 10
		rtt = smoothed
	}
	m.caps.RecordHeartbeat(l.id, l.ch, rtt)
	if m.metrics != nil {
		m.metrics.HeartbeatRTT(rtt)
	}
	m.log.Debug().Str("device", m.anon.Device(l.id)).Str("channel", string(l.ch)).Dur("rtt", rtt).Msg("heartbeat ok")
}
