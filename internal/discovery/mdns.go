package discovery

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
	"github.com/rs/zerolog"

	"github.com/Kirky-X/xlink/internal/capability"
	"github.com/Kirky-X/xlink/internal/domain/device"
	"github.com/Kirky-X/xlink/internal/privacy"
)

const DefaultPort = 7788

type Config struct {
	Local device.Capabilities
	Port  uint16
	// Interface restricts mDNS to one network interface. Empty means all.
	Interface string
	TTL       time.Duration
	Caps      *capability.Manager
	Anon      *privacy.Anonymizer
	Log       zerolog.Logger
}

// Service advertises the local device and browses for peers.
type Service struct {
	cfg Config

	mu     sync.Mutex
	server *zeroconf.Server
	cancel context.CancelFunc
	done   chan struct{}
	peers  map[string]device.ID // instance name -> device
}

func New(cfg Config) *Service {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Anon == nil {
		cfg.Anon = privacy.Disabled()
	}
	return &Service{cfg: cfg, peers: make(map[string]device.ID)}
}

func (s *Service) interfaces() []net.Interface {
	if s.cfg.Interface == "" {
		return nil
	}
	iface, err := net.InterfaceByName(s.cfg.Interface)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

// Start registers the local service and begins browsing. It is a no-op
// when already running.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	info := InfoFromCapabilities(s.cfg.Local, s.cfg.Port)
	var opts []zeroconf.ServerOption
	if s.cfg.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(s.cfg.TTL.Seconds())))
	}
	server, err := zeroconf.Register(
		info.InstanceName(),
		ServiceType,
		Domain,
		int(info.Port),
		EncodeTXT(info),
		s.interfaces(),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("register mdns service: %w", err)
	}
	s.server = server

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.browse(ctx, s.done)

	s.cfg.Log.Info().Str("instance", info.InstanceName()).Uint16("port", info.Port).Msg("mdns discovery started")
	return nil
}

func (s *Service) browse(ctx context.Context, done chan struct{}) {
	defer close(done)

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	var opts []zeroconf.ClientOption
	if ifaces := s.interfaces(); ifaces != nil {
		opts = append(opts, zeroconf.SelectIfaces(ifaces))
	}
	go func() {
		if err := zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, opts...); err != nil {
			s.cfg.Log.Warn().Err(err).Msg("mdns browse failed")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-entries:
			if !ok {
				return
			}
			s.Found(e.Instance, e.Text)
		case e, ok := <-removed:
			if !ok {
				continue
			}
			s.Lost(e.Instance)
		}
	}
}

// Found records a resolved peer. Our own advertisement is ignored.
func (s *Service) Found(instance string, txt []string) {
	info, err := DecodeTXT(txt)
	if err != nil {
		s.cfg.Log.Debug().Err(err).Str("instance", instance).Msg("ignoring mdns entry")
		return
	}
	if info.ID == s.cfg.Local.ID {
		return
	}

	s.mu.Lock()
	s.peers[instance] = info.ID
	s.mu.Unlock()

	s.cfg.Caps.SetRemote(info.Capabilities())
	s.cfg.Caps.UpdateState(info.ID, device.ChannelLan, device.ChannelState{
		Available:  true,
		Network:    device.NetworkWiFi,
		RTTMillis:  10,
		Bandwidth:  100 << 20,
		PacketLoss: 0,
	})
	s.cfg.Log.Info().Str("device", s.cfg.Anon.Device(info.ID)).Str("name", info.Name).Msg("peer discovered")
}

// Lost marks the LAN link of a departed peer unavailable.
func (s *Service) Lost(instance string) {
	s.mu.Lock()
	id, ok := s.peers[instance]
	delete(s.peers, instance)
	s.mu.Unlock()
	if !ok {
		return
	}

	st, _ := s.cfg.Caps.State(id, device.ChannelLan)
	st.Available = false
	s.cfg.Caps.UpdateState(id, device.ChannelLan, st)
	s.cfg.Log.Info().Str("device", s.cfg.Anon.Device(id)).Msg("peer left")
}

// Peers returns the devices currently seen on the network.
func (s *Service) Peers() []device.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]device.ID, 0, len(s.peers))
	for _, id := range s.peers {
		out = append(out, id)
	}
	return out
}

// Stop withdraws the advertisement and ends browsing. Safe to call twice.
func (s *Service) Stop() {
	s.mu.Lock()
	cancel, done, server := s.cancel, s.done, s.server
	s.cancel, s.done, s.server = nil, nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	if server != nil {
		server.Shutdown()
	}
	s.cfg.Log.Info().Msg("mdns discovery stopped")
}
