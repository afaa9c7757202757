package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/Kirky-X/xlink/internal/domain/device"
	"github.com/Kirky-X/xlink/internal/domain/group"
	domain "github.com/Kirky-X/xlink/internal/domain/message"
)

// Strategy selects how a broadcast is fanned out.
type Strategy string

const (
	// StrategyDirect sends one leg per member with the caller's priority.
	StrategyDirect Strategy = "direct"
	// StrategyFanOut is accepted for relay-assisted delivery and currently
	// behaves like StrategyDirect.
	StrategyFanOut Strategy = "fan_out"
	// StrategyPowerEfficient forces Low priority so the scorer favours
	// cheap channels.
	StrategyPowerEfficient Strategy = "power_efficient"
)

// ErrUnknownStrategy is returned by ParseStrategy.
var ErrUnknownStrategy = errors.New("unknown broadcast strategy")

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyDirect:
		return StrategyDirect, nil
	case StrategyFanOut:
		return StrategyFanOut, nil
	case StrategyPowerEfficient:
		return StrategyPowerEfficient, nil
	}
	return StrategyDirect, fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

const (
	// DefaultBroadcastWorkers bounds concurrent legs of one broadcast.
	DefaultBroadcastWorkers = 8
	// maxResults is how many broadcast results are retained.
	maxResults = 1024
	// inviteMemory is how long a processed invite is remembered.
	inviteMemory = 24 * time.Hour
)

// BroadcastResult is the per-member outcome of one broadcast.
type BroadcastResult struct {
	MessageID  uuid.UUID
	GroupID    group.ID
	Strategy   Strategy
	Delivered  []device.ID
	Failed     []device.ID
	PendingAck []device.ID
	Acked      []device.ID
	CreatedAt  time.Time
}

// Total is the number of members the broadcast was attempted for.
func (r *BroadcastResult) Total() int { return len(r.Delivered) + len(r.Failed) }

func (r *BroadcastResult) clone() *BroadcastResult {
	c := *r
	c.Delivered = append([]device.ID(nil), r.Delivered...)
	c.Failed = append([]device.ID(nil), r.Failed...)
	c.PendingAck = append([]device.ID(nil), r.PendingAck...)
	c.Acked = append([]device.ID(nil), r.Acked...)
	return &c
}

type GroupService interface {
	// Create registers a new group owned by the local device and invites
	// the other members.
	Create(ctx context.Context, name string, members []device.ID) (*group.Group, error)
	AddMember(ctx context.Context, id group.ID, member device.ID) error
	RemoveMember(ctx context.Context, id group.ID, member device.ID) error
	// Leave forgets the group locally.
	Leave(ctx context.Context, id group.ID) error
	Get(id group.ID) (*group.Group, error)
	List() []*group.Group

	// Broadcast sends text to every member except the local device. It
	// fails with ErrBroadcastFailed only when every member failed.
	Broadcast(ctx context.Context, id group.ID, text string, strategy Strategy, priority domain.Priority) (*BroadcastResult, error)
	Result(id uuid.UUID) (*BroadcastResult, bool)

	// HandleAck records that from acknowledged the broadcast leg legID.
	HandleAck(legID uuid.UUID, from device.ID) bool
	// HandleInvite registers the group carried by an invite message.
	HandleInvite(ctx context.Context, m *domain.Message) error
	// Touch marks sender online in the group m belongs to.
	Touch(id group.ID, sender device.ID)
}

type resultEntry struct {
	result  *BroadcastResult
	pending map[device.ID]struct{}
}

type groupService struct {
	Deps
	messages MessageService
	workers  int

	mu      sync.RWMutex
	groups  map[group.ID]*group.Group
	invites map[group.ID]time.Time

	rmu     sync.Mutex
	results map[uuid.UUID]*resultEntry
	order   []uuid.UUID
	legs    map[uuid.UUID]uuid.UUID
}

// NewGroupService creates the group service. Broadcast legs go through
// messages so they are persisted and retried like direct sends.
func NewGroupService(deps Deps, messages MessageService, workers int) GroupService {
	if workers <= 0 {
		workers = DefaultBroadcastWorkers
	}
	return &groupService{
		Deps:     deps,
		messages: messages,
		workers:  workers,
		groups:   make(map[group.ID]*group.Group),
		invites:  make(map[group.ID]time.Time),
		results:  make(map[uuid.UUID]*resultEntry),
		legs:     make(map[uuid.UUID]uuid.UUID),
	}
}

func (s *groupService) Create(ctx context.Context, name string, members []device.ID) (*group.Group, error) {
	members = lo.Without(lo.Uniq(members), s.Self)

	g, err := group.New(name, s.Self, members)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.groups[g.ID] = g
	out := g.Clone()
	s.mu.Unlock()

	s.Log.Info().Str("group", g.ID.String()).Str("name", g.Name).Int("members", len(g.Members)).Msg("created group")
	s.invite(ctx, out, members)
	return out, nil
}

func (s *groupService) AddMember(ctx context.Context, id group.ID, member device.ID) error {
	s.mu.Lock()
	g, ok := s.groups[id]
	if !ok {
		s.mu.Unlock()
		return group.ErrNotFound
	}
	added := g.AddMember(member)
	snapshot := g.Clone()
	s.mu.Unlock()

	if added {
		s.Log.Info().Str("group", id.String()).Str("member", s.Anon.Device(member)).Msg("added member")
		s.invite(ctx, snapshot, []device.ID{member})
	}
	return nil
}

func (s *groupService) RemoveMember(_ context.Context, id group.ID, member device.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	if !ok {
		return group.ErrNotFound
	}
	if err := g.RemoveMember(member); err != nil {
		return err
	}
	s.Log.Info().Str("group", id.String()).Str("member", s.Anon.Device(member)).Msg("removed member")
	return nil
}

func (s *groupService) Leave(_ context.Context, id group.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[id]; !ok {
		return group.ErrNotFound
	}
	delete(s.groups, id)
	s.Log.Info().Str("group", id.String()).Msg("left group")
	return nil
}

func (s *groupService) Get(id group.ID) (*group.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[id]
	if !ok {
		return nil, group.ErrNotFound
	}
	return g.Clone(), nil
}

func (s *groupService) List() []*group.Group {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*group.Group, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *groupService) Broadcast(ctx context.Context, id group.ID, text string, strategy Strategy, priority domain.Priority) (*BroadcastResult, error) {
	if s.Limiter != nil && !s.Limiter.Allow(s.Self) {
		return nil, ErrRateLimited
	}
	if err := domain.ValidateText(text); err != nil {
		return nil, err
	}
	if !priority.Valid() {
		return nil, domain.ErrInvalidPriority
	}

	g, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	switch strategy {
	case StrategyPowerEfficient:
		priority = domain.PriorityLow
	case StrategyFanOut:
		s.Log.Debug().Str("group", id.String()).Msg("fan-out requested, sending directly")
	}

	recipients := g.Recipients(s.Self)
	legs := make([]*domain.Message, len(recipients))
	for i, member := range recipients {
		leg, err := domain.NewText(s.Self, member, text, priority)
		if err != nil {
			return nil, err
		}
		leg.InGroup(id)
		leg.RequireAck = !s.near(member)
		legs[i] = leg
	}

	result := &BroadcastResult{
		MessageID: uuid.New(),
		GroupID:   id,
		Strategy:  strategy,
		CreatedAt: time.Now(),
	}
	// Register before sending so acks racing the fan-out are not lost.
	s.store(result, legs)
	result = s.settle(result.MessageID, legs, s.fanOut(ctx, legs))

	if s.Metrics != nil {
		s.Metrics.Broadcast(len(recipients))
	}
	s.Log.Info().
		Str("broadcast", result.MessageID.String()).
		Str("group", id.String()).
		Str("strategy", string(strategy)).
		Int("delivered", len(result.Delivered)).
		Int("failed", len(result.Failed)).
		Msg("broadcast finished")

	if len(recipients) > 0 && len(result.Delivered) == 0 {
		return result, fmt.Errorf("broadcast %s to group %s: %w", result.MessageID, id, ErrBroadcastFailed)
	}
	return result, nil
}

// fanOut delivers legs with a bounded stride worker pool and reports which
// ones were accepted by a channel.
func (s *groupService) fanOut(ctx context.Context, legs []*domain.Message) []bool {
	delivered := make([]bool, len(legs))
	if len(legs) == 0 {
		return delivered
	}
	workerCount := min(len(legs), s.workers)

	var wg sync.WaitGroup
	for w := 0; w < workerCount; w++ {
		wg.Add(1)
		go func(start int) {
			defer wg.Done()
			for i := start; i < len(legs); i += workerCount {
				if ctx.Err() != nil {
					s.hold(ctx, legs[i])
					continue
				}
				if err := s.messages.Deliver(ctx, legs[i]); err != nil {
					s.Log.Warn().Err(err).Str("member", s.Anon.Device(legs[i].Recipient)).Msg("broadcast leg failed")
					continue
				}
				delivered[i] = true
			}
		}(w)
	}
	wg.Wait()
	return delivered
}

// hold persists a leg that was not attempted so redelivery picks it up.
func (s *groupService) hold(ctx context.Context, leg *domain.Message) {
	if err := s.Repo.Save(context.WithoutCancel(ctx), leg); err != nil {
		s.Log.Error().Err(err).Str("id", leg.ID.String()).Msg("failed to keep broadcast leg for retry")
	}
}

func (s *groupService) store(r *BroadcastResult, legs []*domain.Message) {
	s.rmu.Lock()
	defer s.rmu.Unlock()

	e := &resultEntry{result: r, pending: make(map[device.ID]struct{})}
	for _, leg := range legs {
		if leg.RequireAck {
			e.pending[leg.Recipient] = struct{}{}
			s.legs[leg.ID] = r.MessageID
		}
	}
	s.results[r.MessageID] = e
	s.order = append(s.order, r.MessageID)

	for len(s.order) > maxResults {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.results, oldest)
		for leg, owner := range s.legs {
			if owner == oldest {
				delete(s.legs, leg)
			}
		}
	}
}

// settle records the fan-out outcome and returns a copy of the result.
// Failed legs stop waiting for an ack.
func (s *groupService) settle(id uuid.UUID, legs []*domain.Message, delivered []bool) *BroadcastResult {
	s.rmu.Lock()
	defer s.rmu.Unlock()

	e, ok := s.results[id]
	if !ok {
		e = &resultEntry{result: &BroadcastResult{MessageID: id}, pending: map[device.ID]struct{}{}}
	}
	r := e.result
	for i, leg := range legs {
		if !delivered[i] {
			r.Failed = append(r.Failed, leg.Recipient)
			delete(e.pending, leg.Recipient)
			delete(s.legs, leg.ID)
			continue
		}
		r.Delivered = append(r.Delivered, leg.Recipient)
	}
	r.PendingAck = r.PendingAck[:0]
	for _, leg := range legs {
		if _, waiting := e.pending[leg.Recipient]; waiting {
			r.PendingAck = append(r.PendingAck, leg.Recipient)
		}
	}
	return r.clone()
}

func (s *groupService) Result(id uuid.UUID) (*BroadcastResult, bool) {
	s.rmu.Lock()
	defer s.rmu.Unlock()
	e, ok := s.results[id]
	if !ok {
		return nil, false
	}
	return e.result.clone(), true
}

func (s *groupService) HandleAck(legID uuid.UUID, from device.ID) bool {
	s.rmu.Lock()
	defer s.rmu.Unlock()

	bid, ok := s.legs[legID]
	if !ok {
		return false
	}
	e := s.results[bid]
	if _, waiting := e.pending[from]; !waiting {
		return false
	}
	delete(e.pending, from)
	delete(s.legs, legID)
	e.result.Acked = append(e.result.Acked, from)
	e.result.PendingAck = lo.Without(e.result.PendingAck, from)

	if len(e.pending) == 0 {
		s.Log.Debug().Str("broadcast", bid.String()).Int("acked", len(e.result.Acked)).Msg("broadcast fully acknowledged")
	}
	return true
}

func (s *groupService) HandleInvite(_ context.Context, m *domain.Message) error {
	inv := m.Payload.Invite
	if inv == nil {
		return fmt.Errorf("invite from %s: missing payload", s.Anon.Device(m.Sender))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.forgetInvites(time.Now())
	if g, ok := s.groups[inv.GroupID]; ok {
		for _, id := range inv.Members {
			g.AddMember(id)
		}
		return nil
	}
	if _, seen := s.invites[inv.GroupID]; seen {
		return nil
	}

	g, err := group.Join(inv.GroupID, inv.Name, inv.Owner, s.Self, inv.Members)
	if err != nil {
		return fmt.Errorf("join group %s: %w", inv.GroupID, err)
	}
	s.groups[g.ID] = g
	s.invites[g.ID] = time.Now()

	s.Log.Info().Str("group", g.ID.String()).Str("name", g.Name).Str("from", s.Anon.Device(m.Sender)).Msg("joined group")
	return nil
}

// forgetInvites drops invite records older than inviteMemory. Callers hold mu.
func (s *groupService) forgetInvites(now time.Time) {
	for id, at := range s.invites {
		if now.Sub(at) >= inviteMemory {
			delete(s.invites, id)
		}
	}
}

func (s *groupService) Touch(id group.ID, sender device.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	if !ok {
		return
	}
	if mem, ok := g.Members[sender]; ok {
		mem.Status = group.MemberOnline
		mem.LastSeen = time.Now()
	}
}

// invite tells each listed member about g. Failures are logged; the invite
// stays pending and is redelivered with other messages.
func (s *groupService) invite(ctx context.Context, g *group.Group, to []device.ID) {
	inv := &domain.Invite{
		GroupID: g.ID,
		Name:    g.Name,
		Owner:   g.Owner,
		Members: g.MemberIDs(),
	}
	for _, member := range to {
		m := domain.NewControl(s.Self, member, domain.Payload{Kind: domain.KindGroupInvite, Invite: inv}, domain.PriorityHigh)
		m.InGroup(g.ID)
		if err := s.messages.Deliver(ctx, m); err != nil {
			s.Log.Warn().Err(err).Str("group", g.ID.String()).Str("member", s.Anon.Device(member)).Msg("invite not delivered yet")
		}
	}
}

// near reports whether any known link to id is a near-field one.
func (s *groupService) near(id device.ID) bool {
	if s.Caps == nil {
		return false
	}
	states := s.Caps.States(id)
	return lo.SomeBy(lo.Values(states), func(st device.ChannelState) bool { return st.Near() })
}

// compile-time interface check
var _ GroupService = (*groupService)(nil)
