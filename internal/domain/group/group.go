// Package group holds the group aggregate and its membership rules.
package group

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Kirky-X/xlink/internal/domain/device"
)

var (
	// ErrNotFound is returned when a group id is unknown.
	ErrNotFound = errors.New("group not found")
	// ErrAlreadyExists is returned when a group id is already registered.
	ErrAlreadyExists = errors.New("group already exists")
	// ErrNotMember is returned when a device is not part of the group.
	ErrNotMember = errors.New("device is not a group member")
	// ErrEmptyName is returned when a group is created without a name.
	ErrEmptyName = errors.New("group name is required")
	// ErrInvalidID is returned when a group identifier cannot be decoded.
	ErrInvalidID = errors.New("invalid group identifier")
)

// ID identifies a group. It shares the layout of device.ID but is a
// distinct type, so one cannot be passed where the other is expected.
type ID [device.IDSize]byte

func NewID() ID { return ID(uuid.New()) }

func ParseID(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ID{}, fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	return ID(u), nil
}

func IDFromBytes(b []byte) (ID, error) {
	if len(b) != device.IDSize {
		return ID{}, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidID, device.IDSize, len(b))
	}
	var id ID
	copy(id[:], b)
	return id, nil
}

func (id ID) String() string { return uuid.UUID(id).String() }

func (id ID) Bytes() []byte {
	b := make([]byte, device.IDSize)
	copy(b, id[:])
	return b
}

func (id ID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *ID) UnmarshalText(b []byte) error {
	parsed, err := ParseID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

type MemberStatus string

const (
	MemberOnline  MemberStatus = "online"
	MemberOffline MemberStatus = "offline"
)

type Member struct {
	DeviceID device.ID
	Role     Role
	Status   MemberStatus
	JoinedAt time.Time
	LastSeen time.Time
}

// Group is a named set of devices that receive broadcasts together.
type Group struct {
	ID        ID
	Name      string
	Owner     device.ID
	Members   map[device.ID]*Member
	CreatedAt time.Time
}

// New creates a group owned by owner. The owner joins as admin, every other
// listed device as a plain member.
func New(name string, owner device.ID, members []device.ID) (*Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	now := time.Now()
	g := &Group{
		ID:        NewID(),
		Name:      name,
		Owner:     owner,
		Members:   make(map[device.ID]*Member, len(members)+1),
		CreatedAt: now,
	}
	g.Members[owner] = &Member{DeviceID: owner, Role: RoleAdmin, Status: MemberOnline, JoinedAt: now, LastSeen: now}
	for _, m := range members {
		g.AddMember(m)
	}
	return g, nil
}

// Join rebuilds a group another device created, from its invite. self is
// always a member even if the invite did not list it.
func Join(id ID, name string, owner, self device.ID, members []device.ID) (*Group, error) {
	g, err := New(name, owner, members)
	if err != nil {
		return nil, err
	}
	g.ID = id
	g.AddMember(self)
	return g, nil
}

// AddMember adds a device as a member. Adding an existing member is a no-op
// and reports false.
func (g *Group) AddMember(id device.ID) bool {
	if _, ok := g.Members[id]; ok {
		return false
	}
	now := time.Now()
	g.Members[id] = &Member{DeviceID: id, Role: RoleMember, Status: MemberOffline, JoinedAt: now}
	return true
}

// RemoveMember drops a device from the group.
func (g *Group) RemoveMember(id device.ID) error {
	if _, ok := g.Members[id]; !ok {
		return ErrNotMember
	}
	delete(g.Members, id)
	return nil
}

func (g *Group) IsMember(id device.ID) bool {
	_, ok := g.Members[id]
	return ok
}

// MemberIDs returns member ids in byte order.
func (g *Group) MemberIDs() []device.ID {
	ids := make([]device.ID, 0, len(g.Members))
	for id := range g.Members {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
	return ids
}

// Recipients returns every member except self, in byte order.
func (g *Group) Recipients(self device.ID) []device.ID {
	all := g.MemberIDs()
	out := all[:0]
	for _, id := range all {
		if id != self {
			out = append(out, id)
		}
	}
	return out
}

// Clone returns a deep copy safe to hand out of a lock.
func (g *Group) Clone() *Group {
	c := *g
	c.Members = make(map[device.ID]*Member, len(g.Members))
	for id, m := range g.Members {
		mc := *m
		c.Members[id] = &mc
	}
	return &c
}
