// Package audit keeps a bounded trail of administrative actions taken on a
// client, such as key changes and state migration.
package audit

import (
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultCapacity is how many entries are kept before the oldest go.
const DefaultCapacity = 1024

// Action names what happened.
type Action string

const (
	ActionStarted     Action = "client_started"
	ActionClosed      Action = "client_closed"
	ActionPeerTrusted Action = "peer_trusted"
	ActionPeerRemoved Action = "peer_forgotten"
	ActionExported    Action = "state_exported"
	ActionImported    Action = "state_imported"
	ActionGroup       Action = "group_changed"
)

type Entry struct {
	Time   time.Time `json:"time"`
	Action Action    `json:"action"`
	Detail string    `json:"detail,omitempty"`
}

// Log is an in-memory ring of entries, safe for concurrent use. Every
// entry is also written to the logger at info level.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
	log     zerolog.Logger
	now     func() time.Time
}

func New(capacity int, log zerolog.Logger) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{entries: make([]Entry, capacity), log: log, now: time.Now}
}

func (l *Log) Record(action Action, detail string) {
	e := Entry{Time: l.now(), Action: action, Detail: detail}

	l.mu.Lock()
	l.entries[l.next] = e
	l.next = (l.next + 1) % len(l.entries)
	if l.next == 0 {
		l.full = true
	}
	l.mu.Unlock()

	l.log.Info().Str("action", string(action)).Str("detail", detail).Msg("audit")
}

// Export returns up to limit entries, newest first. A limit of zero or less
// returns everything kept.
func (l *Log) Export(limit int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Entry
	if l.full {
		out = append(slices.Clone(l.entries[l.next:]), l.entries[:l.next]...)
	} else {
		out = slices.Clone(l.entries[:l.next])
	}
	slices.Reverse(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Len returns how many entries are kept.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.full {
		return len(l.entries)
	}
	return l.next
}
