package message

import (
	"cmp"
	"math"
	"slices"
	"time"
)

// SortPending orders messages the way GetPending must return them:
// highest priority first, oldest first within a priority.
func SortPending(ms []*Message) {
	slices.SortStableFunc(ms, func(a, b *Message) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}

// SortSent orders sent messages newest first.
func SortSent(ms []*Message) {
	slices.SortStableFunc(ms, func(a, b *Message) int {
		return sentAt(b).Compare(sentAt(a))
	})
}

func sentAt(m *Message) time.Time {
	if m.SentAt != nil {
		return *m.SentAt
	}
	return m.UpdatedAt
}

// Offset returns the index of the first item of a 1-based page. Pages below
// 1 count as the first one. ok is false when the offset does not fit an
// int, which no stored listing can reach.
func Offset(page, limit int) (offset int, ok bool) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		return 0, true
	}
	if page-1 > math.MaxInt/limit {
		return 0, false
	}
	return (page - 1) * limit, true
}

// Page slices ms for a 1-based page. Out of range pages are empty.
func Page(ms []*Message, page, limit int) []*Message {
	if limit <= 0 {
		return nil
	}
	start, ok := Offset(page, limit)
	if !ok || start >= len(ms) {
		return []*Message{}
	}
	end := start + min(limit, len(ms)-start)
	return ms[start:end]
}
