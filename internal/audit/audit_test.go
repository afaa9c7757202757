package audit

import (
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportNewestFirst(t *testing.T) {
	l := New(0, zerolog.Nop())
	start := time.Unix(1700000000, 0)
	tick := 0
	l.now = func() time.Time { tick++; return start.Add(time.Duration(tick) * time.Second) }

	l.Record(ActionStarted, "")
	l.Record(ActionPeerTrusted, "peer-1")
	l.Record(ActionExported, "")

	all := l.Export(0)
	require.Len(t, all, 3)
	assert.Equal(t, ActionExported, all[0].Action)
	assert.Equal(t, ActionPeerTrusted, all[1].Action)
	assert.Equal(t, "peer-1", all[1].Detail)
	assert.Equal(t, ActionStarted, all[2].Action)
	assert.True(t, all[0].Time.After(all[2].Time))

	assert.Len(t, l.Export(2), 2)
	assert.Empty(t, New(4, zerolog.Nop()).Export(10))
}

func TestOldestEntriesAreDropped(t *testing.T) {
	l := New(3, zerolog.Nop())
	for i := range 5 {
		l.Record(ActionGroup, strconv.Itoa(i))
	}
	assert.Equal(t, 3, l.Len())

	got := l.Export(0)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"4", "3", "2"}, []string{got[0].Detail, got[1].Detail, got[2].Detail})
}
