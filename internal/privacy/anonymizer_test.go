package privacy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kirky-X/xlink/internal/domain/device"
)

func TestDisabledPassesThrough(t *testing.T) {
	id := device.NewID()
	assert.Equal(t, id.String(), Disabled().Device(id))

	var nilAnon *Anonymizer
	assert.Equal(t, id.String(), nilAnon.Device(id))
}

func TestKeyedPseudonymsAreStable(t *testing.T) {
	a, err := New(true, "k1")
	require.NoError(t, err)
	b, err := New(true, "k2")
	require.NoError(t, err)
	id := device.NewID()

	p := a.Device(id)
	assert.True(t, strings.HasPrefix(p, "anon-"))
	assert.Len(t, p, len("anon-")+16)
	assert.Equal(t, p, a.Device(id))
	assert.NotEqual(t, p, b.Device(id))
	assert.NotContains(t, p, id.String())
}

func TestRandomKeyAndLongKey(t *testing.T) {
	a, err := New(true, "")
	require.NoError(t, err)
	assert.True(t, a.Enabled())

	long, err := New(true, strings.Repeat("x", 200))
	require.NoError(t, err)
	assert.NotEmpty(t, long.Device(device.ID{}))
}
