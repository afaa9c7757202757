package discovery

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kirky-X/xlink/internal/domain/device"
)

func TestEncodeTXT(t *testing.T) {
	id := device.ID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10}
	info := Info{
		ID:       id,
		Name:     "kitchen",
		Type:     device.TypeIoT,
		Channels: []device.ChannelType{device.ChannelLan, device.ChannelBluetoothLE},
	}

	assert.Equal(t, []string{
		"ch=lan,bluetooth_le",
		"id=01020304-0506-0708-090a-0b0c0d0e0f10",
		"name=kitchen",
		"type=iot",
	}, EncodeTXT(info))

	bare := EncodeTXT(Info{ID: id})
	assert.Equal(t, []string{"id=01020304-0506-0708-090a-0b0c0d0e0f10"}, bare)
}

func TestDecodeTXT(t *testing.T) {
	id := device.NewID()
	want := Info{
		ID:       id,
		Name:     "laptop",
		Type:     device.TypeLaptop,
		Channels: []device.ChannelType{device.ChannelLan, device.ChannelInternet},
	}

	got, err := DecodeTXT(EncodeTXT(want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecodeTXTLenient(t *testing.T) {
	id := device.NewID()
	got, err := DecodeTXT([]string{
		"ID=" + id.String(),
		"ch=lan, carrier_pigeon ,LAN,memory",
		"flag",
		"",
	})
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, []device.ChannelType{device.ChannelLan, device.ChannelMemory}, got.Channels)
	assert.Empty(t, got.Name)
}

func TestDecodeTXTErrors(t *testing.T) {
	tests := []struct {
		name    string
		txt     []string
		wantErr error
	}{
		{"no id", []string{"name=x"}, ErrMissingRequired},
		{"empty", nil, ErrMissingRequired},
		{"bad id", []string{"id=not-a-uuid"}, ErrInvalidTXT},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeTXT(tt.txt)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestInstanceName(t *testing.T) {
	info := Info{ID: device.NewID()}
	name := info.InstanceName()
	assert.True(t, strings.HasPrefix(name, "xlink-"))
	assert.LessOrEqual(t, len(name), MaxInstanceNameLen)
}
