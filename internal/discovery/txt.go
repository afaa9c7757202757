// Package discovery finds xlink peers on the local network over mDNS and
// feeds them into the capability manager.
package discovery

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Kirky-X/xlink/internal/domain/device"
)

const (
	ServiceType = "_xlink._tcp"
	Domain      = "local."

	TXTKeyID       = "id"
	TXTKeyChannels = "ch"
	TXTKeyName     = "name"
	TXTKeyType     = "type"

	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63
)

var (
	ErrMissingRequired = errors.New("missing required TXT record")
	ErrInvalidTXT      = errors.New("invalid TXT record")
)

// Info is what a device advertises about itself.
type Info struct {
	ID       device.ID
	Name     string
	Type     device.Type
	Channels []device.ChannelType
	Port     uint16
}

// InfoFromCapabilities builds the advertisement of the local device.
func InfoFromCapabilities(c device.Capabilities, port uint16) Info {
	return Info{ID: c.ID, Name: c.Name, Type: c.Type, Channels: c.Channels, Port: port}
}

// Capabilities turns an advertisement into what the capability manager keeps.
func (i Info) Capabilities() device.Capabilities {
	return device.Capabilities{ID: i.ID, Name: i.Name, Type: i.Type, Channels: slices.Clone(i.Channels)}
}

// InstanceName is the mDNS instance label for the advertised device.
func (i Info) InstanceName() string {
	name := "xlink-" + i.ID.String()
	if len(name) > MaxInstanceNameLen {
		name = name[:MaxInstanceNameLen]
	}
	return name
}

// EncodeTXT returns the TXT strings for info in key order.
func EncodeTXT(info Info) []string {
	txt := map[string]string{TXTKeyID: info.ID.String()}
	if len(info.Channels) > 0 {
		names := make([]string, len(info.Channels))
		for i, ct := range info.Channels {
			names[i] = string(ct)
		}
		txt[TXTKeyChannels] = strings.Join(names, ",")
	}
	if info.Name != "" {
		txt[TXTKeyName] = info.Name
	}
	if info.Type != "" {
		txt[TXTKeyType] = string(info.Type)
	}

	out := make([]string, 0, len(txt))
	for k, v := range txt {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	slices.Sort(out)
	return out
}

// DecodeTXT parses TXT strings. Only the id is required; unknown channel
// names and keys are skipped.
func DecodeTXT(records []string) (Info, error) {
	txt := make(map[string]string, len(records))
	for _, r := range records {
		k, v, _ := strings.Cut(r, "=")
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			txt[k] = v
		}
	}

	raw, ok := txt[TXTKeyID]
	if !ok {
		return Info{}, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyID)
	}
	id, err := device.ParseID(raw)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %w", ErrInvalidTXT, err)
	}

	info := Info{ID: id, Name: txt[TXTKeyName], Type: device.Type(txt[TXTKeyType])}
	for _, part := range strings.Split(txt[TXTKeyChannels], ",") {
		ct, ok := device.ParseChannelType(part)
		if ok && !slices.Contains(info.Channels, ct) {
			info.Channels = append(info.Channels, ct)
		}
	}
	return info, nil
}
