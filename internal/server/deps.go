package server

import (
	"github.com/Kirky-X/xlink"
	"github.com/Kirky-X/xlink/internal/channel/webhook"
	"github.com/Kirky-X/xlink/internal/handler"
	routes "github.com/Kirky-X/xlink/internal/router"
)

// Deps builds the route dependencies for client. relay may be nil, in
// which case the relay routes are not mounted.
func Deps(client *xlink.Client, relay *webhook.Channel, relayKey string) routes.AppDeps {
	deps := routes.AppDeps{
		Home:    handler.NewHomeHandler(client),
		Message: handler.NewMessageHandler(client),
		Group:   handler.NewGroupHandler(client),
		Peer:    handler.NewPeerHandler(client),
		Metrics: client.MetricsHandler(),
	}
	if relay != nil {
		deps.Relay = handler.NewRelayHandler(relay, relayKey)
	}
	return deps
}
