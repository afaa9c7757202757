package routes

import (
	"net/http"

	swaggerHandler "github.com/swaggo/http-swagger"

	_ "github.com/Kirky-X/xlink/internal/docs" // swagger docs
	"github.com/Kirky-X/xlink/internal/response"
)

type AppDeps struct {
	Home    HomeHandler
	Message MessageHandler
	Group   GroupHandler
	Peer    PeerHandler
	// Relay is nil when the gateway has no relay channel.
	Relay   RelayHandler
	Metrics http.Handler
}

type HomeHandler interface {
	Index(w http.ResponseWriter, r *http.Request)
	Health(w http.ResponseWriter, r *http.Request)
	Stats(w http.ResponseWriter, r *http.Request)
}

type MessageHandler interface {
	SendText(w http.ResponseWriter, r *http.Request)
	GetSentMessages(w http.ResponseWriter, r *http.Request)
	StartStopScheduler(w http.ResponseWriter, r *http.Request)
}

type GroupHandler interface {
	Create(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	AddMember(w http.ResponseWriter, r *http.Request)
	RemoveMember(w http.ResponseWriter, r *http.Request)
	Broadcast(w http.ResponseWriter, r *http.Request)
	BroadcastResult(w http.ResponseWriter, r *http.Request)
}

type PeerHandler interface {
	Identity(w http.ResponseWriter, r *http.Request)
	Trust(w http.ResponseWriter, r *http.Request)
	Forget(w http.ResponseWriter, r *http.Request)
	Audit(w http.ResponseWriter, r *http.Request)
}

type RelayHandler interface {
	Health(w http.ResponseWriter, r *http.Request)
	Inbound(w http.ResponseWriter, r *http.Request)
}

func Register(mux *http.ServeMux, d AppDeps) {
	mux.HandleFunc("GET /{$}", d.Home.Index)
	mux.HandleFunc("GET /health", d.Home.Health)
	mux.HandleFunc("GET /stats", d.Home.Stats)

	mux.HandleFunc("POST /devices/{id}/messages", d.Message.SendText)
	mux.HandleFunc("GET /messages/sent", d.Message.GetSentMessages)
	mux.HandleFunc("POST /scheduler", d.Message.StartStopScheduler)

	mux.HandleFunc("POST /groups", d.Group.Create)
	mux.HandleFunc("GET /groups", d.Group.List)
	mux.HandleFunc("GET /groups/{id}", d.Group.Get)
	mux.HandleFunc("POST /groups/{id}/members", d.Group.AddMember)
	mux.HandleFunc("DELETE /groups/{id}/members/{member}", d.Group.RemoveMember)
	mux.HandleFunc("POST /groups/{id}/broadcast", d.Group.Broadcast)
	mux.HandleFunc("GET /broadcasts/{id}", d.Group.BroadcastResult)

	mux.HandleFunc("GET /identity", d.Peer.Identity)
	mux.HandleFunc("PUT /peers/{id}/key", d.Peer.Trust)
	mux.HandleFunc("DELETE /peers/{id}/key", d.Peer.Forget)
	mux.HandleFunc("GET /audit", d.Peer.Audit)

	if d.Relay != nil {
		mux.HandleFunc("GET /relay/inbound", d.Relay.Health)
		mux.HandleFunc("POST /relay/inbound", d.Relay.Inbound)
	}

	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics)
	}

	//Swagger
	mux.HandleFunc("GET /swagger/", swaggerHandler.WrapHandler)

	// Fallback handler for undefined routes (404)
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.RespondError(w, http.StatusNotFound, "route not found")
	}))
}
