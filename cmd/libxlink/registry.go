package main

import (
	"context"
	"runtime/cgo"
	"sync"

	"github.com/Kirky-X/xlink"
	"github.com/Kirky-X/xlink/internal/app"
	"github.com/Kirky-X/xlink/internal/config"
	"github.com/Kirky-X/xlink/internal/logger"
)

var log = logger.Component(logger.Default(), "libxlink")

// build creates the client behind a new handle.
var build = func(ctx context.Context) (*xlink.Client, error) {
	a, err := app.Build(ctx, config.New())
	if err != nil {
		return nil, err
	}
	return a.Client, nil
}

// registry tracks live handles. cgo.Handle.Value panics on a handle that
// was already deleted, so every lookup goes through the live set first.
type registry struct {
	mu   sync.Mutex
	live map[cgo.Handle]struct{}
}

var handles = &registry{live: make(map[cgo.Handle]struct{})}

func (r *registry) add(c *xlink.Client) cgo.Handle {
	h := cgo.NewHandle(c)
	r.mu.Lock()
	r.live[h] = struct{}{}
	r.mu.Unlock()
	return h
}

func (r *registry) get(h cgo.Handle) *xlink.Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.live[h]; !ok {
		return nil
	}
	return h.Value().(*xlink.Client)
}

func (r *registry) remove(h cgo.Handle) *xlink.Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.live[h]; !ok {
		return nil
	}
	delete(r.live, h)
	c := h.Value().(*xlink.Client)
	h.Delete()
	return c
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// guard turns a panic into StatusSendFailed. Panics must not unwind into C.
func guard(status *xlink.Status) {
	if v := recover(); v != nil {
		logPanic(v)
		*status = xlink.StatusSendFailed
	}
}

func logPanic(v any) {
	log.Error().Interface("panic", v).Msg("recovered panic at C boundary")
}

func initClient() (h cgo.Handle) {
	defer func() {
		if v := recover(); v != nil {
			logPanic(v)
			h = 0
		}
	}()
	c, err := build(context.Background())
	if err != nil {
		log.Error().Err(err).Msg("init failed")
		return 0
	}
	return handles.add(c)
}

func freeClient(h cgo.Handle) {
	defer func() {
		if v := recover(); v != nil {
			logPanic(v)
		}
	}()
	if c := handles.remove(h); c != nil {
		_ = c.Close()
	}
}

// sendText and broadcastText resolve the handle per call. An unknown or
// released handle yields StatusInvalidArgument from the nil client.
func sendText(h cgo.Handle, to xlink.DeviceID, text string) (status xlink.Status) {
	defer guard(&status)
	err := handles.get(h).SendText(context.Background(), to, text)
	return xlink.StatusOf(err)
}

func broadcastText(h cgo.Handle, gid xlink.GroupID, text string) (status xlink.Status) {
	defer guard(&status)
	err := handles.get(h).BroadcastText(context.Background(), gid, text)
	return xlink.StatusOf(err)
}
