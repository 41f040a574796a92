// Package ingest accepts the Opus packet feed from the out-of-process capture
// daemon over a WebSocket and republishes it on a channel for the audio
// source to decode.
//
// The daemon connects to /ingest and sends one binary message per Opus
// packet. Only one daemon may be connected at a time; a second connection is
// rejected so two capture processes cannot interleave packets into the same
// decoder.
package ingest

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
)

// Handler is the WebSocket endpoint receiving Opus packets.
type Handler struct {
	packets chan []byte
	log     *slog.Logger

	mu        sync.Mutex
	connected bool
	dropped   int
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger replaces the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.log = l }
}

// NewHandler creates a Handler buffering up to buffer packets. When the
// buffer is full the oldest pending packet is dropped: dictation prefers
// fresh audio over a growing backlog.
func NewHandler(buffer int, opts ...Option) *Handler {
	if buffer <= 0 {
		buffer = 256
	}
	h := &Handler{
		packets: make(chan []byte, buffer),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Packets returns the packet feed channel. It stays open for the lifetime of
// the process; daemon reconnects resume publishing on the same channel.
func (h *Handler) Packets() <-chan []byte {
	return h.packets
}

// ServeHTTP upgrades the request to a WebSocket and forwards binary messages
// into the packet channel until the daemon disconnects.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.connected {
		h.mu.Unlock()
		http.Error(w, "capture daemon already connected", http.StatusConflict)
		return
	}
	h.connected = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		h.connected = false
		h.mu.Unlock()
	}()

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Warn("ingest upgrade failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	h.log.Info("capture daemon connected", "remote", r.RemoteAddr)
	h.readLoop(r.Context(), conn)
	h.log.Info("capture daemon disconnected", "remote", r.RemoteAddr)
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageBinary || len(data) == 0 {
			continue
		}
		h.publish(data)
	}
}

// publish forwards one packet, dropping the oldest pending packet when the
// channel is full.
func (h *Handler) publish(packet []byte) {
	select {
	case h.packets <- packet:
		return
	default:
	}
	select {
	case <-h.packets:
	default:
	}
	select {
	case h.packets <- packet:
	default:
		h.mu.Lock()
		h.dropped++
		n := h.dropped
		h.mu.Unlock()
		h.log.Debug("opus packet dropped", "total_dropped", n)
	}
}

// Connected reports whether a capture daemon is currently attached.
func (h *Handler) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connected
}
